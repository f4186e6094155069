package scraper

import (
	"context"
	"testing"
	"time"

	"github.com/pevans/newsharvest/timestamp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bisnisPage = `<ul class="list-news indeks-new">
<li>
  <div class="col-sm-4"><a href="https://market.bisnis.com/read/20200101/7/1/saham" title="Bisnis headline"><img src="1.jpg"></a></div>
  <div class="col-sm-8">
    <div class="wrapper-description"><div class="channel"><a href="https://market.bisnis.com/bursa-saham">Bursa Saham</a></div></div>
    <div class="date">01 Jan 2020 | 10:00 WIB</div>
  </div>
</li>
<li>
  <div class="col-sm-4"><a href="https://www.bisnis.com/read/20200101/15/2/kabar" title="Second"><img src="2.jpg"></a></div>
  <div class="col-sm-8">
    <div class="wrapper-description"><div class="channel"><a href="https://www.bisnis.com/kabar24">Kabar24</a></div></div>
    <div class="date">01 Des 2020 | 23:05 WIB</div>
  </div>
</li>
</ul>`

func TestBisnisChannelID(t *testing.T) {
	id, ok := BisnisChannelID("194")
	require.True(t, ok)
	assert.Equal(t, "194", id)

	id, ok = BisnisChannelID("market")
	require.True(t, ok)
	assert.Equal(t, "194", id)

	_, ok = BisnisChannelID("weather")
	assert.False(t, ok)
}

func TestBisnis_Extract(t *testing.T) {
	fetcher := &pageFetcher{body: bisnisPage}

	records, err := NewBisnis(fetcher).Extract(context.Background(), "Market", 2, jan1())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Bisnis headline", records[0].Title)
	assert.Equal(t, "https://market.bisnis.com/read/20200101/7/1/saham", records[0].URL)
	assert.Equal(t, time.Date(2020, 1, 1, 10, 0, 0, 0, timestamp.WIB).Unix(), records[0].Timestamp)
	require.NotNil(t, records[0].Section)
	assert.Equal(t, "market", *records[0].Section)

	require.NotNil(t, records[1].Section)
	assert.Equal(t, "kabar24", *records[1].Section)
	assert.Equal(t, time.Date(2020, 12, 1, 23, 5, 0, 0, timestamp.WIB).Unix(), records[1].Timestamp)

	assert.Equal(t, []string{"https://www.bisnis.com/index?c=194&d=2020-01-01&per_page=2"}, fetcher.urls)
}

func TestBisnis_NoNewsNotice(t *testing.T) {
	page := `<ul class="list-news indeks-new"><li><p>Tidak ada berita</p></li></ul>`

	records, err := NewBisnis(&pageFetcher{body: page}).Extract(context.Background(), "0", 1, jan1())
	require.NoError(t, err, "a no-news notice is not an error")
	assert.Empty(t, records)
}

func TestBisnis_TitleMentioningNoNews(t *testing.T) {
	page := `<ul class="list-news indeks-new">
<li>
  <div class="col-sm-4"><a href="https://www.bisnis.com/read/20200101/15/3/libur" title="Tidak ada berita buruk dari bursa"><img src="3.jpg"></a></div>
  <div class="col-sm-8">
    <div class="wrapper-description"><div class="channel"><a href="https://market.bisnis.com/bursa-saham">Bursa Saham</a></div><p>Tidak ada berita negatif selama libur.</p></div>
    <div class="date">01 Jan 2020 | 08:30 WIB</div>
  </div>
</li>
</ul>`

	records, err := NewBisnis(&pageFetcher{body: page}).Extract(context.Background(), "0", 1, jan1())
	require.NoError(t, err)
	require.Len(t, records, 1, "an article mentioning the notice is still an article")
	assert.Equal(t, "Tidak ada berita buruk dari bursa", records[0].Title)
	require.NotNil(t, records[0].Section)
	assert.Equal(t, "market", *records[0].Section)
}

func TestBisnis_NoListing(t *testing.T) {
	records, err := NewBisnis(&pageFetcher{body: `<div class="main"></div>`}).Extract(context.Background(), "0", 1, jan1())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestBisnis_MissingDateIsParseError(t *testing.T) {
	page := `<ul class="indeks-new"><li><div><a href="https://x" title="t"></a></div></li></ul>`

	_, err := NewBisnis(&pageFetcher{body: page}).Extract(context.Background(), "0", 1, jan1())
	assert.ErrorIs(t, err, ErrParse)
}

func TestBisnisSection(t *testing.T) {
	assert.Equal(t, "market", bisnisSection("https://market.bisnis.com/bursa-saham"))
	assert.Equal(t, "kabar24", bisnisSection("https://www.bisnis.com/kabar24"))
	assert.Equal(t, "ekonomi", bisnisSection("https://bisnis.com/ekonomi"))
	assert.Equal(t, "/relative", bisnisSection("/relative"))
}
