package newsharvest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayOf_UsesLocalCalendarDate(t *testing.T) {
	wib := time.FixedZone("WIB", 7*60*60)
	// 2020-01-01 03:00 WIB is still 2019-12-31 in UTC
	local := time.Date(2020, 1, 1, 3, 0, 0, 0, wib)

	day := DayOf(local)

	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), day)
	assert.Equal(t, DayKey(1577836800), KeyOf(local))
}

func TestDayKey_Day(t *testing.T) {
	key := DayKey(1577836800)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), key.Day())
	assert.Equal(t, "1577836800", key.String())
}

func TestParseDayKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    DayKey
		wantErr bool
	}{
		{name: "integer", input: "1577836800", want: 1577836800},
		{name: "fractional", input: "1577836800.0", want: 1577836800},
		{name: "local midnight east of UTC", input: "1577898000.0", want: 1577923200},
		{name: "local midnight west of UTC", input: "1577872800", want: 1577836800},
		{name: "integer local midnight", input: "1577811600", want: 1577836800},
		{name: "before epoch", input: "-86400", want: -86400},
		{name: "garbage", input: "yesterday", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDayKey(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestCrawlState_UnmarshalDuplicateDay verifies that a legacy key and a
// canonical key for the same day collapse to one entry holding the records.
func TestCrawlState_UnmarshalDuplicateDay(t *testing.T) {
	data := `{"1577898000.0": [{"title": "Old", "url": "https://example.com/old", "timestamp": 1577900000}], "1577923200": []}`

	var state CrawlState
	require.NoError(t, json.Unmarshal([]byte(data), &state))
	require.Len(t, state, 1)
	require.Len(t, state[1577923200], 1)
	assert.Equal(t, "Old", state[1577923200][0].Title)
}

func TestCrawlState_MaxKey(t *testing.T) {
	_, ok := CrawlState{}.MaxKey()
	assert.False(t, ok, "empty state has no max key")

	state := CrawlState{
		1577836800: {},
		1578009600: {},
		1577923200: {},
	}
	key, ok := state.MaxKey()
	require.True(t, ok)
	assert.Equal(t, DayKey(1578009600), key)
}

func TestCrawlState_JSON(t *testing.T) {
	section := "Market"
	state := CrawlState{
		1577836800: {
			{Title: "One", URL: "https://example.com/1", Timestamp: 1577840000, Section: &section},
			{Title: "Two", URL: "https://example.com/2", Timestamp: 1577850000},
		},
		1577923200: nil,
	}

	data, err := json.Marshal(state)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"1577923200":[]`, "empty day must be an empty array")
	assert.NotContains(t, string(data), `"section":null`)

	var loaded CrawlState
	require.NoError(t, json.Unmarshal(data, &loaded))
	require.Len(t, loaded, 2)
	require.Len(t, loaded[1577836800], 2)
	assert.Equal(t, "One", loaded[1577836800][0].Title)
	require.NotNil(t, loaded[1577836800][0].Section)
	assert.Equal(t, "Market", *loaded[1577836800][0].Section)
	assert.Nil(t, loaded[1577836800][1].Section)
	assert.NotNil(t, loaded[1577923200])
	assert.Empty(t, loaded[1577923200])
}

func TestCrawlState_UnmarshalFractionalKeys(t *testing.T) {
	var state CrawlState
	err := json.Unmarshal([]byte(`{"1577836800.0": [{"title": "A", "url": "u", "timestamp": 1}]}`), &state)
	require.NoError(t, err)
	assert.Len(t, state[1577836800], 1)
}

func TestCrawlState_UnmarshalRejectsNonObject(t *testing.T) {
	var state CrawlState
	assert.Error(t, json.Unmarshal([]byte(`null`), &state))
	assert.Error(t, json.Unmarshal([]byte(`[1, 2]`), &state))
}

func TestNewRecord(t *testing.T) {
	published := time.Date(2020, 1, 1, 10, 0, 0, 0, time.UTC)

	withSection := NewRecord("Title", "https://example.com", published, "news")
	require.NotNil(t, withSection.Section)
	assert.Equal(t, "news", *withSection.Section)
	assert.Equal(t, published.Unix(), withSection.Timestamp)
	assert.Equal(t, published, withSection.PublishedAt())

	without := NewRecord("Title", "https://example.com", published, "")
	assert.Nil(t, without.Section)
}

func TestSourceIdentity_String(t *testing.T) {
	assert.Equal(t, "detik_finance", SourceIdentity{Site: "detik", Section: "finance"}.String())
}
