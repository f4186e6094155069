package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/newsharvest"
	"github.com/pevans/newsharvest/discovery"
	"github.com/pevans/newsharvest/timestamp"
)

// BisnisChannels maps bisnis.com channel labels to the numeric ids used in
// the index URL.
var BisnisChannels = map[string]string{
	"Semua Kanal":  "0",
	"Market":       "194",
	"Finansial":    "5",
	"Ekonomi":      "43",
	"Kabar24":      "186",
	"Teknologi":    "277",
	"Lifestyle":    "197",
	"Entrepreneur": "258",
	"Travel":       "222",
	"Sport":        "57",
	"Bola":         "392",
	"Otomotif":     "272",
	"Jakarta":      "382",
	"Bandung":      "548",
	"Banten":       "420",
	"Semarang":     "528",
	"Surabaya":     "526",
	"Bali":         "529",
	"Sumatra":      "527",
	"Kalimantan":   "406",
	"Sulawesi":     "530",
	"Papua":        "413",
	"Koran":        "242",
	"Infografik":   "547",
	"Ramadan":      "390",
	"Bisnis TV":    "551",
}

// bisnisEmptyNotice is shown in place of the listing on days without news.
const bisnisEmptyNotice = "Tidak ada berita"

// BisnisChannelID resolves a section given either as a channel id or as its
// label.
func BisnisChannelID(section string) (string, bool) {
	for label, id := range BisnisChannels {
		if section == id || strings.EqualFold(section, label) {
			return id, true
		}
	}
	return "", false
}

// Bisnis extracts bisnis.com index pages.
type Bisnis struct {
	fetcher discovery.Fetcher
}

// NewBisnis creates the bisnis.com extractor.
func NewBisnis(fetcher discovery.Fetcher) *Bisnis {
	return &Bisnis{fetcher: fetcher}
}

// PageURL returns the index URL of a page for a date.
func (b *Bisnis) PageURL(channelID string, page int, date time.Time) string {
	return fmt.Sprintf("https://www.bisnis.com/index?c=%s&d=%s&per_page=%d", channelID, date.Format("2006-01-02"), page)
}

// Extract implements Extractor.
func (b *Bisnis) Extract(ctx context.Context, section string, page int, date time.Time) ([]newsharvest.ArticleRecord, error) {
	if err := checkPage(page); err != nil {
		return nil, err
	}
	channelID, ok := BisnisChannelID(section)
	if !ok {
		return nil, fmt.Errorf("%w: unknown bisnis channel %q", ErrInvalidRequest, section)
	}

	doc, err := discovery.FetchDocument(ctx, b.fetcher, b.PageURL(channelID, page, date))
	if err != nil {
		return nil, err
	}
	return b.Parse(doc)
}

// Parse reads the records of an index page. A page that says there is no
// news yields no records.
func (b *Bisnis) Parse(doc *goquery.Document) ([]newsharvest.ArticleRecord, error) {
	listing := doc.Find(".indeks-new").First()
	if listing.Length() == 0 {
		return nil, nil
	}

	var records []newsharvest.ArticleRecord
	var parseErr error
	listing.Find("li").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if isBisnisEmptyNotice(s) {
			return true
		}
		record, err := parseBisnisItem(s)
		if err != nil {
			parseErr = err
			return false
		}
		records = append(records, record)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return records, nil
}

// isBisnisEmptyNotice reports whether an item is the placeholder shown in
// place of articles. Articles always carry a date.
func isBisnisEmptyNotice(s *goquery.Selection) bool {
	return s.Find(".date").Length() == 0 && strings.Contains(s.Text(), bisnisEmptyNotice)
}

func parseBisnisItem(s *goquery.Selection) (newsharvest.ArticleRecord, error) {
	rawDate, err := requireText(s.Find(".date"), "date")
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}
	published, err := timestamp.ParseLocal("02 Jan 2006 | 15:04", rawDate)
	if err != nil {
		return newsharvest.ArticleRecord{}, parseError("%v", err)
	}

	link := s.ChildrenFiltered("div").First().Find("a").First()
	href, err := requireAttr(link, "href")
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}
	title, err := requireAttr(link, "title")
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}

	category, err := requireAttr(s.Find(".wrapper-description div a"), "href")
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}

	return newsharvest.NewRecord(title, href, published, bisnisSection(category)), nil
}

// bisnisSection derives the channel name from a category link such as
// https://market.bisnis.com/bursa-saham or https://www.bisnis.com/kabar24.
func bisnisSection(categoryLink string) string {
	host, ok := pathSegment(categoryLink, 0)
	if !ok {
		return categoryLink
	}
	if sub, _, found := strings.Cut(host, "."); found && sub != "www" && sub != "bisnis" {
		return sub
	}
	if segment, ok := pathSegment(categoryLink, 1); ok {
		return segment
	}
	return categoryLink
}
