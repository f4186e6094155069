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

// CNBCSections lists the sections of cnbcindonesia.com. Only the combined
// index is published.
var CNBCSections = []string{"all"}

// CNBC extracts cnbcindonesia.com index pages. The site serves either a
// desktop or a mobile layout for the same URL; the Primary variant reads
// the desktop layout and reports ErrStructure when it is absent, the
// Fallback variant reads the mobile layout.
type CNBC struct {
	fetcher discovery.Fetcher
	variant Variant
}

// NewCNBC creates the extractor for one layout.
func NewCNBC(fetcher discovery.Fetcher, variant Variant) *CNBC {
	return &CNBC{fetcher: fetcher, variant: variant}
}

// PageURL returns the index URL of a page for a date.
func (c *CNBC) PageURL(page int, date time.Time) string {
	return fmt.Sprintf("https://www.cnbcindonesia.com/indeks/%d?date=%s", page, date.Format("2006/01/02"))
}

// Extract implements Extractor.
func (c *CNBC) Extract(ctx context.Context, section string, page int, date time.Time) ([]newsharvest.ArticleRecord, error) {
	if err := checkPage(page); err != nil {
		return nil, err
	}
	if section != "all" {
		return nil, fmt.Errorf("%w: cnbc only has the combined index, got %q", ErrInvalidRequest, section)
	}

	doc, err := discovery.FetchDocument(ctx, c.fetcher, c.PageURL(page, date))
	if err != nil {
		return nil, err
	}
	return c.Parse(doc)
}

// Parse reads the records of an index page in the extractor's layout.
func (c *CNBC) Parse(doc *goquery.Document) ([]newsharvest.ArticleRecord, error) {
	var items *goquery.Selection
	var parse func(*goquery.Selection) (newsharvest.ArticleRecord, error)

	if c.variant == Fallback {
		items, parse = doc.Find(".list__item"), parseCNBCMobile
	} else {
		feed := doc.Find(".gtm_indeks_feed").First()
		if feed.Length() == 0 {
			return nil, fmt.Errorf("%w: no desktop index feed", ErrStructure)
		}
		items, parse = feed.Find("li"), parseCNBCDesktop
	}

	var records []newsharvest.ArticleRecord
	var parseErr error
	items.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		record, err := parse(s)
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

func parseCNBCDesktop(s *goquery.Selection) (newsharvest.ArticleRecord, error) {
	href, err := requireAttr(s.Find("article a"), "href")
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}
	published, err := cnbcURLTime(href)
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}
	section, err := requireText(s.Find(".label"), "section")
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}
	title, err := requireText(s.Find("h2"), "title")
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}
	return newsharvest.NewRecord(title, href, published, section), nil
}

func parseCNBCMobile(s *goquery.Selection) (newsharvest.ArticleRecord, error) {
	href, err := requireAttr(s.Find("a"), "href")
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}
	published, err := cnbcURLTime(href)
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}
	section, err := requireText(s.Find(".sub"), "section")
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}
	title, err := requireText(s.Find("h4 a"), "title")
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}
	return newsharvest.NewRecord(title, href, published, section), nil
}

// cnbcURLTime reads the publish time from an article URL such as
// https://www.cnbcindonesia.com/news/20200101120000-4-126789/slug.
func cnbcURLTime(href string) (time.Time, error) {
	segment, ok := pathSegment(href, 2)
	if !ok {
		return time.Time{}, parseError("no date segment in %q", href)
	}
	token, _, _ := strings.Cut(segment, "-")
	t, err := timestamp.DatedToken(token)
	if err != nil {
		return time.Time{}, parseError("%v", err)
	}
	return t, nil
}
