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

// DetikLayout names one of the index page layouts used across detik.com
// channels.
type DetikLayout string

const (
	DetikGeneral    DetikLayout = "general"
	DetikEdu        DetikLayout = "edu"
	DetikInet       DetikLayout = "inet"
	DetikTravel     DetikLayout = "travel"
	DetikFoodHealth DetikLayout = "foodhealth"
	DetikWolipop    DetikLayout = "wolipop"
)

// DetikSections maps every supported detik.com channel to its layout.
var DetikSections = map[string]DetikLayout{
	"news":      DetikGeneral,
	"finance":   DetikGeneral,
	"hot":       DetikGeneral,
	"sport":     DetikGeneral,
	"oto":       DetikGeneral,
	"sepakbola": DetikGeneral,
	"edu":       DetikEdu,
	"inet":      DetikInet,
	"travel":    DetikTravel,
	"food":      DetikFoodHealth,
	"health":    DetikFoodHealth,
	"wolipop":   DetikWolipop,
}

// detikTimeLayout matches "01 Jan 2020 10:00" once the weekday and zone are
// dropped.
const detikTimeLayout = "02 Jan 2006 15:04"

// Detik extracts detik.com channel index pages.
type Detik struct {
	fetcher discovery.Fetcher
	layout  DetikLayout
}

// NewDetik returns the extractor for a detik.com channel.
func NewDetik(fetcher discovery.Fetcher, section string) (*Detik, error) {
	layout, ok := DetikSections[section]
	if !ok {
		return nil, fmt.Errorf("%w: unknown detik section %q", ErrInvalidRequest, section)
	}
	return &Detik{fetcher: fetcher, layout: layout}, nil
}

// PageURL returns the index URL of a channel page for a date.
func (d *Detik) PageURL(section string, page int, date time.Time) string {
	switch d.layout {
	case DetikEdu:
		return fmt.Sprintf("https://www.detik.com/%s/indeks/%d?date=%s", section, page, date.Format("01/02/2006"))
	case DetikInet:
		return fmt.Sprintf("https://%s.detik.com/indeks/%d?date=%s", section, page, date.Format("02-01-2006"))
	default:
		return fmt.Sprintf("https://%s.detik.com/indeks/%d?date=%s", section, page, date.Format("01/02/2006"))
	}
}

// Extract implements Extractor.
func (d *Detik) Extract(ctx context.Context, section string, page int, date time.Time) ([]newsharvest.ArticleRecord, error) {
	if err := checkPage(page); err != nil {
		return nil, err
	}

	doc, err := discovery.FetchDocument(ctx, d.fetcher, d.PageURL(section, page, date))
	if err != nil {
		return nil, err
	}
	return d.Parse(doc)
}

// Parse reads the records of an already fetched index page.
func (d *Detik) Parse(doc *goquery.Document) ([]newsharvest.ArticleRecord, error) {
	var item string
	var parse func(*goquery.Selection) (newsharvest.ArticleRecord, error)

	switch d.layout {
	case DetikInet:
		item, parse = ".list-content__item", parseDetikInet
	case DetikTravel:
		item, parse = ".list__news--trigger", parseDetikTravel
	case DetikFoodHealth:
		item, parse = "article", parseDetikFoodHealth
	case DetikWolipop:
		item, parse = ".text", parseDetikWolipop
	default:
		item, parse = ".list-content__item", parseDetikGeneral
	}

	var records []newsharvest.ArticleRecord
	var parseErr error
	doc.Find(item).EachWithBreak(func(_ int, s *goquery.Selection) bool {
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

func parseDetikGeneral(s *goquery.Selection) (newsharvest.ArticleRecord, error) {
	title, err := requireAttr(s.Find("img"), "title")
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}
	link, err := requireAttr(s.Find("a"), "href")
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}
	published, err := unixAttr(s.Find("span").Eq(1), "d-time")
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}
	return newsharvest.NewRecord(title, link, published, ""), nil
}

func parseDetikInet(s *goquery.Selection) (newsharvest.ArticleRecord, error) {
	title, err := requireAttr(s.Find("a"), "dtr-ttl")
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}
	link, err := requireAttr(s, "i-link")
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}
	// i-info carries an escaped HTML fragment holding the time span
	info, err := requireAttr(s, "i-info")
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}
	fragment, err := goquery.NewDocumentFromReader(strings.NewReader(info))
	if err != nil {
		return newsharvest.ArticleRecord{}, parseError("i-info fragment: %v", err)
	}
	published, err := unixAttr(fragment.Find("span"), "d-time")
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}
	return newsharvest.NewRecord(title, link, published, ""), nil
}

func parseDetikTravel(s *goquery.Selection) (newsharvest.ArticleRecord, error) {
	published, err := detikDate(s.Find("div div").First().Text())
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}
	title, err := requireAttr(s.Find("a"), "dtr-ttl")
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}
	link, err := requireAttr(s.Find("a"), "href")
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}
	return newsharvest.NewRecord(title, link, published, ""), nil
}

func parseDetikFoodHealth(s *goquery.Selection) (newsharvest.ArticleRecord, error) {
	published, err := detikDate(s.Find("span").First().Text())
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}
	title, err := requireText(s.Find("h2"), "title")
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}
	link, err := requireAttr(s.Find("a"), "href")
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}
	return newsharvest.NewRecord(title, link, published, ""), nil
}

func parseDetikWolipop(s *goquery.Selection) (newsharvest.ArticleRecord, error) {
	published, err := detikDate(s.Find("span").First().Text())
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}
	title, err := requireText(s.Find("h3 a"), "title")
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}
	link, err := requireAttr(s.Find("a"), "href")
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}
	return newsharvest.NewRecord(title, link, published, ""), nil
}

// detikDate parses "Rabu, 01 Jan 2020 10:00 WIB": the weekday is dropped
// and the next four fields are the date and time.
func detikDate(text string) (time.Time, error) {
	fields := strings.Fields(text)
	if len(fields) < 5 {
		return time.Time{}, parseError("date %q", cleanText(text))
	}
	t, err := timestamp.ParseLocal(detikTimeLayout, strings.Join(fields[1:5], " "))
	if err != nil {
		return time.Time{}, parseError("%v", err)
	}
	return t, nil
}
