package scraper

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/newsharvest"
	"github.com/pevans/newsharvest/discovery"
	"github.com/pevans/newsharvest/timestamp"
)

// KompasSections lists the site filters accepted by indeks.kompas.com.
var KompasSections = []string{
	"all", "news", "megapolitan", "nasional", "regional", "global", "tren",
	"health", "food", "edukasi", "money", "tekno", "lifestyle", "homey",
	"properti", "bola", "travel", "otomotif", "sains", "hype", "jeo",
	"skola", "stori", "konsultasihukum", "headline", "terpopuler",
	"sorotan", "topik-pilihan",
}

// Kompas extracts indeks.kompas.com pages.
type Kompas struct {
	fetcher discovery.Fetcher
}

// NewKompas creates the kompas.com extractor.
func NewKompas(fetcher discovery.Fetcher) *Kompas {
	return &Kompas{fetcher: fetcher}
}

// PageURL returns the index URL of a page for a date.
func (k *Kompas) PageURL(section string, page int, date time.Time) string {
	return fmt.Sprintf("https://indeks.kompas.com/?site=%s&date=%s&page=%d", section, date.Format("2006-01-02"), page)
}

// Extract implements Extractor.
func (k *Kompas) Extract(ctx context.Context, section string, page int, date time.Time) ([]newsharvest.ArticleRecord, error) {
	if err := checkPage(page); err != nil {
		return nil, err
	}
	if !slices.Contains(KompasSections, section) {
		return nil, fmt.Errorf("%w: unknown kompas section %q", ErrInvalidRequest, section)
	}

	doc, err := discovery.FetchDocument(ctx, k.fetcher, k.PageURL(section, page, date))
	if err != nil {
		return nil, err
	}
	return k.Parse(doc)
}

// Parse reads the records of an index page.
func (k *Kompas) Parse(doc *goquery.Document) ([]newsharvest.ArticleRecord, error) {
	var records []newsharvest.ArticleRecord
	var parseErr error

	doc.Find(".article__list").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		record, err := parseKompasItem(s)
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

func parseKompasItem(s *goquery.Selection) (newsharvest.ArticleRecord, error) {
	rawDate, err := requireText(s.Find(".article__date"), "date")
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}
	published, err := timestamp.ParseLocal("02/01/2006 15:04", rawDate)
	if err != nil {
		return newsharvest.ArticleRecord{}, parseError("%v", err)
	}

	section, err := requireText(s.Find(".article__subtitle--inline"), "section")
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}

	link := s.Find("a[href]").First()
	href, err := requireAttr(link, "href")
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}
	title, err := requireAttr(link.Find("img"), "alt")
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}

	return newsharvest.NewRecord(title, href, published, section), nil
}
