package scraper

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/newsharvest"
	"github.com/pevans/newsharvest/discovery"
	"github.com/pevans/newsharvest/timestamp"
)

// KontanSections lists the kanal values of kontan.co.id. "all" stands for
// the unfiltered index.
var KontanSections = []string{
	"all", "nasional", "keuangan", "investasi", "industri", "internasional",
	"peluangusaha", "personalfinance", "english", "lifestyle", "fokus",
	"pialaeropa", "regional", "yangter", "kesehatan", "caritahu", "analisis",
	"executive", "kolom", "kilaskementerian", "infografik", "insight",
	"cekfakta", "ads", "seremonia", "native", "adv", "exportexpert",
	"tabloid", "kilaskorporasi", "edsus", "tv", "stocksetup", "belanjaon",
	"newssetup", "filmon", "kiaton", "sportsetup", "momsmoneyid",
}

// kontanPageSize is the number of entries per kontan index page; pages are
// addressed by entry offset.
const kontanPageSize = 20

// Kontan extracts kontan.co.id index pages. Kontan only shows how long ago
// an article was published, so timestamps are resolved against the clock.
type Kontan struct {
	fetcher discovery.Fetcher
	now     Clock
}

// NewKontan creates the kontan.co.id extractor.
func NewKontan(fetcher discovery.Fetcher, now Clock) *Kontan {
	if now == nil {
		now = time.Now
	}
	return &Kontan{fetcher: fetcher, now: now}
}

// PageURL returns the index URL of a page for a date.
func (k *Kontan) PageURL(section string, page int, date time.Time) string {
	kanal := section
	if kanal == "all" {
		kanal = ""
	}
	return fmt.Sprintf(
		"https://www.kontan.co.id/search/indeks?kanal=%s&tanggal=%s&bulan=%s&tahun=%s&pos=indeks&per_page=%d",
		kanal, date.Format("02"), date.Format("01"), date.Format("2006"), (page-1)*kontanPageSize,
	)
}

// Extract implements Extractor.
func (k *Kontan) Extract(ctx context.Context, section string, page int, date time.Time) ([]newsharvest.ArticleRecord, error) {
	if err := checkPage(page); err != nil {
		return nil, err
	}
	if !slices.Contains(KontanSections, section) {
		return nil, fmt.Errorf("%w: unknown kontan section %q", ErrInvalidRequest, section)
	}

	doc, err := discovery.FetchDocument(ctx, k.fetcher, k.PageURL(section, page, date))
	if err != nil {
		return nil, err
	}
	return k.Parse(doc)
}

// Parse reads the records of an index page.
func (k *Kontan) Parse(doc *goquery.Document) ([]newsharvest.ArticleRecord, error) {
	now := k.now()

	var records []newsharvest.ArticleRecord
	var parseErr error
	doc.Find("[data-offset]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		record, err := parseKontanItem(s, now)
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

func parseKontanItem(s *goquery.Selection, now time.Time) (newsharvest.ArticleRecord, error) {
	ago, err := requireText(s.Find(".ff-opensans .font-gray"), "relative time")
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}
	published, err := timestamp.ParseRelative(now, ago)
	if err != nil {
		return newsharvest.ArticleRecord{}, parseError("%v", err)
	}

	section, err := requireText(s.Find(".mar-r-5 a"), "section")
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}
	title, err := requireText(s.Find("h1 a"), "title")
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}
	href, err := requireAttr(s.Find("a[href]"), "href")
	if err != nil {
		return newsharvest.ArticleRecord{}, err
	}

	return newsharvest.NewRecord(title, absoluteURL(strings.TrimSpace(href)), published, section), nil
}
