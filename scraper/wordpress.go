package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/pevans/newsharvest"
	"github.com/pevans/newsharvest/discovery"
)

// WordPress extracts the per-day RSS archives that WordPress news sites
// publish. A request past the last page answers 404, which the fetcher
// reports as discovery.ErrNotFound.
type WordPress struct {
	fetcher discovery.Fetcher
	baseURL string
}

// NewWordPress creates an extractor for the WordPress site at baseURL.
func NewWordPress(fetcher discovery.Fetcher, baseURL string) *WordPress {
	return &WordPress{
		fetcher: fetcher,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// PageURL returns the archive feed URL of a page for a date. The "all"
// section requests the unfiltered archive.
func (w *WordPress) PageURL(section string, page int, date time.Time) string {
	query := url.Values{}
	query.Set("feed", "rss2")
	query.Set("year", date.Format("2006"))
	query.Set("monthnum", date.Format("01"))
	query.Set("day", date.Format("02"))
	query.Set("paged", strconv.Itoa(page))
	if section != "" && section != "all" {
		query.Set("category_name", section)
	}
	return w.baseURL + "/?" + query.Encode()
}

// Extract implements Extractor.
func (w *WordPress) Extract(ctx context.Context, section string, page int, date time.Time) ([]newsharvest.ArticleRecord, error) {
	if err := checkPage(page); err != nil {
		return nil, err
	}

	resp, err := w.fetcher.Fetch(ctx, w.PageURL(section, page, date))
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: HTTP status %d", discovery.ErrTransport, resp.Status)
	}
	return w.Parse(resp.Body)
}

// Parse reads the records of an RSS or Atom document.
func (w *WordPress) Parse(body []byte) ([]newsharvest.ArticleRecord, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, parseError("feed: %v", err)
	}

	records := make([]newsharvest.ArticleRecord, 0, len(feed.Items))
	for _, item := range feed.Items {
		title := cleanText(item.Title)
		if title == "" {
			return nil, parseError("feed item without title")
		}
		if item.Link == "" {
			return nil, parseError("feed item %q without link", title)
		}

		published := item.PublishedParsed
		if published == nil {
			published = item.UpdatedParsed
		}
		if published == nil {
			return nil, parseError("feed item %q without date", title)
		}

		var section string
		if len(item.Categories) > 0 {
			section = cleanText(item.Categories[0])
		}
		records = append(records, newsharvest.NewRecord(title, item.Link, *published, section))
	}
	return records, nil
}
