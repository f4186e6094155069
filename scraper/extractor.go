// Package scraper turns one index page of a news site into article
// records. Each site family has its own Extractor; selectors and URL
// templates live with the family that uses them.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/newsharvest"
)

var (
	// ErrParse marks a page whose listing was found but an expected field
	// was missing or malformed. It is worth retrying.
	ErrParse = errors.New("page parse error")
	// ErrStructure marks a page where the expected listing markup is absent
	// altogether.
	ErrStructure = errors.New("unexpected page structure")
	// ErrInvalidRequest is returned without fetching when the page number or
	// section cannot be served.
	ErrInvalidRequest = errors.New("invalid extract request")
)

// Extractor fetches one index page for a date and returns its records. An
// empty result means the date has no more pages.
type Extractor interface {
	Extract(ctx context.Context, section string, page int, date time.Time) ([]newsharvest.ArticleRecord, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, section string, page int, date time.Time) ([]newsharvest.ArticleRecord, error)

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, section string, page int, date time.Time) ([]newsharvest.ArticleRecord, error) {
	return f(ctx, section, page, date)
}

// Variant selects between the primary markup layout of a site and its
// alternate layout.
type Variant int

const (
	Primary Variant = iota
	Fallback
)

func (v Variant) String() string {
	if v == Fallback {
		return "fallback"
	}
	return "primary"
}

// Clock returns the current time. Sites that publish relative timestamps
// resolve them against it.
type Clock func() time.Time

func checkPage(page int) error {
	if page < 1 {
		return fmt.Errorf("%w: page %d", ErrInvalidRequest, page)
	}
	return nil
}

func parseError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrParse, fmt.Sprintf(format, args...))
}

// requireAttr returns a non-empty attribute of the first node in s.
func requireAttr(s *goquery.Selection, name string) (string, error) {
	value, ok := s.First().Attr(name)
	value = strings.TrimSpace(value)
	if !ok || value == "" {
		return "", parseError("missing %s attribute", name)
	}
	return value, nil
}

// requireText returns the whitespace-normalized text of s.
func requireText(s *goquery.Selection, what string) (string, error) {
	text := cleanText(s.First().Text())
	if text == "" {
		return "", parseError("missing %s", what)
	}
	return text, nil
}

func cleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// unixAttr reads a Unix-seconds attribute such as detik's d-time.
func unixAttr(s *goquery.Selection, name string) (time.Time, error) {
	raw, err := requireAttr(s, name)
	if err != nil {
		return time.Time{}, err
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, parseError("%s %q is not a timestamp", name, raw)
	}
	return time.Unix(secs, 0).UTC(), nil
}

// absoluteURL turns protocol-relative links into https links.
func absoluteURL(href string) string {
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}

// pathSegment returns the n-th path segment of a link, counting the host as
// segment zero, the way the index sites lay out article URLs.
func pathSegment(link string, n int) (string, bool) {
	u, err := url.Parse(absoluteURL(link))
	if err != nil || u.Host == "" {
		return "", false
	}
	segments := append([]string{u.Host}, strings.Split(strings.Trim(u.Path, "/"), "/")...)
	if n >= len(segments) || segments[n] == "" {
		return "", false
	}
	return segments[n], true
}
