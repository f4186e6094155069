package newsharvest

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// ArticleRecord is the metadata of one article found on an index page.
// Timestamp is taken from the page or the article URL, never from the crawl
// clock.
type ArticleRecord struct {
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Timestamp int64   `json:"timestamp"`
	Section   *string `json:"section,omitempty"`
}

// NewRecord builds an ArticleRecord. An empty section is left unset.
func NewRecord(title, url string, publishedAt time.Time, section string) ArticleRecord {
	record := ArticleRecord{
		Title:     title,
		URL:       url,
		Timestamp: publishedAt.Unix(),
	}
	if section != "" {
		record.Section = &section
	}
	return record
}

// PublishedAt returns the record timestamp as a time.
func (r ArticleRecord) PublishedAt() time.Time {
	return time.Unix(r.Timestamp, 0).UTC()
}

// DayBucket holds the records discovered for one day in page-then-position
// order.
type DayBucket []ArticleRecord

// DayKey identifies a calendar day by the Unix seconds of its UTC midnight.
type DayKey int64

// DayOf returns the UTC midnight of t's calendar date, read in t's own
// location.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// KeyOf returns the day key for the calendar date of t.
func KeyOf(t time.Time) DayKey {
	return DayKey(DayOf(t).Unix())
}

// Day returns the calendar day the key stands for, as UTC midnight.
func (k DayKey) Day() time.Time {
	return DayOf(time.Unix(int64(k), 0).UTC())
}

func (k DayKey) String() string {
	return strconv.FormatInt(int64(k), 10)
}

// ParseDayKey parses a serialized day key. Keys written with a fractional
// part ("1577836800.0") are accepted. Older files keyed days by a local
// midnight, so every key is moved to the nearest UTC midnight, which is the
// same calendar day for any zone within 12 hours of UTC.
func ParseDayKey(s string) (DayKey, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("invalid day key %q", s)
		}
		n = int64(math.Floor(f))
	}
	return nearestMidnight(n), nil
}

const secondsPerDay = 86400

func nearestMidnight(n int64) DayKey {
	shifted := n + secondsPerDay/2
	day := shifted / secondsPerDay
	if shifted%secondsPerDay < 0 {
		day--
	}
	return DayKey(day * secondsPerDay)
}

// CrawlState is everything collected for one source identity, keyed by day.
type CrawlState map[DayKey]DayBucket

// MaxKey returns the most recent day key. ok is false for an empty state.
func (s CrawlState) MaxKey() (key DayKey, ok bool) {
	for k := range s {
		if !ok || k > key {
			key, ok = k, true
		}
	}
	return key, ok
}

// Articles counts the records across all days.
func (s CrawlState) Articles() int {
	total := 0
	for _, bucket := range s {
		total += len(bucket)
	}
	return total
}

// MarshalJSON writes the state as an object of stringified day keys. Empty
// days are written as empty arrays so they stay distinguishable from days
// never attempted.
func (s CrawlState) MarshalJSON() ([]byte, error) {
	out := make(map[string]DayBucket, len(s))
	for k, bucket := range s {
		if bucket == nil {
			bucket = DayBucket{}
		}
		out[k.String()] = bucket
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the object written by MarshalJSON.
func (s *CrawlState) UnmarshalJSON(data []byte) error {
	var raw map[string]DayBucket
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("checkpoint is not an object")
	}

	state := make(CrawlState, len(raw))
	for rawKey, bucket := range raw {
		key, err := ParseDayKey(rawKey)
		if err != nil {
			return err
		}
		if bucket == nil {
			bucket = DayBucket{}
		}
		// A legacy key and a canonical key may name the same day.
		if existing, ok := state[key]; ok && len(existing) >= len(bucket) {
			continue
		}
		state[key] = bucket
	}
	*s = state
	return nil
}

// SourceIdentity selects the site and the section of that site being
// harvested.
type SourceIdentity struct {
	Site    string
	Section string
}

func (id SourceIdentity) String() string {
	return id.Site + "_" + id.Section
}
