// Package checkpoint persists crawl state between runs.
package checkpoint

import (
	"context"
	"time"

	"github.com/pevans/newsharvest"
)

// Store loads and saves the crawl state of a source identity.
type Store interface {
	// Load returns the saved state, or an empty state when there is none or
	// it cannot be read. It never fails.
	Load(ctx context.Context, id newsharvest.SourceIdentity) newsharvest.CrawlState
	// Save replaces the saved state with state.
	Save(ctx context.Context, id newsharvest.SourceIdentity, state newsharvest.CrawlState) error
}

// ResumeDate returns the day a crawl should start from: the most recent
// saved day, which is crawled again in full because it may have been
// interrupted, or start when nothing has been saved.
func ResumeDate(state newsharvest.CrawlState, start time.Time) time.Time {
	if key, ok := state.MaxKey(); ok {
		return key.Day()
	}
	return newsharvest.DayOf(start)
}
