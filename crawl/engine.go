// Package crawl walks a source's index pages one date at a time and
// checkpoints every completed date.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/newsharvest"
	"github.com/pevans/newsharvest/checkpoint"
	"github.com/pevans/newsharvest/discovery"
	"github.com/pevans/newsharvest/logger"
	"github.com/pevans/newsharvest/scraper"
	"github.com/pevans/newsharvest/sources"
)

// Config holds configuration for the crawl engine.
type Config struct {
	// Pause before re-requesting a page that failed to parse
	RetryDelay time.Duration
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		RetryDelay: 5 * time.Second,
	}
}

// RunRecorder is implemented by stores that keep a history of runs.
type RunRecorder interface {
	StartRun(ctx context.Context, runID uuid.UUID, id newsharvest.SourceIdentity, startedAt time.Time) error
	FinishRun(ctx context.Context, runID uuid.UUID, finishedAt time.Time, days int) error
}

// Range is the half-open span of dates a run crawls: Start is included, End
// is not.
type Range struct {
	Start time.Time
	End   time.Time
}

// Dates returns every date of the range in order.
func (r Range) Dates() []time.Time {
	var dates []time.Time
	for d := r.Start; d.Before(r.End); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// Result summarises a finished run.
type Result struct {
	RunID    uuid.UUID
	Days     int
	Articles int
}

// Engine crawls one source. It is not safe for concurrent use; each run is
// strictly sequential.
type Engine struct {
	store   checkpoint.Store
	source  sources.Source
	config  *Config
	log     logger.Logger
	metrics *Metrics
	sleep   discovery.SleepFunc
	now     func() time.Time
}

// NewEngine creates a new crawl engine for source, persisting to store.
func NewEngine(store checkpoint.Store, source sources.Source, config *Config, log logger.Logger) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	if log == nil {
		log = logger.NewNop()
	}
	if source.Location == nil {
		source.Location = time.UTC
	}

	return &Engine{
		store:  store,
		source: source,
		config: config,
		log:    log,
		sleep:  discovery.Sleep,
		now:    time.Now,
	}
}

// WithSleep replaces the pause function.
func (e *Engine) WithSleep(sleep discovery.SleepFunc) *Engine {
	e.sleep = sleep
	return e
}

// WithMetrics records the run in m.
func (e *Engine) WithMetrics(m *Metrics) *Engine {
	e.metrics = m
	return e
}

// WithClock replaces the wall clock used for the end of the range and for
// elapsed times.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// localDate returns midnight of t's calendar date in the source location.
func (e *Engine) localDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, e.source.Location)
}

// Range computes the dates to crawl: from the resume date of state up to,
// but not including, today in the source location.
func (e *Engine) Range(state newsharvest.CrawlState) Range {
	return Range{
		Start: e.localDate(checkpoint.ResumeDate(state, e.source.StartDate)),
		End:   e.localDate(e.now().In(e.source.Location)),
	}
}

// Run crawls every date of the range. The state is saved after each date;
// a cancelled context stops the run at the next pause and the date in
// progress is not saved.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	id := e.source.Identity
	result := Result{RunID: uuid.New()}
	log := e.log.With(
		logger.String("run_id", result.RunID.String()),
		logger.String("source", id.String()),
	)

	state := e.store.Load(ctx, id)
	if state == nil {
		state = newsharvest.CrawlState{}
	}
	r := e.Range(state)
	dates := r.Dates()

	log.Info("Crawl starting",
		logger.String("from", r.Start.Format(time.DateOnly)),
		logger.String("until", r.End.Format(time.DateOnly)),
		logger.Int("dates", len(dates)),
	)

	recorder, _ := e.store.(RunRecorder)
	if recorder != nil {
		if err := recorder.StartRun(ctx, result.RunID, id, e.now()); err != nil {
			log.Warn("Cannot record run start", logger.Error(err))
		}
	}

	c := &crawler{
		engine:    e,
		log:       log,
		extractor: e.source.Primary,
		canFlip:   e.source.HasFallback(),
	}

	for i, date := range dates {
		started := e.now()

		bucket, err := c.crawlDate(ctx, date, i == 0)
		if err != nil {
			return result, err
		}

		state[newsharvest.KeyOf(date)] = bucket
		if err := e.store.Save(ctx, id, state); err != nil {
			return result, fmt.Errorf("failed to save checkpoint for %s: %w", date.Format(time.DateOnly), err)
		}
		result.Days++
		result.Articles += len(bucket)
		elapsed := e.now().Sub(started)
		e.metrics.date(id.String(), len(bucket), elapsed)

		log.Info("Date complete",
			logger.String("date", date.Format(time.DateOnly)),
			logger.Int("articles", len(bucket)),
			logger.Duration("elapsed", elapsed),
			logger.String("progress", fmt.Sprintf("%d/%d", i+1, len(dates))),
		)

		if err := e.sleep(ctx, e.source.Pacing.DateDelay); err != nil {
			return result, err
		}
	}

	if recorder != nil {
		if err := recorder.FinishRun(ctx, result.RunID, e.now(), result.Days); err != nil {
			log.Warn("Cannot record run end", logger.Error(err))
		}
	}

	log.Info("Crawl finished",
		logger.Int("days", result.Days),
		logger.Int("articles", result.Articles),
	)
	return result, nil
}

// crawler holds the state of one run that outlives a single date.
type crawler struct {
	engine    *Engine
	log       logger.Logger
	extractor scraper.Extractor
	// canFlip is true until the switch to the fallback has been made.
	canFlip bool
}

// crawlDate pages through one date until a page comes back empty or the
// transport gives up.
func (c *crawler) crawlDate(ctx context.Context, date time.Time, firstDate bool) (newsharvest.DayBucket, error) {
	e := c.engine
	section := e.source.Identity.Section
	source := e.source.Identity.String()
	bucket := newsharvest.DayBucket{}

	for page := 1; ; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		records, err := c.extractor.Extract(ctx, section, page, date)
		switch {
		case err == nil && len(records) == 0:
			e.metrics.page(source, "empty")
			return bucket, nil

		case err == nil:
			e.metrics.page(source, "ok")
			bucket = append(bucket, records...)
			page++
			if err := e.sleep(ctx, e.source.Pacing.PageDelay); err != nil {
				return nil, err
			}

		case errors.Is(err, scraper.ErrStructure) && c.canFlip && firstDate && page == 1:
			c.log.Warn("Primary layout not found, switching to fallback",
				logger.String("date", date.Format(time.DateOnly)),
				logger.Error(err),
			)
			e.metrics.page(source, "structure")
			e.metrics.fallback(source)
			c.extractor = e.source.Fallback
			c.canFlip = false

		case errors.Is(err, scraper.ErrParse), errors.Is(err, scraper.ErrStructure):
			c.log.Warn("Page did not parse, retrying",
				logger.String("date", date.Format(time.DateOnly)),
				logger.Int("page", page),
				logger.Error(err),
			)
			e.metrics.page(source, "parse_error")
			e.metrics.retry(source)
			if err := e.sleep(ctx, e.config.RetryDelay); err != nil {
				return nil, err
			}

		case errors.Is(err, discovery.ErrTransport), errors.Is(err, discovery.ErrNotFound):
			c.log.Warn("Giving up on date",
				logger.String("date", date.Format(time.DateOnly)),
				logger.Int("page", page),
				logger.Int("articles", len(bucket)),
				logger.Error(err),
			)
			e.metrics.page(source, "transport_error")
			return bucket, nil

		case ctx.Err() != nil:
			return nil, ctx.Err()

		default:
			return nil, fmt.Errorf("extract %s page %d: %w", date.Format(time.DateOnly), page, err)
		}
	}
}
