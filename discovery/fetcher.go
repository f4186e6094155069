// Package discovery fetches index pages for the extractors. It owns the
// outbound fetch contract and the bounded retry applied to transport
// failures.
package discovery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/newsharvest/logger"
	"golang.org/x/time/rate"
)

var (
	// ErrTransport is returned once every attempt to fetch a page failed.
	ErrTransport = errors.New("transport failure")
	// ErrNotFound is returned for a 404 response, which the index sites use
	// for pages past the end of a listing.
	ErrNotFound = errors.New("page not found")
)

// DefaultUserAgent is sent with every request.
const DefaultUserAgent = "Mozilla/5.0 (compatible; newsharvest/1.0; +index metadata)"

// Response is the raw result of one fetch.
type Response struct {
	Status int
	Body   []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Fetcher issues a single GET for a page. Implementations return a
// Response for any HTTP status and an error only when no response was
// received.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Response, error)
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep waits for d, returning early with ctx.Err() if ctx is cancelled.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// HTTPFetcher fetches pages with net/http.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	limiter   *rate.Limiter
}

// NewHTTPFetcher creates a fetcher with the given per-request timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: DefaultUserAgent,
	}
}

// WithRateLimit caps the request rate, whatever the callers' pacing.
func (f *HTTPFetcher) WithRateLimit(limiter *rate.Limiter) *HTTPFetcher {
	f.limiter = limiter
	return f
}

// Fetch performs the GET and reads the whole body.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	return &Response{Status: resp.StatusCode, Body: body}, nil
}

// RetryConfig bounds the retries of a RetryingFetcher.
type RetryConfig struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// Delay is the pause between tries.
	Delay time.Duration
}

// DefaultRetryConfig returns five attempts spaced ten seconds apart.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts: 5,
		Delay:    10 * time.Second,
	}
}

// RetryingFetcher retries failed fetches a bounded number of times. A 404
// is not retried.
type RetryingFetcher struct {
	next   Fetcher
	config RetryConfig
	sleep  SleepFunc
	log    logger.Logger
}

// NewRetryingFetcher wraps next with the given retry policy.
func NewRetryingFetcher(next Fetcher, config RetryConfig, log logger.Logger) *RetryingFetcher {
	if config.Attempts < 1 {
		config.Attempts = 1
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &RetryingFetcher{
		next:   next,
		config: config,
		sleep:  Sleep,
		log:    log,
	}
}

// WithSleep replaces the pause between attempts.
func (f *RetryingFetcher) WithSleep(sleep SleepFunc) *RetryingFetcher {
	f.sleep = sleep
	return f
}

// Fetch returns the first successful response. When every attempt fails the
// error wraps ErrTransport.
func (f *RetryingFetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	var lastErr error

	for attempt := 1; attempt <= f.config.Attempts; attempt++ {
		resp, err := f.next.Fetch(ctx, url)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
		case resp.OK():
			return resp, nil
		case resp.Status == http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
		default:
			lastErr = fmt.Errorf("HTTP status %d", resp.Status)
		}

		if attempt == 1 && f.config.Attempts > 1 {
			f.log.Warn("Fetch failed, retrying",
				logger.String("url", url),
				logger.Int("attempts", f.config.Attempts),
				logger.Duration("interval", f.config.Delay),
				logger.Error(lastErr),
			)
		}
		if attempt < f.config.Attempts {
			if err := f.sleep(ctx, f.config.Delay); err != nil {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("%w: %s after %d attempts: %w", ErrTransport, url, f.config.Attempts, lastErr)
}

// FetchDocument fetches url and parses the body as HTML.
func FetchDocument(ctx context.Context, f Fetcher, url string) (*goquery.Document, error) {
	resp, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: %s: HTTP status %d", ErrTransport, url, resp.Status)
	}
	return Document(resp.Body)
}

// Document parses an HTML body.
func Document(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}
