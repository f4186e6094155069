package crawl

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// MetricsNamespace is the namespace for all harvester metrics.
	MetricsNamespace = "newsharvest"

	// MetricsSubsystem is the subsystem for crawl engine metrics.
	MetricsSubsystem = "crawl"
)

// Metrics holds the Prometheus metrics of the crawl engine. A nil *Metrics
// records nothing.
type Metrics struct {
	PagesTotal         *prometheus.CounterVec
	PageRetriesTotal   *prometheus.CounterVec
	DatesTotal         *prometheus.CounterVec
	ArticlesTotal      *prometheus.CounterVec
	FallbackTotal      *prometheus.CounterVec
	DateDurationSecond *prometheus.HistogramVec
}

// NewMetrics creates and registers the crawl metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)
	return &Metrics{
		PagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: MetricsNamespace,
				Subsystem: MetricsSubsystem,
				Name:      "pages_total",
				Help:      "Index pages requested, by outcome",
			},
			[]string{"source", "outcome"},
		),
		PageRetriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: MetricsNamespace,
				Subsystem: MetricsSubsystem,
				Name:      "page_retries_total",
				Help:      "Pages requested again after a parse failure",
			},
			[]string{"source"},
		),
		DatesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: MetricsNamespace,
				Subsystem: MetricsSubsystem,
				Name:      "dates_total",
				Help:      "Dates completed and checkpointed",
			},
			[]string{"source"},
		),
		ArticlesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: MetricsNamespace,
				Subsystem: MetricsSubsystem,
				Name:      "articles_total",
				Help:      "Article records collected",
			},
			[]string{"source"},
		),
		FallbackTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: MetricsNamespace,
				Subsystem: MetricsSubsystem,
				Name:      "fallback_switches_total",
				Help:      "Runs that switched to the fallback layout",
			},
			[]string{"source"},
		),
		DateDurationSecond: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: MetricsNamespace,
				Subsystem: MetricsSubsystem,
				Name:      "date_duration_seconds",
				Help:      "Wall time spent on one date",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~34min
			},
			[]string{"source"},
		),
	}
}

func (m *Metrics) page(source, outcome string) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) retry(source string) {
	if m == nil {
		return
	}
	m.PageRetriesTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) fallback(source string) {
	if m == nil {
		return
	}
	m.FallbackTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) date(source string, articles int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DatesTotal.WithLabelValues(source).Inc()
	m.ArticlesTotal.WithLabelValues(source).Add(float64(articles))
	m.DateDurationSecond.WithLabelValues(source).Observe(elapsed.Seconds())
}
