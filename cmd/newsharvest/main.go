package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pevans/newsharvest"
	"github.com/pevans/newsharvest/checkpoint"
	"github.com/pevans/newsharvest/config"
	"github.com/pevans/newsharvest/crawl"
	"github.com/pevans/newsharvest/discovery"
	"github.com/pevans/newsharvest/logger"
	"github.com/pevans/newsharvest/sources"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration parses a duration from environment variable or returns default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func main() {
	// .env files feed the flag defaults below
	if err := config.LoadEnvFiles(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	site := flag.String("site", "", "Site to harvest; prompted for when empty")
	section := flag.String("section", "", "Section of the site; prompted for when empty")
	dataDir := flag.String("data", getEnv("NEWSHARVEST_DATA_DIR", ""), "Directory for checkpoint files (NEWSHARVEST_DATA_DIR)")
	configPath := flag.String("config", getEnv("NEWSHARVEST_CONFIG", ""), "Path to config file, default ~/.newsharvest/config.yaml (NEWSHARVEST_CONFIG)")
	logLevel := flag.String("log-level", getEnv("NEWSHARVEST_LOG_LEVEL", ""), "debug, info, warn or error (NEWSHARVEST_LOG_LEVEL)")
	fetchTimeout := flag.Duration("fetch-timeout", getEnvDuration("NEWSHARVEST_FETCH_TIMEOUT", 30*time.Second), "Timeout per page request (NEWSHARVEST_FETCH_TIMEOUT)")
	maxRPS := flag.Float64("max-rps", 1, "Upper bound on requests per second, on top of the site pacing")
	metricsAddr := flag.String("metrics-addr", getEnv("NEWSHARVEST_METRICS_ADDR", ""), "Serve Prometheus metrics on this address (NEWSHARVEST_METRICS_ADDR)")
	list := flag.Bool("list", false, "List sites and sections, then exit")

	flag.Parse()

	cfg, err := config.LoadConfigFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if cfg == nil {
		cfg = &config.FileConfig{}
	}

	registry, err := cfg.Registry()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid site table: %v\n", err)
		os.Exit(1)
	}

	if *list {
		printSites(os.Stdout, registry)
		return
	}

	if *dataDir == "" {
		*dataDir = cfg.DataDir
	}
	if *dataDir == "" {
		*dataDir = "."
	}
	if *logLevel == "" {
		*logLevel = cfg.LogLevel
	}

	log, err := logger.New(logger.Config{Level: *logLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	prompt := newPrompter(os.Stdin, os.Stdout)
	if *site == "" {
		*site, err = prompt.ask(fmt.Sprintf("Site (%s): ", joinNames(registry.Names())))
		if err != nil {
			fail(log, "Failed to read site", logger.Error(err))
		}
	}
	if *section == "" {
		hint := ""
		if row, ok := registry.Site(*site); ok {
			hint = fmt.Sprintf(" (%s)", joinNames(row.Sections))
		}
		*section, err = prompt.ask("Section" + hint + ": ")
		if err != nil {
			fail(log, "Failed to read section", logger.Error(err))
		}
	}

	httpFetcher := discovery.NewHTTPFetcher(*fetchTimeout)
	if *maxRPS > 0 {
		httpFetcher.WithRateLimit(rate.NewLimiter(rate.Limit(*maxRPS), 1))
	}
	fetcher := discovery.NewRetryingFetcher(httpFetcher, discovery.DefaultRetryConfig(), log)

	source, err := registry.Resolve(
		newsharvest.SourceIdentity{Site: *site, Section: *section},
		sources.Deps{Fetcher: fetcher, Clock: time.Now},
	)
	if err != nil {
		fail(log, "Cannot harvest source", logger.Error(err))
	}

	store, closeStore, err := checkpoint.Open(cfg.Storage.Type, cfg.Storage.DSN, *dataDir, log)
	if err != nil {
		fail(log, "Failed to open checkpoint store", logger.Error(err))
	}
	defer closeStore()

	// SIGINT/SIGTERM stop the run at the next pause; the last completed
	// date is already saved.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine := crawl.NewEngine(store, source, crawl.DefaultConfig(), log)
	if *metricsAddr != "" {
		engine.WithMetrics(crawl.NewMetrics(prometheus.DefaultRegisterer))
		go serveMetrics(*metricsAddr, log)
	}
	result, err := engine.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			log.Info("Interrupted, progress saved up to the last completed date",
				logger.Int("days", result.Days),
				logger.Int("articles", result.Articles),
			)
			return
		}
		closeStore()
		fail(log, "Crawl failed", logger.Error(err))
	}

	fmt.Printf("Harvested %d articles over %d days for %s\n", result.Articles, result.Days, source.Identity)
}

// serveMetrics exposes the default Prometheus registry until the process
// exits.
func serveMetrics(addr string, log logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	log.Info("Serving metrics", logger.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warn("Metrics server stopped", logger.Error(err))
	}
}

var exit = os.Exit

// fail logs msg as an error, flushes the log and exits with status 1.
// Deferred calls do not run on exit, so the flush has to happen here.
func fail(log logger.Logger, msg string, fields ...logger.Field) {
	log.Error(msg, fields...)
	_ = log.Sync()
	exit(1)
}
