package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pevans/newsharvest/checkpoint"
	"github.com/pevans/newsharvest/config"
	"github.com/pevans/newsharvest/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	if err := config.LoadEnvFiles(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	addr := flag.String("addr", getEnv("NEWSHARVEST_API_ADDR", ":8080"), "Listen address (NEWSHARVEST_API_ADDR)")
	dataDir := flag.String("data", getEnv("NEWSHARVEST_DATA_DIR", ""), "Directory for checkpoint files (NEWSHARVEST_DATA_DIR)")
	configPath := flag.String("config", getEnv("NEWSHARVEST_CONFIG", ""), "Path to config file (NEWSHARVEST_CONFIG)")

	flag.Parse()

	cfg, err := config.LoadConfigFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if cfg == nil {
		cfg = &config.FileConfig{}
	}
	if *dataDir == "" {
		*dataDir = cfg.DataDir
	}
	if *dataDir == "" {
		*dataDir = "."
	}

	log, err := logger.New(logger.Config{
		Level:  getEnv("NEWSHARVEST_LOG_LEVEL", cfg.LogLevel),
		Format: "json",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	registry, err := cfg.Registry()
	if err != nil {
		fail(log, "Invalid site table", logger.Error(err))
	}

	store, closeStore, err := checkpoint.Open(cfg.Storage.Type, cfg.Storage.DSN, *dataDir, log)
	if err != nil {
		fail(log, "Failed to open checkpoint store", logger.Error(err))
	}
	defer closeStore()

	server := checkpoint.NewAPIServer(store, func(site string) (time.Time, bool) {
		row, ok := registry.Site(site)
		return row.StartDate, ok
	})
	router := server.SetupRouter()
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	log.Info("Starting checkpoint API server",
		logger.String("addr", *addr),
		logger.String("data_dir", *dataDir),
	)
	if err := router.Run(*addr); err != nil {
		closeStore()
		fail(log, "Server failed", logger.Error(err))
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
