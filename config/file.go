// Package config reads the newsharvest configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pevans/newsharvest/checkpoint"
	"github.com/pevans/newsharvest/sources"
	"gopkg.in/yaml.v3"
)

// StorageConfig selects where crawl state is kept.
type StorageConfig struct {
	Type string `yaml:"type"`
	DSN  string `yaml:"dsn"`
}

// SiteConfig overrides the built-in pacing or start date of a site.
// Durations use Go syntax ("10s"); dates are YYYY-MM-DD.
type SiteConfig struct {
	PageDelay string `yaml:"page_delay"`
	DateDelay string `yaml:"date_delay"`
	StartDate string `yaml:"start_date"`
}

// WordPressConfig declares a site harvested through WordPress daily archive
// feeds.
type WordPressConfig struct {
	Name      string   `yaml:"name"`
	BaseURL   string   `yaml:"base_url"`
	StartDate string   `yaml:"start_date"`
	PageDelay string   `yaml:"page_delay"`
	DateDelay string   `yaml:"date_delay"`
	Sections  []string `yaml:"sections"`
}

// FileConfig represents the structure of ~/.newsharvest/config.yaml.
type FileConfig struct {
	DataDir   string                `yaml:"data_dir"`
	LogLevel  string                `yaml:"log_level"`
	Storage   StorageConfig         `yaml:"storage"`
	Sites     map[string]SiteConfig `yaml:"sites"`
	WordPress []WordPressConfig     `yaml:"wordpress"`
}

// DefaultPath returns ~/.newsharvest/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".newsharvest", "config.yaml"), nil
}

// LoadConfigFile loads configuration from path, or from DefaultPath when
// path is empty. Returns nil if the file doesn't exist (not an error).
// Returns error if the file exists but cannot be parsed.
func LoadConfigFile(path string) (*FileConfig, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil // File doesn't exist -- not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return &cfg, nil
}

// Validate checks values that YAML decoding cannot.
func (c *FileConfig) Validate() error {
	switch c.Storage.Type {
	case "", checkpoint.BackendFile, checkpoint.BackendSQLite:
	default:
		return fmt.Errorf("storage.type must be %q or %q, got %q", checkpoint.BackendFile, checkpoint.BackendSQLite, c.Storage.Type)
	}

	for name, site := range c.Sites {
		if _, err := site.override(); err != nil {
			return fmt.Errorf("sites.%s: %w", name, err)
		}
	}

	for i, wp := range c.WordPress {
		if wp.Name == "" {
			return fmt.Errorf("wordpress[%d]: name is required", i)
		}
		if wp.BaseURL == "" {
			return fmt.Errorf("wordpress %s: base_url is required", wp.Name)
		}
		if _, err := wp.site(); err != nil {
			return fmt.Errorf("wordpress %s: %w", wp.Name, err)
		}
	}

	return nil
}

// Registry builds the site registry: the built-in sites, the declared
// WordPress sites, then the per-site overrides. A nil config gives the
// built-in sites unchanged.
func (c *FileConfig) Registry() (*sources.Registry, error) {
	sites := sources.Builtin()
	if c == nil {
		return sources.NewRegistry(sites...)
	}

	for _, wp := range c.WordPress {
		site, err := wp.site()
		if err != nil {
			return nil, fmt.Errorf("wordpress %s: %w", wp.Name, err)
		}
		sites = append(sites, site)
	}

	registry, err := sources.NewRegistry(sites...)
	if err != nil {
		return nil, err
	}

	for name, site := range c.Sites {
		override, err := site.override()
		if err != nil {
			return nil, fmt.Errorf("sites.%s: %w", name, err)
		}
		if err := registry.Override(name, override); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

func (s SiteConfig) override() (sources.Override, error) {
	var o sources.Override
	var err error
	if o.PageDelay, err = parseDuration("page_delay", s.PageDelay); err != nil {
		return o, err
	}
	if o.DateDelay, err = parseDuration("date_delay", s.DateDelay); err != nil {
		return o, err
	}
	if o.StartDate, err = parseDate("start_date", s.StartDate); err != nil {
		return o, err
	}
	return o, nil
}

// wordPressPacing is used for declared sites that leave a delay unset.
var wordPressPacing = sources.Pacing{PageDelay: 4 * time.Second, DateDelay: 8 * time.Second}

func (w WordPressConfig) site() (sources.Site, error) {
	start, err := parseDate("start_date", w.StartDate)
	if err != nil {
		return sources.Site{}, err
	}
	if start == nil {
		return sources.Site{}, errors.New("start_date is required")
	}

	pacing := wordPressPacing
	page, err := parseDuration("page_delay", w.PageDelay)
	if err != nil {
		return sources.Site{}, err
	}
	if page != nil {
		pacing.PageDelay = *page
	}
	date, err := parseDuration("date_delay", w.DateDelay)
	if err != nil {
		return sources.Site{}, err
	}
	if date != nil {
		pacing.DateDelay = *date
	}

	return sources.WordPressSite(strings.ToLower(w.Name), w.BaseURL, w.Sections, *start, pacing), nil
}

func parseDuration(field, value string) (*time.Duration, error) {
	if value == "" {
		return nil, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return nil, fmt.Errorf("invalid %s %q: must be a valid duration (e.g., 4s, 1m)", field, value)
	}
	return &d, nil
}

func parseDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: must be YYYY-MM-DD", field, value)
	}
	return &t, nil
}
