// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Site      SiteConfig      `mapstructure:"site"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	Storage   StorageConfig   `mapstructure:"storage"`
	DB        DBConfig        `mapstructure:"db"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Extractor ExtractorConfig `mapstructure:"extractor"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// SiteConfig identifies the classifieds site and search endpoint.
type SiteConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	SearchPath     string `mapstructure:"search_path"`
	ResultsPerPage int    `mapstructure:"results_per_page"`
	HasPic         string `mapstructure:"has_pic"`
	MinAutoYear    string `mapstructure:"min_auto_year"`
	SearchType     string `mapstructure:"search_type"`
}

// CrawlerConfig governs crawl pipeline behavior.
type CrawlerConfig struct {
	MaxPagesDefault  int     `mapstructure:"max_pages_default"`
	UserAgent        string  `mapstructure:"user_agent"`
	DelaySeconds     float64 `mapstructure:"delay_seconds"`
	DetailDelaySecs  float64 `mapstructure:"detail_delay_seconds"`
	TimeoutSeconds   int     `mapstructure:"timeout_seconds"`
	Headless         bool    `mapstructure:"headless"`
	HeadlessNavSecs  int     `mapstructure:"headless_nav_timeout_seconds"`
	SkipExistingKeys bool    `mapstructure:"skip_existing_keys"`
}

// StorageConfig sets the blob store destination for run artifacts.
type StorageConfig struct {
	Provider string `mapstructure:"provider"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
}

// DBConfig controls the optional run-metadata database.
type DBConfig struct {
	DSN           string `mapstructure:"dsn"`
	RunsTable     string `mapstructure:"runs_table"`
	ListingsTable string `mapstructure:"listings_table"`
}

// PubSubConfig holds metadata for object-finalize notifications.
type PubSubConfig struct {
	ProjectID    string `mapstructure:"project_id"`
	TopicID      string `mapstructure:"topic_id"`
	Subscription string `mapstructure:"subscription"`
}

// ExtractorConfig configures the structured-extraction pipeline.
type ExtractorConfig struct {
	ModelEndpoint  string `mapstructure:"model_endpoint"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// ServerConfig controls the HTTP ingress.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("site.base_url", "https://newhaven.craigslist.org")
	v.SetDefault("site.search_path", "/search/cta")
	v.SetDefault("site.results_per_page", 120)
	v.SetDefault("site.has_pic", "1")
	v.SetDefault("site.min_auto_year", "2012")
	v.SetDefault("site.search_type", "T")
	v.SetDefault("crawler.max_pages_default", 3)
	v.SetDefault("crawler.user_agent", "UConn-OPIM-Student-Scraper/1.0 (educational use; contact instructor)")
	v.SetDefault("crawler.delay_seconds", 1.0)
	v.SetDefault("crawler.detail_delay_seconds", 1.0)
	v.SetDefault("crawler.timeout_seconds", 20)
	v.SetDefault("crawler.headless", false)
	v.SetDefault("crawler.headless_nav_timeout_seconds", 25)
	v.SetDefault("crawler.skip_existing_keys", true)
	v.SetDefault("storage.provider", "gcs")
	v.SetDefault("storage.prefix", "craigslist")
	v.SetDefault("db.runs_table", "runs")
	v.SetDefault("db.listings_table", "listings")
	v.SetDefault("extractor.timeout_seconds", 60)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Site.BaseURL == "" {
		return fmt.Errorf("site.base_url is required")
	}
	if c.Site.ResultsPerPage <= 0 {
		return fmt.Errorf("site.results_per_page must be > 0")
	}
	if c.Crawler.MaxPagesDefault <= 0 {
		return fmt.Errorf("crawler.max_pages_default must be > 0")
	}
	if c.Crawler.TimeoutSeconds <= 0 {
		return fmt.Errorf("crawler.timeout_seconds must be > 0")
	}
	if c.Storage.Provider == "gcs" && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage.provider is gcs")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	return nil
}

// FetchTimeout converts the crawler timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Crawler.TimeoutSeconds) * time.Second
}

// PageDelay is the politeness pause between search page fetches.
func (c Config) PageDelay() time.Duration {
	return time.Duration(c.Crawler.DelaySeconds * float64(time.Second))
}

// DetailDelay is the politeness pause after each detail fetch.
func (c Config) DetailDelay() time.Duration {
	return time.Duration(c.Crawler.DetailDelaySecs * float64(time.Second))
}
