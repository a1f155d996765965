package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrInvalidConfig is wrapped by every configuration validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// DefaultUserAgent is the desktop browser identity sent with every request
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultBlockedDomains are never crawled: shipping, social, payment, analytics, ad and CDN hosts
var DefaultBlockedDomains = []string{
	// Shipping and logistics
	"ups.com", "fedex.com", "usps.com", "dhl.com", "shippo.com",
	// Social media platforms
	"facebook.com", "instagram.com", "twitter.com", "linkedin.com",
	"youtube.com", "tiktok.com", "pinterest.com", "snapchat.com",
	// Payment processors
	"paypal.com", "stripe.com", "square.com", "shopify.com",
	// Analytics and tracking
	"google-analytics.com", "googletagmanager.com", "hotjar.com",
	"mixpanel.com", "segment.com", "amplitude.com",
	// Ad networks and widgets
	"googleadservices.com", "doubleclick.net", "adsystem.com",
	"amazon-adsystem.com", "googlesyndication.com",
	// Other non-content domains
	"cdnjs.cloudflare.com", "jsdelivr.net", "unpkg.com",
	"fonts.googleapis.com", "gravatar.com",
}

// Config holds all application configuration
type Config struct {
	// Crawler configuration
	Crawler CrawlerConfig `mapstructure:"crawler"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`

	// Metrics endpoint
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Path of the sector scoring configuration
	ScoringConfig string `mapstructure:"scoring_config"`
}

// CrawlerConfig holds crawler-specific configuration
type CrawlerConfig struct {
	MaxPages          int           `mapstructure:"max_pages"`
	MaxConcurrency    int           `mapstructure:"max_concurrency"`
	CrawlDepth        int           `mapstructure:"crawl_depth"`
	MaxDiscoveredURLs int           `mapstructure:"max_discovered_urls"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	CrawlTimeout      time.Duration `mapstructure:"crawl_timeout"`
	UserAgent         string        `mapstructure:"user_agent"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	RespectRobotsTxt  bool          `mapstructure:"respect_robots_txt"`
	SaveHTML          bool          `mapstructure:"save_html"`
	MaxHTMLBytes      int           `mapstructure:"max_html_bytes"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes"`
	BlockedDomains    []string      `mapstructure:"blocked_domains"`
	Retry             RetryConfig   `mapstructure:"retry"`
}

// RetryConfig controls the per-fetch retry policy
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // "json" or "console"
	OutputPath string `mapstructure:"output_path"`
}

// MetricsConfig controls the prometheus endpoint of the CLI
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.geoscan")
	}

	setDefaults(v)

	v.SetEnvPrefix("GEOSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not an error, we'll use defaults and env
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Default returns the configuration Load produces with no file and no environment
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	_ = v.Unmarshal(&config)
	return &config
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Crawler defaults
	v.SetDefault("crawler.max_pages", 100)
	v.SetDefault("crawler.max_concurrency", 5)
	v.SetDefault("crawler.crawl_depth", 3)
	v.SetDefault("crawler.max_discovered_urls", 500)
	v.SetDefault("crawler.request_timeout", "30s")
	v.SetDefault("crawler.crawl_timeout", "10m")
	v.SetDefault("crawler.user_agent", DefaultUserAgent)
	v.SetDefault("crawler.requests_per_second", 0)
	v.SetDefault("crawler.respect_robots_txt", true)
	v.SetDefault("crawler.save_html", true)
	v.SetDefault("crawler.max_html_bytes", 1<<20)
	v.SetDefault("crawler.max_body_bytes", 5<<20)
	v.SetDefault("crawler.blocked_domains", DefaultBlockedDomains)
	v.SetDefault("crawler.retry.max_attempts", 3)
	v.SetDefault("crawler.retry.base_delay", "4s")
	v.SetDefault("crawler.retry.max_delay", "10s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_path", "stdout")

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Crawler.MaxPages <= 0 {
		return fmt.Errorf("%w: crawler.max_pages must be positive", ErrInvalidConfig)
	}
	if c.Crawler.MaxConcurrency <= 0 {
		return fmt.Errorf("%w: crawler.max_concurrency must be positive", ErrInvalidConfig)
	}
	if c.Crawler.CrawlDepth < 0 {
		return fmt.Errorf("%w: crawler.crawl_depth must not be negative", ErrInvalidConfig)
	}
	if c.Crawler.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("%w: crawler.retry.max_attempts must be positive", ErrInvalidConfig)
	}
	if c.Crawler.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: crawler.max_body_bytes must be positive", ErrInvalidConfig)
	}
	if c.Crawler.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: crawler.requests_per_second must not be negative", ErrInvalidConfig)
	}
	return nil
}
