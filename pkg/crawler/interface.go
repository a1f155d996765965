package crawler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/amosWeiskopf/geoscan/internal/config"
	"github.com/amosWeiskopf/geoscan/internal/models"
)

// ErrInvalidURL is returned when the root URL cannot be crawled
var ErrInvalidURL = errors.New("invalid root url")

// PageFetcher fetches a single URL into a PageRecord.
// Per-page problems are reported on the record, never as errors.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) models.PageRecord
}

// Options contains configuration for the crawler
type Options struct {
	MaxPages          int           // Default page budget of a run
	MaxConcurrency    int           // Simultaneous page fetches
	CrawlDepth        int           // Link discovery depth
	MaxDiscoveredURLs int           // Cap on URLs found by link discovery
	RequestTimeout    time.Duration // Per request
	CrawlTimeout      time.Duration // Whole run, 0 for none
	UserAgent         string
	RequestsPerSecond float64 // 0 disables rate limiting
	RespectRobotsTxt  bool
	SaveHTML          bool
	MaxHTMLBytes      int
	MaxBodyBytes      int64
	BlockedDomains    []string
	Retry             RetryPolicy
}

// OptionsFromConfig maps the crawler configuration onto Options
func OptionsFromConfig(cfg config.CrawlerConfig) Options {
	return Options{
		MaxPages:          cfg.MaxPages,
		MaxConcurrency:    cfg.MaxConcurrency,
		CrawlDepth:        cfg.CrawlDepth,
		MaxDiscoveredURLs: cfg.MaxDiscoveredURLs,
		RequestTimeout:    cfg.RequestTimeout,
		CrawlTimeout:      cfg.CrawlTimeout,
		UserAgent:         cfg.UserAgent,
		RequestsPerSecond: cfg.RequestsPerSecond,
		RespectRobotsTxt:  cfg.RespectRobotsTxt,
		SaveHTML:          cfg.SaveHTML,
		MaxHTMLBytes:      cfg.MaxHTMLBytes,
		MaxBodyBytes:      cfg.MaxBodyBytes,
		BlockedDomains:    cfg.BlockedDomains,
		Retry:             NewRetryPolicy(cfg.Retry),
	}
}

// DefaultOptions returns Options built from the default configuration
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default().Crawler)
}

// newHTTPClient builds the client shared by discovery and fetching.
// It keeps no cookies between requests.
func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     30 * time.Second,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

func setRequestHeaders(req *http.Request, userAgent string) {
	if userAgent == "" {
		userAgent = config.DefaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
}
