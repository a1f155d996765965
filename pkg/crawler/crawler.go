package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/amosWeiskopf/geoscan/internal/models"
)

// topURLsLogged is how many prioritized URLs are logged per run
const topURLsLogged = 10

// skipExamplesLogged is how many example URLs are logged per skip reason
const skipExamplesLogged = 3

// Crawler orchestrates one site crawl: discovery, prioritization and bounded concurrent fetching
type Crawler struct {
	opts       Options
	discoverer *Discoverer
	fetcher    PageFetcher
	table      PriorityTable
	metrics    *Metrics
	logger     *zap.Logger
}

// Option customizes a Crawler
type Option func(*Crawler)

// WithFetcher replaces the HTTP page fetcher
func WithFetcher(f PageFetcher) Option {
	return func(c *Crawler) { c.fetcher = f }
}

// WithPriorityTable replaces the default URL priority table
func WithPriorityTable(t PriorityTable) Option {
	return func(c *Crawler) { c.table = t }
}

// WithMetrics attaches prometheus collectors
func WithMetrics(m *Metrics) Option {
	return func(c *Crawler) { c.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Crawler) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Crawler
func New(opts Options, options ...Option) *Crawler {
	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = 1
	}
	c := &Crawler{
		opts:   opts,
		table:  DefaultPriorityTable(),
		logger: zap.NewNop(),
	}
	for _, o := range options {
		o(c)
	}

	client := newHTTPClient(opts.RequestTimeout)
	c.discoverer = NewDiscoverer(opts, client, c.logger)
	if c.fetcher == nil {
		c.fetcher = NewFetcher(opts, client, c.metrics, c.logger)
	}
	return c
}

// ScrapeWebsite crawls the site at rootURL and fetches at most maxPages of its
// most relevant pages (the configured budget when maxPages <= 0). Per-page
// problems never fail the run; only an unusable root URL is an error.
func (c *Crawler) ScrapeWebsite(ctx context.Context, rootURL string, maxPages int) (*models.SiteAnalysis, error) {
	start := time.Now()

	root, err := url.Parse(rootURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if root.Host == "" || (root.Scheme != "http" && root.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rootURL)
	}
	if maxPages <= 0 {
		maxPages = c.opts.MaxPages
	}

	if c.opts.CrawlTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.CrawlTimeout)
		defer cancel()
	}

	runID := uuid.NewString()
	logger := c.logger.With(zap.String("run_id", runID), zap.String("domain", root.Host))
	logger.Info("Starting website scrape", zap.String("url", rootURL), zap.Int("max_pages", maxPages))

	state := newRunState()
	filter := newURLFilter(root.Hostname(), c.opts.BlockedDomains, state, logger)

	structure := c.discoverer.Discover(ctx, rootURL, filter)
	candidates := c.candidateURLs(rootURL, root.Host, structure, filter)
	c.metrics.setDiscovered(len(candidates))

	ranked := c.table.Rank(candidates)
	if len(ranked) > maxPages {
		ranked = ranked[:maxPages]
	}
	logTopURLs(logger, ranked)

	urls := make([]string, len(ranked))
	for i, r := range ranked {
		urls[i] = r.URL
	}
	logger.Info("Found URLs to scrape", zap.Int("count", len(urls)))

	records := c.fetchAll(ctx, urls, state, logger)

	analysis := &models.SiteAnalysis{
		RunID:            runID,
		Domain:           root.Host,
		RootDomain:       rootDomain(root.Hostname()),
		TotalPages:       len(urls),
		Pages:            []models.PageRecord{},
		SiteStructure:    structure,
		RobotsTxt:        structure.RobotsTxt,
		SitemapURLs:      structure.SitemapURLs,
		FailuresByReason: make(map[models.FailureReason]int),
	}
	for _, rec := range records {
		if rec.Success {
			analysis.Pages = append(analysis.Pages, rec)
			continue
		}
		analysis.FailuresByReason[rec.FailureReason]++
	}
	analysis.SuccessfulScrapes = len(analysis.Pages)
	analysis.FailedScrapes = len(records) - len(analysis.Pages)
	analysis.SkippedURLs = state.skippedByReason()
	for reason, skipped := range analysis.SkippedURLs {
		c.metrics.observeSkipped(reason, len(skipped))
	}
	analysis.CrawlDuration = time.Since(start)
	analysis.AnalyzedAt = time.Now()

	logger.Info("Scraping completed",
		zap.Int("successful", state.fetchedCount()),
		zap.Int("failed", analysis.FailedScrapes),
		zap.Int("skipped", state.skippedTotal()),
		zap.Duration("duration", analysis.CrawlDuration))
	logSkipped(logger, analysis.SkippedURLs)

	return analysis, nil
}

// candidateURLs unions the root, sitemap pages and crawled URLs, keeping
// first-seen order and only URLs on the root host
func (c *Crawler) candidateURLs(rootURL, host string, structure models.SiteStructure, filter *URLFilter) []string {
	target := stripWWW(strings.ToLower(host))
	seen := make(map[string]struct{})
	var out []string

	add := func(u string, filtered bool) {
		if _, dup := seen[u]; dup {
			return
		}
		seen[u] = struct{}{}
		parsed, err := url.Parse(u)
		if err != nil || stripWWW(strings.ToLower(parsed.Host)) != target {
			return
		}
		if !filtered && !filter.Allow(u) {
			return
		}
		out = append(out, u)
	}

	add(rootURL, false)
	for _, u := range structure.SitemapPages {
		add(u, false)
	}
	for _, u := range structure.CrawledURLs {
		add(u, true)
	}
	return out
}

// fetchAll fetches urls with at most MaxConcurrency in flight. Results keep
// the order of urls; a task that cannot start before the deadline is a failure.
func (c *Crawler) fetchAll(ctx context.Context, urls []string, state *runState, logger *zap.Logger) []models.PageRecord {
	records := make([]models.PageRecord, len(urls))
	sem := semaphore.NewWeighted(int64(c.opts.MaxConcurrency))

	var g errgroup.Group
	for i, u := range urls {
		i, u := i, u // per-iteration copies (go 1.21 loop semantics)
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				records[i] = models.FailedPage(u, models.ReasonDeadline, "Crawl deadline exceeded before fetch started")
				return nil
			}
			defer sem.Release(1)
			records[i] = c.fetchOne(ctx, u, state, logger)
			return nil
		})
	}
	_ = g.Wait()
	return records
}

func (c *Crawler) fetchOne(ctx context.Context, pageURL string, state *runState, logger *zap.Logger) (record models.PageRecord) {
	c.metrics.fetchStarted()
	defer c.metrics.fetchDone()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Fetch panicked", zap.String("url", pageURL), zap.Any("panic", r))
			record = models.FailedPage(pageURL, models.ReasonInternal, fmt.Sprintf("panic: %v", r))
		}
	}()

	record = c.fetcher.Fetch(ctx, pageURL)
	switch {
	case record.Success:
		state.markFetched(pageURL)
	case record.FailureReason == models.ReasonExternalRedirect:
		state.skip(SkipExternalRedirect, pageURL)
	}
	return record
}

func rootDomain(hostname string) string {
	d, err := publicsuffix.EffectiveTLDPlusOne(hostname)
	if err != nil {
		return hostname
	}
	return d
}

func logTopURLs(logger *zap.Logger, ranked []ScoredURL) {
	n := len(ranked)
	if n > topURLsLogged {
		n = topURLsLogged
	}
	for i := 0; i < n; i++ {
		logger.Info("Prioritized URL",
			zap.Int("rank", i+1),
			zap.String("url", ranked[i].URL),
			zap.Int("score", ranked[i].Score))
	}
}

func logSkipped(logger *zap.Logger, skipped map[string][]string) {
	for _, reason := range sortedReasons(skipped) {
		urls := skipped[reason]
		n := len(urls)
		if n > skipExamplesLogged {
			n = skipExamplesLogged
		}
		logger.Info("Skipped URLs",
			zap.String("reason", reason),
			zap.Int("count", len(urls)),
			zap.Strings("examples", urls[:n]))
	}
}
