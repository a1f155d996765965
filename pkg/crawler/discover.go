package crawler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/amosWeiskopf/geoscan/internal/models"
)

// SkipRobotsDisallowed is recorded for links robots.txt forbids
const SkipRobotsDisallowed = "disallowed by robots.txt"

// maxDiscoveryBody caps robots.txt, sitemap and link-page downloads
const maxDiscoveryBody = 10 << 20

var (
	sitemapDirective = regexp.MustCompile(`(?im)^\s*sitemap:\s*(\S+)`)
	commonSitemaps   = []string{"/sitemap.xml", "/sitemap_index.xml", "/sitemap.txt"}
)

// Discoverer learns a site's structure: robots.txt, sitemaps and a bounded link crawl
type Discoverer struct {
	client        *http.Client
	userAgent     string
	depth         int
	maxURLs       int
	concurrency   int
	respectRobots bool
	logger        *zap.Logger
}

// NewDiscoverer creates a Discoverer. client may be nil.
func NewDiscoverer(opts Options, client *http.Client, logger *zap.Logger) *Discoverer {
	if client == nil {
		client = newHTTPClient(opts.RequestTimeout)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	concurrency := opts.MaxConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Discoverer{
		client:        client,
		userAgent:     opts.UserAgent,
		depth:         opts.CrawlDepth,
		maxURLs:       opts.MaxDiscoveredURLs,
		concurrency:   concurrency,
		respectRobots: opts.RespectRobotsTxt,
		logger:        logger,
	}
}

// Discover gathers robots.txt, sitemap URLs, sitemap pages and crawled URLs
// for rootURL. Network failures only shrink the result.
func (d *Discoverer) Discover(ctx context.Context, rootURL string, filter *URLFilter) models.SiteStructure {
	root, err := url.Parse(rootURL)
	if err != nil || root.Host == "" {
		return models.SiteStructure{}
	}
	structure := models.SiteStructure{Domain: root.Host}
	base := root.Scheme + "://" + root.Host

	var robots *robotstxt.RobotsData
	structure.RobotsTxt, robots = d.fetchRobots(ctx, base)
	group := d.robotsGroup(robots)
	structure.SitemapURLs = SitemapDirectives(structure.RobotsTxt)

	for _, path := range commonSitemaps {
		candidate := base + path
		if contains(structure.SitemapURLs, candidate) {
			continue
		}
		if d.probe(ctx, candidate) {
			structure.SitemapURLs = append(structure.SitemapURLs, candidate)
		}
	}

	visited := make(map[string]struct{})
	for _, sm := range structure.SitemapURLs {
		structure.SitemapPages = append(structure.SitemapPages, d.parseSitemap(ctx, sm, visited)...)
	}
	structure.SitemapPages = allowedByRobots(dedupe(structure.SitemapPages), group, filter)
	if d.maxURLs > 0 && len(structure.SitemapPages) > d.maxURLs {
		structure.SitemapPages = structure.SitemapPages[:d.maxURLs]
	}

	structure.CrawledURLs = d.crawlLinks(ctx, rootURL, filter, group)

	d.logger.Info("Discovered site structure",
		zap.String("domain", structure.Domain),
		zap.Int("sitemaps", len(structure.SitemapURLs)),
		zap.Int("sitemap_pages", len(structure.SitemapPages)),
		zap.Int("crawled_urls", len(structure.CrawledURLs)))
	return structure
}

// SitemapDirectives returns the Sitemap: entries of a robots.txt body, in order
func SitemapDirectives(robotsTxt string) []string {
	var out []string
	for _, m := range sitemapDirective.FindAllStringSubmatch(robotsTxt, -1) {
		if u := strings.TrimSpace(m[1]); u != "" && !contains(out, u) {
			out = append(out, u)
		}
	}
	return out
}

func (d *Discoverer) fetchRobots(ctx context.Context, base string) (string, *robotstxt.RobotsData) {
	body, status, err := d.get(ctx, base+"/robots.txt")
	if err != nil {
		d.logger.Warn("Could not fetch robots.txt", zap.String("url", base+"/robots.txt"), zap.Error(err))
		return "", nil
	}
	if status != http.StatusOK {
		return "", nil
	}
	text := string(body)
	robots, err := robotstxt.FromString(text)
	if err != nil {
		d.logger.Warn("Could not parse robots.txt", zap.Error(err))
		return text, nil
	}
	return text, robots
}

func (d *Discoverer) probe(ctx context.Context, target string) bool {
	_, status, err := d.get(ctx, target)
	return err == nil && status == http.StatusOK
}

type sitemapLoc struct {
	Loc string `xml:"loc"`
}

// sitemapDoc decodes both <sitemapindex> and <urlset> documents
type sitemapDoc struct {
	Sitemaps []sitemapLoc `xml:"sitemap"`
	URLs     []sitemapLoc `xml:"url"`
}

// parseSitemap returns the page URLs of a sitemap, following index entries.
// visited stops cyclic indexes.
func (d *Discoverer) parseSitemap(ctx context.Context, sitemapURL string, visited map[string]struct{}) []string {
	if _, seen := visited[sitemapURL]; seen {
		return nil
	}
	visited[sitemapURL] = struct{}{}

	body, status, err := d.get(ctx, sitemapURL)
	if err != nil || status != http.StatusOK {
		if err != nil {
			d.logger.Warn("Error fetching sitemap", zap.String("url", sitemapURL), zap.Error(err))
		}
		return nil
	}

	if strings.HasSuffix(strings.ToLower(sitemapURL), ".txt") || !looksLikeXML(body) {
		return parseTextSitemap(body)
	}

	nested, pages, err := ParseSitemapXML(body)
	if err != nil {
		d.logger.Warn("Error parsing sitemap", zap.String("url", sitemapURL), zap.Error(err))
		return nil
	}
	for _, child := range nested {
		pages = append(pages, d.parseSitemap(ctx, child, visited)...)
	}
	return pages
}

// ParseSitemapXML splits a sitemap document into child sitemap URLs and page URLs
func ParseSitemapXML(body []byte) (sitemaps, pages []string, err error) {
	var doc sitemapDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, nil, fmt.Errorf("invalid sitemap xml: %w", err)
	}
	for _, s := range doc.Sitemaps {
		if loc := strings.TrimSpace(s.Loc); loc != "" {
			sitemaps = append(sitemaps, loc)
		}
	}
	for _, u := range doc.URLs {
		if loc := strings.TrimSpace(u.Loc); loc != "" {
			pages = append(pages, loc)
		}
	}
	return sitemaps, pages, nil
}

func parseTextSitemap(body []byte) []string {
	var pages []string
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
			pages = append(pages, line)
		}
	}
	return pages
}

func looksLikeXML(body []byte) bool {
	return bytes.HasPrefix(bytes.TrimSpace(body), []byte("<"))
}

// robotsGroup picks the rules for our user agent; nil means everything is allowed
func (d *Discoverer) robotsGroup(robots *robotstxt.RobotsData) *robotstxt.Group {
	if !d.respectRobots || robots == nil {
		return nil
	}
	return robots.FindGroup(d.userAgent)
}

// allowedByRobots drops sitemap pages the robots group disallows
func allowedByRobots(pages []string, group *robotstxt.Group, filter *URLFilter) []string {
	if group == nil {
		return pages
	}
	kept := pages[:0]
	for _, page := range pages {
		if robotsAllow(group, page, filter) {
			kept = append(kept, page)
		}
	}
	return kept
}

// robotsAllow tests link against group and records a skip when it is disallowed
func robotsAllow(group *robotstxt.Group, link string, filter *URLFilter) bool {
	if group == nil || group.Test(requestPath(link)) {
		return true
	}
	if filter != nil && filter.state != nil {
		filter.state.skip(SkipRobotsDisallowed, link)
	}
	return false
}

// crawlLinks walks links breadth-first from rootURL. Pages on levels
// 0..depth-1 are fetched; every accepted link is returned once.
func (d *Discoverer) crawlLinks(ctx context.Context, rootURL string, filter *URLFilter, group *robotstxt.Group) []string {
	visited := map[string]struct{}{rootURL: {}}
	var found []string
	frontier := []string{rootURL}

	for level := 0; level < d.depth && len(frontier) > 0; level++ {
		if ctx.Err() != nil {
			break
		}
		results := make([][]string, len(frontier))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(d.concurrency)
		for i, page := range frontier {
			i, page := i, page // per-iteration copies (go 1.21 loop semantics)
			g.Go(func() error {
				results[i] = d.pageLinks(gctx, page)
				return nil
			})
		}
		_ = g.Wait()

		var next []string
	collect:
		for _, links := range results {
			for _, link := range links {
				if _, seen := visited[link]; seen {
					continue
				}
				visited[link] = struct{}{}
				if filter != nil && !filter.Allow(link) {
					continue
				}
				if !robotsAllow(group, link, filter) {
					continue
				}
				found = append(found, link)
				next = append(next, link)
				if d.maxURLs > 0 && len(found) >= d.maxURLs {
					break collect
				}
			}
		}
		if d.maxURLs > 0 && len(found) >= d.maxURLs {
			break
		}
		frontier = next
	}
	return found
}

// pageLinks returns the absolute link targets of one HTML page
func (d *Discoverer) pageLinks(ctx context.Context, pageURL string) []string {
	body, status, err := d.get(ctx, pageURL)
	if err != nil {
		d.logger.Warn("Error crawling page for links", zap.String("url", pageURL), zap.Error(err))
		return nil
	}
	if status != http.StatusOK {
		return nil
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		ref, err := url.Parse(strings.TrimSpace(s.AttrOr("href", "")))
		if err != nil {
			return
		}
		links = append(links, base.ResolveReference(ref).String())
	})
	return links
}

func (d *Discoverer) get(ctx context.Context, target string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, err
	}
	setRequestHeaders(req, d.userAgent)
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDiscoveryBody))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func requestPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "/"
	}
	if p := u.RequestURI(); p != "" {
		return p
	}
	return "/"
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func dedupe(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	out := list[:0]
	for _, v := range list {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
