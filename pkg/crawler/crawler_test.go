package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amosWeiskopf/geoscan/internal/models"
)

func noSleep(context.Context, time.Duration) error { return nil }

func testOptions() Options {
	return Options{
		MaxPages:          100,
		MaxConcurrency:    2,
		CrawlDepth:        2,
		MaxDiscoveredURLs: 50,
		RequestTimeout:    5 * time.Second,
		RespectRobotsTxt:  true,
		MaxBodyBytes:      5 << 20,
		BlockedDomains:    []string{"facebook.com"},
		Retry:             RetryPolicy{MaxAttempts: 2, Sleep: noSleep},
	}
}

type fetcherFunc func(ctx context.Context, pageURL string) models.PageRecord

func (f fetcherFunc) Fetch(ctx context.Context, pageURL string) models.PageRecord {
	return f(ctx, pageURL)
}

func successRecord(pageURL string) models.PageRecord {
	return models.PageRecord{URL: pageURL, Success: true, ContentType: models.ContentGeneralPage}
}

// linkSite serves a root page linking to n pages; everything else is 404
func linkSite(n int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		var b strings.Builder
		b.WriteString("<html><body>")
		for i := 0; i < n; i++ {
			fmt.Fprintf(&b, `<a href="/page-%d">Page %d</a>`, i, i)
		}
		b.WriteString("</body></html>")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(b.String()))
	}))
}

func TestScrapeWebsiteInvalidRoot(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{name: "empty URL", url: ""},
		{name: "no scheme", url: "not-a-url"},
		{name: "unsupported scheme", url: "ftp://example.com"},
	}

	c := New(testOptions())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis, err := c.ScrapeWebsite(context.Background(), tt.url, 10)
			assert.ErrorIs(t, err, ErrInvalidURL)
			assert.Nil(t, analysis)
		})
	}
}

func TestScrapeWebsiteEmptyCandidateSet(t *testing.T) {
	server := linkSite(0)
	defer server.Close()

	opts := testOptions()
	opts.BlockedDomains = []string{"127.0.0.1"}

	analysis, err := New(opts).ScrapeWebsite(context.Background(), server.URL, 10)
	require.NoError(t, err)
	require.NotNil(t, analysis)

	assert.Equal(t, 0, analysis.TotalPages)
	assert.Equal(t, 0, analysis.SuccessfulScrapes)
	assert.Equal(t, 0, analysis.FailedScrapes)
	assert.Empty(t, analysis.Pages)
	assert.Contains(t, analysis.SkippedURLs[SkipBlockedDomain], server.URL)
}

func TestScrapeWebsiteSite(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		html := func(body string) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte("<html><head><title>Page</title></head><body>" + body + "</body></html>"))
		}
		switch r.URL.Path {
		case "/robots.txt":
			fmt.Fprintf(w, "User-agent: *\nAllow: /\nSitemap: %s/sitemap.xml\n", server.URL)
		case "/sitemap.xml":
			fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9"><url><loc>%s/faq</loc></url></urlset>`, server.URL)
		case "/":
			html(`<a href="/products/sunscreen">Sunscreen</a>
				<a href="/about">About</a>
				<a href="/missing">Gone</a>
				<a href="https://facebook.com/brand">Facebook</a>
				<a href="https://other.example/page">Elsewhere</a>`)
		case "/products/sunscreen":
			html(`<h1>Mineral Sunscreen</h1><p>Zinc oxide protection.</p>`)
		case "/about":
			html(`<h1>About us</h1><p>Our story.</p>`)
		case "/faq":
			html(`<h1>FAQ</h1><p>Questions.</p>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	analysis, err := New(testOptions()).ScrapeWebsite(context.Background(), server.URL, 10)
	require.NoError(t, err)

	assert.NotEmpty(t, analysis.RunID)
	assert.Equal(t, strings.TrimPrefix(server.URL, "http://"), analysis.Domain)
	assert.Equal(t, 5, analysis.TotalPages)
	assert.Equal(t, 4, analysis.SuccessfulScrapes)
	assert.Equal(t, 1, analysis.FailedScrapes)
	assert.Equal(t, 1, analysis.FailuresByReason[models.ReasonNotFound])
	assert.Contains(t, analysis.RobotsTxt, "Sitemap:")
	assert.Equal(t, []string{server.URL + "/sitemap.xml"}, analysis.SitemapURLs)

	// successes keep prioritized order
	require.Len(t, analysis.Pages, 4)
	assert.Equal(t, server.URL+"/products/sunscreen", analysis.Pages[0].URL)
	assert.Equal(t, server.URL+"/about", analysis.Pages[1].URL)
	assert.Equal(t, server.URL+"/faq", analysis.Pages[2].URL)
	assert.Equal(t, server.URL, analysis.Pages[3].URL)
	assert.Equal(t, models.ContentProductPage, analysis.Pages[0].ContentType)
	for _, p := range analysis.Pages {
		assert.True(t, p.Success)
	}

	assert.Equal(t, []string{"https://facebook.com/brand"}, analysis.SkippedURLs[SkipBlockedDomain])
	assert.Equal(t, []string{"https://other.example/page"}, analysis.SkippedURLs[SkipExternalDomain])
}

func TestScrapeWebsiteConcurrencyCap(t *testing.T) {
	server := linkSite(10)
	defer server.Close()

	var inFlight, maxInFlight int32
	fetcher := fetcherFunc(func(ctx context.Context, pageURL string) models.PageRecord {
		n := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			max := atomic.LoadInt32(&maxInFlight)
			if n <= max || atomic.CompareAndSwapInt32(&maxInFlight, max, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return successRecord(pageURL)
	})

	opts := testOptions()
	opts.CrawlDepth = 1
	analysis, err := New(opts, WithFetcher(fetcher)).ScrapeWebsite(context.Background(), server.URL, 8)
	require.NoError(t, err)

	assert.Equal(t, 8, analysis.TotalPages)
	assert.Equal(t, 8, analysis.SuccessfulScrapes)
	assert.LessOrEqual(t, atomic.LoadInt32(&maxInFlight), int32(opts.MaxConcurrency))

	want := DefaultPriorityTable().Prioritize(append([]string{server.URL}, pageURLs(server.URL, 10)...), 8)
	got := make([]string, len(analysis.Pages))
	for i, p := range analysis.Pages {
		got[i] = p.URL
	}
	assert.Equal(t, want, got)
}

func pageURLs(base string, n int) []string {
	urls := make([]string, n)
	for i := range urls {
		urls[i] = fmt.Sprintf("%s/page-%d", base, i)
	}
	return urls
}

func TestScrapeWebsiteDeadline(t *testing.T) {
	server := linkSite(2)
	defer server.Close()

	fetcher := fetcherFunc(func(ctx context.Context, pageURL string) models.PageRecord {
		<-ctx.Done()
		return models.FailedPage(pageURL, models.ReasonDeadline, ctx.Err().Error())
	})

	opts := testOptions()
	opts.CrawlDepth = 1
	opts.MaxConcurrency = 1
	opts.CrawlTimeout = 300 * time.Millisecond

	done := make(chan struct{})
	var analysis *models.SiteAnalysis
	var err error
	go func() {
		analysis, err = New(opts, WithFetcher(fetcher)).ScrapeWebsite(context.Background(), server.URL, 10)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ScrapeWebsite did not return after the crawl deadline")
	}
	require.NoError(t, err)
	assert.Equal(t, 3, analysis.TotalPages)
	assert.Equal(t, 0, analysis.SuccessfulScrapes)
	assert.Equal(t, 3, analysis.FailedScrapes)
	assert.Equal(t, 3, analysis.FailuresByReason[models.ReasonDeadline])
}

func TestScrapeWebsitePanickingFetchDoesNotAbortSiblings(t *testing.T) {
	server := linkSite(3)
	defer server.Close()

	fetcher := fetcherFunc(func(ctx context.Context, pageURL string) models.PageRecord {
		if strings.HasSuffix(pageURL, "/page-1") {
			panic("boom")
		}
		return successRecord(pageURL)
	})

	opts := testOptions()
	opts.CrawlDepth = 1
	analysis, err := New(opts, WithFetcher(fetcher)).ScrapeWebsite(context.Background(), server.URL, 10)
	require.NoError(t, err)

	assert.Equal(t, 4, analysis.TotalPages)
	assert.Equal(t, 3, analysis.SuccessfulScrapes)
	assert.Equal(t, 1, analysis.FailedScrapes)
	assert.Equal(t, 1, analysis.FailuresByReason[models.ReasonInternal])
}

func TestRootDomain(t *testing.T) {
	assert.Equal(t, "example.co.uk", rootDomain("shop.example.co.uk"))
	assert.Equal(t, "example.com", rootDomain("www.example.com"))
}
