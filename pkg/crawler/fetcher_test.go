package crawler

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/amosWeiskopf/geoscan/internal/models"
)

const productPage = `<!DOCTYPE html>
<html>
<head>
	<title>Mineral Sunscreen SPF 50</title>
	<meta name="description" content="Reef-safe zinc sunscreen">
</head>
<body>
	<h1>Mineral Sunscreen</h1>
	<p>Our mineral sunscreen uses 20% zinc oxide for broad spectrum protection.</p>
</body>
</html>`

func fetchServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/products/spf-50":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(productPage))
		case "/forbidden":
			w.WriteHeader(http.StatusForbidden)
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/boom":
			w.WriteHeader(http.StatusBadGateway)
		case "/teapot":
			w.WriteHeader(http.StatusTeapot)
		case "/data.json":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"ok":true}`))
		case "/big":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html><body>" + strings.Repeat("a", 4096) + "</body></html>"))
		case "/latin1":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html><head><title>Caf\xe9 cr\xe8me</title></head><body><p>Bonjour</p></body></html>"))
		case "/away":
			http.Redirect(w, r, "http://elsewhere.test/products/spf-50", http.StatusFound)
		default:
			http.NotFound(w, r)
		}
	}))
}

// pinnedClient dials addr for every host so redirects to other hostnames stay local
func pinnedClient(addr string) *http.Client {
	return &http.Client{Transport: &http.Transport{
		DialContext: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, addr)
		},
	}}
}

func TestFetcherFailureReasons(t *testing.T) {
	server := fetchServer()
	defer server.Close()

	opts := testOptions()
	opts.MaxBodyBytes = 1024
	f := NewFetcher(opts, pinnedClient(server.Listener.Addr().String()), nil, zap.NewNop())

	tests := []struct {
		path       string
		wantReason models.FailureReason
		wantError  string
	}{
		{"/forbidden", models.ReasonForbidden, "Access forbidden (403)"},
		{"/missing", models.ReasonNotFound, "Page not found (404)"},
		{"/boom", models.ReasonServerError, "Server error (502)"},
		{"/teapot", models.ReasonHTTPError, "HTTP 418"},
		{"/data.json", models.ReasonNonHTML, "Non-HTML content: application/json"},
		{"/big", models.ReasonTooLarge, "Page too large"},
		{"/away", models.ReasonExternalRedirect, "Redirected to external domain"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := f.Fetch(context.Background(), server.URL+tt.path)

			assert.False(t, rec.Success)
			assert.Equal(t, tt.wantReason, rec.FailureReason)
			assert.Equal(t, tt.wantError, rec.Error)
			assert.Equal(t, models.ContentUnknown, rec.ContentType)
			assert.Empty(t, rec.Title)
			assert.Empty(t, rec.Paragraphs)
			assert.Zero(t, rec.WordCount)
		})
	}
}

func TestFetcherExtractsPage(t *testing.T) {
	server := fetchServer()
	defer server.Close()

	opts := testOptions()
	opts.SaveHTML = true
	f := NewFetcher(opts, nil, nil, nil)

	rec := f.Fetch(context.Background(), server.URL+"/products/spf-50")

	require.True(t, rec.Success, rec.Error)
	assert.Equal(t, "Mineral Sunscreen SPF 50", rec.Title)
	assert.Equal(t, "Reef-safe zinc sunscreen", rec.MetaDescription)
	assert.Equal(t, []string{"Mineral Sunscreen"}, rec.Headings.Level(1))
	assert.Equal(t, models.ContentProductPage, rec.ContentType)
	assert.Positive(t, rec.WordCount)
	assert.Equal(t, 1, rec.ReadingTime)
	assert.Equal(t, productPage, rec.RawHTML)
	assert.Empty(t, rec.Error)
}

func TestFetcherDecodesLatin1(t *testing.T) {
	server := fetchServer()
	defer server.Close()

	rec := NewFetcher(testOptions(), nil, nil, nil).Fetch(context.Background(), server.URL+"/latin1")

	require.True(t, rec.Success, rec.Error)
	assert.Equal(t, "Café crème", rec.Title)
}

func TestFetcherRetriesNetworkErrors(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				conn.Close()
			}
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(productPage))
	}))
	defer server.Close()

	opts := testOptions()
	opts.Retry = RetryPolicy{MaxAttempts: 3, Sleep: noSleep}
	rec := NewFetcher(opts, nil, nil, nil).Fetch(context.Background(), server.URL+"/")

	assert.True(t, rec.Success, rec.Error)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&hits), int32(2))
}

func TestFetcherNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	target := server.URL + "/"
	server.Close()

	opts := testOptions()
	opts.Retry = RetryPolicy{MaxAttempts: 2, Sleep: noSleep}
	rec := NewFetcher(opts, nil, nil, nil).Fetch(context.Background(), target)

	assert.False(t, rec.Success)
	assert.Equal(t, models.ReasonNetwork, rec.FailureReason)
	assert.NotEmpty(t, rec.Error)
}

func TestFetcherCanceledContext(t *testing.T) {
	server := fetchServer()
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := NewFetcher(testOptions(), nil, nil, nil).Fetch(ctx, server.URL+"/products/spf-50")

	assert.False(t, rec.Success)
	assert.Equal(t, models.ReasonDeadline, rec.FailureReason)
}

func TestFetcherMetrics(t *testing.T) {
	server := fetchServer()
	defer server.Close()

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	f := NewFetcher(testOptions(), nil, m, nil)

	f.Fetch(context.Background(), server.URL+"/products/spf-50")
	f.Fetch(context.Background(), server.URL+"/missing")
	f.Fetch(context.Background(), server.URL+"/missing")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetches.WithLabelValues(outcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.fetches.WithLabelValues(string(models.ReasonNotFound))))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.statusCodes.WithLabelValues("404")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.fetchDuration))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observeFetch(models.PageRecord{}, 0)
		m.observeStatus(200)
		m.observeRetry()
		m.observeSkipped(SkipBlockedDomain, 1)
		m.setDiscovered(3)
		m.fetchStarted()
		m.fetchDone()
	})
}

func TestDecodeBody(t *testing.T) {
	s, err := decodeBody([]byte("plain ascii"))
	require.NoError(t, err)
	assert.Equal(t, "plain ascii", s)

	s, err = decodeBody([]byte{'n', 0xe4, 'h'})
	require.NoError(t, err)
	assert.Equal(t, "näh", s)
}
