package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/time/rate"

	"github.com/amosWeiskopf/geoscan/internal/models"
	"github.com/amosWeiskopf/geoscan/pkg/extractor"
)

// defaultMaxBodyBytes is the body size ceiling when none is configured
const defaultMaxBodyBytes = 5 << 20

// Fetcher downloads single pages and turns them into PageRecords
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBody   int64
	retry     RetryPolicy
	limiter   *rate.Limiter
	extractor *extractor.Extractor
	metrics   *Metrics
	logger    *zap.Logger
}

// NewFetcher creates a Fetcher. client may be nil.
func NewFetcher(opts Options, client *http.Client, metrics *Metrics, logger *zap.Logger) *Fetcher {
	if client == nil {
		client = newHTTPClient(opts.RequestTimeout)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	f := &Fetcher{
		client:    client,
		userAgent: opts.UserAgent,
		maxBody:   maxBody,
		retry:     opts.Retry,
		extractor: extractor.New(extractor.Options{SaveHTML: opts.SaveHTML, MaxHTMLBytes: opts.MaxHTMLBytes}),
		metrics:   metrics,
		logger:    logger,
	}
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return f
}

// Fetch downloads pageURL with retries. It always returns a record: failures
// carry a FailureReason and an error message.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) models.PageRecord {
	start := time.Now()
	logger := f.logger.With(zap.String("url", pageURL))

	policy := f.retry
	policy.OnRetry = func(attempt int, err error) {
		f.metrics.observeRetry()
		logger.Debug("Retrying fetch", zap.Int("attempt", attempt), zap.Error(err))
	}

	var record models.PageRecord
	err := policy.Do(ctx, func(ctx context.Context) error {
		rec, err := f.fetchOnce(ctx, pageURL)
		if err != nil {
			return err
		}
		record = rec
		return nil
	})
	if err != nil {
		reason := models.ReasonNetwork
		if ctx.Err() != nil {
			reason = models.ReasonDeadline
		}
		record = models.FailedPage(pageURL, reason, err.Error())
	}

	if !record.Success {
		logger.Warn("Fetch failed",
			zap.String("reason", string(record.FailureReason)),
			zap.String("error", record.Error))
	}
	f.metrics.observeFetch(record, time.Since(start))
	return record
}

// fetchOnce performs one attempt. Only transport problems are returned as
// errors; HTTP and content-policy failures come back as failed records.
func (f *Fetcher) fetchOnce(ctx context.Context, pageURL string) (models.PageRecord, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return models.PageRecord{}, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return models.PageRecord{}, Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	setRequestHeaders(req, f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return models.PageRecord{}, err
	}
	defer resp.Body.Close()

	f.metrics.observeStatus(resp.StatusCode)
	if resp.StatusCode >= http.StatusBadRequest {
		return statusFailure(pageURL, resp.StatusCode), nil
	}

	if finalHost := resp.Request.URL.Hostname(); !strings.EqualFold(finalHost, req.URL.Hostname()) {
		f.logger.Warn("External redirect detected",
			zap.String("url", pageURL),
			zap.String("location", resp.Request.URL.String()))
		return models.FailedPage(pageURL, models.ReasonExternalRedirect, "Redirected to external domain"), nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return models.PageRecord{}, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(body)) > f.maxBody {
		return models.FailedPage(pageURL, models.ReasonTooLarge, "Page too large"), nil
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !isHTMLContentType(contentType) {
		return models.FailedPage(pageURL, models.ReasonNonHTML, "Non-HTML content: "+contentType), nil
	}

	html, err := decodeBody(body)
	if err != nil {
		return models.PageRecord{}, Permanent(err)
	}
	return f.extractor.Extract(pageURL, html, resp.Header), nil
}

func statusFailure(pageURL string, code int) models.PageRecord {
	switch {
	case code == http.StatusForbidden:
		return models.FailedPage(pageURL, models.ReasonForbidden, "Access forbidden (403)")
	case code == http.StatusNotFound:
		return models.FailedPage(pageURL, models.ReasonNotFound, "Page not found (404)")
	case code >= http.StatusInternalServerError:
		return models.FailedPage(pageURL, models.ReasonServerError, fmt.Sprintf("Server error (%d)", code))
	default:
		return models.FailedPage(pageURL, models.ReasonHTTPError, fmt.Sprintf("HTTP %d", code))
	}
}

func isHTMLContentType(contentType string) bool {
	return strings.Contains(contentType, "text/html") || strings.Contains(contentType, "application/xhtml+xml")
}

// decodeBody returns body as text, reading it as ISO-8859-1 when it is not valid UTF-8
func decodeBody(body []byte) (string, error) {
	if utf8.Valid(body) {
		return string(body), nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(body)
	if err != nil {
		return "", errors.Join(errors.New("failed to decode body"), err)
	}
	return string(decoded), nil
}
