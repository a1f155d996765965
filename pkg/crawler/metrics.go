package crawler

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/amosWeiskopf/geoscan/internal/models"
)

const (
	metricsLabelOutcome = "outcome"
	metricsLabelStatus  = "status"
	metricsLabelReason  = "reason"

	outcomeSuccess = "success"
)

// Metrics are the prometheus collectors of the crawler. A nil *Metrics is valid and records nothing.
type Metrics struct {
	fetches       *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	statusCodes   *prometheus.CounterVec
	retries       prometheus.Counter
	skipped       *prometheus.CounterVec
	inFlight      prometheus.Gauge
	discovered    prometheus.Gauge
}

// NewMetrics creates the crawler collectors and registers them with reg when it is not nil
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geoscan_fetches_total",
			Help: "Page fetches by outcome (success or failure reason).",
		}, []string{metricsLabelOutcome}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "geoscan_fetch_duration_seconds",
			Help:    "Page fetch duration including retries and body read.",
			Buckets: prometheus.DefBuckets,
		}),
		statusCodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geoscan_http_status_codes_total",
			Help: "HTTP status codes of page fetches.",
		}, []string{metricsLabelStatus}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "geoscan_fetch_retries_total",
			Help: "Retried fetch attempts.",
		}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geoscan_skipped_urls_total",
			Help: "URLs skipped by reason.",
		}, []string{metricsLabelReason}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "geoscan_fetches_in_flight",
			Help: "Fetches currently holding a concurrency slot.",
		}),
		discovered: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "geoscan_discovered_urls",
			Help: "Candidate URLs found by the last discovery.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.fetches,
			m.fetchDuration,
			m.statusCodes,
			m.retries,
			m.skipped,
			m.inFlight,
			m.discovered,
		)
	}
	return m
}

func (m *Metrics) observeFetch(record models.PageRecord, d time.Duration) {
	if m == nil {
		return
	}
	outcome := outcomeSuccess
	if !record.Success {
		outcome = string(record.FailureReason)
	}
	m.fetches.WithLabelValues(outcome).Inc()
	m.fetchDuration.Observe(d.Seconds())
}

func (m *Metrics) observeStatus(code int) {
	if m == nil {
		return
	}
	m.statusCodes.WithLabelValues(strconv.Itoa(code)).Inc()
}

func (m *Metrics) observeRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *Metrics) observeSkipped(reason string, n int) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(reason).Add(float64(n))
}

func (m *Metrics) setDiscovered(n int) {
	if m == nil {
		return
	}
	m.discovered.Set(float64(n))
}

func (m *Metrics) fetchStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Metrics) fetchDone() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}
