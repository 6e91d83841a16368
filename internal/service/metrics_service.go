package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the admission
// pipeline. All recording methods are nil-receiver safe so instrumentation can
// be omitted in tests.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	uniquenessLookups   *prometheus.CounterVec
	submissions         *prometheus.CounterVec
	attemptsOpened      prometheus.Counter
	paymentsCompleted   prometheus.Counter
	conflictingComplete prometheus.Counter
	receiptsRendered    prometheus.Counter
}

// NewMetricsService registers the service's Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	uniquenessLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "uniqueness_lookups_total",
		Help: "Directory availability lookups by field and outcome",
	}, []string{"field", "outcome"})

	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registration_submissions_total",
		Help: "Registration submissions by outcome",
	}, []string{"outcome"})

	attemptsOpened := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_attempts_opened_total",
		Help: "Checkout sessions opened",
	})

	paymentsCompleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payments_completed_total",
		Help: "First-time payment completions",
	})

	conflictingComplete := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_completion_conflicts_total",
		Help: "Completion calls rejected because a different order id already won",
	})

	receiptsRendered := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "receipts_rendered_total",
		Help: "Receipt documents rendered",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, uniquenessLookups, submissions,
		attemptsOpened, paymentsCompleted, conflictingComplete, receiptsRendered, goroutines)

	return &MetricsService{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		uniquenessLookups:   uniquenessLookups,
		submissions:         submissions,
		attemptsOpened:      attemptsOpened,
		paymentsCompleted:   paymentsCompleted,
		conflictingComplete: conflictingComplete,
		receiptsRendered:    receiptsRendered,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records per-route request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordUniquenessLookup records one availability lookup outcome
// (available, taken or error).
func (m *MetricsService) RecordUniquenessLookup(field, outcome string) {
	if m == nil {
		return
	}
	m.uniquenessLookups.WithLabelValues(field, outcome).Inc()
}

// RecordSubmission records a submission outcome (created, duplicate or error).
func (m *MetricsService) RecordSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

// RecordAttemptOpened counts an opened checkout session.
func (m *MetricsService) RecordAttemptOpened() {
	if m == nil {
		return
	}
	m.attemptsOpened.Inc()
}

// RecordPaymentCompleted counts a first-time completion.
func (m *MetricsService) RecordPaymentCompleted() {
	if m == nil {
		return
	}
	m.paymentsCompleted.Inc()
}

// RecordConflictingCompletion counts a rejected conflicting completion.
func (m *MetricsService) RecordConflictingCompletion() {
	if m == nil {
		return
	}
	m.conflictingComplete.Inc()
}

// RecordReceiptRendered counts a rendered receipt document.
func (m *MetricsService) RecordReceiptRendered() {
	if m == nil {
		return
	}
	m.receiptsRendered.Inc()
}
