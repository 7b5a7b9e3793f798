package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and
// the quiz engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	sessionsStarted *prometheus.CounterVec
	sessionsDone    *prometheus.CounterVec
	submissions     *prometheus.CounterVec
	pageReads       *prometheus.HistogramVec
	storageLatency  *prometheus.HistogramVec
}

// NewMetricsService registers the collectors on a private registry.
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

	sessionsStarted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quiz_sessions_started_total",
		Help: "Quiz sessions opened, by mode",
	}, []string{"mode"})

	sessionsDone := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quiz_sessions_completed_total",
		Help: "Quiz sessions finalized, by mode",
	}, []string{"mode"})

	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "score_submissions_total",
		Help: "Result submissions by kind and outcome",
	}, []string{"kind", "outcome"})

	pageReads := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "leaderboard_page_read_seconds",
		Help:    "Duration of paged leaderboard and history reads",
		Buckets: prometheus.DefBuckets,
	}, []string{"collection"})

	storageLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "device_storage_op_seconds",
		Help:    "Latency of device storage operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, sessionsStarted, sessionsDone, submissions, pageReads, storageLatency, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		sessionsStarted: sessionsStarted,
		sessionsDone:    sessionsDone,
		submissions:     submissions,
		pageReads:       pageReads,
		storageLatency:  storageLatency,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordSessionStarted counts a newly opened quiz session.
func (m *MetricsService) RecordSessionStarted(mode string) {
	if m == nil {
		return
	}
	m.sessionsStarted.WithLabelValues(mode).Inc()
}

// RecordSessionCompleted counts a finalized quiz session.
func (m *MetricsService) RecordSessionCompleted(mode string) {
	if m == nil {
		return
	}
	m.sessionsDone.WithLabelValues(mode).Inc()
}

// RecordSubmission counts one result submission outcome.
func (m *MetricsService) RecordSubmission(kind string, accepted bool) {
	if m == nil {
		return
	}
	outcome := "rejected"
	if accepted {
		outcome = "accepted"
	}
	m.submissions.WithLabelValues(kind, outcome).Inc()
}

// ObservePageRead records the duration of one paged read.
func (m *MetricsService) ObservePageRead(collection string, duration time.Duration) {
	if m == nil {
		return
	}
	m.pageReads.WithLabelValues(collection).Observe(duration.Seconds())
}

// ObserveStorageOp records the latency of one device storage operation.
func (m *MetricsService) ObserveStorageOp(op string, duration time.Duration) {
	if m == nil {
		return
	}
	m.storageLatency.WithLabelValues(op).Observe(duration.Seconds())
}
