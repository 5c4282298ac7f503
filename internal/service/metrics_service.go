package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/mooc-credit-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	cacheLatency      prometheus.Observer
	bundleTransitions *prometheus.CounterVec
	enrollments       *prometheus.CounterVec
	notifications     *prometheus.CounterVec
	mailDeliveries    *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests by caller role",
	}, []string{"method", "path", "status", "role"})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"result"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	bundleTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bundle_transitions_total",
		Help: "Bundle lifecycle transitions by target status and outcome",
	}, []string{"status", "outcome"})

	enrollments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollments_total",
		Help: "Enrollment admissions by decision",
	}, []string{"decision"})

	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_total",
		Help: "Notification dispatch outcomes",
	}, []string{"outcome"})

	mailDeliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mail_deliveries_total",
		Help: "Mail worker delivery outcomes",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLookups, cacheLatency, bundleTransitions, enrollments, notifications, mailDeliveries, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLookups:      cacheLookups,
		cacheLatency:      cacheLatency,
		bundleTransitions: bundleTransitions,
		enrollments:       enrollments,
		notifications:     notifications,
		mailDeliveries:    mailDeliveries,
	}
}

// Registry exposes the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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

// ObserveHTTPRequest records request metrics. role is the authenticated
// caller's role, empty for public routes.
func (m *MetricsService) ObserveHTTPRequest(method, path, role string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if role == "" {
		role = "anonymous"
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus, role).Inc()
}

// RecordCacheOperation records a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// RecordBundleTransition counts a lifecycle transition attempt towards status.
func (m *MetricsService) RecordBundleTransition(status models.BundleStatus, err error) {
	if m == nil {
		return
	}
	m.bundleTransitions.WithLabelValues(string(status), outcome(err)).Inc()
}

// RecordEnrollment counts an admission decision.
func (m *MetricsService) RecordEnrollment(waiting bool) {
	if m == nil {
		return
	}
	decision := "admitted"
	if waiting {
		decision = "waiting"
	}
	m.enrollments.WithLabelValues(decision).Inc()
}

// RecordNotification counts a dispatcher outcome such as queued, dropped, published or failed.
func (m *MetricsService) RecordNotification(result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(result).Inc()
}

// RecordMailDelivery counts a worker delivery attempt.
func (m *MetricsService) RecordMailDelivery(err error) {
	if m == nil {
		return
	}
	m.mailDeliveries.WithLabelValues(outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
