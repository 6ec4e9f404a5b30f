// Package metrics exposes Prometheus metrics for email delivery and digest runs.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "signalist"

// UserCounter reports the number of registered users
type UserCounter interface {
	Count(ctx context.Context) (int, error)
}

// Metrics holds the collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	emails      *prometheus.CounterVec
	digestRuns  *prometheus.CounterVec
	newsErrors  prometheus.Counter
	cacheEvict  *prometheus.CounterVec
	digestTime  prometheus.Histogram
	usersGauge  prometheus.Gauge
	userCounter UserCounter
}

// New creates the collectors and registers them
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_total",
			Help:      "Email send attempts by kind and status",
		}, []string{"kind", "status"}),
		digestRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "digest_runs_total",
			Help:      "Daily digest runs by result",
		}, []string{"result"}),
		newsErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "news_fetch_errors_total",
			Help:      "Per-user news fetches that degraded to an empty list",
		}),
		cacheEvict: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "news_cache_evicted_total",
			Help:      "Expired news cache rows removed, by table",
		}, []string{"table"}),
		digestTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "digest_duration_seconds",
			Help:      "Wall time of a full digest run",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		usersGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "users",
			Help:      "Registered users",
		}),
	}

	m.registry.MustRegister(m.emails, m.digestRuns, m.newsErrors, m.cacheEvict, m.digestTime, m.usersGauge)
	return m
}

// WithUserCounter makes the users gauge refresh on every scrape
func (m *Metrics) WithUserCounter(c UserCounter) *Metrics {
	m.userCounter = c
	return m
}

// EmailSent counts a send attempt
func (m *Metrics) EmailSent(kind string, err error) {
	if m == nil {
		return
	}
	status := "sent"
	if err != nil {
		status = "failed"
	}
	m.emails.WithLabelValues(kind, status).Inc()
}

// NewsFetchFailed counts a degraded news fetch
func (m *Metrics) NewsFetchFailed() {
	if m == nil {
		return
	}
	m.newsErrors.Inc()
}

// CacheEvicted counts expired cache rows removed from table
func (m *Metrics) CacheEvicted(table string, n int64) {
	if m == nil {
		return
	}
	m.cacheEvict.WithLabelValues(table).Add(float64(n))
}

// DigestRun records the outcome and duration of a digest run
func (m *Metrics) DigestRun(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.digestRuns.WithLabelValues(result).Inc()
	m.digestTime.Observe(elapsed.Seconds())
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterRoutes mounts GET /metrics
func (m *Metrics) RegisterRoutes(r chi.Router) {
	r.Get("/metrics", m.handleMetrics)
}

func (m *Metrics) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if m.userCounter != nil {
		n, err := m.userCounter.Count(r.Context())
		if err != nil {
			http.Error(w, "Failed to count users", http.StatusInternalServerError)
			return
		}
		m.usersGauge.Set(float64(n))
	}

	promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}
