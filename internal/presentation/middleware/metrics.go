package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bimakw/volume-tracker/internal/reconcile"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// Metrics returns a middleware that collects Prometheus metrics
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			httpRequestsInFlight.Inc()
			defer httpRequestsInFlight.Dec()

			wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.status)
			path := normalizePath(r)

			httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
		})
	}
}

// normalizePath labels a request by its matched chi route so token ids and
// symbols do not explode cardinality
func normalizePath(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// VolumeUpdateMetrics holds Prometheus metrics for the daily volume update
type VolumeUpdateMetrics struct {
	TokensUpdated prometheus.Counter
	TokensFailed  prometheus.Counter
	TokensSkipped prometheus.Counter
	RunsTotal     prometheus.Counter
	RunDuration   prometheus.Histogram
	LastRun       prometheus.Gauge
}

// NewVolumeUpdateMetrics registers the daily update metrics with reg
func NewVolumeUpdateMetrics(reg prometheus.Registerer) *VolumeUpdateMetrics {
	factory := promauto.With(reg)
	return &VolumeUpdateMetrics{
		TokensUpdated: factory.NewCounter(prometheus.CounterOpts{
			Name: "volume_update_tokens_updated_total",
			Help: "Total number of tokens updated by the daily volume update",
		}),
		TokensFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "volume_update_tokens_failed_total",
			Help: "Total number of tokens the daily volume update failed to update",
		}),
		TokensSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "volume_update_tokens_skipped_total",
			Help: "Total number of archived tokens skipped by the daily volume update",
		}),
		RunsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "volume_update_runs_total",
			Help: "Total number of daily volume update runs",
		}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "volume_update_duration_seconds",
			Help:    "Time taken by one daily volume update run",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		LastRun: factory.NewGauge(prometheus.GaugeOpts{
			Name: "volume_update_last_run_timestamp_seconds",
			Help: "Unix time of the last finished daily volume update",
		}),
	}
}

// ObserveBatch records one finished run
func (m *VolumeUpdateMetrics) ObserveBatch(result reconcile.BatchResult, duration time.Duration) {
	m.RunsTotal.Inc()
	m.TokensUpdated.Add(float64(result.Updated))
	m.TokensFailed.Add(float64(result.Failed))
	m.TokensSkipped.Add(float64(result.Skipped))
	m.RunDuration.Observe(duration.Seconds())
	m.LastRun.SetToCurrentTime()
}
