package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a registry and the collectors the service reports to.
type Metrics struct {
	Registry *prometheus.Registry

	// RequestCounter counts HTTP requests by route and status
	RequestCounter *prometheus.CounterVec
	// RequestDuration records request duration in seconds
	RequestDuration *prometheus.HistogramVec

	ActivityEvents *prometheus.CounterVec
	CloudSyncRuns  *prometheus.CounterVec
	AIRequests     *prometheus.CounterVec
	RateLimited    prometheus.Counter
	WSConnections  prometheus.Gauge
}

func New(prefix string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		RequestCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: prefix,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: prefix,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		ActivityEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: prefix,
			Name:      "activity_events_total",
			Help:      "Project activity events by delivery path",
		}, []string{"path"}),
		CloudSyncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: prefix,
			Name:      "cloud_sync_runs_total",
			Help:      "Cloud sync runs by trigger and outcome",
		}, []string{"trigger", "outcome"}),
		AIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: prefix,
			Name:      "ai_requests_total",
			Help:      "AI suggestion requests by kind",
		}, []string{"kind"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: prefix,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		}),
		WSConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: prefix,
			Name:      "ws_connections",
			Help:      "Open realtime connections",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestCounter,
		m.RequestDuration,
		m.ActivityEvents,
		m.CloudSyncRuns,
		m.AIRequests,
		m.RateLimited,
		m.WSConnections,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
