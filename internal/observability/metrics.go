// Package observability provides Prometheus metrics for the application.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics. A nil *Metrics is valid and all
// record helpers become no-ops, which keeps test wiring simple.
type Metrics struct {
	// Download metrics
	DownloadsTotal   *prometheus.CounterVec
	DownloadDuration prometheus.Histogram
	DownloadsActive  prometheus.Gauge

	// Capability listing metrics
	ProbesTotal *prometheus.CounterVec

	// Workspace metrics
	WorkspacesAllocated prometheus.Counter
	WorkspacesSwept     prometheus.Counter
	SweepErrors         prometheus.Counter

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers all application metrics.
func New() *Metrics {
	return &Metrics{
		DownloadsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tubefetch",
			Subsystem: "downloads",
			Name:      "total",
			Help:      "Total number of download requests by container format and status",
		}, []string{"format", "status"}),
		DownloadDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tubefetch",
			Subsystem: "downloads",
			Name:      "duration_seconds",
			Help:      "Histogram of engine download duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		DownloadsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "tubefetch",
			Subsystem: "downloads",
			Name:      "active",
			Help:      "Number of downloads currently running",
		}),
		ProbesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tubefetch",
			Subsystem: "probes",
			Name:      "total",
			Help:      "Total number of capability probes by status",
		}, []string{"status"}),
		WorkspacesAllocated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "tubefetch",
			Subsystem: "workspaces",
			Name:      "allocated_total",
			Help:      "Total number of workspaces allocated",
		}),
		WorkspacesSwept: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "tubefetch",
			Subsystem: "workspaces",
			Name:      "swept_total",
			Help:      "Total number of stale workspaces removed by the sweeper",
		}),
		SweepErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "tubefetch",
			Subsystem: "workspaces",
			Name:      "sweep_errors_total",
			Help:      "Total number of sweeper enumeration errors",
		}),
		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tubefetch",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tubefetch",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Histogram of HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DownloadTimer marks a download as active and returns a function that
// records its duration and releases the gauge.
func (m *Metrics) DownloadTimer() func() {
	if m == nil {
		return func() {}
	}

	m.DownloadsActive.Inc()
	start := time.Now()

	return func() {
		m.DownloadsActive.Dec()
		m.DownloadDuration.Observe(time.Since(start).Seconds())
	}
}

// RecordDownload records the outcome of a download request.
func (m *Metrics) RecordDownload(format, status string) {
	if m == nil {
		return
	}

	m.DownloadsTotal.WithLabelValues(format, status).Inc()
}

// RecordProbe records the outcome of a capability probe.
func (m *Metrics) RecordProbe(status string) {
	if m == nil {
		return
	}

	m.ProbesTotal.WithLabelValues(status).Inc()
}

// RecordWorkspaceAllocated increments the workspace allocation counter.
func (m *Metrics) RecordWorkspaceAllocated() {
	if m == nil {
		return
	}

	m.WorkspacesAllocated.Inc()
}

// RecordSweep records the number of workspaces removed in one sweep pass.
func (m *Metrics) RecordSweep(removed int) {
	if m == nil {
		return
	}

	m.WorkspacesSwept.Add(float64(removed))
}

// RecordSweepError increments the sweeper error counter.
func (m *Metrics) RecordSweepError() {
	if m == nil {
		return
	}

	m.SweepErrors.Inc()
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
