// Package metrics contains the Prometheus collectors exported by the rangetar server.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every collector used by the server.
//
// Create with New so that all collectors are registered with the same prometheus.Registerer.
type Metrics struct {
	Requests      *prometheus.CounterVec
	ResponseBytes prometheus.Counter
	Latency       prometheus.Histogram
	ArchiveBytes  prometheus.Gauge
	Entries       prometheus.Gauge
}

// New creates and registers all collectors with reg.
//
// Pass prometheus.DefaultRegisterer to use the global registry, or a fresh prometheus.NewRegistry in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rangetar_http_requests_total",
			Help: "Total number of archive requests by HTTP status code.",
		}, []string{"code"}),
		ResponseBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rangetar_http_response_bytes_total",
			Help: "Total number of archive bytes written to clients.",
		}),
		Latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rangetar_http_request_duration_seconds",
			Help:    "Time taken to serve an archive request.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		ArchiveBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rangetar_archive_bytes",
			Help: "Length in bytes of the archive being served.",
		}),
		Entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rangetar_archive_entries",
			Help: "Number of entries in the archive being served.",
		}),
	}

	reg.MustRegister(m.Requests, m.ResponseBytes, m.Latency, m.ArchiveBytes, m.Entries)
	return m
}

// Observe records one finished request.
func (m *Metrics) Observe(code int, written int64, elapsed time.Duration) {
	m.Requests.WithLabelValues(strconv.Itoa(code)).Inc()
	m.ResponseBytes.Add(float64(written))
	m.Latency.Observe(elapsed.Seconds())
}
