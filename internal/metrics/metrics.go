// Package metrics exposes Prometheus collectors for upstream API calls and
// login handshakes.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "xfeed"

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	handshakes       *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Platform API calls by operation, credential kind and HTTP status.",
		}, []string{"operation", "credential", "status"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of platform API calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshakes_total",
			Help:      "Login handshake steps by strategy and outcome.",
		}, []string{"strategy", "step", "outcome"}),
	}
	reg.MustRegister(m.upstreamRequests, m.upstreamDuration, m.handshakes)
	return m
}

// ObserveUpstream records one platform API call. status 0 means the call
// never got a response.
func (m *Metrics) ObserveUpstream(operation, credential string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(operation, credential, strconv.Itoa(status)).Inc()
	m.upstreamDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// Handshake records one initiate or callback step.
func (m *Metrics) Handshake(strategy, step, outcome string) {
	if m == nil {
		return
	}
	m.handshakes.WithLabelValues(strategy, step, outcome).Inc()
}

// Handler serves the collectors registered with g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
