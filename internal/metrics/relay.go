// SPDX-License-Identifier: MIT
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	relayForwardedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_forwarded_requests_total",
		Help: "Requests forwarded upstream by the relay, by response status code",
	}, []string{"code"})

	relayForwardDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "relay_forward_duration_seconds",
		Help:    "Upstream round-trip latency of forwarded requests",
		Buckets: prometheus.DefBuckets,
	})

	relayUpstreamErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_upstream_errors_total",
		Help: "Forwarded requests that failed before an upstream response was received",
	})
)

// RecordRelayForward records a completed forward.
func RecordRelayForward(code int, d time.Duration) {
	relayForwardedTotal.WithLabelValues(strconv.Itoa(code)).Inc()
	relayForwardDuration.Observe(d.Seconds())
}

// IncRelayUpstreamError records a forward that failed at the transport level.
func IncRelayUpstreamError() {
	relayUpstreamErrorsTotal.Inc()
}
