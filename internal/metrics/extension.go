// SPDX-License-Identifier: MIT
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Lifecycle metrics
	registrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_extension_registrations_total",
		Help: "Extension registration attempts by outcome",
	}, []string{"outcome"}) // outcome=ok|error

	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_extension_events_total",
		Help: "Lifecycle events received from the extension API",
	}, []string{"type"}) // type=INVOKE|SHUTDOWN

	pollErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_extension_poll_errors_total",
		Help: "Failed next-event polls by error class",
	}, []string{"class"}) // class=transport|decode

	pollWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "relay_extension_poll_wait_seconds",
		Help:    "Time spent blocked in the next-event long-poll",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 30, 60, 300, 900},
	})

	loopState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "relay_extension_loop_state",
		Help: "Current controller state (1 for the active state, 0 otherwise)",
	}, []string{"state"})

	// Supervision metrics
	healthProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_extension_health_probes_total",
		Help: "Relay readiness probes by outcome",
	}, []string{"outcome"}) // outcome=up|down

	relayLaunchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_extension_relay_launches_total",
		Help: "Relay launch decisions by outcome",
	}, []string{"outcome"}) // outcome=launched|pending|suppressed|error

	relayExitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_extension_relay_exits_total",
		Help: "Relay run exits observed by the supervisor",
	}, []string{"outcome"}) // outcome=clean|error

	// Result metrics
	resultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_extension_results_total",
		Help: "Invocation result artifacts processed by outcome",
	}, []string{"outcome"}) // outcome=ok|missing|rejected|unavailable

	// Shutdown metrics
	shutdownsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_extension_shutdowns_total",
		Help: "Shutdown sequences by reason",
	}, []string{"reason"})
)

// RecordRegistration records the outcome of the registration handshake.
func RecordRegistration(outcome string) {
	registrationsTotal.WithLabelValues(outcome).Inc()
}

// RecordEvent records a decoded lifecycle event.
func RecordEvent(eventType string) {
	eventsTotal.WithLabelValues(eventType).Inc()
}

// RecordPollError records a failed poll by error class.
func RecordPollError(class string) {
	pollErrorsTotal.WithLabelValues(class).Inc()
}

// ObservePollWait records how long a long-poll blocked.
func ObservePollWait(d time.Duration) {
	pollWaitSeconds.Observe(d.Seconds())
}

// SetLoopState marks state as the single active controller state.
func SetLoopState(state string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		loopState.WithLabelValues(s).Set(v)
	}
}

// RecordHealthProbe records a relay readiness probe.
func RecordHealthProbe(up bool) {
	outcome := "down"
	if up {
		outcome = "up"
	}
	healthProbesTotal.WithLabelValues(outcome).Inc()
}

// RecordRelayLaunch records a launch decision.
func RecordRelayLaunch(outcome string) {
	relayLaunchesTotal.WithLabelValues(outcome).Inc()
}

// RecordRelayExit records that a launched relay returned from Run.
func RecordRelayExit(err error) {
	outcome := "clean"
	if err != nil {
		outcome = "error"
	}
	relayExitsTotal.WithLabelValues(outcome).Inc()
}

// RecordResult records the outcome of reading an invocation result artifact.
func RecordResult(outcome string) {
	resultsTotal.WithLabelValues(outcome).Inc()
}

// RecordShutdown records a shutdown sequence.
func RecordShutdown(reason string) {
	shutdownsTotal.WithLabelValues(reason).Inc()
}
