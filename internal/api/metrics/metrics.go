// Package metrics defines all custom Prometheus metrics for the access
// controller. It is the single source of truth for metric names, labels,
// and help strings; metrics register themselves with the default registry
// at init via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "accessd"

// AccessAttemptsTotal counts every access attempt the engine records.
// Labels:
//   - decision: "granted" or "denied"
//   - source: "scanner", "api", or "override"
var AccessAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "access_attempts_total",
		Help:      "Total number of access attempts, by decision and source.",
	},
	[]string{"decision", "source"},
)

// VerificationDuration measures the remote verification round-trip.
var VerificationDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "verification_duration_seconds",
		Help:      "Duration of remote credential verification calls.",
		Buckets:   prometheus.DefBuckets,
	},
)

// VerificationFailuresTotal counts verification calls that did not produce
// a usable decision.
// Label:
//   - reason: "unavailable" (transport/timeout) or "malformed" (bad schema)
var VerificationFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "verification_failures_total",
		Help:      "Total number of failed remote verification calls, by reason.",
	},
	[]string{"reason"},
)

// DoorTransitionsTotal counts door state machine transitions.
var DoorTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "door_transitions_total",
		Help:      "Total number of door state transitions, by source and target state.",
	},
	[]string{"from", "to"},
)

// DoorStateGauge exposes the current door state as a one-hot gauge so
// dashboards can alert on fault or held-open conditions.
var DoorStateGauge = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "door_state",
		Help:      "Current door controller state (1 for the active state, 0 otherwise).",
	},
	[]string{"state"},
)

// DoorHeldOpenAlarmsTotal counts held-open alarms raised while waiting for
// the sensor to confirm the door closed.
var DoorHeldOpenAlarmsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "door_held_open_alarms_total",
		Help:      "Total number of door-held-open alarms raised.",
	},
)

// AuditWriteFailuresTotal counts audit appends that failed to persist.
// Escalated as an operational alert; the door actuation is never rolled back.
var AuditWriteFailuresTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_write_failures_total",
		Help:      "Total number of access attempts that could not be persisted to the audit log.",
	},
)

// ScansTotal counts frames read from the barcode scanner.
// Label:
//   - result: "accepted" (valid frame forwarded) or "rejected" (failed validation)
var ScansTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scans_total",
		Help:      "Total number of barcode frames read from the scanner, by validation result.",
	},
	[]string{"result"},
)
