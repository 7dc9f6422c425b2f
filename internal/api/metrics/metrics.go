// Package metrics defines and registers all custom Prometheus metrics for the
// campus navigation service. It is the single source of truth for metric
// names, labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "campusnav"

// ── Tracking metrics ──────────────────────────────────────────────────────────

// FixesProcessedTotal counts fixes that went through a tracker.
// Label:
//   - snapped: "true" when the marker was drawn on the route, "false" otherwise
var FixesProcessedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fixes_processed_total",
		Help:      "Total number of position fixes processed by a tracker.",
	},
	[]string{"snapped"},
)

// FixesDuplicateTotal counts fixes dropped as re-deliveries.
var FixesDuplicateTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fixes_duplicate_total",
		Help:      "Total number of re-delivered fixes dropped before tracking.",
	},
)

// OffRouteTransitionsTotal counts notification state changes.
// Label:
//   - direction: "off" (notification shown) or "on" (notification hidden)
var OffRouteTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "off_route_transitions_total",
		Help:      "Total number of off-route state transitions.",
	},
	[]string{"direction"},
)

// PositionErrorsTotal counts errors reported by the client position stream.
// Label:
//   - kind: permission_denied, position_unavailable, timeout or unknown
var PositionErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "position_errors_total",
		Help:      "Total number of position stream errors, by kind.",
	},
	[]string{"kind"},
)

// ── Routing metrics ───────────────────────────────────────────────────────────

// RecalculationsTotal counts route recalculation attempts.
// Label:
//   - result: "rejected", "success" or "failed"
var RecalculationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "recalculations_total",
		Help:      "Total number of route recalculations, by result.",
	},
	[]string{"result"},
)

// DirectionsRequestDuration measures calls to the external directions service.
// Label:
//   - outcome: "ok" or "error"
var DirectionsRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "directions_request_duration_seconds",
		Help:      "Duration of directions lookups including retries.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"outcome"},
)

// ── Dispatcher metrics ────────────────────────────────────────────────────────

// CommandQueueDepth tracks the number of commands waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var CommandQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "command_queue_depth",
		Help:      "Current number of commands pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// CommandDuration measures how long a single session command takes.
// Label:
//   - kind: the command kind (fix, set_route, …)
var CommandDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "command_duration_seconds",
		Help:      "Duration of session command handling from dequeue to snapshot write.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"kind"},
)

// ActiveConnections tracks open websocket connections.
var ActiveConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ws_active_connections",
		Help:      "Current number of authenticated websocket connections.",
	},
)
