// Package metrics holds the prometheus collectors exposed on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestCounter counts HTTP requests by status code, method, and path
	RequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meetcontrol_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"status", "method", "path"},
	)

	// RequestDuration measures HTTP request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "meetcontrol_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status", "method", "path"},
	)

	// RequestInProgress counts HTTP requests currently being processed
	RequestInProgress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "meetcontrol_http_requests_in_progress",
			Help: "Number of HTTP requests currently being processed",
		},
		[]string{"method", "path"},
	)

	// DatabaseOperationDuration measures store operation duration
	DatabaseOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "meetcontrol_db_operation_duration_seconds",
			Help:    "Database operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	// AttemptsRecorded counts ledger writes by discipline and outcome
	AttemptsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meetcontrol_attempts_recorded_total",
			Help: "Total number of attempts written to the ledger",
		},
		[]string{"discipline", "outcome"},
	)

	// DisciplineAdvances counts automatic squat→bench→deadlift transitions
	DisciplineAdvances = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meetcontrol_discipline_advances_total",
			Help: "Total number of automatic discipline advances",
		},
		[]string{"discipline"},
	)

	// TimerExpirations counts attempt clocks that reached zero
	TimerExpirations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meetcontrol_timer_expirations_total",
			Help: "Total number of attempt timers that expired",
		},
	)

	// ObserverConnections tracks open observer websockets
	ObserverConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "meetcontrol_observer_connections",
			Help: "Number of open observer websocket connections",
		},
	)

	// BroadcastsDropped counts messages skipped for slow observers
	BroadcastsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meetcontrol_broadcasts_dropped_total",
			Help: "Total number of observer messages dropped because the client was too slow",
		},
	)
)

// RecordDBOperation records the duration of a store operation
func RecordDBOperation(operation string, table string, startTime time.Time) {
	duration := time.Since(startTime).Seconds()
	DatabaseOperationDuration.WithLabelValues(operation, table).Observe(duration)
}
