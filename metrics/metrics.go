// Package metrics exposes Prometheus counters and histograms for the
// reconciliation engine, the closeout scheduler and the notification hub.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Engine metrics
	ReconciliationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_reconciliations_total",
			Help: "Total number of status reconciliations by operation and result",
		},
		[]string{"operation", "result"},
	)

	ReconciliationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "attendance_reconciliation_duration_seconds",
			Help:    "Reconciliation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	LeaveDowngradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_leave_downgrades_total",
			Help: "Days stored as an unpaid fallback status because the leave balance was insufficient",
		},
		[]string{"status"},
	)

	CheckEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_check_events_total",
			Help: "Check-in and check-out events by resulting status",
		},
		[]string{"event", "status"},
	)

	// Closeout metrics
	CloseoutRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_closeout_records_total",
			Help: "Records written by scheduled closeout jobs",
		},
		[]string{"job"},
	)

	CloseoutRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_closeout_runs_total",
			Help: "Closeout job runs by job and result",
		},
		[]string{"job", "result"},
	)

	// Notification metrics
	NotificationsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_notifications_published_total",
			Help: "Notifications delivered to subscriber queues by event type",
		},
		[]string{"type"},
	)

	NotificationsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "attendance_notifications_dropped_total",
			Help: "Notifications dropped because a subscriber queue was full",
		},
	)

	Subscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "attendance_subscribers",
			Help: "Currently connected notification subscribers",
		},
	)
)

func init() {
	prometheus.MustRegister(ReconciliationsTotal)
	prometheus.MustRegister(ReconciliationDuration)
	prometheus.MustRegister(LeaveDowngradesTotal)
	prometheus.MustRegister(CheckEventsTotal)
	prometheus.MustRegister(CloseoutRecordsTotal)
	prometheus.MustRegister(CloseoutRunsTotal)
	prometheus.MustRegister(NotificationsPublished)
	prometheus.MustRegister(NotificationsDropped)
	prometheus.MustRegister(Subscribers)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Result labels a counter with "ok" or "error".
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// =============================================================================
// TIMER
// =============================================================================

// Timer measures the duration of one operation.
type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed time in h.
func (t *Timer) ObserveDuration(h prometheus.Observer) {
	h.Observe(t.Duration().Seconds())
}
