package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReportsTotal tracks reports entering the pipeline per origin
	ReportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crashwatch_reports_total",
			Help: "Total number of crash reports received",
		},
		[]string{"origin"},
	)

	// DecodeErrorsTotal tracks reports dropped at the decode boundary
	DecodeErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crashwatch_decode_errors_total",
			Help: "Total number of malformed crash reports dropped",
		},
	)

	// ReportsDroppedTotal tracks reports dropped by the policy, by reason
	ReportsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crashwatch_reports_dropped_total",
			Help: "Total number of crash reports dropped without user-visible effect",
		},
		[]string{"reason"},
	)

	// NotificationsTotal tracks user-visible actions per kind
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crashwatch_notifications_total",
			Help: "Total number of crash notifications and advisories shown",
		},
		[]string{"kind"},
	)

	// QueueEntriesTotal tracks entries drained from the historical queue
	QueueEntriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crashwatch_queue_entries_total",
			Help: "Total number of queue entries drained",
		},
	)

	// JournalErrorsTotal tracks failed journal writes
	JournalErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crashwatch_journal_errors_total",
			Help: "Total number of failed crash journal writes",
		},
	)
)
