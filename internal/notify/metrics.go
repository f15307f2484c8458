package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RemindersEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "consulta_reminders_emitted_total",
		Help: "Reminder events emitted, labelled by lead-time bucket.",
	}, []string{"lead"})

	RemindersSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "consulta_reminders_skipped_total",
		Help: "Reminder emissions skipped, labelled by reason (sent, missed, cancelled).",
	}, []string{"reason"})

	EventsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "consulta_events_dispatched_total",
		Help: "Events handed to delivery drivers, labelled by driver and outcome.",
	}, []string{"driver", "outcome"})

	SchedulerTickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "consulta_scheduler_tick_seconds",
		Help:    "Duration of a reminder scheduler tick.",
		Buckets: prometheus.DefBuckets,
	})
)
