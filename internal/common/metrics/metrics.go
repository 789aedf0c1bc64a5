// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TasksGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cascade_tasks_generated_total",
			Help: "Total number of tasks generated per event",
		},
		[]string{"template_id"},
	)

	CascadeCompletions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cascade_completions_total",
			Help: "Total number of task completions processed",
		},
		[]string{"template_id", "outcome"},
	)

	DeadlineRecalculations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cascade_deadline_recalculations_total",
			Help: "Total number of task deadlines rewritten after a reschedule",
		},
	)

	NotificationsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_notifications_total",
			Help: "Notification attempts by template and outcome",
		},
		[]string{"template", "outcome"},
	)

	AutomationRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "automation_run_duration_seconds",
			Help: "Duration of one notification trigger run",
		},
	)

	AutomationRunErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "automation_run_errors_total",
			Help: "Per-recipient errors captured during trigger runs",
		},
	)
)
