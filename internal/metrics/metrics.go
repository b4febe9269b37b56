// Package metrics exposes planner counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder counts planner activity. The zero value is not usable; use New.
type Recorder struct {
	registry          *prometheus.Registry
	eventTransitions  *prometheus.CounterVec
	calendarFailures  *prometheus.CounterVec
	tasksCreated      prometheus.Counter
	dashboardFailures prometheus.Counter
}

// New creates a recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		eventTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planner_event_transitions_total",
				Help: "Event lifecycle transitions by action",
			},
			[]string{"action"},
		),
		calendarFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planner_calendar_sync_failures_total",
				Help: "Calendar side effects that failed after the primary write",
			},
			[]string{"op"},
		),
		tasksCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "planner_tasks_created_total",
				Help: "Tasks created",
			},
		),
		dashboardFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "planner_dashboard_partial_failures_total",
				Help: "Dashboard loads where at least one branch failed",
			},
		),
	}
	r.registry.MustRegister(r.eventTransitions, r.calendarFailures, r.tasksCreated, r.dashboardFailures)
	return r
}

func (r *Recorder) EventTransition(action string) {
	r.eventTransitions.WithLabelValues(action).Inc()
}

func (r *Recorder) CalendarFailure(op string) {
	r.calendarFailures.WithLabelValues(op).Inc()
}

func (r *Recorder) TaskCreated() {
	r.tasksCreated.Inc()
}

func (r *Recorder) DashboardPartialFailure() {
	r.dashboardFailures.Inc()
}

// Registry is exposed for tests and for adding process collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the recorder's registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
