// Package metrics defines the Prometheus instrumentation for the daemon:
// HTTP latency, task and assignment activity, event publishing, and webhook
// delivery outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPRequestDuration tracks request duration per route.
var HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "foreman",
	Name:      "http_request_duration_seconds",
	Help:      "HTTP request duration in seconds.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route", "status"})

// TasksCreated counts created tasks by priority.
var TasksCreated = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "foreman",
	Name:      "tasks_created_total",
	Help:      "Total tasks created.",
}, []string{"priority"})

// TaskTransitions counts task status changes by target status.
var TaskTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "foreman",
	Name:      "task_transitions_total",
	Help:      "Total task status transitions.",
}, []string{"status"})

// AssignmentsActive tracks assignments currently in the assigned state.
var AssignmentsActive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "foreman",
	Name:      "assignments_active",
	Help:      "Number of currently active task assignments.",
})

// EventsPublished counts lifecycle events by code.
var EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "foreman",
	Name:      "events_published_total",
	Help:      "Total lifecycle events published on the bus.",
}, []string{"code"})

// WebhookDeliveries counts outbound webhook deliveries by result.
var WebhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "foreman",
	Name:      "webhook_deliveries_total",
	Help:      "Total outbound webhook delivery attempts.",
}, []string{"result"})
