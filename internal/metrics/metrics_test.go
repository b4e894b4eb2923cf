package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func gatherNames(t *testing.T) map[string]bool {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	return names
}

func TestMetricsRegistered(t *testing.T) {
	// promauto registers with the default registry; exercise each metric
	// once so the vector variants materialize.
	HTTPRequestDuration.WithLabelValues("GET", "/api/tasks", "200").Observe(0.02)
	TasksCreated.WithLabelValues("high").Inc()
	TaskTransitions.WithLabelValues("in_progress").Inc()
	AssignmentsActive.Set(2)
	EventsPublished.WithLabelValues("TASK_CREATE").Inc()
	WebhookDeliveries.WithLabelValues("ok").Inc()
	WebhookDeliveries.WithLabelValues("error").Inc()

	names := gatherNames(t)
	expected := []string{
		"foreman_http_request_duration_seconds",
		"foreman_tasks_created_total",
		"foreman_task_transitions_total",
		"foreman_assignments_active",
		"foreman_events_published_total",
		"foreman_webhook_deliveries_total",
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("metric %q not found in gathered metrics", name)
		}
	}
}
