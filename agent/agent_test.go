package agent

import (
	"testing"

	"github.com/GoCodeAlone/foreman/errs"
)

func TestNew_Defaults(t *testing.T) {
	a := New("refactor-bot", 3, 5, "sonnet-large")
	if a.Status != StatusActive {
		t.Errorf("Status = %q, want active", a.Status)
	}
	if !a.IsActive() || !a.CanBeAssignedTasks() {
		t.Error("new agent should be active and assignable")
	}
	if a.Configuration == nil || a.ExecutionParams == nil || a.PerformanceMetrics == nil {
		t.Error("maps should be initialized")
	}
}

func TestValidate_TrimsAndChecks(t *testing.T) {
	a := New("  refactor-bot  ", 3, 5, " sonnet-large ")
	if err := a.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if a.Name != "refactor-bot" {
		t.Errorf("Name = %q, want trimmed", a.Name)
	}
	if a.ModelName != "sonnet-large" {
		t.Errorf("ModelName = %q, want trimmed", a.ModelName)
	}
}

func TestValidate_CollectsAllFailures(t *testing.T) {
	a := New("  ", 0, 0, "")
	a.Status = "retired"
	err := a.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	var v *errs.ValidationError
	if !errs.IsValidation(err) {
		t.Fatalf("error = %v, want validation", err)
	}
	v = err.(*errs.ValidationError)
	if len(v.Fields) != 5 {
		t.Errorf("got %d field errors, want 5: %v", len(v.Fields), v)
	}
	// Nothing committed on failure.
	if a.Name != "  " {
		t.Errorf("Name mutated on failed validation: %q", a.Name)
	}
}

func TestDeactivate_RecordsReason(t *testing.T) {
	a := New("bot", 1, 1, "m")
	a.Deactivate("budget freeze")
	if a.Status != StatusInactive {
		t.Errorf("Status = %q, want inactive", a.Status)
	}
	if a.Configuration["deactivation_reason"] != "budget freeze" {
		t.Errorf("deactivation_reason = %v", a.Configuration["deactivation_reason"])
	}
	if a.CanBeAssignedTasks() {
		t.Error("inactive agent should not accept tasks")
	}

	if !a.Activate() {
		t.Error("Activate should succeed for an inactive agent")
	}
	if a.Status != StatusActive {
		t.Errorf("Status = %q, want active after reactivation", a.Status)
	}
}

func TestDeactivate_EmptyReasonNotRecorded(t *testing.T) {
	a := New("bot", 1, 1, "m")
	a.Deactivate("")
	if _, ok := a.Configuration["deactivation_reason"]; ok {
		t.Error("empty reason should not be recorded")
	}
}

func TestTerminate_IsPermanent(t *testing.T) {
	a := New("bot", 1, 1, "m")
	a.Terminate("project wound down")
	if a.Status != StatusTerminated {
		t.Errorf("Status = %q, want terminated", a.Status)
	}
	if a.Configuration["termination_reason"] != "project wound down" {
		t.Errorf("termination_reason = %v", a.Configuration["termination_reason"])
	}
	if a.Activate() {
		t.Error("Activate must refuse terminated agents")
	}
	if a.Status != StatusTerminated {
		t.Errorf("Status = %q, terminated must stick", a.Status)
	}
}

func TestPerformanceMetrics(t *testing.T) {
	a := New("bot", 1, 1, "m")
	if got := a.PerformanceMetric("tasks_done", 0); got != 0 {
		t.Errorf("default = %v, want 0", got)
	}
	a.UpdatePerformanceMetric("tasks_done", 12)
	if got := a.PerformanceMetric("tasks_done", 0); got != 12 {
		t.Errorf("tasks_done = %v, want 12", got)
	}
}

func TestUpdateConfiguration_NilMap(t *testing.T) {
	a := &Agent{Name: "bare", ResumeID: 1, JobDescriptionID: 1, ModelName: "m", Status: StatusActive}
	a.UpdateConfiguration("region", "eu")
	if a.Configuration["region"] != "eu" {
		t.Errorf("Configuration = %v", a.Configuration)
	}
}
