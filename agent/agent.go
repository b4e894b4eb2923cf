// Package agent defines hired workforce members: who they are, which role
// they fill, and their operational status. Running them is out of scope;
// this package only tracks the roster.
package agent

import (
	"strings"
	"time"

	"github.com/GoCodeAlone/foreman/errs"
)

// Status represents the operational state of an agent.
type Status string

const (
	StatusActive     Status = "active"
	StatusInactive   Status = "inactive"
	StatusTerminated Status = "terminated"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusTerminated:
		return true
	}
	return false
}

// Agent is a hired workforce member. ResumeID and JobDescriptionID
// reference the hiring records; ModelName names the model backing it.
type Agent struct {
	ID                 int64          `json:"id"`
	Name               string         `json:"name"`
	ResumeID           int64          `json:"resume_id"`
	JobDescriptionID   int64          `json:"job_description_id"`
	ModelName          string         `json:"model_name"`
	Status             Status         `json:"status"`
	Configuration      map[string]any `json:"configuration"`
	ExecutionParams    map[string]any `json:"execution_parameters"`
	PerformanceMetrics map[string]any `json:"performance_metrics"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// New returns an active agent with empty configuration maps.
func New(name string, resumeID, jobDescriptionID int64, modelName string) *Agent {
	now := time.Now().UTC()
	return &Agent{
		Name:               name,
		ResumeID:           resumeID,
		JobDescriptionID:   jobDescriptionID,
		ModelName:          modelName,
		Status:             StatusActive,
		Configuration:      map[string]any{},
		ExecutionParams:    map[string]any{},
		PerformanceMetrics: map[string]any{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// Validate checks the agent invariants and trims the name and model name.
// All-or-nothing: the agent is unmodified when an error is returned.
func (a *Agent) Validate() error {
	v := &errs.ValidationError{}

	name := strings.TrimSpace(a.Name)
	if name == "" {
		v.Add("name", "cannot be empty")
	}
	model := strings.TrimSpace(a.ModelName)
	if model == "" {
		v.Add("model_name", "cannot be empty")
	}
	if a.ResumeID <= 0 {
		v.Add("resume_id", "must reference a resume")
	}
	if a.JobDescriptionID <= 0 {
		v.Add("job_description_id", "must reference a job description")
	}
	if !a.Status.Valid() {
		v.Add("status", "unknown status %q", a.Status)
	}

	if err := v.Err(); err != nil {
		return err
	}

	a.Name = name
	a.ModelName = model
	return nil
}

// IsActive reports whether the agent is currently active.
func (a *Agent) IsActive() bool {
	return a.Status == StatusActive
}

// CanBeAssignedTasks reports whether the agent accepts new work. Only
// active agents do.
func (a *Agent) CanBeAssignedTasks() bool {
	return a.Status == StatusActive
}

// UpdateConfiguration sets one configuration key.
func (a *Agent) UpdateConfiguration(key string, value any) {
	if a.Configuration == nil {
		a.Configuration = map[string]any{}
	}
	a.Configuration[key] = value
	a.UpdatedAt = time.Now().UTC()
}

// UpdatePerformanceMetric sets one performance metric.
func (a *Agent) UpdatePerformanceMetric(name string, value any) {
	if a.PerformanceMetrics == nil {
		a.PerformanceMetrics = map[string]any{}
	}
	a.PerformanceMetrics[name] = value
	a.UpdatedAt = time.Now().UTC()
}

// PerformanceMetric returns one performance metric, or def when unset.
func (a *Agent) PerformanceMetric(name string, def any) any {
	if v, ok := a.PerformanceMetrics[name]; ok {
		return v
	}
	return def
}

// Deactivate parks the agent. A non-empty reason is recorded in the
// configuration under deactivation_reason. Deactivation is reversible.
func (a *Agent) Deactivate(reason string) {
	a.Status = StatusInactive
	a.UpdatedAt = time.Now().UTC()
	if reason != "" {
		a.UpdateConfiguration("deactivation_reason", reason)
	}
}

// Terminate permanently retires the agent. A non-empty reason is recorded
// in the configuration under termination_reason.
func (a *Agent) Terminate(reason string) {
	a.Status = StatusTerminated
	a.UpdatedAt = time.Now().UTC()
	if reason != "" {
		a.UpdateConfiguration("termination_reason", reason)
	}
}

// Activate returns the agent to active status and reports whether it did.
// Terminated agents stay terminated.
func (a *Agent) Activate() bool {
	if a.Status == StatusTerminated {
		return false
	}
	a.Status = StatusActive
	a.UpdatedAt = time.Now().UTC()
	return true
}
