package task

import (
	"time"

	"github.com/GoCodeAlone/foreman/errs"
)

// AssignmentStatus represents the lifecycle state of an assignment.
type AssignmentStatus string

const (
	AssignmentAssigned   AssignmentStatus = "assigned"
	AssignmentAccepted   AssignmentStatus = "accepted"
	AssignmentInProgress AssignmentStatus = "in_progress"
	AssignmentCompleted  AssignmentStatus = "completed"
	AssignmentFailed     AssignmentStatus = "failed"
	AssignmentReassigned AssignmentStatus = "reassigned"
)

// Terminal reports whether the status ends the assignment lifecycle.
// Reassigned is not terminal in the completion sense: it carries no
// completion timestamp.
func (s AssignmentStatus) Terminal() bool {
	return s == AssignmentCompleted || s == AssignmentFailed
}

// Valid reports whether s is a known assignment status.
func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentAssigned, AssignmentAccepted, AssignmentInProgress,
		AssignmentCompleted, AssignmentFailed, AssignmentReassigned:
		return true
	}
	return false
}

// Assignment binds one task to one agent. Both sides are referenced by
// identifier only; an assignment never embeds the task or agent record.
type Assignment struct {
	ID              int64            `json:"id"`
	TaskID          int64            `json:"task_id"`
	AgentID         int64            `json:"agent_id"`
	Status          AssignmentStatus `json:"status"`
	AssignedAt      time.Time        `json:"assigned_at"` // set at creation, immutable
	CapabilityScore float64          `json:"capability_score"`
	CostEstimate    *float64         `json:"cost_estimate,omitempty"`
	ActualCost      *float64         `json:"actual_cost,omitempty"`
	CompletionNotes string           `json:"completion_notes,omitempty"`
	QualityScore    *float64         `json:"quality_score,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
}

// NewAssignment returns an assignment in the assigned state with the
// capability score recorded at assignment time.
func NewAssignment(taskID, agentID int64, capabilityScore float64) *Assignment {
	now := time.Now().UTC()
	return &Assignment{
		TaskID:          taskID,
		AgentID:         agentID,
		Status:          AssignmentAssigned,
		AssignedAt:      now,
		CapabilityScore: capabilityScore,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Validate checks every assignment invariant. All-or-nothing: the entity is
// unmodified on failure and the error lists every offending field.
func (a *Assignment) Validate() error {
	v := &errs.ValidationError{}

	if a.TaskID <= 0 {
		v.Add("task_id", "must reference a task")
	}
	if a.AgentID <= 0 {
		v.Add("agent_id", "must reference an agent")
	}
	if !a.Status.Valid() {
		v.Add("status", "unknown status %q", a.Status)
	}
	if a.CapabilityScore < 0 || a.CapabilityScore > 100 {
		v.Add("capability_score", "must be between 0 and 100, got %g", a.CapabilityScore)
	}
	if a.QualityScore != nil && (*a.QualityScore < 0 || *a.QualityScore > 100) {
		v.Add("quality_score", "must be between 0 and 100, got %g", *a.QualityScore)
	}
	if a.CostEstimate != nil && *a.CostEstimate < 0 {
		v.Add("cost_estimate", "cannot be negative")
	}
	if a.ActualCost != nil && *a.ActualCost < 0 {
		v.Add("actual_cost", "cannot be negative")
	}

	if a.CompletedAt != nil && !a.Status.Terminal() {
		v.Add("completed_at", "set while status is %q", a.Status)
	}
	if a.QualityScore != nil && a.Status != AssignmentCompleted {
		v.Add("quality_score", "only completed assignments carry a quality score, status is %q", a.Status)
	}
	if a.ActualCost != nil && !a.Status.Terminal() {
		v.Add("actual_cost", "only completed or failed assignments carry an actual cost, status is %q", a.Status)
	}

	return v.Err()
}

// IsActive reports whether the assignment is still in flight.
func (a *Assignment) IsActive() bool {
	switch a.Status {
	case AssignmentAssigned, AssignmentAccepted, AssignmentInProgress:
		return true
	}
	return false
}

// IsComplete reports whether the assignment finished successfully.
func (a *Assignment) IsComplete() bool {
	return a.Status == AssignmentCompleted
}

// UpdateStatus sets the status with the same completion-timestamp coupling
// as Task.UpdateStatus. When entering a terminal status with a non-empty
// notes argument, the completion notes are overwritten.
func (a *Assignment) UpdateStatus(next AssignmentStatus, notes string) {
	prev := a.Status
	a.Status = next
	now := time.Now().UTC()
	a.UpdatedAt = now

	switch {
	case next.Terminal() && !prev.Terminal():
		a.CompletedAt = &now
	case !next.Terminal() && prev.Terminal():
		a.CompletedAt = nil
	}

	if next.Terminal() && notes != "" {
		a.CompletionNotes = notes
	}
}

// SetQualityScore records a post-hoc quality rating. It fails with a
// DomainError unless the assignment is completed, and with a
// ValidationError when the score is out of range. Notes, if non-empty,
// replace the completion notes.
func (a *Assignment) SetQualityScore(score float64, notes string) error {
	if a.Status != AssignmentCompleted {
		return errs.Domain("quality score requires a completed assignment, status is %q", a.Status)
	}
	if score < 0 || score > 100 {
		return errs.Validation("quality_score", "must be between 0 and 100, got %g", score)
	}
	a.QualityScore = &score
	if notes != "" {
		a.CompletionNotes = notes
	}
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// RecordActualCost stores the realized cost of the assignment. Negative
// costs are rejected. There is no status gate here; Validate enforces the
// terminal-cost invariant when the record is constructed or loaded whole.
func (a *Assignment) RecordActualCost(cost float64) error {
	if cost < 0 {
		return errs.Validation("actual_cost", "cannot be negative")
	}
	a.ActualCost = &cost
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// CostEfficiency returns estimate/actual when both are recorded and the
// actual cost is non-zero, and nil otherwise. A ratio above 1 means the
// work came in under estimate.
func (a *Assignment) CostEfficiency() *float64 {
	if a.CostEstimate == nil || a.ActualCost == nil || *a.ActualCost == 0 {
		return nil
	}
	ratio := *a.CostEstimate / *a.ActualCost
	return &ratio
}
