// Package task defines the orchestration core: work items with dependency
// and blocker tracking, and the assignments binding them to agents.
package task

import (
	"slices"
	"strings"
	"time"

	"github.com/GoCodeAlone/foreman/errs"
	"github.com/GoCodeAlone/foreman/skills"
)

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status ends the task lifecycle.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusInProgress, StatusBlocked, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Priority determines scheduling preference.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Blocker records one reason a task cannot proceed. Type and Description are
// mandatory; Extra carries any caller-defined detail. Blockers form an
// ordered list so the audit trail preserves insertion order.
type Blocker struct {
	Type        string         `json:"type"`
	Description string         `json:"description"`
	CreatedAt   time.Time      `json:"created_at"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// Task is a unit of work that can be assigned to an agent. Graph edges
// (ParentID, Dependencies) are identifier values only, never live
// references; resolving them is the scheduler's job via the store.
type Task struct {
	ID             int64          `json:"id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	ExternalRef    string         `json:"external_ref,omitempty"` // originating ticket reference
	ParentID       *int64         `json:"parent_id,omitempty"`
	Status         Status         `json:"status"`
	Priority       Priority       `json:"priority"`
	RequiredSkills []string       `json:"required_skills"`
	EstimatedCost  *float64       `json:"estimated_cost,omitempty"`
	ActualCost     *float64       `json:"actual_cost,omitempty"`
	Dependencies   []int64        `json:"dependencies"`
	Blockers       []Blocker      `json:"blockers"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	Deadline       *time.Time     `json:"deadline,omitempty"`
}

// New returns a pending task with the given title and description and
// medium priority. Callers adjust fields and run Validate before persisting.
func New(title, description string) *Task {
	now := time.Now().UTC()
	return &Task{
		Title:       title,
		Description: description,
		Status:      StatusPending,
		Priority:    PriorityMedium,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Validate checks every entity invariant and normalizes the skill and
// dependency sets. It is all-or-nothing: on any failure the task is left
// untouched and the returned error lists every offending field.
func (t *Task) Validate() error {
	v := &errs.ValidationError{}

	if strings.TrimSpace(t.Title) == "" {
		v.Add("title", "cannot be empty")
	}
	if strings.TrimSpace(t.Description) == "" {
		v.Add("description", "cannot be empty")
	}
	if !t.Status.Valid() {
		v.Add("status", "unknown status %q", t.Status)
	}
	if !t.Priority.Valid() {
		v.Add("priority", "unknown priority %q", t.Priority)
	}
	if t.EstimatedCost != nil && *t.EstimatedCost < 0 {
		v.Add("estimated_cost", "cannot be negative")
	}
	if t.ActualCost != nil && *t.ActualCost < 0 {
		v.Add("actual_cost", "cannot be negative")
	}

	deps := slices.Clone(t.Dependencies)
	slices.Sort(deps)
	deps = slices.Compact(deps)
	for _, id := range deps {
		if id <= 0 {
			v.Add("dependencies", "dependency IDs must be positive, got %d", id)
			break
		}
	}

	for i, b := range t.Blockers {
		if strings.TrimSpace(b.Type) == "" {
			v.Add("blockers", "blocker %d is missing a type", i)
		}
		if strings.TrimSpace(b.Description) == "" {
			v.Add("blockers", "blocker %d is missing a description", i)
		}
	}

	if t.ParentID != nil && t.ID != 0 && *t.ParentID == t.ID {
		v.Add("parent_id", "task cannot be its own parent")
	}
	if t.CompletedAt != nil && !t.Status.Terminal() {
		v.Add("completed_at", "set while status is %q; only completed or failed tasks carry a completion time", t.Status)
	}

	if err := v.Err(); err != nil {
		return err
	}

	t.RequiredSkills = skills.Normalize(t.RequiredSkills)
	t.Dependencies = deps
	return nil
}

// CanBeAssigned reports whether the task is ready for assignment: pending,
// unblocked, and without dependency edges.
func (t *Task) CanBeAssigned() bool {
	return t.Status == StatusPending && !t.IsBlocked() && !t.HasUnresolvedDependencies()
}

// IsBlocked reports whether the task is held up, either by explicit blocker
// records or by the blocked status. The two signals are independent and
// both are honored.
func (t *Task) IsBlocked() bool {
	return len(t.Blockers) > 0 || t.Status == StatusBlocked
}

// HasUnresolvedDependencies reports whether any dependency edges exist.
// Deliberately conservative: it does not resolve the referenced tasks'
// statuses. Store.ReadyTasks performs the resolving query for callers that
// want completion-aware readiness.
func (t *Task) HasUnresolvedDependencies() bool {
	return len(t.Dependencies) > 0
}

// AddBlocker appends a blocker record stamped with the current time. The
// task status is not changed; blocking via status is a separate signal.
func (t *Task) AddBlocker(btype, description string, extra map[string]any) {
	t.Blockers = append(t.Blockers, Blocker{
		Type:        btype,
		Description: description,
		CreatedAt:   time.Now().UTC(),
		Extra:       extra,
	})
	t.UpdatedAt = time.Now().UTC()
}

// RemoveBlocker removes every blocker of the given type and reports whether
// any were removed. Removing from an empty list is a no-op returning false.
func (t *Task) RemoveBlocker(btype string) bool {
	if len(t.Blockers) == 0 {
		return false
	}
	kept := t.Blockers[:0]
	removed := false
	for _, b := range t.Blockers {
		if b.Type == btype {
			removed = true
			continue
		}
		kept = append(kept, b)
	}
	if !removed {
		return false
	}
	t.Blockers = kept
	t.UpdatedAt = time.Now().UTC()
	return true
}

// UpdateStatus sets the status unconditionally and maintains the completion
// timestamp invariant: entering a terminal status from a non-terminal one
// stamps CompletedAt, leaving the terminal set clears it, and moving between
// the two terminal statuses preserves the original stamp. Callers decide
// whether a transition makes sense; the entity only keeps the timestamps
// coupled.
func (t *Task) UpdateStatus(next Status) {
	prev := t.Status
	t.Status = next
	now := time.Now().UTC()
	t.UpdatedAt = now

	switch {
	case next.Terminal() && !prev.Terminal():
		t.CompletedAt = &now
	case !next.Terminal() && prev.Terminal():
		t.CompletedAt = nil
	}
}
