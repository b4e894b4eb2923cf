// Package audit records who did what to which entity. Entries are
// append-only; there is no update or delete, so the trail stays trustworthy.
package audit

import (
	"fmt"
	"strings"
	"time"

	"github.com/GoCodeAlone/foreman/errs"
)

// EntityType names the kinds of records the trail covers.
type EntityType string

const (
	EntityJobDescription EntityType = "job_description"
	EntityResume         EntityType = "resume"
	EntityJobApplication EntityType = "job_application"
	EntityAgent          EntityType = "agent"
	EntityTask           EntityType = "task"
	EntityTaskAssignment EntityType = "task_assignment"
	EntityModelCatalog   EntityType = "model_catalog"
	EntityExecutionCost  EntityType = "execution_cost"
	EntityTaskPrompt     EntityType = "task_prompt"
	EntityResumePrompt   EntityType = "resume_prompt"
)

// Valid reports whether t is a known entity type.
func (t EntityType) Valid() bool {
	switch t {
	case EntityJobDescription, EntityResume, EntityJobApplication, EntityAgent,
		EntityTask, EntityTaskAssignment, EntityModelCatalog, EntityExecutionCost,
		EntityTaskPrompt, EntityResumePrompt:
		return true
	}
	return false
}

// ActorType names who performed an action.
type ActorType string

const (
	ActorSystem    ActorType = "system"
	ActorUser      ActorType = "user"
	ActorAgent     ActorType = "agent"
	ActorAPI       ActorType = "api"
	ActorScheduler ActorType = "scheduler"
	ActorWebhook   ActorType = "webhook"
)

// Valid reports whether t is a known actor type.
func (t ActorType) Valid() bool {
	switch t {
	case ActorSystem, ActorUser, ActorAgent, ActorAPI, ActorScheduler, ActorWebhook:
		return true
	}
	return false
}

// Action names what was done.
type Action string

const (
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
	ActionRead       Action = "read"
	ActionExecute    Action = "execute"
	ActionAssign     Action = "assign"
	ActionUnassign   Action = "unassign"
	ActionActivate   Action = "activate"
	ActionDeactivate Action = "deactivate"
	ActionApprove    Action = "approve"
	ActionReject     Action = "reject"
	ActionComplete   Action = "complete"
	ActionFail       Action = "fail"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionRead, ActionExecute,
		ActionAssign, ActionUnassign, ActionActivate, ActionDeactivate,
		ActionApprove, ActionReject, ActionComplete, ActionFail:
		return true
	}
	return false
}

// Entry is one audit record. OldValues and NewValues carry the entity state
// around a change; Metadata carries anything else worth keeping (request IDs,
// reasons, source addresses).
type Entry struct {
	ID         int64          `json:"id"`
	EntityType EntityType     `json:"entity_type"`
	EntityID   int64          `json:"entity_id"`
	Action     Action         `json:"action"`
	ActorType  ActorType      `json:"actor_type"`
	ActorID    *int64         `json:"actor_id,omitempty"`
	OldValues  map[string]any `json:"old_values,omitempty"`
	NewValues  map[string]any `json:"new_values,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewEntry returns an entry stamped with the current time.
func NewEntry(entityType EntityType, entityID int64, action Action, actor ActorType) *Entry {
	return &Entry{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ActorType:  actor,
		CreatedAt:  time.Now().UTC(),
	}
}

// Validate checks the entry's invariants.
func (e *Entry) Validate() error {
	v := &errs.ValidationError{}

	if !e.EntityType.Valid() {
		v.Add("entity_type", "unknown entity type %q", e.EntityType)
	}
	if e.EntityID <= 0 {
		v.Add("entity_id", "must be positive")
	}
	if !e.Action.Valid() {
		v.Add("action", "unknown action %q", e.Action)
	}
	if !e.ActorType.Valid() {
		v.Add("actor_type", "unknown actor type %q", e.ActorType)
	}
	if e.ActorID != nil && *e.ActorID <= 0 {
		v.Add("actor_id", "must be positive when provided")
	}

	return v.Err()
}

// String renders the entry in log form, e.g.
// "CREATE task:42 by user:7 at 2025-11-03T10:00:00Z".
func (e *Entry) String() string {
	actor := string(e.ActorType)
	if e.ActorID != nil {
		actor = fmt.Sprintf("%s:%d", e.ActorType, *e.ActorID)
	}
	return fmt.Sprintf("%s %s:%d by %s at %s",
		strings.ToUpper(string(e.Action)), e.EntityType, e.EntityID, actor,
		e.CreatedAt.Format(time.RFC3339))
}
