// Package comms provides the lifecycle event bus. Every mutation in the
// system publishes an event here; the SSE hub and the webhook dispatcher
// subscribe and fan the events out.
package comms

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Code identifies the kind of lifecycle event.
type Code string

const (
	TaskCreate    Code = "TASK_CREATE"
	TaskEdit      Code = "TASK_EDIT"
	TaskDelete    Code = "TASK_DELETE"
	TaskStatus    Code = "TASK_STATUS"
	TaskBlocked   Code = "TASK_BLOCKED"
	TaskUnblocked Code = "TASK_UNBLOCKED"
	AssignCreate  Code = "ASSIGNMENT_CREATE"
	AssignStatus  Code = "ASSIGNMENT_STATUS"
	AgentHired    Code = "AGENT_HIRED"
	AgentStatus   Code = "AGENT_STATUS"
	BoardCreate   Code = "BOARD_CREATE"
	BoardEdit     Code = "BOARD_EDIT"
	BoardDelete   Code = "BOARD_DELETE"
	ColumnCreate  Code = "COLUMN_CREATE"
	ColumnEdit    Code = "COLUMN_EDIT"
	ColumnDelete  Code = "COLUMN_DELETE"
	TicketCreate  Code = "TICKET_CREATE"
	TicketEdit    Code = "TICKET_EDIT"
	TicketDelete  Code = "TICKET_DELETE"
	CommentCreate Code = "COMMENT_CREATE"
	CommentEdit   Code = "COMMENT_EDIT"
	CommentDelete Code = "COMMENT_DELETE"
	WebhookTest   Code = "WEBHOOK_TEST"
)

// MatchAll subscribes a handler to every event code.
const MatchAll Code = "*"

// Known reports whether c is a defined event code or MatchAll.
func (c Code) Known() bool {
	switch c {
	case MatchAll,
		TaskCreate, TaskEdit, TaskDelete, TaskStatus, TaskBlocked, TaskUnblocked,
		AssignCreate, AssignStatus,
		AgentHired, AgentStatus,
		BoardCreate, BoardEdit, BoardDelete,
		ColumnCreate, ColumnEdit, ColumnDelete,
		TicketCreate, TicketEdit, TicketDelete,
		CommentCreate, CommentEdit, CommentDelete,
		WebhookTest:
		return true
	}
	return false
}

// Event is one lifecycle notification.
type Event struct {
	ID        string         `json:"id"`
	Code      Code           `json:"event_code"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewEvent stamps a fresh event with an ID and the current time.
func NewEvent(code Code, payload map[string]any) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Code:      code,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// Handler processes published events.
type Handler func(ctx context.Context, evt *Event) error

// Bus is the event backbone. Publishers fire lifecycle events; subscribers
// register per code or for everything via MatchAll.
type Bus interface {
	// Publish delivers the event to every matching subscriber.
	Publish(ctx context.Context, evt *Event) error

	// Subscribe registers a handler for events with the given code.
	// Returns an unsubscribe function.
	Subscribe(code Code, handler Handler) (unsubscribe func())

	// History returns the most recent events, oldest first.
	History(limit int) []*Event
}
