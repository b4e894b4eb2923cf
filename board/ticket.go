package board

import (
	"strings"
	"time"

	"github.com/GoCodeAlone/foreman/errs"
)

// Ticket is a card sitting in one column. Assignee is free text naming the
// agent or person responsible; Conversation carries an optional running
// transcript attached to the ticket.
type Ticket struct {
	ID           int64     `json:"id"`
	ColumnID     int64     `json:"column_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Assignee     string    `json:"assignee,omitempty"`
	Conversation string    `json:"conversation,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewTicket returns a ticket in the given column.
func NewTicket(columnID int64, title string) *Ticket {
	now := time.Now().UTC()
	return &Ticket{ColumnID: columnID, Title: title, CreatedAt: now, UpdatedAt: now}
}

// Validate checks the ticket invariants and trims the title.
func (t *Ticket) Validate() error {
	v := &errs.ValidationError{}

	title := strings.TrimSpace(t.Title)
	if title == "" {
		v.Add("title", "cannot be empty")
	}
	if t.ColumnID <= 0 {
		v.Add("column_id", "must reference a column")
	}

	if err := v.Err(); err != nil {
		return err
	}
	t.Title = title
	return nil
}

// MoveTo places the ticket in another column.
func (t *Ticket) MoveTo(columnID int64) {
	t.ColumnID = columnID
	t.UpdatedAt = time.Now().UTC()
}

// TicketComment is one entry in a ticket's comment thread.
type TicketComment struct {
	ID        int64     `json:"id"`
	TicketID  int64     `json:"ticket_id"`
	Author    string    `json:"author"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewComment returns a comment on the given ticket.
func NewComment(ticketID int64, author, message string) *TicketComment {
	now := time.Now().UTC()
	return &TicketComment{
		TicketID:  ticketID,
		Author:    author,
		Message:   message,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks the comment invariants.
func (c *TicketComment) Validate() error {
	v := &errs.ValidationError{}

	if strings.TrimSpace(c.Author) == "" {
		v.Add("author", "cannot be empty")
	}
	if strings.TrimSpace(c.Message) == "" {
		v.Add("message", "cannot be empty")
	}
	if c.TicketID <= 0 {
		v.Add("ticket_id", "must reference a ticket")
	}

	return v.Err()
}
