// Package board implements lightweight kanban boards: named boards holding
// status columns, tickets that move between columns, and comment threads on
// tickets. Deleting a parent cascades to everything under it.
package board

import (
	"strings"
	"time"

	"github.com/GoCodeAlone/foreman/errs"
)

// Board is a named collection of status columns.
type Board struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewBoard returns a board with the given name.
func NewBoard(name string) *Board {
	now := time.Now().UTC()
	return &Board{Name: name, CreatedAt: now, UpdatedAt: now}
}

// Validate checks the board invariants and trims the name.
func (b *Board) Validate() error {
	name := strings.TrimSpace(b.Name)
	if name == "" {
		return errs.Validation("name", "cannot be empty")
	}
	b.Name = name
	return nil
}

// StatusColumn is one lane on a board. Columns order by creation.
type StatusColumn struct {
	ID        int64     `json:"id"`
	BoardID   int64     `json:"board_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewColumn returns a column on the given board.
func NewColumn(boardID int64, name string) *StatusColumn {
	now := time.Now().UTC()
	return &StatusColumn{BoardID: boardID, Name: name, CreatedAt: now, UpdatedAt: now}
}

// Validate checks the column invariants and trims the name.
func (c *StatusColumn) Validate() error {
	v := &errs.ValidationError{}

	name := strings.TrimSpace(c.Name)
	if name == "" {
		v.Add("name", "cannot be empty")
	}
	if c.BoardID <= 0 {
		v.Add("board_id", "must reference a board")
	}

	if err := v.Err(); err != nil {
		return err
	}
	c.Name = name
	return nil
}
