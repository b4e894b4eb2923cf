package board

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/GoCodeAlone/foreman/errs"
)

const schema = `
CREATE TABLE IF NOT EXISTS boards (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS status_columns (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	board_id   INTEGER NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS tickets (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	column_id    INTEGER NOT NULL REFERENCES status_columns(id) ON DELETE CASCADE,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	assignee     TEXT NOT NULL DEFAULT '',
	conversation TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS ticket_comments (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	ticket_id  INTEGER NOT NULL REFERENCES tickets(id) ON DELETE CASCADE,
	author     TEXT NOT NULL,
	message    TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_columns_board ON status_columns(board_id);
CREATE INDEX IF NOT EXISTS idx_tickets_column ON tickets(column_id);
CREATE INDEX IF NOT EXISTS idx_comments_ticket ON ticket_comments(ticket_id);
`

// TicketFilter narrows ListTickets results.
type TicketFilter struct {
	ColumnID int64
	Assignee string
	Limit    int
	Offset   int
}

// SQLiteStore persists boards, columns, tickets, and comments on a shared
// database handle. Deletes cascade down the hierarchy.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore ensures the board tables exist on db.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create board schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// CreateBoard persists a new board and sets its ID and timestamps.
func (s *SQLiteStore) CreateBoard(b *Board) (int64, error) {
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	res, err := s.db.Exec(
		`INSERT INTO boards (name, created_at, updated_at) VALUES (?,?,?)`,
		b.Name, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert board: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("board id: %w", err)
	}
	b.ID = id
	return id, nil
}

// GetBoard retrieves a board by ID.
func (s *SQLiteStore) GetBoard(id int64) (*Board, error) {
	var b Board
	err := s.db.QueryRow(`SELECT * FROM boards WHERE id = ?`, id).
		Scan(&b.ID, &b.Name, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("board", id)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// UpdateBoard saves changes to an existing board.
func (s *SQLiteStore) UpdateBoard(b *Board) error {
	b.UpdatedAt = time.Now().UTC()
	res, err := s.db.Exec(
		`UPDATE boards SET name=?, updated_at=? WHERE id=?`,
		b.Name, b.UpdatedAt, b.ID,
	)
	if err != nil {
		return fmt.Errorf("update board: %w", err)
	}
	return checkFound(res, "board", b.ID)
}

// DeleteBoard removes a board and, via cascade, its columns, tickets, and
// comments.
func (s *SQLiteStore) DeleteBoard(id int64) error {
	res, err := s.db.Exec(`DELETE FROM boards WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	return checkFound(res, "board", id)
}

// ListBoards returns every board, oldest first.
func (s *SQLiteStore) ListBoards() ([]*Board, error) {
	rows, err := s.db.Query(`SELECT * FROM boards ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()

	var boards []*Board
	for rows.Next() {
		var b Board
		if err := rows.Scan(&b.ID, &b.Name, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		boards = append(boards, &b)
	}
	return boards, rows.Err()
}

// CreateColumn persists a new column and sets its ID and timestamps.
func (s *SQLiteStore) CreateColumn(c *StatusColumn) (int64, error) {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	res, err := s.db.Exec(
		`INSERT INTO status_columns (board_id, name, created_at, updated_at) VALUES (?,?,?,?)`,
		c.BoardID, c.Name, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert column: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("column id: %w", err)
	}
	c.ID = id
	return id, nil
}

// GetColumn retrieves a column by ID.
func (s *SQLiteStore) GetColumn(id int64) (*StatusColumn, error) {
	var c StatusColumn
	err := s.db.QueryRow(`SELECT * FROM status_columns WHERE id = ?`, id).
		Scan(&c.ID, &c.BoardID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("column", id)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateColumn saves changes to an existing column.
func (s *SQLiteStore) UpdateColumn(c *StatusColumn) error {
	c.UpdatedAt = time.Now().UTC()
	res, err := s.db.Exec(
		`UPDATE status_columns SET board_id=?, name=?, updated_at=? WHERE id=?`,
		c.BoardID, c.Name, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return fmt.Errorf("update column: %w", err)
	}
	return checkFound(res, "column", c.ID)
}

// DeleteColumn removes a column and, via cascade, its tickets.
func (s *SQLiteStore) DeleteColumn(id int64) error {
	res, err := s.db.Exec(`DELETE FROM status_columns WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete column: %w", err)
	}
	return checkFound(res, "column", id)
}

// ListColumns returns a board's columns in creation order.
func (s *SQLiteStore) ListColumns(boardID int64) ([]*StatusColumn, error) {
	rows, err := s.db.Query(
		`SELECT * FROM status_columns WHERE board_id = ? ORDER BY id ASC`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	defer rows.Close()

	var cols []*StatusColumn
	for rows.Next() {
		var c StatusColumn
		if err := rows.Scan(&c.ID, &c.BoardID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		cols = append(cols, &c)
	}
	return cols, rows.Err()
}

// CreateTicket persists a new ticket and sets its ID and timestamps.
func (s *SQLiteStore) CreateTicket(t *Ticket) (int64, error) {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	res, err := s.db.Exec(`
		INSERT INTO tickets (column_id, title, description, assignee, conversation, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?)`,
		t.ColumnID, t.Title, t.Description, t.Assignee, t.Conversation, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert ticket: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("ticket id: %w", err)
	}
	t.ID = id
	return id, nil
}

// GetTicket retrieves a ticket by ID.
func (s *SQLiteStore) GetTicket(id int64) (*Ticket, error) {
	var t Ticket
	err := s.db.QueryRow(`SELECT * FROM tickets WHERE id = ?`, id).
		Scan(&t.ID, &t.ColumnID, &t.Title, &t.Description, &t.Assignee, &t.Conversation,
			&t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("ticket", id)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTicket saves changes to an existing ticket, including column moves.
func (s *SQLiteStore) UpdateTicket(t *Ticket) error {
	t.UpdatedAt = time.Now().UTC()
	res, err := s.db.Exec(`
		UPDATE tickets SET column_id=?, title=?, description=?, assignee=?, conversation=?, updated_at=?
		WHERE id=?`,
		t.ColumnID, t.Title, t.Description, t.Assignee, t.Conversation, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update ticket: %w", err)
	}
	return checkFound(res, "ticket", t.ID)
}

// DeleteTicket removes a ticket and, via cascade, its comments.
func (s *SQLiteStore) DeleteTicket(id int64) error {
	res, err := s.db.Exec(`DELETE FROM tickets WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete ticket: %w", err)
	}
	return checkFound(res, "ticket", id)
}

// ListTickets returns tickets matching the filter, oldest first.
func (s *SQLiteStore) ListTickets(filter TicketFilter) ([]*Ticket, error) {
	q := strings.Builder{}
	q.WriteString("SELECT * FROM tickets WHERE 1=1")
	args := []any{}

	if filter.ColumnID > 0 {
		q.WriteString(" AND column_id=?")
		args = append(args, filter.ColumnID)
	}
	if filter.Assignee != "" {
		q.WriteString(" AND assignee=?")
		args = append(args, filter.Assignee)
	}
	q.WriteString(" ORDER BY created_at ASC, id ASC")
	if filter.Limit > 0 {
		q.WriteString(fmt.Sprintf(" LIMIT %d", filter.Limit))
		if filter.Offset > 0 {
			q.WriteString(fmt.Sprintf(" OFFSET %d", filter.Offset))
		}
	}

	rows, err := s.db.Query(q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*Ticket
	for rows.Next() {
		var t Ticket
		if err := rows.Scan(&t.ID, &t.ColumnID, &t.Title, &t.Description, &t.Assignee,
			&t.Conversation, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tickets = append(tickets, &t)
	}
	return tickets, rows.Err()
}

// CreateComment persists a new comment and sets its ID and timestamps.
func (s *SQLiteStore) CreateComment(c *TicketComment) (int64, error) {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	res, err := s.db.Exec(`
		INSERT INTO ticket_comments (ticket_id, author, message, created_at, updated_at)
		VALUES (?,?,?,?,?)`,
		c.TicketID, c.Author, c.Message, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("comment id: %w", err)
	}
	c.ID = id
	return id, nil
}

// GetComment retrieves a comment by ID.
func (s *SQLiteStore) GetComment(id int64) (*TicketComment, error) {
	var c TicketComment
	err := s.db.QueryRow(`SELECT * FROM ticket_comments WHERE id = ?`, id).
		Scan(&c.ID, &c.TicketID, &c.Author, &c.Message, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("comment", id)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateComment saves changes to an existing comment.
func (s *SQLiteStore) UpdateComment(c *TicketComment) error {
	c.UpdatedAt = time.Now().UTC()
	res, err := s.db.Exec(
		`UPDATE ticket_comments SET message=?, updated_at=? WHERE id=?`,
		c.Message, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	return checkFound(res, "comment", c.ID)
}

// DeleteComment removes a comment.
func (s *SQLiteStore) DeleteComment(id int64) error {
	res, err := s.db.Exec(`DELETE FROM ticket_comments WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return checkFound(res, "comment", id)
}

// ListComments returns a ticket's comments in thread order.
func (s *SQLiteStore) ListComments(ticketID int64) ([]*TicketComment, error) {
	rows, err := s.db.Query(
		`SELECT * FROM ticket_comments WHERE ticket_id = ? ORDER BY created_at ASC, id ASC`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var comments []*TicketComment
	for rows.Next() {
		var c TicketComment
		if err := rows.Scan(&c.ID, &c.TicketID, &c.Author, &c.Message, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}

// checkFound converts a zero-row update or delete into a not-found error.
func checkFound(res sql.Result, kind string, id int64) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errs.NotFound(kind, id)
	}
	return nil
}
