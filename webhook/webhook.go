// Package webhook delivers lifecycle events to registered HTTP endpoints.
// Registrations bind a URL to an event code (or the wildcard); the dispatcher
// subscribes to the bus and POSTs matching events as JSON.
package webhook

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/GoCodeAlone/foreman/comms"
	"github.com/GoCodeAlone/foreman/errs"
)

// Webhook is one registered endpoint. EventCode may be a concrete code or
// comms.MatchAll to receive everything.
type Webhook struct {
	ID        int64      `json:"id"`
	URL       string     `json:"url"`
	EventCode comms.Code `json:"event_code"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
}

// New returns an active registration.
func New(rawURL string, code comms.Code) *Webhook {
	return &Webhook{
		URL:       rawURL,
		EventCode: code,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
}

// Validate checks the registration's invariants and trims the URL.
func (w *Webhook) Validate() error {
	v := &errs.ValidationError{}

	rawURL := strings.TrimSpace(w.URL)
	if rawURL == "" {
		v.Add("url", "cannot be empty")
	} else if u, err := url.Parse(rawURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		v.Add("url", "must be an absolute http or https URL")
	}
	code := comms.Code(strings.TrimSpace(string(w.EventCode)))
	if code == "" {
		v.Add("event_code", "cannot be empty")
	} else if !code.Known() {
		v.Add("event_code", "unknown event code %q", code)
	}

	if err := v.Err(); err != nil {
		return err
	}

	w.URL = rawURL
	w.EventCode = code
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS webhooks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	url TEXT NOT NULL,
	event_code TEXT NOT NULL,
	active INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_webhooks_code ON webhooks(event_code);
`

// Filter narrows List.
type Filter struct {
	EventCode  comms.Code
	ActiveOnly bool
}

// SQLiteStore persists webhook registrations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore initializes the webhook table on db.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create webhook table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Create validates and inserts a registration.
func (s *SQLiteStore) Create(w *Webhook) error {
	if err := w.Validate(); err != nil {
		return err
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.Exec(`INSERT INTO webhooks (url, event_code, active, created_at) VALUES (?, ?, ?, ?)`,
		w.URL, w.EventCode, w.Active, w.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert webhook: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("webhook id: %w", err)
	}
	w.ID = id
	return nil
}

// Get returns the registration with the given ID.
func (s *SQLiteStore) Get(id int64) (*Webhook, error) {
	row := s.db.QueryRow(`SELECT id, url, event_code, active, created_at FROM webhooks WHERE id = ?`, id)
	w, err := scanWebhook(row)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("webhook", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get webhook %d: %w", id, err)
	}
	return w, nil
}

// Update validates and writes back a registration.
func (s *SQLiteStore) Update(w *Webhook) error {
	if err := w.Validate(); err != nil {
		return err
	}

	res, err := s.db.Exec(`UPDATE webhooks SET url = ?, event_code = ?, active = ? WHERE id = ?`,
		w.URL, w.EventCode, w.Active, w.ID)
	if err != nil {
		return fmt.Errorf("update webhook %d: %w", w.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update webhook %d: %w", w.ID, err)
	}
	if n == 0 {
		return errs.NotFound("webhook", w.ID)
	}
	return nil
}

// List returns registrations matching the filter, oldest first.
func (s *SQLiteStore) List(f Filter) ([]*Webhook, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, url, event_code, active, created_at FROM webhooks WHERE 1=1`)
	var args []any

	if f.EventCode != "" {
		sb.WriteString(" AND event_code = ?")
		args = append(args, f.EventCode)
	}
	if f.ActiveOnly {
		sb.WriteString(" AND active = 1")
	}
	sb.WriteString(" ORDER BY created_at ASC, id ASC")

	rows, err := s.db.Query(sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	defer rows.Close()

	var hooks []*Webhook
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan webhook: %w", err)
		}
		hooks = append(hooks, w)
	}
	return hooks, rows.Err()
}

// Matching returns the active registrations that should receive an event
// with the given code, including wildcard registrations.
func (s *SQLiteStore) Matching(code comms.Code) ([]*Webhook, error) {
	rows, err := s.db.Query(`SELECT id, url, event_code, active, created_at FROM webhooks
		WHERE active = 1 AND (event_code = ? OR event_code = ?)
		ORDER BY created_at ASC, id ASC`, code, comms.MatchAll)
	if err != nil {
		return nil, fmt.Errorf("matching webhooks: %w", err)
	}
	defer rows.Close()

	var hooks []*Webhook
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan webhook: %w", err)
		}
		hooks = append(hooks, w)
	}
	return hooks, rows.Err()
}

// Delete removes a registration.
func (s *SQLiteStore) Delete(id int64) error {
	res, err := s.db.Exec(`DELETE FROM webhooks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete webhook %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete webhook %d: %w", id, err)
	}
	if n == 0 {
		return errs.NotFound("webhook", id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWebhook(sc scanner) (*Webhook, error) {
	var w Webhook
	if err := sc.Scan(&w.ID, &w.URL, &w.EventCode, &w.Active, &w.CreatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}
