package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/GoCodeAlone/foreman/errs"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	entity_type TEXT NOT NULL,
	entity_id INTEGER NOT NULL,
	action TEXT NOT NULL,
	actor_type TEXT NOT NULL,
	actor_id INTEGER,
	old_values TEXT,
	new_values TEXT,
	metadata TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_logs_entity ON audit_logs(entity_type, entity_id);
CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at);
`

// Filter narrows List.
type Filter struct {
	EntityType EntityType
	EntityID   int64
	Action     Action
	ActorType  ActorType
	Since      time.Time
	Until      time.Time
	Limit      int
	Offset     int
}

// SQLiteStore persists the audit trail.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore initializes the audit table on db.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create audit table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Record validates and appends an entry.
func (s *SQLiteStore) Record(e *Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	oldVals, err := marshalNullable(e.OldValues)
	if err != nil {
		return fmt.Errorf("marshal old values: %w", err)
	}
	newVals, err := marshalNullable(e.NewValues)
	if err != nil {
		return fmt.Errorf("marshal new values: %w", err)
	}
	meta := e.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.Exec(`
		INSERT INTO audit_logs (entity_type, entity_id, action, actor_type, actor_id,
			old_values, new_values, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.EntityType, e.EntityID, e.Action, e.ActorType, e.ActorID,
		oldVals, newVals, string(metaJSON), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("audit entry id: %w", err)
	}
	e.ID = id
	return nil
}

const entryColumns = `id, entity_type, entity_id, action, actor_type, actor_id,
	old_values, new_values, metadata, created_at`

// Get returns the entry with the given ID.
func (s *SQLiteStore) Get(id int64) (*Entry, error) {
	row := s.db.QueryRow(`SELECT `+entryColumns+` FROM audit_logs WHERE id = ?`, id)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("audit entry", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get audit entry %d: %w", id, err)
	}
	return e, nil
}

// List returns entries matching the filter, most recent first.
func (s *SQLiteStore) List(f Filter) ([]*Entry, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + entryColumns + ` FROM audit_logs WHERE 1=1`)
	var args []any

	if f.EntityType != "" {
		sb.WriteString(" AND entity_type = ?")
		args = append(args, f.EntityType)
	}
	if f.EntityID > 0 {
		sb.WriteString(" AND entity_id = ?")
		args = append(args, f.EntityID)
	}
	if f.Action != "" {
		sb.WriteString(" AND action = ?")
		args = append(args, f.Action)
	}
	if f.ActorType != "" {
		sb.WriteString(" AND actor_type = ?")
		args = append(args, f.ActorType)
	}
	if !f.Since.IsZero() {
		sb.WriteString(" AND created_at >= ?")
		args = append(args, f.Since)
	}
	if !f.Until.IsZero() {
		sb.WriteString(" AND created_at <= ?")
		args = append(args, f.Until)
	}
	sb.WriteString(" ORDER BY created_at DESC, id DESC")
	if f.Limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT %d", f.Limit))
		if f.Offset > 0 {
			sb.WriteString(fmt.Sprintf(" OFFSET %d", f.Offset))
		}
	}

	rows, err := s.db.Query(sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// EntityHistory returns the full trail for one entity, oldest first, so the
// result reads as a changelog.
func (s *SQLiteStore) EntityHistory(entityType EntityType, entityID int64) ([]*Entry, error) {
	rows, err := s.db.Query(`SELECT `+entryColumns+` FROM audit_logs
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY created_at ASC, id ASC`, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("entity history: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (*Entry, error) {
	var e Entry
	var actorID sql.NullInt64
	var oldVals, newVals sql.NullString
	var meta string
	if err := sc.Scan(&e.ID, &e.EntityType, &e.EntityID, &e.Action, &e.ActorType,
		&actorID, &oldVals, &newVals, &meta, &e.CreatedAt); err != nil {
		return nil, err
	}
	if actorID.Valid {
		e.ActorID = &actorID.Int64
	}
	if err := unmarshalNullable(oldVals, &e.OldValues); err != nil {
		return nil, fmt.Errorf("unmarshal old values: %w", err)
	}
	if err := unmarshalNullable(newVals, &e.NewValues); err != nil {
		return nil, fmt.Errorf("unmarshal new values: %w", err)
	}
	if err := json.Unmarshal([]byte(meta), &e.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return &e, nil
}

func marshalNullable(m map[string]any) (any, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func unmarshalNullable(s sql.NullString, dst *map[string]any) error {
	if !s.Valid {
		return nil
	}
	return json.Unmarshal([]byte(s.String), dst)
}
