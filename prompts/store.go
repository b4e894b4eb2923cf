package prompts

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/GoCodeAlone/foreman/errs"
)

const schema = `
CREATE TABLE IF NOT EXISTS task_prompts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	prompt_template TEXT NOT NULL,
	variables TEXT NOT NULL DEFAULT '[]',
	task_type TEXT NOT NULL,
	version INTEGER NOT NULL DEFAULT 1,
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS resume_prompts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	prompt_template TEXT NOT NULL,
	variables TEXT NOT NULL DEFAULT '[]',
	persona_type TEXT NOT NULL,
	version INTEGER NOT NULL DEFAULT 1,
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_task_prompts_type ON task_prompts(task_type);
CREATE INDEX IF NOT EXISTS idx_resume_prompts_type ON resume_prompts(persona_type);
`

// TaskPromptFilter narrows ListTaskPrompts.
type TaskPromptFilter struct {
	TaskType   string
	ActiveOnly bool
	Limit      int
	Offset     int
}

// ResumePromptFilter narrows ListResumePrompts.
type ResumePromptFilter struct {
	PersonaType string
	ActiveOnly  bool
	Limit       int
	Offset      int
}

// SQLiteStore persists prompt templates.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore initializes the prompt tables on db.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create prompt tables: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// CreateTaskPrompt validates and inserts a template. Names are unique.
func (s *SQLiteStore) CreateTaskPrompt(p *TaskPrompt) error {
	if err := p.Validate(); err != nil {
		return err
	}

	vars, err := json.Marshal(p.Variables)
	if err != nil {
		return fmt.Errorf("marshal variables: %w", err)
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	res, err := s.db.Exec(`
		INSERT INTO task_prompts (name, description, prompt_template, variables,
			task_type, version, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Description, p.Template, string(vars),
		p.TaskType, p.Version, p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return errs.Domain("task prompt %q already exists", p.Name)
		}
		return fmt.Errorf("insert task prompt: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("task prompt id: %w", err)
	}
	p.ID = id
	return nil
}

const taskPromptColumns = `id, name, description, prompt_template, variables,
	task_type, version, is_active, created_at, updated_at`

// GetTaskPrompt returns the template with the given ID.
func (s *SQLiteStore) GetTaskPrompt(id int64) (*TaskPrompt, error) {
	row := s.db.QueryRow(`SELECT `+taskPromptColumns+` FROM task_prompts WHERE id = ?`, id)
	p, err := scanTaskPrompt(row)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("task prompt", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get task prompt %d: %w", id, err)
	}
	return p, nil
}

// GetTaskPromptByName returns the template with the given unique name.
func (s *SQLiteStore) GetTaskPromptByName(name string) (*TaskPrompt, error) {
	row := s.db.QueryRow(`SELECT `+taskPromptColumns+` FROM task_prompts WHERE name = ?`, strings.TrimSpace(name))
	p, err := scanTaskPrompt(row)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("task prompt", name)
	}
	if err != nil {
		return nil, fmt.Errorf("get task prompt %q: %w", name, err)
	}
	return p, nil
}

// UpdateTaskPrompt validates and writes back a template, bumping its version.
func (s *SQLiteStore) UpdateTaskPrompt(p *TaskPrompt) error {
	if err := p.Validate(); err != nil {
		return err
	}

	vars, err := json.Marshal(p.Variables)
	if err != nil {
		return fmt.Errorf("marshal variables: %w", err)
	}
	p.Version++
	p.UpdatedAt = time.Now().UTC()

	res, err := s.db.Exec(`
		UPDATE task_prompts
		SET name = ?, description = ?, prompt_template = ?, variables = ?,
			task_type = ?, version = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Description, p.Template, string(vars),
		p.TaskType, p.Version, p.IsActive, p.UpdatedAt, p.ID,
	)
	if err != nil {
		p.Version--
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return errs.Domain("task prompt %q already exists", p.Name)
		}
		return fmt.Errorf("update task prompt %d: %w", p.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task prompt %d: %w", p.ID, err)
	}
	if n == 0 {
		p.Version--
		return errs.NotFound("task prompt", p.ID)
	}
	return nil
}

// ListTaskPrompts returns templates matching the filter, by name.
func (s *SQLiteStore) ListTaskPrompts(f TaskPromptFilter) ([]*TaskPrompt, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + taskPromptColumns + ` FROM task_prompts WHERE 1=1`)
	var args []any

	if f.TaskType != "" {
		sb.WriteString(" AND task_type = ?")
		args = append(args, strings.ToLower(strings.TrimSpace(f.TaskType)))
	}
	if f.ActiveOnly {
		sb.WriteString(" AND is_active = 1")
	}
	sb.WriteString(" ORDER BY name ASC")
	if f.Limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT %d", f.Limit))
		if f.Offset > 0 {
			sb.WriteString(fmt.Sprintf(" OFFSET %d", f.Offset))
		}
	}

	rows, err := s.db.Query(sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list task prompts: %w", err)
	}
	defer rows.Close()

	var out []*TaskPrompt
	for rows.Next() {
		p, err := scanTaskPrompt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task prompt: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteTaskPrompt removes a template.
func (s *SQLiteStore) DeleteTaskPrompt(id int64) error {
	res, err := s.db.Exec(`DELETE FROM task_prompts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task prompt %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task prompt %d: %w", id, err)
	}
	if n == 0 {
		return errs.NotFound("task prompt", id)
	}
	return nil
}

// CreateResumePrompt validates and inserts a template. Names are unique.
func (s *SQLiteStore) CreateResumePrompt(p *ResumePrompt) error {
	if err := p.Validate(); err != nil {
		return err
	}

	vars, err := json.Marshal(p.Variables)
	if err != nil {
		return fmt.Errorf("marshal variables: %w", err)
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	res, err := s.db.Exec(`
		INSERT INTO resume_prompts (name, description, prompt_template, variables,
			persona_type, version, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Description, p.Template, string(vars),
		p.PersonaType, p.Version, p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return errs.Domain("resume prompt %q already exists", p.Name)
		}
		return fmt.Errorf("insert resume prompt: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("resume prompt id: %w", err)
	}
	p.ID = id
	return nil
}

const resumePromptColumns = `id, name, description, prompt_template, variables,
	persona_type, version, is_active, created_at, updated_at`

// GetResumePrompt returns the template with the given ID.
func (s *SQLiteStore) GetResumePrompt(id int64) (*ResumePrompt, error) {
	row := s.db.QueryRow(`SELECT `+resumePromptColumns+` FROM resume_prompts WHERE id = ?`, id)
	p, err := scanResumePrompt(row)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("resume prompt", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get resume prompt %d: %w", id, err)
	}
	return p, nil
}

// GetResumePromptByName returns the template with the given unique name.
func (s *SQLiteStore) GetResumePromptByName(name string) (*ResumePrompt, error) {
	row := s.db.QueryRow(`SELECT `+resumePromptColumns+` FROM resume_prompts WHERE name = ?`, strings.TrimSpace(name))
	p, err := scanResumePrompt(row)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("resume prompt", name)
	}
	if err != nil {
		return nil, fmt.Errorf("get resume prompt %q: %w", name, err)
	}
	return p, nil
}

// UpdateResumePrompt validates and writes back a template, bumping its
// version.
func (s *SQLiteStore) UpdateResumePrompt(p *ResumePrompt) error {
	if err := p.Validate(); err != nil {
		return err
	}

	vars, err := json.Marshal(p.Variables)
	if err != nil {
		return fmt.Errorf("marshal variables: %w", err)
	}
	p.Version++
	p.UpdatedAt = time.Now().UTC()

	res, err := s.db.Exec(`
		UPDATE resume_prompts
		SET name = ?, description = ?, prompt_template = ?, variables = ?,
			persona_type = ?, version = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Description, p.Template, string(vars),
		p.PersonaType, p.Version, p.IsActive, p.UpdatedAt, p.ID,
	)
	if err != nil {
		p.Version--
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return errs.Domain("resume prompt %q already exists", p.Name)
		}
		return fmt.Errorf("update resume prompt %d: %w", p.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update resume prompt %d: %w", p.ID, err)
	}
	if n == 0 {
		p.Version--
		return errs.NotFound("resume prompt", p.ID)
	}
	return nil
}

// ListResumePrompts returns templates matching the filter, by name.
func (s *SQLiteStore) ListResumePrompts(f ResumePromptFilter) ([]*ResumePrompt, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + resumePromptColumns + ` FROM resume_prompts WHERE 1=1`)
	var args []any

	if f.PersonaType != "" {
		t := strings.ToLower(strings.TrimSpace(f.PersonaType))
		sb.WriteString(" AND persona_type = ?")
		args = append(args, strings.ReplaceAll(t, "-", "_"))
	}
	if f.ActiveOnly {
		sb.WriteString(" AND is_active = 1")
	}
	sb.WriteString(" ORDER BY name ASC")
	if f.Limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT %d", f.Limit))
		if f.Offset > 0 {
			sb.WriteString(fmt.Sprintf(" OFFSET %d", f.Offset))
		}
	}

	rows, err := s.db.Query(sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list resume prompts: %w", err)
	}
	defer rows.Close()

	var out []*ResumePrompt
	for rows.Next() {
		p, err := scanResumePrompt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan resume prompt: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteResumePrompt removes a template.
func (s *SQLiteStore) DeleteResumePrompt(id int64) error {
	res, err := s.db.Exec(`DELETE FROM resume_prompts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete resume prompt %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete resume prompt %d: %w", id, err)
	}
	if n == 0 {
		return errs.NotFound("resume prompt", id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTaskPrompt(sc scanner) (*TaskPrompt, error) {
	var p TaskPrompt
	var vars string
	if err := sc.Scan(&p.ID, &p.Name, &p.Description, &p.Template, &vars,
		&p.TaskType, &p.Version, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(vars), &p.Variables); err != nil {
		return nil, fmt.Errorf("unmarshal variables: %w", err)
	}
	return &p, nil
}

func scanResumePrompt(sc scanner) (*ResumePrompt, error) {
	var p ResumePrompt
	var vars string
	if err := sc.Scan(&p.ID, &p.Name, &p.Description, &p.Template, &vars,
		&p.PersonaType, &p.Version, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(vars), &p.Variables); err != nil {
		return nil, fmt.Errorf("unmarshal variables: %w", err)
	}
	return &p, nil
}
