package agent

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/GoCodeAlone/foreman/errs"
)

const schema = `
CREATE TABLE IF NOT EXISTS agents (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	name                 TEXT NOT NULL,
	resume_id            INTEGER NOT NULL,
	job_description_id   INTEGER NOT NULL,
	model_name           TEXT NOT NULL,
	status               TEXT NOT NULL DEFAULT 'active',
	configuration        TEXT NOT NULL DEFAULT '{}',
	execution_parameters TEXT NOT NULL DEFAULT '{}',
	performance_metrics  TEXT NOT NULL DEFAULT '{}',
	created_at           DATETIME NOT NULL,
	updated_at           DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_agents_status ON agents(status);
`

// Filter narrows List results. Nil or zero fields match everything.
type Filter struct {
	Status           *Status
	JobDescriptionID int64
	Limit            int
	Offset           int
}

// SQLiteStore persists agents on a shared database handle.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore ensures the agents table exists on db.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create agent schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Create persists a new agent and sets its ID, CreatedAt, and UpdatedAt.
func (s *SQLiteStore) Create(a *Agent) (int64, error) {
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	config, _ := json.Marshal(a.Configuration)
	params, _ := json.Marshal(a.ExecutionParams)
	metrics, _ := json.Marshal(a.PerformanceMetrics)

	res, err := s.db.Exec(`
		INSERT INTO agents
			(name, resume_id, job_description_id, model_name, status,
			 configuration, execution_parameters, performance_metrics,
			 created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		a.Name, a.ResumeID, a.JobDescriptionID, a.ModelName, string(a.Status),
		string(config), string(params), string(metrics),
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert agent: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("agent id: %w", err)
	}
	a.ID = id
	return id, nil
}

// Get retrieves an agent by ID.
func (s *SQLiteStore) Get(id int64) (*Agent, error) {
	row := s.db.QueryRow(`SELECT * FROM agents WHERE id = ?`, id)
	a, err := scanAgent(row)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("agent", id)
	}
	return a, err
}

// Update saves changes to an existing agent, updating UpdatedAt
// automatically.
func (s *SQLiteStore) Update(a *Agent) error {
	a.UpdatedAt = time.Now().UTC()

	config, _ := json.Marshal(a.Configuration)
	params, _ := json.Marshal(a.ExecutionParams)
	metrics, _ := json.Marshal(a.PerformanceMetrics)

	res, err := s.db.Exec(`
		UPDATE agents SET
			name=?, resume_id=?, job_description_id=?, model_name=?, status=?,
			configuration=?, execution_parameters=?, performance_metrics=?, updated_at=?
		WHERE id=?`,
		a.Name, a.ResumeID, a.JobDescriptionID, a.ModelName, string(a.Status),
		string(config), string(params), string(metrics), a.UpdatedAt,
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("update agent: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errs.NotFound("agent", a.ID)
	}
	return nil
}

// List returns agents matching the filter, oldest first.
func (s *SQLiteStore) List(filter Filter) ([]*Agent, error) {
	q := strings.Builder{}
	q.WriteString("SELECT * FROM agents WHERE 1=1")
	args := []any{}

	if filter.Status != nil {
		q.WriteString(" AND status=?")
		args = append(args, string(*filter.Status))
	}
	if filter.JobDescriptionID > 0 {
		q.WriteString(" AND job_description_id=?")
		args = append(args, filter.JobDescriptionID)
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
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []*Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// Delete removes an agent by ID.
func (s *SQLiteStore) Delete(id int64) error {
	res, err := s.db.Exec("DELETE FROM agents WHERE id=?", id)
	if err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errs.NotFound("agent", id)
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows for scanAgent.
type scanner interface {
	Scan(dest ...any) error
}

func scanAgent(s scanner) (*Agent, error) {
	var a Agent
	var status, configJSON, paramsJSON, metricsJSON string

	err := s.Scan(
		&a.ID, &a.Name, &a.ResumeID, &a.JobDescriptionID, &a.ModelName, &status,
		&configJSON, &paramsJSON, &metricsJSON,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Status = Status(status)
	_ = json.Unmarshal([]byte(configJSON), &a.Configuration)
	_ = json.Unmarshal([]byte(paramsJSON), &a.ExecutionParams)
	_ = json.Unmarshal([]byte(metricsJSON), &a.PerformanceMetrics)
	return &a, nil
}
