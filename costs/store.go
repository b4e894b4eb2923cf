package costs

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/GoCodeAlone/foreman/errs"
)

const schema = `
CREATE TABLE IF NOT EXISTS model_catalog (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	provider TEXT NOT NULL,
	cost_per_input_token REAL NOT NULL,
	cost_per_output_token REAL NOT NULL,
	context_limit INTEGER NOT NULL,
	performance_tier TEXT NOT NULL,
	capabilities TEXT NOT NULL DEFAULT '[]',
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS execution_costs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	agent_id INTEGER NOT NULL,
	task_id INTEGER,
	model_name TEXT NOT NULL,
	execution_type TEXT NOT NULL,
	input_tokens INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	total_cost REAL NOT NULL DEFAULT 0,
	execution_time_ms INTEGER,
	consensus_round INTEGER NOT NULL DEFAULT 1,
	metadata TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_execution_costs_agent ON execution_costs(agent_id);
CREATE INDEX IF NOT EXISTS idx_execution_costs_task ON execution_costs(task_id);
`

// ModelFilter narrows ListModels.
type ModelFilter struct {
	Provider   string
	Tier       *PerformanceTier
	ActiveOnly bool
	Limit      int
	Offset     int
}

// ExecutionFilter narrows ListExecutions.
type ExecutionFilter struct {
	AgentID       int64
	TaskID        int64
	ExecutionType string
	Limit         int
	Offset        int
}

// Spend aggregates execution records for one agent or task.
type Spend struct {
	TotalCost    float64 `json:"total_cost"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	Executions   int64   `json:"executions"`
}

// SQLiteStore persists the model catalog and execution records.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore initializes the cost tables on db.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create cost tables: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// CreateModel validates and inserts a catalog entry. Model names are unique
// across the catalog.
func (s *SQLiteStore) CreateModel(m *Model) error {
	if err := m.Validate(); err != nil {
		return err
	}

	caps, err := json.Marshal(m.Capabilities)
	if err != nil {
		return fmt.Errorf("marshal capabilities: %w", err)
	}

	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	res, err := s.db.Exec(`
		INSERT INTO model_catalog (name, provider, cost_per_input_token, cost_per_output_token,
			context_limit, performance_tier, capabilities, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Name, m.Provider, m.CostPerInputToken, m.CostPerOutputToken,
		m.ContextLimit, m.PerformanceTier, string(caps), m.IsActive, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return errs.Domain("model %q is already registered", m.Name)
		}
		return fmt.Errorf("insert model: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("model id: %w", err)
	}
	m.ID = id
	return nil
}

const modelColumns = `id, name, provider, cost_per_input_token, cost_per_output_token,
	context_limit, performance_tier, capabilities, is_active, created_at, updated_at`

// GetModel returns the catalog entry with the given ID.
func (s *SQLiteStore) GetModel(id int64) (*Model, error) {
	row := s.db.QueryRow(`SELECT `+modelColumns+` FROM model_catalog WHERE id = ?`, id)
	m, err := scanModel(row)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("model", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get model %d: %w", id, err)
	}
	return m, nil
}

// GetModelByName returns the catalog entry with the given unique name.
func (s *SQLiteStore) GetModelByName(name string) (*Model, error) {
	row := s.db.QueryRow(`SELECT `+modelColumns+` FROM model_catalog WHERE name = ?`, strings.TrimSpace(name))
	m, err := scanModel(row)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("model", name)
	}
	if err != nil {
		return nil, fmt.Errorf("get model %q: %w", name, err)
	}
	return m, nil
}

// UpdateModel validates and writes back a catalog entry.
func (s *SQLiteStore) UpdateModel(m *Model) error {
	if err := m.Validate(); err != nil {
		return err
	}

	caps, err := json.Marshal(m.Capabilities)
	if err != nil {
		return fmt.Errorf("marshal capabilities: %w", err)
	}
	m.UpdatedAt = time.Now().UTC()

	res, err := s.db.Exec(`
		UPDATE model_catalog
		SET name = ?, provider = ?, cost_per_input_token = ?, cost_per_output_token = ?,
			context_limit = ?, performance_tier = ?, capabilities = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		m.Name, m.Provider, m.CostPerInputToken, m.CostPerOutputToken,
		m.ContextLimit, m.PerformanceTier, string(caps), m.IsActive, m.UpdatedAt, m.ID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return errs.Domain("model %q is already registered", m.Name)
		}
		return fmt.Errorf("update model %d: %w", m.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update model %d: %w", m.ID, err)
	}
	if n == 0 {
		return errs.NotFound("model", m.ID)
	}
	return nil
}

// ListModels returns catalog entries matching the filter, cheapest-to-run
// first within a name ordering fallback.
func (s *SQLiteStore) ListModels(f ModelFilter) ([]*Model, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + modelColumns + ` FROM model_catalog WHERE 1=1`)
	var args []any

	if f.Provider != "" {
		sb.WriteString(" AND provider = ?")
		args = append(args, strings.ToLower(strings.TrimSpace(f.Provider)))
	}
	if f.Tier != nil {
		sb.WriteString(" AND performance_tier = ?")
		args = append(args, *f.Tier)
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
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	var models []*Model
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		models = append(models, m)
	}
	return models, rows.Err()
}

// DeleteModel removes a catalog entry. Execution records keep the model name
// and survive the delete.
func (s *SQLiteStore) DeleteModel(id int64) error {
	res, err := s.db.Exec(`DELETE FROM model_catalog WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete model %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete model %d: %w", id, err)
	}
	if n == 0 {
		return errs.NotFound("model", id)
	}
	return nil
}

// CreateExecution validates and appends an execution record. Records are a
// ledger: there is no update or delete.
func (s *SQLiteStore) CreateExecution(e *Execution) error {
	if err := e.Validate(); err != nil {
		return err
	}

	meta, err := json.Marshal(orEmptyMap(e.Metadata))
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.Exec(`
		INSERT INTO execution_costs (agent_id, task_id, model_name, execution_type,
			input_tokens, output_tokens, total_cost, execution_time_ms, consensus_round,
			metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.AgentID, e.TaskID, e.ModelName, e.ExecutionType,
		e.InputTokens, e.OutputTokens, e.TotalCost, e.ExecutionTimeMS, e.ConsensusRound,
		string(meta), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("execution id: %w", err)
	}
	e.ID = id
	return nil
}

const executionColumns = `id, agent_id, task_id, model_name, execution_type,
	input_tokens, output_tokens, total_cost, execution_time_ms, consensus_round,
	metadata, created_at`

// GetExecution returns the execution record with the given ID.
func (s *SQLiteStore) GetExecution(id int64) (*Execution, error) {
	row := s.db.QueryRow(`SELECT `+executionColumns+` FROM execution_costs WHERE id = ?`, id)
	e, err := scanExecution(row)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("execution", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get execution %d: %w", id, err)
	}
	return e, nil
}

// ListExecutions returns execution records matching the filter, most recent
// first.
func (s *SQLiteStore) ListExecutions(f ExecutionFilter) ([]*Execution, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + executionColumns + ` FROM execution_costs WHERE 1=1`)
	var args []any

	if f.AgentID > 0 {
		sb.WriteString(" AND agent_id = ?")
		args = append(args, f.AgentID)
	}
	if f.TaskID > 0 {
		sb.WriteString(" AND task_id = ?")
		args = append(args, f.TaskID)
	}
	if f.ExecutionType != "" {
		sb.WriteString(" AND execution_type = ?")
		args = append(args, strings.ToLower(strings.TrimSpace(f.ExecutionType)))
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
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var execs []*Execution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		execs = append(execs, e)
	}
	return execs, rows.Err()
}

// AgentSpend totals every execution recorded against the agent.
func (s *SQLiteStore) AgentSpend(agentID int64) (*Spend, error) {
	return s.spend(`SELECT COALESCE(SUM(total_cost), 0), COALESCE(SUM(input_tokens), 0),
		COALESCE(SUM(output_tokens), 0), COUNT(*) FROM execution_costs WHERE agent_id = ?`, agentID)
}

// TaskSpend totals every execution recorded against the task.
func (s *SQLiteStore) TaskSpend(taskID int64) (*Spend, error) {
	return s.spend(`SELECT COALESCE(SUM(total_cost), 0), COALESCE(SUM(input_tokens), 0),
		COALESCE(SUM(output_tokens), 0), COUNT(*) FROM execution_costs WHERE task_id = ?`, taskID)
}

func (s *SQLiteStore) spend(query string, arg any) (*Spend, error) {
	var sp Spend
	err := s.db.QueryRow(query, arg).Scan(&sp.TotalCost, &sp.InputTokens, &sp.OutputTokens, &sp.Executions)
	if err != nil {
		return nil, fmt.Errorf("sum spend: %w", err)
	}
	return &sp, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanModel(sc scanner) (*Model, error) {
	var m Model
	var caps string
	if err := sc.Scan(&m.ID, &m.Name, &m.Provider, &m.CostPerInputToken, &m.CostPerOutputToken,
		&m.ContextLimit, &m.PerformanceTier, &caps, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(caps), &m.Capabilities); err != nil {
		return nil, fmt.Errorf("unmarshal capabilities: %w", err)
	}
	return &m, nil
}

func scanExecution(sc scanner) (*Execution, error) {
	var e Execution
	var taskID sql.NullInt64
	var timeMS sql.NullInt64
	var meta string
	if err := sc.Scan(&e.ID, &e.AgentID, &taskID, &e.ModelName, &e.ExecutionType,
		&e.InputTokens, &e.OutputTokens, &e.TotalCost, &timeMS, &e.ConsensusRound,
		&meta, &e.CreatedAt); err != nil {
		return nil, err
	}
	if taskID.Valid {
		e.TaskID = &taskID.Int64
	}
	if timeMS.Valid {
		ms := int(timeMS.Int64)
		e.ExecutionTimeMS = &ms
	}
	if err := json.Unmarshal([]byte(meta), &e.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return &e, nil
}

func orEmptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
