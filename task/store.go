package task

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/GoCodeAlone/foreman/errs"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	title           TEXT NOT NULL,
	description     TEXT NOT NULL,
	external_ref    TEXT NOT NULL DEFAULT '',
	parent_id       INTEGER,
	status          TEXT NOT NULL,
	priority        TEXT NOT NULL DEFAULT 'medium',
	required_skills TEXT NOT NULL DEFAULT '[]',
	estimated_cost  REAL,
	actual_cost     REAL,
	dependencies    TEXT NOT NULL DEFAULT '[]',
	blockers        TEXT NOT NULL DEFAULT '[]',
	metadata        TEXT NOT NULL DEFAULT '{}',
	created_at      DATETIME NOT NULL,
	updated_at      DATETIME NOT NULL,
	completed_at    DATETIME,
	deadline        DATETIME
);

CREATE TABLE IF NOT EXISTS task_assignments (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id          INTEGER NOT NULL,
	agent_id         INTEGER NOT NULL,
	status           TEXT NOT NULL,
	assigned_at      DATETIME NOT NULL,
	capability_score REAL NOT NULL DEFAULT 0,
	cost_estimate    REAL,
	actual_cost      REAL,
	completion_notes TEXT NOT NULL DEFAULT '',
	quality_score    REAL,
	created_at       DATETIME NOT NULL,
	updated_at       DATETIME NOT NULL,
	completed_at     DATETIME
);

CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_assignments_task ON task_assignments(task_id);
CREATE INDEX IF NOT EXISTS idx_assignments_agent ON task_assignments(agent_id);
`

// priorityRank orders the textual priorities for SQL sorting.
const priorityRank = `CASE priority WHEN 'urgent' THEN 3 WHEN 'high' THEN 2 WHEN 'medium' THEN 1 ELSE 0 END`

// Filter narrows List results. Nil or zero fields match everything.
type Filter struct {
	Status      *Status
	Priority    *Priority
	ParentID    *int64
	ExternalRef string
	Limit       int
	Offset      int
}

// AssignmentFilter narrows ListAssignments results.
type AssignmentFilter struct {
	TaskID  int64
	AgentID int64
	Status  *AssignmentStatus
	Limit   int
	Offset  int
}

// SQLiteStore persists tasks and assignments on a shared database handle.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore ensures the task tables exist on db. The handle is shared
// with the other domain stores; closing it is the caller's job.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create task schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Create persists a new task and sets its ID, CreatedAt, and UpdatedAt.
func (s *SQLiteStore) Create(t *Task) (int64, error) {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	skillsJSON, _ := json.Marshal(t.RequiredSkills)
	depsJSON, _ := json.Marshal(t.Dependencies)
	blockersJSON, _ := json.Marshal(t.Blockers)
	metadataJSON, _ := json.Marshal(t.Metadata)

	res, err := s.db.Exec(`
		INSERT INTO tasks
			(title, description, external_ref, parent_id, status, priority,
			 required_skills, estimated_cost, actual_cost, dependencies, blockers, metadata,
			 created_at, updated_at, completed_at, deadline)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.Title, t.Description, t.ExternalRef, nullInt(t.ParentID),
		string(t.Status), string(t.Priority),
		string(skillsJSON), nullFloat(t.EstimatedCost), nullFloat(t.ActualCost),
		string(depsJSON), string(blockersJSON), string(metadataJSON),
		t.CreatedAt, t.UpdatedAt, nullTime(t.CompletedAt), nullTime(t.Deadline),
	)
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("task id: %w", err)
	}
	t.ID = id
	return id, nil
}

// Get retrieves a task by ID.
func (s *SQLiteStore) Get(id int64) (*Task, error) {
	row := s.db.QueryRow(`SELECT * FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("task", id)
	}
	return t, err
}

// Update saves changes to an existing task, updating UpdatedAt automatically.
func (s *SQLiteStore) Update(t *Task) error {
	t.UpdatedAt = time.Now().UTC()

	skillsJSON, _ := json.Marshal(t.RequiredSkills)
	depsJSON, _ := json.Marshal(t.Dependencies)
	blockersJSON, _ := json.Marshal(t.Blockers)
	metadataJSON, _ := json.Marshal(t.Metadata)

	res, err := s.db.Exec(`
		UPDATE tasks SET
			title=?, description=?, external_ref=?, parent_id=?, status=?, priority=?,
			required_skills=?, estimated_cost=?, actual_cost=?, dependencies=?, blockers=?, metadata=?,
			updated_at=?, completed_at=?, deadline=?
		WHERE id=?`,
		t.Title, t.Description, t.ExternalRef, nullInt(t.ParentID),
		string(t.Status), string(t.Priority),
		string(skillsJSON), nullFloat(t.EstimatedCost), nullFloat(t.ActualCost),
		string(depsJSON), string(blockersJSON), string(metadataJSON),
		t.UpdatedAt, nullTime(t.CompletedAt), nullTime(t.Deadline),
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errs.NotFound("task", t.ID)
	}
	return nil
}

// List returns tasks matching the filter, most urgent first.
func (s *SQLiteStore) List(filter Filter) ([]*Task, error) {
	q := strings.Builder{}
	q.WriteString("SELECT * FROM tasks WHERE 1=1")
	args := []any{}

	if filter.Status != nil {
		q.WriteString(" AND status=?")
		args = append(args, string(*filter.Status))
	}
	if filter.Priority != nil {
		q.WriteString(" AND priority=?")
		args = append(args, string(*filter.Priority))
	}
	if filter.ParentID != nil {
		q.WriteString(" AND parent_id=?")
		args = append(args, *filter.ParentID)
	}
	if filter.ExternalRef != "" {
		q.WriteString(" AND external_ref=?")
		args = append(args, filter.ExternalRef)
	}
	q.WriteString(" ORDER BY " + priorityRank + " DESC, created_at ASC")
	if filter.Limit > 0 {
		q.WriteString(fmt.Sprintf(" LIMIT %d", filter.Limit))
		if filter.Offset > 0 {
			q.WriteString(fmt.Sprintf(" OFFSET %d", filter.Offset))
		}
	}

	rows, err := s.db.Query(q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Delete removes a task by ID.
func (s *SQLiteStore) Delete(id int64) error {
	res, err := s.db.Exec("DELETE FROM tasks WHERE id=?", id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errs.NotFound("task", id)
	}
	return nil
}

// ReadyTasks returns pending tasks with no blockers whose listed
// dependencies all exist and are completed. This is the resolving
// counterpart to Task.HasUnresolvedDependencies, which only inspects the
// edge list.
func (s *SQLiteStore) ReadyTasks() ([]*Task, error) {
	status := StatusPending
	pending, err := s.List(Filter{Status: &status})
	if err != nil {
		return nil, err
	}

	// Collect every referenced dependency so statuses resolve in one query.
	depIDs := map[int64]bool{}
	for _, t := range pending {
		if len(t.Blockers) > 0 {
			continue
		}
		for _, id := range t.Dependencies {
			depIDs[id] = true
		}
	}

	depStatus := map[int64]Status{}
	if len(depIDs) > 0 {
		placeholders := make([]string, 0, len(depIDs))
		args := make([]any, 0, len(depIDs))
		for id := range depIDs {
			placeholders = append(placeholders, "?")
			args = append(args, id)
		}
		rows, err := s.db.Query(
			"SELECT id, status FROM tasks WHERE id IN ("+strings.Join(placeholders, ",")+")", args...)
		if err != nil {
			return nil, fmt.Errorf("resolve dependencies: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var id int64
			var st string
			if err := rows.Scan(&id, &st); err != nil {
				return nil, err
			}
			depStatus[id] = Status(st)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	var ready []*Task
	for _, t := range pending {
		if len(t.Blockers) > 0 {
			continue
		}
		ok := true
		for _, id := range t.Dependencies {
			if depStatus[id] != StatusCompleted {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, t)
		}
	}
	return ready, nil
}

// CreateAssignment persists a new assignment and sets its ID, CreatedAt,
// and UpdatedAt.
func (s *SQLiteStore) CreateAssignment(a *Assignment) (int64, error) {
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	res, err := s.db.Exec(`
		INSERT INTO task_assignments
			(task_id, agent_id, status, assigned_at, capability_score,
			 cost_estimate, actual_cost, completion_notes, quality_score,
			 created_at, updated_at, completed_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		a.TaskID, a.AgentID, string(a.Status), a.AssignedAt, a.CapabilityScore,
		nullFloat(a.CostEstimate), nullFloat(a.ActualCost),
		a.CompletionNotes, nullFloat(a.QualityScore),
		a.CreatedAt, a.UpdatedAt, nullTime(a.CompletedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert assignment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("assignment id: %w", err)
	}
	a.ID = id
	return id, nil
}

// GetAssignment retrieves an assignment by ID.
func (s *SQLiteStore) GetAssignment(id int64) (*Assignment, error) {
	row := s.db.QueryRow(`SELECT * FROM task_assignments WHERE id = ?`, id)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("assignment", id)
	}
	return a, err
}

// UpdateAssignment saves changes to an existing assignment. AssignedAt is
// never written back; it is fixed at creation.
func (s *SQLiteStore) UpdateAssignment(a *Assignment) error {
	a.UpdatedAt = time.Now().UTC()

	res, err := s.db.Exec(`
		UPDATE task_assignments SET
			task_id=?, agent_id=?, status=?, capability_score=?,
			cost_estimate=?, actual_cost=?, completion_notes=?, quality_score=?,
			updated_at=?, completed_at=?
		WHERE id=?`,
		a.TaskID, a.AgentID, string(a.Status), a.CapabilityScore,
		nullFloat(a.CostEstimate), nullFloat(a.ActualCost),
		a.CompletionNotes, nullFloat(a.QualityScore),
		a.UpdatedAt, nullTime(a.CompletedAt),
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errs.NotFound("assignment", a.ID)
	}
	return nil
}

// ListAssignments returns assignments matching the filter, newest first.
func (s *SQLiteStore) ListAssignments(filter AssignmentFilter) ([]*Assignment, error) {
	q := strings.Builder{}
	q.WriteString("SELECT * FROM task_assignments WHERE 1=1")
	args := []any{}

	if filter.TaskID > 0 {
		q.WriteString(" AND task_id=?")
		args = append(args, filter.TaskID)
	}
	if filter.AgentID > 0 {
		q.WriteString(" AND agent_id=?")
		args = append(args, filter.AgentID)
	}
	if filter.Status != nil {
		q.WriteString(" AND status=?")
		args = append(args, string(*filter.Status))
	}
	q.WriteString(" ORDER BY created_at DESC, id DESC")
	if filter.Limit > 0 {
		q.WriteString(fmt.Sprintf(" LIMIT %d", filter.Limit))
		if filter.Offset > 0 {
			q.WriteString(fmt.Sprintf(" OFFSET %d", filter.Offset))
		}
	}

	rows, err := s.db.Query(q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []*Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// scanner abstracts sql.Row and sql.Rows for the scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*Task, error) {
	var t Task
	var status, priority, skillsJSON, depsJSON, blockersJSON, metadataJSON string
	var parentID sql.NullInt64
	var estimatedCost, actualCost sql.NullFloat64
	var completedAt, deadline sql.NullTime

	err := s.Scan(
		&t.ID, &t.Title, &t.Description, &t.ExternalRef, &parentID,
		&status, &priority,
		&skillsJSON, &estimatedCost, &actualCost,
		&depsJSON, &blockersJSON, &metadataJSON,
		&t.CreatedAt, &t.UpdatedAt, &completedAt, &deadline,
	)
	if err != nil {
		return nil, err
	}

	t.Status = Status(status)
	t.Priority = Priority(priority)

	_ = json.Unmarshal([]byte(skillsJSON), &t.RequiredSkills)
	_ = json.Unmarshal([]byte(depsJSON), &t.Dependencies)
	_ = json.Unmarshal([]byte(blockersJSON), &t.Blockers)
	_ = json.Unmarshal([]byte(metadataJSON), &t.Metadata)

	if parentID.Valid {
		t.ParentID = &parentID.Int64
	}
	if estimatedCost.Valid {
		t.EstimatedCost = &estimatedCost.Float64
	}
	if actualCost.Valid {
		t.ActualCost = &actualCost.Float64
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	if deadline.Valid {
		t.Deadline = &deadline.Time
	}
	return &t, nil
}

func scanAssignment(s scanner) (*Assignment, error) {
	var a Assignment
	var status string
	var costEstimate, actualCost, qualityScore sql.NullFloat64
	var completedAt sql.NullTime

	err := s.Scan(
		&a.ID, &a.TaskID, &a.AgentID, &status, &a.AssignedAt, &a.CapabilityScore,
		&costEstimate, &actualCost, &a.CompletionNotes, &qualityScore,
		&a.CreatedAt, &a.UpdatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Status = AssignmentStatus(status)
	if costEstimate.Valid {
		a.CostEstimate = &costEstimate.Float64
	}
	if actualCost.Valid {
		a.ActualCost = &actualCost.Float64
	}
	if qualityScore.Valid {
		a.QualityScore = &qualityScore.Float64
	}
	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}
	return &a, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func nullInt(i *int64) any {
	if i == nil {
		return nil
	}
	return *i
}
