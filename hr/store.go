package hr

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/GoCodeAlone/foreman/errs"
	"github.com/GoCodeAlone/foreman/skills"
)

const schema = `
CREATE TABLE IF NOT EXISTS resumes (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	name                TEXT NOT NULL,
	email               TEXT NOT NULL,
	phone               TEXT NOT NULL DEFAULT '',
	summary             TEXT NOT NULL DEFAULT '',
	skills              TEXT NOT NULL DEFAULT '[]',
	experience          TEXT NOT NULL DEFAULT '[]',
	education           TEXT NOT NULL DEFAULT '[]',
	performance_history TEXT NOT NULL DEFAULT '{}',
	created_at          DATETIME NOT NULL,
	updated_at          DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS job_descriptions (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	title            TEXT NOT NULL,
	description      TEXT NOT NULL,
	required_skills  TEXT NOT NULL DEFAULT '[]',
	experience_level TEXT NOT NULL,
	department       TEXT NOT NULL DEFAULT '',
	created_at       DATETIME NOT NULL,
	updated_at       DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS job_applications (
	id                     INTEGER PRIMARY KEY AUTOINCREMENT,
	job_description_id     INTEGER NOT NULL REFERENCES job_descriptions(id) ON DELETE CASCADE,
	resume_id              INTEGER NOT NULL REFERENCES resumes(id) ON DELETE CASCADE,
	status                 TEXT NOT NULL DEFAULT 'applied',
	application_date       DATETIME NOT NULL,
	interview_notes        TEXT NOT NULL DEFAULT '',
	hiring_decision_reason TEXT NOT NULL DEFAULT '',
	created_at             DATETIME NOT NULL,
	updated_at             DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_applications_job ON job_applications(job_description_id);
CREATE INDEX IF NOT EXISTS idx_applications_resume ON job_applications(resume_id);
`

// ResumeFilter narrows ListResumes results. A non-empty Skill keeps only
// resumes listing that skill, ignoring case.
type ResumeFilter struct {
	Skill  string
	Limit  int
	Offset int
}

// JobFilter narrows ListJobs results.
type JobFilter struct {
	Level      *ExperienceLevel
	Department string
	Limit      int
	Offset     int
}

// ApplicationFilter narrows ListApplications results.
type ApplicationFilter struct {
	JobDescriptionID int64
	ResumeID         int64
	Status           *ApplicationStatus
	Limit            int
	Offset           int
}

// JobMatch pairs a job description with its score against a skill set.
type JobMatch struct {
	Job        *JobDescription `json:"job"`
	MatchScore float64         `json:"match_score"`
}

// SQLiteStore persists the hiring pipeline on a shared database handle.
// Applications cascade-delete with their resume or job description.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore ensures the hiring tables exist on db.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create hr schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// CreateResume persists a new resume and sets its ID and timestamps.
func (s *SQLiteStore) CreateResume(r *Resume) (int64, error) {
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	skillsJSON, _ := json.Marshal(r.Skills)
	expJSON, _ := json.Marshal(r.Experience)
	eduJSON, _ := json.Marshal(r.Education)
	perfJSON, _ := json.Marshal(r.PerformanceHistory)

	res, err := s.db.Exec(`
		INSERT INTO resumes
			(name, email, phone, summary, skills, experience, education, performance_history,
			 created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		r.Name, r.Email, r.Phone, r.Summary,
		string(skillsJSON), string(expJSON), string(eduJSON), string(perfJSON),
		r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert resume: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("resume id: %w", err)
	}
	r.ID = id
	return id, nil
}

// GetResume retrieves a resume by ID.
func (s *SQLiteStore) GetResume(id int64) (*Resume, error) {
	row := s.db.QueryRow(`SELECT * FROM resumes WHERE id = ?`, id)
	r, err := scanResume(row)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("resume", id)
	}
	return r, err
}

// UpdateResume saves changes to an existing resume.
func (s *SQLiteStore) UpdateResume(r *Resume) error {
	r.UpdatedAt = time.Now().UTC()

	skillsJSON, _ := json.Marshal(r.Skills)
	expJSON, _ := json.Marshal(r.Experience)
	eduJSON, _ := json.Marshal(r.Education)
	perfJSON, _ := json.Marshal(r.PerformanceHistory)

	res, err := s.db.Exec(`
		UPDATE resumes SET
			name=?, email=?, phone=?, summary=?, skills=?, experience=?, education=?,
			performance_history=?, updated_at=?
		WHERE id=?`,
		r.Name, r.Email, r.Phone, r.Summary,
		string(skillsJSON), string(expJSON), string(eduJSON), string(perfJSON),
		r.UpdatedAt, r.ID,
	)
	if err != nil {
		return fmt.Errorf("update resume: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errs.NotFound("resume", r.ID)
	}
	return nil
}

// DeleteResume removes a resume and, via cascade, its applications.
func (s *SQLiteStore) DeleteResume(id int64) error {
	res, err := s.db.Exec("DELETE FROM resumes WHERE id=?", id)
	if err != nil {
		return fmt.Errorf("delete resume: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errs.NotFound("resume", id)
	}
	return nil
}

// ListResumes returns resumes matching the filter, oldest first.
func (s *SQLiteStore) ListResumes(filter ResumeFilter) ([]*Resume, error) {
	q := strings.Builder{}
	q.WriteString("SELECT * FROM resumes ORDER BY created_at ASC, id ASC")
	// The skill filter applies after scanning; SQL limits would undercount.
	if filter.Skill == "" && filter.Limit > 0 {
		q.WriteString(fmt.Sprintf(" LIMIT %d", filter.Limit))
		if filter.Offset > 0 {
			q.WriteString(fmt.Sprintf(" OFFSET %d", filter.Offset))
		}
	}

	rows, err := s.db.Query(q.String())
	if err != nil {
		return nil, fmt.Errorf("list resumes: %w", err)
	}
	defer rows.Close()

	var resumes []*Resume
	for rows.Next() {
		r, err := scanResume(rows)
		if err != nil {
			return nil, err
		}
		if filter.Skill != "" && !skills.Contains(r.Skills, filter.Skill) {
			continue
		}
		resumes = append(resumes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if filter.Skill != "" && filter.Limit > 0 {
		start := min(filter.Offset, len(resumes))
		end := min(start+filter.Limit, len(resumes))
		resumes = resumes[start:end]
	}
	return resumes, nil
}

// CreateJob persists a new job description and sets its ID and timestamps.
func (s *SQLiteStore) CreateJob(j *JobDescription) (int64, error) {
	now := time.Now().UTC()
	j.CreatedAt = now
	j.UpdatedAt = now

	skillsJSON, _ := json.Marshal(j.RequiredSkills)

	res, err := s.db.Exec(`
		INSERT INTO job_descriptions
			(title, description, required_skills, experience_level, department, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?)`,
		j.Title, j.Description, string(skillsJSON), string(j.ExperienceLevel), j.Department,
		j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert job description: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("job description id: %w", err)
	}
	j.ID = id
	return id, nil
}

// GetJob retrieves a job description by ID.
func (s *SQLiteStore) GetJob(id int64) (*JobDescription, error) {
	row := s.db.QueryRow(`SELECT * FROM job_descriptions WHERE id = ?`, id)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("job description", id)
	}
	return j, err
}

// UpdateJob saves changes to an existing job description.
func (s *SQLiteStore) UpdateJob(j *JobDescription) error {
	j.UpdatedAt = time.Now().UTC()

	skillsJSON, _ := json.Marshal(j.RequiredSkills)

	res, err := s.db.Exec(`
		UPDATE job_descriptions SET
			title=?, description=?, required_skills=?, experience_level=?, department=?, updated_at=?
		WHERE id=?`,
		j.Title, j.Description, string(skillsJSON), string(j.ExperienceLevel), j.Department,
		j.UpdatedAt, j.ID,
	)
	if err != nil {
		return fmt.Errorf("update job description: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errs.NotFound("job description", j.ID)
	}
	return nil
}

// DeleteJob removes a job description and, via cascade, its applications.
func (s *SQLiteStore) DeleteJob(id int64) error {
	res, err := s.db.Exec("DELETE FROM job_descriptions WHERE id=?", id)
	if err != nil {
		return fmt.Errorf("delete job description: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errs.NotFound("job description", id)
	}
	return nil
}

// ListJobs returns job descriptions matching the filter, oldest first.
func (s *SQLiteStore) ListJobs(filter JobFilter) ([]*JobDescription, error) {
	q := strings.Builder{}
	q.WriteString("SELECT * FROM job_descriptions WHERE 1=1")
	args := []any{}

	if filter.Level != nil {
		q.WriteString(" AND experience_level=?")
		args = append(args, string(*filter.Level))
	}
	if filter.Department != "" {
		q.WriteString(" AND department=?")
		args = append(args, filter.Department)
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
		return nil, fmt.Errorf("list job descriptions: %w", err)
	}
	defer rows.Close()

	var jobs []*JobDescription
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// FindMatchingJobs scores open positions against a candidate skill set and
// returns those at or above threshold, best first. Substring-related skills
// earn a small bonus on top of the exact match fraction.
func (s *SQLiteStore) FindMatchingJobs(candidate []string, level *ExperienceLevel, department string, threshold float64, limit int) ([]JobMatch, error) {
	jobs, err := s.ListJobs(JobFilter{Level: level, Department: department})
	if err != nil {
		return nil, err
	}

	var matches []JobMatch
	for _, j := range jobs {
		score := skills.MatchScoreWithBonus(j.RequiredSkills, candidate)
		if score >= threshold {
			matches = append(matches, JobMatch{Job: j, MatchScore: score})
		}
	}

	slices.SortStableFunc(matches, func(a, b JobMatch) int {
		switch {
		case a.MatchScore > b.MatchScore:
			return -1
		case a.MatchScore < b.MatchScore:
			return 1
		}
		return 0
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// CreateApplication persists a new application and sets its ID and
// timestamps.
func (s *SQLiteStore) CreateApplication(a *JobApplication) (int64, error) {
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	res, err := s.db.Exec(`
		INSERT INTO job_applications
			(job_description_id, resume_id, status, application_date,
			 interview_notes, hiring_decision_reason, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		a.JobDescriptionID, a.ResumeID, string(a.Status), a.ApplicationDate,
		a.InterviewNotes, a.HiringDecisionReason, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert application: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("application id: %w", err)
	}
	a.ID = id
	return id, nil
}

// GetApplication retrieves an application by ID.
func (s *SQLiteStore) GetApplication(id int64) (*JobApplication, error) {
	row := s.db.QueryRow(`SELECT * FROM job_applications WHERE id = ?`, id)
	a, err := scanApplication(row)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("application", id)
	}
	return a, err
}

// UpdateApplication saves changes to an existing application.
func (s *SQLiteStore) UpdateApplication(a *JobApplication) error {
	a.UpdatedAt = time.Now().UTC()

	res, err := s.db.Exec(`
		UPDATE job_applications SET
			job_description_id=?, resume_id=?, status=?, application_date=?,
			interview_notes=?, hiring_decision_reason=?, updated_at=?
		WHERE id=?`,
		a.JobDescriptionID, a.ResumeID, string(a.Status), a.ApplicationDate,
		a.InterviewNotes, a.HiringDecisionReason, a.UpdatedAt, a.ID,
	)
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errs.NotFound("application", a.ID)
	}
	return nil
}

// ListApplications returns applications matching the filter, newest first.
func (s *SQLiteStore) ListApplications(filter ApplicationFilter) ([]*JobApplication, error) {
	q := strings.Builder{}
	q.WriteString("SELECT * FROM job_applications WHERE 1=1")
	args := []any{}

	if filter.JobDescriptionID > 0 {
		q.WriteString(" AND job_description_id=?")
		args = append(args, filter.JobDescriptionID)
	}
	if filter.ResumeID > 0 {
		q.WriteString(" AND resume_id=?")
		args = append(args, filter.ResumeID)
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
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var apps []*JobApplication
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

// scanner abstracts sql.Row and sql.Rows for the scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func scanResume(s scanner) (*Resume, error) {
	var r Resume
	var skillsJSON, expJSON, eduJSON, perfJSON string

	err := s.Scan(
		&r.ID, &r.Name, &r.Email, &r.Phone, &r.Summary,
		&skillsJSON, &expJSON, &eduJSON, &perfJSON,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	_ = json.Unmarshal([]byte(skillsJSON), &r.Skills)
	_ = json.Unmarshal([]byte(expJSON), &r.Experience)
	_ = json.Unmarshal([]byte(eduJSON), &r.Education)
	_ = json.Unmarshal([]byte(perfJSON), &r.PerformanceHistory)
	return &r, nil
}

func scanJob(s scanner) (*JobDescription, error) {
	var j JobDescription
	var level, skillsJSON string

	err := s.Scan(
		&j.ID, &j.Title, &j.Description, &skillsJSON, &level, &j.Department,
		&j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	j.ExperienceLevel = ExperienceLevel(level)
	_ = json.Unmarshal([]byte(skillsJSON), &j.RequiredSkills)
	return &j, nil
}

func scanApplication(s scanner) (*JobApplication, error) {
	var a JobApplication
	var status string

	err := s.Scan(
		&a.ID, &a.JobDescriptionID, &a.ResumeID, &status, &a.ApplicationDate,
		&a.InterviewNotes, &a.HiringDecisionReason,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Status = ApplicationStatus(status)
	return &a, nil
}
