package hr

import (
	"strings"
	"time"

	"github.com/GoCodeAlone/foreman/errs"
	"github.com/GoCodeAlone/foreman/skills"
)

// ExperienceLevel grades the seniority a position calls for.
type ExperienceLevel string

const (
	LevelJunior ExperienceLevel = "junior"
	LevelMid    ExperienceLevel = "mid"
	LevelSenior ExperienceLevel = "senior"
	LevelLead   ExperienceLevel = "lead"
	LevelExpert ExperienceLevel = "expert"
)

// Valid reports whether l is a known experience level.
func (l ExperienceLevel) Valid() bool {
	switch l {
	case LevelJunior, LevelMid, LevelSenior, LevelLead, LevelExpert:
		return true
	}
	return false
}

// JobDescription defines an open position and its skill requirements.
type JobDescription struct {
	ID              int64           `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	RequiredSkills  []string        `json:"required_skills"`
	ExperienceLevel ExperienceLevel `json:"experience_level"`
	Department      string          `json:"department,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewJobDescription returns a job description for the given title and level.
func NewJobDescription(title, description string, level ExperienceLevel) *JobDescription {
	now := time.Now().UTC()
	return &JobDescription{
		Title:           title,
		Description:     description,
		RequiredSkills:  []string{},
		ExperienceLevel: level,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Validate checks the job description invariants and normalizes the
// required skills. Experience levels are accepted case-insensitively and
// stored lowercase.
func (j *JobDescription) Validate() error {
	v := &errs.ValidationError{}

	title := strings.TrimSpace(j.Title)
	if title == "" {
		v.Add("title", "cannot be empty")
	}
	level := ExperienceLevel(strings.ToLower(string(j.ExperienceLevel)))
	if !level.Valid() {
		v.Add("experience_level", "unknown level %q", j.ExperienceLevel)
	}

	if err := v.Err(); err != nil {
		return err
	}

	j.Title = title
	j.ExperienceLevel = level
	j.RequiredSkills = skills.Normalize(j.RequiredSkills)
	return nil
}

// HasSkill reports whether the position requires skill, ignoring case.
func (j *JobDescription) HasSkill(skill string) bool {
	return skills.Contains(j.RequiredSkills, skill)
}

// AddSkill appends a required skill unless an equivalent one is listed.
func (j *JobDescription) AddSkill(skill string) {
	if j.HasSkill(skill) {
		return
	}
	j.RequiredSkills = append(j.RequiredSkills, strings.TrimSpace(skill))
	j.UpdatedAt = time.Now().UTC()
}

// RemoveSkill deletes a required skill, ignoring case, and reports whether
// it was present.
func (j *JobDescription) RemoveSkill(skill string) bool {
	out, removed := skills.Remove(j.RequiredSkills, skill)
	if removed {
		j.RequiredSkills = out
		j.UpdatedAt = time.Now().UTC()
	}
	return removed
}

// MatchesSkills returns how well candidate skills cover this position's
// requirements, in [0, 1].
func (j *JobDescription) MatchesSkills(candidate []string) float64 {
	return skills.MatchScore(j.RequiredSkills, candidate)
}
