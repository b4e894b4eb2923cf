// Package hr covers the hiring pipeline: resumes, job descriptions, and
// the applications linking them. Hired applications are what agents are
// created from.
package hr

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/GoCodeAlone/foreman/errs"
	"github.com/GoCodeAlone/foreman/skills"
)

var emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// dateLayout is the wire format for experience dates.
const dateLayout = "2006-01-02"

// ExperienceEntry is one work history item. Dates use YYYY-MM-DD; an empty
// EndDate means the position is current.
type ExperienceEntry struct {
	Company     string `json:"company"`
	Position    string `json:"position"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date,omitempty"`
	Description string `json:"description,omitempty"`
}

// EducationEntry is one education history item.
type EducationEntry struct {
	Institution    string   `json:"institution"`
	Degree         string   `json:"degree"`
	FieldOfStudy   string   `json:"field_of_study,omitempty"`
	GraduationYear int      `json:"graduation_year"`
	GPA            *float64 `json:"gpa,omitempty"`
}

// Resume is a candidate profile in the hiring pipeline.
type Resume struct {
	ID                 int64             `json:"id"`
	Name               string            `json:"name"`
	Email              string            `json:"email"`
	Phone              string            `json:"phone,omitempty"`
	Summary            string            `json:"summary,omitempty"`
	Skills             []string          `json:"skills"`
	Experience         []ExperienceEntry `json:"experience"`
	Education          []EducationEntry  `json:"education"`
	PerformanceHistory map[string]any    `json:"performance_history"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// NewResume returns a resume with initialized collections.
func NewResume(name, email string) *Resume {
	now := time.Now().UTC()
	return &Resume{
		Name:               name,
		Email:              email,
		Skills:             []string{},
		Experience:         []ExperienceEntry{},
		Education:          []EducationEntry{},
		PerformanceHistory: map[string]any{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// Validate checks the resume invariants, lowercases the email, and
// normalizes the skill list. All-or-nothing: nothing is committed when an
// error is returned.
func (r *Resume) Validate() error {
	v := &errs.ValidationError{}

	name := strings.TrimSpace(r.Name)
	if name == "" {
		v.Add("name", "cannot be empty")
	}
	email := strings.TrimSpace(r.Email)
	if !emailRE.MatchString(email) {
		v.Add("email", "invalid email format")
	}

	if err := v.Err(); err != nil {
		return err
	}

	r.Name = name
	r.Email = strings.ToLower(email)
	r.Skills = skills.Normalize(r.Skills)
	return nil
}

// HasSkill reports whether the resume lists skill, ignoring case.
func (r *Resume) HasSkill(skill string) bool {
	return skills.Contains(r.Skills, skill)
}

// AddSkill appends a skill unless an equivalent one is already listed.
func (r *Resume) AddSkill(skill string) {
	if r.HasSkill(skill) {
		return
	}
	r.Skills = append(r.Skills, strings.TrimSpace(skill))
	r.UpdatedAt = time.Now().UTC()
}

// RemoveSkill deletes a skill, ignoring case, and reports whether it was
// present.
func (r *Resume) RemoveSkill(skill string) bool {
	out, removed := skills.Remove(r.Skills, skill)
	if removed {
		r.Skills = out
		r.UpdatedAt = time.Now().UTC()
	}
	return removed
}

// ExperienceYears sums the duration of all experience entries in years,
// rounded to one decimal. Entries with unparseable dates are skipped, open
// ended entries count up to today, and negative ranges count as zero.
func (r *Resume) ExperienceYears() float64 {
	totalDays := 0.0
	for _, e := range r.Experience {
		start, err := time.Parse(dateLayout, e.StartDate)
		if err != nil {
			continue
		}
		end := time.Now().UTC()
		if e.EndDate != "" {
			end, err = time.Parse(dateLayout, e.EndDate)
			if err != nil {
				continue
			}
		}
		days := end.Sub(start).Hours() / 24
		if days > 0 {
			totalDays += days
		}
	}
	return math.Round(totalDays/365.25*10) / 10
}

// SkillMatchScore returns how well this resume covers the required skills,
// in [0, 1].
func (r *Resume) SkillMatchScore(required []string) float64 {
	return skills.MatchScore(required, r.Skills)
}
