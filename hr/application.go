package hr

import (
	"time"

	"github.com/GoCodeAlone/foreman/errs"
)

// ApplicationStatus tracks an application through the hiring funnel.
type ApplicationStatus string

const (
	ApplicationApplied      ApplicationStatus = "applied"
	ApplicationInterviewing ApplicationStatus = "interviewing"
	ApplicationHired        ApplicationStatus = "hired"
	ApplicationRejected     ApplicationStatus = "rejected"
)

// Valid reports whether s is a known application status.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationApplied, ApplicationInterviewing, ApplicationHired, ApplicationRejected:
		return true
	}
	return false
}

// Terminal reports whether the status ends the application.
func (s ApplicationStatus) Terminal() bool {
	return s == ApplicationHired || s == ApplicationRejected
}

// applicationTransitions is the allowed forward path through the funnel.
var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationApplied:      {ApplicationInterviewing, ApplicationRejected},
	ApplicationInterviewing: {ApplicationHired, ApplicationRejected},
}

// JobApplication links a resume to a job description and tracks the hiring
// decision. Unlike tasks, applications enforce their transition table:
// there is no way back out of hired or rejected.
type JobApplication struct {
	ID                   int64             `json:"id"`
	JobDescriptionID     int64             `json:"job_description_id"`
	ResumeID             int64             `json:"resume_id"`
	Status               ApplicationStatus `json:"status"`
	ApplicationDate      time.Time         `json:"application_date"`
	InterviewNotes       string            `json:"interview_notes,omitempty"`
	HiringDecisionReason string            `json:"hiring_decision_reason,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// NewApplication returns an application in the applied state, dated now.
func NewApplication(jobDescriptionID, resumeID int64) *JobApplication {
	now := time.Now().UTC()
	return &JobApplication{
		JobDescriptionID: jobDescriptionID,
		ResumeID:         resumeID,
		Status:           ApplicationApplied,
		ApplicationDate:  now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Validate checks the application invariants.
func (a *JobApplication) Validate() error {
	v := &errs.ValidationError{}

	if a.JobDescriptionID <= 0 {
		v.Add("job_description_id", "must reference a job description")
	}
	if a.ResumeID <= 0 {
		v.Add("resume_id", "must reference a resume")
	}
	if !a.Status.Valid() {
		v.Add("status", "unknown status %q", a.Status)
	}

	return v.Err()
}

// IsActive reports whether the application is still in the funnel.
func (a *JobApplication) IsActive() bool {
	return a.Status == ApplicationApplied || a.Status == ApplicationInterviewing
}

// CanTransitionTo reports whether moving to next is allowed from the
// current status.
func (a *JobApplication) CanTransitionTo(next ApplicationStatus) bool {
	for _, allowed := range applicationTransitions[a.Status] {
		if next == allowed {
			return true
		}
	}
	return false
}

// UpdateStatus advances the application and reports whether the move was
// allowed. On entering hired or rejected, a non-empty reason is recorded
// as the hiring decision reason. Disallowed moves leave the application
// untouched.
func (a *JobApplication) UpdateStatus(next ApplicationStatus, reason string) bool {
	if !a.CanTransitionTo(next) {
		return false
	}
	a.Status = next
	a.UpdatedAt = time.Now().UTC()
	if next.Terminal() && reason != "" {
		a.HiringDecisionReason = reason
	}
	return true
}
