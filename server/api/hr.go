package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/GoCodeAlone/foreman/audit"
	"github.com/GoCodeAlone/foreman/errs"
	"github.com/GoCodeAlone/foreman/hr"
)

// --- Resume handlers ---

func (h *Handlers) listResumes(w http.ResponseWriter, r *http.Request) {
	f := hr.ResumeFilter{Skill: r.URL.Query().Get("skill")}
	f.Limit, f.Offset = pageParams(r)

	resumes, err := h.HR.ListResumes(f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if resumes == nil {
		resumes = []*hr.Resume{}
	}
	writeJSON(w, http.StatusOK, resumes)
}

func (h *Handlers) createResume(w http.ResponseWriter, r *http.Request) {
	resume := hr.NewResume("", "")
	if err := decode(r, resume); err != nil {
		h.fail(w, r, err)
		return
	}
	resume.ID = 0
	if err := resume.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}

	id, err := h.HR.CreateResume(resume)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.recordAudit(audit.EntityResume, id, audit.ActionCreate, nil, snapshot(resume))
	writeJSON(w, http.StatusCreated, resume)
}

func (h *Handlers) getResume(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resume, err := h.HR.GetResume(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resume)
}

func (h *Handlers) updateResume(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	existing, err := h.HR.GetResume(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	before := snapshot(existing)

	updated := *existing
	if err := decode(r, &updated); err != nil {
		h.fail(w, r, err)
		return
	}
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	if err := updated.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.HR.UpdateResume(&updated); err != nil {
		h.fail(w, r, err)
		return
	}

	h.recordAudit(audit.EntityResume, id, audit.ActionUpdate, before, snapshot(&updated))
	writeJSON(w, http.StatusOK, &updated)
}

func (h *Handlers) deleteResume(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	existing, err := h.HR.GetResume(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.HR.DeleteResume(id); err != nil {
		h.fail(w, r, err)
		return
	}

	h.recordAudit(audit.EntityResume, id, audit.ActionDelete, snapshot(existing), nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) addResumeSkill(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var body struct {
		Skill string `json:"skill"`
	}
	if err := decode(r, &body); err != nil {
		h.fail(w, r, err)
		return
	}
	if strings.TrimSpace(body.Skill) == "" {
		h.fail(w, r, errs.Validation("skill", "cannot be empty"))
		return
	}

	resume, err := h.HR.GetResume(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resume.AddSkill(body.Skill)
	if err := h.HR.UpdateResume(resume); err != nil {
		h.fail(w, r, err)
		return
	}

	h.recordAudit(audit.EntityResume, id, audit.ActionUpdate, nil, map[string]any{"skill_added": body.Skill})
	writeJSON(w, http.StatusOK, resume)
}

func (h *Handlers) removeResumeSkill(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	skill := chi.URLParam(r, "skill")

	resume, err := h.HR.GetResume(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !resume.RemoveSkill(skill) {
		h.fail(w, r, errs.NotFound("skill", skill))
		return
	}
	if err := h.HR.UpdateResume(resume); err != nil {
		h.fail(w, r, err)
		return
	}

	h.recordAudit(audit.EntityResume, id, audit.ActionUpdate, map[string]any{"skill_removed": skill}, nil)
	writeJSON(w, http.StatusOK, resume)
}

// --- Job description handlers ---

func (h *Handlers) listJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := hr.JobFilter{Department: q.Get("department")}
	if lvl := hr.ExperienceLevel(q.Get("level")); lvl != "" && lvl.Valid() {
		f.Level = &lvl
	}
	f.Limit, f.Offset = pageParams(r)

	jobs, err := h.HR.ListJobs(f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []*hr.JobDescription{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (h *Handlers) createJob(w http.ResponseWriter, r *http.Request) {
	job := hr.NewJobDescription("", "", "")
	if err := decode(r, job); err != nil {
		h.fail(w, r, err)
		return
	}
	job.ID = 0
	if err := job.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}

	id, err := h.HR.CreateJob(job)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.recordAudit(audit.EntityJobDescription, id, audit.ActionCreate, nil, snapshot(job))
	writeJSON(w, http.StatusCreated, job)
}

func (h *Handlers) getJob(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	job, err := h.HR.GetJob(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *Handlers) updateJob(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	existing, err := h.HR.GetJob(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	before := snapshot(existing)

	updated := *existing
	if err := decode(r, &updated); err != nil {
		h.fail(w, r, err)
		return
	}
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	if err := updated.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.HR.UpdateJob(&updated); err != nil {
		h.fail(w, r, err)
		return
	}

	h.recordAudit(audit.EntityJobDescription, id, audit.ActionUpdate, before, snapshot(&updated))
	writeJSON(w, http.StatusOK, &updated)
}

func (h *Handlers) deleteJob(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	existing, err := h.HR.GetJob(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.HR.DeleteJob(id); err != nil {
		h.fail(w, r, err)
		return
	}

	h.recordAudit(audit.EntityJobDescription, id, audit.ActionDelete, snapshot(existing), nil)
	w.WriteHeader(http.StatusNoContent)
}

// matchJobs scores open job descriptions against a candidate skill set.
// The skills come either from a stored resume (resume_id) or from a
// comma-separated skills parameter.
func (h *Handlers) matchJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var candidate []string
	if resumeID, err := strconv.ParseInt(q.Get("resume_id"), 10, 64); err == nil {
		resume, err := h.HR.GetResume(resumeID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		candidate = resume.Skills
	} else if raw := q.Get("skills"); raw != "" {
		candidate = strings.Split(raw, ",")
	} else {
		h.fail(w, r, errs.Validation("skills", "resume_id or skills is required"))
		return
	}

	var level *hr.ExperienceLevel
	if lvl := hr.ExperienceLevel(q.Get("level")); lvl != "" && lvl.Valid() {
		level = &lvl
	}
	threshold := 0.0
	if v, err := strconv.ParseFloat(q.Get("threshold"), 64); err == nil {
		threshold = v
	}
	limit, _ := pageParams(r)

	matches, err := h.HR.FindMatchingJobs(candidate, level, q.Get("department"), threshold, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if matches == nil {
		matches = []hr.JobMatch{}
	}
	writeJSON(w, http.StatusOK, matches)
}

// --- Application handlers ---

func (h *Handlers) listApplications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := hr.ApplicationFilter{}
	if id, err := strconv.ParseInt(q.Get("job_description_id"), 10, 64); err == nil {
		f.JobDescriptionID = id
	}
	if id, err := strconv.ParseInt(q.Get("resume_id"), 10, 64); err == nil {
		f.ResumeID = id
	}
	if st := hr.ApplicationStatus(q.Get("status")); st != "" && st.Valid() {
		f.Status = &st
	}
	f.Limit, f.Offset = pageParams(r)

	apps, err := h.HR.ListApplications(f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if apps == nil {
		apps = []*hr.JobApplication{}
	}
	writeJSON(w, http.StatusOK, apps)
}

func (h *Handlers) createApplication(w http.ResponseWriter, r *http.Request) {
	var body struct {
		JobDescriptionID int64 `json:"job_description_id"`
		ResumeID         int64 `json:"resume_id"`
	}
	if err := decode(r, &body); err != nil {
		h.fail(w, r, err)
		return
	}

	if _, err := h.HR.GetJob(body.JobDescriptionID); err != nil {
		h.fail(w, r, err)
		return
	}
	if _, err := h.HR.GetResume(body.ResumeID); err != nil {
		h.fail(w, r, err)
		return
	}

	app := hr.NewApplication(body.JobDescriptionID, body.ResumeID)
	if err := app.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}
	id, err := h.HR.CreateApplication(app)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.recordAudit(audit.EntityJobApplication, id, audit.ActionCreate, nil, snapshot(app))
	writeJSON(w, http.StatusCreated, app)
}

func (h *Handlers) getApplication(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	app, err := h.HR.GetApplication(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *Handlers) updateApplicationStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var body struct {
		Status hr.ApplicationStatus `json:"status"`
		Reason string               `json:"reason"`
	}
	if err := decode(r, &body); err != nil {
		h.fail(w, r, err)
		return
	}
	if !body.Status.Valid() {
		h.fail(w, r, errs.Validation("status", "unknown status %q", body.Status))
		return
	}

	app, err := h.HR.GetApplication(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	prev := app.Status
	if !app.UpdateStatus(body.Status, body.Reason) {
		h.fail(w, r, errs.Domain("application %d cannot move from %q to %q", id, prev, body.Status))
		return
	}
	if err := h.HR.UpdateApplication(app); err != nil {
		h.fail(w, r, err)
		return
	}

	h.recordAudit(audit.EntityJobApplication, id, applicationAction(body.Status), map[string]any{"status": prev}, map[string]any{"status": body.Status, "reason": body.Reason})
	writeJSON(w, http.StatusOK, app)
}

func applicationAction(st hr.ApplicationStatus) audit.Action {
	switch st {
	case hr.ApplicationHired:
		return audit.ActionApprove
	case hr.ApplicationRejected:
		return audit.ActionReject
	}
	return audit.ActionUpdate
}
