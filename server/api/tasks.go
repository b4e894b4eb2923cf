package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/GoCodeAlone/foreman/audit"
	"github.com/GoCodeAlone/foreman/comms"
	"github.com/GoCodeAlone/foreman/errs"
	"github.com/GoCodeAlone/foreman/internal/metrics"
	"github.com/GoCodeAlone/foreman/skills"
	"github.com/GoCodeAlone/foreman/task"
)

func (h *Handlers) listTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := task.Filter{ExternalRef: q.Get("external_ref")}
	if st := task.Status(q.Get("status")); st != "" && st.Valid() {
		f.Status = &st
	}
	if p := task.Priority(q.Get("priority")); p != "" && p.Valid() {
		f.Priority = &p
	}
	if id, err := strconv.ParseInt(q.Get("parent_id"), 10, 64); err == nil {
		f.ParentID = &id
	}
	f.Limit, f.Offset = pageParams(r)

	tasks, err := h.Tasks.List(f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []*task.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// listReadyTasks returns pending tasks whose dependencies are all complete
// and which carry no blockers, in scheduling order.
func (h *Handlers) listReadyTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Tasks.ReadyTasks()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []*task.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *Handlers) createTask(w http.ResponseWriter, r *http.Request) {
	t := task.New("", "")
	if err := decode(r, t); err != nil {
		h.fail(w, r, err)
		return
	}
	t.ID = 0
	if err := t.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}

	id, err := h.Tasks.Create(t)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	metrics.TasksCreated.WithLabelValues(string(t.Priority)).Inc()
	h.publish(r, comms.TaskCreate, map[string]any{"task_id": id, "title": t.Title, "priority": t.Priority})
	h.recordAudit(audit.EntityTask, id, audit.ActionCreate, nil, snapshot(t))
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handlers) getTask(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	t, err := h.Tasks.Get(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handlers) updateTask(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	existing, err := h.Tasks.Get(id)
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

	if err := h.Tasks.Update(&updated); err != nil {
		h.fail(w, r, err)
		return
	}

	h.publish(r, comms.TaskEdit, map[string]any{"task_id": id})
	h.recordAudit(audit.EntityTask, id, audit.ActionUpdate, before, snapshot(&updated))
	writeJSON(w, http.StatusOK, &updated)
}

func (h *Handlers) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	existing, err := h.Tasks.Get(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.Tasks.Delete(id); err != nil {
		h.fail(w, r, err)
		return
	}

	h.publish(r, comms.TaskDelete, map[string]any{"task_id": id})
	h.recordAudit(audit.EntityTask, id, audit.ActionDelete, snapshot(existing), nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) updateTaskStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var body struct {
		Status task.Status `json:"status"`
	}
	if err := decode(r, &body); err != nil {
		h.fail(w, r, err)
		return
	}
	if !body.Status.Valid() {
		h.fail(w, r, errs.Validation("status", "unknown status %q", body.Status))
		return
	}

	t, err := h.Tasks.Get(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	prev := t.Status
	t.UpdateStatus(body.Status)
	if err := h.Tasks.Update(t); err != nil {
		h.fail(w, r, err)
		return
	}

	metrics.TaskTransitions.WithLabelValues(string(body.Status)).Inc()
	h.publish(r, comms.TaskStatus, map[string]any{"task_id": id, "from": prev, "to": body.Status})
	h.recordAudit(audit.EntityTask, id, statusAction(body.Status), map[string]any{"status": prev}, map[string]any{"status": body.Status})
	writeJSON(w, http.StatusOK, t)
}

// statusAction picks the audit action for a status change so terminal
// transitions stand out in the trail.
func statusAction(st task.Status) audit.Action {
	switch st {
	case task.StatusCompleted:
		return audit.ActionComplete
	case task.StatusFailed:
		return audit.ActionFail
	}
	return audit.ActionUpdate
}

func (h *Handlers) addTaskBlocker(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var body struct {
		Type        string         `json:"type"`
		Description string         `json:"description"`
		Extra       map[string]any `json:"extra"`
	}
	if err := decode(r, &body); err != nil {
		h.fail(w, r, err)
		return
	}

	t, err := h.Tasks.Get(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	t.AddBlocker(body.Type, body.Description, body.Extra)
	if err := t.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Tasks.Update(t); err != nil {
		h.fail(w, r, err)
		return
	}

	h.publish(r, comms.TaskBlocked, map[string]any{"task_id": id, "type": body.Type})
	h.recordAudit(audit.EntityTask, id, audit.ActionUpdate, nil, map[string]any{"blocker": body.Type, "description": body.Description})
	writeJSON(w, http.StatusOK, t)
}

func (h *Handlers) removeTaskBlocker(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	btype := chi.URLParam(r, "type")

	t, err := h.Tasks.Get(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !t.RemoveBlocker(btype) {
		h.fail(w, r, errs.NotFound("blocker", btype))
		return
	}
	if err := h.Tasks.Update(t); err != nil {
		h.fail(w, r, err)
		return
	}

	h.publish(r, comms.TaskUnblocked, map[string]any{"task_id": id, "type": btype})
	h.recordAudit(audit.EntityTask, id, audit.ActionUpdate, map[string]any{"blocker": btype}, nil)
	writeJSON(w, http.StatusOK, t)
}

// --- Assignment handlers ---

func (h *Handlers) listTaskAssignments(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeAssignments(w, r, task.AssignmentFilter{TaskID: id})
}

func (h *Handlers) listAssignments(w http.ResponseWriter, r *http.Request) {
	f := task.AssignmentFilter{}
	q := r.URL.Query()
	if id, err := strconv.ParseInt(q.Get("agent_id"), 10, 64); err == nil {
		f.AgentID = id
	}
	if id, err := strconv.ParseInt(q.Get("task_id"), 10, 64); err == nil {
		f.TaskID = id
	}
	if st := task.AssignmentStatus(q.Get("status")); st != "" && st.Valid() {
		f.Status = &st
	}
	f.Limit, f.Offset = pageParams(r)
	h.writeAssignments(w, r, f)
}

func (h *Handlers) writeAssignments(w http.ResponseWriter, r *http.Request, f task.AssignmentFilter) {
	assignments, err := h.Tasks.ListAssignments(f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if assignments == nil {
		assignments = []*task.Assignment{}
	}
	writeJSON(w, http.StatusOK, assignments)
}

// assignTask binds a task to an agent. The capability score is computed at
// assignment time from the task's required skills and the skills on the
// agent's resume, so later resume edits do not rewrite history.
func (h *Handlers) assignTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var body struct {
		AgentID      int64    `json:"agent_id"`
		CostEstimate *float64 `json:"cost_estimate"`
	}
	if err := decode(r, &body); err != nil {
		h.fail(w, r, err)
		return
	}

	t, err := h.Tasks.Get(taskID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !t.CanBeAssigned() {
		h.fail(w, r, errs.Domain("task %d cannot be assigned: status %q, %d blockers, %d dependencies",
			taskID, t.Status, len(t.Blockers), len(t.Dependencies)))
		return
	}

	a, err := h.Agents.Get(body.AgentID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !a.CanBeAssignedTasks() {
		h.fail(w, r, errs.Domain("agent %d is %s and cannot take assignments", a.ID, a.Status))
		return
	}

	asn := task.NewAssignment(taskID, a.ID, h.capabilityScore(t, a.ResumeID))
	asn.CostEstimate = body.CostEstimate
	if err := asn.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}
	asnID, err := h.Tasks.CreateAssignment(asn)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	t.UpdateStatus(task.StatusAssigned)
	if err := h.Tasks.Update(t); err != nil {
		h.fail(w, r, err)
		return
	}

	metrics.AssignmentsActive.Inc()
	metrics.TaskTransitions.WithLabelValues(string(task.StatusAssigned)).Inc()
	h.publish(r, comms.AssignCreate, map[string]any{
		"assignment_id":    asnID,
		"task_id":          taskID,
		"agent_id":         a.ID,
		"capability_score": asn.CapabilityScore,
	})
	h.publish(r, comms.TaskStatus, map[string]any{"task_id": taskID, "from": task.StatusPending, "to": task.StatusAssigned})
	h.recordAudit(audit.EntityTaskAssignment, asnID, audit.ActionAssign, nil, snapshot(asn))
	writeJSON(w, http.StatusCreated, asn)
}

// capabilityScore scales the skill match to the 0-100 range assignments
// store. A missing resume scores zero rather than failing the assignment:
// hiring records may be purged while the agent lives on.
func (h *Handlers) capabilityScore(t *task.Task, resumeID int64) float64 {
	resume, err := h.HR.GetResume(resumeID)
	if err != nil {
		h.Logger.Warn("capability score falls back to zero", "resume_id", resumeID, "error", err)
		return 0
	}
	return 100 * skills.MatchScoreWithBonus(t.RequiredSkills, resume.Skills)
}

func (h *Handlers) getAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	a, err := h.Tasks.GetAssignment(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handlers) updateAssignmentStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var body struct {
		Status task.AssignmentStatus `json:"status"`
		Notes  string                `json:"notes"`
	}
	if err := decode(r, &body); err != nil {
		h.fail(w, r, err)
		return
	}
	if !body.Status.Valid() {
		h.fail(w, r, errs.Validation("status", "unknown status %q", body.Status))
		return
	}

	a, err := h.Tasks.GetAssignment(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	prev := a.Status
	wasActive := a.IsActive()
	a.UpdateStatus(body.Status, body.Notes)
	if err := h.Tasks.UpdateAssignment(a); err != nil {
		h.fail(w, r, err)
		return
	}

	switch {
	case wasActive && !a.IsActive():
		metrics.AssignmentsActive.Dec()
	case !wasActive && a.IsActive():
		metrics.AssignmentsActive.Inc()
	}
	h.publish(r, comms.AssignStatus, map[string]any{"assignment_id": id, "from": prev, "to": body.Status})
	h.recordAudit(audit.EntityTaskAssignment, id, assignmentAction(body.Status), map[string]any{"status": prev}, map[string]any{"status": body.Status})
	writeJSON(w, http.StatusOK, a)
}

func assignmentAction(st task.AssignmentStatus) audit.Action {
	switch st {
	case task.AssignmentCompleted:
		return audit.ActionComplete
	case task.AssignmentFailed:
		return audit.ActionFail
	case task.AssignmentReassigned:
		return audit.ActionUnassign
	}
	return audit.ActionUpdate
}

func (h *Handlers) scoreAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var body struct {
		Score float64 `json:"score"`
		Notes string  `json:"notes"`
	}
	if err := decode(r, &body); err != nil {
		h.fail(w, r, err)
		return
	}

	a, err := h.Tasks.GetAssignment(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := a.SetQualityScore(body.Score, body.Notes); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Tasks.UpdateAssignment(a); err != nil {
		h.fail(w, r, err)
		return
	}

	h.recordAudit(audit.EntityTaskAssignment, id, audit.ActionUpdate, nil, map[string]any{"quality_score": body.Score})
	writeJSON(w, http.StatusOK, a)
}

func (h *Handlers) recordAssignmentCost(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var body struct {
		Cost float64 `json:"cost"`
	}
	if err := decode(r, &body); err != nil {
		h.fail(w, r, err)
		return
	}

	a, err := h.Tasks.GetAssignment(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := a.RecordActualCost(body.Cost); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Tasks.UpdateAssignment(a); err != nil {
		h.fail(w, r, err)
		return
	}

	h.recordAudit(audit.EntityTaskAssignment, id, audit.ActionUpdate, nil, map[string]any{"actual_cost": body.Cost})
	writeJSON(w, http.StatusOK, a)
}
