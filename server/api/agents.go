package api

import (
	"net/http"
	"strconv"

	"github.com/GoCodeAlone/foreman/agent"
	"github.com/GoCodeAlone/foreman/audit"
	"github.com/GoCodeAlone/foreman/comms"
	"github.com/GoCodeAlone/foreman/errs"
)

func (h *Handlers) listAgents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := agent.Filter{}
	if st := agent.Status(q.Get("status")); st != "" && st.Valid() {
		f.Status = &st
	}
	if id, err := strconv.ParseInt(q.Get("job_description_id"), 10, 64); err == nil {
		f.JobDescriptionID = id
	}
	f.Limit, f.Offset = pageParams(r)

	agents, err := h.Agents.List(f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if agents == nil {
		agents = []*agent.Agent{}
	}
	writeJSON(w, http.StatusOK, agents)
}

// hireAgent creates an agent from a resume and a job description. The
// referenced records must exist and the model must be an active catalog
// entry; hiring against a retired model is refused.
func (h *Handlers) hireAgent(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name             string         `json:"name"`
		ResumeID         int64          `json:"resume_id"`
		JobDescriptionID int64          `json:"job_description_id"`
		ModelName        string         `json:"model_name"`
		Configuration    map[string]any `json:"configuration"`
		ExecutionParams  map[string]any `json:"execution_parameters"`
	}
	if err := decode(r, &body); err != nil {
		h.fail(w, r, err)
		return
	}

	a := agent.New(body.Name, body.ResumeID, body.JobDescriptionID, body.ModelName)
	if body.Configuration != nil {
		a.Configuration = body.Configuration
	}
	if body.ExecutionParams != nil {
		a.ExecutionParams = body.ExecutionParams
	}
	if err := a.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}

	if _, err := h.HR.GetResume(a.ResumeID); err != nil {
		h.fail(w, r, err)
		return
	}
	if _, err := h.HR.GetJob(a.JobDescriptionID); err != nil {
		h.fail(w, r, err)
		return
	}
	m, err := h.Costs.GetModelByName(a.ModelName)
	if err != nil {
		if errs.IsNotFound(err) {
			h.fail(w, r, errs.Validation("model_name", "unknown model %q", a.ModelName))
			return
		}
		h.fail(w, r, err)
		return
	}
	if !m.IsActive {
		h.fail(w, r, errs.Domain("model %q is retired and cannot back new agents", m.Name))
		return
	}

	id, err := h.Agents.Create(a)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.publish(r, comms.AgentHired, map[string]any{"agent_id": id, "name": a.Name, "model_name": a.ModelName})
	h.recordAudit(audit.EntityAgent, id, audit.ActionCreate, nil, snapshot(a))
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handlers) getAgent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	a, err := h.Agents.Get(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handlers) updateAgent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	existing, err := h.Agents.Get(id)
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
	// Status changes go through the lifecycle endpoints, and the hiring
	// references are fixed at hire time.
	updated.Status = existing.Status
	updated.ResumeID = existing.ResumeID
	updated.JobDescriptionID = existing.JobDescriptionID
	if err := updated.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.Agents.Update(&updated); err != nil {
		h.fail(w, r, err)
		return
	}

	h.recordAudit(audit.EntityAgent, id, audit.ActionUpdate, before, snapshot(&updated))
	writeJSON(w, http.StatusOK, &updated)
}

func (h *Handlers) activateAgent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	a, err := h.Agents.Get(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	prev := a.Status
	if !a.Activate() {
		h.fail(w, r, errs.Domain("agent %d is terminated and cannot be reactivated", id))
		return
	}
	if err := h.Agents.Update(a); err != nil {
		h.fail(w, r, err)
		return
	}

	h.publish(r, comms.AgentStatus, map[string]any{"agent_id": id, "from": prev, "to": a.Status})
	h.recordAudit(audit.EntityAgent, id, audit.ActionActivate, map[string]any{"status": prev}, map[string]any{"status": a.Status})
	writeJSON(w, http.StatusOK, a)
}

func (h *Handlers) deactivateAgent(w http.ResponseWriter, r *http.Request) {
	h.retireAgent(w, r, false)
}

func (h *Handlers) terminateAgent(w http.ResponseWriter, r *http.Request) {
	h.retireAgent(w, r, true)
}

// retireAgent handles both deactivation and termination; the two differ
// only in the target status and reversibility.
func (h *Handlers) retireAgent(w http.ResponseWriter, r *http.Request, terminal bool) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength > 0 {
		if err := decode(r, &body); err != nil {
			h.fail(w, r, err)
			return
		}
	}

	a, err := h.Agents.Get(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	prev := a.Status
	if terminal {
		a.Terminate(body.Reason)
	} else {
		if prev == agent.StatusTerminated {
			h.fail(w, r, errs.Domain("agent %d is terminated; deactivation does not apply", id))
			return
		}
		a.Deactivate(body.Reason)
	}
	if err := h.Agents.Update(a); err != nil {
		h.fail(w, r, err)
		return
	}

	h.publish(r, comms.AgentStatus, map[string]any{"agent_id": id, "from": prev, "to": a.Status, "reason": body.Reason})
	h.recordAudit(audit.EntityAgent, id, audit.ActionDeactivate, map[string]any{"status": prev}, map[string]any{"status": a.Status, "reason": body.Reason})
	writeJSON(w, http.StatusOK, a)
}
