package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/GoCodeAlone/foreman/audit"
	"github.com/GoCodeAlone/foreman/costs"
	"github.com/GoCodeAlone/foreman/errs"
)

// --- Model catalog handlers ---

func (h *Handlers) listModels(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := costs.ModelFilter{
		Provider:   q.Get("provider"),
		ActiveOnly: q.Get("active_only") == "true",
	}
	if tier := costs.PerformanceTier(q.Get("tier")); tier != "" && tier.Valid() {
		f.Tier = &tier
	}
	f.Limit, f.Offset = pageParams(r)

	models, err := h.Costs.ListModels(f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if models == nil {
		models = []*costs.Model{}
	}
	writeJSON(w, http.StatusOK, models)
}

func (h *Handlers) createModel(w http.ResponseWriter, r *http.Request) {
	m := &costs.Model{}
	if err := decode(r, m); err != nil {
		h.fail(w, r, err)
		return
	}
	m.ID = 0
	m.IsActive = true

	if err := h.Costs.CreateModel(m); err != nil {
		h.fail(w, r, err)
		return
	}

	h.recordAudit(audit.EntityModelCatalog, m.ID, audit.ActionCreate, nil, snapshot(m))
	writeJSON(w, http.StatusCreated, m)
}

func (h *Handlers) getModel(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	m, err := h.Costs.GetModel(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handlers) getModelByName(w http.ResponseWriter, r *http.Request) {
	m, err := h.Costs.GetModelByName(chi.URLParam(r, "name"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handlers) updateModel(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	existing, err := h.Costs.GetModel(id)
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

	if err := h.Costs.UpdateModel(&updated); err != nil {
		h.fail(w, r, err)
		return
	}

	h.recordAudit(audit.EntityModelCatalog, id, audit.ActionUpdate, before, snapshot(&updated))
	writeJSON(w, http.StatusOK, &updated)
}

func (h *Handlers) deleteModel(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	existing, err := h.Costs.GetModel(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.Costs.DeleteModel(id); err != nil {
		h.fail(w, r, err)
		return
	}

	h.recordAudit(audit.EntityModelCatalog, id, audit.ActionDelete, snapshot(existing), nil)
	w.WriteHeader(http.StatusNoContent)
}

// calculateModelCost prices a hypothetical execution against one catalog
// entry without recording anything.
func (h *Handlers) calculateModelCost(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	m, err := h.Costs.GetModelByName(name)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	q := r.URL.Query()
	inputTokens, _ := strconv.Atoi(q.Get("input_tokens"))
	outputTokens, _ := strconv.Atoi(q.Get("output_tokens"))

	cost, err := m.CalculateCost(inputTokens, outputTokens)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"model":         m.Name,
		"input_tokens":  inputTokens,
		"output_tokens": outputTokens,
		"cost":          cost,
	})
}

// --- Execution ledger handlers ---

func (h *Handlers) listExecutions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := costs.ExecutionFilter{ExecutionType: q.Get("execution_type")}
	if id, err := strconv.ParseInt(q.Get("agent_id"), 10, 64); err == nil {
		f.AgentID = id
	}
	if id, err := strconv.ParseInt(q.Get("task_id"), 10, 64); err == nil {
		f.TaskID = id
	}
	f.Limit, f.Offset = pageParams(r)

	executions, err := h.Costs.ListExecutions(f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if executions == nil {
		executions = []*costs.Execution{}
	}
	writeJSON(w, http.StatusOK, executions)
}

// recordExecution appends one row to the spend ledger. When the client
// reports token counts without a cost, the cost is priced from the model
// catalog. The model name itself is not checked against the catalog: the
// ledger outlives retired and deleted models.
func (h *Handlers) recordExecution(w http.ResponseWriter, r *http.Request) {
	e := &costs.Execution{}
	if err := decode(r, e); err != nil {
		h.fail(w, r, err)
		return
	}
	e.ID = 0

	if _, err := h.Agents.Get(e.AgentID); err != nil {
		h.fail(w, r, err)
		return
	}
	if e.TaskID != nil {
		if _, err := h.Tasks.Get(*e.TaskID); err != nil {
			h.fail(w, r, err)
			return
		}
	}

	if e.TotalCost == 0 && (e.InputTokens > 0 || e.OutputTokens > 0) {
		m, err := h.Costs.GetModelByName(e.ModelName)
		if err != nil {
			if errs.IsNotFound(err) {
				h.fail(w, r, errs.Validation("model_name", "cannot price tokens against unknown model %q", e.ModelName))
				return
			}
			h.fail(w, r, err)
			return
		}
		cost, err := m.CalculateCost(e.InputTokens, e.OutputTokens)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		e.TotalCost = cost
	}

	if err := h.Costs.CreateExecution(e); err != nil {
		h.fail(w, r, err)
		return
	}

	h.recordAudit(audit.EntityExecutionCost, e.ID, audit.ActionExecute, nil, snapshot(e))
	writeJSON(w, http.StatusCreated, e)
}

func (h *Handlers) getExecution(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	e, err := h.Costs.GetExecution(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// spendSummary totals the ledger for exactly one agent or one task.
func (h *Handlers) spendSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	agentID, agentErr := strconv.ParseInt(q.Get("agent_id"), 10, 64)
	taskID, taskErr := strconv.ParseInt(q.Get("task_id"), 10, 64)

	switch {
	case agentErr == nil && taskErr == nil:
		h.fail(w, r, errs.Validation("summary", "agent_id and task_id are mutually exclusive"))
	case agentErr == nil:
		spend, err := h.Costs.AgentSpend(agentID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"agent_id": agentID, "spend": spend})
	case taskErr == nil:
		spend, err := h.Costs.TaskSpend(taskID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"task_id": taskID, "spend": spend})
	default:
		h.fail(w, r, errs.Validation("summary", "agent_id or task_id is required"))
	}
}
