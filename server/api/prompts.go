package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GoCodeAlone/foreman/audit"
	"github.com/GoCodeAlone/foreman/prompts"
)

// --- Task prompt handlers ---

func (h *Handlers) listTaskPrompts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := prompts.TaskPromptFilter{
		TaskType:   q.Get("task_type"),
		ActiveOnly: q.Get("active_only") == "true",
	}
	f.Limit, f.Offset = pageParams(r)

	list, err := h.Prompts.ListTaskPrompts(f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []*prompts.TaskPrompt{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handlers) createTaskPrompt(w http.ResponseWriter, r *http.Request) {
	p := prompts.NewTaskPrompt("", "", "")
	if err := decode(r, p); err != nil {
		h.fail(w, r, err)
		return
	}
	p.ID = 0

	if err := h.Prompts.CreateTaskPrompt(p); err != nil {
		h.fail(w, r, err)
		return
	}

	h.recordAudit(audit.EntityTaskPrompt, p.ID, audit.ActionCreate, nil, snapshot(p))
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handlers) getTaskPrompt(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.Prompts.GetTaskPrompt(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) getTaskPromptByName(w http.ResponseWriter, r *http.Request) {
	p, err := h.Prompts.GetTaskPromptByName(chi.URLParam(r, "name"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) updateTaskPrompt(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	existing, err := h.Prompts.GetTaskPrompt(id)
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
	updated.Version = existing.Version // the store bumps it
	updated.CreatedAt = existing.CreatedAt

	if err := h.Prompts.UpdateTaskPrompt(&updated); err != nil {
		h.fail(w, r, err)
		return
	}

	h.recordAudit(audit.EntityTaskPrompt, id, audit.ActionUpdate, before, snapshot(&updated))
	writeJSON(w, http.StatusOK, &updated)
}

func (h *Handlers) deleteTaskPrompt(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	existing, err := h.Prompts.GetTaskPrompt(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.Prompts.DeleteTaskPrompt(id); err != nil {
		h.fail(w, r, err)
		return
	}

	h.recordAudit(audit.EntityTaskPrompt, id, audit.ActionDelete, snapshot(existing), nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) renderTaskPrompt(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var body struct {
		Variables map[string]string `json:"variables"`
	}
	if err := decode(r, &body); err != nil {
		h.fail(w, r, err)
		return
	}

	p, err := h.Prompts.GetTaskPrompt(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rendered, err := p.Render(body.Variables)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"name":      p.Name,
		"task_type": p.TaskType,
		"version":   p.Version,
		"rendered":  rendered,
	})
}

// --- Resume prompt handlers ---

func (h *Handlers) listResumePrompts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := prompts.ResumePromptFilter{
		PersonaType: q.Get("persona_type"),
		ActiveOnly:  q.Get("active_only") == "true",
	}
	f.Limit, f.Offset = pageParams(r)

	list, err := h.Prompts.ListResumePrompts(f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []*prompts.ResumePrompt{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handlers) createResumePrompt(w http.ResponseWriter, r *http.Request) {
	p := prompts.NewResumePrompt("", "", "")
	if err := decode(r, p); err != nil {
		h.fail(w, r, err)
		return
	}
	p.ID = 0

	if err := h.Prompts.CreateResumePrompt(p); err != nil {
		h.fail(w, r, err)
		return
	}

	h.recordAudit(audit.EntityResumePrompt, p.ID, audit.ActionCreate, nil, snapshot(p))
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handlers) getResumePrompt(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.Prompts.GetResumePrompt(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) getResumePromptByName(w http.ResponseWriter, r *http.Request) {
	p, err := h.Prompts.GetResumePromptByName(chi.URLParam(r, "name"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) updateResumePrompt(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	existing, err := h.Prompts.GetResumePrompt(id)
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
	updated.Version = existing.Version
	updated.CreatedAt = existing.CreatedAt

	if err := h.Prompts.UpdateResumePrompt(&updated); err != nil {
		h.fail(w, r, err)
		return
	}

	h.recordAudit(audit.EntityResumePrompt, id, audit.ActionUpdate, before, snapshot(&updated))
	writeJSON(w, http.StatusOK, &updated)
}

func (h *Handlers) deleteResumePrompt(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	existing, err := h.Prompts.GetResumePrompt(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.Prompts.DeleteResumePrompt(id); err != nil {
		h.fail(w, r, err)
		return
	}

	h.recordAudit(audit.EntityResumePrompt, id, audit.ActionDelete, snapshot(existing), nil)
	w.WriteHeader(http.StatusNoContent)
}

// renderResumePrompt renders a persona template and returns the behavioral
// attributes for the persona type alongside the text.
func (h *Handlers) renderResumePrompt(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var body struct {
		Variables map[string]string `json:"variables"`
	}
	if err := decode(r, &body); err != nil {
		h.fail(w, r, err)
		return
	}

	p, err := h.Prompts.GetResumePrompt(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rendered, err := p.Render(body.Variables)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"name":         p.Name,
		"persona_type": p.PersonaType,
		"version":      p.Version,
		"rendered":     rendered,
		"attributes":   p.Attributes(),
	})
}
