// Package api implements the REST handlers for the workforce orchestrator.
// Every mutation follows the same shape: validate, persist, then publish a
// lifecycle event and record an audit entry. Events and audit writes never
// fail the request; the mutation has already committed.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/GoCodeAlone/foreman/agent"
	"github.com/GoCodeAlone/foreman/audit"
	"github.com/GoCodeAlone/foreman/board"
	"github.com/GoCodeAlone/foreman/comms"
	"github.com/GoCodeAlone/foreman/costs"
	"github.com/GoCodeAlone/foreman/errs"
	"github.com/GoCodeAlone/foreman/hr"
	"github.com/GoCodeAlone/foreman/internal/metrics"
	"github.com/GoCodeAlone/foreman/prompts"
	"github.com/GoCodeAlone/foreman/server/ws"
	"github.com/GoCodeAlone/foreman/task"
	"github.com/GoCodeAlone/foreman/webhook"
)

// Handlers bundles all REST API handler dependencies.
type Handlers struct {
	Tasks      *task.SQLiteStore
	Agents     *agent.SQLiteStore
	HR         *hr.SQLiteStore
	Boards     *board.SQLiteStore
	Costs      *costs.SQLiteStore
	Audit      *audit.SQLiteStore
	Prompts    *prompts.SQLiteStore
	Webhooks   *webhook.SQLiteStore
	Dispatcher *webhook.Dispatcher
	Bus        comms.Bus
	Hub        *ws.Hub
	Logger     *slog.Logger
	Version    string
	StartAt    time.Time
}

// Register mounts every API route on r. The caller mounts r under /api.
func (h *Handlers) Register(r chi.Router) {
	r.Get("/status", h.status)
	r.Get("/version", h.version)

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", h.listTasks)
		r.Post("/", h.createTask)
		r.Get("/ready", h.listReadyTasks)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getTask)
			r.Patch("/", h.updateTask)
			r.Delete("/", h.deleteTask)
			r.Post("/status", h.updateTaskStatus)
			r.Post("/blockers", h.addTaskBlocker)
			r.Delete("/blockers/{type}", h.removeTaskBlocker)
			r.Get("/assignments", h.listTaskAssignments)
			r.Post("/assignments", h.assignTask)
		})
	})

	r.Route("/assignments", func(r chi.Router) {
		r.Get("/", h.listAssignments)
		r.Get("/{id}", h.getAssignment)
		r.Post("/{id}/status", h.updateAssignmentStatus)
		r.Post("/{id}/quality", h.scoreAssignment)
		r.Post("/{id}/cost", h.recordAssignmentCost)
	})

	r.Route("/agents", func(r chi.Router) {
		r.Get("/", h.listAgents)
		r.Post("/", h.hireAgent)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getAgent)
			r.Patch("/", h.updateAgent)
			r.Post("/activate", h.activateAgent)
			r.Post("/deactivate", h.deactivateAgent)
			r.Post("/terminate", h.terminateAgent)
		})
	})

	r.Route("/resumes", func(r chi.Router) {
		r.Get("/", h.listResumes)
		r.Post("/", h.createResume)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getResume)
			r.Patch("/", h.updateResume)
			r.Delete("/", h.deleteResume)
			r.Post("/skills", h.addResumeSkill)
			r.Delete("/skills/{skill}", h.removeResumeSkill)
		})
	})

	r.Route("/jobs", func(r chi.Router) {
		r.Get("/", h.listJobs)
		r.Post("/", h.createJob)
		r.Get("/matches", h.matchJobs)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getJob)
			r.Patch("/", h.updateJob)
			r.Delete("/", h.deleteJob)
		})
	})

	r.Route("/applications", func(r chi.Router) {
		r.Get("/", h.listApplications)
		r.Post("/", h.createApplication)
		r.Get("/{id}", h.getApplication)
		r.Post("/{id}/status", h.updateApplicationStatus)
	})

	r.Route("/boards", func(r chi.Router) {
		r.Get("/", h.listBoards)
		r.Post("/", h.createBoard)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getBoard)
			r.Patch("/", h.updateBoard)
			r.Delete("/", h.deleteBoard)
			r.Get("/columns", h.listColumns)
			r.Post("/columns", h.createColumn)
		})
	})

	r.Route("/columns/{id}", func(r chi.Router) {
		r.Patch("/", h.updateColumn)
		r.Delete("/", h.deleteColumn)
		r.Get("/tickets", h.listColumnTickets)
		r.Post("/tickets", h.createTicket)
	})

	r.Route("/tickets", func(r chi.Router) {
		r.Get("/", h.listTickets)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getTicket)
			r.Patch("/", h.updateTicket)
			r.Delete("/", h.deleteTicket)
			r.Post("/move", h.moveTicket)
			r.Get("/comments", h.listComments)
			r.Post("/comments", h.createComment)
		})
	})

	r.Route("/comments/{id}", func(r chi.Router) {
		r.Patch("/", h.updateComment)
		r.Delete("/", h.deleteComment)
	})

	r.Route("/models", func(r chi.Router) {
		r.Get("/", h.listModels)
		r.Post("/", h.createModel)
		r.Get("/by-name/{name}", h.getModelByName)
		r.Get("/by-name/{name}/cost", h.calculateModelCost)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getModel)
			r.Patch("/", h.updateModel)
			r.Delete("/", h.deleteModel)
		})
	})

	r.Route("/costs", func(r chi.Router) {
		r.Get("/", h.listExecutions)
		r.Post("/", h.recordExecution)
		r.Get("/summary", h.spendSummary)
		r.Get("/{id}", h.getExecution)
	})

	r.Route("/audit", func(r chi.Router) {
		r.Get("/", h.listAudit)
		r.Get("/history", h.auditHistory)
		r.Get("/{id}", h.getAuditEntry)
	})

	r.Route("/prompts", func(r chi.Router) {
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.listTaskPrompts)
			r.Post("/", h.createTaskPrompt)
			r.Get("/by-name/{name}", h.getTaskPromptByName)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getTaskPrompt)
				r.Patch("/", h.updateTaskPrompt)
				r.Delete("/", h.deleteTaskPrompt)
				r.Post("/render", h.renderTaskPrompt)
			})
		})
		r.Route("/resumes", func(r chi.Router) {
			r.Get("/", h.listResumePrompts)
			r.Post("/", h.createResumePrompt)
			r.Get("/by-name/{name}", h.getResumePromptByName)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getResumePrompt)
				r.Patch("/", h.updateResumePrompt)
				r.Delete("/", h.deleteResumePrompt)
				r.Post("/render", h.renderResumePrompt)
			})
		})
	})

	r.Route("/webhooks", func(r chi.Router) {
		r.Get("/", h.listWebhooks)
		r.Post("/", h.createWebhook)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getWebhook)
			r.Patch("/", h.updateWebhook)
			r.Delete("/", h.deleteWebhook)
			r.Post("/test", h.testWebhook)
		})
	})
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// fail maps domain errors onto HTTP status codes: validation failures are
// 400, missing entities 404, rule conflicts 409, everything else 500.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errs.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errs.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errs.IsDomain(err):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.Logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// decode reads the request body as JSON into v.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errs.Validation("body", "invalid JSON: %v", err)
	}
	return nil
}

// idParam parses a positive integer path parameter.
func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.Validation(name, "must be a positive integer")
	}
	return id, nil
}

// pageParams parses optional limit and offset query parameters. Malformed
// values are ignored rather than rejected.
func pageParams(r *http.Request) (limit, offset int) {
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = n
	}
	if n, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && n > 0 {
		offset = n
	}
	return limit, offset
}

// publish emits a lifecycle event on the bus. Failures are logged, never
// returned: subscribers must not be able to fail a committed mutation.
func (h *Handlers) publish(r *http.Request, code comms.Code, payload map[string]any) {
	metrics.EventsPublished.WithLabelValues(string(code)).Inc()
	if err := h.Bus.Publish(r.Context(), comms.NewEvent(code, payload)); err != nil {
		h.Logger.Warn("event publish", "code", code, "error", err)
	}
}

// recordAudit appends an entry to the audit trail on behalf of the API
// actor. Like publish, failures are logged and swallowed.
func (h *Handlers) recordAudit(entity audit.EntityType, id int64, action audit.Action, oldValues, newValues map[string]any) {
	e := audit.NewEntry(entity, id, action, audit.ActorAPI)
	e.OldValues = oldValues
	e.NewValues = newValues
	if err := h.Audit.Record(e); err != nil {
		h.Logger.Warn("audit record", "entity", entity, "entity_id", id, "error", err)
	}
}

// snapshot round-trips an entity through JSON into the generic map shape
// the audit trail stores for old and new values.
func snapshot(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

// --- Status / version ---

func (h *Handlers) status(w http.ResponseWriter, _ *http.Request) {
	activeAgents := 0
	activeStatus := agent.StatusActive
	if agents, err := h.Agents.List(agent.Filter{Status: &activeStatus}); err == nil {
		activeAgents = len(agents)
	}

	pendingTasks := 0
	pendingStatus := task.StatusPending
	if tasks, err := h.Tasks.List(task.Filter{Status: &pendingStatus}); err == nil {
		pendingTasks = len(tasks)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"version":        h.Version,
		"uptime_seconds": int64(time.Since(h.StartAt).Seconds()),
		"active_agents":  activeAgents,
		"pending_tasks":  pendingTasks,
		"sse_clients":    h.Hub.ClientCount(),
	})
}

func (h *Handlers) version(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": h.Version,
	})
}

// --- Audit handlers ---

func (h *Handlers) listAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := audit.Filter{
		EntityType: audit.EntityType(q.Get("entity_type")),
		Action:     audit.Action(q.Get("action")),
		ActorType:  audit.ActorType(q.Get("actor_type")),
	}
	if id, err := strconv.ParseInt(q.Get("entity_id"), 10, 64); err == nil {
		f.EntityID = id
	}
	if ts, err := time.Parse(time.RFC3339, q.Get("since")); err == nil {
		f.Since = ts
	}
	if ts, err := time.Parse(time.RFC3339, q.Get("until")); err == nil {
		f.Until = ts
	}
	f.Limit, f.Offset = pageParams(r)

	entries, err := h.Audit.List(f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if entries == nil {
		entries = []*audit.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handlers) getAuditEntry(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	entry, err := h.Audit.Get(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// auditHistory returns the full changelog for one entity, oldest first.
func (h *Handlers) auditHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entityType := audit.EntityType(q.Get("entity_type"))
	entityID, err := strconv.ParseInt(q.Get("entity_id"), 10, 64)
	if !entityType.Valid() || err != nil || entityID <= 0 {
		h.fail(w, r, errs.Validation("entity", "entity_type and a positive entity_id are required"))
		return
	}

	entries, err := h.Audit.EntityHistory(entityType, entityID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if entries == nil {
		entries = []*audit.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
