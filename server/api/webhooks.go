package api

import (
	"net/http"

	"github.com/GoCodeAlone/foreman/comms"
	"github.com/GoCodeAlone/foreman/webhook"
)

func (h *Handlers) listWebhooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := webhook.Filter{
		EventCode:  comms.Code(q.Get("event_code")),
		ActiveOnly: q.Get("active_only") == "true",
	}

	hooks, err := h.Webhooks.List(f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if hooks == nil {
		hooks = []*webhook.Webhook{}
	}
	writeJSON(w, http.StatusOK, hooks)
}

func (h *Handlers) createWebhook(w http.ResponseWriter, r *http.Request) {
	hook := webhook.New("", "")
	if err := decode(r, hook); err != nil {
		h.fail(w, r, err)
		return
	}
	hook.ID = 0

	if err := h.Webhooks.Create(hook); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, hook)
}

func (h *Handlers) getWebhook(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	hook, err := h.Webhooks.Get(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hook)
}

func (h *Handlers) updateWebhook(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	existing, err := h.Webhooks.Get(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	updated := *existing
	if err := decode(r, &updated); err != nil {
		h.fail(w, r, err)
		return
	}
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt

	if err := h.Webhooks.Update(&updated); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &updated)
}

func (h *Handlers) deleteWebhook(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Webhooks.Delete(id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// testWebhook fires a synthetic event at one registration. Endpoint
// failures come back as 502 so callers can tell a bad registration from a
// bad request.
func (h *Handlers) testWebhook(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	hook, err := h.Webhooks.Get(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	evt := comms.NewEvent(comms.WebhookTest, map[string]any{"webhook_id": id})
	if err := h.Dispatcher.DeliverTo(r.Context(), hook, evt); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"delivered": true, "webhook_id": id, "event_id": evt.ID})
}
