package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GoCodeAlone/foreman/comms"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcher_Deliver(t *testing.T) {
	store := newTestStore(t)

	type received struct {
		body       delivery
		deliveryID string
	}
	got := make(chan received, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body delivery
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode delivery: %v", err)
		}
		got <- received{body: body, deliveryID: r.Header.Get("X-Delivery-ID")}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	hook := New(srv.URL, comms.TicketCreate)
	if err := store.Create(hook); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	d := NewDispatcher(store, 2*time.Second, discardLogger())
	evt := comms.NewEvent(comms.TicketCreate, map[string]any{"ticket_id": float64(7)})
	if err := d.Deliver(context.Background(), evt); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}

	select {
	case r := <-got:
		if r.body.WebhookID != hook.ID {
			t.Errorf("webhook_id = %d, want %d", r.body.WebhookID, hook.ID)
		}
		if r.body.Event.EventCode != comms.TicketCreate {
			t.Errorf("event_code = %s, want %s", r.body.Event.EventCode, comms.TicketCreate)
		}
		if r.body.Event.Payload["ticket_id"] != float64(7) {
			t.Errorf("payload = %v", r.body.Event.Payload)
		}
		if r.deliveryID == "" {
			t.Error("X-Delivery-ID header missing")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("endpoint never received the delivery")
	}
}

func TestDispatcher_SkipsNonMatching(t *testing.T) {
	store := newTestStore(t)

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	hook := New(srv.URL, comms.BoardDelete)
	if err := store.Create(hook); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	d := NewDispatcher(store, 2*time.Second, discardLogger())
	if err := d.Deliver(context.Background(), comms.NewEvent(comms.TicketCreate, nil)); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Errorf("endpoint hit %d times for a non-matching event", hits)
	}
}

func TestDispatcher_ReportsEndpointFailure(t *testing.T) {
	store := newTestStore(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	hook := New(srv.URL, comms.TicketCreate)
	if err := store.Create(hook); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	d := NewDispatcher(store, 2*time.Second, discardLogger())
	err := d.Deliver(context.Background(), comms.NewEvent(comms.TicketCreate, nil))
	if err == nil {
		t.Fatal("Deliver() should report the 500 response")
	}
}

func TestDispatcher_Attach(t *testing.T) {
	store := newTestStore(t)

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	hook := New(srv.URL, comms.MatchAll)
	if err := store.Create(hook); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	bus := comms.NewInMemoryBus()
	d := NewDispatcher(store, 2*time.Second, discardLogger())
	unsub := d.Attach(bus)
	defer unsub()

	// Wildcard registration receives unrelated codes too.
	for _, code := range []comms.Code{comms.TaskCreate, comms.AgentHired} {
		if err := bus.Publish(context.Background(), comms.NewEvent(code, nil)); err != nil {
			t.Fatalf("Publish(%s): %v", code, err)
		}
	}
	if atomic.LoadInt32(&hits) != 2 {
		t.Errorf("endpoint hit %d times, want 2", hits)
	}

	// A failing endpoint must not fail the publish.
	srv.Close()
	if err := bus.Publish(context.Background(), comms.NewEvent(comms.TaskDelete, nil)); err != nil {
		t.Errorf("Publish with dead endpoint: %v", err)
	}
}
