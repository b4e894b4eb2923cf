package webhook

import (
	"path/filepath"
	"testing"

	"github.com/GoCodeAlone/foreman/comms"
	"github.com/GoCodeAlone/foreman/errs"
	"github.com/GoCodeAlone/foreman/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := NewSQLiteStore(db)
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	return store
}

func TestWebhookValidate(t *testing.T) {
	w := New("  https://example.com/hooks/tickets ", comms.TicketCreate)
	if err := w.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if w.URL != "https://example.com/hooks/tickets" {
		t.Errorf("URL = %q, want trimmed", w.URL)
	}

	bad := []struct {
		name string
		url  string
		code comms.Code
	}{
		{"empty url", "", comms.TicketCreate},
		{"relative url", "/hooks", comms.TicketCreate},
		{"wrong scheme", "ftp://example.com", comms.TicketCreate},
		{"no host", "https://", comms.TicketCreate},
		{"empty code", "https://example.com", "  "},
		{"unknown code", "https://example.com", "TICKET_PAINTED"},
	}
	for _, tc := range bad {
		t.Run(tc.name, func(t *testing.T) {
			if err := New(tc.url, tc.code).Validate(); !errs.IsValidation(err) {
				t.Errorf("error = %v, want validation", err)
			}
		})
	}
}

func TestSQLiteStore_CRUD(t *testing.T) {
	store := newTestStore(t)

	w := New("https://example.com/hooks", comms.BoardCreate)
	if err := store.Create(w); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if w.ID == 0 {
		t.Fatal("Create did not assign an ID")
	}

	got, err := store.Get(w.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.URL != w.URL || got.EventCode != comms.BoardCreate || !got.Active {
		t.Errorf("Get() = %+v", got)
	}

	got.Active = false
	if err := store.Update(got); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	again, err := store.Get(w.ID)
	if err != nil {
		t.Fatalf("Get() after update error = %v", err)
	}
	if again.Active {
		t.Error("deactivation did not persist")
	}

	if err := store.Delete(w.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(w.ID); !errs.IsNotFound(err) {
		t.Errorf("Get after delete: error = %v, want not found", err)
	}
	if err := store.Delete(w.ID); !errs.IsNotFound(err) {
		t.Errorf("double delete: error = %v, want not found", err)
	}
}

func TestSQLiteStore_Matching(t *testing.T) {
	store := newTestStore(t)

	ticket := New("https://example.com/tickets", comms.TicketCreate)
	all := New("https://example.com/firehose", comms.MatchAll)
	board := New("https://example.com/boards", comms.BoardCreate)
	dormant := New("https://example.com/dormant", comms.TicketCreate)
	dormant.Active = false

	for _, w := range []*Webhook{ticket, all, board, dormant} {
		if err := store.Create(w); err != nil {
			t.Fatalf("Create(%s) error = %v", w.URL, err)
		}
	}

	matches, err := store.Matching(comms.TicketCreate)
	if err != nil {
		t.Fatalf("Matching() error = %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("Matching() returned %d, want 2 (exact + wildcard)", len(matches))
	}
	if matches[0].ID != ticket.ID || matches[1].ID != all.ID {
		t.Errorf("Matching() = %v, %v", matches[0].URL, matches[1].URL)
	}

	active, err := store.List(Filter{ActiveOnly: true})
	if err != nil {
		t.Fatalf("List(active) error = %v", err)
	}
	if len(active) != 3 {
		t.Errorf("active filter returned %d, want 3", len(active))
	}

	byCode, err := store.List(Filter{EventCode: comms.TicketCreate})
	if err != nil {
		t.Fatalf("List(code) error = %v", err)
	}
	if len(byCode) != 2 {
		t.Errorf("code filter returned %d, want 2", len(byCode))
	}
}
