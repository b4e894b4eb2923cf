package agent

import (
	"path/filepath"
	"testing"

	"github.com/GoCodeAlone/foreman/errs"
	"github.com/GoCodeAlone/foreman/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := NewSQLiteStore(db)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	return store
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	store := newTestStore(t)

	a := New("researcher", 2, 4, "opus-large")
	a.ExecutionParams["temperature"] = 0.2
	a.UpdatePerformanceMetric("tasks_done", 3)

	id, err := store.Create(a)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id == 0 {
		t.Fatal("Create returned zero ID")
	}

	got, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "researcher" || got.ModelName != "opus-large" {
		t.Errorf("got %q/%q, want researcher/opus-large", got.Name, got.ModelName)
	}
	if got.ResumeID != 2 || got.JobDescriptionID != 4 {
		t.Errorf("refs = (%d,%d), want (2,4)", got.ResumeID, got.JobDescriptionID)
	}
	if got.ExecutionParams["temperature"] != 0.2 {
		t.Errorf("temperature = %v, want 0.2", got.ExecutionParams["temperature"])
	}
	// JSON round trip turns ints into float64.
	if got.PerformanceMetrics["tasks_done"] != float64(3) {
		t.Errorf("tasks_done = %v, want 3", got.PerformanceMetrics["tasks_done"])
	}

	got.Deactivate("seasonal pause")
	if err := store.Update(got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	reloaded, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get after update: %v", err)
	}
	if reloaded.Status != StatusInactive {
		t.Errorf("Status = %q, want inactive", reloaded.Status)
	}
	if reloaded.Configuration["deactivation_reason"] != "seasonal pause" {
		t.Errorf("deactivation_reason = %v", reloaded.Configuration["deactivation_reason"])
	}
}

func TestSQLiteStore_ListFilters(t *testing.T) {
	store := newTestStore(t)

	active := New("a1", 1, 10, "m")
	idle := New("a2", 2, 10, "m")
	idle.Deactivate("")
	other := New("a3", 3, 20, "m")

	for _, a := range []*Agent{active, idle, other} {
		if _, err := store.Create(a); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	all, err := store.List(Filter{})
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("List all: got %d, want 3", len(all))
	}

	st := StatusActive
	activeList, err := store.List(Filter{Status: &st})
	if err != nil {
		t.Fatalf("List active: %v", err)
	}
	if len(activeList) != 2 {
		t.Errorf("List active: got %d, want 2", len(activeList))
	}

	byJob, err := store.List(Filter{JobDescriptionID: 10})
	if err != nil {
		t.Fatalf("List by job: %v", err)
	}
	if len(byJob) != 2 {
		t.Errorf("List by job: got %d, want 2", len(byJob))
	}
}

func TestSQLiteStore_DeleteAndMissing(t *testing.T) {
	store := newTestStore(t)

	id, err := store.Create(New("gone", 1, 1, "m"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Delete(id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(id); !errs.IsNotFound(err) {
		t.Errorf("Get deleted = %v, want not-found", err)
	}
	if err := store.Delete(id); !errs.IsNotFound(err) {
		t.Errorf("Delete again = %v, want not-found", err)
	}
}
