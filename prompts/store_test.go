package prompts

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
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := NewSQLiteStore(db)
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	return store
}

func TestSQLiteStore_TaskPromptRoundTrip(t *testing.T) {
	store := newTestStore(t)

	p := NewTaskPrompt("review-checklist", "Review {file} for {concern}.", "code review")
	p.Description = "Standard review opener"
	p.Variables = []string{"file", "concern"}
	if err := store.CreateTaskPrompt(p); err != nil {
		t.Fatalf("CreateTaskPrompt() error = %v", err)
	}
	if p.ID == 0 {
		t.Fatal("CreateTaskPrompt did not assign an ID")
	}

	got, err := store.GetTaskPrompt(p.ID)
	if err != nil {
		t.Fatalf("GetTaskPrompt() error = %v", err)
	}
	if got.TaskType != "code_review" {
		t.Errorf("TaskType = %q, want code_review", got.TaskType)
	}
	if len(got.Variables) != 2 {
		t.Errorf("Variables = %v", got.Variables)
	}
	if got.Version != 1 {
		t.Errorf("Version = %d, want 1", got.Version)
	}

	byName, err := store.GetTaskPromptByName("review-checklist")
	if err != nil {
		t.Fatalf("GetTaskPromptByName() error = %v", err)
	}
	if byName.ID != p.ID {
		t.Errorf("GetTaskPromptByName ID = %d, want %d", byName.ID, p.ID)
	}

	out, err := byName.Render(map[string]string{"file": "store.go", "concern": "locking"})
	if err != nil {
		t.Fatalf("Render() after load error = %v", err)
	}
	if out != "Review store.go for locking." {
		t.Errorf("Render() = %q", out)
	}
}

func TestSQLiteStore_TaskPromptUpdateBumpsVersion(t *testing.T) {
	store := newTestStore(t)

	p := NewTaskPrompt("docs", "Document {target}.", "documentation")
	p.Variables = []string{"target"}
	if err := store.CreateTaskPrompt(p); err != nil {
		t.Fatalf("CreateTaskPrompt() error = %v", err)
	}

	p.Template = "Document {target} thoroughly."
	if err := store.UpdateTaskPrompt(p); err != nil {
		t.Fatalf("UpdateTaskPrompt() error = %v", err)
	}

	got, err := store.GetTaskPrompt(p.ID)
	if err != nil {
		t.Fatalf("GetTaskPrompt() error = %v", err)
	}
	if got.Version != 2 {
		t.Errorf("Version after update = %d, want 2", got.Version)
	}

	missing := NewTaskPrompt("ghost", "x", "testing")
	missing.ID = 9999
	if err := store.UpdateTaskPrompt(missing); !errs.IsNotFound(err) {
		t.Errorf("UpdateTaskPrompt(missing) error = %v, want not found", err)
	}
	if missing.Version != 1 {
		t.Errorf("failed update changed version to %d", missing.Version)
	}
}

func TestSQLiteStore_TaskPromptNameUnique(t *testing.T) {
	store := newTestStore(t)

	a := NewTaskPrompt("opening", "Start with {goal}.", "planning")
	a.Variables = []string{"goal"}
	if err := store.CreateTaskPrompt(a); err != nil {
		t.Fatalf("CreateTaskPrompt() error = %v", err)
	}

	b := NewTaskPrompt("opening", "Different body.", "planning")
	if err := store.CreateTaskPrompt(b); !errs.IsDomain(err) {
		t.Fatalf("duplicate name: error = %v, want domain error", err)
	}
}

func TestSQLiteStore_ListTaskPrompts(t *testing.T) {
	store := newTestStore(t)

	seed := []*TaskPrompt{
		NewTaskPrompt("alpha", "a", "testing"),
		NewTaskPrompt("bravo", "b", "testing"),
		NewTaskPrompt("charlie", "c", "documentation"),
	}
	for _, p := range seed {
		if err := store.CreateTaskPrompt(p); err != nil {
			t.Fatalf("CreateTaskPrompt(%s) error = %v", p.Name, err)
		}
	}
	seed[1].IsActive = false
	if err := store.UpdateTaskPrompt(seed[1]); err != nil {
		t.Fatalf("UpdateTaskPrompt() error = %v", err)
	}

	byType, err := store.ListTaskPrompts(TaskPromptFilter{TaskType: "Testing"})
	if err != nil {
		t.Fatalf("ListTaskPrompts(type) error = %v", err)
	}
	if len(byType) != 2 {
		t.Errorf("type filter returned %d, want 2", len(byType))
	}

	active, err := store.ListTaskPrompts(TaskPromptFilter{ActiveOnly: true})
	if err != nil {
		t.Fatalf("ListTaskPrompts(active) error = %v", err)
	}
	if len(active) != 2 {
		t.Errorf("active filter returned %d, want 2", len(active))
	}
	for _, p := range active {
		if p.Name == "bravo" {
			t.Error("inactive prompt leaked through active filter")
		}
	}

	if err := store.DeleteTaskPrompt(seed[0].ID); err != nil {
		t.Fatalf("DeleteTaskPrompt() error = %v", err)
	}
	if err := store.DeleteTaskPrompt(seed[0].ID); !errs.IsNotFound(err) {
		t.Errorf("double delete: error = %v, want not found", err)
	}
}

func TestSQLiteStore_ResumePrompts(t *testing.T) {
	store := newTestStore(t)

	p := NewResumePrompt("qa-persona", "You are a {trait} reviewer.", "detail-oriented")
	p.Variables = []string{"trait"}
	if err := store.CreateResumePrompt(p); err != nil {
		t.Fatalf("CreateResumePrompt() error = %v", err)
	}

	got, err := store.GetResumePromptByName("qa-persona")
	if err != nil {
		t.Fatalf("GetResumePromptByName() error = %v", err)
	}
	if got.PersonaType != "detail_oriented" {
		t.Errorf("PersonaType = %q, want detail_oriented", got.PersonaType)
	}
	if got.Attributes().WorkApproach != "methodical" {
		t.Errorf("WorkApproach = %q, want methodical", got.Attributes().WorkApproach)
	}

	other := NewResumePrompt("lead-persona", "You set direction.", "leadership")
	if err := store.CreateResumePrompt(other); err != nil {
		t.Fatalf("CreateResumePrompt() error = %v", err)
	}

	// The filter folds hyphens the same way validation does.
	detail, err := store.ListResumePrompts(ResumePromptFilter{PersonaType: "Detail-Oriented"})
	if err != nil {
		t.Fatalf("ListResumePrompts() error = %v", err)
	}
	if len(detail) != 1 || detail[0].Name != "qa-persona" {
		t.Errorf("persona filter = %v", detail)
	}

	if err := store.DeleteResumePrompt(p.ID); err != nil {
		t.Fatalf("DeleteResumePrompt() error = %v", err)
	}
	if _, err := store.GetResumePrompt(p.ID); !errs.IsNotFound(err) {
		t.Errorf("GetResumePrompt after delete: error = %v, want not found", err)
	}
}
