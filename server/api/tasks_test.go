package api_test

import (
	"net/http"
	"slices"
	"testing"

	"github.com/GoCodeAlone/foreman/task"
)

func TestTaskLifecycle(t *testing.T) {
	e := newEnv(t)

	rr := e.post(t, "/api/tasks", `{"title":"Ship it","description":"End to end","required_skills":["sql","go","go"],"priority":"high"}`)
	wantStatus(t, rr, http.StatusCreated)
	created := decodeAs[task.Task](t, rr)
	if created.ID == 0 {
		t.Fatal("expected non-zero task ID")
	}
	if created.Status != task.StatusPending {
		t.Errorf("expected pending, got %s", created.Status)
	}
	if !slices.Equal(created.RequiredSkills, []string{"go", "sql"}) {
		t.Errorf("skills not normalized: %v", created.RequiredSkills)
	}

	id := itoa(created.ID)

	rr = e.patch(t, "/api/tasks/"+id, `{"title":"Ship it soon"}`)
	wantStatus(t, rr, http.StatusOK)
	patched := decodeAs[task.Task](t, rr)
	if patched.Title != "Ship it soon" {
		t.Errorf("title = %q", patched.Title)
	}
	if patched.Description != "End to end" {
		t.Errorf("patch should keep unmentioned fields, got %q", patched.Description)
	}

	rr = e.post(t, "/api/tasks/"+id+"/status", `{"status":"in_progress"}`)
	wantStatus(t, rr, http.StatusOK)

	rr = e.post(t, "/api/tasks/"+id+"/status", `{"status":"completed"}`)
	wantStatus(t, rr, http.StatusOK)
	done := decodeAs[task.Task](t, rr)
	if done.CompletedAt == nil {
		t.Error("expected completion timestamp")
	}

	rr = e.del(t, "/api/tasks/"+id)
	wantStatus(t, rr, http.StatusNoContent)
	rr = e.get(t, "/api/tasks/"+id)
	wantStatus(t, rr, http.StatusNotFound)
}

func TestCreateTaskValidation(t *testing.T) {
	e := newEnv(t)

	rr := e.post(t, "/api/tasks", `{"title":"   ","description":""}`)
	wantStatus(t, rr, http.StatusBadRequest)
	resp := decodeAs[map[string]string](t, rr)
	if resp["error"] == "" {
		t.Fatal("expected an error body")
	}

	rr = e.post(t, "/api/tasks", `{not json`)
	wantStatus(t, rr, http.StatusBadRequest)
}

func TestListTasksFilters(t *testing.T) {
	e := newEnv(t)

	for _, body := range []string{
		`{"title":"a","description":"d","priority":"low"}`,
		`{"title":"b","description":"d","priority":"high"}`,
		`{"title":"c","description":"d","priority":"high"}`,
	} {
		wantStatus(t, e.post(t, "/api/tasks", body), http.StatusCreated)
	}

	rr := e.get(t, "/api/tasks?priority=high")
	wantStatus(t, rr, http.StatusOK)
	if got := len(decodeAs[[]*task.Task](t, rr)); got != 2 {
		t.Errorf("expected 2 high tasks, got %d", got)
	}

	rr = e.get(t, "/api/tasks?limit=1")
	wantStatus(t, rr, http.StatusOK)
	if got := len(decodeAs[[]*task.Task](t, rr)); got != 1 {
		t.Errorf("limit ignored, got %d tasks", got)
	}

	rr = e.get(t, "/api/tasks?status=completed")
	wantStatus(t, rr, http.StatusOK)
	got := decodeAs[[]*task.Task](t, rr)
	if got == nil {
		t.Error("expected empty array, not null")
	}
	if len(got) != 0 {
		t.Errorf("expected no completed tasks, got %d", len(got))
	}
}

func TestTaskBlockers(t *testing.T) {
	e := newEnv(t)

	rr := e.post(t, "/api/tasks", `{"title":"Blocked work","description":"d"}`)
	wantStatus(t, rr, http.StatusCreated)
	id := itoa(decodeAs[task.Task](t, rr).ID)

	rr = e.post(t, "/api/tasks/"+id+"/blockers", `{"type":"external","description":"waiting on vendor"}`)
	wantStatus(t, rr, http.StatusOK)
	blocked := decodeAs[task.Task](t, rr)
	if len(blocked.Blockers) != 1 {
		t.Fatalf("expected 1 blocker, got %d", len(blocked.Blockers))
	}

	// A blocker without a description is rejected and nothing sticks.
	rr = e.post(t, "/api/tasks/"+id+"/blockers", `{"type":"vague"}`)
	wantStatus(t, rr, http.StatusBadRequest)
	rr = e.get(t, "/api/tasks/"+id)
	if got := len(decodeAs[task.Task](t, rr).Blockers); got != 1 {
		t.Fatalf("rejected blocker persisted, got %d", got)
	}

	rr = e.del(t, "/api/tasks/"+id+"/blockers/external")
	wantStatus(t, rr, http.StatusOK)
	if got := len(decodeAs[task.Task](t, rr).Blockers); got != 0 {
		t.Errorf("expected no blockers, got %d", got)
	}

	rr = e.del(t, "/api/tasks/"+id+"/blockers/external")
	wantStatus(t, rr, http.StatusNotFound)
}

func TestReadyTasksEndpoint(t *testing.T) {
	e := newEnv(t)

	rr := e.post(t, "/api/tasks", `{"title":"Base","description":"d"}`)
	wantStatus(t, rr, http.StatusCreated)
	baseID := decodeAs[task.Task](t, rr).ID

	rr = e.post(t, "/api/tasks", `{"title":"Dependent","description":"d","dependencies":[`+itoa(baseID)+`]}`)
	wantStatus(t, rr, http.StatusCreated)

	rr = e.get(t, "/api/tasks/ready")
	wantStatus(t, rr, http.StatusOK)
	ready := decodeAs[[]*task.Task](t, rr)
	if len(ready) != 1 || ready[0].Title != "Base" {
		t.Fatalf("expected only the base task to be ready, got %d", len(ready))
	}

	// Completing the dependency frees the dependent task.
	rr = e.post(t, "/api/tasks/"+itoa(baseID)+"/status", `{"status":"completed"}`)
	wantStatus(t, rr, http.StatusOK)

	rr = e.get(t, "/api/tasks/ready")
	wantStatus(t, rr, http.StatusOK)
	ready = decodeAs[[]*task.Task](t, rr)
	if len(ready) != 1 || ready[0].Title != "Dependent" {
		t.Fatalf("expected the dependent task to become ready, got %v", len(ready))
	}
}

func TestAssignmentFlow(t *testing.T) {
	e := newEnv(t)
	agentID := e.seedAgent(t, "m-assign")

	rr := e.post(t, "/api/tasks", `{"title":"Needs go","description":"d","required_skills":["go","sql"]}`)
	wantStatus(t, rr, http.StatusCreated)
	taskID := decodeAs[task.Task](t, rr).ID

	rr = e.post(t, "/api/tasks/"+itoa(taskID)+"/assignments", `{"agent_id":`+itoa(agentID)+`,"cost_estimate":2.5}`)
	wantStatus(t, rr, http.StatusCreated)
	asn := decodeAs[task.Assignment](t, rr)
	if asn.Status != task.AssignmentAssigned {
		t.Errorf("status = %s", asn.Status)
	}
	// The seeded resume carries exactly the required skills.
	if asn.CapabilityScore != 100 {
		t.Errorf("capability score = %g, want 100", asn.CapabilityScore)
	}

	// The task moved to assigned, so a second assignment is refused.
	rr = e.post(t, "/api/tasks/"+itoa(taskID)+"/assignments", `{"agent_id":`+itoa(agentID)+`}`)
	wantStatus(t, rr, http.StatusConflict)

	rr = e.get(t, "/api/tasks/"+itoa(taskID))
	if got := decodeAs[task.Task](t, rr).Status; got != task.StatusAssigned {
		t.Errorf("task status = %s, want assigned", got)
	}

	// Quality score before completion is refused.
	rr = e.post(t, "/api/assignments/"+itoa(asn.ID)+"/quality", `{"score":90}`)
	wantStatus(t, rr, http.StatusConflict)

	rr = e.post(t, "/api/assignments/"+itoa(asn.ID)+"/status", `{"status":"completed","notes":"clean merge"}`)
	wantStatus(t, rr, http.StatusOK)
	completed := decodeAs[task.Assignment](t, rr)
	if completed.CompletedAt == nil {
		t.Error("expected completion timestamp")
	}
	if completed.CompletionNotes != "clean merge" {
		t.Errorf("notes = %q", completed.CompletionNotes)
	}

	rr = e.post(t, "/api/assignments/"+itoa(asn.ID)+"/quality", `{"score":90,"notes":"solid"}`)
	wantStatus(t, rr, http.StatusOK)
	scored := decodeAs[task.Assignment](t, rr)
	if scored.QualityScore == nil || *scored.QualityScore != 90 {
		t.Errorf("quality = %v", scored.QualityScore)
	}

	rr = e.post(t, "/api/assignments/"+itoa(asn.ID)+"/cost", `{"cost":1.25}`)
	wantStatus(t, rr, http.StatusOK)
	costed := decodeAs[task.Assignment](t, rr)
	if costed.ActualCost == nil || *costed.ActualCost != 1.25 {
		t.Errorf("actual cost = %v", costed.ActualCost)
	}

	rr = e.get(t, "/api/assignments?agent_id="+itoa(agentID))
	wantStatus(t, rr, http.StatusOK)
	if got := len(decodeAs[[]*task.Assignment](t, rr)); got != 1 {
		t.Errorf("expected 1 assignment for agent, got %d", got)
	}
}

func TestAssignTaskRefusesInactiveAgent(t *testing.T) {
	e := newEnv(t)
	agentID := e.seedAgent(t, "m-inactive")

	rr := e.post(t, "/api/agents/"+itoa(agentID)+"/deactivate", `{"reason":"on leave"}`)
	wantStatus(t, rr, http.StatusOK)

	rr = e.post(t, "/api/tasks", `{"title":"Work","description":"d"}`)
	wantStatus(t, rr, http.StatusCreated)
	taskID := decodeAs[task.Task](t, rr).ID

	rr = e.post(t, "/api/tasks/"+itoa(taskID)+"/assignments", `{"agent_id":`+itoa(agentID)+`}`)
	wantStatus(t, rr, http.StatusConflict)
}

func TestAssignBlockedTaskRefused(t *testing.T) {
	e := newEnv(t)
	agentID := e.seedAgent(t, "m-blocked")

	rr := e.post(t, "/api/tasks", `{"title":"Held","description":"d"}`)
	wantStatus(t, rr, http.StatusCreated)
	taskID := itoa(decodeAs[task.Task](t, rr).ID)

	rr = e.post(t, "/api/tasks/"+taskID+"/blockers", `{"type":"review","description":"pending sign-off"}`)
	wantStatus(t, rr, http.StatusOK)

	rr = e.post(t, "/api/tasks/"+taskID+"/assignments", `{"agent_id":`+itoa(agentID)+`}`)
	wantStatus(t, rr, http.StatusConflict)
}
