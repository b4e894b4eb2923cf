package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// execute runs the root command against srv and returns captured output.
func execute(t *testing.T, srv string, args ...string) string {
	t.Helper()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(append([]string{"--server", srv}, args...))
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("execute %v: %v", args, err)
	}
	return buf.String()
}

func TestStatusCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","version":"1.2.3","uptime_seconds":61,"active_agents":2,"pending_tasks":5,"sse_clients":1}`))
	}))
	defer srv.Close()

	out := execute(t, srv.URL, "status")
	for _, want := range []string{"status:         ok", "version:        1.2.3", "pending tasks:  5"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTasksCommandRendersTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":1,"title":"Ship the exporter","status":"pending","priority":"high","blockers":[]},
			{"id":2,"title":"Review docs","status":"in_progress","priority":"low","blockers":[{"type":"review","description":"waiting"}]}
		]`))
	}))
	defer srv.Close()

	out := execute(t, srv.URL, "tasks")
	if !strings.Contains(out, "Ship the exporter") || !strings.Contains(out, "in_progress") {
		t.Errorf("table missing rows:\n%s", out)
	}
	if !strings.Contains(out, "BLOCKERS") {
		t.Errorf("table missing header:\n%s", out)
	}
}

func TestTasksCommandEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	if out := execute(t, srv.URL, "tasks"); !strings.Contains(out, "no tasks") {
		t.Errorf("output = %q", out)
	}
}

func TestTaskCreateSendsBody(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/tasks" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":42,"title":"Fix the bug","status":"pending","priority":"high"}`))
	}))
	defer srv.Close()

	out := execute(t, srv.URL, "task", "create", "Fix", "the", "bug", "--priority", "high", "--skills", "go,sql")
	if !strings.Contains(out, "created task 42") {
		t.Errorf("output = %q", out)
	}
	if got["title"] != "Fix the bug" || got["priority"] != "high" {
		t.Errorf("request body = %v", got)
	}
	skills, _ := got["required_skills"].([]any)
	if len(skills) != 2 {
		t.Errorf("skills sent = %v", got["required_skills"])
	}
}

func TestServerErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"task 5 cannot be assigned: status \"completed\", 0 blockers, 0 dependencies"}`))
	}))
	defer srv.Close()

	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"--server", srv.URL, "task", "assign", "5", "--agent", "3"})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "cannot be assigned") {
		t.Errorf("error = %v", err)
	}
	if !strings.Contains(err.Error(), "409") {
		t.Errorf("error should carry the status code: %v", err)
	}
}

func TestWebhookAdd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":7,"url":"https://example.com/hooks","event_code":"TASK_CREATE","active":true}`))
	}))
	defer srv.Close()

	out := execute(t, srv.URL, "webhook", "add", "https://example.com/hooks", "TASK_CREATE")
	if !strings.Contains(out, "webhook 7 registered for TASK_CREATE") {
		t.Errorf("output = %q", out)
	}
}
