package ws

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/GoCodeAlone/foreman/comms"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// readFrame reads one SSE frame and returns its data payload with the
// "data: " framing stripped.
func readFrame(t *testing.T, br *bufio.Reader) string {
	t.Helper()
	var b strings.Builder
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			t.Fatalf("read frame: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		if line == "" {
			return b.String()
		}
		b.WriteString(strings.TrimPrefix(line, "data: "))
	}
}

// waitForClients polls until the hub sees the expected number of
// connections. SSE registration races the HTTP handshake, so tests must
// not broadcast before the client is in the map.
func waitForClients(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.ClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("hub never reached %d clients, have %d", want, h.ClientCount())
}

func TestHub_BroadcastReachesClient(t *testing.T) {
	hub := NewHub(discardLogger())
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeSSE))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", got)
	}

	br := bufio.NewReader(resp.Body)
	if got := readFrame(t, br); got != `{"type":"connected"}` {
		t.Fatalf("greeting = %q", got)
	}

	waitForClients(t, hub, 1)
	hub.Broadcast(comms.NewEvent(comms.TaskCreate, map[string]any{"task_id": 7}))

	var evt comms.Event
	if err := json.Unmarshal([]byte(readFrame(t, br)), &evt); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if evt.Code != comms.TaskCreate {
		t.Fatalf("code = %q, want %q", evt.Code, comms.TaskCreate)
	}
	// JSON round trip turns ints into float64.
	if got := evt.Payload["task_id"]; got != float64(7) {
		t.Fatalf("task_id = %v", got)
	}
	if evt.ID == "" {
		t.Fatal("event ID missing from frame")
	}
}

func TestHub_AttachFansOutBusEvents(t *testing.T) {
	bus := comms.NewInMemoryBus()
	hub := NewHub(discardLogger())
	unsubscribe := hub.Attach(bus)
	defer unsubscribe()

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeSSE))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()

	br := bufio.NewReader(resp.Body)
	readFrame(t, br) // greeting
	waitForClients(t, hub, 1)

	if err := bus.Publish(context.Background(), comms.NewEvent(comms.AgentHired, map[string]any{"agent_id": 3})); err != nil {
		t.Fatalf("publish: %v", err)
	}

	var evt comms.Event
	if err := json.Unmarshal([]byte(readFrame(t, br)), &evt); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if evt.Code != comms.AgentHired {
		t.Fatalf("code = %q, want %q", evt.Code, comms.AgentHired)
	}
}

func TestHub_DisconnectRemovesClient(t *testing.T) {
	hub := NewHub(discardLogger())
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeSSE))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	br := bufio.NewReader(resp.Body)
	readFrame(t, br)
	waitForClients(t, hub, 1)

	resp.Body.Close()
	waitForClients(t, hub, 0)
}
