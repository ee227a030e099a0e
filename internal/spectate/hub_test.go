package spectate

import (
	"strings"
	"testing"
	"time"

	"github.com/mcoot/racegame-go/internal/testutil"
)

func TestFormatEvent(t *testing.T) {
	tests := []struct {
		name      string
		eventName string
		data      string
		expected  string
	}{
		{
			name:      "unnamed single line",
			eventName: "",
			data:      `{"type":"sync"}`,
			expected:  "data: {\"type\":\"sync\"}\n\n",
		},
		{
			name:      "named multi-line data",
			eventName: "snapshot",
			data:      "{\n  \"code\": \"AB12\"\n}",
			expected:  "event: snapshot\ndata: {\ndata:   \"code\": \"AB12\"\ndata: }\n\n",
		},
		{
			name:      "empty data",
			eventName: "closed",
			data:      "",
			expected:  "event: closed\ndata: \n\n",
		},
		{
			name:      "crlf with trailing newline",
			eventName: "test",
			data:      "line1\r\nline2\r\n",
			expected:  "event: test\ndata: line1\ndata: line2\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := formatEvent(tt.eventName, []byte(tt.data))
			if string(result) != tt.expected {
				t.Errorf("formatEvent(%q, %q)\ngot:  %q\nwant: %q",
					tt.eventName, tt.data, string(result), tt.expected)
			}
		})
	}
}

func receive(t *testing.T, c *Client) (string, bool) {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		return string(msg), ok
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return "", false
	}
}

func TestHubBroadcastReachesClients(t *testing.T) {
	hub := NewHub("AB12", testutil.NopLogger())
	go hub.Run()
	defer hub.Close("", nil)

	a := newClient(hub, "a")
	b := newClient(hub, "b")
	if !hub.Register(a) || !hub.Register(b) {
		t.Fatal("register failed on open hub")
	}
	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("ClientCount() = %d, want 2", got)
	}

	hub.Broadcast([]byte(`{"type":"raceStart"}`))

	for _, c := range []*Client{a, b} {
		msg, ok := receive(t, c)
		if !ok || !strings.Contains(msg, "raceStart") {
			t.Errorf("client %s got %q (open=%v)", c.id, msg, ok)
		}
	}
}

func TestHubUnregisterClosesChannel(t *testing.T) {
	hub := NewHub("AB12", testutil.NopLogger())
	go hub.Run()
	defer hub.Close("", nil)

	c := newClient(hub, "a")
	hub.Register(c)
	hub.Unregister(c)
	hub.Unregister(c) // second call is a no-op

	if _, ok := <-c.send; ok {
		t.Error("expected send channel to be closed")
	}
	if got := hub.ClientCount(); got != 0 {
		t.Errorf("ClientCount() = %d, want 0", got)
	}
}

func TestHubCloseFlushesThenSendsFinalEvent(t *testing.T) {
	hub := NewHub("AB12", testutil.NopLogger())
	c := newClient(hub, "a")
	hub.Register(c)

	// Queue before Run starts so the close races nothing
	hub.Broadcast([]byte("last frame"))
	hub.Close(EventClosed, []byte(`{"roomCode":"AB12"}`))
	go hub.Run()

	msg, ok := receive(t, c)
	if !ok || !strings.Contains(msg, "last frame") {
		t.Fatalf("first event = %q (open=%v), want queued frame", msg, ok)
	}
	msg, ok = receive(t, c)
	if !ok || !strings.HasPrefix(msg, "event: closed\n") {
		t.Fatalf("second event = %q (open=%v), want closed event", msg, ok)
	}
	if _, ok := receive(t, c); ok {
		t.Error("expected channel closed after final event")
	}

	if hub.Register(newClient(hub, "late")) {
		t.Error("register should fail on a closed hub")
	}
}

func TestManagerLifecycle(t *testing.T) {
	m := NewManager(testutil.NopLogger())

	m.Publish("AB12", []byte("nobody watching"))
	if got := m.HubCount(); got != 0 {
		t.Fatalf("HubCount() = %d after publish without watchers, want 0", got)
	}

	a := m.Subscribe("AB12", "a")
	b := m.Subscribe("AB12", "b")
	if got := m.HubCount(); got != 1 {
		t.Fatalf("HubCount() = %d, want 1", got)
	}

	m.Publish("AB12", []byte(`{"type":"sync"}`))
	for _, c := range []*Client{a, b} {
		if msg, _ := receive(t, c); msg != "data: {\"type\":\"sync\"}\n\n" {
			t.Errorf("client %s got %q", c.id, msg)
		}
	}

	m.Unsubscribe(a)
	if got := m.HubCount(); got != 1 {
		t.Errorf("HubCount() = %d with one watcher left, want 1", got)
	}
	m.Unsubscribe(b)
	if got := m.HubCount(); got != 0 {
		t.Errorf("HubCount() = %d after last watcher left, want 0", got)
	}
}

func TestManagerCloseRoom(t *testing.T) {
	m := NewManager(testutil.NopLogger())
	c := m.Subscribe("AB12", "a")

	m.CloseRoom("AB12")
	m.CloseRoom("AB12") // unknown room is a no-op

	msg, ok := receive(t, c)
	if !ok || msg != "event: closed\ndata: {\"roomCode\":\"AB12\"}\n\n" {
		t.Fatalf("got %q (open=%v), want closed event", msg, ok)
	}
	if _, ok := receive(t, c); ok {
		t.Error("expected stream to end after closed event")
	}

	// Leaving after the room closed must not disturb a new hub
	d := m.Subscribe("AB12", "d")
	m.Unsubscribe(c)
	if got := m.HubCount(); got != 1 {
		t.Errorf("HubCount() = %d, want 1", got)
	}
	m.CloseAll()
	if _, ok := receive(t, d); !ok {
		t.Error("expected closed event on CloseAll")
	}
	if got := m.HubCount(); got != 0 {
		t.Errorf("HubCount() = %d after CloseAll, want 0", got)
	}
}
