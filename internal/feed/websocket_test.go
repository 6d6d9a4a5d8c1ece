package feed

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"openfront/engine/internal/intent"
	"openfront/engine/internal/logging"
)

type sinkStub struct {
	mu      sync.Mutex
	intents []intent.Intent
}

func (s *sinkStub) Submit(in intent.Intent) {
	s.mu.Lock()
	s.intents = append(s.intents, in)
	s.mu.Unlock()
}

func (s *sinkStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.intents)
}

func startHub(t *testing.T, cfg HubConfig) (*Hub, *Stream, *sinkStub, string) {
	t.Helper()
	stream := NewStream(Config{})
	sink := &sinkStub{}
	validator := intent.NewValidator(intent.DefaultConstraints, logging.NewTestLogger())
	hub := NewHub(stream, sink, validator, cfg, logging.NewTestLogger())
	server := httptest.NewServer(hub)
	t.Cleanup(server.Close)
	return hub, stream, sink, "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readReply(t *testing.T, conn *websocket.Conn) Reply {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var reply Reply
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read reply: %v", err)
	}
	return reply
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubPushesFramesAndQueuesIntents(t *testing.T) {
	hub, stream, sink, url := startHub(t, HubConfig{})
	conn := dial(t, url+"?clientID=client01")
	if hub.Clients() != 1 {
		t.Fatalf("expected one connected client, got %d", hub.Clients())
	}

	//1.- Frames published after the handshake arrive as binary messages.
	if err := stream.AppendFrame(0, frame(7)); err != nil {
		t.Fatalf("append frame: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if kind != websocket.BinaryMessage || !bytes.Equal(payload, frame(7)) {
		t.Fatalf("unexpected frame %d %v", kind, payload)
	}

	//2.- A valid intent without a client ID is stamped and queued.
	raw := `{"type":"troop_ratio","playerID":"player01","ratio":0.5}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
		t.Fatalf("write intent: %v", err)
	}
	waitFor(t, func() bool { return sink.count() == 1 })
	sink.mu.Lock()
	got := sink.intents[0]
	sink.mu.Unlock()
	if got.ClientID != "client01" || got.Ratio != 0.5 {
		t.Fatalf("unexpected queued intent %+v", got)
	}
}

func TestHubRejectsInvalidIntents(t *testing.T) {
	_, _, sink, url := startHub(t, HubConfig{})
	conn := dial(t, url+"?clientID=client02")

	cases := map[string]string{
		`{"type":"troop_ratio","playerID":"player02","ratio":3}`:                       string(intent.ValidationReasonRatio),
		`{"type":"teleport"}`:                                                          string(intent.ValidationReasonUnknownType),
		`{"type":"troop_ratio","clientID":"client99","playerID":"player02","ratio":1}`: string(intent.ValidationReasonClientID),
	}
	for raw, reason := range cases {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
			t.Fatalf("write intent: %v", err)
		}
		if reply := readReply(t, conn); reply.Type != "error" || reply.Reason != reason {
			t.Fatalf("expected %s for %s, got %+v", reason, raw, reply)
		}
	}
	if sink.count() != 0 {
		t.Fatalf("expected nothing queued, got %d", sink.count())
	}
}

func TestHubRateLimitsClients(t *testing.T) {
	_, _, sink, url := startHub(t, HubConfig{IntentRate: 0.001, IntentBurst: 1})
	conn := dial(t, url+"?clientID=client03")
	raw := []byte(`{"type":"troop_ratio","playerID":"player03","ratio":0.5}`)

	for i := 0; i < 2; i++ {
		if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			t.Fatalf("write intent: %v", err)
		}
	}
	if reply := readReply(t, conn); reply.Reason != "rate_limited" {
		t.Fatalf("expected rate_limited, got %+v", reply)
	}
	if sink.count() != 1 {
		t.Fatalf("expected only the first intent to be queued, got %d", sink.count())
	}
}

func TestHubRejectsBadHandshakes(t *testing.T) {
	_, _, _, url := startHub(t, HubConfig{})
	if _, resp, err := websocket.DefaultDialer.Dial(url+"?clientID=bad", nil); err == nil || resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for a malformed clientID, got %v", err)
	}

	dial(t, url+"?clientID=client04")
	if _, resp, err := websocket.DefaultDialer.Dial(url+"?clientID=client04", nil); err == nil || resp == nil || resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for a duplicate client, got %v", err)
	}
}
