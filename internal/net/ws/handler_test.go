package ws

import (
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"nightdrive/server"
	"nightdrive/server/internal/scene"
)

func newTestHub(t *testing.T) *server.Hub {
	t.Helper()
	cfg := server.DefaultHubConfig()
	cfg.Core.Scene = scene.Config{
		Seed:          "ws-test",
		BlocksPerSide: 2,
		MaxFloors:     3,
		LampSpacing:   0.25,
	}
	hub, err := server.NewHubWithConfig(cfg, nil)
	if err != nil {
		t.Fatalf("NewHubWithConfig: %v", err)
	}
	return hub
}

func dialViewer(t *testing.T, hub *server.Hub) (*websocket.Conn, string, func()) {
	t.Helper()
	handler := NewHandler(hub, HandlerConfig{})
	srv := httptest.NewServer(nethttp.HandlerFunc(handler.Handle))

	join := hub.Join()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?id=" + join.ID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial: %v", err)
	}
	cleanup := func() {
		conn.Close()
		srv.Close()
	}
	return conn, join.ID, cleanup
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("decode %s: %v", payload, err)
	}
	return decoded
}

func TestSessionInitialFrameAndStartAck(t *testing.T) {
	hub := newTestHub(t)
	conn, _, cleanup := dialViewer(t, hub)
	defer cleanup()

	initial := readMessage(t, conn)
	if initial["type"] != "frame" {
		t.Fatalf("expected initial frame, got %v", initial["type"])
	}

	if err := conn.WriteJSON(map[string]any{"type": "start", "seq": 1}); err != nil {
		t.Fatalf("write start: %v", err)
	}
	ack := readMessage(t, conn)
	if ack["type"] != "commandAck" || ack["seq"].(float64) != 1 {
		t.Fatalf("expected commandAck seq 1, got %v", ack)
	}
	if pending := hub.Engine().Pending(); pending != 1 {
		t.Fatalf("expected one staged command, got %d", pending)
	}

	// Retransmits of an acknowledged sequence are acked without restaging.
	if err := conn.WriteJSON(map[string]any{"type": "start", "seq": 1}); err != nil {
		t.Fatalf("write duplicate: %v", err)
	}
	dup := readMessage(t, conn)
	if dup["type"] != "commandAck" || dup["seq"].(float64) != 1 {
		t.Fatalf("expected duplicate ack, got %v", dup)
	}
	if pending := hub.Engine().Pending(); pending != 1 {
		t.Fatalf("expected duplicate to be dropped, got %d staged", pending)
	}
}

func TestSessionHeartbeatAck(t *testing.T) {
	hub := newTestHub(t)
	conn, _, cleanup := dialViewer(t, hub)
	defer cleanup()

	readMessage(t, conn) // initial frame

	sent := time.Now().Add(-25 * time.Millisecond).UnixMilli()
	if err := conn.WriteJSON(map[string]any{"type": "heartbeat", "sentAt": sent}); err != nil {
		t.Fatalf("write heartbeat: %v", err)
	}
	ack := readMessage(t, conn)
	if ack["type"] != "heartbeat" {
		t.Fatalf("expected heartbeat ack, got %v", ack)
	}
	if ack["clientTime"].(float64) != float64(sent) {
		t.Fatalf("expected echoed client time, got %v", ack)
	}
	if ack["rtt"].(float64) < 0 {
		t.Fatalf("expected non-negative rtt, got %v", ack["rtt"])
	}
}

func TestSessionKeyframeRequest(t *testing.T) {
	hub := newTestHub(t)
	conn, _, cleanup := dialViewer(t, hub)
	defer cleanup()

	readMessage(t, conn) // initial frame

	hub.ForceKeyframe()
	_, _, newest := hub.Engine().KeyframeWindow()

	if err := conn.WriteJSON(map[string]any{"type": "keyframeRequest", "keyframeSeq": newest}); err != nil {
		t.Fatalf("write keyframe request: %v", err)
	}
	frame := readMessage(t, conn)
	if frame["type"] != "keyframe" || frame["sequence"].(float64) != float64(newest) {
		t.Fatalf("expected keyframe %d, got %v", newest, frame)
	}
}

func TestSessionRejectsUnknownViewer(t *testing.T) {
	hub := newTestHub(t)
	handler := NewHandler(hub, HandlerConfig{})
	srv := httptest.NewServer(nethttp.HandlerFunc(handler.Handle))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?id=ghost"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected close for unknown viewer")
	}
}
