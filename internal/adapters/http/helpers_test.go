package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Jam/internal/adapters/signal"
	"github.com/dkeye/Jam/internal/app"
	"github.com/dkeye/Jam/internal/app/orch"
	"github.com/dkeye/Jam/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type testServer struct {
	*httptest.Server
	Orch *orch.Orchestrator
	Ctrl *signal.SignalWSController
}

func newTestServer(t *testing.T, opts signal.Options) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if opts.ServerVersion == "" {
		opts.ServerVersion = "test"
	}
	o := orch.New(app.NewRegistry(), app.NewRoomManager(app.DefaultRoomDefaults()), app.SimplePolicy{})
	ctrl := signal.NewSignalWSController(o, opts)
	r := SetupRouter(context.Background(), &config.Config{Mode: "test"}, o, ctrl)

	ts := &testServer{Server: httptest.NewServer(r), Orch: o, Ctrl: ctrl}
	t.Cleanup(func() {
		ts.Close()
		ctrl.Shutdown()
	})
	return ts
}

func (ts *testServer) wsURL() string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
}

type wsPeer struct {
	t    *testing.T
	conn *websocket.Conn
}

func (ts *testServer) dial(t *testing.T) *wsPeer {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(ts.wsURL(), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &wsPeer{t: t, conn: conn}
}

// connect dials and completes the handshake, returning the assigned id.
func (ts *testServer) connect(t *testing.T, name string) (*wsPeer, string) {
	t.Helper()
	p := ts.dial(t)
	p.send(map[string]any{"type": "handshake", "username": name, "version": "1"})
	w := p.expect("welcome")
	return p, w["userId"].(string)
}

func (p *wsPeer) send(v any) {
	p.t.Helper()
	if err := p.conn.WriteJSON(v); err != nil {
		p.t.Fatalf("write: %v", err)
	}
}

func (p *wsPeer) sendRaw(s string) {
	p.t.Helper()
	if err := p.conn.WriteMessage(websocket.TextMessage, []byte(s)); err != nil {
		p.t.Fatalf("write: %v", err)
	}
}

func (p *wsPeer) next() map[string]any {
	p.t.Helper()
	_ = p.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := p.conn.ReadMessage()
	if err != nil {
		p.t.Fatalf("read: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		p.t.Fatalf("decode %s: %v", data, err)
	}
	return m
}

// expect reads the next message and requires its type.
func (p *wsPeer) expect(msgType string) map[string]any {
	p.t.Helper()
	m := p.next()
	if m["type"] != msgType {
		p.t.Fatalf("expected %q, got %v", msgType, m)
	}
	return m
}

func (p *wsPeer) expectError(message string) {
	p.t.Helper()
	m := p.expect("error")
	if m["message"] != message {
		p.t.Fatalf("expected error %q, got %q", message, m["message"])
	}
}

// sync proves that nothing else is queued for this peer.
func (p *wsPeer) sync() {
	p.t.Helper()
	p.send(map[string]any{"type": "ping"})
	p.expect("pong")
}

func (p *wsPeer) createRoom(cfg map[string]any) string {
	p.t.Helper()
	p.send(map[string]any{"type": "create-room", "config": cfg})
	return p.expect("room-joined")["roomId"].(string)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
