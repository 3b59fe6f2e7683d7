package bridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"frontdesk/internal/agent"
)

// remoteAgent is a scripted stand-in for the conversational-AI socket. It
// acks the initiation handshake and records every user audio chunk.
type remoteAgent struct {
	t *testing.T

	mu     sync.Mutex
	chunks []string
	conns  []*websocket.Conn

	// speak, when set, is sent to the client right after the handshake ack.
	speak []map[string]string
}

func (ra *remoteAgent) server() *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			ra.t.Errorf("agent upgrade: %v", err)
			return
		}
		ra.mu.Lock()
		ra.conns = append(ra.conns, conn)
		ra.mu.Unlock()

		var init map[string]any
		if err := conn.ReadJSON(&init); err != nil {
			return
		}
		if err := conn.WriteJSON(map[string]string{"type": "conversation_initiation_metadata"}); err != nil {
			return
		}
		for _, msg := range ra.speak {
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
		var msg map[string]string
		for {
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg["type"] == "user_audio_chunk" {
				ra.mu.Lock()
				ra.chunks = append(ra.chunks, msg["audio"])
				ra.mu.Unlock()
			}
		}
	}))
}

func (ra *remoteAgent) audioChunks() []string {
	ra.mu.Lock()
	defer ra.mu.Unlock()
	return append([]string(nil), ra.chunks...)
}

type recordedAction struct {
	callID string
	action agent.AgentAction
}

type fakeActionHandler struct {
	mu   sync.Mutex
	seen []recordedAction
}

func (f *fakeActionHandler) HandleAction(ctx context.Context, callID string, action agent.AgentAction, sess *agent.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, recordedAction{callID: callID, action: action})
}

func (f *fakeActionHandler) actions() []recordedAction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedAction(nil), f.seen...)
}

type bridgeFixture struct {
	registry *agent.Registry
	actions  *fakeActionHandler
	handler  *Handler

	mu       sync.Mutex
	sessions []*agent.Session
}

func newBridge(t *testing.T, remote *remoteAgent, cfg Config) (*bridgeFixture, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	agentSrv := remote.server()
	t.Cleanup(agentSrv.Close)

	fx := &bridgeFixture{
		registry: agent.NewRegistry(),
		actions:  &fakeActionHandler{},
	}
	agentCfg := agent.Config{WSURL: "ws://" + strings.TrimPrefix(agentSrv.URL, "http://")}
	fx.handler = NewHandler(cfg, agentCfg, fx.registry, fx.actions, nil)

	// Capture sessions so tests can observe teardown.
	fx.handler.newSession = func(callID string) *agent.Session {
		s := agent.NewSession(callID, agentCfg)
		fx.mu.Lock()
		fx.sessions = append(fx.sessions, s)
		fx.mu.Unlock()
		return s
	}

	r := gin.New()
	r.GET("/webhooks/twilio/stream", fx.handler.Stream)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return fx, srv
}

func dialCarrier(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws://" + strings.TrimPrefix(srv.URL, "http://") + "/webhooks/twilio/stream"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial carrier socket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, f inboundFrame) {
	t.Helper()
	if err := conn.WriteJSON(f); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestHandler_RelaysMediaBothWays(t *testing.T) {
	remote := &remoteAgent{t: t, speak: []map[string]string{
		{"type": "audio", "audio": "dm9pY2U="},
	}}
	fx, srv := newBridge(t, remote, Config{})
	conn := dialCarrier(t, srv)

	preStart := base64.StdEncoding.EncodeToString([]byte("early"))
	payload := base64.StdEncoding.EncodeToString([]byte("pcm"))

	sendFrame(t, conn, inboundFrame{Event: eventConnected})
	// Media before start has no session yet and must be dropped.
	sendFrame(t, conn, inboundFrame{Event: eventMedia, Media: &mediaPayload{Payload: preStart}})
	sendFrame(t, conn, inboundFrame{Event: eventStart, Start: &startFrame{StreamSid: "MS1", CallSid: "CA1"}})

	waitFor(t, "session registration", func() bool {
		_, ok := fx.registry.Get("CA1")
		return ok
	})

	sendFrame(t, conn, inboundFrame{Event: eventMedia, Media: &mediaPayload{Payload: payload}})

	// Agent speech comes back as a media frame tagged with the stream sid.
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var out outboundFrame
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read outbound frame: %v", err)
		}
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("unmarshal outbound frame: %v", err)
		}
		if out.Event == eventMedia {
			break
		}
	}
	if out.StreamSid != "MS1" || out.Media == nil || out.Media.Payload != "dm9pY2U=" {
		t.Fatalf("unexpected outbound frame: %+v", out)
	}

	waitFor(t, "forwarded audio", func() bool { return len(remote.audioChunks()) >= 1 })
	chunks := remote.audioChunks()
	if len(chunks) != 1 || chunks[0] != payload {
		t.Fatalf("expected only post-start audio forwarded, got %v", chunks)
	}
}

func TestHandler_StopTearsDownOnce(t *testing.T) {
	remote := &remoteAgent{t: t}
	fx, srv := newBridge(t, remote, Config{})
	conn := dialCarrier(t, srv)

	sendFrame(t, conn, inboundFrame{Event: eventStart, Start: &startFrame{StreamSid: "MS1", CallSid: "CA1"}})
	waitFor(t, "session registration", func() bool {
		_, ok := fx.registry.Get("CA1")
		return ok
	})

	sendFrame(t, conn, inboundFrame{Event: eventStop})

	waitFor(t, "registry eviction", func() bool { return fx.registry.Len() == 0 })
	fx.mu.Lock()
	sess := fx.sessions[0]
	fx.mu.Unlock()
	select {
	case <-sess.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("session not disconnected after stop")
	}
}

func TestHandler_SecondStartDisplacesFirstSession(t *testing.T) {
	remote := &remoteAgent{t: t}
	fx, srv := newBridge(t, remote, Config{})

	first := dialCarrier(t, srv)
	sendFrame(t, first, inboundFrame{Event: eventStart, Start: &startFrame{StreamSid: "MS1", CallSid: "CA1"}})
	waitFor(t, "first session", func() bool { return fx.registry.Len() == 1 })

	second := dialCarrier(t, srv)
	sendFrame(t, second, inboundFrame{Event: eventStart, Start: &startFrame{StreamSid: "MS2", CallSid: "CA1"}})

	fx.mu.Lock()
	s1 := fx.sessions[0]
	fx.mu.Unlock()
	select {
	case <-s1.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("displaced session not closed")
	}
	if fx.registry.Len() != 1 {
		t.Fatalf("expected exactly one live session, got %d", fx.registry.Len())
	}
	waitFor(t, "replacement session live", func() bool {
		fx.mu.Lock()
		defer fx.mu.Unlock()
		if len(fx.sessions) < 2 {
			return false
		}
		got, ok := fx.registry.Get("CA1")
		return ok && got == fx.sessions[1]
	})
}

func TestHandler_ActionsRoutedToHandler(t *testing.T) {
	remote := &remoteAgent{t: t, speak: []map[string]string{
		{"type": "agent_response", "text": `One moment. {"action":"transfer","params":{"reason":"billing dispute"}}`},
	}}
	fx, srv := newBridge(t, remote, Config{})
	conn := dialCarrier(t, srv)

	sendFrame(t, conn, inboundFrame{Event: eventStart, Start: &startFrame{StreamSid: "MS1", CallSid: "CA1"}})

	waitFor(t, "routed action", func() bool { return len(fx.actions.actions()) >= 1 })
	got := fx.actions.actions()[0]
	if got.callID != "CA1" || got.action.Kind != agent.ActionTransfer {
		t.Fatalf("unexpected routed action: %+v", got)
	}
	if got.action.Param("reason", "") != "billing dispute" {
		t.Fatalf("action params lost: %+v", got.action.Params)
	}
}

func TestHandler_IdleTimeoutTearsDown(t *testing.T) {
	remote := &remoteAgent{t: t}
	fx, srv := newBridge(t, remote, Config{IdleTimeout: 150 * time.Millisecond})
	conn := dialCarrier(t, srv)

	sendFrame(t, conn, inboundFrame{Event: eventStart, Start: &startFrame{StreamSid: "MS1", CallSid: "CA1"}})
	waitFor(t, "session registration", func() bool { return fx.registry.Len() == 1 })

	// Send nothing further; the idle deadline must evict the session.
	waitFor(t, "idle teardown", func() bool { return fx.registry.Len() == 0 })
}
