package bridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"frontdesk/internal/agent"
	"frontdesk/pkg/logger"
)

const writeWait = 10 * time.Second

// ActionHandler consumes structured directives the agent emits mid-call.
type ActionHandler interface {
	HandleAction(ctx context.Context, callID string, action agent.AgentAction, sess *agent.Session)
}

type Config struct {
	// ConnectTimeout bounds the remote-agent handshake per call.
	ConnectTimeout time.Duration

	// IdleTimeout tears the connection down after that long without any
	// inbound carrier frame. Zero disables the idle check.
	IdleTimeout time.Duration
}

// Handler relays media between the carrier socket and the per-call agent
// session. One carrier connection maps to one call; all per-call state lives
// on the connection's goroutines, so calls never block each other.
type Handler struct {
	cfg      Config
	registry *agent.Registry
	actions  ActionHandler
	log      *slog.Logger

	upgrader   websocket.Upgrader
	newSession func(callID string) *agent.Session
}

func NewHandler(cfg Config, agentCfg agent.Config, registry *agent.Registry, actions ActionHandler, log *slog.Logger) *Handler {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		cfg:      cfg,
		registry: registry,
		actions:  actions,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The carrier dials from its own infrastructure, not a browser.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		newSession: func(callID string) *agent.Session {
			return agent.NewSession(callID, agentCfg)
		},
	}
}

// Stream is the carrier-facing websocket endpoint.
func (h *Handler) Stream(c *gin.Context) {
	log := logger.FromGin(c)
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("stream upgrade failed", "err", err)
		return
	}
	h.serve(c.Request.Context(), conn, log)
}

// link is the state of one carrier connection. session and streamSid are set
// once, before the pump goroutine starts.
type link struct {
	h    *Handler
	conn *websocket.Conn
	log  *slog.Logger

	writeMu   sync.Mutex
	session   *agent.Session
	streamSid string
	closeOnce sync.Once
}

func (h *Handler) serve(ctx context.Context, conn *websocket.Conn, log *slog.Logger) {
	l := &link{h: h, conn: conn, log: log}
	defer l.teardown()

	for {
		l.resetIdleDeadline()
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				l.log.Debug("carrier socket read ended", "err", err)
			}
			return
		}

		var f inboundFrame
		if err := json.Unmarshal(data, &f); err != nil {
			l.log.Warn("unparseable carrier frame", "err", err)
			continue
		}

		switch f.Event {
		case eventConnected:

		case eventStart:
			if f.Start == nil || l.session != nil {
				continue
			}
			if err := l.start(ctx, f.Start); err != nil {
				l.log.Error("agent session start failed", "call_id", f.Start.CallSid, "err", err)
				return
			}

		case eventMedia:
			// Media before start has no session to deliver to; drop it.
			if l.session == nil || f.Media == nil {
				continue
			}
			raw, err := base64.StdEncoding.DecodeString(f.Media.Payload)
			if err != nil {
				l.log.Warn("bad media payload", "err", err)
				continue
			}
			if err := l.session.SendAudio(raw); err != nil {
				l.log.Debug("forward audio failed", "err", err)
				return
			}

		case eventStop:
			return

		case eventMark:

		default:
			l.log.Debug("unknown carrier event", "event", f.Event)
		}
	}
}

func (l *link) start(ctx context.Context, f *startFrame) error {
	sess := l.h.newSession(f.CallSid)

	cctx, cancel := context.WithTimeout(ctx, l.h.cfg.ConnectTimeout)
	defer cancel()
	if err := sess.Connect(cctx); err != nil {
		return err
	}

	if displaced := l.h.registry.Insert(sess); displaced != nil {
		l.log.Warn("replacing live session for call", "call_id", f.CallSid)
		displaced.Disconnect()
	}

	l.session = sess
	l.streamSid = f.StreamSid
	l.log = l.log.With("call_id", f.CallSid, "stream_sid", f.StreamSid)
	l.log.Info("media stream started")

	go l.pump(ctx, sess)
	return nil
}

// pump forwards agent-side events back to the carrier until either side is
// gone.
func (l *link) pump(ctx context.Context, sess *agent.Session) {
	for {
		select {
		case b64 := <-sess.Audio():
			if err := l.writeMedia(b64); err != nil {
				l.log.Debug("relay audio failed", "err", err)
				l.teardown()
				return
			}
		case a := <-sess.Actions():
			l.h.actions.HandleAction(ctx, sess.CallID(), a, sess)
		case <-sess.Transcripts():
			// Lines accumulate inside the session for the call record;
			// the live feed only needs draining here.
		case err := <-sess.Errors():
			l.log.Warn("agent session error", "err", err)
		case <-sess.Done():
			l.teardown()
			return
		}
	}
}

func (l *link) writeMedia(payload string) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	_ = l.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return l.conn.WriteJSON(outboundFrame{
		Event:     eventMedia,
		StreamSid: l.streamSid,
		Media:     &mediaPayload{Payload: payload},
	})
}

func (l *link) resetIdleDeadline() {
	if l.h.cfg.IdleTimeout > 0 {
		_ = l.conn.SetReadDeadline(time.Now().Add(l.h.cfg.IdleTimeout))
	}
}

// teardown runs exactly once per connection no matter which path reaches it
// first: a stop frame, a socket error, the idle deadline, or the agent side
// closing.
func (l *link) teardown() {
	l.closeOnce.Do(func() {
		if l.session != nil {
			l.session.Disconnect()
			l.h.registry.Remove(l.session)
			l.log.Info("media stream closed")
		}
		l.writeMu.Lock()
		_ = l.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		l.writeMu.Unlock()
		_ = l.conn.Close()
	})
}
