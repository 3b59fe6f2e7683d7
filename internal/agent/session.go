package agent

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"frontdesk/internal/calllog"
)

const (
	writeWait = 10 * time.Second

	audioBuffer      = 64
	transcriptBuffer = 16
	actionBuffer     = 4
	errorBuffer      = 4
)

// Config points a session at the remote conversational-AI transport.
type Config struct {
	WSURL   string
	APIKey  string
	AgentID string

	// Now is injectable so greeting selection is testable.
	Now    func() time.Time
	Logger *slog.Logger

	// Dialer override for tests.
	Dialer *websocket.Dialer
}

// Session owns the remote AI socket for one call and normalizes its protocol
// into per-kind event channels. One session exists per call id at a time;
// the Registry enforces that.
//
// Channel consumers belong to the call's own bridge connection, so a slow
// remote on one call never stalls another.
type Session struct {
	callID string
	cfg    Config
	log    *slog.Logger

	conn    *websocket.Conn
	writeMu sync.Mutex

	audio       chan string
	transcripts chan calllog.TranscriptLine
	actions     chan AgentAction
	errs        chan error

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	closeOnce sync.Once

	mu         sync.Mutex
	transcript []calllog.TranscriptLine
	intent     calllog.Intent
}

func NewSession(callID string, cfg Config) *Session {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Session{
		callID:      callID,
		cfg:         cfg,
		log:         cfg.Logger.With("call_id", callID),
		audio:       make(chan string, audioBuffer),
		transcripts: make(chan calllog.TranscriptLine, transcriptBuffer),
		actions:     make(chan AgentAction, actionBuffer),
		errs:        make(chan error, errorBuffer),
		ready:       make(chan struct{}),
		done:        make(chan struct{}),
	}
}

func (s *Session) CallID() string { return s.callID }

// Audio carries base64 agent speech to relay back to the carrier.
func (s *Session) Audio() <-chan string { return s.audio }

// Transcripts carries role-tagged lines in arrival order.
func (s *Session) Transcripts() <-chan calllog.TranscriptLine { return s.transcripts }

// Actions carries structured directives parsed from agent output.
func (s *Session) Actions() <-chan AgentAction { return s.actions }

func (s *Session) Errors() <-chan error { return s.errs }

// Done is closed exactly once, when the remote socket is gone.
func (s *Session) Done() <-chan struct{} { return s.done }

// Connect opens the remote socket, sends the initiation payload and returns
// once the remote side acknowledges with its initiation metadata (or ctx
// expires).
func (s *Session) Connect(ctx context.Context) error {
	dialer := s.cfg.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	}

	wsURL := s.cfg.WSURL
	if s.cfg.AgentID != "" {
		wsURL += "?agent_id=" + url.QueryEscape(s.cfg.AgentID)
	}
	header := http.Header{}
	if s.cfg.APIKey != "" {
		header.Set("xi-api-key", s.cfg.APIKey)
	}

	conn, resp, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("agent: dial %s: status %d: %w", s.cfg.WSURL, resp.StatusCode, err)
		}
		return fmt.Errorf("agent: dial %s: %w", s.cfg.WSURL, err)
	}
	s.conn = conn

	if err := s.writeJSON(initiationPayload(s.cfg.Now())); err != nil {
		s.shutdown()
		return fmt.Errorf("agent: send initiation: %w", err)
	}

	go s.readLoop()

	select {
	case <-s.ready:
		return nil
	case <-s.done:
		return errors.New("agent: connection closed during initiation")
	case <-ctx.Done():
		s.shutdown()
		return ctx.Err()
	}
}

func initiationPayload(now time.Time) any {
	type promptOverride struct {
		Prompt string `json:"prompt"`
	}
	type agentOverride struct {
		FirstMessage string         `json:"first_message"`
		Prompt       promptOverride `json:"prompt"`
	}
	type configOverride struct {
		Agent agentOverride `json:"agent"`
	}
	return struct {
		Type     string         `json:"type"`
		Override configOverride `json:"conversation_config_override"`
	}{
		Type: "conversation_initiation_client_data",
		Override: configOverride{
			Agent: agentOverride{
				FirstMessage: Greeting(now),
				Prompt:       promptOverride{Prompt: SystemPrompt},
			},
		},
	}
}

// SendAudio forwards caller audio to the remote side as a base64 user chunk.
func (s *Session) SendAudio(b []byte) error {
	if s.conn == nil {
		return errors.New("agent: not connected")
	}
	select {
	case <-s.done:
		return errors.New("agent: session closed")
	default:
	}
	return s.writeJSON(struct {
		Type  string `json:"type"`
		Audio string `json:"audio"`
	}{Type: "user_audio_chunk", Audio: base64.StdEncoding.EncodeToString(b)})
}

// InjectContext sends a one-shot tool result carrying out-of-band information
// for the agent's next turn. Failures are logged, not raised; the call keeps
// flowing either way.
func (s *Session) InjectContext(text string) {
	if s.conn == nil {
		return
	}
	err := s.writeJSON(struct {
		Type   string `json:"type"`
		Result string `json:"result"`
	}{Type: "client_tool_result", Result: text})
	if err != nil {
		s.log.Warn("context injection failed", "err", err)
	}
}

// Disconnect closes the remote socket. Idempotent: stop frames and socket
// closes race, and both paths land here.
func (s *Session) Disconnect() {
	s.shutdown()
}

// Transcript returns the accumulated lines; safe to call during teardown and
// returns the last-known values.
func (s *Session) Transcript() []calllog.TranscriptLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]calllog.TranscriptLine(nil), s.transcript...)
}

// Intent returns the last classification, empty until set.
func (s *Session) Intent() calllog.Intent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intent
}

// SetIntent records the detected intent; last write wins.
func (s *Session) SetIntent(i calllog.Intent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intent = i
}

func (s *Session) writeJSON(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(v)
}

func (s *Session) shutdown() {
	s.closeOnce.Do(func() {
		if s.conn != nil {
			s.writeMu.Lock()
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			s.writeMu.Unlock()
			_ = s.conn.Close()
		}
		close(s.done)
	})
}

type wireMessage struct {
	Type    string `json:"type"`
	Audio   string `json:"audio,omitempty"`
	Text    string `json:"text,omitempty"`
	Message string `json:"message,omitempty"`
}

func (s *Session) readLoop() {
	defer s.shutdown()
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("agent socket read ended", "err", err)
			}
			return
		}
		s.handleMessage(data)
	}
}

func (s *Session) handleMessage(data []byte) {
	var msg wireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.log.Warn("unparseable agent message", "err", err)
		return
	}

	switch msg.Type {
	case "conversation_initiation_metadata":
		s.readyOnce.Do(func() { close(s.ready) })

	case "audio":
		s.emitAudio(msg.Audio)

	case "user_transcript":
		line := calllog.TranscriptLine{Role: "caller", Text: msg.Text}
		s.appendTranscript(line)
		s.emitTranscript(line)

	case "agent_response":
		line := calllog.TranscriptLine{Role: "agent", Text: msg.Text}
		s.appendTranscript(line)
		s.emitTranscript(line)
		if action, ok := ExtractAction(msg.Text); ok {
			s.emitAction(action)
		}

	case "interruption":
		// The caller talked over the agent; nothing to relay.

	case "ping":
		if err := s.writeJSON(wireMessage{Type: "pong"}); err != nil {
			s.log.Debug("pong failed", "err", err)
		}

	case "error":
		s.emitError(fmt.Errorf("agent: remote error: %s", msg.Message))

	default:
		s.log.Debug("unknown agent message type", "type", msg.Type)
	}
}

func (s *Session) appendTranscript(line calllog.TranscriptLine) {
	s.mu.Lock()
	s.transcript = append(s.transcript, line)
	s.mu.Unlock()
}

func (s *Session) emitAudio(b64 string) {
	select {
	case s.audio <- b64:
	case <-s.done:
	}
}

// emitTranscript must never block the read loop; a stalled transcript
// consumer would stop audio and actions for the rest of the call. The
// channel is a live feed that sheds its oldest line when full. The
// authoritative transcript accumulates under mu regardless.
func (s *Session) emitTranscript(line calllog.TranscriptLine) {
	for {
		select {
		case s.transcripts <- line:
			return
		case <-s.done:
			return
		default:
		}
		select {
		case <-s.transcripts:
		default:
		}
	}
}

func (s *Session) emitAction(a AgentAction) {
	select {
	case s.actions <- a:
	case <-s.done:
	}
}

func (s *Session) emitError(err error) {
	select {
	case s.errs <- err:
	case <-s.done:
	}
}
