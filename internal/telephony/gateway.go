package telephony

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"frontdesk/internal/agent"
	"frontdesk/internal/audit"
	"frontdesk/internal/calllog"
	"frontdesk/internal/customers"
	"frontdesk/internal/routing"
	"frontdesk/pkg/logger"
)

// Webhook paths. The carrier posts lifecycle callbacks here and the TwiML
// documents reference them, so they live in one place.
const (
	IncomingPath       = "/webhooks/twilio/incoming"
	StatusPath         = "/webhooks/twilio/status"
	RecordingPath      = "/webhooks/twilio/recording"
	TranscriptionPath  = "/webhooks/twilio/transcription"
	TransferStatusPath = "/webhooks/twilio/transfer-status"
	StaffAnsweredPath  = "/webhooks/twilio/staff-answered"
	WhisperPath        = "/webhooks/twilio/whisper"
	StreamPath         = "/webhooks/twilio/stream"
)

// CallRouter decides stream-vs-voicemail and owns the live-session slots.
type CallRouter interface {
	Decide(ctx context.Context, callID string, at time.Time) routing.Decision
	Release(ctx context.Context, callID string)
}

// Gateway terminates the carrier webhooks: call arrival, lifecycle status,
// voicemail recording and transcription, and transfer outcomes. Every voice
// response is valid TwiML; when anything fails the caller still lands in
// voicemail rather than a carrier error tone.
type Gateway struct {
	calls     calllog.Store
	customers customers.Lookup
	router    CallRouter
	registry  *agent.Registry
	audit     *audit.Service

	streamURL string
	now       func() time.Time
}

func NewGateway(calls calllog.Store, cust customers.Lookup, router CallRouter, registry *agent.Registry, auditSvc *audit.Service, streamURL string) *Gateway {
	return &Gateway{
		calls:     calls,
		customers: cust,
		router:    router,
		registry:  registry,
		audit:     auditSvc,
		streamURL: streamURL,
		now:       time.Now,
	}
}

// HandleIncoming is the entry point for a new call.
func (g *Gateway) HandleIncoming(c *gin.Context) {
	log := logger.FromGin(c)
	ctx := c.Request.Context()

	form, err := ParseVoiceForm(c.Request)
	if err != nil || form.CallSid == "" {
		log.Warn("bad incoming call form", "err", err)
		g.respondVoicemail(c, log)
		return
	}
	log = log.With("call_id", form.CallSid)

	direction := calllog.DirectionOutbound
	if form.Direction == "inbound" {
		direction = calllog.DirectionInbound
	}
	call := calllog.Call{
		CallID:     form.CallSid,
		From:       form.From,
		To:         form.To,
		Direction:  direction,
		Status:     calllog.CallStatusInProgress,
		StartTime:  g.now().UTC(),
		Resolution: calllog.ResolutionAIResolved,
	}

	// Known-customer lookup is best-effort; an unreachable directory must
	// not delay answering the phone.
	if cust, ok, err := g.customers.ByPhone(ctx, form.From); err != nil {
		log.Warn("customer lookup failed", "err", err)
	} else if ok {
		call.CustomerID = cust.ID
		log.Info("recognized caller", "customer_id", cust.ID)
	}

	// No record means no transcript or status merge later; a store outage
	// degrades the call to voicemail instead of an untracked agent stream.
	if _, err := g.calls.Create(ctx, call); err != nil {
		log.Error("create call record failed", "err", err)
		g.respondVoicemail(c, log)
		return
	}
	g.logAudit(ctx, log, audit.EventTypeCallReceived, form.CallSid, "incoming call from "+form.From)

	decision := g.router.Decide(ctx, form.CallSid, g.now())
	if decision.Outcome == routing.OutcomeVoicemail {
		log.Info("routed to voicemail", "reason", decision.Reason)
		vm := calllog.ResolutionVoicemail
		if _, err := g.calls.Update(ctx, form.CallSid, calllog.CallUpdate{Resolution: &vm}); err != nil {
			log.Warn("mark voicemail resolution failed", "err", err)
		}
		g.logAudit(ctx, log, audit.EventTypeCallRouted, form.CallSid, "voicemail: "+decision.Reason)
		g.respondVoicemail(c, log)
		return
	}

	log.Info("routed to live agent stream")
	g.logAudit(ctx, log, audit.EventTypeCallRouted, form.CallSid, "stream")
	doc, err := StreamConnectTwiML(g.streamURL)
	if err != nil {
		log.Error("render stream twiml failed", "err", err)
		g.respondVoicemail(c, log)
		return
	}
	respondXML(c, doc)
}

// HandleStatus processes lifecycle callbacks. The final callback closes the
// record, folds in the live transcript if a session is still around, tears
// the session down and frees its slot.
func (g *Gateway) HandleStatus(c *gin.Context) {
	log := logger.FromGin(c)
	ctx := c.Request.Context()

	form, err := ParseStatusForm(c.Request)
	if err != nil || form.CallSid == "" {
		log.Warn("bad status form", "err", err)
		c.Status(http.StatusBadRequest)
		return
	}
	log = log.With("call_id", form.CallSid, "status", form.CallStatus)

	if !isFinalStatus(form.CallStatus) {
		c.Status(http.StatusNoContent)
		return
	}

	end := g.now().UTC()
	status := calllog.CallStatus(form.CallStatus)
	upd := calllog.CallUpdate{
		Status:          &status,
		EndTime:         &end,
		DurationSeconds: &form.CallDuration,
	}
	if form.RecordingURL != "" {
		upd.RecordingURL = &form.RecordingURL
	}

	if sess, ok := g.registry.Get(form.CallSid); ok {
		if lines := sess.Transcript(); len(lines) > 0 {
			upd.Transcript = lines
		}
		if intent := sess.Intent(); intent != "" {
			upd.Intent = &intent
		}
		sess.Disconnect()
		g.registry.Remove(sess)
	}

	if found, err := g.calls.Update(ctx, form.CallSid, upd); err != nil {
		log.Error("close call record failed", "err", err)
	} else if !found {
		log.Warn("status callback for unknown call")
	}

	g.router.Release(ctx, form.CallSid)
	log.Info("call finished", "duration_s", form.CallDuration)
	c.Status(http.StatusNoContent)
}

// HandleRecording fires when a voicemail recording completes.
func (g *Gateway) HandleRecording(c *gin.Context) {
	log := logger.FromGin(c)
	ctx := c.Request.Context()

	form, err := ParseRecordingForm(c.Request)
	if err != nil || form.CallSid == "" {
		log.Warn("bad recording form", "err", err)
		c.Status(http.StatusBadRequest)
		return
	}
	log = log.With("call_id", form.CallSid)

	vm := calllog.ResolutionVoicemail
	upd := calllog.CallUpdate{Resolution: &vm}
	if form.RecordingURL != "" {
		upd.RecordingURL = &form.RecordingURL
	}
	if _, err := g.calls.Update(ctx, form.CallSid, upd); err != nil {
		log.Error("record voicemail failed", "err", err)
	}
	g.logAudit(ctx, log, audit.EventTypeVoicemailCaptured, form.CallSid, form.RecordingURL)

	doc, err := HangupTwiML(RecordingFarewell)
	if err != nil {
		log.Error("render hangup twiml failed", "err", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	respondXML(c, doc)
}

// HandleTranscription stores the carrier transcription of a voicemail.
func (g *Gateway) HandleTranscription(c *gin.Context) {
	log := logger.FromGin(c)
	ctx := c.Request.Context()

	form, err := ParseTranscriptionForm(c.Request)
	if err != nil || form.CallSid == "" {
		log.Warn("bad transcription form", "err", err)
		c.Status(http.StatusBadRequest)
		return
	}

	if form.TranscriptionStatus == "completed" && form.TranscriptionText != "" {
		upd := calllog.CallUpdate{TranscriptSummary: &form.TranscriptionText}
		if _, err := g.calls.Update(ctx, form.CallSid, upd); err != nil {
			log.Error("store voicemail transcription failed", "call_id", form.CallSid, "err", err)
		}
	}
	c.Status(http.StatusNoContent)
}

// HandleTransferStatus reacts to the dial outcome of a staff transfer. A
// failed transfer falls back to voicemail instead of dead air.
func (g *Gateway) HandleTransferStatus(c *gin.Context) {
	log := logger.FromGin(c)

	form, err := ParseDialStatusForm(c.Request)
	if err != nil {
		log.Warn("bad transfer status form", "err", err)
		c.Status(http.StatusBadRequest)
		return
	}
	log = log.With("call_id", form.CallSid, "dial_status", form.DialCallStatus)

	if form.DialCallStatus != "completed" {
		log.Info("transfer failed, falling back to voicemail")
		g.respondVoicemail(c, log)
		return
	}

	doc, err := EmptyTwiML()
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	respondXML(c, doc)
}

// HandleStaffAnswered fires when a staff member picks up a transfer.
func (g *Gateway) HandleStaffAnswered(c *gin.Context) {
	log := logger.FromGin(c)
	form, err := ParseDialStatusForm(c.Request)
	if err == nil && form.CallSid != "" {
		g.logAudit(c.Request.Context(), log, audit.EventTypeTransferAttempted, form.CallSid, "staff answered")
	}
	c.Status(http.StatusNoContent)
}

// HandleWhisper speaks transfer context to the answering staff member before
// the caller is connected.
func (g *Gateway) HandleWhisper(c *gin.Context) {
	text := DefaultWhisper
	if q := c.Query("text"); q != "" {
		text = "Incoming transfer: " + q
	}
	doc, err := WhisperTwiML(text)
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	respondXML(c, doc)
}

func (g *Gateway) respondVoicemail(c *gin.Context, log *slog.Logger) {
	doc, err := VoicemailTwiML(RecordingPath, TranscriptionPath)
	if err != nil {
		// Rendering is deterministic; reaching this means a programming error.
		log.Error("render voicemail twiml failed", "err", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	respondXML(c, doc)
}

func (g *Gateway) logAudit(ctx context.Context, log *slog.Logger, t audit.EventType, callID, message string) {
	if g.audit == nil {
		return
	}
	if err := g.audit.LogCallEvent(ctx, t, callID, message); err != nil {
		log.Warn("audit append failed", "err", err)
	}
}

func isFinalStatus(s string) bool {
	switch calllog.CallStatus(s) {
	case calllog.CallStatusCompleted, calllog.CallStatusFailed, calllog.CallStatusNoAnswer, calllog.CallStatusBusy:
		return true
	default:
		return false
	}
}

func respondXML(c *gin.Context, doc string) {
	c.Header("Content-Type", "text/xml; charset=utf-8")
	c.String(http.StatusOK, doc)
}
