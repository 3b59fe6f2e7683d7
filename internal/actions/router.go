package actions

import (
	"context"
	"log/slog"
	"net/url"

	"frontdesk/internal/agent"
	"frontdesk/internal/audit"
	"frontdesk/internal/calllog"
	"frontdesk/internal/directory"
	"frontdesk/internal/telephony"
)

// StatusLookup resolves a return-status question out of band. The answer is
// injected into the live conversation for the agent's next turn.
type StatusLookup func(ctx context.Context, params map[string]string) (string, bool)

// Router executes agent directives against the live call. Each action is
// consumed exactly once; failures are logged and the call keeps flowing on
// its current TwiML.
type Router struct {
	control telephony.CallControl
	staff   directory.Directory
	calls   calllog.Store
	audit   *audit.Service
	lookup  StatusLookup

	// callerID is the office number shown when dialing staff.
	callerID string
	log      *slog.Logger
}

func NewRouter(control telephony.CallControl, staff directory.Directory, calls calllog.Store, auditSvc *audit.Service, callerID string, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		control:  control,
		staff:    staff,
		calls:    calls,
		audit:    auditSvc,
		callerID: callerID,
		log:      log,
	}
}

// WithStatusLookup attaches the optional return-status resolver.
func (r *Router) WithStatusLookup(fn StatusLookup) *Router {
	r.lookup = fn
	return r
}

// HandleAction dispatches one directive. The switch is exhaustive over the
// action kinds; extending the set means extending this switch.
func (r *Router) HandleAction(ctx context.Context, callID string, a agent.AgentAction, sess *agent.Session) {
	log := r.log.With("call_id", callID, "action", string(a.Kind))

	switch a.Kind {
	case agent.ActionTransfer:
		r.transfer(ctx, log, callID, a)

	case agent.ActionSchedule:
		log.Info("scheduling requested", "type", a.Param("type", ""), "date", a.Param("date", ""))
		sess.SetIntent(calllog.IntentAppointmentScheduling)
		if r.audit != nil {
			if err := r.audit.LogCallEvent(ctx, audit.EventTypeActionExecuted, callID,
				"schedule requested: "+a.Param("type", "unspecified")); err != nil {
				log.Warn("audit append failed", "err", err)
			}
		}

	case agent.ActionLookupStatus:
		sess.SetIntent(calllog.IntentStatusInquiry)
		if r.lookup == nil {
			return
		}
		if answer, ok := r.lookup(ctx, a.Params); ok {
			sess.InjectContext(answer)
		}

	case agent.ActionEndCall:
		message := a.Param("summary", telephony.FarewellMessage)
		doc, err := telephony.HangupTwiML(message)
		if err != nil {
			log.Error("render hangup twiml failed", "err", err)
			return
		}
		r.redirect(ctx, log, callID, doc)

	case agent.ActionVoicemail:
		r.sendToVoicemail(ctx, log, callID)

	default:
		log.Warn("unhandled action kind")
	}
}

func (r *Router) transfer(ctx context.Context, log *slog.Logger, callID string, a agent.AgentAction) {
	staff, ok, err := r.staff.Available(ctx)
	if err != nil {
		log.Error("staff lookup failed", "err", err)
	}
	if !ok {
		log.Info("no staff available, sending to voicemail")
		r.sendToVoicemail(ctx, log, callID)
		return
	}

	whisper := a.Param("reason", "Customer requested transfer")
	whisperURL := telephony.WhisperPath + "?text=" + url.QueryEscape(whisper)
	doc, err := telephony.TransferTwiML(staff.Phone, r.callerID, whisperURL,
		telephony.TransferStatusPath, telephony.StaffAnsweredPath)
	if err != nil {
		log.Error("render transfer twiml failed", "err", err)
		r.sendToVoicemail(ctx, log, callID)
		return
	}
	if !r.redirect(ctx, log, callID, doc) {
		return
	}
	log.Info("transferring to staff", "staff_id", staff.ID)

	transferred := calllog.ResolutionTransferred
	if _, err := r.calls.Update(ctx, callID, calllog.CallUpdate{Resolution: &transferred}); err != nil {
		log.Warn("mark transferred failed", "err", err)
	}
	if r.audit != nil {
		if err := r.audit.LogCallEvent(ctx, audit.EventTypeTransferAttempted, callID, "dialing "+staff.ID); err != nil {
			log.Warn("audit append failed", "err", err)
		}
	}
}

func (r *Router) sendToVoicemail(ctx context.Context, log *slog.Logger, callID string) {
	doc, err := telephony.VoicemailTwiML(telephony.RecordingPath, telephony.TranscriptionPath)
	if err != nil {
		log.Error("render voicemail twiml failed", "err", err)
		return
	}
	r.redirect(ctx, log, callID, doc)
}

func (r *Router) redirect(ctx context.Context, log *slog.Logger, callID, doc string) bool {
	if err := r.control.Redirect(ctx, callID, doc); err != nil {
		log.Error("live call redirect failed", "err", err)
		return false
	}
	if r.audit != nil {
		if err := r.audit.LogCallEvent(ctx, audit.EventTypeActionExecuted, callID, "call redirected"); err != nil {
			log.Warn("audit append failed", "err", err)
		}
	}
	return true
}
