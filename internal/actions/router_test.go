package actions

import (
	"context"
	"strings"
	"sync"
	"testing"

	"frontdesk/internal/agent"
	"frontdesk/internal/audit"
	"frontdesk/internal/calllog"
	"frontdesk/internal/directory"
)

type fakeControl struct {
	mu        sync.Mutex
	redirects []string
	fail      bool
}

type redirectErr struct{}

func (redirectErr) Error() string { return "redirect refused" }

func (f *fakeControl) Redirect(ctx context.Context, callID, twiml string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return redirectErr{}
	}
	f.redirects = append(f.redirects, twiml)
	return nil
}

func (f *fakeControl) last(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.redirects) == 0 {
		t.Fatalf("expected a redirect")
	}
	return f.redirects[len(f.redirects)-1]
}

type routerFixture struct {
	router  *Router
	control *fakeControl
	staff   *directory.MemoryDirectory
	calls   *calllog.MemoryStore
}

func newRouter(t *testing.T) *routerFixture {
	t.Helper()
	fx := &routerFixture{
		control: &fakeControl{},
		staff:   directory.NewMemoryDirectory(),
		calls:   calllog.NewMemoryStore(),
	}
	fx.router = NewRouter(fx.control, fx.staff, fx.calls, audit.NewService(audit.NewMemoryRepo()), "+15550001111", nil)
	return fx
}

func seedCall(t *testing.T, store *calllog.MemoryStore, callID string) {
	t.Helper()
	_, err := store.Create(context.Background(), calllog.Call{
		CallID:     callID,
		From:       "+15559876543",
		To:         "+15550001111",
		Direction:  calllog.DirectionInbound,
		Status:     calllog.CallStatusInProgress,
		Resolution: calllog.ResolutionAIResolved,
	})
	if err != nil {
		t.Fatalf("seed call: %v", err)
	}
}

func TestHandleAction_TransferDialsAvailableStaff(t *testing.T) {
	fx := newRouter(t)
	seedCall(t, fx.calls, "CA1")
	fx.staff.Add(directory.StaffMember{ID: "staff-1", Name: "Dana", Phone: "+15551230001", Available: true})

	sess := agent.NewSession("CA1", agent.Config{})
	fx.router.HandleAction(context.Background(), "CA1",
		agent.AgentAction{Kind: agent.ActionTransfer, Params: map[string]string{"reason": "billing dispute"}}, sess)

	doc := fx.control.last(t)
	if !strings.Contains(doc, "+15551230001") || !strings.Contains(doc, "<Dial") {
		t.Fatalf("expected dial TwiML, got:\n%s", doc)
	}
	if !strings.Contains(doc, "billing+dispute") && !strings.Contains(doc, "billing%20dispute") {
		t.Fatalf("whisper reason missing:\n%s", doc)
	}

	call, _, _ := fx.calls.FindByCallID(context.Background(), "CA1")
	if call.Resolution != calllog.ResolutionTransferred {
		t.Fatalf("expected transferred resolution, got %q", call.Resolution)
	}
}

func TestHandleAction_TransferFallsBackToVoicemail(t *testing.T) {
	fx := newRouter(t)
	seedCall(t, fx.calls, "CA1")
	// Directory has nobody available.

	sess := agent.NewSession("CA1", agent.Config{})
	fx.router.HandleAction(context.Background(), "CA1",
		agent.AgentAction{Kind: agent.ActionTransfer, Params: map[string]string{}}, sess)

	doc := fx.control.last(t)
	if !strings.Contains(doc, "<Record") || strings.Contains(doc, "<Dial") {
		t.Fatalf("expected voicemail fallback, got:\n%s", doc)
	}
	call, _, _ := fx.calls.FindByCallID(context.Background(), "CA1")
	if call.Resolution == calllog.ResolutionTransferred {
		t.Fatalf("failed transfer must not mark the call transferred")
	}
}

func TestHandleAction_TransferRedirectFailureLeavesResolution(t *testing.T) {
	fx := newRouter(t)
	seedCall(t, fx.calls, "CA1")
	fx.staff.Add(directory.StaffMember{ID: "staff-1", Phone: "+15551230001", Available: true})
	fx.control.fail = true

	sess := agent.NewSession("CA1", agent.Config{})
	fx.router.HandleAction(context.Background(), "CA1",
		agent.AgentAction{Kind: agent.ActionTransfer, Params: map[string]string{}}, sess)

	call, _, _ := fx.calls.FindByCallID(context.Background(), "CA1")
	if call.Resolution != calllog.ResolutionAIResolved {
		t.Fatalf("redirect failure must not change resolution, got %q", call.Resolution)
	}
}

func TestHandleAction_EndCall(t *testing.T) {
	fx := newRouter(t)
	sess := agent.NewSession("CA1", agent.Config{})

	fx.router.HandleAction(context.Background(), "CA1",
		agent.AgentAction{Kind: agent.ActionEndCall, Params: map[string]string{"summary": "Your appointment is booked for Tuesday."}}, sess)
	if doc := fx.control.last(t); !strings.Contains(doc, "Your appointment is booked for Tuesday.") ||
		!strings.Contains(doc, "<Hangup>") {
		t.Fatalf("unexpected hangup TwiML:\n%s", doc)
	}

	fx.router.HandleAction(context.Background(), "CA1",
		agent.AgentAction{Kind: agent.ActionEndCall, Params: map[string]string{}}, sess)
	if doc := fx.control.last(t); !strings.Contains(doc, "Thank you for calling Gordon Ulen CPA") {
		t.Fatalf("expected default farewell:\n%s", doc)
	}
}

func TestHandleAction_ScheduleSetsIntent(t *testing.T) {
	fx := newRouter(t)
	sess := agent.NewSession("CA1", agent.Config{})

	fx.router.HandleAction(context.Background(), "CA1",
		agent.AgentAction{Kind: agent.ActionSchedule, Params: map[string]string{"type": "Consultation"}}, sess)

	if sess.Intent() != calllog.IntentAppointmentScheduling {
		t.Fatalf("intent not set, got %q", sess.Intent())
	}
	fx.control.mu.Lock()
	defer fx.control.mu.Unlock()
	if len(fx.control.redirects) != 0 {
		t.Fatalf("schedule must not redirect the call")
	}
}

func TestHandleAction_LookupStatusInjectsAnswer(t *testing.T) {
	fx := newRouter(t)
	var gotParams map[string]string
	fx.router.WithStatusLookup(func(ctx context.Context, params map[string]string) (string, bool) {
		gotParams = params
		return "Return filed, pending review.", true
	})
	sess := agent.NewSession("CA1", agent.Config{})

	fx.router.HandleAction(context.Background(), "CA1",
		agent.AgentAction{Kind: agent.ActionLookupStatus, Params: map[string]string{"name": "Pat Doe"}}, sess)

	if sess.Intent() != calllog.IntentStatusInquiry {
		t.Fatalf("intent not set, got %q", sess.Intent())
	}
	if gotParams["name"] != "Pat Doe" {
		t.Fatalf("lookup params lost: %v", gotParams)
	}
}

func TestHandleAction_VoicemailRedirects(t *testing.T) {
	fx := newRouter(t)
	sess := agent.NewSession("CA1", agent.Config{})

	fx.router.HandleAction(context.Background(), "CA1",
		agent.AgentAction{Kind: agent.ActionVoicemail, Params: map[string]string{}}, sess)

	if doc := fx.control.last(t); !strings.Contains(doc, "<Record") {
		t.Fatalf("expected voicemail TwiML:\n%s", doc)
	}
}
