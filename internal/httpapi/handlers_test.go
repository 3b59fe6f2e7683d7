package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"frontdesk/internal/calllog"
	"frontdesk/internal/reporting"
)

type fakeOverride struct {
	set, cleared bool
	ttl          time.Duration
}

func (f *fakeOverride) SetClosedOverride(ctx context.Context, ttl time.Duration) error {
	f.set = true
	f.ttl = ttl
	return nil
}

func (f *fakeOverride) ClearClosedOverride(ctx context.Context) error {
	f.cleared = true
	return nil
}

type fakeAway struct {
	staffID string
	ttl     time.Duration
}

func (f *fakeAway) MarkAway(ctx context.Context, staffID string, ttl time.Duration) error {
	f.staffID = staffID
	f.ttl = ttl
	return nil
}

type apiFixture struct {
	engine   *gin.Engine
	store    *calllog.MemoryStore
	override *fakeOverride
	away     *fakeAway
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fx := &apiFixture{
		store:    calllog.NewMemoryStore(),
		override: &fakeOverride{},
		away:     &fakeAway{},
	}
	h := Handlers{
		Calls:    fx.store,
		Reports:  reporting.NewService(fx.store),
		Override: fx.override,
		Staff:    fx.away,
	}

	r := gin.New()
	r.GET("/v1/calls", h.ListCalls)
	r.GET("/v1/calls/:call_id", h.GetCall)
	r.GET("/v1/reports/calls", h.CallsReport)
	r.POST("/v1/routing/override", h.SetOverride)
	r.DELETE("/v1/routing/override", h.ClearOverride)
	r.POST("/v1/staff/:staff_id/away", h.MarkStaffAway)
	fx.engine = r
	return fx
}

func (fx *apiFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	fx.engine.ServeHTTP(w, req)
	return w
}

func (fx *apiFixture) seed(t *testing.T, c calllog.Call) {
	t.Helper()
	if _, err := fx.store.Create(context.Background(), c); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestListCalls(t *testing.T) {
	fx := newAPI(t)
	base := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)
	fx.seed(t, calllog.Call{CallID: "CA1", Status: calllog.CallStatusCompleted, StartTime: base})
	fx.seed(t, calllog.Call{CallID: "CA2", Status: calllog.CallStatusInProgress, StartTime: base.Add(time.Hour)})

	w := fx.do(t, http.MethodGet, "/v1/calls", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Calls []calllog.Call `json:"calls"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Calls) != 2 || resp.Calls[0].CallID != "CA2" {
		t.Fatalf("expected newest first, got %+v", resp.Calls)
	}

	w = fx.do(t, http.MethodGet, "/v1/calls?status=completed", "")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Calls) != 1 || resp.Calls[0].CallID != "CA1" {
		t.Fatalf("status filter broken: %+v", resp.Calls)
	}

	if w := fx.do(t, http.MethodGet, "/v1/calls?limit=abc", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", w.Code)
	}
	if w := fx.do(t, http.MethodGet, "/v1/calls?from=notatime", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad from, got %d", w.Code)
	}
}

func TestGetCall(t *testing.T) {
	fx := newAPI(t)
	fx.seed(t, calllog.Call{CallID: "CA1", Status: calllog.CallStatusCompleted})

	w := fx.do(t, http.MethodGet, "/v1/calls/CA1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var call calllog.Call
	if err := json.Unmarshal(w.Body.Bytes(), &call); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if call.CallID != "CA1" {
		t.Fatalf("unexpected call: %+v", call)
	}

	if w := fx.do(t, http.MethodGet, "/v1/calls/CA999", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestCallsReport(t *testing.T) {
	fx := newAPI(t)
	base := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)
	fx.seed(t, calllog.Call{
		CallID: "CA1", Status: calllog.CallStatusCompleted, StartTime: base,
		DurationSeconds: 90, Resolution: calllog.ResolutionAIResolved,
	})

	w := fx.do(t, http.MethodGet,
		"/v1/reports/calls?from=2025-03-04T00:00:00Z&to=2025-03-05T00:00:00Z", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var sum reporting.CallsSummary
	if err := json.Unmarshal(w.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sum.TotalCalls != 1 || sum.CompletedCalls != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	if w := fx.do(t, http.MethodGet, "/v1/reports/calls", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without range, got %d", w.Code)
	}
}

func TestRoutingOverride(t *testing.T) {
	fx := newAPI(t)

	w := fx.do(t, http.MethodPost, "/v1/routing/override", `{"ttl_minutes":30}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if !fx.override.set || fx.override.ttl != 30*time.Minute {
		t.Fatalf("override not applied: %+v", fx.override)
	}

	w = fx.do(t, http.MethodDelete, "/v1/routing/override", "")
	if w.Code != http.StatusOK || !fx.override.cleared {
		t.Fatalf("override not cleared: %d %+v", w.Code, fx.override)
	}

	if w := fx.do(t, http.MethodPost, "/v1/routing/override", `{"ttl_minutes":-5}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative ttl, got %d", w.Code)
	}
}

func TestMarkStaffAway(t *testing.T) {
	fx := newAPI(t)

	w := fx.do(t, http.MethodPost, "/v1/staff/staff-1/away", `{"ttl_minutes":15}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if fx.away.staffID != "staff-1" || fx.away.ttl != 15*time.Minute {
		t.Fatalf("away not recorded: %+v", fx.away)
	}

	if w := fx.do(t, http.MethodPost, "/v1/staff/staff-1/away", `{"ttl_minutes":0}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero ttl, got %d", w.Code)
	}
}
