package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"frontdesk/internal/auth"
	"frontdesk/internal/calllog"
	"frontdesk/internal/reporting"
	"frontdesk/pkg/logger"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// RoutingOverride toggles the all-calls-to-voicemail switch.
type RoutingOverride interface {
	SetClosedOverride(ctx context.Context, ttl time.Duration) error
	ClearClosedOverride(ctx context.Context) error
}

// AwayMarker flags a staff member as briefly unavailable for transfers.
type AwayMarker interface {
	MarkAway(ctx context.Context, staffID string, ttl time.Duration) error
}

// AuditLogger records admin actions taken through the API.
type AuditLogger interface {
	LogAdminOverride(ctx context.Context, actorUserID, message string) error
}

type Handlers struct {
	Calls    calllog.Store
	Reports  *reporting.Service
	Override RoutingOverride
	Staff    AwayMarker
	Audit    AuditLogger
}

// --- Call log ---

// ListCalls returns call records, newest first.
// Query: status, limit, from, to (RFC 3339).
func (h Handlers) ListCalls(c *gin.Context) {
	f := calllog.ListFilter{Limit: defaultListLimit}

	if s := c.Query("status"); s != "" {
		f.Status = calllog.CallStatus(s)
	}
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		if n > maxListLimit {
			n = maxListLimit
		}
		f.Limit = n
	}
	var ok bool
	if f.From, ok = parseTimeQuery(c, "from"); !ok {
		return
	}
	if f.To, ok = parseTimeQuery(c, "to"); !ok {
		return
	}

	calls, err := h.Calls.List(c.Request.Context(), f)
	if err != nil {
		logger.FromGin(c).Error("list calls failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "list calls failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": calls})
}

func (h Handlers) GetCall(c *gin.Context) {
	callID := c.Param("call_id")
	if callID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "call_id required"})
		return
	}
	call, found, err := h.Calls.FindByCallID(c.Request.Context(), callID)
	if err != nil {
		logger.FromGin(c).Error("call lookup failed", "call_id", callID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call lookup failed"})
		return
	}
	if !found {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
		return
	}
	c.JSON(http.StatusOK, call)
}

// --- Reports ---

func (h Handlers) CallsReport(c *gin.Context) {
	from, ok := parseTimeQuery(c, "from")
	if !ok {
		return
	}
	to, ok := parseTimeQuery(c, "to")
	if !ok {
		return
	}

	sum, err := h.Reports.CallsSummary(c.Request.Context(), reporting.CallsSummaryRequest{
		Range: reporting.Range{From: from, To: to},
	})
	if err == reporting.ErrInvalidRequest {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from and to are required, to must be after from"})
		return
	}
	if err != nil {
		logger.FromGin(c).Error("calls report failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
		return
	}
	c.JSON(http.StatusOK, sum)
}

// --- Routing override (admin) ---

type overrideRequest struct {
	TTLMinutes int `json:"ttl_minutes"`
}

// SetOverride forces all incoming calls to voicemail, optionally for a
// bounded time.
func (h Handlers) SetOverride(c *gin.Context) {
	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.TTLMinutes < 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "ttl_minutes must not be negative"})
		return
	}
	ttl := time.Duration(req.TTLMinutes) * time.Minute

	if err := h.Override.SetClosedOverride(c.Request.Context(), ttl); err != nil {
		logger.FromGin(c).Error("set override failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "set override failed"})
		return
	}
	h.logAdmin(c, "closed override set")
	c.JSON(http.StatusOK, gin.H{"closed": true})
}

func (h Handlers) ClearOverride(c *gin.Context) {
	if err := h.Override.ClearClosedOverride(c.Request.Context()); err != nil {
		logger.FromGin(c).Error("clear override failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "clear override failed"})
		return
	}
	h.logAdmin(c, "closed override cleared")
	c.JSON(http.StatusOK, gin.H{"closed": false})
}

// --- Staff availability ---

type awayRequest struct {
	TTLMinutes int `json:"ttl_minutes"`
}

// MarkStaffAway takes a staff member out of the transfer rotation for a
// bounded time without touching their durable record.
func (h Handlers) MarkStaffAway(c *gin.Context) {
	staffID := c.Param("staff_id")
	if staffID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "staff_id required"})
		return
	}
	var req awayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.TTLMinutes <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "ttl_minutes must be positive"})
		return
	}

	err := h.Staff.MarkAway(c.Request.Context(), staffID, time.Duration(req.TTLMinutes)*time.Minute)
	if err != nil {
		logger.FromGin(c).Error("mark staff away failed", "staff_id", staffID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "mark away failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"staff_id": staffID, "away_minutes": req.TTLMinutes})
}

func (h Handlers) logAdmin(c *gin.Context, message string) {
	if h.Audit == nil {
		return
	}
	userID, _ := auth.UserID(c.Request.Context())
	if err := h.Audit.LogAdminOverride(c.Request.Context(), userID, message); err != nil {
		logger.FromGin(c).Warn("audit append failed", "err", err)
	}
}

func parseTimeQuery(c *gin.Context, key string) (time.Time, bool) {
	s := c.Query(key)
	if s == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": key + " must be RFC 3339"})
		return time.Time{}, false
	}
	return t, true
}
