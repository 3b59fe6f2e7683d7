package routing

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"frontdesk/pkg/utils"
)

// Outcome is where an incoming call goes before any media flows.
type Outcome string

const (
	OutcomeStream    Outcome = "stream"
	OutcomeVoicemail Outcome = "voicemail"
)

const (
	ReasonClosedOverride = "closed_override"
	ReasonWeekend        = "weekend"
	ReasonAfterHours     = "after_hours"
	ReasonAtCapacity     = "at_capacity"
)

type Decision struct {
	Outcome Outcome
	Reason  string
}

const (
	officeClosedKey = "office:closed"
	liveSessionsKey = "calls:live"

	// capTTL bounds a leaked slot if a completion callback never arrives.
	capTTL = time.Hour
)

type Config struct {
	Location        *time.Location
	OpenHour        int
	CloseHour       int
	MaxLiveSessions int
}

// Engine decides stream-vs-voicemail for each incoming call. Redis carries
// the manual closed override and the live-session cap; without redis the
// engine falls back to pure office-hours gating.
type Engine struct {
	cfg Config
	rdb *redis.Client
	log *slog.Logger
}

func NewEngine(cfg Config, rdb *redis.Client, log *slog.Logger) *Engine {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{cfg: cfg, rdb: rdb, log: log}
}

// Decide routes a call arriving at the given instant. A stream decision
// holds a live-session slot tagged with the call id; Release frees it when
// the call ends. Redis failures fail open: a degraded cache must not send
// business-hours callers to voicemail.
func (e *Engine) Decide(ctx context.Context, callID string, at time.Time) Decision {
	if e.closedOverrideSet(ctx) {
		return Decision{Outcome: OutcomeVoicemail, Reason: ReasonClosedOverride}
	}

	local := at.In(e.cfg.Location)
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return Decision{Outcome: OutcomeVoicemail, Reason: ReasonWeekend}
	}
	if h := local.Hour(); h < e.cfg.OpenHour || h >= e.cfg.CloseHour {
		return Decision{Outcome: OutcomeVoicemail, Reason: ReasonAfterHours}
	}

	if e.rdb != nil {
		ok, err := utils.AcquireConcurrencyCap(ctx, e.rdb, liveSessionsKey, e.cfg.MaxLiveSessions, capTTL)
		if err != nil {
			e.log.Warn("session cap check failed", "err", err)
		} else if !ok {
			return Decision{Outcome: OutcomeVoicemail, Reason: ReasonAtCapacity}
		}
		// Tag the slot so a completion callback for a voicemail-routed call
		// cannot release someone else's slot.
		if err := e.rdb.Set(ctx, slotKey(callID), "1", capTTL).Err(); err != nil {
			e.log.Warn("session slot tag failed", "call_id", callID, "err", err)
		}
	}
	return Decision{Outcome: OutcomeStream}
}

// Release frees the live-session slot held for the call, if any. Safe to
// call for calls that never held one.
func (e *Engine) Release(ctx context.Context, callID string) {
	if e.rdb == nil {
		return
	}
	n, err := e.rdb.Del(ctx, slotKey(callID)).Result()
	if err != nil {
		e.log.Warn("session slot lookup failed", "call_id", callID, "err", err)
		return
	}
	if n == 0 {
		return
	}
	if err := utils.ReleaseConcurrencyCap(ctx, e.rdb, liveSessionsKey); err != nil {
		e.log.Warn("session cap release failed", "err", err)
	}
}

func slotKey(callID string) string { return "calls:slot:" + callID }

// SetClosedOverride forces every call to voicemail for the given duration,
// for example during an office emergency. Zero ttl keeps the override until
// cleared.
func (e *Engine) SetClosedOverride(ctx context.Context, ttl time.Duration) error {
	if e.rdb == nil {
		return nil
	}
	return e.rdb.Set(ctx, officeClosedKey, "1", ttl).Err()
}

func (e *Engine) ClearClosedOverride(ctx context.Context) error {
	if e.rdb == nil {
		return nil
	}
	return e.rdb.Del(ctx, officeClosedKey).Err()
}

func (e *Engine) closedOverrideSet(ctx context.Context) bool {
	if e.rdb == nil {
		return false
	}
	n, err := e.rdb.Exists(ctx, officeClosedKey).Result()
	if err != nil {
		e.log.Debug("closed override check failed", "err", err)
		return false
	}
	return n > 0
}
