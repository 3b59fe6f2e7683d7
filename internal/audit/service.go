package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only. No Update/Delete methods are provided.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

var ErrInvalidEvent = errors.New("audit: invalid event")

// Service records internal audit information. Callers treat appends as
// best-effort; failures are returned but should be logged, not propagated
// into call handling.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// LogCallEvent records a call lifecycle event.
func (s *Service) LogCallEvent(ctx context.Context, t EventType, callID, message string) error {
	return s.Append(ctx, Event{Type: t, CallID: callID, Message: message})
}

// LogAdminOverride records a routing override taken by a user.
func (s *Service) LogAdminOverride(ctx context.Context, actorUserID, message string) error {
	return s.Append(ctx, Event{Type: EventTypeAdminOverride, ActorUserID: actorUserID, Message: message})
}
