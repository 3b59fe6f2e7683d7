package calllog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a simple in-memory store for tests and early development.
type MemoryStore struct {
	mu    sync.Mutex
	calls map[string]Call // keyed by carrier call id
	clock func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{calls: map[string]Call{}, clock: time.Now}
}

func (s *MemoryStore) Create(ctx context.Context, call Call) (Call, error) {
	if call.CallID == "" {
		return Call{}, ErrInvalidCall
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// Idempotent on call id: a duplicate incoming webhook returns the
	// existing record untouched.
	if existing, ok := s.calls[call.CallID]; ok {
		return existing, nil
	}

	now := s.clock().UTC()
	if call.ID == "" {
		call.ID = uuid.NewString()
	}
	if call.StartTime.IsZero() {
		call.StartTime = now
	}
	call.CreatedAt = now
	call.UpdatedAt = now
	s.calls[call.CallID] = call
	return call, nil
}

func (s *MemoryStore) FindByCallID(ctx context.Context, callID string) (Call, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calls[callID]
	return c, ok, nil
}

func (s *MemoryStore) Update(ctx context.Context, callID string, upd CallUpdate) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.calls[callID]
	if !ok {
		return false, nil
	}

	if upd.Status != nil {
		c.Status = *upd.Status
	}
	if upd.EndTime != nil {
		t := *upd.EndTime
		c.EndTime = &t
	}
	if upd.DurationSeconds != nil {
		c.DurationSeconds = *upd.DurationSeconds
	}
	if upd.Intent != nil {
		c.Intent = *upd.Intent
	}
	if upd.Transcript != nil {
		c.Transcript = append([]TranscriptLine(nil), upd.Transcript...)
	}
	if upd.TranscriptSummary != nil {
		c.TranscriptSummary = *upd.TranscriptSummary
	}
	if upd.Resolution != nil {
		c.Resolution = *upd.Resolution
	}
	if upd.RecordingURL != nil {
		c.RecordingURL = *upd.RecordingURL
	}
	if upd.CustomerID != nil {
		c.CustomerID = *upd.CustomerID
	}
	c.UpdatedAt = s.clock().UTC()
	s.calls[callID] = c
	return true, nil
}

func (s *MemoryStore) List(ctx context.Context, f ListFilter) ([]Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Call, 0, len(s.calls))
	for _, c := range s.calls {
		if !f.From.IsZero() && c.StartTime.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !c.StartTime.Before(f.To) {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}
