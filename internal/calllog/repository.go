package calllog

import (
	"context"
	"errors"
	"time"
)

// Store is the persistence contract for call records.
//
// Rules:
// - Writes are idempotent on the carrier call id.
// - Update on a missing record is a reported no-op, not an error: lifecycle
//   callbacks can race record creation.
// - No Delete is provided by design; the log is append-only at the record level.
type Store interface {
	Create(ctx context.Context, call Call) (Call, error)
	FindByCallID(ctx context.Context, callID string) (Call, bool, error)

	// Update merges non-nil fields into the record keyed by callID.
	// Returns false when no record exists.
	Update(ctx context.Context, callID string, upd CallUpdate) (bool, error)

	// List returns records ordered by start time descending.
	List(ctx context.Context, f ListFilter) ([]Call, error)
}

// ListFilter narrows List results. Zero values mean "no constraint".
type ListFilter struct {
	From   time.Time
	To     time.Time
	Status CallStatus
	Limit  int
}

var ErrInvalidCall = errors.New("calllog: invalid call record")
