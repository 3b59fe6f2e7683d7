package audit

import "time"

// Event is an immutable, append-only record of something that happened on a
// call or to the routing configuration.
//
// Invariants:
// - Events are never updated or deleted.
// - Writers treat audit as best-effort; a failed append never blocks a call.
type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates the business category of the record.
	Type EventType `json:"type" db:"type"`

	// CallID ties the event to a carrier call when applicable.
	CallID string `json:"call_id,omitempty" db:"call_id"`

	// ActorUserID is the authenticated user causing the event, for admin
	// actions taken through the read API.
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeCallReceived      EventType = "call_received"
	EventTypeCallRouted        EventType = "call_routed"
	EventTypeActionExecuted    EventType = "action_executed"
	EventTypeTransferAttempted EventType = "transfer_attempted"
	EventTypeVoicemailCaptured EventType = "voicemail_captured"
	EventTypeAdminOverride     EventType = "admin_override"
)
