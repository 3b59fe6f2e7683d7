package calllog

import "time"

// Call is the persisted projection of one phone call.
//
// Created on the first webhook event for a carrier call id and mutated by
// every subsequent lifecycle callback. Records are never deleted; the call
// log is the audit trail for the phone line.
type Call struct {
	ID     string `json:"id" db:"id"`
	CallID string `json:"call_id" db:"call_id"`

	From      string    `json:"from" db:"from_number"`
	To        string    `json:"to" db:"to_number"`
	Direction Direction `json:"direction" db:"direction"`

	Status CallStatus `json:"status" db:"status"`

	StartTime time.Time  `json:"start_time" db:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty" db:"end_time"`

	// DurationSeconds is reported by the carrier on the final status callback.
	DurationSeconds int `json:"duration,omitempty" db:"duration"`

	Intent            Intent           `json:"intent,omitempty" db:"intent"`
	Transcript        []TranscriptLine `json:"transcript,omitempty" db:"transcript"`
	TranscriptSummary string           `json:"transcript_summary,omitempty" db:"transcript_summary"`

	Resolution   Resolution `json:"resolution" db:"resolution"`
	RecordingURL string     `json:"recording_url,omitempty" db:"recording_url"`
	CustomerID   string     `json:"customer_id,omitempty" db:"customer_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TranscriptLine is one speaker-tagged line of conversation.
type TranscriptLine struct {
	Role string `json:"role"` // "caller" or "agent"
	Text string `json:"text"`
}

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type CallStatus string

const (
	CallStatusInProgress CallStatus = "in-progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusFailed     CallStatus = "failed"
	CallStatusNoAnswer   CallStatus = "no-answer"
	CallStatusBusy       CallStatus = "busy"
)

// Resolution is the terminal disposition of a call.
type Resolution string

const (
	ResolutionAIResolved  Resolution = "ai-resolved"
	ResolutionTransferred Resolution = "transferred"
	ResolutionVoicemail   Resolution = "voicemail"
	ResolutionAbandoned   Resolution = "abandoned"
)

// Intent is a coarse classification of why the caller contacted the office.
type Intent string

const (
	IntentAppointmentScheduling Intent = "appointment_scheduling"
	IntentStatusInquiry         Intent = "status_inquiry"
	IntentDocumentQuestion      Intent = "document_question"
	IntentBillingInquiry        Intent = "billing_inquiry"
	IntentNewClient             Intent = "new_client"
	IntentSpeakToHuman          Intent = "speak_to_human"
	IntentOther                 Intent = "other"
)

// CallUpdate carries a partial merge update. Nil fields are left untouched.
type CallUpdate struct {
	Status            *CallStatus
	EndTime           *time.Time
	DurationSeconds   *int
	Intent            *Intent
	Transcript        []TranscriptLine
	TranscriptSummary *string
	Resolution        *Resolution
	RecordingURL      *string
	CustomerID        *string
}

// IsEmpty reports whether the update would change nothing.
func (u CallUpdate) IsEmpty() bool {
	return u.Status == nil &&
		u.EndTime == nil &&
		u.DurationSeconds == nil &&
		u.Intent == nil &&
		u.Transcript == nil &&
		u.TranscriptSummary == nil &&
		u.Resolution == nil &&
		u.RecordingURL == nil &&
		u.CustomerID == nil
}
