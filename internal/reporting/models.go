package reporting

import (
	"time"

	"frontdesk/internal/calllog"
)

type Range struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type CallsSummaryRequest struct {
	Range Range
}

// CallsSummary aggregates the call log over a time range for the office
// dashboard: volume, how calls ended, and what callers wanted.
type CallsSummary struct {
	Range Range `json:"range"`

	TotalCalls      int `json:"total_calls"`
	CompletedCalls  int `json:"completed_calls"`
	FailedCalls     int `json:"failed_calls"`
	NoAnswerCalls   int `json:"no_answer_calls"`
	BusyCalls       int `json:"busy_calls"`
	InProgressCalls int `json:"in_progress_calls"`

	RecordedCalls int `json:"recorded_calls"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`

	ByResolution map[calllog.Resolution]int `json:"by_resolution"`
	ByIntent     map[calllog.Intent]int     `json:"by_intent"`
}
