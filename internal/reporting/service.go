package reporting

import (
	"context"
	"errors"

	"frontdesk/internal/calllog"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Service computes summaries over the immutable call log.
type Service struct {
	calls calllog.Store
}

func NewService(calls calllog.Store) *Service { return &Service{calls: calls} }

func (s *Service) CallsSummary(ctx context.Context, req CallsSummaryRequest) (CallsSummary, error) {
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return CallsSummary{}, ErrInvalidRequest
	}
	if s.calls == nil {
		return CallsSummary{}, errors.New("reporting: call store not configured")
	}

	rows, err := s.calls.List(ctx, calllog.ListFilter{From: req.Range.From, To: req.Range.To})
	if err != nil {
		return CallsSummary{}, err
	}

	out := CallsSummary{
		Range:        req.Range,
		ByResolution: map[calllog.Resolution]int{},
		ByIntent:     map[calllog.Intent]int{},
	}
	for _, c := range rows {
		out.TotalCalls++
		out.TotalDurationSeconds += c.DurationSeconds
		if c.RecordingURL != "" {
			out.RecordedCalls++
		}
		switch c.Status {
		case calllog.CallStatusCompleted:
			out.CompletedCalls++
		case calllog.CallStatusFailed:
			out.FailedCalls++
		case calllog.CallStatusNoAnswer:
			out.NoAnswerCalls++
		case calllog.CallStatusBusy:
			out.BusyCalls++
		case calllog.CallStatusInProgress:
			out.InProgressCalls++
		}
		if c.Resolution != "" {
			out.ByResolution[c.Resolution]++
		}
		if c.Intent != "" {
			out.ByIntent[c.Intent]++
		}
	}
	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TotalCalls
	}
	return out, nil
}
