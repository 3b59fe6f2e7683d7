package routing

import (
	"context"
	"testing"
	"time"
)

func newTestEngine() *Engine {
	return NewEngine(Config{
		Location:        time.UTC,
		OpenHour:        9,
		CloseHour:       17,
		MaxLiveSessions: 10,
	}, nil, nil)
}

func TestDecide_OfficeHours(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	cases := []struct {
		name   string
		at     time.Time
		want   Outcome
		reason string
	}{
		{"weekday midday", time.Date(2025, 3, 4, 14, 0, 0, 0, time.UTC), OutcomeStream, ""},
		{"weekday opening minute", time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC), OutcomeStream, ""},
		{"weekday before open", time.Date(2025, 3, 4, 8, 59, 0, 0, time.UTC), OutcomeVoicemail, ReasonAfterHours},
		{"weekday at close", time.Date(2025, 3, 4, 17, 0, 0, 0, time.UTC), OutcomeVoicemail, ReasonAfterHours},
		{"saturday midday", time.Date(2025, 3, 8, 12, 0, 0, 0, time.UTC), OutcomeVoicemail, ReasonWeekend},
		{"sunday midday", time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC), OutcomeVoicemail, ReasonWeekend},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := e.Decide(ctx, "CA1", tc.at)
			if d.Outcome != tc.want || d.Reason != tc.reason {
				t.Fatalf("got %+v, want outcome=%s reason=%s", d, tc.want, tc.reason)
			}
		})
	}
}

func TestDecide_TimezoneConversion(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tz database unavailable: %v", err)
	}
	e := NewEngine(Config{Location: loc, OpenHour: 9, CloseHour: 17, MaxLiveSessions: 10}, nil, nil)

	// 14:00 UTC on an EST weekday is 09:00 in New York, inside hours.
	at := time.Date(2025, 3, 4, 14, 0, 0, 0, time.UTC)
	if d := e.Decide(context.Background(), "CA1", at); d.Outcome != OutcomeStream {
		t.Fatalf("expected stream, got %+v", d)
	}

	// 23:00 UTC is 18:00 in New York, after close.
	at = time.Date(2025, 3, 4, 23, 0, 0, 0, time.UTC)
	if d := e.Decide(context.Background(), "CA1", at); d.Outcome != OutcomeVoicemail {
		t.Fatalf("expected voicemail, got %+v", d)
	}
}
