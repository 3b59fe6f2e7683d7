package agent

import (
	"strings"
	"testing"
	"time"
)

func TestGreeting_TimeOfDay(t *testing.T) {
	cases := []struct {
		hour int
		want string
	}{
		{8, "Good morning"},
		{12, "Good afternoon"},
		{16, "Good afternoon"},
		{17, "Good evening"},
		{23, "Good evening"},
	}
	for _, tc := range cases {
		now := time.Date(2025, 3, 4, tc.hour, 0, 0, 0, time.UTC)
		got := Greeting(now)
		if !strings.HasPrefix(got, tc.want) {
			t.Fatalf("hour %d: expected prefix %q, got %q", tc.hour, tc.want, got)
		}
	}
}
