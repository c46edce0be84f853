package quiz

import (
	"testing"
	"time"
)

func TestIsTimedOut(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		name    string
		limit   int
		elapsed time.Duration
		want    bool
	}{
		{"unlimited", 0, 24 * time.Hour, false},
		{"within", 1, 30 * time.Second, false},
		{"exactly at limit", 1, time.Minute, false},
		{"just past", 1, 61 * time.Second, true},
		{"negative limit is unlimited", -5, time.Hour, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTimedOut(start, tc.limit, start.Add(tc.elapsed)); got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestRemaining(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	if r := Remaining(start, 0, start); r != nil {
		t.Fatalf("unlimited attempt should have no remaining time, got %d", *r)
	}
	if r := Remaining(start, 2, start.Add(90*time.Second)); r == nil || *r != 30 {
		t.Fatalf("want 30s remaining, got %v", r)
	}
	if r := Remaining(start, 1, start.Add(5*time.Minute)); r == nil || *r != 0 {
		t.Fatalf("expired attempt should report 0, got %v", r)
	}
}

func TestTimeSpentCapsTimedOutAttempts(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	if got := timeSpent(start, start.Add(10*time.Minute), 1, true); got != 60 {
		t.Fatalf("timed out: got %d want 60", got)
	}
	if got := timeSpent(start, start.Add(45*time.Second), 1, false); got != 45 {
		t.Fatalf("completed: got %d want 45", got)
	}
}

func TestCeilMillis(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cases := map[time.Duration]time.Duration{
		0:                            0,
		600 * time.Millisecond:       600 * time.Millisecond,
		600*time.Millisecond + 1:     601 * time.Millisecond,
		999*time.Millisecond + 999e3: time.Second,
	}
	for in, want := range cases {
		if got := ceilMillis(base.Add(in)); !got.Equal(base.Add(want)) {
			t.Errorf("ceilMillis(+%v) = %v, want +%v", in, got.Sub(base), want)
		}
	}
}
