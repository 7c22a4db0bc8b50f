package lockout

import (
	"testing"
	"time"
)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestNewTimerComputesExpiryFromClock(t *testing.T) {
	issued := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)

	timer := NewTimer("uuid-1", "Solteris", "boss1", fixedClock(issued), time.Hour)

	if got := timer.ExpiresAt; !got.Equal(issued.Add(time.Hour)) {
		t.Fatalf("expires_at = %v, want %v", got, issued.Add(time.Hour))
	}
	if timer.Duration != time.Hour {
		t.Fatalf("duration = %v, want %v", timer.Duration, time.Hour)
	}
}

func TestExpiredBoundary(t *testing.T) {
	expires := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	timer := Timer{ExpiresAt: expires}

	if timer.Expired(expires.Add(-time.Nanosecond)) {
		t.Fatal("timer should be active just before expiry")
	}
	if !timer.Expired(expires) {
		t.Fatal("timer should be expired at the expiration instant")
	}
	if !timer.Expired(expires.Add(time.Second)) {
		t.Fatal("timer should be expired after expiry")
	}
}

func TestRemainingClampsToZero(t *testing.T) {
	expires := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	timer := Timer{ExpiresAt: expires}

	if got := timer.Remaining(expires.Add(-30 * time.Second)); got != 30*time.Second {
		t.Fatalf("remaining = %v, want 30s", got)
	}
	if got := timer.Remaining(expires.Add(time.Minute)); got != 0 {
		t.Fatalf("remaining = %v, want 0", got)
	}
}

func TestResetReappliesOriginalDuration(t *testing.T) {
	issued := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	timer := NewTimer("uuid-1", "Solteris", "boss1", fixedClock(issued), time.Hour)

	later := issued.Add(45 * time.Minute)
	reissued := timer.Reset(fixedClock(later))

	if !reissued.ExpiresAt.Equal(later.Add(time.Hour)) {
		t.Fatalf("reissued expires_at = %v, want %v", reissued.ExpiresAt, later.Add(time.Hour))
	}
	if !timer.ExpiresAt.Equal(issued.Add(time.Hour)) {
		t.Fatal("original timer must not be mutated by Reset")
	}
}
