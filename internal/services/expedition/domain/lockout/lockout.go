// Package lockout defines the expedition lockout timer value type.
//
// A Timer bars a character (or an expedition, for members who join later)
// from re-entering a named event until an expiration instant. Timers are
// value types: once constructed they are never mutated, only replaced.
package lockout

import (
	"time"
)

// Timer is one (expedition identity, event) lockout with an expiration
// instant and the original duration the lockout was issued with.
type Timer struct {
	// FromExpeditionUUID identifies the expedition instance that issued
	// the lockout. It survives that expedition's deletion so a character
	// re-entering the same logical expedition can be matched back to it.
	FromExpeditionUUID string

	// ExpeditionName is the logical expedition template name, not the
	// instance display name.
	ExpeditionName string

	// EventName names the gated event within the expedition.
	EventName string

	// ExpiresAt is the instant the lockout stops applying.
	ExpiresAt time.Time

	// Duration is the original lockout duration, kept so the timer can be
	// re-issued at full length independent of how much time remains.
	Duration time.Duration
}

// NewTimer creates a lockout expiring duration from now.
func NewTimer(fromExpeditionUUID, expeditionName, eventName string, now func() time.Time, duration time.Duration) Timer {
	if now == nil {
		now = time.Now
	}
	return Timer{
		FromExpeditionUUID: fromExpeditionUUID,
		ExpeditionName:     expeditionName,
		EventName:          eventName,
		ExpiresAt:          now().UTC().Add(duration),
		Duration:           duration,
	}
}

// Expired reports whether the lockout no longer applies at the given
// instant. The expiration instant itself counts as expired.
func (t Timer) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// Remaining returns the time left on the lockout, clamped to zero.
func (t Timer) Remaining(now time.Time) time.Duration {
	remaining := t.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset returns a copy of the timer re-issued at its original duration.
func (t Timer) Reset(now func() time.Time) Timer {
	if now == nil {
		now = time.Now
	}
	t.ExpiresAt = now().UTC().Add(t.Duration)
	return t
}
