package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/avenclair/duskspire/internal/services/expedition/domain/lockout"
)

func TestLoadCandidatesForCreate(t *testing.T) {
	store, clock := openTestStore(t)
	ctx := context.Background()

	expeditionID := seedExpedition(t, store, "uuid-a", "Solteris", 1, "Vex")
	seedCharacter(t, store, 10, "Mira")
	seedCharacter(t, store, 11, "Oren")
	if err := store.AddMember(ctx, expeditionID, 10); err != nil {
		t.Fatalf("add member: %v", err)
	}

	timers := []lockout.Timer{
		{FromExpeditionUUID: "u-old", ExpeditionName: "Solteris", EventName: "boss1", ExpiresAt: clock.Now().Add(time.Hour), Duration: time.Hour},
		{FromExpeditionUUID: "u-old", ExpeditionName: "Solteris", EventName: "boss2", ExpiresAt: clock.Now().Add(2 * time.Hour), Duration: 2 * time.Hour},
		{FromExpeditionUUID: "u-old", ExpeditionName: "Frostcrypt", EventName: "boss1", ExpiresAt: clock.Now().Add(time.Hour), Duration: time.Hour},
	}
	if err := store.UpsertCharacterLockouts(ctx, 11, timers, true, false); err != nil {
		t.Fatalf("seed lockouts: %v", err)
	}

	candidates, err := store.LoadCandidatesForCreate(ctx, []string{"Mira", "Oren"}, "Solteris")
	if err != nil {
		t.Fatalf("load candidates: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(candidates))
	}

	mira := candidates[0]
	if mira.CharacterID != 10 || mira.Name != "Mira" {
		t.Fatalf("first candidate = %+v, want Mira", mira)
	}
	if mira.ExpeditionID != expeditionID {
		t.Fatalf("Mira expedition id = %d, want %d", mira.ExpeditionID, expeditionID)
	}
	if len(mira.Lockouts) != 0 {
		t.Fatalf("Mira lockouts = %v, want none", mira.Lockouts)
	}

	oren := candidates[1]
	if oren.CharacterID != 11 || oren.Name != "Oren" {
		t.Fatalf("second candidate = %+v, want Oren", oren)
	}
	if oren.ExpeditionID != 0 {
		t.Fatalf("Oren expedition id = %d, want 0", oren.ExpeditionID)
	}
	// Only the Solteris lockouts count toward a Solteris create.
	if len(oren.Lockouts) != 2 {
		t.Fatalf("Oren lockouts = %d, want 2", len(oren.Lockouts))
	}
	for _, timer := range oren.Lockouts {
		if timer.ExpeditionName != "Solteris" {
			t.Fatalf("foreign lockout leaked into candidates: %+v", timer)
		}
	}
}

func TestLoadCandidatesForCreateExcludesPendingAndExpired(t *testing.T) {
	store, clock := openTestStore(t)
	ctx := context.Background()

	seedCharacter(t, store, 10, "Mira")

	pending := lockout.Timer{
		FromExpeditionUUID: "u-old",
		ExpeditionName:     "Solteris",
		EventName:          "replay",
		ExpiresAt:          clock.Now().Add(time.Hour),
		Duration:           time.Hour,
	}
	expired := lockout.Timer{
		FromExpeditionUUID: "u-old",
		ExpeditionName:     "Solteris",
		EventName:          "boss1",
		ExpiresAt:          clock.Now().Add(-time.Minute),
		Duration:           time.Hour,
	}
	if err := store.UpsertCharacterLockouts(ctx, 10, []lockout.Timer{pending}, true, true); err != nil {
		t.Fatalf("seed pending: %v", err)
	}
	if err := store.UpsertCharacterLockouts(ctx, 10, []lockout.Timer{expired}, true, false); err != nil {
		t.Fatalf("seed expired: %v", err)
	}

	candidates, err := store.LoadCandidatesForCreate(ctx, []string{"Mira"}, "Solteris")
	if err != nil {
		t.Fatalf("load candidates: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("candidates = %d, want 1", len(candidates))
	}
	if len(candidates[0].Lockouts) != 0 {
		t.Fatalf("inactive lockouts leaked: %v", candidates[0].Lockouts)
	}
}

func TestLoadCandidatesForCreateOmitsUnknownNames(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	seedCharacter(t, store, 10, "Mira")

	candidates, err := store.LoadCandidatesForCreate(ctx, []string{"Mira", "Nobody"}, "Solteris")
	if err != nil {
		t.Fatalf("load candidates: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Name != "Mira" {
		t.Fatalf("candidates = %+v, want only Mira", candidates)
	}
}

func TestLoadCandidatesForCreateRequiresExpeditionName(t *testing.T) {
	store, _ := openTestStore(t)

	if _, err := store.LoadCandidatesForCreate(context.Background(), []string{"Mira"}, "  "); err == nil {
		t.Fatal("expected error for blank expedition name")
	}
}
