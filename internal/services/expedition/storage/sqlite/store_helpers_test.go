package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// fakeClock is a mutable clock handed to the store so expiry-boundary
// behavior is deterministic.
type fakeClock struct {
	at time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.at
}

func (c *fakeClock) Advance(d time.Duration) {
	c.at = c.at.Add(d)
}

func openTestStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{at: time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)}
	store, err := Open(filepath.Join(t.TempDir(), "expeditions.db"), WithNow(clock.Now))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store, clock
}

func countRows(t *testing.T, store *Store, query string, args ...any) int64 {
	t.Helper()
	var count int64
	row := store.sqlDB.QueryRow(query, args...)
	if err := row.Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return count
}

func seedCharacter(t *testing.T, store *Store, characterID int64, name string) {
	t.Helper()
	if err := store.PutCharacter(context.Background(), characterID, name); err != nil {
		t.Fatalf("seed character %d: %v", characterID, err)
	}
}

// seedExpedition creates an expedition with its leader seeded in the
// character directory and added to the roster.
func seedExpedition(t *testing.T, store *Store, uuid, name string, leaderID int64, leaderName string) int64 {
	t.Helper()
	seedCharacter(t, store, leaderID, leaderName)
	expeditionID, err := store.CreateExpedition(context.Background(), uuid, 100, name, leaderID, 1, 6)
	if err != nil {
		t.Fatalf("create expedition %q: %v", name, err)
	}
	if expeditionID == 0 {
		t.Fatalf("create expedition %q returned sentinel id 0", name)
	}
	if err := store.AddMember(context.Background(), expeditionID, leaderID); err != nil {
		t.Fatalf("add leader to expedition %q: %v", name, err)
	}
	return expeditionID
}
