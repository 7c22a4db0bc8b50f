package expeditionadmin

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/avenclair/duskspire/internal/services/expedition/domain/lockout"
	"github.com/avenclair/duskspire/internal/services/expedition/storage/sqlite"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("expeditions-admin", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != filepath.Join("data", "expeditions.db") {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
	if cfg.Timeout != time.Minute {
		t.Fatalf("expected default timeout 1m, got %v", cfg.Timeout)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("DUSKSPIRE_EXPEDITIONS_DB_PATH", "env-expeditions.db")
	t.Setenv("DUSKSPIRE_EXPEDITION_ADMIN_TIMEOUT", "30s")

	fs := flag.NewFlagSet("expeditions-admin", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-list", "-db-path", "flag-expeditions.db"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "flag-expeditions.db" {
		t.Fatalf("expected flag override for db path, got %q", cfg.DBPath)
	}
	if cfg.Timeout != 30*time.Second {
		t.Fatalf("expected env timeout 30s, got %v", cfg.Timeout)
	}
	if !cfg.List {
		t.Fatal("expected -list to be set")
	}
}

func TestRunRejectsAmbiguousCommands(t *testing.T) {
	var out, errOut bytes.Buffer

	if err := Run(context.Background(), Config{}, &out, &errOut); err == nil {
		t.Fatal("expected error when no command selected")
	}
	if err := Run(context.Background(), Config{List: true, PruneExpired: true}, &out, &errOut); err == nil {
		t.Fatal("expected error for combined commands")
	}
	if err := Run(context.Background(), Config{SeedCharacter: true}, &out, &errOut); err == nil {
		t.Fatal("expected error for seed without character id")
	}
	if err := Run(context.Background(), Config{SeedCharacter: true, CharacterID: 1}, &out, &errOut); err == nil {
		t.Fatal("expected error for seed without character name")
	}
}

func TestRunSeedAndList(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "expeditions.db")
	var out, errOut bytes.Buffer

	cfg := Config{DBPath: dbPath, SeedCharacter: true, CharacterID: 1, CharacterName: "Vex"}
	if err := Run(context.Background(), cfg, &out, &errOut); err != nil {
		t.Fatalf("seed character: %v", err)
	}
	if !strings.Contains(out.String(), "seeded character 1") {
		t.Fatalf("unexpected seed output: %q", out.String())
	}

	store, err := sqlite.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	expeditionID, err := store.CreateExpedition(context.Background(), "uuid-a", 100, "Solteris", 1, 1, 6)
	if err != nil {
		t.Fatalf("create expedition: %v", err)
	}
	if err := store.AddMember(context.Background(), expeditionID, 1); err != nil {
		t.Fatalf("add member: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	out.Reset()
	if err := Run(context.Background(), Config{DBPath: dbPath, List: true}, &out, &errOut); err != nil {
		t.Fatalf("list: %v", err)
	}
	var records []map[string]any
	if err := json.Unmarshal(out.Bytes(), &records); err != nil {
		t.Fatalf("decode list output: %v\n%s", err, out.String())
	}
	if len(records) != 1 {
		t.Fatalf("listed %d expeditions, want 1", len(records))
	}
	if got := records[0]["Name"]; got != "Solteris" {
		t.Fatalf("listed name = %v, want Solteris", got)
	}
}

func TestRunSeedExpedition(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "expeditions.db")
	var out, errOut bytes.Buffer

	seed := Config{DBPath: dbPath, SeedCharacter: true, CharacterID: 1, CharacterName: "Vex"}
	if err := Run(context.Background(), seed, &out, &errOut); err != nil {
		t.Fatalf("seed character: %v", err)
	}

	out.Reset()
	cfg := Config{
		DBPath:         dbPath,
		SeedExpedition: true,
		ExpeditionName: "Solteris",
		InstanceID:     100,
		LeaderID:       1,
		MinPlayers:     1,
		MaxPlayers:     6,
	}
	if err := Run(context.Background(), cfg, &out, &errOut); err != nil {
		t.Fatalf("seed expedition: %v", err)
	}
	if !strings.Contains(out.String(), "seeded expedition") {
		t.Fatalf("unexpected seed output: %q", out.String())
	}

	store, err := sqlite.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	records, err := store.LoadAllExpeditions(context.Background())
	if err != nil {
		t.Fatalf("load expeditions: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expeditions = %d, want 1", len(records))
	}
	if records[0].Name != "Solteris" || records[0].UUID == "" {
		t.Fatalf("unexpected seeded record: %+v", records[0])
	}
	if len(records[0].Members) != 1 || records[0].Members[0].CharacterID != 1 {
		t.Fatalf("leader missing from roster: %+v", records[0].Members)
	}

	if err := Run(context.Background(), Config{DBPath: dbPath, SeedExpedition: true, LeaderID: 1}, &out, &errOut); err == nil {
		t.Fatal("expected error for seed-expedition without name")
	}
}

func TestRunPruneExpired(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "expeditions.db")

	store, err := sqlite.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	stale := lockout.Timer{
		FromExpeditionUUID: "u1",
		ExpeditionName:     "Solteris",
		EventName:          "boss1",
		ExpiresAt:          time.Now().Add(-time.Hour),
		Duration:           time.Hour,
	}
	if err := store.UpsertCharacterLockouts(context.Background(), 42, []lockout.Timer{stale}, true, false); err != nil {
		t.Fatalf("seed stale lockout: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	var out, errOut bytes.Buffer
	if err := Run(context.Background(), Config{DBPath: dbPath, PruneExpired: true}, &out, &errOut); err != nil {
		t.Fatalf("prune: %v", err)
	}
	if !strings.Contains(out.String(), "pruned 1 expired lockout rows") {
		t.Fatalf("unexpected prune output: %q", out.String())
	}
}
