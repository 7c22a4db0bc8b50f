// Package expeditionadmin implements offline maintenance commands for the
// expedition store: roster inspection, expired lockout pruning, and seeding
// of characters and expeditions.
package expeditionadmin

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/avenclair/duskspire/internal/platform/config"
	"github.com/avenclair/duskspire/internal/platform/id"
	"github.com/avenclair/duskspire/internal/services/expedition/storage/sqlite"
)

// Config holds expedition admin command configuration.
type Config struct {
	DBPath         string        `env:"DUSKSPIRE_EXPEDITIONS_DB_PATH"`
	Timeout        time.Duration `env:"DUSKSPIRE_EXPEDITION_ADMIN_TIMEOUT" envDefault:"1m"`
	List           bool
	PruneExpired   bool
	SeedCharacter  bool
	SeedExpedition bool
	CharacterID    int64
	CharacterName  string
	ExpeditionName string
	InstanceID     int64
	LeaderID       int64
	MinPlayers     int
	MaxPlayers     int
}

type envConfig struct {
	DBPath  string        `env:"DUSKSPIRE_EXPEDITIONS_DB_PATH"`
	Timeout time.Duration `env:"DUSKSPIRE_EXPEDITION_ADMIN_TIMEOUT" envDefault:"1m"`
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var envCfg envConfig
	if err := config.ParseEnv(&envCfg); err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:  envCfg.DBPath,
		Timeout: envCfg.Timeout,
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join("data", "expeditions.db")
	}

	fs.BoolVar(&cfg.List, "list", false, "print all expeditions with members as JSON")
	fs.BoolVar(&cfg.PruneExpired, "prune-expired", false, "delete expired lockout rows")
	fs.BoolVar(&cfg.SeedCharacter, "seed-character", false, "upsert one character directory row")
	fs.BoolVar(&cfg.SeedExpedition, "seed-expedition", false, "create an expedition with a generated uuid and the leader on the roster")
	fs.Int64Var(&cfg.CharacterID, "character-id", 0, "character id for -seed-character")
	fs.StringVar(&cfg.CharacterName, "character-name", "", "character name for -seed-character")
	fs.StringVar(&cfg.ExpeditionName, "expedition-name", "", "expedition name for -seed-expedition")
	fs.Int64Var(&cfg.InstanceID, "instance-id", 0, "instance id for -seed-expedition")
	fs.Int64Var(&cfg.LeaderID, "leader-id", 0, "leader character id for -seed-expedition")
	fs.IntVar(&cfg.MinPlayers, "min-players", 1, "minimum players for -seed-expedition")
	fs.IntVar(&cfg.MaxPlayers, "max-players", 6, "maximum players for -seed-expedition")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "path to expeditions sqlite database (default: DUSKSPIRE_EXPEDITIONS_DB_PATH or data/expeditions.db)")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "overall timeout")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the expedition admin command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}

	selected := 0
	for _, enabled := range []bool{cfg.List, cfg.PruneExpired, cfg.SeedCharacter, cfg.SeedExpedition} {
		if enabled {
			selected++
		}
	}
	if selected == 0 {
		return errors.New("one of -list, -prune-expired, -seed-character, or -seed-expedition is required")
	}
	if selected > 1 {
		return errors.New("-list, -prune-expired, -seed-character, and -seed-expedition are mutually exclusive")
	}
	if cfg.SeedCharacter {
		if cfg.CharacterID <= 0 {
			return errors.New("-character-id must be > 0")
		}
		if strings.TrimSpace(cfg.CharacterName) == "" {
			return errors.New("-character-name is required")
		}
	}
	if cfg.SeedExpedition {
		if strings.TrimSpace(cfg.ExpeditionName) == "" {
			return errors.New("-expedition-name is required")
		}
		if cfg.LeaderID <= 0 {
			return errors.New("-leader-id must be > 0")
		}
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open expedition store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			fmt.Fprintf(errOut, "Error: close expedition store: %v\n", closeErr)
		}
	}()

	switch {
	case cfg.List:
		return runList(ctx, store, out)
	case cfg.PruneExpired:
		return runPruneExpired(ctx, store, out)
	case cfg.SeedExpedition:
		return runSeedExpedition(ctx, store, cfg, out)
	default:
		return runSeedCharacter(ctx, store, cfg.CharacterID, cfg.CharacterName, out)
	}
}

func runList(ctx context.Context, store *sqlite.Store, out io.Writer) error {
	records, err := store.LoadAllExpeditions(ctx)
	if err != nil {
		return fmt.Errorf("load expeditions: %w", err)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode expeditions: %w", err)
	}
	return nil
}

func runPruneExpired(ctx context.Context, store *sqlite.Store, out io.Writer) error {
	pruned, err := store.PruneExpiredLockouts(ctx)
	if err != nil {
		return fmt.Errorf("prune expired lockouts: %w", err)
	}
	fmt.Fprintf(out, "pruned %d expired lockout rows\n", pruned)
	return nil
}

func runSeedExpedition(ctx context.Context, store *sqlite.Store, cfg Config, out io.Writer) error {
	uuid, err := id.NewID()
	if err != nil {
		return fmt.Errorf("generate expedition uuid: %w", err)
	}
	expeditionID, err := store.CreateExpedition(ctx, uuid, cfg.InstanceID, cfg.ExpeditionName, cfg.LeaderID, cfg.MinPlayers, cfg.MaxPlayers)
	if err != nil {
		return fmt.Errorf("seed expedition: %w", err)
	}
	if err := store.AddMember(ctx, expeditionID, cfg.LeaderID); err != nil {
		return fmt.Errorf("seed expedition leader: %w", err)
	}
	fmt.Fprintf(out, "seeded expedition %d %q uuid %s\n", expeditionID, strings.TrimSpace(cfg.ExpeditionName), uuid)
	return nil
}

func runSeedCharacter(ctx context.Context, store *sqlite.Store, characterID int64, name string, out io.Writer) error {
	if err := store.PutCharacter(ctx, characterID, name); err != nil {
		return fmt.Errorf("seed character: %w", err)
	}
	fmt.Fprintf(out, "seeded character %d %q\n", characterID, strings.TrimSpace(name))
	return nil
}
