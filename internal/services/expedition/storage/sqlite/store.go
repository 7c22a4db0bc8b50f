// Package sqlite provides the SQLite-backed expedition storage implementation.
package sqlite

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/avenclair/duskspire/internal/platform/storage/sqlitemigrate"
	"github.com/avenclair/duskspire/internal/services/expedition/storage"
	"github.com/avenclair/duskspire/internal/services/expedition/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists expedition state in SQLite.
//
// Merge semantics ride on SQLite's native ON CONFLICT resolution so that
// concurrent writers for the same logical key never interleave a read with
// a write. Expiry is a read-time predicate against the injected clock.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithNow overrides the clock used for lockout expiry filtering.
func WithNow(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func boolToInt(value bool) int64 {
	if value {
		return 1
	}
	return 0
}

// Open opens a SQLite expedition store at the provided path and applies
// embedded migrations.
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	store := &Store{
		sqlDB: sqlDB,
		now:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// nowMillis is the clock value lockout expiry predicates compare against.
func (s *Store) nowMillis() int64 {
	return toMillis(s.now())
}

// placeholders returns "?, ?, ..." with count entries for IN filters.
func placeholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", count), ", ")
}

var _ storage.Store = (*Store)(nil)
