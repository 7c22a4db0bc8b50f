package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/avenclair/duskspire/internal/services/expedition/storage"
)

// PutCharacter upserts one character directory row.
func (s *Store) PutCharacter(ctx context.Context, characterID int64, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if characterID <= 0 {
		return fmt.Errorf("character id is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("character name is required")
	}

	if _, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO characters (id, name)
VALUES (?, ?)
ON CONFLICT(id) DO UPDATE SET name = excluded.name
`, characterID, name); err != nil {
		return fmt.Errorf("put character: %w", err)
	}
	return nil
}

// GetCharacterIDByName resolves a character name to its id.
func (s *Store) GetCharacterIDByName(ctx context.Context, name string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("character name is required")
	}

	var characterID int64
	row := s.sqlDB.QueryRowContext(ctx, `SELECT id FROM characters WHERE name = ?`, name)
	if err := row.Scan(&characterID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("get character id by name: %w", err)
	}
	return characterID, nil
}
