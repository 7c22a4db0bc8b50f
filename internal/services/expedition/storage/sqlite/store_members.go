package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/avenclair/duskspire/internal/services/expedition/storage"
)

// AddMember upserts one roster row keyed on the character. A character who
// already holds a membership keeps it; moving between expeditions is a
// remove-then-add workflow owned by the caller.
func (s *Store) AddMember(ctx context.Context, expeditionID, characterID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if expeditionID <= 0 {
		return fmt.Errorf("expedition id is required")
	}
	if characterID <= 0 {
		return fmt.Errorf("character id is required")
	}

	if _, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO expedition_members (character_id, expedition_id)
VALUES (?, ?)
ON CONFLICT(character_id) DO UPDATE SET character_id = excluded.character_id
`, characterID, expeditionID); err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

// AddMembers upserts a member set in one statement. Empty input is a no-op.
func (s *Store) AddMembers(ctx context.Context, expeditionID int64, characterIDs []int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if expeditionID <= 0 {
		return fmt.Errorf("expedition id is required")
	}
	if len(characterIDs) == 0 {
		return nil
	}

	var values strings.Builder
	args := make([]any, 0, len(characterIDs)*2)
	for i, characterID := range characterIDs {
		if i > 0 {
			values.WriteString(", ")
		}
		values.WriteString("(?, ?)")
		args = append(args, characterID, expeditionID)
	}

	query := `
INSERT INTO expedition_members (character_id, expedition_id)
VALUES ` + values.String() + `
ON CONFLICT(character_id) DO UPDATE SET character_id = excluded.character_id
`
	if _, err := s.sqlDB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("add members: %w", err)
	}
	return nil
}

// RemoveMember deletes one roster row. Matching zero rows is not an error.
func (s *Store) RemoveMember(ctx context.Context, expeditionID, characterID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	if _, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM expedition_members WHERE expedition_id = ? AND character_id = ?
`, expeditionID, characterID); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}

// RemoveAllMembers empties an expedition's roster.
func (s *Store) RemoveAllMembers(ctx context.Context, expeditionID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	if _, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM expedition_members WHERE expedition_id = ?
`, expeditionID); err != nil {
		return fmt.Errorf("remove all members: %w", err)
	}
	return nil
}

// FindExpeditionForCharacter returns the character's current expedition id,
// or 0 when the character has none.
func (s *Store) FindExpeditionForCharacter(ctx context.Context, characterID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}

	var expeditionID int64
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT expedition_id FROM expedition_members WHERE character_id = ?
`, characterID)
	if err := row.Scan(&expeditionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("find expedition for character: %w", err)
	}
	return expeditionID, nil
}

// GetLeader resolves the expedition leader against the character directory.
func (s *Store) GetLeader(ctx context.Context, expeditionID int64) (storage.Member, error) {
	if err := ctx.Err(); err != nil {
		return storage.Member{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Member{}, fmt.Errorf("storage is not configured")
	}

	var leader storage.Member
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT d.leader_id, c.name
FROM expedition_details d
	INNER JOIN characters c ON d.leader_id = c.id
WHERE d.id = ?
`, expeditionID)
	if err := row.Scan(&leader.CharacterID, &leader.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Member{}, storage.ErrNotFound
		}
		return storage.Member{}, fmt.Errorf("get leader: %w", err)
	}
	return leader, nil
}
