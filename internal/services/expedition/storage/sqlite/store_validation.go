package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/avenclair/duskspire/internal/services/expedition/domain/lockout"
	"github.com/avenclair/duskspire/internal/services/expedition/storage"
)

// LoadCandidatesForCreate resolves a prospective roster in one pass: each
// named character's identity, current expedition membership, and active
// non-pending lockouts against the expedition name being created. The
// lockout predicate here is identical to the active-lockout reads so the
// validation verdict matches what a follow-up load would see.
func (s *Store) LoadCandidatesForCreate(ctx context.Context, characterNames []string, expeditionName string) ([]storage.CreateCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	expeditionName = strings.TrimSpace(expeditionName)
	if expeditionName == "" {
		return nil, fmt.Errorf("expedition name is required")
	}
	if len(characterNames) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(characterNames)+2)
	args = append(args, s.nowMillis(), expeditionName)
	for _, name := range characterNames {
		args = append(args, strings.TrimSpace(name))
	}

	query := `
SELECT
	c.id,
	c.name,
	m.expedition_id,
	l.from_expedition_uuid,
	l.event_name,
	l.expire_at,
	l.duration_seconds
FROM characters c
	LEFT JOIN expedition_character_lockouts l
		ON c.id = l.character_id
		AND l.is_pending = 0
		AND l.expire_at > ?
		AND l.expedition_name = ?
	LEFT JOIN expedition_members m ON c.id = m.character_id
WHERE c.name IN (` + placeholders(len(characterNames)) + `)
ORDER BY c.id
`
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load create candidates: %w", err)
	}
	defer rows.Close()

	var candidates []storage.CreateCandidate
	for rows.Next() {
		var (
			characterID  int64
			name         string
			expeditionID sql.NullInt64
			lockoutUUID  sql.NullString
			eventName    sql.NullString
			expireAt     sql.NullInt64
			duration     sql.NullInt64
		)
		if err := rows.Scan(
			&characterID,
			&name,
			&expeditionID,
			&lockoutUUID,
			&eventName,
			&expireAt,
			&duration,
		); err != nil {
			return nil, fmt.Errorf("scan create candidate row: %w", err)
		}

		if len(candidates) == 0 || candidates[len(candidates)-1].CharacterID != characterID {
			candidates = append(candidates, storage.CreateCandidate{
				CharacterID:  characterID,
				Name:         name,
				ExpeditionID: expeditionID.Int64,
			})
		}
		if lockoutUUID.Valid && eventName.Valid {
			candidate := &candidates[len(candidates)-1]
			candidate.Lockouts = append(candidate.Lockouts, lockout.Timer{
				FromExpeditionUUID: lockoutUUID.String,
				ExpeditionName:     expeditionName,
				EventName:          eventName.String,
				ExpiresAt:          fromMillis(expireAt.Int64),
				Duration:           durationFromSeconds(duration.Int64),
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate create candidate rows: %w", err)
	}
	return candidates, nil
}
