package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/avenclair/duskspire/internal/services/expedition/domain/lockout"
)

func durationToSeconds(d time.Duration) int64 {
	return int64(d / time.Second)
}

func durationFromSeconds(seconds int64) time.Duration {
	return time.Duration(seconds) * time.Second
}

// LoadCharacterLockouts returns all active, non-pending lockouts for a
// character across every expedition name.
func (s *Store) LoadCharacterLockouts(ctx context.Context, characterID int64) ([]lockout.Timer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT from_expedition_uuid, expedition_name, event_name, expire_at, duration_seconds
FROM expedition_character_lockouts
WHERE character_id = ? AND is_pending = 0 AND expire_at > ?
`, characterID, s.nowMillis())
	if err != nil {
		return nil, fmt.Errorf("load character lockouts: %w", err)
	}
	defer rows.Close()

	return scanTimerRows(rows)
}

// LoadCharacterExpeditionLockouts returns a character's active, non-pending
// lockouts for one expedition name.
func (s *Store) LoadCharacterExpeditionLockouts(ctx context.Context, characterID int64, expeditionName string) ([]lockout.Timer, error) {
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

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT from_expedition_uuid, expedition_name, event_name, expire_at, duration_seconds
FROM expedition_character_lockouts
WHERE character_id = ? AND is_pending = 0 AND expire_at > ? AND expedition_name = ?
`, characterID, s.nowMillis(), expeditionName)
	if err != nil {
		return nil, fmt.Errorf("load character expedition lockouts: %w", err)
	}
	defer rows.Close()

	return scanTimerRows(rows)
}

func scanTimerRows(rows *sql.Rows) ([]lockout.Timer, error) {
	var timers []lockout.Timer
	for rows.Next() {
		var (
			timer    lockout.Timer
			expireAt int64
			duration int64
		)
		if err := rows.Scan(
			&timer.FromExpeditionUUID,
			&timer.ExpeditionName,
			&timer.EventName,
			&expireAt,
			&duration,
		); err != nil {
			return nil, fmt.Errorf("scan lockout row: %w", err)
		}
		timer.ExpiresAt = fromMillis(expireAt)
		timer.Duration = durationFromSeconds(duration)
		timers = append(timers, timer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lockout rows: %w", err)
	}
	return timers, nil
}

// LoadLockoutsForExpeditions bulk-loads per-expedition lockouts for a set of
// expedition instances in one round trip, keyed by expedition id then event
// name. Expiry is not filtered here: expeditions hold their own clocks and
// expired internal timers are surfaced to the owner for re-issue decisions.
func (s *Store) LoadLockoutsForExpeditions(ctx context.Context, expeditionIDs []int64) (map[int64]map[string]lockout.Timer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	lockouts := make(map[int64]map[string]lockout.Timer)
	if len(expeditionIDs) == 0 {
		return lockouts, nil
	}

	args := make([]any, 0, len(expeditionIDs))
	for _, expeditionID := range expeditionIDs {
		args = append(args, expeditionID)
	}

	query := `
SELECT l.expedition_id, l.from_expedition_uuid, d.expedition_name, l.event_name, l.expire_at, l.duration_seconds
FROM expedition_lockouts l
	INNER JOIN expedition_details d ON l.expedition_id = d.id
WHERE l.expedition_id IN (` + placeholders(len(expeditionIDs)) + `)
ORDER BY l.expedition_id
`
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load expedition lockouts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			expeditionID int64
			timer        lockout.Timer
			expireAt     int64
			duration     int64
		)
		if err := rows.Scan(
			&expeditionID,
			&timer.FromExpeditionUUID,
			&timer.ExpeditionName,
			&timer.EventName,
			&expireAt,
			&duration,
		); err != nil {
			return nil, fmt.Errorf("scan expedition lockout row: %w", err)
		}
		timer.ExpiresAt = fromMillis(expireAt)
		timer.Duration = durationFromSeconds(duration)
		if lockouts[expeditionID] == nil {
			lockouts[expeditionID] = make(map[string]lockout.Timer)
		}
		lockouts[expeditionID][timer.EventName] = timer
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expedition lockout rows: %w", err)
	}
	return lockouts, nil
}

// UpsertCharacterLockouts batch-merges lockouts for one character in a
// single statement. Replace overwrites source uuid, expiration, and duration
// on a conflicting triple; preserve leaves the existing row untouched so a
// running timer is never clobbered by a cautious writer.
func (s *Store) UpsertCharacterLockouts(ctx context.Context, characterID int64, lockouts []lockout.Timer, replaceOnConflict, isPending bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if characterID <= 0 {
		return fmt.Errorf("character id is required")
	}
	if len(lockouts) == 0 {
		return nil
	}

	var values strings.Builder
	args := make([]any, 0, len(lockouts)*7)
	for i, timer := range lockouts {
		if i > 0 {
			values.WriteString(", ")
		}
		values.WriteString("(?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			characterID,
			timer.ExpeditionName,
			timer.EventName,
			timer.FromExpeditionUUID,
			toMillis(timer.ExpiresAt),
			durationToSeconds(timer.Duration),
			boolToInt(isPending),
		)
	}

	onConflict := `DO NOTHING`
	if replaceOnConflict {
		onConflict = `DO UPDATE SET
	from_expedition_uuid = excluded.from_expedition_uuid,
	expire_at = excluded.expire_at,
	duration_seconds = excluded.duration_seconds`
	}

	query := `
INSERT INTO expedition_character_lockouts
	(character_id, expedition_name, event_name, from_expedition_uuid, expire_at, duration_seconds, is_pending)
VALUES ` + values.String() + `
ON CONFLICT(character_id, expedition_name, event_name, is_pending) ` + onConflict
	if _, err := s.sqlDB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert character lockouts: %w", err)
	}
	return nil
}

// UpsertMembersLockout fans one lockout out to a member set in a single
// statement, always replacing on conflict: this is the "event just fired"
// path where the freshest timer must win.
func (s *Store) UpsertMembersLockout(ctx context.Context, characterIDs []int64, timer lockout.Timer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if len(characterIDs) == 0 {
		return nil
	}

	var values strings.Builder
	args := make([]any, 0, len(characterIDs)*6)
	for i, characterID := range characterIDs {
		if i > 0 {
			values.WriteString(", ")
		}
		values.WriteString("(?, ?, ?, ?, ?, ?)")
		args = append(args,
			characterID,
			timer.ExpeditionName,
			timer.EventName,
			timer.FromExpeditionUUID,
			toMillis(timer.ExpiresAt),
			durationToSeconds(timer.Duration),
		)
	}

	query := `
INSERT INTO expedition_character_lockouts
	(character_id, expedition_name, event_name, from_expedition_uuid, expire_at, duration_seconds)
VALUES ` + values.String() + `
ON CONFLICT(character_id, expedition_name, event_name, is_pending) DO UPDATE SET
	from_expedition_uuid = excluded.from_expedition_uuid,
	expire_at = excluded.expire_at,
	duration_seconds = excluded.duration_seconds`
	if _, err := s.sqlDB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert members lockout: %w", err)
	}
	return nil
}

// UpsertExpeditionLockout writes one per-expedition lockout. The
// expedition's internal clock always reflects the latest event, so conflicts
// always replace.
func (s *Store) UpsertExpeditionLockout(ctx context.Context, expeditionID int64, timer lockout.Timer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if expeditionID <= 0 {
		return fmt.Errorf("expedition id is required")
	}

	if _, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO expedition_lockouts
	(expedition_id, event_name, from_expedition_uuid, expire_at, duration_seconds)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(expedition_id, event_name) DO UPDATE SET
	from_expedition_uuid = excluded.from_expedition_uuid,
	expire_at = excluded.expire_at,
	duration_seconds = excluded.duration_seconds
`,
		expeditionID,
		timer.EventName,
		timer.FromExpeditionUUID,
		toMillis(timer.ExpiresAt),
		durationToSeconds(timer.Duration),
	); err != nil {
		return fmt.Errorf("upsert expedition lockout: %w", err)
	}
	return nil
}

// UpsertExpeditionLockouts writes a per-expedition lockout set in one
// statement, always replacing on conflict. Empty input is a no-op.
func (s *Store) UpsertExpeditionLockouts(ctx context.Context, expeditionID int64, timers map[string]lockout.Timer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if expeditionID <= 0 {
		return fmt.Errorf("expedition id is required")
	}
	if len(timers) == 0 {
		return nil
	}

	var values strings.Builder
	args := make([]any, 0, len(timers)*5)
	first := true
	for _, timer := range timers {
		if !first {
			values.WriteString(", ")
		}
		first = false
		values.WriteString("(?, ?, ?, ?, ?)")
		args = append(args,
			expeditionID,
			timer.EventName,
			timer.FromExpeditionUUID,
			toMillis(timer.ExpiresAt),
			durationToSeconds(timer.Duration),
		)
	}

	query := `
INSERT INTO expedition_lockouts
	(expedition_id, event_name, from_expedition_uuid, expire_at, duration_seconds)
VALUES ` + values.String() + `
ON CONFLICT(expedition_id, event_name) DO UPDATE SET
	from_expedition_uuid = excluded.from_expedition_uuid,
	expire_at = excluded.expire_at,
	duration_seconds = excluded.duration_seconds`
	if _, err := s.sqlDB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert expedition lockouts: %w", err)
	}
	return nil
}

// DeleteCharacterLockouts removes every lockout for a character. A zero
// character id is a no-op rather than an error.
func (s *Store) DeleteCharacterLockouts(ctx context.Context, characterID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if characterID == 0 {
		return nil
	}

	if _, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM expedition_character_lockouts WHERE character_id = ?
`, characterID); err != nil {
		return fmt.Errorf("delete character lockouts: %w", err)
	}
	return nil
}

// DeleteCharacterExpeditionLockouts removes a character's lockouts for one
// expedition name. Zero id or empty name is a no-op.
func (s *Store) DeleteCharacterExpeditionLockouts(ctx context.Context, characterID int64, expeditionName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	expeditionName = strings.TrimSpace(expeditionName)
	if characterID == 0 || expeditionName == "" {
		return nil
	}

	if _, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM expedition_character_lockouts WHERE character_id = ? AND expedition_name = ?
`, characterID, expeditionName); err != nil {
		return fmt.Errorf("delete character expedition lockouts: %w", err)
	}
	return nil
}

// DeleteCharacterLockout removes one confirmed lockout. Pending rows stay:
// they belong to an in-flight workflow and are settled by promotion or
// discard, never by targeted deletes.
func (s *Store) DeleteCharacterLockout(ctx context.Context, characterID int64, expeditionName, eventName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	if _, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM expedition_character_lockouts
WHERE character_id = ? AND is_pending = 0 AND expedition_name = ? AND event_name = ?
`, characterID, strings.TrimSpace(expeditionName), strings.TrimSpace(eventName)); err != nil {
		return fmt.Errorf("delete character lockout: %w", err)
	}
	return nil
}

// DeleteLockoutsForMembers removes one confirmed lockout from a member set
// in a single statement. Empty input is a no-op.
func (s *Store) DeleteLockoutsForMembers(ctx context.Context, characterIDs []int64, expeditionName, eventName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if len(characterIDs) == 0 {
		return nil
	}

	args := make([]any, 0, len(characterIDs)+2)
	for _, characterID := range characterIDs {
		args = append(args, characterID)
	}
	args = append(args, strings.TrimSpace(expeditionName), strings.TrimSpace(eventName))

	query := `
DELETE FROM expedition_character_lockouts
WHERE character_id IN (` + placeholders(len(characterIDs)) + `)
	AND is_pending = 0
	AND expedition_name = ?
	AND event_name = ?
`
	if _, err := s.sqlDB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete members lockout: %w", err)
	}
	return nil
}

// DeleteExpeditionLockout removes one per-expedition lockout event.
func (s *Store) DeleteExpeditionLockout(ctx context.Context, expeditionID int64, eventName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	if _, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM expedition_lockouts WHERE expedition_id = ? AND event_name = ?
`, expeditionID, strings.TrimSpace(eventName)); err != nil {
		return fmt.Errorf("delete expedition lockout: %w", err)
	}
	return nil
}

// PromotePendingLockouts confirms a character's pending lockouts for an
// expedition name. UPDATE OR REPLACE lets a promoted row displace an
// existing confirmed row for the same triple instead of failing the key:
// the just-confirmed timer is the authoritative one.
func (s *Store) PromotePendingLockouts(ctx context.Context, characterID int64, expeditionName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	expeditionName = strings.TrimSpace(expeditionName)
	if characterID == 0 || expeditionName == "" {
		return nil
	}

	if _, err := s.sqlDB.ExecContext(ctx, `
UPDATE OR REPLACE expedition_character_lockouts
SET is_pending = 0
WHERE character_id = ? AND is_pending = 1 AND expedition_name = ?
`, characterID, expeditionName); err != nil {
		return fmt.Errorf("promote pending lockouts: %w", err)
	}
	return nil
}

// DiscardPendingLockouts aborts a character's pending lockouts across all
// expedition names.
func (s *Store) DiscardPendingLockouts(ctx context.Context, characterID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if characterID == 0 {
		return nil
	}

	if _, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM expedition_character_lockouts WHERE character_id = ? AND is_pending = 1
`, characterID); err != nil {
		return fmt.Errorf("discard pending lockouts: %w", err)
	}
	return nil
}

// DiscardPendingLockoutsForMembers aborts pending lockouts for a member set
// in one statement. Empty input is a no-op.
func (s *Store) DiscardPendingLockoutsForMembers(ctx context.Context, characterIDs []int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if len(characterIDs) == 0 {
		return nil
	}

	args := make([]any, 0, len(characterIDs))
	for _, characterID := range characterIDs {
		args = append(args, characterID)
	}

	query := `
DELETE FROM expedition_character_lockouts
WHERE character_id IN (` + placeholders(len(characterIDs)) + `) AND is_pending = 1
`
	if _, err := s.sqlDB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("discard members pending lockouts: %w", err)
	}
	return nil
}

// PruneExpiredLockouts deletes expired rows from both lockout tables and
// reports the number removed. Reads never depend on pruning; this exists for
// offline housekeeping via the admin tool.
func (s *Store) PruneExpiredLockouts(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}

	var pruned int64
	now := s.nowMillis()
	for _, table := range []string{"expedition_character_lockouts", "expedition_lockouts"} {
		res, err := s.sqlDB.ExecContext(ctx, "DELETE FROM "+table+" WHERE expire_at <= ?", now)
		if err != nil {
			return pruned, fmt.Errorf("prune expired lockouts: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return pruned, fmt.Errorf("prune expired lockouts rows affected: %w", err)
		}
		pruned += affected
	}
	return pruned, nil
}
