package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/avenclair/duskspire/internal/services/expedition/storage"
)

// expeditionSelectQuery is the composite read joining details, the member
// roster, and the character directory for leader and member names. Inner
// joins: an expedition with no members produces no rows.
const expeditionSelectQuery = `
SELECT
	d.id,
	d.uuid,
	d.instance_id,
	d.expedition_name,
	d.leader_id,
	d.min_players,
	d.max_players,
	d.add_replay_on_join,
	d.is_locked,
	leader.name,
	m.character_id,
	member.name
FROM expedition_details d
	INNER JOIN characters leader ON d.leader_id = leader.id
	INNER JOIN expedition_members m ON d.id = m.expedition_id
	INNER JOIN characters member ON m.character_id = member.id
`

// CreateExpedition inserts a new expedition record and returns its id.
// The sentinel id 0 accompanies every failure.
func (s *Store) CreateExpedition(ctx context.Context, uuid string, instanceID int64, name string, leaderID int64, minPlayers, maxPlayers int) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	uuid = strings.TrimSpace(uuid)
	if uuid == "" {
		return 0, fmt.Errorf("expedition uuid is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("expedition name is required")
	}
	if leaderID <= 0 {
		return 0, fmt.Errorf("leader id is required")
	}

	res, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO expedition_details
	(uuid, instance_id, expedition_name, leader_id, min_players, max_players)
VALUES (?, ?, ?, ?, ?, ?)
`,
		uuid,
		instanceID,
		name,
		leaderID,
		minPlayers,
		maxPlayers,
	)
	if err != nil {
		return 0, fmt.Errorf("create expedition: %w", err)
	}
	expeditionID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create expedition id: %w", err)
	}
	return expeditionID, nil
}

// LoadExpedition returns one expedition with members and leader name resolved.
func (s *Store) LoadExpedition(ctx context.Context, expeditionID int64) (storage.ExpeditionRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ExpeditionRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ExpeditionRecord{}, fmt.Errorf("storage is not configured")
	}
	if expeditionID <= 0 {
		return storage.ExpeditionRecord{}, fmt.Errorf("expedition id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, expeditionSelectQuery+"WHERE d.id = ?", expeditionID)
	if err != nil {
		return storage.ExpeditionRecord{}, fmt.Errorf("load expedition: %w", err)
	}
	defer rows.Close()

	records, err := scanExpeditionRows(rows)
	if err != nil {
		return storage.ExpeditionRecord{}, fmt.Errorf("load expedition: %w", err)
	}
	if len(records) == 0 {
		return storage.ExpeditionRecord{}, storage.ErrNotFound
	}
	return records[0], nil
}

// LoadAllExpeditions returns every expedition ordered by ascending id.
func (s *Store) LoadAllExpeditions(ctx context.Context) ([]storage.ExpeditionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, expeditionSelectQuery+"ORDER BY d.id")
	if err != nil {
		return nil, fmt.Errorf("load all expeditions: %w", err)
	}
	defer rows.Close()

	records, err := scanExpeditionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("load all expeditions: %w", err)
	}
	return records, nil
}

// scanExpeditionRows folds joined member rows into expedition records. Rows
// for one expedition arrive contiguously because callers order by id.
func scanExpeditionRows(rows *sql.Rows) ([]storage.ExpeditionRecord, error) {
	var records []storage.ExpeditionRecord
	for rows.Next() {
		var (
			rec             storage.ExpeditionRecord
			addReplayOnJoin int64
			isLocked        int64
			member          storage.Member
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.UUID,
			&rec.InstanceID,
			&rec.Name,
			&rec.LeaderID,
			&rec.MinPlayers,
			&rec.MaxPlayers,
			&addReplayOnJoin,
			&isLocked,
			&rec.LeaderName,
			&member.CharacterID,
			&member.Name,
		); err != nil {
			return nil, fmt.Errorf("scan expedition row: %w", err)
		}
		rec.AddReplayOnJoin = addReplayOnJoin != 0
		rec.IsLocked = isLocked != 0

		if len(records) > 0 && records[len(records)-1].ID == rec.ID {
			last := &records[len(records)-1]
			last.Members = append(last.Members, member)
			continue
		}
		rec.Members = []storage.Member{member}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expedition rows: %w", err)
	}
	return records, nil
}

// SetLockState toggles whether the expedition accepts new joiners.
func (s *Store) SetLockState(ctx context.Context, expeditionID int64, locked bool) error {
	return s.updateDetailsFlag(ctx, "is_locked", expeditionID, boolToInt(locked), "set lock state")
}

// SetReplayLockoutOnJoin toggles copying the expedition's replay lockout
// onto members who join later.
func (s *Store) SetReplayLockoutOnJoin(ctx context.Context, expeditionID int64, addOnJoin bool) error {
	return s.updateDetailsFlag(ctx, "add_replay_on_join", expeditionID, boolToInt(addOnJoin), "set replay lockout on join")
}

// SetLeader transfers expedition leadership.
func (s *Store) SetLeader(ctx context.Context, expeditionID int64, leaderID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if expeditionID <= 0 {
		return fmt.Errorf("expedition id is required")
	}
	if leaderID <= 0 {
		return fmt.Errorf("leader id is required")
	}

	if _, err := s.sqlDB.ExecContext(ctx, `
UPDATE expedition_details SET leader_id = ? WHERE id = ?
`, leaderID, expeditionID); err != nil {
		return fmt.Errorf("set leader: %w", err)
	}
	return nil
}

func (s *Store) updateDetailsFlag(ctx context.Context, column string, expeditionID, value int64, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if expeditionID <= 0 {
		return fmt.Errorf("expedition id is required")
	}

	// column is one of the fixed flag names above, never caller input.
	query := fmt.Sprintf("UPDATE expedition_details SET %s = ? WHERE id = ?", column)
	if _, err := s.sqlDB.ExecContext(ctx, query, value, expeditionID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteExpedition disbands an expedition: members and per-expedition
// lockouts go with the record in one transaction.
func (s *Store) DeleteExpedition(ctx context.Context, expeditionID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if expeditionID <= 0 {
		return fmt.Errorf("expedition id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete expedition: %w", err)
	}
	for _, stmt := range []string{
		"DELETE FROM expedition_lockouts WHERE expedition_id = ?",
		"DELETE FROM expedition_members WHERE expedition_id = ?",
		"DELETE FROM expedition_details WHERE id = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, expeditionID); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("delete expedition: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete expedition: %w", err)
	}
	return nil
}
