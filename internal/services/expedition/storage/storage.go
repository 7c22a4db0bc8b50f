// Package storage defines persistence interfaces for the expedition system.
//
// The stores own durable expedition state: the expedition record, the
// character roster, and the lockout timers that bar characters or whole
// expeditions from re-entering named events. Reconciliation rules that the
// rest of the server depends on (replace-vs-preserve merges, pending lockout
// promotion, expiry-at-read) live behind these interfaces so callers never
// emulate them with read-then-write logic.
package storage

import (
	"context"
	"errors"

	"github.com/avenclair/duskspire/internal/services/expedition/domain/lockout"
)

// ErrNotFound indicates a requested persistence record is missing.
// Absence is a normal outcome for get-style lookups, not a storage failure.
var ErrNotFound = errors.New("record not found")

// ExpeditionRecord is the denormalized expedition read model: details joined
// with the member roster and resolved character names.
type ExpeditionRecord struct {
	ID              int64
	UUID            string
	InstanceID      int64
	Name            string
	LeaderID        int64
	LeaderName      string
	MinPlayers      int
	MaxPlayers      int
	IsLocked        bool
	AddReplayOnJoin bool
	Members         []Member
}

// Member is one character in an expedition roster.
type Member struct {
	CharacterID int64
	Name        string
}

// CreateCandidate is one prospective member's eligibility state for an
// expedition create request: identity, current membership, and any active
// lockouts against the expedition name being created.
type CreateCandidate struct {
	CharacterID int64
	Name        string
	// ExpeditionID is the candidate's current expedition, 0 when none.
	ExpeditionID int64
	// Lockouts holds the candidate's active non-pending lockouts against
	// the requested expedition name.
	Lockouts []lockout.Timer
}

// DetailsStore owns the expedition record: creation, attribute mutations,
// composite reads, and disband.
type DetailsStore interface {
	// CreateExpedition inserts a new expedition record and returns its id.
	// On failure the sentinel id 0 is returned alongside the error; no
	// partial state is left behind.
	CreateExpedition(ctx context.Context, uuid string, instanceID int64, name string, leaderID int64, minPlayers, maxPlayers int) (int64, error)
	// LoadExpedition returns the expedition with its member roster and
	// leader name resolved. Inner-join semantics: an expedition with no
	// members yields ErrNotFound.
	LoadExpedition(ctx context.Context, expeditionID int64) (ExpeditionRecord, error)
	// LoadAllExpeditions returns every expedition ordered by ascending id.
	LoadAllExpeditions(ctx context.Context) ([]ExpeditionRecord, error)
	SetLockState(ctx context.Context, expeditionID int64, locked bool) error
	SetReplayLockoutOnJoin(ctx context.Context, expeditionID int64, addOnJoin bool) error
	// SetLeader transfers expedition leadership.
	SetLeader(ctx context.Context, expeditionID int64, leaderID int64) error
	// DeleteExpedition disbands an expedition, removing its members and
	// per-expedition lockouts with it.
	DeleteExpedition(ctx context.Context, expeditionID int64) error
}

// MemberStore owns the character-to-expedition roster. A character belongs to
// at most one expedition at a time; the membership table is keyed on the
// character so concurrent joins cannot produce duplicate rows.
type MemberStore interface {
	// AddMember inserts a roster row. Re-adding a character who already has
	// a membership is a no-op merge that preserves the existing row; the
	// caller's workflow removes the old membership before moving a
	// character between expeditions.
	AddMember(ctx context.Context, expeditionID, characterID int64) error
	// AddMembers inserts a member set in one statement. Empty input is a
	// no-op.
	AddMembers(ctx context.Context, expeditionID int64, characterIDs []int64) error
	RemoveMember(ctx context.Context, expeditionID, characterID int64) error
	RemoveAllMembers(ctx context.Context, expeditionID int64) error
	// FindExpeditionForCharacter returns the character's current expedition
	// id, or 0 when the character is not in one.
	FindExpeditionForCharacter(ctx context.Context, characterID int64) (int64, error)
	// GetLeader resolves the expedition leader to an id and name pair.
	// Returns ErrNotFound when the leader cannot be resolved.
	GetLeader(ctx context.Context, expeditionID int64) (Member, error)
}

// LockoutStore owns persisted lockout timers in two scopes: per-character
// rows (a character barred from a named expedition event) and per-expedition
// rows (an expedition instance's internal event gating, copied onto members
// who join later).
//
// Merge policy is enforced by the storage engine's conflict resolution, not
// by read-then-write, so concurrent writers upserting the same (character,
// expedition name, event) triple cannot race. Active-lockout reads always
// filter pending rows and rows at or past their expiration instant; there is
// no background expiry sweep.
type LockoutStore interface {
	// LoadCharacterLockouts returns all active, non-pending lockouts for a
	// character across all expedition names.
	LoadCharacterLockouts(ctx context.Context, characterID int64) ([]lockout.Timer, error)
	// LoadCharacterExpeditionLockouts is LoadCharacterLockouts filtered to
	// one expedition name.
	LoadCharacterExpeditionLockouts(ctx context.Context, characterID int64, expeditionName string) ([]lockout.Timer, error)
	// LoadLockoutsForExpeditions bulk-loads per-expedition lockouts for a
	// set of expedition instances, keyed by expedition id then event name.
	// Empty input returns an empty map without querying.
	LoadLockoutsForExpeditions(ctx context.Context, expeditionIDs []int64) (map[int64]map[string]lockout.Timer, error)

	// UpsertCharacterLockouts batch-merges lockouts for one character. When
	// replaceOnConflict is set, an existing row for the same (character,
	// expedition name, event) triple has its source uuid, expiration, and
	// duration overwritten; otherwise the existing row is left untouched.
	// Empty input is a no-op.
	UpsertCharacterLockouts(ctx context.Context, characterID int64, lockouts []lockout.Timer, replaceOnConflict, isPending bool) error
	// UpsertMembersLockout applies one lockout to a member set in a single
	// statement, always replacing on conflict so the freshest timer wins.
	UpsertMembersLockout(ctx context.Context, characterIDs []int64, timer lockout.Timer) error
	// UpsertExpeditionLockout writes one per-expedition lockout, always
	// replacing on conflict.
	UpsertExpeditionLockout(ctx context.Context, expeditionID int64, timer lockout.Timer) error
	// UpsertExpeditionLockouts writes a per-expedition lockout set keyed by
	// event name. Empty input is a no-op.
	UpsertExpeditionLockouts(ctx context.Context, expeditionID int64, timers map[string]lockout.Timer) error

	// DeleteCharacterLockouts removes all lockouts for a character. A zero
	// character id is a no-op.
	DeleteCharacterLockouts(ctx context.Context, characterID int64) error
	// DeleteCharacterExpeditionLockouts removes a character's lockouts for
	// one expedition name. Zero id or empty name is a no-op.
	DeleteCharacterExpeditionLockouts(ctx context.Context, characterID int64, expeditionName string) error
	// DeleteCharacterLockout removes one confirmed (non-pending) lockout.
	DeleteCharacterLockout(ctx context.Context, characterID int64, expeditionName, eventName string) error
	// DeleteLockoutsForMembers removes one confirmed lockout from a member
	// set in a single statement. Empty input is a no-op.
	DeleteLockoutsForMembers(ctx context.Context, characterIDs []int64, expeditionName, eventName string) error
	// DeleteExpeditionLockout removes one per-expedition lockout event.
	DeleteExpeditionLockout(ctx context.Context, expeditionID int64, eventName string) error

	// PromotePendingLockouts confirms a character's pending lockouts for an
	// expedition name. Promotion updates in place; when a confirmed row for
	// the same triple already exists the promoted row replaces it rather
	// than duplicating.
	PromotePendingLockouts(ctx context.Context, characterID int64, expeditionName string) error
	// DiscardPendingLockouts deletes all pending lockouts for a character
	// regardless of expedition name.
	DiscardPendingLockouts(ctx context.Context, characterID int64) error
	// DiscardPendingLockoutsForMembers deletes pending lockouts for a
	// member set. Empty input is a no-op.
	DiscardPendingLockoutsForMembers(ctx context.Context, characterIDs []int64) error

	// PruneExpiredLockouts deletes expired lockout rows from both scopes
	// and reports how many rows were removed. Offline housekeeping only;
	// reads never depend on it.
	PruneExpiredLockouts(ctx context.Context) (int64, error)
}

// CharacterDirectory resolves character identity for denormalized reads. The
// directory itself is owned by the character service; this store reads it
// for joins and seeds it in tooling and tests.
type CharacterDirectory interface {
	PutCharacter(ctx context.Context, characterID int64, name string) error
	// GetCharacterIDByName returns ErrNotFound when no such character exists.
	GetCharacterIDByName(ctx context.Context, name string) (int64, error)
}

// ValidationStore serves the pre-create eligibility check.
type ValidationStore interface {
	// LoadCandidatesForCreate resolves, in one pass, each named character's
	// identity, current expedition membership, and active non-pending
	// lockouts against the expedition name being created. Results are
	// ordered by ascending character id; unknown names are omitted. Empty
	// input returns no rows without querying.
	LoadCandidatesForCreate(ctx context.Context, characterNames []string, expeditionName string) ([]CreateCandidate, error)
}

// Store is the composite interface for all expedition persistence concerns.
type Store interface {
	DetailsStore
	MemberStore
	LockoutStore
	CharacterDirectory
	ValidationStore
	Close() error
}
