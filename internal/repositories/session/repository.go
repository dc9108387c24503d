// Package session stores each session's world state together with its
// append-only action ledger. Every implementation commits a state change and
// the ledger entry describing it atomically.
package session

import (
	"context"

	"github.com/KirkDiggler/rpg-tabletop/internal/entities"
	"github.com/KirkDiggler/rpg-tabletop/internal/errors"
)

//go:generate mockgen -destination=mock/mock_repository.go -package=sessionrepomock github.com/KirkDiggler/rpg-tabletop/internal/repositories/session Repository

const (
	errSessionIDEmpty = "session ID cannot be empty"
	errStateNil       = "world state cannot be nil"
	errEntryNil       = "ledger entry cannot be nil"
	errLimitInvalid   = "limit must be greater than zero"
	errOffsetInvalid  = "offset cannot be negative"
)

// GetWorldStateInput identifies the session to load
type GetWorldStateInput struct {
	SessionID string
}

// GetWorldStateOutput holds the stored state
type GetWorldStateOutput struct {
	State *entities.WorldState
}

// CommitInput is a state change and the ledger entry that records it.
// State.Version must be exactly one past the stored version (or 1 when
// nothing is stored yet).
type CommitInput struct {
	State *entities.WorldState
	Entry *entities.LedgerEntry
}

// CommitOutput returns the entry with its assigned sequence
type CommitOutput struct {
	Entry *entities.LedgerEntry
}

// AppendEntryInput is a ledger entry that changes no world state, such as a roll
type AppendEntryInput struct {
	Entry *entities.LedgerEntry
}

// AppendEntryOutput returns the entry with its assigned sequence
type AppendEntryOutput struct {
	Entry *entities.LedgerEntry
}

// PageEntriesInput selects a window of the ledger counted from the newest entry
type PageEntriesInput struct {
	SessionID string
	Offset    int
	Limit     int
}

// PageEntriesOutput holds entries newest-first plus the ledger size
type PageEntriesOutput struct {
	Entries []*entities.LedgerEntry
	Total   int64
}

// CountEntriesInput identifies the ledger to count
type CountEntriesInput struct {
	SessionID string
}

// CountEntriesOutput holds the ledger size
type CountEntriesOutput struct {
	Count int64
}

// Repository defines the storage operations for world state and the ledger.
// Unavailable backends surface as errors.Storage so callers can retry.
type Repository interface {
	// GetWorldState returns NotFound when the session has no stored state
	GetWorldState(ctx context.Context, input GetWorldStateInput) (*GetWorldStateOutput, error)

	// Commit writes the state and appends the entry in one atomic step
	Commit(ctx context.Context, input CommitInput) (*CommitOutput, error)

	// AppendEntry appends an entry without touching world state
	AppendEntry(ctx context.Context, input AppendEntryInput) (*AppendEntryOutput, error)

	// PageEntries lists entries newest-first
	PageEntries(ctx context.Context, input PageEntriesInput) (*PageEntriesOutput, error)

	// CountEntries returns how many entries the ledger holds
	CountEntries(ctx context.Context, input CountEntriesInput) (*CountEntriesOutput, error)
}

func validateCommit(input CommitInput) error {
	if input.State == nil {
		return errors.InvalidArgument(errStateNil)
	}
	if input.State.SessionID == "" {
		return errors.InvalidArgument(errSessionIDEmpty)
	}
	if err := validateEntry(input.Entry); err != nil {
		return err
	}
	if input.Entry.SessionID != input.State.SessionID {
		return errors.InvalidArgument("ledger entry belongs to a different session")
	}
	return nil
}

func validateEntry(entry *entities.LedgerEntry) error {
	if entry == nil || entry.Payload == nil {
		return errors.InvalidArgument(errEntryNil)
	}
	if entry.SessionID == "" {
		return errors.InvalidArgument(errSessionIDEmpty)
	}
	return nil
}

func validatePage(input PageEntriesInput) error {
	if input.SessionID == "" {
		return errors.InvalidArgument(errSessionIDEmpty)
	}
	if input.Limit <= 0 {
		return errors.InvalidArgument(errLimitInvalid)
	}
	if input.Offset < 0 {
		return errors.InvalidArgument(errOffsetInvalid)
	}
	return nil
}

const metaStoredVersion = "stored_version"

func versionConflict(stored, next int64) error {
	return errors.FailedPrecondition("world state was changed concurrently").
		WithMeta(metaStoredVersion, stored).
		WithMeta("commit_version", next)
}

// IsVersionConflict reports whether a commit lost a race with another writer
func IsVersionConflict(err error) bool {
	if !errors.IsFailedPrecondition(err) {
		return false
	}
	_, ok := errors.GetMeta(err)[metaStoredVersion]
	return ok
}

// withSequence returns a copy of entry carrying seq
func withSequence(entry *entities.LedgerEntry, seq int64) *entities.LedgerEntry {
	out := *entry
	out.Sequence = seq
	return &out
}
