package session

import (
	"context"
	"sync"

	"github.com/KirkDiggler/rpg-tabletop/internal/entities"
	"github.com/KirkDiggler/rpg-tabletop/internal/errors"
)

// InMemoryRepository implements Repository using in-memory storage. State
// and entries are copied on the way in and out.
type InMemoryRepository struct {
	mu      sync.RWMutex
	states  map[string]*entities.WorldState
	ledgers map[string][]*entities.LedgerEntry
}

// NewInMemory creates a new in-memory repository
func NewInMemory() *InMemoryRepository {
	return &InMemoryRepository{
		states:  make(map[string]*entities.WorldState),
		ledgers: make(map[string][]*entities.LedgerEntry),
	}
}

// Ensure InMemoryRepository implements Repository
var _ Repository = (*InMemoryRepository)(nil)

// GetWorldState returns a copy of the stored state
func (r *InMemoryRepository) GetWorldState(ctx context.Context, input GetWorldStateInput) (*GetWorldStateOutput, error) {
	if input.SessionID == "" {
		return nil, errors.InvalidArgument(errSessionIDEmpty)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	state, exists := r.states[input.SessionID]
	if !exists {
		return nil, errors.NotFoundf("world state for session %s not found", input.SessionID)
	}

	return &GetWorldStateOutput{State: state.Clone()}, nil
}

// Commit stores the state and appends the entry under one lock
func (r *InMemoryRepository) Commit(ctx context.Context, input CommitInput) (*CommitOutput, error) {
	if err := validateCommit(input); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "commit canceled")
	}

	sessionID := input.State.SessionID

	r.mu.Lock()
	defer r.mu.Unlock()

	var stored int64
	if current, ok := r.states[sessionID]; ok {
		stored = current.Version
	}
	if input.State.Version != stored+1 {
		return nil, versionConflict(stored, input.State.Version)
	}

	entry := r.appendLocked(input.Entry)
	r.states[sessionID] = input.State.Clone()

	return &CommitOutput{Entry: entry}, nil
}

// AppendEntry appends without touching world state
func (r *InMemoryRepository) AppendEntry(ctx context.Context, input AppendEntryInput) (*AppendEntryOutput, error) {
	if err := validateEntry(input.Entry); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "append canceled")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return &AppendEntryOutput{Entry: r.appendLocked(input.Entry)}, nil
}

// PageEntries lists entries newest-first
func (r *InMemoryRepository) PageEntries(ctx context.Context, input PageEntriesInput) (*PageEntriesOutput, error) {
	if err := validatePage(input); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ledger := r.ledgers[input.SessionID]
	total := len(ledger)

	entries := make([]*entities.LedgerEntry, 0, min(input.Limit, total))
	for i := total - 1 - input.Offset; i >= 0 && len(entries) < input.Limit; i-- {
		entry := *ledger[i]
		entries = append(entries, &entry)
	}

	return &PageEntriesOutput{
		Entries: entries,
		Total:   int64(total),
	}, nil
}

// CountEntries returns the ledger size
func (r *InMemoryRepository) CountEntries(ctx context.Context, input CountEntriesInput) (*CountEntriesOutput, error) {
	if input.SessionID == "" {
		return nil, errors.InvalidArgument(errSessionIDEmpty)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return &CountEntriesOutput{Count: int64(len(r.ledgers[input.SessionID]))}, nil
}

func (r *InMemoryRepository) appendLocked(entry *entities.LedgerEntry) *entities.LedgerEntry {
	ledger := r.ledgers[entry.SessionID]
	stored := withSequence(entry, int64(len(ledger))+1)
	r.ledgers[entry.SessionID] = append(ledger, stored)

	out := *stored
	return &out
}
