package session

import (
	"context"
	"encoding/json"
	"fmt"

	redis "github.com/redis/go-redis/v9"

	"github.com/KirkDiggler/rpg-tabletop/internal/entities"
	"github.com/KirkDiggler/rpg-tabletop/internal/errors"
	redisclient "github.com/KirkDiggler/rpg-tabletop/internal/redis"
)

const (
	// Key patterns: session:{id}:state holds the world state JSON,
	// session:{id}:ledger is a list of entry JSON, oldest first.
	sessionKeyPrefix = "session:"
	stateKeySuffix   = ":state"
	ledgerKeySuffix  = ":ledger"
)

// RedisConfig holds the configuration for the Redis repository
type RedisConfig struct {
	Client redisclient.Client
}

// Validate ensures all required dependencies are provided
func (c *RedisConfig) Validate() error {
	if c.Client == nil {
		return errors.InvalidArgument("redis client is required")
	}
	return nil
}

type redisRepository struct {
	client redisclient.Client
}

// NewRedisRepository creates a Redis-backed session repository
func NewRedisRepository(cfg *RedisConfig) (Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &redisRepository{client: cfg.Client}, nil
}

// Ensure redisRepository implements Repository
var _ Repository = (*redisRepository)(nil)

func (r *redisRepository) GetWorldState(ctx context.Context, input GetWorldStateInput) (*GetWorldStateOutput, error) {
	if input.SessionID == "" {
		return nil, errors.InvalidArgument(errSessionIDEmpty)
	}

	data, err := r.client.Get(ctx, stateKey(input.SessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.NotFoundf("world state for session %s not found", input.SessionID)
		}
		return nil, errors.Storage(err, "failed to get world state from Redis")
	}

	var state entities.WorldState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal world state")
	}

	return &GetWorldStateOutput{State: &state}, nil
}

// Commit runs under WATCH on both keys so a concurrent writer on another
// instance aborts the transaction instead of interleaving.
func (r *redisRepository) Commit(ctx context.Context, input CommitInput) (*CommitOutput, error) {
	if err := validateCommit(input); err != nil {
		return nil, err
	}

	sessionID := input.State.SessionID
	sKey, lKey := stateKey(sessionID), ledgerKey(sessionID)

	stateJSON, err := json.Marshal(input.State)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal world state")
	}

	var committed *entities.LedgerEntry
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := storedVersion(ctx, tx, sKey)
		if err != nil {
			return err
		}
		if input.State.Version != stored+1 {
			return versionConflict(stored, input.State.Version)
		}

		seq, err := tx.LLen(ctx, lKey).Result()
		if err != nil {
			return err
		}
		committed = withSequence(input.Entry, seq+1)
		entryJSON, err := json.Marshal(committed)
		if err != nil {
			return errors.Wrapf(err, "failed to marshal ledger entry")
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, sKey, stateJSON, 0)
			pipe.RPush(ctx, lKey, entryJSON)
			return nil
		})
		return err
	}, sKey, lKey)
	if err != nil {
		return nil, storageErr(err, "failed to commit world state")
	}

	return &CommitOutput{Entry: committed}, nil
}

func (r *redisRepository) AppendEntry(ctx context.Context, input AppendEntryInput) (*AppendEntryOutput, error) {
	if err := validateEntry(input.Entry); err != nil {
		return nil, err
	}

	lKey := ledgerKey(input.Entry.SessionID)

	var appended *entities.LedgerEntry
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		seq, err := tx.LLen(ctx, lKey).Result()
		if err != nil {
			return err
		}
		appended = withSequence(input.Entry, seq+1)
		entryJSON, err := json.Marshal(appended)
		if err != nil {
			return errors.Wrapf(err, "failed to marshal ledger entry")
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPush(ctx, lKey, entryJSON)
			return nil
		})
		return err
	}, lKey)
	if err != nil {
		return nil, storageErr(err, "failed to append ledger entry")
	}

	return &AppendEntryOutput{Entry: appended}, nil
}

func (r *redisRepository) PageEntries(ctx context.Context, input PageEntriesInput) (*PageEntriesOutput, error) {
	if err := validatePage(input); err != nil {
		return nil, err
	}

	lKey := ledgerKey(input.SessionID)

	// Negative indexes count from the tail, where the newest entries live
	pipe := r.client.TxPipeline()
	lenCmd := pipe.LLen(ctx, lKey)
	rangeCmd := pipe.LRange(ctx, lKey, -int64(input.Offset+input.Limit), -int64(input.Offset+1))
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, errors.Storage(err, "failed to page ledger entries")
	}

	raw := rangeCmd.Val()
	entries := make([]*entities.LedgerEntry, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var entry entities.LedgerEntry
		if err := json.Unmarshal([]byte(raw[i]), &entry); err != nil {
			return nil, errors.Wrapf(err, "failed to unmarshal ledger entry")
		}
		entries = append(entries, &entry)
	}

	return &PageEntriesOutput{
		Entries: entries,
		Total:   lenCmd.Val(),
	}, nil
}

func (r *redisRepository) CountEntries(ctx context.Context, input CountEntriesInput) (*CountEntriesOutput, error) {
	if input.SessionID == "" {
		return nil, errors.InvalidArgument(errSessionIDEmpty)
	}

	count, err := r.client.LLen(ctx, ledgerKey(input.SessionID)).Result()
	if err != nil {
		return nil, errors.Storage(err, "failed to count ledger entries")
	}

	return &CountEntriesOutput{Count: count}, nil
}

func storedVersion(ctx context.Context, tx *redis.Tx, key string) (int64, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var probe struct {
		Version int64 `json:"version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return 0, errors.Wrapf(err, "failed to unmarshal stored world state")
	}
	return probe.Version, nil
}

// storageErr passes domain errors through and classifies everything else,
// including a lost WATCH race, as retryable storage failures.
func storageErr(err error, message string) error {
	var domainErr *errors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, redis.TxFailedErr) {
		return errors.Storage(err, message+": transaction aborted")
	}
	return errors.Storage(err, message)
}

func stateKey(sessionID string) string {
	return fmt.Sprintf("%s%s%s", sessionKeyPrefix, sessionID, stateKeySuffix)
}

func ledgerKey(sessionID string) string {
	return fmt.Sprintf("%s%s%s", sessionKeyPrefix, sessionID, ledgerKeySuffix)
}
