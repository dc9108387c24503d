// Package membership answers who runs a session. Authentication happens
// upstream; this package only maps an authenticated user to the GM role.
package membership

//go:generate mockgen -destination=mock/mock_checker.go -package=membershipmock github.com/KirkDiggler/rpg-tabletop/internal/services/membership Checker

import (
	"context"
	"fmt"
	"sync"

	redis "github.com/redis/go-redis/v9"

	"github.com/KirkDiggler/rpg-tabletop/internal/errors"
	redisclient "github.com/KirkDiggler/rpg-tabletop/internal/redis"
)

// Checker decides whether a user is the game master of a session
type Checker interface {
	IsGameMaster(ctx context.Context, sessionID, userID string) (bool, error)
}

// Registry is a Checker that can also assign the GM
type Registry interface {
	Checker
	SetGameMaster(ctx context.Context, sessionID, userID string) error
}

// RedisConfig holds the configuration for the Redis registry
type RedisConfig struct {
	Client redisclient.Client
}

// Validate ensures all required dependencies are provided
func (c *RedisConfig) Validate() error {
	vb := errors.NewValidationBuilder()
	if c.Client == nil {
		vb.RequiredField("Client")
	}
	return vb.Build()
}

type redisRegistry struct {
	client redisclient.Client
}

// NewRedisRegistry stores one GM user ID per session under session:{id}:gm
func NewRedisRegistry(cfg *RedisConfig) (Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &redisRegistry{client: cfg.Client}, nil
}

func (r *redisRegistry) IsGameMaster(ctx context.Context, sessionID, userID string) (bool, error) {
	if sessionID == "" || userID == "" {
		return false, nil
	}

	gm, err := r.client.Get(ctx, gmKey(sessionID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, errors.Storage(err, "failed to look up game master")
	}
	return gm == userID, nil
}

func (r *redisRegistry) SetGameMaster(ctx context.Context, sessionID, userID string) error {
	if err := validateAssignment(sessionID, userID); err != nil {
		return err
	}
	if err := r.client.Set(ctx, gmKey(sessionID), userID, 0).Err(); err != nil {
		return errors.Storage(err, "failed to set game master")
	}
	return nil
}

// InMemoryRegistry implements Registry with a map
type InMemoryRegistry struct {
	mu  sync.RWMutex
	gms map[string]string
}

// NewInMemory creates an empty registry
func NewInMemory() *InMemoryRegistry {
	return &InMemoryRegistry{gms: make(map[string]string)}
}

// IsGameMaster reports whether userID was assigned GM of sessionID
func (r *InMemoryRegistry) IsGameMaster(_ context.Context, sessionID, userID string) (bool, error) {
	if sessionID == "" || userID == "" {
		return false, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gms[sessionID] == userID, nil
}

// SetGameMaster replaces the GM of sessionID
func (r *InMemoryRegistry) SetGameMaster(_ context.Context, sessionID, userID string) error {
	if err := validateAssignment(sessionID, userID); err != nil {
		return err
	}

	r.mu.Lock()
	r.gms[sessionID] = userID
	r.mu.Unlock()
	return nil
}

func validateAssignment(sessionID, userID string) error {
	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("session_id", sessionID, vb)
	errors.ValidateRequired("user_id", userID, vb)
	return vb.Build()
}

func gmKey(sessionID string) string {
	return fmt.Sprintf("session:%s:gm", sessionID)
}
