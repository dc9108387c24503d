package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/KirkDiggler/rpg-tabletop/internal/broadcast"
	"github.com/KirkDiggler/rpg-tabletop/internal/config"
	"github.com/KirkDiggler/rpg-tabletop/internal/engine/dice"
	"github.com/KirkDiggler/rpg-tabletop/internal/errors"
	"github.com/KirkDiggler/rpg-tabletop/internal/orchestrators/session"
	"github.com/KirkDiggler/rpg-tabletop/internal/pkg/clock"
	"github.com/KirkDiggler/rpg-tabletop/internal/pkg/idgen"
	redisclient "github.com/KirkDiggler/rpg-tabletop/internal/redis"
	sessionrepo "github.com/KirkDiggler/rpg-tabletop/internal/repositories/session"
	"github.com/KirkDiggler/rpg-tabletop/internal/services/membership"
)

// dependencies is everything the transports need
type dependencies struct {
	sessions    session.Service
	membership  membership.Registry
	hub         *broadcast.Hub
	redis       redisclient.Client
	broadcaster broadcast.Broadcaster

	// relay is set when events travel through Redis before reaching the hub
	relay   bool
	closers []func() error
}

// Close releases stores and connections in reverse order of creation
func (d *dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			slog.Warn("Failed to close dependency", "error", err)
		}
	}
}

func buildDependencies(ctx context.Context, cfg *config.Config) (*dependencies, error) {
	deps := &dependencies{}
	clk := clock.New()

	if cfg.Store == config.StoreRedis || cfg.Broadcast == config.BroadcastRedis {
		client, err := redisclient.Connect(cfg.RedisAddrs, &redisclient.Options{
			PoolSize: cfg.RedisPool,
			UseTLS:   cfg.RedisTLS,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create redis client")
		}
		deps.closers = append(deps.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			deps.Close()
			return nil, errors.Storage(err, "failed to reach redis")
		}
		deps.redis = client
	}

	repo, err := buildRepository(cfg, deps)
	if err != nil {
		deps.Close()
		return nil, err
	}

	if deps.redis != nil && cfg.Store == config.StoreRedis {
		deps.membership, err = membership.NewRedisRegistry(&membership.RedisConfig{Client: deps.redis})
		if err != nil {
			deps.Close()
			return nil, err
		}
	} else {
		deps.membership = membership.NewInMemory()
	}
	for _, pair := range cfg.GameMasters {
		sessionID, userID, _ := config.SplitAssignment(pair)
		if err := deps.membership.SetGameMaster(ctx, sessionID, userID); err != nil {
			deps.Close()
			return nil, errors.Wrapf(err, "failed to assign game master for %s", sessionID)
		}
	}

	switch cfg.Broadcast {
	case config.BroadcastWebsocket:
		deps.hub = broadcast.NewHub(&broadcast.HubConfig{Clock: clk, AllowedOrigins: cfg.AllowedOrigins})
		deps.broadcaster = deps.hub
	case config.BroadcastRedis:
		publisher, err := broadcast.NewRedisPublisher(&broadcast.RedisConfig{Client: deps.redis, Clock: clk})
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.hub = broadcast.NewHub(&broadcast.HubConfig{Clock: clk, AllowedOrigins: cfg.AllowedOrigins})
		deps.broadcaster = publisher
		deps.relay = true
	default:
		deps.broadcaster = broadcast.Noop{}
	}
	if deps.hub != nil {
		deps.closers = append(deps.closers, func() error {
			deps.hub.Close()
			return nil
		})
	}

	deps.sessions, err = session.NewOrchestrator(&session.Config{
		Repository:       repo,
		Broadcaster:      deps.broadcaster,
		DiceSource:       dice.NewToolkitSource(),
		IDGenerator:      idgen.NewUUID("entry"),
		Clock:            clk,
		CommitAttempts:   cfg.CommitAttempts,
		RetryInterval:    cfg.RetryInterval,
		BroadcastTimeout: cfg.BroadcastTimeout,
	})
	if err != nil {
		deps.Close()
		return nil, errors.Wrap(err, "failed to create session orchestrator")
	}

	return deps, nil
}

func buildRepository(cfg *config.Config, deps *dependencies) (sessionrepo.Repository, error) {
	switch cfg.Store {
	case config.StoreRedis:
		return sessionrepo.NewRedisRepository(&sessionrepo.RedisConfig{Client: deps.redis})
	case config.StoreSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, errors.Wrapf(err, "failed to create %s", dir)
			}
		}
		repo, err := sessionrepo.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		deps.closers = append(deps.closers, repo.Close)
		return repo, nil
	default:
		return sessionrepo.NewInMemory(), nil
	}
}
