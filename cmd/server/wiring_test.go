package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/rpg-tabletop/internal/broadcast"
	"github.com/KirkDiggler/rpg-tabletop/internal/config"
	"github.com/KirkDiggler/rpg-tabletop/internal/engine/dice"
	"github.com/KirkDiggler/rpg-tabletop/internal/engine/rollpolicy"
	"github.com/KirkDiggler/rpg-tabletop/internal/orchestrators/session"
)

type WiringTestSuite struct {
	suite.Suite
	ctx context.Context
}

func TestWiringTestSuite(t *testing.T) {
	suite.Run(t, new(WiringTestSuite))
}

func (s *WiringTestSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *WiringTestSuite) baseConfig() *config.Config {
	return &config.Config{
		GRPCPort:         50051,
		HTTPPort:         8080,
		Store:            config.StoreMemory,
		Broadcast:        config.BroadcastWebsocket,
		RedisPool:        2,
		CommitAttempts:   2,
		RetryInterval:    time.Millisecond,
		BroadcastTimeout: time.Second,
		ShutdownTimeout:  time.Second,
		GameMasters:      []string{"table-1:gm"},
		LogLevel:         "info",
	}
}

// exercise commits a scene change and reads it back through the wired service
func (s *WiringTestSuite) exercise(deps *dependencies) {
	_, err := deps.sessions.ChangeScene(s.ctx, &session.ChangeSceneInput{
		SessionID: "table-1",
		ActorID:   "gm",
		Scene:     "Crossroads",
	})
	s.Require().NoError(err)

	out, err := deps.sessions.GetWorldState(s.ctx, &session.GetWorldStateInput{SessionID: "table-1"})
	s.Require().NoError(err)
	s.Equal("Crossroads", out.State.Scene)
	s.Equal(int64(1), out.State.Version)

	isGM, err := deps.membership.IsGameMaster(s.ctx, "table-1", "gm")
	s.Require().NoError(err)
	s.True(isGM)
}

func (s *WiringTestSuite) TestMemoryStoreWithWebsocketHub() {
	deps, err := buildDependencies(s.ctx, s.baseConfig())
	s.Require().NoError(err)
	defer deps.Close()

	s.NotNil(deps.hub)
	s.False(deps.relay)
	s.Nil(deps.redis)
	s.exercise(deps)
}

func (s *WiringTestSuite) TestSQLiteStoreWithoutBroadcast() {
	cfg := s.baseConfig()
	cfg.Store = config.StoreSQLite
	cfg.SQLitePath = filepath.Join(s.T().TempDir(), "nested", "tabletop.db")
	cfg.Broadcast = config.BroadcastNone

	deps, err := buildDependencies(s.ctx, cfg)
	s.Require().NoError(err)
	defer deps.Close()

	s.Nil(deps.hub)
	s.Equal(broadcast.Noop{}, deps.broadcaster)
	s.exercise(deps)
}

func (s *WiringTestSuite) TestRedisStoreAndBroadcast() {
	mr := miniredis.RunT(s.T())

	cfg := s.baseConfig()
	cfg.Store = config.StoreRedis
	cfg.Broadcast = config.BroadcastRedis
	cfg.RedisAddrs = []string{mr.Addr()}

	deps, err := buildDependencies(s.ctx, cfg)
	s.Require().NoError(err)
	defer deps.Close()

	s.NotNil(deps.redis)
	s.NotNil(deps.hub)
	s.True(deps.relay)
	s.exercise(deps)
	s.True(mr.Exists("session:table-1:gm"))
}

func (s *WiringTestSuite) TestUnreachableRedisFails() {
	mr := miniredis.RunT(s.T())
	addr := mr.Addr()
	mr.Close()

	cfg := s.baseConfig()
	cfg.Store = config.StoreRedis
	cfg.RedisAddrs = []string{addr}

	_, err := buildDependencies(s.ctx, cfg)
	s.Require().Error(err)
}

func (s *WiringTestSuite) TestOfflineRoll() {
	result, err := rollpolicy.ParseAndRoll(rollpolicy.Formula{Notation: "2d6+3"}, dice.NewSequenceSource(4, 5), time.Now())
	s.Require().NoError(err)

	var out bytes.Buffer
	printRoll(&out, result)
	s.Contains(out.String(), "2d6+3 => 12")
	s.Contains(out.String(), "Kept: [4 5]")
}
