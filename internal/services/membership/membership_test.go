package membership_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/rpg-tabletop/internal/errors"
	"github.com/KirkDiggler/rpg-tabletop/internal/services/membership"
	"github.com/KirkDiggler/rpg-tabletop/internal/testutils"
)

type RegistryTestSuite struct {
	suite.Suite
	newRegistry func(t *testing.T) (membership.Registry, func())

	registry membership.Registry
	cleanup  func()
	ctx      context.Context
}

func TestInMemoryRegistry(t *testing.T) {
	suite.Run(t, &RegistryTestSuite{
		newRegistry: func(t *testing.T) (membership.Registry, func()) {
			return membership.NewInMemory(), func() {}
		},
	})
}

func TestRedisRegistry(t *testing.T) {
	suite.Run(t, &RegistryTestSuite{
		newRegistry: func(t *testing.T) (membership.Registry, func()) {
			client, cleanup := testutils.CreateTestRedisClient(t)
			registry, err := membership.NewRedisRegistry(&membership.RedisConfig{Client: client})
			if err != nil {
				t.Fatalf("new redis registry: %v", err)
			}
			return registry, cleanup
		},
	})
}

func (s *RegistryTestSuite) SetupTest() {
	s.registry, s.cleanup = s.newRegistry(s.T())
	s.ctx = context.Background()
}

func (s *RegistryTestSuite) TearDownTest() {
	s.cleanup()
}

func (s *RegistryTestSuite) TestUnknownSessionHasNoGM() {
	isGM, err := s.registry.IsGameMaster(s.ctx, "sess", "alice")
	s.Require().NoError(err)
	s.False(isGM)
}

func (s *RegistryTestSuite) TestAssignAndReplace() {
	s.Require().NoError(s.registry.SetGameMaster(s.ctx, "sess", "alice"))

	isGM, err := s.registry.IsGameMaster(s.ctx, "sess", "alice")
	s.Require().NoError(err)
	s.True(isGM)

	isGM, err = s.registry.IsGameMaster(s.ctx, "sess", "bob")
	s.Require().NoError(err)
	s.False(isGM)

	s.Require().NoError(s.registry.SetGameMaster(s.ctx, "sess", "bob"))
	isGM, err = s.registry.IsGameMaster(s.ctx, "sess", "alice")
	s.Require().NoError(err)
	s.False(isGM)
}

func (s *RegistryTestSuite) TestBlankIdentityIsNeverGM() {
	s.Require().NoError(s.registry.SetGameMaster(s.ctx, "sess", "alice"))

	isGM, err := s.registry.IsGameMaster(s.ctx, "sess", "")
	s.Require().NoError(err)
	s.False(isGM)
}

func (s *RegistryTestSuite) TestSetRequiresIDs() {
	err := s.registry.SetGameMaster(s.ctx, "", "")
	s.True(errors.IsInvalidArgument(err))
	s.Contains(err.Error(), "session_id")
	s.Contains(err.Error(), "user_id")
}
