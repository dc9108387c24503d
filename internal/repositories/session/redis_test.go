package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KirkDiggler/rpg-tabletop/internal/entities"
	"github.com/KirkDiggler/rpg-tabletop/internal/errors"
	"github.com/KirkDiggler/rpg-tabletop/internal/repositories/session"
	"github.com/KirkDiggler/rpg-tabletop/internal/testutils"
)

func TestRedisRepositoryKeys(t *testing.T) {
	client, mr, cleanup := testutils.CreateTestRedisServer(t)
	defer cleanup()

	repo, err := session.NewRedisRepository(&session.RedisConfig{Client: client})
	require.NoError(t, err)

	state := entities.NewWorldState("abc")
	state.Version = 1
	entry, err := entities.NewLedgerEntry("e1", "abc", "gm", time.Now(), entities.SceneChangedPayload{Scene: "Docks"})
	require.NoError(t, err)

	_, err = repo.Commit(context.Background(), session.CommitInput{State: state, Entry: entry})
	require.NoError(t, err)

	assert.True(t, mr.Exists("session:abc:state"))
	items, err := mr.List("session:abc:ledger")
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Contains(t, items[0], `"kind":"scene_changed"`)
}

func TestRedisRepositoryOutageIsStorageError(t *testing.T) {
	client, mr, cleanup := testutils.CreateTestRedisServer(t)
	defer cleanup()

	repo, err := session.NewRedisRepository(&session.RedisConfig{Client: client})
	require.NoError(t, err)

	mr.SetError("ERR simulated outage")

	_, err = repo.CountEntries(context.Background(), session.CountEntriesInput{SessionID: "abc"})
	assert.True(t, errors.IsStorage(err))

	_, err = repo.GetWorldState(context.Background(), session.GetWorldStateInput{SessionID: "abc"})
	assert.True(t, errors.IsStorage(err))
}

func TestNewRedisRepositoryRequiresClient(t *testing.T) {
	_, err := session.NewRedisRepository(&session.RedisConfig{})
	assert.True(t, errors.IsInvalidArgument(err))
}
