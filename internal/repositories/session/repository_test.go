package session_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/rpg-tabletop/internal/entities"
	"github.com/KirkDiggler/rpg-tabletop/internal/errors"
	"github.com/KirkDiggler/rpg-tabletop/internal/repositories/session"
	"github.com/KirkDiggler/rpg-tabletop/internal/testutils"
)

// RepositoryTestSuite runs the same behavior checks against every backend
type RepositoryTestSuite struct {
	suite.Suite
	newRepo func(t *testing.T) (session.Repository, func())

	repo    session.Repository
	cleanup func()
	ctx     context.Context
	now     time.Time
	ids     int
}

func TestInMemoryRepository(t *testing.T) {
	suite.Run(t, &RepositoryTestSuite{
		newRepo: func(t *testing.T) (session.Repository, func()) {
			return session.NewInMemory(), func() {}
		},
	})
}

func TestRedisRepository(t *testing.T) {
	suite.Run(t, &RepositoryTestSuite{
		newRepo: func(t *testing.T) (session.Repository, func()) {
			client, cleanup := testutils.CreateTestRedisClient(t)
			repo, err := session.NewRedisRepository(&session.RedisConfig{Client: client})
			if err != nil {
				t.Fatalf("new redis repository: %v", err)
			}
			return repo, cleanup
		},
	})
}

func TestSQLiteRepository(t *testing.T) {
	suite.Run(t, &RepositoryTestSuite{
		newRepo: func(t *testing.T) (session.Repository, func()) {
			repo, err := session.OpenSQLite(filepath.Join(t.TempDir(), "session.db"))
			if err != nil {
				t.Fatalf("open sqlite repository: %v", err)
			}
			return repo, func() { _ = repo.Close() }
		},
	})
}

func (s *RepositoryTestSuite) SetupTest() {
	s.repo, s.cleanup = s.newRepo(s.T())
	s.ctx = context.Background()
	s.now = time.Date(2026, 10, 19, 21, 0, 0, 0, time.UTC)
	s.ids = 0
}

func (s *RepositoryTestSuite) TearDownTest() {
	s.cleanup()
}

func (s *RepositoryTestSuite) entry(sessionID string, payload entities.LedgerPayload) *entities.LedgerEntry {
	s.ids++
	entry, err := entities.NewLedgerEntry(fmt.Sprintf("entry_%d", s.ids), sessionID, "gm", s.now, payload)
	s.Require().NoError(err)
	return entry
}

func (s *RepositoryTestSuite) scene(name string) entities.LedgerPayload {
	return entities.SceneChangedPayload{Scene: name}
}

func (s *RepositoryTestSuite) TestGetWorldStateNotFound() {
	_, err := s.repo.GetWorldState(s.ctx, session.GetWorldStateInput{SessionID: "nope"})
	s.True(errors.IsNotFound(err))

	_, err = s.repo.GetWorldState(s.ctx, session.GetWorldStateInput{})
	s.True(errors.IsInvalidArgument(err))
}

func (s *RepositoryTestSuite) TestCommitStoresStateAndEntry() {
	state := entities.NewWorldState("sess")
	state.Scene = "Tavern"
	state.Version = 1
	state.UpdatedAt = s.now

	out, err := s.repo.Commit(s.ctx, session.CommitInput{State: state, Entry: s.entry("sess", s.scene("Tavern"))})
	s.Require().NoError(err)
	s.Equal(int64(1), out.Entry.Sequence)

	got, err := s.repo.GetWorldState(s.ctx, session.GetWorldStateInput{SessionID: "sess"})
	s.Require().NoError(err)
	s.Equal("Tavern", got.State.Scene)
	s.Equal(int64(1), got.State.Version)
	s.Equal(entities.CombatStatusIdle, got.State.Combat.Status)

	count, err := s.repo.CountEntries(s.ctx, session.CountEntriesInput{SessionID: "sess"})
	s.Require().NoError(err)
	s.Equal(int64(1), count.Count)
}

func (s *RepositoryTestSuite) TestCommitRejectsStaleVersion() {
	state := entities.NewWorldState("sess")
	state.Version = 1
	_, err := s.repo.Commit(s.ctx, session.CommitInput{State: state, Entry: s.entry("sess", s.scene("One"))})
	s.Require().NoError(err)

	stale := state.Clone()
	stale.Scene = "Lost update"
	_, err = s.repo.Commit(s.ctx, session.CommitInput{State: stale, Entry: s.entry("sess", s.scene("Lost update"))})
	s.True(errors.IsFailedPrecondition(err))

	count, err := s.repo.CountEntries(s.ctx, session.CountEntriesInput{SessionID: "sess"})
	s.Require().NoError(err)
	s.Equal(int64(1), count.Count, "a rejected commit appends nothing")
}

func (s *RepositoryTestSuite) TestCommitValidatesInput() {
	_, err := s.repo.Commit(s.ctx, session.CommitInput{Entry: s.entry("sess", s.scene("x"))})
	s.True(errors.IsInvalidArgument(err))

	state := entities.NewWorldState("sess")
	state.Version = 1
	_, err = s.repo.Commit(s.ctx, session.CommitInput{State: state, Entry: s.entry("other", s.scene("x"))})
	s.True(errors.IsInvalidArgument(err))
}

func (s *RepositoryTestSuite) TestAppendAssignsSequences() {
	for i := 1; i <= 3; i++ {
		out, err := s.repo.AppendEntry(s.ctx, session.AppendEntryInput{Entry: s.entry("sess", s.scene(fmt.Sprintf("s%d", i)))})
		s.Require().NoError(err)
		s.Equal(int64(i), out.Entry.Sequence)
	}

	out, err := s.repo.AppendEntry(s.ctx, session.AppendEntryInput{Entry: s.entry("other", s.scene("elsewhere"))})
	s.Require().NoError(err)
	s.Equal(int64(1), out.Entry.Sequence, "sequences are per session")
}

func (s *RepositoryTestSuite) TestPageEntriesNewestFirst() {
	for i := 1; i <= 5; i++ {
		_, err := s.repo.AppendEntry(s.ctx, session.AppendEntryInput{Entry: s.entry("sess", s.scene(fmt.Sprintf("scene %d", i)))})
		s.Require().NoError(err)
	}

	testCases := []struct {
		name   string
		offset int
		limit  int
		want   []int64
	}{
		{"first page", 0, 2, []int64{5, 4}},
		{"second page", 2, 2, []int64{3, 2}},
		{"short last page", 4, 2, []int64{1}},
		{"past the end", 10, 2, []int64{}},
		{"everything", 0, 50, []int64{5, 4, 3, 2, 1}},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			out, err := s.repo.PageEntries(s.ctx, session.PageEntriesInput{SessionID: "sess", Offset: tc.offset, Limit: tc.limit})
			s.Require().NoError(err)
			s.Equal(int64(5), out.Total)

			got := make([]int64, 0, len(out.Entries))
			for _, e := range out.Entries {
				got = append(got, e.Sequence)
			}
			s.Equal(tc.want, got)
		})
	}
}

func (s *RepositoryTestSuite) TestPagedEntriesKeepPayload() {
	payload := entities.TurnAdvancedPayload{Round: 2, TurnIndex: 1, CharacterID: "b", DisplayName: "Bram"}
	_, err := s.repo.AppendEntry(s.ctx, session.AppendEntryInput{Entry: s.entry("sess", payload)})
	s.Require().NoError(err)

	out, err := s.repo.PageEntries(s.ctx, session.PageEntriesInput{SessionID: "sess", Limit: 1})
	s.Require().NoError(err)
	s.Require().Len(out.Entries, 1)
	s.Equal(payload, out.Entries[0].Payload)
	s.Equal("gm", out.Entries[0].ActorID)
	s.True(s.now.Equal(out.Entries[0].Timestamp))
}

func (s *RepositoryTestSuite) TestPageEntriesValidation() {
	_, err := s.repo.PageEntries(s.ctx, session.PageEntriesInput{SessionID: "sess"})
	s.True(errors.IsInvalidArgument(err))

	_, err = s.repo.PageEntries(s.ctx, session.PageEntriesInput{SessionID: "sess", Limit: 1, Offset: -1})
	s.True(errors.IsInvalidArgument(err))
}
