package entities_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/KirkDiggler/rpg-toolkit/core"
	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/rpg-tabletop/internal/engine/rollpolicy"
	"github.com/KirkDiggler/rpg-tabletop/internal/entities"
	"github.com/KirkDiggler/rpg-tabletop/internal/errors"
)

type LedgerTestSuite struct {
	suite.Suite
	now time.Time
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerTestSuite))
}

func (s *LedgerTestSuite) SetupTest() {
	s.now = time.Date(2026, 10, 19, 18, 30, 0, 0, time.UTC)
}

func (s *LedgerTestSuite) TestNewLedgerEntryValidatesPayload() {
	testCases := []struct {
		name    string
		payload entities.LedgerPayload
		field   string
	}{
		{"nil payload", nil, "payload"},
		{"empty combat", entities.CombatStartedPayload{}, "entries"},
		{"blank scene", entities.SceneChangedPayload{Scene: "  "}, "scene"},
		{"bad quest status", entities.QuestUpdatedPayload{QuestID: "q1", Status: "failed"}, "status"},
		{"turn without character", entities.TurnAdvancedPayload{Round: 1}, "character_id"},
		{"combat ended before a round", entities.CombatEndedPayload{}, "rounds_fought"},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			entry, err := entities.NewLedgerEntry("e1", "sess", "gm", s.now, tc.payload)
			s.Nil(entry)
			s.Require().Error(err)
			s.True(errors.IsInvalidArgument(err))
			s.Contains(err.Error(), tc.field)
		})
	}
}

func (s *LedgerTestSuite) TestJSONCarriesKind() {
	payloads := []entities.LedgerPayload{
		entities.RollPayload{
			CharacterID: "char-1",
			Result: rollpolicy.RollResult{
				Notation: "1d20+5",
				Category: rollpolicy.CategoryAttack,
				Total:    20,
				Mode:     rollpolicy.ModeNormal,
				RolledAt: s.now,
			},
		},
		entities.CombatStartedPayload{Entries: []entities.InitiativeEntry{{CharacterID: "a", InitiativeScore: 18}}},
		entities.TurnAdvancedPayload{Round: 2, TurnIndex: 0, CharacterID: "a", DisplayName: "Aria"},
		entities.CombatEndedPayload{RoundsFought: 3, Participants: []string{"a", "b"}},
		entities.SceneChangedPayload{Scene: "The Sunken Crypt", Weather: "fog"},
		entities.QuestUpdatedPayload{QuestID: "q1", Status: entities.QuestStatusCompleted},
	}

	for _, payload := range payloads {
		s.Run(string(payload.Kind()), func() {
			entry, err := entities.NewLedgerEntry("e1", "sess", "gm", s.now, payload)
			s.Require().NoError(err)
			entry.Sequence = 7

			raw, err := json.Marshal(entry)
			s.Require().NoError(err)

			var probe map[string]any
			s.Require().NoError(json.Unmarshal(raw, &probe))
			s.Equal(string(payload.Kind()), probe["kind"])
			s.Equal(float64(7), probe["sequence"])

			var decoded entities.LedgerEntry
			s.Require().NoError(json.Unmarshal(raw, &decoded))
			s.Equal(payload.Kind(), decoded.Kind())
			s.Equal(entry.ID, decoded.ID)
			s.True(entry.Timestamp.Equal(decoded.Timestamp))
		})
	}
}

func (s *LedgerTestSuite) TestUnknownKindRejected() {
	var entry entities.LedgerEntry
	err := json.Unmarshal([]byte(`{"id":"e1","kind":"chat","payload":{}}`), &entry)
	s.Require().Error(err)
	s.Contains(err.Error(), "unknown ledger kind")
}

type WorldStateTestSuite struct {
	suite.Suite
}

func TestWorldStateSuite(t *testing.T) {
	suite.Run(t, new(WorldStateTestSuite))
}

func (s *WorldStateTestSuite) TestCloneIsDeep() {
	original := entities.NewWorldState("sess")
	original.ActiveQuestIDs = []string{"q1"}
	original.Combat = entities.CombatState{
		Status:  entities.CombatStatusActive,
		Round:   1,
		Entries: []entities.InitiativeEntry{{CharacterID: "a"}},
	}

	clone := original.Clone()
	clone.ActiveQuestIDs[0] = "changed"
	clone.Combat.Entries[0].HasActedThisRound = true

	s.Equal("q1", original.ActiveQuestIDs[0])
	s.False(original.Combat.Entries[0].HasActedThisRound)
}

func (s *WorldStateTestSuite) TestSetQuestStatus() {
	w := entities.NewWorldState("sess")

	s.True(w.SetQuestStatus("q1", entities.QuestStatusActive))
	s.False(w.SetQuestStatus("q1", entities.QuestStatusActive))
	s.Equal([]string{"q1"}, w.ActiveQuestIDs)

	s.True(w.SetQuestStatus("q1", entities.QuestStatusCompleted))
	s.Empty(w.ActiveQuestIDs)
	s.Equal([]string{"q1"}, w.CompletedQuestIDs)

	s.True(w.SetQuestStatus("q1", entities.QuestStatusRemoved))
	s.Empty(w.CompletedQuestIDs)
	s.False(w.SetQuestStatus("q1", entities.QuestStatusRemoved))
}

func (s *WorldStateTestSuite) TestInitiativeEntryIsCoreEntity() {
	var entity core.Entity = &entities.InitiativeEntry{CharacterID: "goblin-1", IsNPC: true}
	s.Equal("goblin-1", entity.GetID())
	s.Equal(entities.EntityTypeNPC, entity.GetType())

	entity = &entities.InitiativeEntry{CharacterID: "char-1"}
	s.Equal(entities.EntityTypeCharacter, entity.GetType())
}

func (s *WorldStateTestSuite) TestCurrentIsNilWhenIdle() {
	s.Nil(entities.IdleCombat().Current())
}
