package session

import (
	"github.com/KirkDiggler/rpg-tabletop/internal/engine/combat"
	"github.com/KirkDiggler/rpg-tabletop/internal/engine/rollpolicy"
	"github.com/KirkDiggler/rpg-tabletop/internal/entities"
)

// Ledger paging limits
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// RollDiceInput defines the request for rolling dice in a session
type RollDiceInput struct {
	SessionID   string
	ActorID     string
	CharacterID string
	Reason      string
	Formula     rollpolicy.Formula
	// EndTurn advances the turn after the roll is recorded when combat is active
	EndTurn bool
	// ExpectedTurn is passed on to the advance when EndTurn is set
	ExpectedTurn *ExpectedTurn
}

// RollDiceOutput defines the response for a roll
type RollDiceOutput struct {
	Result rollpolicy.RollResult
	Entry  *entities.LedgerEntry
	// Turn is set when EndTurn advanced combat
	Turn *AdvanceTurnOutput
	// TurnError is set when the roll was recorded but the turn could not be
	// advanced. The roll stays committed either way.
	TurnError error
}

// RollCriticalDamageInput defines the request for a critical damage roll.
// Every dice group in the formula is rolled twice over.
type RollCriticalDamageInput struct {
	SessionID   string
	ActorID     string
	CharacterID string
	Reason      string
	Formula     rollpolicy.Formula
}

// RollCriticalDamageOutput defines the response for a critical damage roll
type RollCriticalDamageOutput struct {
	Result rollpolicy.RollResult
	Entry  *entities.LedgerEntry
}

// StartCombatInput defines the request for starting combat
type StartCombatInput struct {
	SessionID string
	ActorID   string
	Entries   []entities.InitiativeEntry
}

// StartCombatOutput defines the response for starting combat
type StartCombatOutput struct {
	State   *entities.WorldState
	Current *entities.InitiativeEntry
	Entry   *entities.LedgerEntry
}

// AdvanceTurnInput defines the request for advancing the turn
type AdvanceTurnInput struct {
	SessionID string
	ActorID   string
	// Expected, when set, must match the turn in play at commit time or the
	// advance fails with an invalid state error
	Expected *ExpectedTurn
}

// ExpectedTurn identifies the turn a caller saw when deciding to end it
type ExpectedTurn struct {
	Round       int
	TurnIndex   int
	CharacterID string
}

// ExpectTurn returns the expectation for the turn in play, or nil when
// combat is not active
func ExpectTurn(c entities.CombatState) *ExpectedTurn {
	current := c.Current()
	if current == nil {
		return nil
	}
	return &ExpectedTurn{
		Round:       c.Round,
		TurnIndex:   c.TurnIndex,
		CharacterID: current.CharacterID,
	}
}

func (e *ExpectedTurn) matches(c entities.CombatState) bool {
	current := c.Current()
	return current != nil &&
		c.Round == e.Round &&
		c.TurnIndex == e.TurnIndex &&
		current.CharacterID == e.CharacterID
}

// AdvanceTurnOutput defines the response for advancing the turn
type AdvanceTurnOutput struct {
	State   *entities.WorldState
	Current *entities.InitiativeEntry
	Entry   *entities.LedgerEntry
}

// EndCombatInput defines the request for ending combat
type EndCombatInput struct {
	SessionID string
	ActorID   string
}

// EndCombatOutput defines the response for ending combat
type EndCombatOutput struct {
	State   *entities.WorldState
	Summary combat.Summary
	Entry   *entities.LedgerEntry
}

// ChangeSceneInput defines the request for changing the scene. Nil optional
// fields keep their current values; NPCs replaces the list when non-nil.
type ChangeSceneInput struct {
	SessionID string
	ActorID   string
	Scene     string
	Location  *string
	TimeOfDay *string
	Weather   *string
	NPCs      []entities.NPC
}

// ChangeSceneOutput defines the response for changing the scene
type ChangeSceneOutput struct {
	State *entities.WorldState
	Entry *entities.LedgerEntry
}

// UpdateQuestInput defines the request for updating a quest
type UpdateQuestInput struct {
	SessionID string
	ActorID   string
	QuestID   string
	Status    entities.QuestStatus
}

// UpdateQuestOutput defines the response for updating a quest. Entry is nil
// when the quest already had the requested status.
type UpdateQuestOutput struct {
	State *entities.WorldState
	Entry *entities.LedgerEntry
}

// GetWorldStateInput defines the request for reading world state
type GetWorldStateInput struct {
	SessionID string
}

// GetWorldStateOutput defines the response for reading world state
type GetWorldStateOutput struct {
	State *entities.WorldState
}

// ListHistoryInput defines the request for paging the ledger
type ListHistoryInput struct {
	SessionID string
	Offset    int
	Limit     int
}

// ListHistoryOutput holds a page of entries, newest first
type ListHistoryOutput struct {
	Entries    []*entities.LedgerEntry
	Total      int64
	NextOffset int
	HasMore    bool
}

// event is the payload broadcast after a commit
type event struct {
	Entry *entities.LedgerEntry `json:"entry"`
	State *entities.WorldState  `json:"state,omitempty"`
}
