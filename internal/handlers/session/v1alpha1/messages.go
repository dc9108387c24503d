package v1alpha1

import (
	"github.com/KirkDiggler/rpg-tabletop/internal/engine/combat"
	"github.com/KirkDiggler/rpg-tabletop/internal/engine/rollpolicy"
	"github.com/KirkDiggler/rpg-tabletop/internal/entities"
)

// RollDiceRequest rolls a formula for a character
type RollDiceRequest struct {
	SessionID   string             `json:"session_id"`
	CharacterID string             `json:"character_id,omitempty"`
	Reason      string             `json:"reason,omitempty"`
	Formula     rollpolicy.Formula `json:"formula"`
	EndTurn     bool               `json:"end_turn,omitempty"`
}

// RollDiceResponse carries the roll and, when the turn ended, the new turn.
// TurnError explains why a requested end of turn did not happen; the roll
// is recorded regardless.
type RollDiceResponse struct {
	Result    rollpolicy.RollResult `json:"result"`
	Entry     *entities.LedgerEntry `json:"entry"`
	Turn      *TurnResponse         `json:"turn,omitempty"`
	TurnError string                `json:"turn_error,omitempty"`
}

// RollCriticalDamageRequest rolls damage with doubled dice
type RollCriticalDamageRequest struct {
	SessionID   string             `json:"session_id"`
	CharacterID string             `json:"character_id,omitempty"`
	Reason      string             `json:"reason,omitempty"`
	Formula     rollpolicy.Formula `json:"formula"`
}

// RollCriticalDamageResponse carries the doubled roll
type RollCriticalDamageResponse struct {
	Result rollpolicy.RollResult `json:"result"`
	Entry  *entities.LedgerEntry `json:"entry"`
}

// StartCombatRequest lists the participants of a new combat
type StartCombatRequest struct {
	SessionID string                     `json:"session_id"`
	Entries   []entities.InitiativeEntry `json:"entries"`
}

// AdvanceTurnRequest ends the current participant's turn
type AdvanceTurnRequest struct {
	SessionID string `json:"session_id"`
}

// TurnResponse is returned by StartCombat and AdvanceTurn
type TurnResponse struct {
	State   *entities.WorldState      `json:"state"`
	Current *entities.InitiativeEntry `json:"current"`
	Entry   *entities.LedgerEntry     `json:"entry"`
}

// EndCombatRequest ends the session's combat
type EndCombatRequest struct {
	SessionID string `json:"session_id"`
}

// EndCombatResponse carries the combat summary
type EndCombatResponse struct {
	State   *entities.WorldState  `json:"state"`
	Summary combat.Summary        `json:"summary"`
	Entry   *entities.LedgerEntry `json:"entry"`
}

// ChangeSceneRequest sets the scene. Omitted optional fields keep their value.
type ChangeSceneRequest struct {
	SessionID string         `json:"session_id"`
	Scene     string         `json:"scene"`
	Location  *string        `json:"location,omitempty"`
	TimeOfDay *string        `json:"time_of_day,omitempty"`
	Weather   *string        `json:"weather,omitempty"`
	NPCs      []entities.NPC `json:"npcs,omitempty"`
}

// UpdateQuestRequest changes a quest's status
type UpdateQuestRequest struct {
	SessionID string               `json:"session_id"`
	QuestID   string               `json:"quest_id"`
	Status    entities.QuestStatus `json:"status"`
}

// StateChangeResponse is returned by ChangeScene and UpdateQuest. Entry is
// omitted when nothing changed.
type StateChangeResponse struct {
	State *entities.WorldState  `json:"state"`
	Entry *entities.LedgerEntry `json:"entry,omitempty"`
}

// GetWorldStateRequest reads a session's state
type GetWorldStateRequest struct {
	SessionID string `json:"session_id"`
}

// GetWorldStateResponse carries the committed state
type GetWorldStateResponse struct {
	State *entities.WorldState `json:"state"`
}

// ListHistoryRequest pages the ledger newest-first
type ListHistoryRequest struct {
	SessionID string `json:"session_id"`
	Offset    int    `json:"offset,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// ListHistoryResponse is one page of the ledger
type ListHistoryResponse struct {
	Entries    []*entities.LedgerEntry `json:"entries"`
	Total      int64                   `json:"total"`
	NextOffset int                     `json:"next_offset"`
	HasMore    bool                    `json:"has_more"`
}
