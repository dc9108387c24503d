package entities

import "github.com/KirkDiggler/rpg-toolkit/core"

// CombatStatus is the lifecycle state of a session's combat
type CombatStatus string

// Combat statuses
const (
	CombatStatusIdle   CombatStatus = "idle"
	CombatStatusActive CombatStatus = "active"
)

// Entity types reported through GetType
const (
	EntityTypeCharacter = "character"
	EntityTypeNPC       = "npc"
)

// InitiativeEntry is one participant in the turn order
type InitiativeEntry struct {
	CharacterID         string `json:"character_id"`
	DisplayName         string `json:"display_name"`
	ControllingPlayerID string `json:"controlling_player_id,omitempty"`
	InitiativeScore     int    `json:"initiative_score"`
	HasActedThisRound   bool   `json:"has_acted_this_round"`
	IsNPC               bool   `json:"is_npc"`
}

var _ core.Entity = (*InitiativeEntry)(nil)

// GetID implements core.Entity
func (e *InitiativeEntry) GetID() string {
	return e.CharacterID
}

// GetType implements core.Entity
func (e *InitiativeEntry) GetType() string {
	if e.IsNPC {
		return EntityTypeNPC
	}
	return EntityTypeCharacter
}

// CombatState is the initiative order, round counter and turn pointer.
// While active, 0 <= TurnIndex < len(Entries) and Round >= 1.
type CombatState struct {
	Status    CombatStatus      `json:"status"`
	Round     int               `json:"round"`
	TurnIndex int               `json:"turn_index"`
	Entries   []InitiativeEntry `json:"entries,omitempty"`
}

// IdleCombat returns the zero combat state
func IdleCombat() CombatState {
	return CombatState{Status: CombatStatusIdle}
}

// IsActive reports whether combat is running
func (c CombatState) IsActive() bool {
	return c.Status == CombatStatusActive
}

// Current returns the entry whose turn it is, or nil when idle
func (c CombatState) Current() *InitiativeEntry {
	if !c.IsActive() || c.TurnIndex < 0 || c.TurnIndex >= len(c.Entries) {
		return nil
	}
	entry := c.Entries[c.TurnIndex]
	return &entry
}

// Clone returns a deep copy
func (c CombatState) Clone() CombatState {
	out := c
	if c.Entries != nil {
		out.Entries = make([]InitiativeEntry, len(c.Entries))
		copy(out.Entries, c.Entries)
	}
	return out
}
