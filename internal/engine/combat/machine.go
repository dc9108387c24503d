// Package combat drives initiative order, rounds and the turn pointer of a
// session's combat. A Machine works on its own copy of the state; callers
// persist State() after a successful transition.
package combat

import (
	"fmt"
	"slices"

	"github.com/KirkDiggler/rpg-tabletop/internal/entities"
	"github.com/KirkDiggler/rpg-tabletop/internal/errors"
)

// MetaCombatStatus is the meta key carrying the status an invalid transition was attempted from
const MetaCombatStatus = "combat_status"

// Summary describes a finished combat
type Summary struct {
	RoundsFought int      `json:"rounds_fought"`
	Participants []string `json:"participants"`
}

// Machine is the combat state machine. It is not safe for concurrent use;
// the session registry serializes access.
type Machine struct {
	state entities.CombatState
}

// NewMachine returns a machine over a copy of state
func NewMachine(state entities.CombatState) *Machine {
	if state.Status == "" {
		state.Status = entities.CombatStatusIdle
	}
	return &Machine{state: state.Clone()}
}

// State returns a copy of the current state
func (m *Machine) State() entities.CombatState {
	return m.state.Clone()
}

// Current returns the entry whose turn it is, or nil when idle
func (m *Machine) Current() *entities.InitiativeEntry {
	return m.state.Current()
}

// Start begins combat with entries sorted by initiative score, highest
// first. Ties keep their submitted order.
func (m *Machine) Start(entries []entities.InitiativeEntry) error {
	if m.state.IsActive() {
		return invalidState(m.state.Status, "combat is already active")
	}
	if err := validateEntries(entries); err != nil {
		return err
	}

	order := slices.Clone(entries)
	slices.SortStableFunc(order, func(a, b entities.InitiativeEntry) int {
		return b.InitiativeScore - a.InitiativeScore
	})
	for i := range order {
		order[i].HasActedThisRound = false
	}

	m.state = entities.CombatState{
		Status:    entities.CombatStatusActive,
		Round:     1,
		TurnIndex: 0,
		Entries:   order,
	}
	return nil
}

// Advance marks the current participant as having acted and moves the turn
// pointer. Wrapping past the last entry starts a new round and clears every
// acted flag. It returns the new current entry.
func (m *Machine) Advance() (*entities.InitiativeEntry, error) {
	if !m.state.IsActive() {
		return nil, invalidState(m.state.Status, "no active combat to advance")
	}

	m.state.Entries[m.state.TurnIndex].HasActedThisRound = true
	m.state.TurnIndex++
	if m.state.TurnIndex >= len(m.state.Entries) {
		m.state.TurnIndex = 0
		m.state.Round++
		for i := range m.state.Entries {
			m.state.Entries[i].HasActedThisRound = false
		}
	}

	return m.state.Current(), nil
}

// End returns combat to idle and reports what was fought
func (m *Machine) End() (Summary, error) {
	if !m.state.IsActive() {
		return Summary{}, invalidState(m.state.Status, "no active combat to end")
	}

	summary := Summary{
		RoundsFought: m.state.Round,
		Participants: make([]string, 0, len(m.state.Entries)),
	}
	for _, e := range m.state.Entries {
		summary.Participants = append(summary.Participants, e.CharacterID)
	}

	m.state = entities.IdleCombat()
	return summary, nil
}

func validateEntries(entries []entities.InitiativeEntry) error {
	if len(entries) == 0 {
		return errors.InvalidArgument("combat requires at least one participant")
	}

	vb := errors.NewValidationBuilder()
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		if e.CharacterID == "" {
			vb.RequiredField(fieldName(i, "character_id"))
			continue
		}
		if seen[e.CharacterID] {
			vb.Fieldf(fieldName(i, "character_id"), "duplicate participant %q", e.CharacterID)
		}
		seen[e.CharacterID] = true
	}
	return vb.Build()
}

func fieldName(i int, field string) string {
	return fmt.Sprintf("entries[%d].%s", i, field)
}

func invalidState(status entities.CombatStatus, message string) error {
	return errors.InvalidState(message).WithMeta(MetaCombatStatus, string(status))
}
