package entities

import (
	"slices"
	"time"
)

// QuestStatus is the target status of a quest update
type QuestStatus string

// Quest statuses
const (
	QuestStatusActive    QuestStatus = "active"
	QuestStatusCompleted QuestStatus = "completed"
	QuestStatusRemoved   QuestStatus = "removed"
)

// QuestStatuses lists every valid quest status
var QuestStatuses = []string{
	string(QuestStatusActive),
	string(QuestStatusCompleted),
	string(QuestStatusRemoved),
}

// NPC is a non-player character present in the current scene
type NPC struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Disposition string `json:"disposition,omitempty"`
}

// WorldState is the authoritative per-session state. Version increases by
// one with every committed change.
type WorldState struct {
	SessionID         string      `json:"session_id"`
	Scene             string      `json:"scene"`
	Location          string      `json:"location,omitempty"`
	TimeOfDay         string      `json:"time_of_day,omitempty"`
	Weather           string      `json:"weather,omitempty"`
	Combat            CombatState `json:"combat"`
	ActiveQuestIDs    []string    `json:"active_quest_ids,omitempty"`
	CompletedQuestIDs []string    `json:"completed_quest_ids,omitempty"`
	NPCs              []NPC       `json:"npcs,omitempty"`
	Version           int64       `json:"version"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// NewWorldState returns the state of a session nothing has happened in yet
func NewWorldState(sessionID string) *WorldState {
	return &WorldState{
		SessionID: sessionID,
		Combat:    IdleCombat(),
	}
}

// Clone returns a deep copy safe to mutate
func (w *WorldState) Clone() *WorldState {
	if w == nil {
		return nil
	}
	out := *w
	out.Combat = w.Combat.Clone()
	out.ActiveQuestIDs = slices.Clone(w.ActiveQuestIDs)
	out.CompletedQuestIDs = slices.Clone(w.CompletedQuestIDs)
	out.NPCs = slices.Clone(w.NPCs)
	return &out
}

// SetQuestStatus moves questID into the list for status, removing it from
// the other. It reports whether anything changed.
func (w *WorldState) SetQuestStatus(questID string, status QuestStatus) bool {
	inActive := slices.Contains(w.ActiveQuestIDs, questID)
	inCompleted := slices.Contains(w.CompletedQuestIDs, questID)

	switch status {
	case QuestStatusActive:
		if inActive && !inCompleted {
			return false
		}
		w.CompletedQuestIDs = remove(w.CompletedQuestIDs, questID)
		if !inActive {
			w.ActiveQuestIDs = append(w.ActiveQuestIDs, questID)
		}
	case QuestStatusCompleted:
		if inCompleted && !inActive {
			return false
		}
		w.ActiveQuestIDs = remove(w.ActiveQuestIDs, questID)
		if !inCompleted {
			w.CompletedQuestIDs = append(w.CompletedQuestIDs, questID)
		}
	case QuestStatusRemoved:
		if !inActive && !inCompleted {
			return false
		}
		w.ActiveQuestIDs = remove(w.ActiveQuestIDs, questID)
		w.CompletedQuestIDs = remove(w.CompletedQuestIDs, questID)
	default:
		return false
	}
	return true
}

func remove(ids []string, id string) []string {
	return slices.DeleteFunc(ids, func(v string) bool { return v == id })
}
