package entities

import (
	"encoding/json"
	"time"

	"github.com/KirkDiggler/rpg-tabletop/internal/engine/rollpolicy"
	"github.com/KirkDiggler/rpg-tabletop/internal/errors"
)

// LedgerKind identifies the payload variant of a ledger entry
type LedgerKind string

// Ledger kinds. The set is closed; switches over it are exhaustive.
const (
	LedgerKindRoll          LedgerKind = "roll"
	LedgerKindCombatStarted LedgerKind = "combat_started"
	LedgerKindTurnAdvanced  LedgerKind = "turn_advanced"
	LedgerKindCombatEnded   LedgerKind = "combat_ended"
	LedgerKindSceneChanged  LedgerKind = "scene_changed"
	LedgerKindQuestUpdated  LedgerKind = "quest_updated"
)

// LedgerPayload is implemented only by the payload types in this package
type LedgerPayload interface {
	Kind() LedgerKind
	validate(vb *errors.ValidationBuilder)
}

// RollPayload records a resolved roll
type RollPayload struct {
	CharacterID string                `json:"character_id,omitempty"`
	Reason      string                `json:"reason,omitempty"`
	Result      rollpolicy.RollResult `json:"result"`
}

// Kind implements LedgerPayload
func (RollPayload) Kind() LedgerKind { return LedgerKindRoll }

func (p RollPayload) validate(vb *errors.ValidationBuilder) {
	errors.ValidateRequired("result.notation", p.Result.Notation, vb)
}

// CombatStartedPayload records the sorted initiative order
type CombatStartedPayload struct {
	Entries []InitiativeEntry `json:"entries"`
}

// Kind implements LedgerPayload
func (CombatStartedPayload) Kind() LedgerKind { return LedgerKindCombatStarted }

func (p CombatStartedPayload) validate(vb *errors.ValidationBuilder) {
	if len(p.Entries) == 0 {
		vb.RequiredField("entries")
	}
}

// TurnAdvancedPayload names the participant whose turn it now is
type TurnAdvancedPayload struct {
	Round       int    `json:"round"`
	TurnIndex   int    `json:"turn_index"`
	CharacterID string `json:"character_id"`
	DisplayName string `json:"display_name"`
}

// Kind implements LedgerPayload
func (TurnAdvancedPayload) Kind() LedgerKind { return LedgerKindTurnAdvanced }

func (p TurnAdvancedPayload) validate(vb *errors.ValidationBuilder) {
	errors.ValidateRequired("character_id", p.CharacterID, vb)
	if p.Round < 1 {
		vb.Field("round", "must be at least 1")
	}
}

// CombatEndedPayload summarizes a finished combat
type CombatEndedPayload struct {
	RoundsFought int      `json:"rounds_fought"`
	Participants []string `json:"participants"`
}

// Kind implements LedgerPayload
func (CombatEndedPayload) Kind() LedgerKind { return LedgerKindCombatEnded }

func (p CombatEndedPayload) validate(vb *errors.ValidationBuilder) {
	if p.RoundsFought < 1 {
		vb.Field("rounds_fought", "must be at least 1")
	}
}

// SceneChangedPayload records the new scene and whatever else changed with it
type SceneChangedPayload struct {
	Scene     string `json:"scene"`
	Location  string `json:"location,omitempty"`
	TimeOfDay string `json:"time_of_day,omitempty"`
	Weather   string `json:"weather,omitempty"`
	NPCs      []NPC  `json:"npcs,omitempty"`
}

// Kind implements LedgerPayload
func (SceneChangedPayload) Kind() LedgerKind { return LedgerKindSceneChanged }

func (p SceneChangedPayload) validate(vb *errors.ValidationBuilder) {
	errors.ValidateRequired("scene", p.Scene, vb)
}

// QuestUpdatedPayload records a quest status change
type QuestUpdatedPayload struct {
	QuestID string      `json:"quest_id"`
	Status  QuestStatus `json:"status"`
}

// Kind implements LedgerPayload
func (QuestUpdatedPayload) Kind() LedgerKind { return LedgerKindQuestUpdated }

func (p QuestUpdatedPayload) validate(vb *errors.ValidationBuilder) {
	errors.ValidateRequired("quest_id", p.QuestID, vb)
	errors.ValidateEnum("status", string(p.Status), QuestStatuses, vb)
}

// LedgerEntry is one immutable record in a session's history. Sequence is
// assigned by the store on append and starts at 1.
type LedgerEntry struct {
	ID        string
	SessionID string
	Sequence  int64
	ActorID   string
	Timestamp time.Time
	Payload   LedgerPayload
}

// NewLedgerEntry validates and builds an entry
func NewLedgerEntry(id, sessionID, actorID string, at time.Time, payload LedgerPayload) (*LedgerEntry, error) {
	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("id", id, vb)
	errors.ValidateRequired("session_id", sessionID, vb)
	if at.IsZero() {
		vb.RequiredField("timestamp")
	}
	if payload == nil {
		vb.RequiredField("payload")
	} else {
		payload.validate(vb)
	}
	if err := vb.Build(); err != nil {
		return nil, err
	}

	return &LedgerEntry{
		ID:        id,
		SessionID: sessionID,
		ActorID:   actorID,
		Timestamp: at,
		Payload:   payload,
	}, nil
}

// Kind returns the payload's kind
func (e *LedgerEntry) Kind() LedgerKind {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.Kind()
}

type ledgerEntryJSON struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Sequence  int64           `json:"sequence"`
	Kind      LedgerKind      `json:"kind"`
	ActorID   string          `json:"actor_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// MarshalJSON writes the entry with its kind alongside the payload
func (e LedgerEntry) MarshalJSON() ([]byte, error) {
	if e.Payload == nil {
		return nil, errors.InvalidArgument("ledger entry has no payload")
	}
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(ledgerEntryJSON{
		ID:        e.ID,
		SessionID: e.SessionID,
		Sequence:  e.Sequence,
		Kind:      e.Payload.Kind(),
		ActorID:   e.ActorID,
		Timestamp: e.Timestamp,
		Payload:   payload,
	})
}

// UnmarshalJSON restores the payload variant named by kind
func (e *LedgerEntry) UnmarshalJSON(data []byte) error {
	var raw ledgerEntryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	payload, err := decodePayload(raw.Kind, raw.Payload)
	if err != nil {
		return err
	}

	*e = LedgerEntry{
		ID:        raw.ID,
		SessionID: raw.SessionID,
		Sequence:  raw.Sequence,
		ActorID:   raw.ActorID,
		Timestamp: raw.Timestamp,
		Payload:   payload,
	}
	return nil
}

func decodePayload(kind LedgerKind, data json.RawMessage) (LedgerPayload, error) {
	switch kind {
	case LedgerKindRoll:
		return decodeAs[RollPayload](data)
	case LedgerKindCombatStarted:
		return decodeAs[CombatStartedPayload](data)
	case LedgerKindTurnAdvanced:
		return decodeAs[TurnAdvancedPayload](data)
	case LedgerKindCombatEnded:
		return decodeAs[CombatEndedPayload](data)
	case LedgerKindSceneChanged:
		return decodeAs[SceneChangedPayload](data)
	case LedgerKindQuestUpdated:
		return decodeAs[QuestUpdatedPayload](data)
	default:
		return nil, errors.InvalidArgumentf("unknown ledger kind %q", kind)
	}
}

func decodeAs[T LedgerPayload](data json.RawMessage) (LedgerPayload, error) {
	var p T
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrapf(err, "decode %s payload", p.Kind())
	}
	return p, nil
}
