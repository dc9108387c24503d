// Package broadcast pushes committed session events to connected clients.
// Delivery is best effort: a failed broadcast never undoes a commit.
package broadcast

//go:generate mockgen -destination=mock/mock_broadcaster.go -package=broadcastmock github.com/KirkDiggler/rpg-tabletop/internal/broadcast Broadcaster

import (
	"context"
	"encoding/json"
	"time"

	"github.com/KirkDiggler/rpg-tabletop/internal/errors"
)

// Event types sent to subscribers. Ledger kinds are used as-is for the
// events that record an action.
const (
	EventWorldState = "world_state"
)

// Event is the envelope written to subscribers
type Event struct {
	SessionID string          `json:"session_id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	SentAt    time.Time       `json:"sent_at"`
}

// Broadcaster delivers an event to everyone watching a session
type Broadcaster interface {
	Broadcast(ctx context.Context, sessionID, eventType string, payload any) error
}

// NewEvent marshals payload into an envelope
func NewEvent(sessionID, eventType string, payload any, at time.Time) (*Event, error) {
	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("session_id", sessionID, vb)
	errors.ValidateRequired("type", eventType, vb)
	if err := vb.Build(); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal %s payload", eventType)
	}

	return &Event{
		SessionID: sessionID,
		Type:      eventType,
		Payload:   raw,
		SentAt:    at.UTC(),
	}, nil
}

// Noop drops every event
type Noop struct{}

// Broadcast implements Broadcaster
func (Noop) Broadcast(context.Context, string, string, any) error {
	return nil
}

// Multi fans an event out to several broadcasters and reports the first error
type Multi []Broadcaster

// Broadcast implements Broadcaster
func (m Multi) Broadcast(ctx context.Context, sessionID, eventType string, payload any) error {
	var first error
	for _, b := range m {
		if err := b.Broadcast(ctx, sessionID, eventType, payload); err != nil && first == nil {
			first = err
		}
	}
	return first
}
