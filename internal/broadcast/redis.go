package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KirkDiggler/rpg-tabletop/internal/errors"
	"github.com/KirkDiggler/rpg-tabletop/internal/pkg/clock"
	redisclient "github.com/KirkDiggler/rpg-tabletop/internal/redis"
)

const (
	channelPrefix  = "session:"
	channelSuffix  = ":events"
	channelPattern = channelPrefix + "*" + channelSuffix
)

// Channel is the pub/sub channel carrying a session's events
func Channel(sessionID string) string {
	return fmt.Sprintf("%s%s%s", channelPrefix, sessionID, channelSuffix)
}

// RedisConfig holds the configuration for the Redis publisher
type RedisConfig struct {
	Client redisclient.Client
	Clock  clock.Clock
}

// Validate ensures all required dependencies are provided
func (c *RedisConfig) Validate() error {
	vb := errors.NewValidationBuilder()
	if c.Client == nil {
		vb.RequiredField("Client")
	}
	if c.Clock == nil {
		vb.RequiredField("Clock")
	}
	return vb.Build()
}

// RedisPublisher publishes events to Redis so every server instance can
// relay them to its own websocket subscribers.
type RedisPublisher struct {
	client redisclient.Client
	clock  clock.Clock
}

// NewRedisPublisher creates a publisher
func NewRedisPublisher(cfg *RedisConfig) (*RedisPublisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &RedisPublisher{client: cfg.Client, clock: cfg.Clock}, nil
}

// Broadcast implements Broadcaster
func (p *RedisPublisher) Broadcast(ctx context.Context, sessionID, eventType string, payload any) error {
	event, err := NewEvent(sessionID, eventType, payload, p.clock.Now())
	if err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal event")
	}

	if err := p.client.Publish(ctx, Channel(sessionID), data).Err(); err != nil {
		return errors.Storage(err, "failed to publish event")
	}
	return nil
}

// Relay forwards every published session event into the hub until ctx is
// done.
func Relay(ctx context.Context, client redisclient.Client, hub *Hub) error {
	pubsub := client.PSubscribe(ctx, channelPattern)
	defer func() { _ = pubsub.Close() }()

	// Wait for the subscription to be confirmed before reporting ready
	if _, err := pubsub.Receive(ctx); err != nil {
		return errors.Storage(err, "failed to subscribe to session events")
	}
	slog.Info("Relaying session events from redis", "pattern", channelPattern)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			sessionID, valid := sessionFromChannel(msg.Channel)
			if !valid {
				continue
			}
			hub.Deliver(sessionID, []byte(msg.Payload))
		}
	}
}

func sessionFromChannel(channel string) (string, bool) {
	if !strings.HasPrefix(channel, channelPrefix) || !strings.HasSuffix(channel, channelSuffix) {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(channel, channelPrefix), channelSuffix)
	return id, id != ""
}
