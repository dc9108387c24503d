package broadcast_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KirkDiggler/rpg-tabletop/internal/broadcast"
	"github.com/KirkDiggler/rpg-tabletop/internal/errors"
	"github.com/KirkDiggler/rpg-tabletop/internal/pkg/clock"
	"github.com/KirkDiggler/rpg-tabletop/internal/testutils"
)

func TestRedisPublisherPublishesToSessionChannel(t *testing.T) {
	client, cleanup := testutils.CreateTestRedisClient(t)
	defer cleanup()

	ctx := context.Background()
	sub := client.Subscribe(ctx, broadcast.Channel("sess"))
	defer func() { _ = sub.Close() }()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	publisher, err := broadcast.NewRedisPublisher(&broadcast.RedisConfig{
		Client: client,
		Clock:  clock.NewFixed(time.Date(2026, 10, 19, 22, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	require.NoError(t, publisher.Broadcast(ctx, "sess", "turn_advanced", map[string]any{"round": 2}))

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, "session:sess:events", msg.Channel)
		var event broadcast.Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
		assert.Equal(t, "turn_advanced", event.Type)
		assert.JSONEq(t, `{"round":2}`, string(event.Payload))
	case <-time.After(2 * time.Second):
		t.Fatal("no message published")
	}
}

func TestRedisPublisherOutage(t *testing.T) {
	client, mr, cleanup := testutils.CreateTestRedisServer(t)
	defer cleanup()

	publisher, err := broadcast.NewRedisPublisher(&broadcast.RedisConfig{Client: client, Clock: clock.New()})
	require.NoError(t, err)

	mr.SetError("ERR simulated outage")
	err = publisher.Broadcast(context.Background(), "sess", "roll", nil)
	assert.True(t, errors.IsStorage(err))
}

func TestRelayDeliversToHub(t *testing.T) {
	client, mr, cleanup := testutils.CreateTestRedisServer(t)
	defer cleanup()

	hub := broadcast.NewHub(nil)
	defer hub.Close()
	mux := http.NewServeMux()
	mux.Handle("GET /sessions/{id}/events", hub)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	relayDone := make(chan error, 1)
	go func() { relayDone <- broadcast.Relay(ctx, client, hub) }()
	require.Eventually(t, func() bool { return mr.PubSubNumPat() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/sessions/sess/events", nil)
	if resp != nil {
		_ = resp.Body.Close()
	}
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	require.Eventually(t, func() bool { return hub.Subscribers("sess") == 1 }, 2*time.Second, 10*time.Millisecond)

	publisher, err := broadcast.NewRedisPublisher(&broadcast.RedisConfig{Client: client, Clock: clock.New()})
	require.NoError(t, err)
	require.NoError(t, publisher.Broadcast(ctx, "sess", "combat_ended", map[string]int{"rounds_fought": 3}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var event broadcast.Event
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, "combat_ended", event.Type)

	cancel()
	select {
	case err := <-relayDone:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestChannelNaming(t *testing.T) {
	assert.Equal(t, "session:abc:events", broadcast.Channel("abc"))
}
