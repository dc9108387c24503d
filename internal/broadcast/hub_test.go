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
	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/rpg-tabletop/internal/broadcast"
	"github.com/KirkDiggler/rpg-tabletop/internal/pkg/clock"
)

type HubTestSuite struct {
	suite.Suite
	hub    *broadcast.Hub
	server *httptest.Server
	now    time.Time
}

func TestHubSuite(t *testing.T) {
	suite.Run(t, new(HubTestSuite))
}

func (s *HubTestSuite) SetupTest() {
	s.now = time.Date(2026, 10, 19, 22, 0, 0, 0, time.UTC)
	s.hub = broadcast.NewHub(&broadcast.HubConfig{Clock: clock.NewFixed(s.now), Backlog: 4})

	mux := http.NewServeMux()
	mux.Handle("GET /sessions/{id}/events", s.hub)
	s.server = httptest.NewServer(mux)
}

func (s *HubTestSuite) TearDownTest() {
	s.hub.Close()
	s.server.Close()
}

func (s *HubTestSuite) dial(sessionID string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/sessions/" + sessionID + "/events"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if resp != nil {
		_ = resp.Body.Close()
	}
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = conn.Close() })
	return conn
}

func (s *HubTestSuite) waitForSubscribers(sessionID string, n int) {
	s.Require().Eventually(func() bool {
		return s.hub.Subscribers(sessionID) == n
	}, 2*time.Second, 10*time.Millisecond)
}

func (s *HubTestSuite) read(conn *websocket.Conn) broadcast.Event {
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	s.Require().NoError(err)

	var event broadcast.Event
	s.Require().NoError(json.Unmarshal(data, &event))
	return event
}

func (s *HubTestSuite) TestBroadcastReachesSessionSubscribers() {
	first := s.dial("sess")
	second := s.dial("sess")
	s.waitForSubscribers("sess", 2)

	payload := map[string]any{"scene": "Harbor"}
	s.Require().NoError(s.hub.Broadcast(context.Background(), "sess", "scene_changed", payload))

	for _, conn := range []*websocket.Conn{first, second} {
		event := s.read(conn)
		s.Equal("sess", event.SessionID)
		s.Equal("scene_changed", event.Type)
		s.JSONEq(`{"scene":"Harbor"}`, string(event.Payload))
		s.True(s.now.Equal(event.SentAt))
	}
}

func (s *HubTestSuite) TestOtherSessionsDoNotReceive() {
	other := s.dial("other")
	mine := s.dial("sess")
	s.waitForSubscribers("other", 1)
	s.waitForSubscribers("sess", 1)

	s.Require().NoError(s.hub.Broadcast(context.Background(), "sess", "roll", map[string]int{"total": 12}))
	s.Equal("roll", s.read(mine).Type)

	_ = other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := other.ReadMessage()
	s.Error(err)
}

func (s *HubTestSuite) TestDisconnectUnsubscribes() {
	conn := s.dial("sess")
	s.waitForSubscribers("sess", 1)

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()
	s.waitForSubscribers("sess", 0)
}

func (s *HubTestSuite) TestSlowSubscriberIsDropped() {
	s.dial("sess")
	s.waitForSubscribers("sess", 1)

	// The client never reads; once its socket buffers and the backlog fill,
	// the hub gives up on it.
	big := strings.Repeat("x", 64*1024)
	s.Require().Eventually(func() bool {
		_ = s.hub.Broadcast(context.Background(), "sess", "roll", big)
		return s.hub.Subscribers("sess") == 0
	}, 5*time.Second, time.Millisecond)
}

func (s *HubTestSuite) TestBroadcastValidatesEnvelope() {
	err := s.hub.Broadcast(context.Background(), "", "roll", nil)
	s.Error(err)
}

func (s *HubTestSuite) TestMultiReportsFirstError() {
	multi := broadcast.Multi{broadcast.Noop{}, s.hub}
	s.Error(multi.Broadcast(context.Background(), "sess", "", nil))
	s.NoError(multi.Broadcast(context.Background(), "sess", "roll", nil))
}
