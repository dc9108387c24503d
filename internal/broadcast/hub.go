package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/KirkDiggler/rpg-tabletop/internal/errors"
	"github.com/KirkDiggler/rpg-tabletop/internal/pkg/clock"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	defaultBacklog = 32
)

// HubConfig configures the websocket hub
type HubConfig struct {
	Clock clock.Clock
	// Backlog is how many undelivered events a subscriber may queue before
	// it is disconnected.
	Backlog int
	// AllowedOrigins restricts browser origins; empty allows any.
	AllowedOrigins []string
}

type subscriber struct {
	send chan []byte
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.send) })
}

// Hub keeps the websocket subscribers of every session and implements
// Broadcaster for them.
type Hub struct {
	clock    clock.Clock
	backlog  int
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	sessions map[string]map[*subscriber]struct{}
}

// NewHub creates a hub with no subscribers
func NewHub(cfg *HubConfig) *Hub {
	if cfg == nil {
		cfg = &HubConfig{}
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	backlog := cfg.Backlog
	if backlog <= 0 {
		backlog = defaultBacklog
	}

	h := &Hub{
		clock:    clk,
		backlog:  backlog,
		sessions: make(map[string]map[*subscriber]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 16 * 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return h
}

// Broadcast implements Broadcaster
func (h *Hub) Broadcast(_ context.Context, sessionID, eventType string, payload any) error {
	event, err := NewEvent(sessionID, eventType, payload, h.clock.Now())
	if err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal event")
	}

	h.Deliver(sessionID, data)
	return nil
}

// Deliver queues an already encoded event for every subscriber of the
// session. Subscribers whose queue is full are dropped.
func (h *Hub) Deliver(sessionID string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.sessions[sessionID] {
		select {
		case sub.send <- data:
		default:
			slog.Warn("Dropping slow event subscriber", "session_id", sessionID)
			h.removeLocked(sessionID, sub)
		}
	}
}

// Subscribers reports how many connections watch a session
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// Close disconnects every subscriber
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sessionID, subs := range h.sessions {
		for sub := range subs {
			h.removeLocked(sessionID, sub)
		}
	}
}

// ServeHTTP upgrades GET /sessions/{id}/events to a websocket that streams
// the session's events. Clients only read; anything they send is discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		http.Error(w, "session id is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("Websocket upgrade failed", "session_id", sessionID, "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	sub := h.subscribe(sessionID)
	defer h.unsubscribe(sessionID, sub)

	done := make(chan struct{})
	go h.writeLoop(conn, sub, done)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.unsubscribe(sessionID, sub)
	<-done
}

func (h *Hub) writeLoop(conn *websocket.Conn, sub *subscriber, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-sub.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				_ = conn.Close()
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}

func (h *Hub) subscribe(sessionID string) *subscriber {
	sub := &subscriber{send: make(chan []byte, h.backlog)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[sessionID] == nil {
		h.sessions[sessionID] = make(map[*subscriber]struct{})
	}
	h.sessions[sessionID][sub] = struct{}{}
	return sub
}

func (h *Hub) unsubscribe(sessionID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sessionID, sub)
}

func (h *Hub) removeLocked(sessionID string, sub *subscriber) {
	subs := h.sessions[sessionID]
	if _, ok := subs[sub]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.sessions, sessionID)
		}
	}
	sub.close()
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}
