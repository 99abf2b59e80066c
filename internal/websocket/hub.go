package websocket

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"tradejournal/internal/models"
	"tradejournal/internal/utils"
)

// Event types pushed to journal clients.
const (
	EventTradeCreated     = "trade_created"
	EventTradeUpdated     = "trade_updated"
	EventTradeDeleted     = "trade_deleted"
	EventStrategyArchived = "strategy_archived"
)

// Hub maintains the set of active clients and broadcasts journal events.
// Each connection is keyed by its session user, and an event is delivered
// only to that user's connections, so journal rows never reach another
// user's socket.
type Hub struct {
	mu          sync.Mutex
	connections map[*websocket.Conn]uint

	broadcast chan userEvent

	upgrader websocket.Upgrader
	log      *zap.Logger
}

// userEvent pairs a journal event with the user whose journal changed.
type userEvent struct {
	userID uint
	msg    models.Message
}

// NewHub creates a new hub for managing WebSocket connections
func NewHub(log *zap.Logger) *Hub {
	upgrader := websocket.Upgrader{
		// The API already sits behind CORS; the socket carries no commands.
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	return &Hub{
		connections: make(map[*websocket.Conn]uint),
		broadcast:   make(chan userEvent),
		upgrader:    upgrader,
		log:         log,
	}
}

// Run starts listening for events to broadcast
func (h *Hub) Run() {
	for ev := range h.broadcast {
		h.mu.Lock()
		for client, owner := range h.connections {
			if owner != ev.userID {
				continue
			}
			if err := client.WriteJSON(ev.msg); err != nil {
				h.log.Debug("dropping websocket client", zap.Error(err))
				client.Close()
				delete(h.connections, client)
			}
		}
		h.mu.Unlock()
	}
}

// HandleWebSocket upgrades an HTTP connection to WebSocket. The auth
// middleware runs first, so the request context carries the session user.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	user, err := utils.CurrentUser(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.connections[ws] = user.ID
	h.mu.Unlock()

	// Drain client frames to keep the connection alive; clients only listen.
	go func() {
		defer ws.Close()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				h.mu.Lock()
				delete(h.connections, ws)
				h.mu.Unlock()
				break
			}
		}
	}()
}

// ClientCount reports how many clients are currently connected.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.connections)
}

// Broadcast sends an event to the user's connected clients.
func (h *Hub) Broadcast(userID uint, msg models.Message) {
	h.broadcast <- userEvent{userID: userID, msg: msg}
}
