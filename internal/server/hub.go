package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/parimut/pool-engine/internal/ledger"
	"github.com/parimut/pool-engine/internal/metrics"
	"github.com/parimut/pool-engine/internal/payout"
)

// WSMessage is a JSON message sent to WebSocket clients for each committed
// ledger operation.
type WSMessage struct {
	Type        string `json:"type"`
	MarketID    uint64 `json:"market_id"`
	Participant string `json:"participant,omitempty"`
	Side        string `json:"side,omitempty"`
	Amount      uint64 `json:"amount,omitempty"`
	YesPool     uint64 `json:"yes_pool"`
	NoPool      uint64 `json:"no_pool"`
	ImpliedYes  string `json:"implied_yes,omitempty"`
	ImpliedNo   string `json:"implied_no,omitempty"`
	Outcome     string `json:"outcome,omitempty"`
}

// Hub manages WebSocket connections and broadcasts ledger events to all
// connected clients. It implements ledger.Notifier.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
}

// NewHub creates a new WebSocket hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

// Run starts the hub's main event loop. Must be called in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			h.mu.Unlock()
			metrics.WebSocketClients.Inc()
			slog.Info("ws client connected", "total", len(h.clients))

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
				metrics.WebSocketClients.Dec()
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					conn.Close()
					delete(h.clients, conn)
					metrics.WebSocketClients.Dec()
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish implements ledger.Notifier. Non-blocking: messages are dropped
// when the buffer is full so money paths never stall on slow consumers.
func (h *Hub) Publish(e ledger.Event) {
	msg := WSMessage{
		Type:        e.Type,
		MarketID:    e.MarketID,
		Participant: e.Participant,
		Side:        string(e.Side),
		Amount:      e.Amount,
		YesPool:     e.YesPool,
		NoPool:      e.NoPool,
		Outcome:     string(e.Outcome),
	}
	if e.Type == ledger.EventBetPlaced || e.Type == ledger.EventMarketResolved {
		impliedYes, impliedNo := payout.ImpliedOdds(e.YesPool, e.NoPool)
		msg.ImpliedYes = impliedYes.String()
		msg.ImpliedNo = impliedNo.String()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
		// Drop if buffer full to avoid blocking ledger operations.
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true // Allow all origins during development.
	},
}

// HandleWS handles WebSocket upgrade requests at GET /api/v1/ws.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "err", err)
		return
	}

	h.register <- conn

	// Read pump: keep connection alive and detect disconnects.
	go func() {
		defer func() { h.unregister <- conn }()
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()

	// Ping ticker to keep connection alive through proxies.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			h.mu.RLock()
			_, ok := h.clients[conn]
			h.mu.RUnlock()
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}()
}
