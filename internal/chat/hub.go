package chat

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Hub fans chat messages out to connected websocket clients, grouped
// by supplier. A slow or dead connection is dropped rather than
// blocking the broadcast.
type Hub struct {
	mu      sync.Mutex
	clients map[string]map[*websocket.Conn]struct{}
	log     zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*websocket.Conn]struct{}),
		log:     log,
	}
}

// Register adds a connection to the supplier's broadcast group.
func (h *Hub) Register(supplierID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[supplierID] == nil {
		h.clients[supplierID] = make(map[*websocket.Conn]struct{})
	}
	h.clients[supplierID][conn] = struct{}{}
}

// Unregister removes and closes a connection.
func (h *Hub) Unregister(supplierID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.clients[supplierID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.clients, supplierID)
		}
	}
	_ = conn.Close()
}

// Broadcast sends the message to every connection of the supplier.
func (h *Hub) Broadcast(supplierID string, msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients[supplierID] {
		if err := conn.WriteJSON(msg); err != nil {
			h.log.Debug().Err(err).Msg("drop chat client")
			delete(h.clients[supplierID], conn)
			_ = conn.Close()
		}
	}
}

// ClientCount reports the number of live connections for a supplier.
func (h *Hub) ClientCount(supplierID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[supplierID])
}
