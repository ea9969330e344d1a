package http

import (
	"encoding/json"
	"log"
	"sync"
)

// MembershipResolver reports who belongs to a session. The registry provides
// this; the hub never keeps its own room bookkeeping.
type MembershipResolver interface {
	Members(code string) (host string, participants []string, ok bool)
}

// outboundMessage is the envelope for everything the server sends.
type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// client is one live websocket connection's outbound side.
type client struct {
	id   string
	send chan []byte
}

// Hub maps connection IDs to live connections and implements the engine's
// Broadcaster by resolving session membership through the registry.
type Hub struct {
	resolver MembershipResolver
	mu       sync.RWMutex
	clients  map[string]*client
}

func NewHub(resolver MembershipResolver) *Hub {
	return &Hub{
		resolver: resolver,
		clients:  make(map[string]*client),
	}
}

func (h *Hub) register(id string) *client {
	c := &client{id: id, send: make(chan []byte, 32)}
	h.mu.Lock()
	h.clients[id] = c
	h.mu.Unlock()
	return c
}

func (h *Hub) unregister(id string) {
	h.mu.Lock()
	if c, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(c.send)
	}
	h.mu.Unlock()
}

// ToConnection sends to a single connection. Unknown or closed connections
// drop the message; delivery is never awaited.
func (h *Hub) ToConnection(connectionID, event string, payload any) {
	data, ok := h.marshal(event, payload)
	if !ok {
		return
	}
	h.mu.RLock()
	h.sendLocked(connectionID, data)
	h.mu.RUnlock()
}

// ToHost sends to the session's host only.
func (h *Hub) ToHost(code, event string, payload any) {
	host, _, ok := h.resolver.Members(code)
	if !ok {
		return
	}
	h.ToConnection(host, event, payload)
}

// ToParticipants sends to every member of the session except the host.
func (h *Hub) ToParticipants(code, event string, payload any) {
	_, participants, ok := h.resolver.Members(code)
	if !ok {
		return
	}
	data, ok := h.marshal(event, payload)
	if !ok {
		return
	}
	h.mu.RLock()
	for _, id := range participants {
		h.sendLocked(id, data)
	}
	h.mu.RUnlock()
}

// ToSession sends to the host and every participant.
func (h *Hub) ToSession(code, event string, payload any) {
	host, participants, ok := h.resolver.Members(code)
	if !ok {
		return
	}
	data, ok := h.marshal(event, payload)
	if !ok {
		return
	}
	h.mu.RLock()
	h.sendLocked(host, data)
	for _, id := range participants {
		h.sendLocked(id, data)
	}
	h.mu.RUnlock()
}

func (h *Hub) marshal(event string, payload any) ([]byte, bool) {
	data, err := json.Marshal(outboundMessage{Type: event, Payload: payload})
	if err != nil {
		log.Printf("marshal %s: %v", event, err)
		return nil, false
	}
	return data, true
}

// sendLocked performs the non-blocking send. Callers must hold h.mu so the
// channel cannot be closed by unregister (which takes the write lock) while
// the send is in flight.
func (h *Hub) sendLocked(connectionID string, data []byte) {
	c, ok := h.clients[connectionID]
	if !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		// Drop rather than block a broadcast on one slow connection.
	}
}
