package core

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/shopdesk-server/internal/metrics"
)

// Hub is the session registry and room router for live connections.
//
// One RWMutex guards the whole membership index. Fan-out holds the read lock
// and mutations hold the write lock, so a disconnect either happens before a
// fan-out (the client is not reached) or after it (the event was queued).
// Nothing here is persisted: a restart drops every membership.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]*Room

	log *zerolog.Logger
}

var _ Fanout = (*Hub)(nil)

// NewHub creates an empty hub.
func NewHub(logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]*Room),
		log:     logger,
	}
}

// RegisterClient adds a live connection. Registering the same id twice keeps the first client.
func (h *Hub) RegisterClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.clients[c.ID]; exists {
		return
	}
	h.clients[c.ID] = c
	metrics.ConnectionsActive.Inc()
	h.log.Debug().Str("client_id", c.ID).Msg("client registered")
}

// Join subscribes a client to a room. Joining twice is a no-op.
func (h *Hub) Join(clientID, room string) error {
	if room == "" {
		return ErrEmptyRoom
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[clientID]
	if !ok {
		return ErrUnknownClient
	}
	r, ok := h.rooms[room]
	if !ok {
		r = NewRoom(room)
		h.rooms[room] = r
	}
	if r.AddClient(c) {
		c.rooms[room] = struct{}{}
		h.log.Debug().Str("client_id", clientID).Str("room", room).Msg("joined room")
	}
	return nil
}

// Leave unsubscribes a client from a room. Leaving a room never joined is a no-op.
func (h *Hub) Leave(clientID, room string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[clientID]
	if !ok {
		return ErrUnknownClient
	}
	h.leaveLocked(c, room)
	return nil
}

func (h *Hub) leaveLocked(c *Client, room string) {
	delete(c.rooms, room)
	r, ok := h.rooms[room]
	if !ok {
		return
	}
	r.RemoveClient(c.ID)
	if r.Empty() {
		delete(h.rooms, room)
	}
}

// Disconnect removes a client from every room and closes its event queue.
func (h *Hub) Disconnect(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[clientID]
	if !ok {
		return
	}
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
	delete(h.clients, clientID)
	close(c.Events)
	metrics.ConnectionsActive.Dec()
	h.log.Debug().Str("client_id", clientID).Msg("client disconnected")
}

// MembersOf returns a snapshot of the connection ids subscribed to room.
func (h *Hub) MembersOf(room string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	r, ok := h.rooms[room]
	if !ok {
		return []string{}
	}
	return r.Members()
}

// RoomsOf returns the rooms a connection has joined.
func (h *Hub) RoomsOf(clientID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.clients[clientID]
	if !ok {
		return nil
	}
	rooms := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// ClientCount returns the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Emit delivers an event to the room's members except exclude.
func (h *Hub) Emit(room, name string, payload any, exclude string) {
	ev := &Event{Name: name, Room: room, Payload: payload}

	h.mu.RLock()
	r, ok := h.rooms[room]
	var delivered, dropped int
	if ok {
		delivered, dropped = r.Broadcast(ev, exclude)
	}
	h.mu.RUnlock()

	h.record(name, delivered, dropped)
	if dropped > 0 {
		h.log.Debug().Str("room", room).Str("event", name).Int("dropped", dropped).Msg("slow consumers skipped")
	}
}

// Broadcast delivers an event to every live connection.
func (h *Hub) Broadcast(name string, payload any) {
	ev := &Event{Name: name, Payload: payload}

	var delivered, dropped int
	h.mu.RLock()
	for _, c := range h.clients {
		if c.offer(ev) {
			delivered++
		} else {
			dropped++
		}
	}
	h.mu.RUnlock()

	h.record(name, delivered, dropped)
	if dropped > 0 {
		h.log.Debug().Str("event", name).Int("dropped", dropped).Msg("slow consumers skipped")
	}
}

// Send delivers an event to a single connection, if it is still live.
func (h *Hub) Send(clientID, name string, payload any) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.clients[clientID]
	if !ok {
		return false
	}
	return c.offer(&Event{Name: name, Payload: payload})
}

func (h *Hub) record(name string, delivered, dropped int) {
	if delivered > 0 {
		metrics.EventsDelivered.WithLabelValues(name).Add(float64(delivered))
	}
	if dropped > 0 {
		metrics.EventsDropped.WithLabelValues(name).Add(float64(dropped))
	}
}
