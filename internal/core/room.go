package core

// Room groups clients subscribed to the same key.
// Rooms have no identity beyond their members; the hub drops empty ones.
type Room struct {
	Name    string
	clients map[string]*Client
}

// NewRoom constructs a room with no clients.
func NewRoom(name string) *Room {
	return &Room{
		Name:    name,
		clients: make(map[string]*Client),
	}
}

// AddClient inserts a client into the room. Returns true if newly added.
func (r *Room) AddClient(c *Client) bool {
	if _, exists := r.clients[c.ID]; exists {
		return false
	}
	r.clients[c.ID] = c
	return true
}

// RemoveClient deletes a client from the room. Returns true if removed.
func (r *Room) RemoveClient(id string) bool {
	if _, exists := r.clients[id]; !exists {
		return false
	}
	delete(r.clients, id)
	return true
}

// Broadcast offers an event to every client except exclude and reports how
// many clients received it and how many dropped it.
func (r *Room) Broadcast(event *Event, exclude string) (delivered, dropped int) {
	for id, client := range r.clients {
		if id == exclude {
			continue
		}
		if client.offer(event) {
			delivered++
		} else {
			// Drop if slow consumer.
			dropped++
		}
	}
	return delivered, dropped
}

// Members returns the ids of clients in the room.
func (r *Room) Members() []string {
	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	return ids
}

// Empty returns true if no clients are in the room.
func (r *Room) Empty() bool {
	return len(r.clients) == 0
}
