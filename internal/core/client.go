package core

// DefaultClientBuffer is the outbound queue length used when none is configured.
const DefaultClientBuffer = 32

// Client is one live connection as seen by the core layer.
// Events is closed by the hub when the client disconnects; the transport
// drains it from a single goroutine, which keeps per-connection order FIFO.
type Client struct {
	ID     string
	Events chan *Event

	// rooms is guarded by the owning hub's mutex.
	rooms map[string]struct{}
}

// NewClient constructs a client with an outbound queue of the given size.
func NewClient(id string, buffer int) *Client {
	if buffer <= 0 {
		buffer = DefaultClientBuffer
	}
	return &Client{
		ID:     id,
		Events: make(chan *Event, buffer),
		rooms:  make(map[string]struct{}),
	}
}

// offer queues ev without blocking. Returns false when the queue is full.
func (c *Client) offer(ev *Event) bool {
	select {
	case c.Events <- ev:
		return true
	default:
		return false
	}
}
