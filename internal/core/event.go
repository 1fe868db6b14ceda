package core

// BroadcastTarget is the reserved notification target meaning every live connection.
const BroadcastTarget = "all"

// Server-to-client event names.
const (
	EventConnected      = "connected"
	EventReceiveMessage = "receiveMessage"
	EventMessagesSeen   = "messagesSeen"
	EventTyping         = "typing"
	EventStopTyping     = "stopTyping"
	EventNotification   = "notification"
	EventCartCount      = "cartCount"
	EventUserDeleted    = "userDeleted"
)

// Event is sent to clients to describe what happened in the system.
// Payload is encoded by the transport as-is.
type Event struct {
	Name    string
	Room    string
	Payload any
}

// CartCount is the payload of EventCartCount.
type CartCount struct {
	UserID string `json:"userId"`
	Count  int    `json:"count"`
}

// UserDeleted is the payload of EventUserDeleted.
type UserDeleted struct {
	UserID string `json:"userId"`
}

// Fanout delivers events to live connections. Delivery is best-effort:
// implementations never block on slow consumers and never report failures.
type Fanout interface {
	// Emit delivers to every member of room except the connection with id exclude.
	// An empty or unknown exclude id excludes nobody.
	Emit(room, name string, payload any, exclude string)
	// Broadcast delivers to every live connection.
	Broadcast(name string, payload any)
}

// EmitTarget routes to Broadcast for BroadcastTarget and to Emit otherwise.
// An empty target reaches nobody.
func EmitTarget(f Fanout, target, name string, payload any) {
	switch target {
	case "":
		return
	case BroadcastTarget:
		f.Broadcast(name, payload)
	default:
		f.Emit(target, name, payload, "")
	}
}
