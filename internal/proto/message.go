package proto

import (
	"encoding/json"
	"errors"
	"strings"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeJoin             = "join"
	InboundTypeLeave            = "leave"
	InboundTypeTyping           = "typing"
	InboundTypeStopTyping       = "stopTyping"
	InboundTypeSendMessage      = "sendMessage"
	InboundTypeMarkSeen         = "markSeen"
	InboundTypeSendNotification = "sendNotification"
	InboundTypeCartUpdated      = "cartUpdated"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// RoomData names a room. Clients may send either a bare JSON string or {"room": "..."}.
type RoomData struct {
	Room string `json:"room"`
}

// UnmarshalJSON accepts both encodings.
func (r *RoomData) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		r.Room = strings.TrimSpace(s)
		return nil
	}
	type plain RoomData
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return errors.New("room must be a string or an object with a room field")
	}
	r.Room = strings.TrimSpace(p.Room)
	return nil
}

// SendMessageData is a chat message submitted over the live channel.
type SendMessageData struct {
	ToRoom string `json:"toRoom"`
	From   string `json:"from"`
	Text   string `json:"text,omitempty"`
	Image  string `json:"image,omitempty"`
}

// TargetData extracts the routing key of a sendNotification payload.
type TargetData struct {
	Target string `json:"target"`
}

// UserData extracts the routing key of a cartUpdated payload.
type UserData struct {
	UserID string `json:"userId"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// ConnectedData tells a client its connection id, which it may pass back as senderSocketId.
type ConnectedData struct {
	ID string `json:"id"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
