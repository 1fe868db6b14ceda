package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/shopdesk-server/internal/core"
	"github.com/vovakirdan/shopdesk-server/internal/metrics"
	"github.com/vovakirdan/shopdesk-server/internal/service"
	"github.com/vovakirdan/shopdesk-server/internal/store"
	"github.com/vovakirdan/shopdesk-server/internal/utils"
)

// UnknownUser is the display name of a room whose key matches no user.
const UnknownUser = "Unknown User"

// Message sources, used as a metrics label.
const (
	SourceREST = "rest"
	SourceLive = "live"
)

// MessageView is the wire shape of a chat message, shared by REST responses and live events.
type MessageView struct {
	ID        string    `json:"_id"`
	Room      string    `json:"room"`
	From      string    `json:"from"`
	Text      string    `json:"text"`
	Image     string    `json:"image"`
	Delivered bool      `json:"delivered"`
	Seen      bool      `json:"seen"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewMessageView converts a stored message.
func NewMessageView(m *store.Message) MessageView {
	return MessageView{
		ID:        m.ID,
		Room:      m.Room,
		From:      m.From,
		Text:      m.Text,
		Image:     m.Image,
		Delivered: m.Delivered,
		Seen:      m.Seen,
		CreatedAt: m.CreatedAt,
	}
}

// RoomSummary is a conversation room resolved to its owner.
type RoomSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// SubmitInput is a new message. Text or Image must be set.
type SubmitInput struct {
	Room  string
	From  string
	Text  string
	Image string
	// ExcludeClient is the connection that already rendered the message locally.
	ExcludeClient string
	Source        string
}

// Service is the chat delivery engine: it persists messages and their
// delivered/seen flags first and fans the result out to the room second.
// Fan-out is best-effort; a stored message is never rolled back.
type Service struct {
	messages store.MessageStore
	users    store.UserStore
	fanout   core.Fanout
	log      *zerolog.Logger
}

// New creates a chat service.
func New(messages store.MessageStore, users store.UserStore, fanout core.Fanout, logger *zerolog.Logger) *Service {
	return &Service{
		messages: messages,
		users:    users,
		fanout:   fanout,
		log:      logger,
	}
}

// Validate reports the first missing field. hasImage stands in for an
// attachment that has not been stored yet.
func (in SubmitInput) Validate(hasImage bool) error {
	if strings.TrimSpace(in.Room) == "" {
		return service.Invalid("room", "room is required")
	}
	if strings.TrimSpace(in.From) == "" {
		return service.Invalid("from", "from is required")
	}
	if strings.TrimSpace(in.Text) == "" && in.Image == "" && !hasImage {
		return service.Invalid("text", "text or image is required")
	}
	return nil
}

// Submit validates, persists as delivered and emits receiveMessage to the room.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*store.Message, error) {
	if err := in.Validate(false); err != nil {
		return nil, err
	}
	in.Room = strings.TrimSpace(in.Room)
	in.From = strings.TrimSpace(in.From)

	msg := &store.Message{
		ID:        utils.NewID(),
		Room:      in.Room,
		From:      in.From,
		Text:      in.Text,
		Image:     in.Image,
		Delivered: true,
		Seen:      false,
	}
	if err := s.messages.SaveMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}

	source := in.Source
	if source == "" {
		source = SourceREST
	}
	metrics.MessagesSubmitted.WithLabelValues(source).Inc()

	s.fanout.Emit(msg.Room, core.EventReceiveMessage, NewMessageView(msg), in.ExcludeClient)
	s.log.Debug().Str("room", msg.Room).Str("message_id", msg.ID).Str("source", source).Msg("message submitted")
	return msg, nil
}

// MarkSeen flags every unseen message in room as seen and notifies the room.
// The event carries only the room key; clients flip their local flags for the whole room.
func (s *Service) MarkSeen(ctx context.Context, room string) (int64, error) {
	if room == "" {
		return 0, service.Invalid("room", "room is required")
	}
	n, err := s.messages.MarkSeen(ctx, room)
	if err != nil {
		return 0, fmt.Errorf("mark seen: %w", err)
	}
	s.fanout.Emit(room, core.EventMessagesSeen, room, "")
	return n, nil
}

// MarkDelivered flags every undelivered message in room as delivered.
func (s *Service) MarkDelivered(ctx context.Context, room string) (int64, error) {
	if room == "" {
		return 0, service.Invalid("room", "room is required")
	}
	n, err := s.messages.MarkDelivered(ctx, room)
	if err != nil {
		return 0, fmt.Errorf("mark delivered: %w", err)
	}
	return n, nil
}

// Relay forwards a transient event (typing indicators) to the room, skipping the sender.
func (s *Service) Relay(clientID, room, name string, payload json.RawMessage) error {
	if room == "" {
		return service.Invalid("room", "room is required")
	}
	s.fanout.Emit(room, name, payload, clientID)
	return nil
}

// History returns the room's messages oldest first.
func (s *Service) History(ctx context.Context, room string) ([]MessageView, error) {
	msgs, err := s.messages.ListMessages(ctx, room)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return lo.Map(msgs, func(m *store.Message, _ int) MessageView { return NewMessageView(m) }), nil
}

// Rooms lists every room with messages, resolved to the owning user where possible.
func (s *Service) Rooms(ctx context.Context) ([]RoomSummary, error) {
	rooms, err := s.messages.DistinctRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	users, err := s.users.GetUsersByIDs(ctx, rooms)
	if err != nil {
		// Names are cosmetic; keep the room list usable without them.
		s.log.Warn().Err(err).Msg("resolve room owners")
		users = nil
	}
	byID := lo.KeyBy(users, func(u *store.User) string { return u.ID })

	return lo.Map(rooms, func(room string, _ int) RoomSummary {
		u, ok := byID[room]
		if !ok {
			return RoomSummary{ID: room, Email: UnknownUser, Name: UnknownUser}
		}
		return RoomSummary{ID: u.ID, Email: u.Email, Name: lo.Ternary(u.Name != "", u.Name, u.Email)}
	}), nil
}

// ClearRoom deletes every message in room. The room itself has no record to drop.
func (s *Service) ClearRoom(ctx context.Context, room string) (int64, error) {
	if strings.TrimSpace(room) == "" {
		return 0, service.Invalid("room", "missing room id")
	}
	n, err := s.messages.DeleteRoomMessages(ctx, room)
	if err != nil {
		return 0, fmt.Errorf("clear room: %w", err)
	}
	s.log.Info().Str("room", room).Int64("count", n).Msg("room cleared")
	return n, nil
}
