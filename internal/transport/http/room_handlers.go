package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/shopdesk-server/internal/media"
	"github.com/vovakirdan/shopdesk-server/internal/service/accounts"
	"github.com/vovakirdan/shopdesk-server/internal/service/chat"
)

// RoomHandlers provides HTTP handlers for support chat rooms.
type RoomHandlers struct {
	chat     *chat.Service
	accounts *accounts.Service
	media    *media.Storage
	log      *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(chatService *chat.Service, accountService *accounts.Service, storage *media.Storage, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		chat:     chatService,
		accounts: accountService,
		media:    storage,
		log:      logger,
	}
}

// SendMessageRequest is the body of POST /api/messages, as multipart form or JSON.
type SendMessageRequest struct {
	Room           string `form:"room" json:"room"`
	From           string `form:"from" json:"from"`
	Text           string `form:"text" json:"text"`
	SenderSocketID string `form:"senderSocketId" json:"senderSocketId"`
}

// RemoveUserResponse reports a user removal.
type RemoveUserResponse struct {
	OK      bool                  `json:"ok"`
	Message string                `json:"message"`
	Steps   []accounts.StepResult `json:"steps"`
}

// SendMessage stores a message and pushes it to the room.
// POST /api/messages
func (h *RoomHandlers) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBind(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid send message request")
		badRequest(c, "invalid request body")
		return
	}

	in := chat.SubmitInput{
		Room:          req.Room,
		From:          req.From,
		Text:          req.Text,
		ExcludeClient: req.SenderSocketID,
		Source:        chat.SourceREST,
	}

	fh, err := c.FormFile("image")
	if err != nil && !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		h.log.Debug().Err(err).Msg("invalid image upload")
		badRequest(c, "invalid image upload")
		return
	}
	if err := in.Validate(fh != nil); err != nil {
		respondError(c, h.log, err, "failed to send message")
		return
	}
	if fh != nil {
		if in.Image, err = h.media.Save(fh); err != nil {
			respondError(c, h.log, err, "failed to store message image")
			return
		}
	}

	msg, err := h.chat.Submit(c.Request.Context(), in)
	if err != nil {
		h.discardUpload(in.Image)
		respondError(c, h.log, err, "failed to send message")
		return
	}

	c.JSON(http.StatusCreated, chat.NewMessageView(msg))
}

func (h *RoomHandlers) discardUpload(url string) {
	if url == "" {
		return
	}
	if err := h.media.Remove(url); err != nil {
		h.log.Warn().Err(err).Str("url", url).Msg("failed to remove orphaned upload")
	}
}

// ListRooms lists conversations with their owners.
// GET /api/messages/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	rooms, err := h.chat.Rooms(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "failed to list rooms")
		return
	}
	c.JSON(http.StatusOK, rooms)
}

// GetHistory returns a room's messages oldest first.
// GET /api/messages/:room
func (h *RoomHandlers) GetHistory(c *gin.Context) {
	history, err := h.chat.History(c.Request.Context(), c.Param("room"))
	if err != nil {
		respondError(c, h.log, err, "failed to load history")
		return
	}
	c.JSON(http.StatusOK, history)
}

// MarkSeen flags the room's messages as seen.
// PUT /api/messages/seen/:room
func (h *RoomHandlers) MarkSeen(c *gin.Context) {
	n, err := h.chat.MarkSeen(c.Request.Context(), c.Param("room"))
	if err != nil {
		respondError(c, h.log, err, "failed to mark messages seen")
		return
	}
	c.JSON(http.StatusOK, OKResponse{OK: true, Count: &n})
}

// MarkDelivered flags the room's messages as delivered.
// PUT /api/messages/delivered/:room
func (h *RoomHandlers) MarkDelivered(c *gin.Context) {
	n, err := h.chat.MarkDelivered(c.Request.Context(), c.Param("room"))
	if err != nil {
		respondError(c, h.log, err, "failed to mark messages delivered")
		return
	}
	c.JSON(http.StatusOK, OKResponse{OK: true, Count: &n})
}

// ClearRoom deletes every message in a room.
// DELETE /api/messages/clear/:room and /api/messages/delete-room/:room
func (h *RoomHandlers) ClearRoom(c *gin.Context) {
	n, err := h.chat.ClearRoom(c.Request.Context(), c.Param("room"))
	if err != nil {
		respondError(c, h.log, err, "failed to clear room")
		return
	}
	c.JSON(http.StatusOK, OKResponse{OK: true, Count: &n, Message: "conversation deleted"})
}

// RemoveUser removes a user and everything they own.
// DELETE /api/messages/remove-user/:userId
func (h *RoomHandlers) RemoveUser(c *gin.Context) {
	report, err := h.accounts.DeleteUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.log.Error().Err(err).Msg("failed to remove user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove user", "steps": report.Steps})
		return
	}

	msg := "user and related data removed"
	if !report.UserFound {
		msg = "user not found, related data removed"
	}
	c.JSON(http.StatusOK, RemoveUserResponse{OK: true, Message: msg, Steps: report.Steps})
}
