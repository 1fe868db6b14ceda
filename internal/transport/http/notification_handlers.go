package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/shopdesk-server/internal/service/notifications"
	"github.com/vovakirdan/shopdesk-server/internal/store"
)

// NotificationHandlers provides HTTP handlers for notifications.
type NotificationHandlers struct {
	notifications *notifications.Service
	log           *zerolog.Logger
}

// NewNotificationHandlers creates a new notification handlers instance.
func NewNotificationHandlers(svc *notifications.Service, logger *zerolog.Logger) *NotificationHandlers {
	return &NotificationHandlers{notifications: svc, log: logger}
}

// NotificationRequest is the body of notification create and update.
type NotificationRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Target  string `json:"target"`
}

// MarkReadRequest is the body of POST /api/notifications/read/:id.
type MarkReadRequest struct {
	UserID string `json:"userId"`
}

func toViews(list []*store.Notification) []notifications.View {
	return lo.Map(list, func(n *store.Notification, _ int) notifications.View { return notifications.NewView(n) })
}

// Create stores a notification and pushes it to its target.
// POST /api/notifications, POST /api/admin/notify
func (h *NotificationHandlers) Create(c *gin.Context) {
	var req NotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid notification request")
		badRequest(c, "invalid request body")
		return
	}

	n, err := h.notifications.Create(c.Request.Context(), req.Title, req.Message, req.Target)
	if err != nil {
		respondError(c, h.log, err, "failed to create notification")
		return
	}
	c.JSON(http.StatusCreated, notifications.NewView(n))
}

// ListForUser returns broadcast notifications plus the user's own.
// GET /api/notifications/:userId
func (h *NotificationHandlers) ListForUser(c *gin.Context) {
	list, err := h.notifications.ListForUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, h.log, err, "failed to list notifications")
		return
	}
	c.JSON(http.StatusOK, toViews(list))
}

// MarkRead records that a user read a notification.
// POST /api/notifications/read/:id
func (h *NotificationHandlers) MarkRead(c *gin.Context) {
	var req MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid mark read request")
		badRequest(c, "userId is required")
		return
	}

	n, err := h.notifications.MarkRead(c.Request.Context(), c.Param("id"), req.UserID)
	if err != nil {
		respondError(c, h.log, err, "failed to mark notification read")
		return
	}
	c.JSON(http.StatusOK, notifications.NewView(n))
}

// List returns every notification.
// GET /api/admin/notify
func (h *NotificationHandlers) List(c *gin.Context) {
	list, err := h.notifications.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "failed to list notifications")
		return
	}
	c.JSON(http.StatusOK, toViews(list))
}

// Update rewrites a notification.
// PUT /api/admin/notify/:id
func (h *NotificationHandlers) Update(c *gin.Context) {
	var req NotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid notification request")
		badRequest(c, "invalid request body")
		return
	}

	n, err := h.notifications.Update(c.Request.Context(), c.Param("id"), req.Title, req.Message, req.Target)
	if err != nil {
		respondError(c, h.log, err, "failed to update notification")
		return
	}
	c.JSON(http.StatusOK, notifications.NewView(n))
}

// Delete removes a notification.
// DELETE /api/admin/notify/:id
func (h *NotificationHandlers) Delete(c *gin.Context) {
	if err := h.notifications.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.log, err, "failed to delete notification")
		return
	}
	c.JSON(http.StatusOK, OKResponse{OK: true, Message: "notification deleted"})
}
