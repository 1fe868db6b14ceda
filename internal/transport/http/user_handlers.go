package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/shopdesk-server/internal/service/accounts"
	"github.com/vovakirdan/shopdesk-server/internal/store"
)

// UserHandlers provides HTTP handlers for users and their profiles.
type UserHandlers struct {
	accounts *accounts.Service
	log      *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(accountService *accounts.Service, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		accounts: accountService,
		log:      logger,
	}
}

// ListUsers returns every user.
// GET /api/users
func (h *UserHandlers) ListUsers(c *gin.Context) {
	users, err := h.accounts.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "failed to list users")
		return
	}
	c.JSON(http.StatusOK, lo.Map(users, func(u *store.User, _ int) accounts.UserView { return accounts.NewUserView(u) }))
}

// DeleteUser removes a user with everything they own.
// DELETE /api/users/:userId (admin)
func (h *UserHandlers) DeleteUser(c *gin.Context) {
	report, err := h.accounts.DeleteUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.log.Error().Err(err).Msg("failed to delete user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete user", "steps": report.Steps})
		return
	}
	if !report.UserFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found", "steps": report.Steps})
		return
	}
	c.JSON(http.StatusOK, RemoveUserResponse{OK: true, Message: "user deleted", Steps: report.Steps})
}

// GetProfile returns the user's profile, creating it on first access.
// GET /api/profile/:userId
func (h *UserHandlers) GetProfile(c *gin.Context) {
	p, err := h.accounts.GetProfile(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, h.log, err, "failed to load profile")
		return
	}
	c.JSON(http.StatusOK, accounts.NewProfileView(p))
}

// PutProfile creates or overwrites the user's profile.
// PUT /api/profile/:userId
func (h *UserHandlers) PutProfile(c *gin.Context) {
	var req accounts.ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid profile request")
		badRequest(c, "invalid request body")
		return
	}

	p, err := h.accounts.PutProfile(c.Request.Context(), c.Param("userId"), req)
	if err != nil {
		respondError(c, h.log, err, "failed to save profile")
		return
	}
	c.JSON(http.StatusOK, accounts.NewProfileView(p))
}

// PurgeOrphanCarts removes carts whose owner no longer exists.
// POST /api/admin/maintenance/orphan-carts
func (h *UserHandlers) PurgeOrphanCarts(c *gin.Context) {
	purged, err := h.accounts.PurgeOrphanCarts(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "failed to purge orphan carts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "purged": purged})
}
