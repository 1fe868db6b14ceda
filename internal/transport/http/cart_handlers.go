package http

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/shopdesk-server/internal/service/carts"
)

// CartHandlers provides HTTP handlers for carts.
type CartHandlers struct {
	carts *carts.Service
	log   *zerolog.Logger
}

// NewCartHandlers creates a new cart handlers instance.
func NewCartHandlers(svc *carts.Service, logger *zerolog.Logger) *CartHandlers {
	return &CartHandlers{carts: svc, log: logger}
}

// SaveCartRequest is the body of POST /api/cart/:userId.
type SaveCartRequest struct {
	Items json.RawMessage `json:"items"`
}

// List returns every cart.
// GET /api/cart, GET /api/admin/carts
func (h *CartHandlers) List(c *gin.Context) {
	list, err := h.carts.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "failed to list carts")
		return
	}
	c.JSON(http.StatusOK, list)
}

// Get returns the user's cart, or an empty one.
// GET /api/cart/:userId
func (h *CartHandlers) Get(c *gin.Context) {
	v, err := h.carts.Get(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, h.log, err, "failed to load cart")
		return
	}
	c.JSON(http.StatusOK, v)
}

// Save replaces the user's cart items.
// POST /api/cart/:userId
func (h *CartHandlers) Save(c *gin.Context) {
	var req SaveCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid cart request")
		badRequest(c, "invalid request body")
		return
	}
	items, err := carts.ParseItems(req.Items)
	if err != nil {
		respondError(c, h.log, err, "invalid cart items")
		return
	}

	userID := c.Param("userId")
	if _, err := h.carts.Upsert(c.Request.Context(), userID, items); err != nil {
		respondError(c, h.log, err, "failed to save cart")
		return
	}
	v, err := h.carts.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err, "failed to load cart")
		return
	}
	c.JSON(http.StatusOK, v)
}

// Delete removes the user's cart.
// DELETE /api/admin/cart/:userId
func (h *CartHandlers) Delete(c *gin.Context) {
	if err := h.carts.Delete(c.Request.Context(), c.Param("userId")); err != nil {
		respondError(c, h.log, err, "failed to delete cart")
		return
	}
	c.JSON(http.StatusOK, OKResponse{OK: true, Message: "cart deleted"})
}
