package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/shopdesk-server/internal/media"
	"github.com/vovakirdan/shopdesk-server/internal/service/catalog"
	"github.com/vovakirdan/shopdesk-server/internal/store"
)

// ProductHandlers provides HTTP handlers for the catalog.
type ProductHandlers struct {
	catalog *catalog.Service
	media   *media.Storage
	log     *zerolog.Logger
}

// NewProductHandlers creates a new product handlers instance.
func NewProductHandlers(svc *catalog.Service, storage *media.Storage, logger *zerolog.Logger) *ProductHandlers {
	return &ProductHandlers{catalog: svc, media: storage, log: logger}
}

// Create adds a product from a multipart form with up to six "images".
// POST /api/products
func (h *ProductHandlers) Create(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		h.log.Debug().Err(err).Msg("invalid product form")
		badRequest(c, "multipart form expected")
		return
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(c.PostForm("price")), 64)
	if err != nil {
		badRequest(c, "price must be a number")
		return
	}
	stock := 0
	if raw := strings.TrimSpace(c.PostForm("stock")); raw != "" {
		if stock, err = strconv.Atoi(raw); err != nil {
			badRequest(c, "stock must be an integer")
			return
		}
	}

	files := form.File["images"]
	if len(files) > catalog.MaxImages {
		badRequest(c, fmt.Sprintf("at most %d images are allowed", catalog.MaxImages))
		return
	}
	images, err := h.media.SaveAll(files)
	if err != nil {
		respondError(c, h.log, err, "failed to store product images")
		return
	}

	p, err := h.catalog.Create(c.Request.Context(), catalog.CreateInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Price:       price,
		Stock:       stock,
		Images:      images,
	})
	if err != nil {
		if rmErr := h.media.RemoveAll(images); rmErr != nil {
			h.log.Warn().Err(rmErr).Msg("failed to remove orphaned product images")
		}
		respondError(c, h.log, err, "failed to create product")
		return
	}
	c.JSON(http.StatusCreated, catalog.NewView(p))
}

// List returns every product, newest first.
// GET /api/products
func (h *ProductHandlers) List(c *gin.Context) {
	list, err := h.catalog.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "failed to list products")
		return
	}
	c.JSON(http.StatusOK, lo.Map(list, func(p *store.Product, _ int) catalog.View { return catalog.NewView(p) }))
}

// Get returns one product.
// GET /api/products/:id
func (h *ProductHandlers) Get(c *gin.Context) {
	p, err := h.catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err, "failed to load product")
		return
	}
	c.JSON(http.StatusOK, catalog.NewView(p))
}

// Delete removes a product.
// DELETE /api/products/:id
func (h *ProductHandlers) Delete(c *gin.Context) {
	if err := h.catalog.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.log, err, "failed to delete product")
		return
	}
	c.JSON(http.StatusOK, OKResponse{OK: true, Message: "product deleted"})
}
