package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/shopdesk-server/internal/service"
	"github.com/vovakirdan/shopdesk-server/internal/store"
	"github.com/vovakirdan/shopdesk-server/internal/utils"
)

// MaxImages is the number of images a product may carry.
const MaxImages = 6

// View is the wire shape of a product.
type View struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Images      []string  `json:"images"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewView converts a stored product.
func NewView(p *store.Product) View {
	return View{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price,
		Images:      lo.Ternary(p.Images != nil, p.Images, []string{}),
		Stock:       p.Stock,
		CreatedAt:   p.CreatedAt,
	}
}

// CreateInput is a new product. Images are already-stored URLs.
type CreateInput struct {
	Title       string
	Description string
	Price       float64
	Stock       int
	Images      []string
}

// Service manages the product catalog.
type Service struct {
	store store.ProductStore
	log   *zerolog.Logger
}

// New creates a catalog service.
func New(st store.ProductStore, logger *zerolog.Logger) *Service {
	return &Service{store: st, log: logger}
}

// Create adds a product.
func (s *Service) Create(ctx context.Context, in CreateInput) (*store.Product, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, service.Invalid("title", "title is required")
	}
	if in.Price <= 0 {
		return nil, service.Invalid("price", "price must be positive")
	}
	if in.Stock < 0 {
		return nil, service.Invalid("stock", "stock cannot be negative")
	}
	if len(in.Images) > MaxImages {
		return nil, service.Invalid("images", fmt.Sprintf("at most %d images are allowed", MaxImages))
	}

	p := &store.Product{
		ID:          utils.NewID(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Price:       in.Price,
		Images:      in.Images,
		Stock:       in.Stock,
	}
	if err := s.store.CreateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.log.Info().Str("product_id", p.ID).Str("title", p.Title).Msg("product created")
	return p, nil
}

// List returns every product, newest first.
func (s *Service) List(ctx context.Context) ([]*store.Product, error) {
	list, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return list, nil
}

// Get returns a product; store.ErrNotFound when absent.
func (s *Service) Get(ctx context.Context, id string) (*store.Product, error) {
	return s.store.GetProduct(ctx, id)
}

// Delete removes a product; store.ErrNotFound when absent.
func (s *Service) Delete(ctx context.Context, id string) error {
	ok, err := s.store.DeleteProduct(ctx, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if !ok {
		return fmt.Errorf("product: %w", store.ErrNotFound)
	}
	return nil
}
