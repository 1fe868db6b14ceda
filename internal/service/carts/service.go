package carts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/shopdesk-server/internal/core"
	"github.com/vovakirdan/shopdesk-server/internal/metrics"
	"github.com/vovakirdan/shopdesk-server/internal/service"
	"github.com/vovakirdan/shopdesk-server/internal/store"
)

// Store is the persistence the cart synchronizer needs.
type Store interface {
	store.CartStore
	GetUsersByIDs(ctx context.Context, ids []string) ([]*store.User, error)
	GetProductsByIDs(ctx context.Context, ids []string) ([]*store.Product, error)
}

// ProductSummary is the product data shown next to a cart line.
type ProductSummary struct {
	ID     string   `json:"_id"`
	Title  string   `json:"title"`
	Price  float64  `json:"price"`
	Images []string `json:"images"`
}

// Line is a cart item with its product resolved. Product is nil when the product no longer exists.
type Line struct {
	ProductID string          `json:"productId"`
	Qty       int             `json:"qty"`
	Product   *ProductSummary `json:"product"`
}

// Owner is the user a cart belongs to.
type Owner struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// View is the wire shape of a cart. An absent cart renders as {userId, items: []}.
type View struct {
	ID        string     `json:"_id,omitempty"`
	UserID    string     `json:"userId"`
	User      *Owner     `json:"user,omitempty"`
	Items     []Line     `json:"items"`
	Status    string     `json:"status,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

type itemInput struct {
	ProductID string `json:"productId"`
	Qty       int    `json:"qty"`
}

// ParseItems decodes a client-supplied item list. Anything but an array of
// {productId, qty} with a product id and a positive quantity is rejected.
func ParseItems(raw json.RawMessage) ([]store.CartItem, error) {
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "[") {
		return nil, service.Invalid("items", "items must be an array")
	}
	var in []itemInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, service.Invalid("items", "items must be an array of {productId, qty}")
	}
	items := make([]store.CartItem, 0, len(in))
	for _, it := range in {
		if strings.TrimSpace(it.ProductID) == "" {
			return nil, service.Invalid("items", "productId is required")
		}
		if it.Qty < 1 {
			return nil, service.Invalid("items", "qty must be positive")
		}
		items = append(items, store.CartItem{ProductID: strings.TrimSpace(it.ProductID), Qty: it.Qty})
	}
	return items, nil
}

// Count is the total quantity across items.
func Count(items []store.CartItem) int {
	return lo.SumBy(items, func(it store.CartItem) int { return it.Qty })
}

// Service keeps carts in sync between the store and the owner's live sessions.
type Service struct {
	store  Store
	fanout core.Fanout
	log    *zerolog.Logger
}

// New creates a cart service.
func New(st Store, fanout core.Fanout, logger *zerolog.Logger) *Service {
	return &Service{store: st, fanout: fanout, log: logger}
}

// Upsert creates the user's cart or replaces its items, then pushes the new
// item count to the user's room. The push happens whether or not anyone listens.
func (s *Service) Upsert(ctx context.Context, userID string, items []store.CartItem) (*store.Cart, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, service.Invalid("userId", "userId is required")
	}
	if items == nil {
		items = []store.CartItem{}
	}
	cart, err := s.store.SaveCart(ctx, userID, items)
	if err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}

	metrics.CartUpdates.Inc()
	s.fanout.Emit(userID, core.EventCartCount, core.CartCount{UserID: userID, Count: Count(cart.Items)}, "")
	s.log.Debug().Str("user_id", userID).Int("lines", len(cart.Items)).Msg("cart saved")
	return cart, nil
}

// Get returns the user's cart with products resolved.
func (s *Service) Get(ctx context.Context, userID string) (View, error) {
	cart, err := s.store.GetCartByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return View{UserID: userID, Items: []Line{}}, nil
	}
	if err != nil {
		return View{}, fmt.Errorf("get cart: %w", err)
	}
	views, err := s.populate(ctx, []*store.Cart{cart})
	if err != nil {
		return View{}, err
	}
	return views[0], nil
}

// List returns every cart with owners and products resolved.
func (s *Service) List(ctx context.Context) ([]View, error) {
	carts, err := s.store.ListCarts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list carts: %w", err)
	}
	return s.populate(ctx, carts)
}

// Delete removes the user's cart; store.ErrNotFound when there is none.
func (s *Service) Delete(ctx context.Context, userID string) error {
	ok, err := s.store.DeleteCartByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	if !ok {
		return fmt.Errorf("cart: %w", store.ErrNotFound)
	}
	return nil
}

// Relay forwards a client-reported cart change to the owner's room as a cartCount event.
func (s *Service) Relay(userID string, payload json.RawMessage) error {
	if strings.TrimSpace(userID) == "" {
		return service.Invalid("userId", "userId is required")
	}
	s.fanout.Emit(userID, core.EventCartCount, payload, "")
	return nil
}

func (s *Service) populate(ctx context.Context, carts []*store.Cart) ([]View, error) {
	userIDs := lo.Map(carts, func(c *store.Cart, _ int) string { return c.UserID })
	productIDs := lo.Uniq(lo.FlatMap(carts, func(c *store.Cart, _ int) []string {
		return lo.Map(c.Items, func(it store.CartItem, _ int) string { return it.ProductID })
	}))

	users, err := s.store.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve cart owners: %w", err)
	}
	products, err := s.store.GetProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve cart products: %w", err)
	}
	userByID := lo.KeyBy(users, func(u *store.User) string { return u.ID })
	productByID := lo.KeyBy(products, func(p *store.Product) string { return p.ID })

	return lo.Map(carts, func(c *store.Cart, _ int) View {
		v := View{
			ID:        c.ID,
			UserID:    c.UserID,
			Status:    c.Status,
			CreatedAt: &c.CreatedAt,
			UpdatedAt: &c.UpdatedAt,
			Items: lo.Map(c.Items, func(it store.CartItem, _ int) Line {
				line := Line{ProductID: it.ProductID, Qty: it.Qty}
				if p, ok := productByID[it.ProductID]; ok {
					line.Product = &ProductSummary{ID: p.ID, Title: p.Title, Price: p.Price, Images: p.Images}
				}
				return line
			}),
		}
		if u, ok := userByID[c.UserID]; ok {
			v.User = &Owner{ID: u.ID, Name: u.Name, Email: u.Email}
		}
		return v
	}), nil
}
