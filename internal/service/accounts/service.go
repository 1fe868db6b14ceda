package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/shopdesk-server/internal/core"
	"github.com/vovakirdan/shopdesk-server/internal/service"
	"github.com/vovakirdan/shopdesk-server/internal/store"
)

// Store is the persistence the accounts service needs.
type Store interface {
	store.UserStore
	store.ProfileStore
	store.CartStore
	store.MessageStore
	store.NotificationStore
}

// UserView is the public shape of a user. The password hash never leaves the service.
type UserView struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewUserView converts a stored user.
func NewUserView(u *store.User) UserView {
	return UserView{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}

// ProfileView is the wire shape of a profile.
type ProfileView struct {
	ID            string    `json:"_id"`
	UserID        string    `json:"userId"`
	FullName      string    `json:"fullName"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	OptionalEmail string    `json:"optionalEmail"`
	Address       string    `json:"address"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// NewProfileView converts a stored profile.
func NewProfileView(p *store.Profile) ProfileView {
	return ProfileView{
		ID:            p.ID,
		UserID:        p.UserID,
		FullName:      p.FullName,
		Email:         p.Email,
		Phone:         p.Phone,
		OptionalEmail: p.OptionalEmail,
		Address:       p.Address,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// ProfileInput holds the editable profile fields.
type ProfileInput struct {
	FullName      string `json:"fullName"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	OptionalEmail string `json:"optionalEmail"`
	Address       string `json:"address"`
}

// Service manages users, their profiles and account removal.
type Service struct {
	store  Store
	fanout core.Fanout
	log    *zerolog.Logger
}

// New creates an accounts service.
func New(st Store, fanout core.Fanout, logger *zerolog.Logger) *Service {
	return &Service{store: st, fanout: fanout, log: logger}
}

// List returns every user, newest first.
func (s *Service) List(ctx context.Context) ([]*store.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// GetProfile returns the user's profile, creating one from the user record on first access.
func (s *Service) GetProfile(ctx context.Context, userID string) (*store.Profile, error) {
	p, err := s.store.GetProfileByUser(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	p = &store.Profile{UserID: user.ID, FullName: user.Name, Email: user.Email}
	if err := s.store.CreateProfile(ctx, p); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// Lost a race with a concurrent first access.
			return s.store.GetProfileByUser(ctx, userID)
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return p, nil
}

// PutProfile creates or overwrites the user's profile.
func (s *Service) PutProfile(ctx context.Context, userID string, in ProfileInput) (*store.Profile, error) {
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.FullName) == "" {
		return nil, service.Invalid("fullName", "fullName is required")
	}
	p, err := s.store.UpsertProfile(ctx, &store.Profile{
		UserID:        userID,
		FullName:      strings.TrimSpace(in.FullName),
		Email:         strings.TrimSpace(in.Email),
		Phone:         strings.TrimSpace(in.Phone),
		OptionalEmail: strings.TrimSpace(in.OptionalEmail),
		Address:       strings.TrimSpace(in.Address),
	})
	if err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return p, nil
}

// PurgeOrphanCarts deletes carts whose owner no longer exists and returns the affected user ids.
func (s *Service) PurgeOrphanCarts(ctx context.Context) ([]string, error) {
	carts, err := s.store.ListCarts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list carts: %w", err)
	}
	owners := lo.Uniq(lo.Map(carts, func(c *store.Cart, _ int) string { return c.UserID }))
	users, err := s.store.GetUsersByIDs(ctx, owners)
	if err != nil {
		return nil, fmt.Errorf("resolve cart owners: %w", err)
	}
	existing := lo.Map(users, func(u *store.User, _ int) string { return u.ID })
	orphans := lo.Without(owners, existing...)

	purged := make([]string, 0, len(orphans))
	for _, userID := range orphans {
		if _, err := s.store.DeleteCartByUser(ctx, userID); err != nil {
			return purged, fmt.Errorf("delete cart of %s: %w", userID, err)
		}
		purged = append(purged, userID)
		s.log.Info().Str("user_id", userID).Msg("orphan cart removed")
	}
	return purged, nil
}
