package notifications

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

// View is the wire shape of a notification.
type View struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Target    string    `json:"target"`
	ReadBy    []string  `json:"readBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewView converts a stored notification.
func NewView(n *store.Notification) View {
	return View{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Body,
		Target:    n.Target,
		ReadBy:    lo.Ternary(n.ReadBy != nil, n.ReadBy, []string{}),
		CreatedAt: n.CreatedAt,
	}
}

// IsReadBy reports whether userID has read n.
func IsReadBy(n *store.Notification, userID string) bool {
	return lo.Contains(n.ReadBy, userID)
}

// Service persists notifications and pushes them to their target.
type Service struct {
	store  store.NotificationStore
	fanout core.Fanout
	log    *zerolog.Logger
}

// New creates a notification service.
func New(st store.NotificationStore, fanout core.Fanout, logger *zerolog.Logger) *Service {
	return &Service{store: st, fanout: fanout, log: logger}
}

func validate(title, body string) error {
	if strings.TrimSpace(title) == "" {
		return service.Invalid("title", "title is required")
	}
	if strings.TrimSpace(body) == "" {
		return service.Invalid("message", "message is required")
	}
	return nil
}

// Create stores a notification and emits it to its target.
// Target "all" reaches every connection; an empty target is stored but reaches nobody.
func (s *Service) Create(ctx context.Context, title, body, target string) (*store.Notification, error) {
	if err := validate(title, body); err != nil {
		return nil, err
	}
	n := &store.Notification{
		ID:     utils.NewID(),
		Title:  strings.TrimSpace(title),
		Body:   body,
		Target: strings.TrimSpace(target),
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}

	scope := lo.Ternary(n.Target == core.BroadcastTarget, "all", "user")
	metrics.NotificationsCreated.WithLabelValues(scope).Inc()
	core.EmitTarget(s.fanout, n.Target, core.EventNotification, NewView(n))
	s.log.Debug().Str("notification_id", n.ID).Str("target", n.Target).Msg("notification created")
	return n, nil
}

// MarkRead adds userID to the read set. Repeated calls leave the set unchanged.
func (s *Service) MarkRead(ctx context.Context, id, userID string) (*store.Notification, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, service.Invalid("userId", "userId is required")
	}
	if _, err := s.store.GetNotification(ctx, id); err != nil {
		return nil, err
	}
	if err := s.store.AddReader(ctx, id, userID); err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}
	return s.store.GetNotification(ctx, id)
}

// ListForUser returns broadcast notifications and those addressed to userID, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]*store.Notification, error) {
	list, err := s.store.ListNotifications(ctx, []string{core.BroadcastTarget, userID})
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return list, nil
}

// List returns every notification, newest first.
func (s *Service) List(ctx context.Context) ([]*store.Notification, error) {
	list, err := s.store.ListNotifications(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return list, nil
}

// Update rewrites a notification's content. The read set is kept.
func (s *Service) Update(ctx context.Context, id, title, body, target string) (*store.Notification, error) {
	if err := validate(title, body); err != nil {
		return nil, err
	}
	n, err := s.store.GetNotification(ctx, id)
	if err != nil {
		return nil, err
	}
	n.Title = strings.TrimSpace(title)
	n.Body = body
	n.Target = strings.TrimSpace(target)
	if err := s.store.UpdateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("update notification: %w", err)
	}
	return n, nil
}

// Delete removes a notification; store.ErrNotFound when absent.
func (s *Service) Delete(ctx context.Context, id string) error {
	ok, err := s.store.DeleteNotification(ctx, id)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if !ok {
		return fmt.Errorf("notification: %w", store.ErrNotFound)
	}
	return nil
}

// Relay pushes a client-supplied notification payload to target without storing it.
func (s *Service) Relay(target string, payload json.RawMessage) error {
	if strings.TrimSpace(target) == "" {
		return service.Invalid("target", "target is required")
	}
	core.EmitTarget(s.fanout, target, core.EventNotification, payload)
	return nil
}
