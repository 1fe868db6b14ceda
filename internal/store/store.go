package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique constraint would be violated.
	ErrConflict = errors.New("conflict")
	// ErrUnavailable is returned while the database connection is down.
	ErrUnavailable = errors.New("store unavailable")
)

// User represents a shop customer.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Admin represents a dashboard operator.
type Admin struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Product is a catalog entry.
type Product struct {
	ID          string
	Title       string
	Description string
	Price       float64
	Images      []string
	Stock       int
	CreatedAt   time.Time
}

// Message is a persisted support chat message.
// Only Delivered and Seen ever change after creation, and only from false to true.
type Message struct {
	ID        string
	Room      string
	From      string
	Text      string
	Image     string
	Delivered bool
	Seen      bool
	CreatedAt time.Time
}

// Notification is an announcement for every user (Target == "all") or one user.
type Notification struct {
	ID        string
	Title     string
	Body      string
	Target    string
	ReadBy    []string
	CreatedAt time.Time
}

// CartItem is one cart line as written by clients.
type CartItem struct {
	ProductID string
	Qty       int
}

// Cart is the single cart owned by a user.
type Cart struct {
	ID        string
	UserID    string
	Items     []CartItem
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartStatusOpen is the status of every cart created through the API.
const CartStatusOpen = "open"

// Profile holds contact details for a user.
type Profile struct {
	ID            string
	UserID        string
	FullName      string
	Email         string
	Phone         string
	OptionalEmail string
	Address       string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser inserts a user; returns ErrConflict when the email is taken.
	CreateUser(ctx context.Context, u *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	// GetUsersByIDs returns the users that exist among ids, in no particular order.
	GetUsersByIDs(ctx context.Context, ids []string) ([]*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	// DeleteUser reports whether a row was removed.
	DeleteUser(ctx context.Context, id string) (bool, error)
}

// AdminStore handles admin persistence.
type AdminStore interface {
	CreateAdmin(ctx context.Context, a *Admin) error
	GetAdminByUsername(ctx context.Context, username string) (*Admin, error)
}

// ProductStore handles catalog persistence.
type ProductStore interface {
	CreateProduct(ctx context.Context, p *Product) error
	GetProduct(ctx context.Context, id string) (*Product, error)
	// GetProductsByIDs returns the products that exist among ids.
	GetProductsByIDs(ctx context.Context, ids []string) ([]*Product, error)
	// ListProducts returns products newest first.
	ListProducts(ctx context.Context) ([]*Product, error)
	DeleteProduct(ctx context.Context, id string) (bool, error)
}

// MessageStore handles chat message persistence.
type MessageStore interface {
	SaveMessage(ctx context.Context, msg *Message) error
	// ListMessages returns a room's messages oldest first.
	ListMessages(ctx context.Context, room string) ([]*Message, error)
	// DistinctRooms returns every room key that has at least one message.
	DistinctRooms(ctx context.Context) ([]string, error)
	// MarkSeen flips seen (and delivered) to true for the room and returns the rows changed.
	MarkSeen(ctx context.Context, room string) (int64, error)
	// MarkDelivered flips delivered to true for the room and returns the rows changed.
	MarkDelivered(ctx context.Context, room string) (int64, error)
	DeleteRoomMessages(ctx context.Context, room string) (int64, error)
}

// NotificationStore handles notification persistence.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *Notification) error
	GetNotification(ctx context.Context, id string) (*Notification, error)
	// ListNotifications returns notifications for any of the targets, newest first.
	// An empty targets slice lists everything.
	ListNotifications(ctx context.Context, targets []string) ([]*Notification, error)
	UpdateNotification(ctx context.Context, n *Notification) error
	// AddReader records userID in the read set; repeated calls are no-ops.
	AddReader(ctx context.Context, id, userID string) error
	DeleteNotification(ctx context.Context, id string) (bool, error)
	DeleteNotificationsByTarget(ctx context.Context, target string) (int64, error)
}

// CartStore handles cart persistence.
type CartStore interface {
	GetCartByUser(ctx context.Context, userID string) (*Cart, error)
	// SaveCart creates the user's cart or replaces its items wholesale.
	SaveCart(ctx context.Context, userID string, items []CartItem) (*Cart, error)
	ListCarts(ctx context.Context) ([]*Cart, error)
	DeleteCartByUser(ctx context.Context, userID string) (bool, error)
}

// ProfileStore handles profile persistence.
type ProfileStore interface {
	GetProfileByUser(ctx context.Context, userID string) (*Profile, error)
	// CreateProfile returns ErrConflict when the user already has one.
	CreateProfile(ctx context.Context, p *Profile) error
	// UpsertProfile creates or updates the profile keyed by p.UserID.
	UpsertProfile(ctx context.Context, p *Profile) (*Profile, error)
	DeleteProfileByUser(ctx context.Context, userID string) (bool, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	AdminStore
	ProductStore
	MessageStore
	NotificationStore
	CartStore
	ProfileStore

	// Ping reports whether the database is reachable.
	Ping(ctx context.Context) error
	// Close closes the underlying database connection.
	Close() error
}
