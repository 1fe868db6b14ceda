package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/shopdesk-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewWithSetup(":memory:", ApplySchema)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func saveMessage(t *testing.T, s *SQLiteStore, id, room string, at time.Time) {
	t.Helper()
	msg := &store.Message{ID: id, Room: room, From: "user", Text: id, Delivered: true, CreatedAt: at}
	if err := s.SaveMessage(context.Background(), msg); err != nil {
		t.Fatalf("save message %s: %v", id, err)
	}
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateUser(ctx, &store.User{ID: "u1", Email: "a@example.com", PasswordHash: "x"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	err := s.CreateUser(ctx, &store.User{ID: "u2", Email: "a@example.com", PasswordHash: "x"})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if _, err := s.GetUserByID(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListMessagesOrderedOldestFirst(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	saveMessage(t, s, "m2", "r1", base.Add(2*time.Second))
	saveMessage(t, s, "m1", "r1", base.Add(time.Second))
	saveMessage(t, s, "m3", "r1", base.Add(2*time.Second))
	saveMessage(t, s, "other", "r2", base)

	msgs, err := s.ListMessages(context.Background(), "r1")
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	want := []string{"m1", "m2", "m3"}
	if len(msgs) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(msgs))
	}
	for i, id := range want {
		if msgs[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, msgs[i].ID)
		}
	}
}

func TestMarkSeenScopedToRoomAndHandlesNull(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	saveMessage(t, s, "a", "r1", base)
	saveMessage(t, s, "b", "r2", base)

	// Rows written before the flag columns existed carry NULL.
	db, _ := s.conn()
	if _, err := db.Exec(`INSERT INTO messages (id, room, sender, delivered, seen, created_at) VALUES ('legacy', 'r1', 'u', NULL, NULL, ?)`, base); err != nil {
		t.Fatalf("insert legacy row: %v", err)
	}

	n, err := s.MarkSeen(ctx, "r1")
	if err != nil {
		t.Fatalf("mark seen: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows changed, got %d", n)
	}

	r1, _ := s.ListMessages(ctx, "r1")
	for _, m := range r1 {
		if !m.Seen || !m.Delivered {
			t.Errorf("message %s: expected seen and delivered, got %+v", m.ID, m)
		}
	}
	r2, _ := s.ListMessages(ctx, "r2")
	if r2[0].Seen {
		t.Fatalf("message in other room must stay unseen")
	}

	// Second pass finds nothing left to flip.
	if n, _ := s.MarkSeen(ctx, "r1"); n != 0 {
		t.Fatalf("expected idempotent mark seen, got %d", n)
	}
}

func TestDistinctRoomsAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	saveMessage(t, s, "a", "r1", base)
	saveMessage(t, s, "b", "r1", base)
	saveMessage(t, s, "c", "r2", base)

	rooms, err := s.DistinctRooms(ctx)
	if err != nil {
		t.Fatalf("distinct rooms: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %v", rooms)
	}

	n, err := s.DeleteRoomMessages(ctx, "r1")
	if err != nil || n != 2 {
		t.Fatalf("expected 2 deleted, got %d (%v)", n, err)
	}
	left, _ := s.ListMessages(ctx, "r1")
	if len(left) != 0 {
		t.Fatalf("expected empty room, got %d", len(left))
	}
}

func TestSaveCartReplacesItems(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.SaveCart(ctx, "u1", []store.CartItem{{ProductID: "p1", Qty: 2}, {ProductID: "p2", Qty: 3}})
	if err != nil {
		t.Fatalf("save cart: %v", err)
	}
	if len(first.Items) != 2 || first.Status != store.CartStatusOpen {
		t.Fatalf("unexpected cart: %+v", first)
	}

	second, err := s.SaveCart(ctx, "u1", []store.CartItem{{ProductID: "p3", Qty: 1}})
	if err != nil {
		t.Fatalf("replace cart: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same cart id, got %s and %s", first.ID, second.ID)
	}
	if len(second.Items) != 1 || second.Items[0].ProductID != "p3" {
		t.Fatalf("expected items replaced, got %+v", second.Items)
	}

	carts, err := s.ListCarts(ctx)
	if err != nil || len(carts) != 1 {
		t.Fatalf("expected one cart, got %d (%v)", len(carts), err)
	}

	deleted, err := s.DeleteCartByUser(ctx, "u1")
	if err != nil || !deleted {
		t.Fatalf("expected cart deleted, got %v (%v)", deleted, err)
	}
	if _, err := s.GetCartByUser(ctx, "u1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNotificationReadersAreASet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n := &store.Notification{ID: "n1", Title: "t", Body: "b", Target: "all"}
	if err := s.CreateNotification(ctx, n); err != nil {
		t.Fatalf("create notification: %v", err)
	}
	for range 2 {
		if err := s.AddReader(ctx, "n1", "u1"); err != nil {
			t.Fatalf("add reader: %v", err)
		}
	}
	if err := s.AddReader(ctx, "n1", "u2"); err != nil {
		t.Fatalf("add reader: %v", err)
	}

	got, err := s.GetNotification(ctx, "n1")
	if err != nil {
		t.Fatalf("get notification: %v", err)
	}
	if len(got.ReadBy) != 2 || got.ReadBy[0] != "u1" || got.ReadBy[1] != "u2" {
		t.Fatalf("unexpected readers: %v", got.ReadBy)
	}
}

func TestListNotificationsByTarget(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i, target := range []string{"all", "u1", "u2"} {
		n := &store.Notification{ID: target, Title: "t", Body: "b", Target: target, CreatedAt: base.Add(time.Duration(i) * time.Second)}
		if err := s.CreateNotification(ctx, n); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	list, err := s.ListNotifications(ctx, []string{"all", "u1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "u1" || list[1].ID != "all" {
		t.Fatalf("expected [u1 all] newest first, got %d items", len(list))
	}

	removed, err := s.DeleteNotificationsByTarget(ctx, "u2")
	if err != nil || removed != 1 {
		t.Fatalf("expected 1 removed, got %d (%v)", removed, err)
	}
	all, _ := s.ListNotifications(ctx, nil)
	if len(all) != 2 {
		t.Fatalf("expected 2 left, got %d", len(all))
	}
}

func TestUpsertProfile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateProfile(ctx, &store.Profile{UserID: "u1", FullName: "Ann"}); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	if err := s.CreateProfile(ctx, &store.Profile{UserID: "u1"}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	p, err := s.UpsertProfile(ctx, &store.Profile{UserID: "u1", FullName: "Ann B", Phone: "123"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if p.FullName != "Ann B" || p.Phone != "123" {
		t.Fatalf("unexpected profile: %+v", p)
	}
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	s, err := NewWithSetup(":memory:", ApplySchema)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	_ = s.Close()

	if _, err := s.ListMessages(context.Background(), "r1"); !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestClosedStoreStaysClosed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := zerolog.New(nil)
	s := Open(ctx, ":memory:", 5*time.Millisecond, &logger)
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("expected open store, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Several reconnect ticks pass while ctx is still live.
	time.Sleep(50 * time.Millisecond)

	if err := s.Ping(ctx); !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable after close, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestSwapRefusedAfterClose(t *testing.T) {
	s := newTestStore(t)
	_ = s.Close()

	db, err := s.open()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if s.swap(db) {
		t.Fatal("expected swap to be refused on a closed store")
	}
	if err := db.Ping(); err == nil {
		t.Fatal("expected the refused handle to be closed")
	}
}

func TestGetUsersByIDsBeyondOneBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ids := make([]string, 0, 2*maxInArgs+200)
	for i := 0; i < 2*maxInArgs+200; i++ {
		ids = append(ids, fmt.Sprintf("missing-%d", i))
	}
	for _, i := range []int{0, maxInArgs + 100, len(ids) - 1} {
		ids[i] = fmt.Sprintf("u%d", i)
		if err := s.CreateUser(ctx, &store.User{ID: ids[i], Email: ids[i] + "@example.com", PasswordHash: "x"}); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}
	// Duplicates must not produce duplicate rows.
	ids = append(ids, ids[0])

	users, err := s.GetUsersByIDs(ctx, ids)
	if err != nil {
		t.Fatalf("get users: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("expected 3 users, got %d", len(users))
	}

	empty, err := s.GetUsersByIDs(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty result, got %d (%v)", len(empty), err)
	}
}

func TestListCartsBeyondOneBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	total := maxInArgs + 1
	for i := 0; i < total; i++ {
		items := []store.CartItem{{ProductID: fmt.Sprintf("p%d", i), Qty: 1}, {ProductID: "shared", Qty: 2}}
		if _, err := s.SaveCart(ctx, fmt.Sprintf("u%d", i), items); err != nil {
			t.Fatalf("save cart %d: %v", i, err)
		}
	}

	carts, err := s.ListCarts(ctx)
	if err != nil {
		t.Fatalf("list carts: %v", err)
	}
	if len(carts) != total {
		t.Fatalf("expected %d carts, got %d", total, len(carts))
	}
	for _, c := range carts {
		if len(c.Items) != 2 || c.Items[1].ProductID != "shared" {
			t.Fatalf("cart %s has wrong items: %+v", c.UserID, c.Items)
		}
	}
}
