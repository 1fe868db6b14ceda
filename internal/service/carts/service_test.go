package carts

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/shopdesk-server/internal/core"
	"github.com/vovakirdan/shopdesk-server/internal/service"
	"github.com/vovakirdan/shopdesk-server/internal/store"
	"github.com/vovakirdan/shopdesk-server/internal/store/sqlite"
)

type emitted struct {
	room    string
	name    string
	payload any
}

type fakeFanout struct {
	events []emitted
}

func (f *fakeFanout) Emit(room, name string, payload any, _ string) {
	f.events = append(f.events, emitted{room: room, name: name, payload: payload})
}

func (f *fakeFanout) Broadcast(name string, payload any) {
	f.Emit(core.BroadcastTarget, name, payload, "")
}

func newTestService(t *testing.T) (*Service, *sqlite.SQLiteStore, *fakeFanout) {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	logger := zerolog.New(nil)
	fan := &fakeFanout{}
	return New(st, fan, &logger), st, fan
}

func TestParseItems(t *testing.T) {
	valid := []string{`[]`, `[{"productId":"p1","qty":2}]`, ` [{"productId":"p1","qty":1},{"productId":"p2","qty":3}]`}
	for _, in := range valid {
		if _, err := ParseItems(json.RawMessage(in)); err != nil {
			t.Fatalf("expected %s to parse, got %v", in, err)
		}
	}

	invalid := []string{
		``,
		`null`,
		`{"productId":"p1","qty":1}`,
		`"p1"`,
		`[{"productId":"","qty":1}]`,
		`[{"productId":"p1","qty":0}]`,
		`[{"productId":"p1","qty":"two"}]`,
	}
	for _, in := range invalid {
		if _, err := ParseItems(json.RawMessage(in)); !service.IsValidation(err) {
			t.Fatalf("expected validation error for %q, got %v", in, err)
		}
	}
}

func TestUpsert_ReplacesAndEmitsCount(t *testing.T) {
	svc, _, fan := newTestService(t)
	ctx := context.Background()

	first := []store.CartItem{{ProductID: "p1", Qty: 2}, {ProductID: "p2", Qty: 3}}
	if _, err := svc.Upsert(ctx, "u1", first); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	second := []store.CartItem{{ProductID: "p3", Qty: 1}}
	cart, err := svc.Upsert(ctx, "u1", second)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].ProductID != "p3" {
		t.Fatalf("expected items to be replaced, got %+v", cart.Items)
	}

	if len(fan.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(fan.events))
	}
	for i, want := range []int{5, 1} {
		ev := fan.events[i]
		count, ok := ev.payload.(core.CartCount)
		if ev.room != "u1" || ev.name != core.EventCartCount || !ok || count.Count != want || count.UserID != "u1" {
			t.Fatalf("event %d: unexpected %+v", i, ev)
		}
	}
}

func TestUpsert_EmptyCartCountsZero(t *testing.T) {
	svc, _, fan := newTestService(t)

	if _, err := svc.Upsert(context.Background(), "u1", nil); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if got := fan.events[0].payload.(core.CartCount).Count; got != 0 {
		t.Fatalf("expected count 0, got %d", got)
	}
	if _, err := svc.Upsert(context.Background(), " ", nil); !service.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGet_ReturnsSyntheticEmptyCart(t *testing.T) {
	svc, _, _ := newTestService(t)

	v, err := svc.Get(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v.UserID != "nobody" || v.Items == nil || len(v.Items) != 0 || v.ID != "" {
		t.Fatalf("unexpected synthetic cart: %+v", v)
	}

	b, _ := json.Marshal(v)
	if string(b) != `{"userId":"nobody","items":[]}` {
		t.Fatalf("unexpected encoding: %s", b)
	}
}

func TestGetAndList_PopulateProductsAndOwners(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	if err := st.CreateUser(ctx, &store.User{ID: "u1", Name: "Ann", Email: "ann@example.com", PasswordHash: "x"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := st.CreateProduct(ctx, &store.Product{ID: "p1", Title: "Mug", Price: 9.5, Images: []string{"/uploads/m.png"}}); err != nil {
		t.Fatalf("create product: %v", err)
	}
	items := []store.CartItem{{ProductID: "p1", Qty: 2}, {ProductID: "gone", Qty: 1}}
	if _, err := svc.Upsert(ctx, "u1", items); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	v, err := svc.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(v.Items) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(v.Items))
	}
	if p := v.Items[0].Product; p == nil || p.Title != "Mug" || p.Price != 9.5 {
		t.Fatalf("expected resolved product, got %+v", v.Items[0])
	}
	if v.Items[1].Product != nil {
		t.Fatalf("expected missing product to stay nil")
	}
	if v.User == nil || v.User.Email != "ann@example.com" {
		t.Fatalf("expected resolved owner, got %+v", v.User)
	}

	list, err := svc.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("expected 1 cart, got %d, %v", len(list), err)
	}
}

func TestDelete(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.Delete(ctx, "u1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_, _ = svc.Upsert(ctx, "u1", []store.CartItem{{ProductID: "p1", Qty: 1}})
	if err := svc.Delete(ctx, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	v, _ := svc.Get(ctx, "u1")
	if len(v.Items) != 0 || v.ID != "" {
		t.Fatalf("expected cart to be gone, got %+v", v)
	}
}

func TestRelay(t *testing.T) {
	svc, _, fan := newTestService(t)

	if err := svc.Relay("u1", json.RawMessage(`{"userId":"u1","count":4}`)); err != nil {
		t.Fatalf("relay: %v", err)
	}
	if len(fan.events) != 1 || fan.events[0].room != "u1" || fan.events[0].name != core.EventCartCount {
		t.Fatalf("unexpected events: %+v", fan.events)
	}
	if err := svc.Relay("", nil); !service.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
