package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vovakirdan/shopdesk-server/internal/store"
	"github.com/vovakirdan/shopdesk-server/internal/utils"
)

// ==== CartStore implementation ====

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getCart(ctx context.Context, q queryer, userID string) (*store.Cart, error) {
	var c store.Cart
	err := q.QueryRowContext(ctx,
		`SELECT id, user_id, status, created_at, updated_at FROM carts WHERE user_id = ?`, userID,
	).Scan(&c.ID, &c.UserID, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("cart: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query cart: %w", err)
	}
	if err := loadItems(ctx, q, []*store.Cart{&c}); err != nil {
		return nil, err
	}
	return &c, nil
}

func loadItems(ctx context.Context, q queryer, carts []*store.Cart) error {
	if len(carts) == 0 {
		return nil
	}
	byID := make(map[string]*store.Cart, len(carts))
	ids := make([]string, 0, len(carts))
	for _, c := range carts {
		c.Items = []store.CartItem{}
		byID[c.ID] = c
		ids = append(ids, c.ID)
	}

	for _, chunk := range chunkIDs(ids) {
		if err := loadItemsChunk(ctx, q, byID, chunk); err != nil {
			return err
		}
	}
	return nil
}

func loadItemsChunk(ctx context.Context, q queryer, byID map[string]*store.Cart, ids []string) error {
	rows, err := q.QueryContext(ctx, `
		SELECT cart_id, product_id, qty FROM cart_items
		WHERE cart_id IN (`+placeholders(len(ids))+`)
		ORDER BY cart_id, position
	`, stringArgs(ids)...)
	if err != nil {
		return fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cartID string
			item   store.CartItem
		)
		if err := rows.Scan(&cartID, &item.ProductID, &item.Qty); err != nil {
			return fmt.Errorf("scan cart item: %w", err)
		}
		if c, ok := byID[cartID]; ok {
			c.Items = append(c.Items, item)
		}
	}
	return rows.Err()
}

// GetCartByUser returns the user's cart with its items.
func (s *SQLiteStore) GetCartByUser(ctx context.Context, userID string) (*store.Cart, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	return getCart(ctx, db, userID)
}

// SaveCart creates the user's cart or replaces all of its items.
func (s *SQLiteStore) SaveCart(ctx context.Context, userID string, items []store.CartItem) (*store.Cart, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ts := now()
	var cartID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM carts WHERE user_id = ?`, userID).Scan(&cartID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		cartID = utils.NewID()
		_, err = tx.ExecContext(ctx,
			`INSERT INTO carts (id, user_id, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			cartID, userID, store.CartStatusOpen, ts, ts,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, fmt.Errorf("insert cart: %w", store.ErrConflict)
			}
			return nil, fmt.Errorf("insert cart: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("query cart: %w", err)
	default:
		if _, err := tx.ExecContext(ctx, `UPDATE carts SET updated_at = ? WHERE id = ?`, ts, cartID); err != nil {
			return nil, fmt.Errorf("touch cart: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = ?`, cartID); err != nil {
		return nil, fmt.Errorf("clear cart items: %w", err)
	}
	for i, item := range items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO cart_items (cart_id, position, product_id, qty) VALUES (?, ?, ?, ?)`,
			cartID, i, item.ProductID, item.Qty,
		)
		if err != nil {
			return nil, fmt.Errorf("insert cart item: %w", err)
		}
	}

	cart, err := getCart(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit cart: %w", err)
	}
	return cart, nil
}

// ListCarts returns every cart, newest first.
func (s *SQLiteStore) ListCarts(ctx context.Context) ([]*store.Cart, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT id, user_id, status, created_at, updated_at FROM carts ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("query carts: %w", err)
	}
	defer rows.Close()

	carts := make([]*store.Cart, 0)
	for rows.Next() {
		var c store.Cart
		if err := rows.Scan(&c.ID, &c.UserID, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan cart: %w", err)
		}
		carts = append(carts, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate carts: %w", err)
	}
	rows.Close()

	if err := loadItems(ctx, db, carts); err != nil {
		return nil, err
	}
	return carts, nil
}

// DeleteCartByUser removes the user's cart and its items.
func (s *SQLiteStore) DeleteCartByUser(ctx context.Context, userID string) (bool, error) {
	if _, err := s.execCount(ctx,
		`DELETE FROM cart_items WHERE cart_id IN (SELECT id FROM carts WHERE user_id = ?)`, userID,
	); err != nil {
		return false, fmt.Errorf("delete cart items: %w", err)
	}
	n, err := s.execCount(ctx, `DELETE FROM carts WHERE user_id = ?`, userID)
	if err != nil {
		return false, fmt.Errorf("delete cart: %w", err)
	}
	return n > 0, nil
}
