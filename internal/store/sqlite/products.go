package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vovakirdan/shopdesk-server/internal/store"
)

// ==== ProductStore implementation ====

const productColumns = `id, title, description, price, images, stock, created_at`

func scanProduct(row rowScanner) (*store.Product, error) {
	var (
		p      store.Product
		images string
	)
	if err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Price, &images, &p.Stock, &p.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(images), &p.Images); err != nil {
		return nil, fmt.Errorf("decode images: %w", err)
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	return &p, nil
}

// CreateProduct inserts a product.
func (s *SQLiteStore) CreateProduct(ctx context.Context, p *store.Product) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	images, err := json.Marshal(p.Images)
	if err != nil {
		return fmt.Errorf("encode images: %w", err)
	}
	ts := now()
	query := `INSERT INTO products (` + productColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := db.ExecContext(ctx, query, p.ID, p.Title, p.Description, p.Price, string(images), p.Stock, ts); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	p.CreatedAt = ts
	return nil
}

// GetProduct retrieves a product by ID.
func (s *SQLiteStore) GetProduct(ctx context.Context, id string) (*store.Product, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	p, err := scanProduct(db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query product: %w", err)
	}
	return p, nil
}

// GetProductsByIDs returns the products that exist among ids.
func (s *SQLiteStore) GetProductsByIDs(ctx context.Context, ids []string) ([]*store.Product, error) {
	products := make([]*store.Product, 0, len(ids))
	for _, chunk := range chunkIDs(ids) {
		found, err := s.listProducts(ctx, `SELECT `+productColumns+` FROM products WHERE id IN (`+placeholders(len(chunk))+`)`, stringArgs(chunk)...)
		if err != nil {
			return nil, err
		}
		products = append(products, found...)
	}
	return products, nil
}

// ListProducts returns all products, newest first.
func (s *SQLiteStore) ListProducts(ctx context.Context) ([]*store.Product, error) {
	return s.listProducts(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at DESC, rowid DESC`)
}

func (s *SQLiteStore) listProducts(ctx context.Context, query string, args ...any) ([]*store.Product, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := make([]*store.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

// DeleteProduct removes a product.
func (s *SQLiteStore) DeleteProduct(ctx context.Context, id string) (bool, error) {
	n, err := s.execCount(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete product: %w", err)
	}
	return n > 0, nil
}
