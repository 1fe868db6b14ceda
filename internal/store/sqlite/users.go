package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vovakirdan/shopdesk-server/internal/store"
)

// ==== UserStore implementation ====

const userColumns = `id, name, email, password_hash, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*store.User, error) {
	var u store.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new user.
func (s *SQLiteStore) CreateUser(ctx context.Context, u *store.User) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	ts := now()
	query := `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := db.ExecContext(ctx, query, u.ID, u.Name, u.Email, u.PasswordHash, ts, ts); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert user: %w", store.ErrConflict)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	u.CreatedAt, u.UpdatedAt = ts, ts
	return nil
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (s *SQLiteStore) getUser(ctx context.Context, query string, arg string) (*store.User, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	u, err := scanUser(db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}

// GetUsersByIDs returns the users that exist among ids.
func (s *SQLiteStore) GetUsersByIDs(ctx context.Context, ids []string) ([]*store.User, error) {
	users := make([]*store.User, 0, len(ids))
	for _, chunk := range chunkIDs(ids) {
		found, err := s.listUsers(ctx, `SELECT `+userColumns+` FROM users WHERE id IN (`+placeholders(len(chunk))+`)`, stringArgs(chunk)...)
		if err != nil {
			return nil, err
		}
		users = append(users, found...)
	}
	return users, nil
}

// ListUsers returns all users, newest first.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*store.User, error) {
	return s.listUsers(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, rowid DESC`)
}

func (s *SQLiteStore) listUsers(ctx context.Context, query string, args ...any) ([]*store.User, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := make([]*store.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// DeleteUser removes a user record.
func (s *SQLiteStore) DeleteUser(ctx context.Context, id string) (bool, error) {
	n, err := s.execCount(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	return n > 0, nil
}

// ==== AdminStore implementation ====

// CreateAdmin inserts a new admin.
func (s *SQLiteStore) CreateAdmin(ctx context.Context, a *store.Admin) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	ts := now()
	query := `INSERT INTO admins (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)`
	if _, err := db.ExecContext(ctx, query, a.ID, a.Username, a.PasswordHash, ts); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert admin: %w", store.ErrConflict)
		}
		return fmt.Errorf("insert admin: %w", err)
	}
	a.CreatedAt = ts
	return nil
}

// GetAdminByUsername retrieves an admin by username.
func (s *SQLiteStore) GetAdminByUsername(ctx context.Context, username string) (*store.Admin, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	var a store.Admin
	err = db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM admins WHERE username = ?`, username,
	).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("admin: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query admin: %w", err)
	}
	return &a, nil
}

// execCount runs a statement and returns the number of affected rows.
func (s *SQLiteStore) execCount(ctx context.Context, query string, args ...any) (int64, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
