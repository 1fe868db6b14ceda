package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vovakirdan/shopdesk-server/internal/store"
	"github.com/vovakirdan/shopdesk-server/internal/utils"
)

// ==== ProfileStore implementation ====

const profileColumns = `id, user_id, full_name, email, phone, optional_email, address, created_at, updated_at`

// GetProfileByUser returns the profile owned by userID.
func (s *SQLiteStore) GetProfileByUser(ctx context.Context, userID string) (*store.Profile, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	var p store.Profile
	err = db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = ?`, userID).Scan(
		&p.ID, &p.UserID, &p.FullName, &p.Email, &p.Phone, &p.OptionalEmail, &p.Address, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query profile: %w", err)
	}
	return &p, nil
}

// CreateProfile inserts a profile; a second profile for the same user is a conflict.
func (s *SQLiteStore) CreateProfile(ctx context.Context, p *store.Profile) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = utils.NewID()
	}
	ts := now()
	_, err = db.ExecContext(ctx, `INSERT INTO profiles (`+profileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.FullName, p.Email, p.Phone, p.OptionalEmail, p.Address, ts, ts,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert profile: %w", store.ErrConflict)
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	p.CreatedAt, p.UpdatedAt = ts, ts
	return nil
}

// UpsertProfile creates or overwrites the profile keyed by p.UserID.
func (s *SQLiteStore) UpsertProfile(ctx context.Context, p *store.Profile) (*store.Profile, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	ts := now()
	_, err = db.ExecContext(ctx, `
		INSERT INTO profiles (`+profileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			full_name = excluded.full_name,
			email = excluded.email,
			phone = excluded.phone,
			optional_email = excluded.optional_email,
			address = excluded.address,
			updated_at = excluded.updated_at
	`, utils.NewID(), p.UserID, p.FullName, p.Email, p.Phone, p.OptionalEmail, p.Address, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	return s.GetProfileByUser(ctx, p.UserID)
}

// DeleteProfileByUser removes the user's profile.
func (s *SQLiteStore) DeleteProfileByUser(ctx context.Context, userID string) (bool, error) {
	n, err := s.execCount(ctx, `DELETE FROM profiles WHERE user_id = ?`, userID)
	if err != nil {
		return false, fmt.Errorf("delete profile: %w", err)
	}
	return n > 0, nil
}
