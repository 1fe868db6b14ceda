package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vovakirdan/shopdesk-server/internal/store"
)

// ==== NotificationStore implementation ====

// CreateNotification inserts a notification with an empty read set.
func (s *SQLiteStore) CreateNotification(ctx context.Context, n *store.Notification) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now()
	}
	query := `INSERT INTO notifications (id, title, body, target, created_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := db.ExecContext(ctx, query, n.ID, n.Title, n.Body, n.Target, n.CreatedAt); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	n.ReadBy = []string{}
	return nil
}

// GetNotification retrieves a notification with its readers.
func (s *SQLiteStore) GetNotification(ctx context.Context, id string) (*store.Notification, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	var n store.Notification
	err = db.QueryRowContext(ctx,
		`SELECT id, title, body, target, created_at FROM notifications WHERE id = ?`, id,
	).Scan(&n.ID, &n.Title, &n.Body, &n.Target, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("notification: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query notification: %w", err)
	}
	if err := s.attachReaders(ctx, db, []*store.Notification{&n}); err != nil {
		return nil, err
	}
	return &n, nil
}

// ListNotifications returns notifications addressed to any of targets, newest first.
func (s *SQLiteStore) ListNotifications(ctx context.Context, targets []string) ([]*store.Notification, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	query := `SELECT id, title, body, target, created_at FROM notifications`
	if len(targets) > 0 {
		query += ` WHERE target IN (` + placeholders(len(targets)) + `)`
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := db.QueryContext(ctx, query, stringArgs(targets)...)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Notification, 0)
	for rows.Next() {
		var n store.Notification
		if err := rows.Scan(&n.ID, &n.Title, &n.Body, &n.Target, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		list = append(list, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	rows.Close()

	if err := s.attachReaders(ctx, db, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *SQLiteStore) attachReaders(ctx context.Context, db *sql.DB, list []*store.Notification) error {
	if len(list) == 0 {
		return nil
	}
	byID := make(map[string]*store.Notification, len(list))
	ids := make([]string, 0, len(list))
	for _, n := range list {
		n.ReadBy = []string{}
		byID[n.ID] = n
		ids = append(ids, n.ID)
	}

	for _, chunk := range chunkIDs(ids) {
		if err := attachReadersChunk(ctx, db, byID, chunk); err != nil {
			return err
		}
	}
	return nil
}

func attachReadersChunk(ctx context.Context, db *sql.DB, byID map[string]*store.Notification, ids []string) error {
	query := `
		SELECT notification_id, user_id FROM notification_reads
		WHERE notification_id IN (` + placeholders(len(ids)) + `)
		ORDER BY read_at ASC, rowid ASC
	`
	rows, err := db.QueryContext(ctx, query, stringArgs(ids)...)
	if err != nil {
		return fmt.Errorf("query readers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, userID string
		if err := rows.Scan(&id, &userID); err != nil {
			return fmt.Errorf("scan reader: %w", err)
		}
		if n, ok := byID[id]; ok {
			n.ReadBy = append(n.ReadBy, userID)
		}
	}
	return rows.Err()
}

// UpdateNotification overwrites title, body and target.
func (s *SQLiteStore) UpdateNotification(ctx context.Context, n *store.Notification) error {
	count, err := s.execCount(ctx,
		`UPDATE notifications SET title = ?, body = ?, target = ? WHERE id = ?`,
		n.Title, n.Body, n.Target, n.ID,
	)
	if err != nil {
		return fmt.Errorf("update notification: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("notification: %w", store.ErrNotFound)
	}
	return nil
}

// AddReader records userID as a reader; the primary key keeps the set unique.
func (s *SQLiteStore) AddReader(ctx context.Context, id, userID string) error {
	_, err := s.execCount(ctx,
		`INSERT OR IGNORE INTO notification_reads (notification_id, user_id, read_at) VALUES (?, ?, ?)`,
		id, userID, now(),
	)
	if err != nil {
		return fmt.Errorf("add reader: %w", err)
	}
	return nil
}

// DeleteNotification removes a notification and its read records.
func (s *SQLiteStore) DeleteNotification(ctx context.Context, id string) (bool, error) {
	n, err := s.execCount(ctx, `DELETE FROM notifications WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete notification: %w", err)
	}
	if _, err := s.execCount(ctx, `DELETE FROM notification_reads WHERE notification_id = ?`, id); err != nil {
		return n > 0, fmt.Errorf("delete readers: %w", err)
	}
	return n > 0, nil
}

// DeleteNotificationsByTarget removes every notification addressed to target.
func (s *SQLiteStore) DeleteNotificationsByTarget(ctx context.Context, target string) (int64, error) {
	if _, err := s.execCount(ctx, `
		DELETE FROM notification_reads
		WHERE notification_id IN (SELECT id FROM notifications WHERE target = ?)
	`, target); err != nil {
		return 0, fmt.Errorf("delete readers: %w", err)
	}
	n, err := s.execCount(ctx, `DELETE FROM notifications WHERE target = ?`, target)
	if err != nil {
		return 0, fmt.Errorf("delete notifications: %w", err)
	}
	return n, nil
}
