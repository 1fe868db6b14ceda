package sqlite

import (
	"context"
	"fmt"

	"github.com/vovakirdan/shopdesk-server/internal/store"
)

// ==== MessageStore implementation ====

// SaveMessage persists a message. CreatedAt is assigned when zero.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now()
	}
	query := `
		INSERT INTO messages (id, room, sender, text, image, delivered, seen, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = db.ExecContext(ctx, query,
		msg.ID, msg.Room, msg.From, msg.Text, msg.Image, msg.Delivered, msg.Seen, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListMessages returns a room's messages oldest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, room string) ([]*store.Message, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	query := `
		SELECT id, room, sender, text, image, COALESCE(delivered, 0), COALESCE(seen, 0), created_at
		FROM messages
		WHERE room = ?
		ORDER BY created_at ASC, rowid ASC
	`
	rows, err := db.QueryContext(ctx, query, room)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.Message, 0)
	for rows.Next() {
		var m store.Message
		if err := rows.Scan(&m.ID, &m.Room, &m.From, &m.Text, &m.Image, &m.Delivered, &m.Seen, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

// DistinctRooms returns every room key with at least one message.
func (s *SQLiteStore) DistinctRooms(ctx context.Context) ([]string, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT room FROM messages GROUP BY room ORDER BY MAX(created_at) DESC`)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	rooms := make([]string, 0)
	for rows.Next() {
		var room string
		if err := rows.Scan(&room); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rooms: %w", err)
	}
	return rooms, nil
}

// MarkSeen flips seen to true for every unseen message in the room.
// Rows with a NULL flag count as unseen. Delivered is raised alongside so seen implies delivered.
func (s *SQLiteStore) MarkSeen(ctx context.Context, room string) (int64, error) {
	n, err := s.execCount(ctx, `
		UPDATE messages SET seen = 1, delivered = 1
		WHERE room = ? AND (seen = 0 OR seen IS NULL)
	`, room)
	if err != nil {
		return 0, fmt.Errorf("mark seen: %w", err)
	}
	return n, nil
}

// MarkDelivered flips delivered to true for every undelivered message in the room.
func (s *SQLiteStore) MarkDelivered(ctx context.Context, room string) (int64, error) {
	n, err := s.execCount(ctx, `
		UPDATE messages SET delivered = 1
		WHERE room = ? AND (delivered = 0 OR delivered IS NULL)
	`, room)
	if err != nil {
		return 0, fmt.Errorf("mark delivered: %w", err)
	}
	return n, nil
}

// DeleteRoomMessages removes every message in the room.
func (s *SQLiteStore) DeleteRoomMessages(ctx context.Context, room string) (int64, error) {
	n, err := s.execCount(ctx, `DELETE FROM messages WHERE room = ?`, room)
	if err != nil {
		return 0, fmt.Errorf("delete room messages: %w", err)
	}
	return n, nil
}
