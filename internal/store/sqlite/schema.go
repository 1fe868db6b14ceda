package sqlite

import (
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL DEFAULT '',
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS admins (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS products (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	price       REAL NOT NULL DEFAULT 0,
	images      TEXT NOT NULL DEFAULT '[]',
	stock       INTEGER NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	room       TEXT NOT NULL,
	sender     TEXT NOT NULL,
	text       TEXT NOT NULL DEFAULT '',
	image      TEXT NOT NULL DEFAULT '',
	delivered  BOOLEAN DEFAULT 0,
	seen       BOOLEAN DEFAULT 0,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room, created_at);

CREATE TABLE IF NOT EXISTS notifications (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	body       TEXT NOT NULL,
	target     TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_target ON notifications(target, created_at DESC);

CREATE TABLE IF NOT EXISTS notification_reads (
	notification_id TEXT NOT NULL,
	user_id         TEXT NOT NULL,
	read_at         DATETIME NOT NULL,
	PRIMARY KEY (notification_id, user_id)
);

CREATE TABLE IF NOT EXISTS carts (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL UNIQUE,
	status     TEXT NOT NULL DEFAULT 'open',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS cart_items (
	cart_id    TEXT NOT NULL,
	position   INTEGER NOT NULL,
	product_id TEXT NOT NULL,
	qty        INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (cart_id, position)
);

CREATE TABLE IF NOT EXISTS profiles (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL UNIQUE,
	full_name      TEXT NOT NULL DEFAULT '',
	email          TEXT NOT NULL DEFAULT '',
	phone          TEXT NOT NULL DEFAULT '',
	optional_email TEXT NOT NULL DEFAULT '',
	address        TEXT NOT NULL DEFAULT '',
	created_at     DATETIME NOT NULL,
	updated_at     DATETIME NOT NULL
);
`

// ApplySchema creates every table and index that does not exist yet.
func ApplySchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
