package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/shopdesk-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
//
// The handle may be nil while the database is unreachable; every method then
// fails with store.ErrUnavailable until the reconnect loop restores it.
// After Close the handle stays nil for good.
type SQLiteStore struct {
	path  string
	setup func(*sql.DB) error
	stop  chan struct{}

	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

var _ store.Store = (*SQLiteStore)(nil)

// New creates a new SQLite store with the schema applied.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, ApplySchema)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply schema on an in-memory database.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	s := &SQLiteStore{path: dbPath, setup: setup, stop: make(chan struct{})}
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	s.db = db
	return s, nil
}

// Open returns a store immediately and keeps (re)connecting in the background
// with a fixed backoff until ctx is cancelled or the store is closed. A failed
// first attempt does not stop the process; requests fail individually with
// store.ErrUnavailable.
func Open(ctx context.Context, dbPath string, retry time.Duration, logger *zerolog.Logger) *SQLiteStore {
	s := &SQLiteStore{path: dbPath, setup: ApplySchema, stop: make(chan struct{})}
	if db, err := s.open(); err != nil {
		logger.Error().Err(err).Str("db_path", dbPath).Dur("retry_in", retry).Msg("database connection failed")
	} else {
		s.db = db
		logger.Info().Str("db_path", dbPath).Msg("database connected")
	}
	go s.maintain(ctx, retry, logger)
	return s
}

func (s *SQLiteStore) open() (*sql.DB, error) {
	dsn := s.path + "?_journal_mode=WAL&_busy_timeout=5000"
	if strings.HasPrefix(s.path, ":memory:") {
		dsn = s.path
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with single connection; it also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if s.setup != nil {
		if err := s.setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// maintain pings the database every interval and reopens it when the ping fails.
func (s *SQLiteStore) maintain(ctx context.Context, interval time.Duration, logger *zerolog.Logger) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
		}

		if err := s.Ping(ctx); err == nil {
			continue
		} else if !errors.Is(err, store.ErrUnavailable) {
			logger.Warn().Err(err).Msg("database disconnected, reconnecting")
			if !s.swap(nil) {
				return
			}
		}

		db, err := s.open()
		if err != nil {
			logger.Error().Err(err).Dur("retry_in", interval).Msg("database reconnect failed")
			continue
		}
		if !s.swap(db) {
			return
		}
		logger.Info().Str("db_path", s.path).Msg("database reconnected")
	}
}

// swap installs db and closes the previous handle. Once the store is closed
// it refuses, closes db instead and returns false.
func (s *SQLiteStore) swap(db *sql.DB) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		if db != nil {
			_ = db.Close()
		}
		return false
	}
	old := s.db
	s.db = db
	s.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return true
}

func (s *SQLiteStore) conn() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, store.ErrUnavailable
	}
	return s.db, nil
}

// Ping reports whether the database answers.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// Close closes the database connection and stops reconnecting. It is safe to call twice.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.stop)
	}
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// maxInArgs keeps IN (...) lists well below SQLite's bound-variable limit.
const maxInArgs = 500

// chunkIDs dedupes ids and splits them into IN-sized batches.
func chunkIDs(ids []string) [][]string {
	return lo.Chunk(lo.Uniq(ids), maxInArgs)
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

func now() time.Time {
	return time.Now().UTC()
}
