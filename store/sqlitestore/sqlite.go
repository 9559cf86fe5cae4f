// Package sqlitestore is a relational store.Store backed by SQLite.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jrsteele09/go-auth-bridge/store"
)

const (
	schema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	expires_at INTEGER
);
CREATE INDEX IF NOT EXISTS kv_expires_at ON kv (expires_at);`

	sweepInterval = time.Minute
)

var (
	_ store.Store  = (*Store)(nil)
	_ store.Lister = (*Store)(nil)
)

type Store struct {
	db        *sql.DB
	nowTime   func() time.Time
	lastSweep atomic.Int64
}

type Option func(*Store)

// WithNowTime sets the clock used for expiry checks (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

// Open opens (or creates) the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("[sqlitestore.Open] path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("[sqlitestore.Open] open sqlite db: %w", err)
	}
	// A single connection serialises writers and keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("[sqlitestore.Open] create schema: %w", err)
	}

	s := &Store{db: db, nowTime: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) now() int64 {
	return s.nowTime().UnixMilli()
}

func (s *Store) live(expiresAt sql.NullInt64) bool {
	return !expiresAt.Valid || expiresAt.Int64 > s.now()
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var (
		value     []byte
		expiresAt sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `SELECT value, expires_at FROM kv WHERE key = ?`, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[sqlitestore.Get] %s: %w", key, err)
	}
	if !s.live(expiresAt) {
		return nil, store.ErrNotFound
	}
	return value, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		return fmt.Errorf("[sqlitestore.Put] negative ttl for %s", key)
	}
	var expiresAt sql.NullInt64
	if ttl > 0 {
		expiresAt = sql.NullInt64{Int64: s.nowTime().Add(ttl).UnixMilli(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO kv (key, value, expires_at) VALUES (?, ?, ?)
ON CONFLICT (key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("[sqlitestore.Put] %s: %w", key, err)
	}
	s.maybeSweep(ctx)
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("[sqlitestore.Delete] %s: %w", key, err)
	}
	return nil
}

// Take deletes the row and returns what it held in one statement.
func (s *Store) Take(ctx context.Context, key string) ([]byte, error) {
	var (
		value     []byte
		expiresAt sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `DELETE FROM kv WHERE key = ? RETURNING value, expires_at`, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[sqlitestore.Take] %s: %w", key, err)
	}
	if !s.live(expiresAt) {
		return nil, store.ErrNotFound
	}
	return value, nil
}

var likeReplacer = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT key FROM kv
WHERE key LIKE ? ESCAPE '\' AND (expires_at IS NULL OR expires_at > ?)
ORDER BY key`, likeReplacer.Replace(prefix)+"%", s.now())
	if err != nil {
		return nil, fmt.Errorf("[sqlitestore.Keys] %s: %w", prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("[sqlitestore.Keys] scan: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// maybeSweep removes expired rows at most once per sweepInterval.
func (s *Store) maybeSweep(ctx context.Context) {
	now := s.now()
	last := s.lastSweep.Load()
	if now-last < sweepInterval.Milliseconds() || !s.lastSweep.CompareAndSwap(last, now) {
		return
	}
	_, _ = s.db.ExecContext(ctx, `DELETE FROM kv WHERE expires_at IS NOT NULL AND expires_at <= ?`, now)
}
