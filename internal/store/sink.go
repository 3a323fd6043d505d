package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

// ErrQuotaExceeded is returned when a write would push a sink past its quota.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Sink is a small key/value store for serialized snapshots.
type Sink interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// MemorySink keeps values in a map. Quota ≤ 0 means unlimited.
type MemorySink struct {
	Quota int

	mu   sync.Mutex
	data map[string][]byte
	used int
}

// NewMemorySink returns an empty sink with the given byte quota.
func NewMemorySink(quota int) *MemorySink {
	return &MemorySink{Quota: quota, data: make(map[string][]byte)}
}

func (s *MemorySink) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	used := s.used - len(s.data[key]) + len(value)
	if s.Quota > 0 && used > s.Quota {
		return fmt.Errorf("%w: %d > %d bytes", ErrQuotaExceeded, used, s.Quota)
	}
	s.data[key] = append([]byte(nil), value...)
	s.used = used
	return nil
}

func (s *MemorySink) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *MemorySink) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.used -= len(s.data[key])
	delete(s.data, key)
	return nil
}

// SQLiteSink stores values in the snapshots table. Quota ≤ 0 means unlimited;
// otherwise it bounds the summed body size across all keys.
type SQLiteSink struct {
	db    *sql.DB
	Quota int
}

// NewSQLiteSink wraps a migrated database.
func NewSQLiteSink(db *sql.DB, quota int) *SQLiteSink {
	return &SQLiteSink{db: db, Quota: quota}
}

func (s *SQLiteSink) Put(ctx context.Context, key string, value []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if s.Quota > 0 {
		var used int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(LENGTH(body)), 0) FROM snapshots WHERE key <> ?`, key,
		).Scan(&used); err != nil {
			return fmt.Errorf("measure snapshots: %w", err)
		}
		if used+len(value) > s.Quota {
			return fmt.Errorf("%w: %d > %d bytes", ErrQuotaExceeded, used+len(value), s.Quota)
		}
	}

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO snapshots (key, body, updated_at)
        VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
        ON CONFLICT(key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		key, value,
	); err != nil {
		return fmt.Errorf("put snapshot: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteSink) Get(ctx context.Context, key string) ([]byte, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM snapshots WHERE key = ?`, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return body, err
}

func (s *SQLiteSink) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE key = ?`, key)
	return err
}
