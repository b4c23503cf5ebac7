package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/homedash/internal/infrastructure/database"
)

// SQLiteBackend stores keys in the kv_store table. The schema is created by
// the kv_store migration; run db.Migrate before use.
type SQLiteBackend struct {
	db  *database.DB
	now func() time.Time
}

// NewSQLiteBackend creates a backend on an open, migrated database.
// The database is owned by the caller; Close does not close it.
func NewSQLiteBackend(db *database.DB) *SQLiteBackend {
	return &SQLiteBackend{db: db, now: time.Now}
}

// Get implements Backend.
func (s *SQLiteBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var (
		value   []byte
		expires sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM kv_store WHERE key = ?`, key,
	).Scan(&value, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("state: reading %s: %w", key, err)
	}
	if expires.Valid && expires.Int64 <= s.now().Unix() {
		return nil, ErrNotFound
	}
	return value, nil
}

// Set implements Backend.
func (s *SQLiteBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := s.now()
	var expires sql.NullInt64
	if ttl > 0 {
		expires = sql.NullInt64{Int64: now.Add(ttl).Unix(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_store (key, value, expires_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		key, value, expires, now.Unix())
	if err != nil {
		return fmt.Errorf("state: writing %s: %w", key, err)
	}
	return nil
}

// Delete implements Backend.
func (s *SQLiteBackend) Delete(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM kv_store WHERE key = ? AND (expires_at IS NULL OR expires_at > ?)`,
		key, s.now().Unix())
	if err != nil {
		return fmt.Errorf("state: deleting %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("state: deleting %s: %w", key, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Keys implements Backend.
func (s *SQLiteBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key FROM kv_store
		WHERE key LIKE ? ESCAPE '\'
		  AND (expires_at IS NULL OR expires_at > ?)
		ORDER BY key`,
		escapeLike(prefix)+"%", s.now().Unix())
	if err != nil {
		return nil, fmt.Errorf("state: listing keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("state: scanning key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// PurgeExpired deletes expired rows and returns how many were removed.
func (s *SQLiteBackend) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM kv_store WHERE expires_at IS NOT NULL AND expires_at <= ?`, s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("state: purging expired keys: %w", err)
	}
	return res.RowsAffected()
}

// Ping implements Backend.
func (s *SQLiteBackend) Ping(ctx context.Context) error {
	return s.db.HealthCheck(ctx)
}

// Close implements Backend.
func (s *SQLiteBackend) Close() error {
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
