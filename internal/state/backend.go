package state

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nerrad567/homedash/internal/infrastructure/config"
	"github.com/nerrad567/homedash/internal/infrastructure/database"
)

// Backend is a byte-oriented key/value store.
type Backend interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value. A zero ttl means the key never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key, returning ErrNotFound if it did not exist.
	Delete(ctx context.Context, key string) error

	// Keys lists live keys starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases resources owned by the backend.
	Close() error
}

// OpenBackend builds the backend named in cfg. db is required for the
// sqlite backend and ignored otherwise.
func OpenBackend(ctx context.Context, cfg config.StateConfig, db *database.DB) (Backend, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return NewMemoryBackend(), nil

	case config.BackendSQLite:
		if db == nil {
			return nil, fmt.Errorf("state: sqlite backend requires a database")
		}
		return NewSQLiteBackend(db), nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b := NewRedisBackend(client)
		if err := b.Ping(ctx); err != nil {
			client.Close() //nolint:errcheck // error path
			return nil, fmt.Errorf("state: connecting to redis at %s: %w", cfg.Redis.Addr, err)
		}
		return b, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
