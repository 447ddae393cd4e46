// Package session provides the session-scoped key/value stores that back
// per-user board options. Every backend expires entries after a TTL that is
// refreshed on write.
package session

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/zulandar/taskboard/internal/config"
	"gorm.io/gorm"
)

// Store is a string-keyed get/set store scoped to the user's session
// lifetime. Reads and writes are independent; there is no transaction across
// them.
type Store interface {
	// Get returns the stored value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set overwrites the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Open builds the backend selected by cfg. gormDB is required for the
// database backend and ignored otherwise.
func Open(cfg config.SessionConfig, gormDB *gorm.DB) (Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemoryStore(cfg.TTL), nil
	case config.BackendRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("session: parse redis url: %w", err)
		}
		return NewRedisStore(redis.NewClient(opts), cfg.TTL), nil
	case config.BackendDatabase:
		if gormDB == nil {
			return nil, fmt.Errorf("session: database backend requires a db")
		}
		return NewDBStore(gormDB, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("session: unknown backend %q", cfg.Backend)
	}
}
