// Package bootstrap wires the database, schema and Redis together for the binaries.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/alex-zharinov/hw05-final/internal/cache"
	"github.com/alex-zharinov/hw05-final/internal/config"
	"github.com/alex-zharinov/hw05-final/internal/database"
	"github.com/alex-zharinov/hw05-final/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedGroups upserts the bundled groups after the schema is applied.
	SeedGroups bool
}

// InitRuntime connects to the database, applies the schema and connects to Redis.
// The Redis client is nil when Redis is unreachable.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		_ = database.Close(db)
		return nil, nil, fmt.Errorf("apply schema: %w", err)
	}

	if opts.SeedGroups {
		fixtures, err := seed.DefaultGroups()
		if err == nil {
			_, err = seed.Groups(ctx, db, fixtures)
		}
		if err != nil {
			_ = database.Close(db)
			return nil, nil, fmt.Errorf("seed groups: %w", err)
		}
	}

	return db, cache.InitRedis(cfg.RedisURL), nil
}
