package redis

import (
	"context"
	"time"

	goRedis "github.com/redis/go-redis/v9"

	"github.com/ofa-alumni/ofatechdotorg/internal/config"
)

// NewClient connects to the server holding sessions ("session:" keys with a TTL) and
// the active-members slot (CACHE_PREFIX keys without expiry). REDIS_PASSWORD and
// REDIS_DB override whatever REDIS_URL carries.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*goRedis.Client, error) {
	opts, err := goRedis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}

	client := goRedis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// Ping adapts the client to a monitor.Check; a failing ping marks the cache as
// degraded on /health while the directory keeps serving from the store.
func Ping(client goRedis.UniversalClient) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
