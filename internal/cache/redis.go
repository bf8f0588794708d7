package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gocache "github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
)

// Redis stores snapshots as JSON strings so several dashboard instances
// share one view of the day.
type Redis struct {
	client *redis.Client
	cache  *gocache.Cache[string]
}

type RedisOptions struct {
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	redisStore := redisstore.NewRedis(client, store.WithExpiration(opts.TTL))
	return &Redis{
		client: client,
		cache:  gocache.New[string](redisStore),
	}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (Snapshot, bool, error) {
	raw, err := r.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.NotFound{}) || errors.Is(err, redis.Nil) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, err
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return snap, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, snap Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}
	return r.cache.Set(ctx, key, string(b))
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.cache.Delete(ctx, key)
}

func (r *Redis) Close() error {
	return r.client.Close()
}
