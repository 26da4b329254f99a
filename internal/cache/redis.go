package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"dollartracker/internal/config"
	"dollartracker/internal/metrics"
)

// Redis is a Cache shared between replicas. Any Redis failure degrades to
// computing locally; it never fails the caller.
type Redis[V any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    *zap.Logger
	now    func() time.Time
}

type envelope[V any] struct {
	CreatedAt time.Time `json:"created_at"`
	Value     V         `json:"value"`
}

// Dial connects and pings the server.
func Dial(ctx context.Context, cfg config.Redis) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolTimeout:  2 * time.Second,
		MaxRetries:   1,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return client, nil
}

// NewRedis stores values under prefix+key. ttl is the expiry used by Set.
func NewRedis[V any](client *redis.Client, prefix string, ttl time.Duration, log *zap.Logger) *Redis[V] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Redis[V]{client: client, prefix: prefix, ttl: ttl, log: log.Named("cache"), now: time.Now}
}

func (r *Redis[V]) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) V) V {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	switch {
	case err == nil:
		var env envelope[V]
		if jerr := json.Unmarshal(raw, &env); jerr != nil {
			r.log.Warn("discarding undecodable cache entry", zap.String("key", key), zap.Error(jerr))
			break
		}
		if r.now().Sub(env.CreatedAt) < ttl {
			metrics.RecordCache("hit")
			return env.Value
		}
	case errors.Is(err, redis.Nil):
	default:
		metrics.RecordCache("error")
		r.log.Warn("redis get failed, computing locally", zap.String("key", key), zap.Error(err))
	}

	metrics.RecordCache("miss")
	v := compute(ctx)
	r.put(ctx, key, v, ttl)
	return v
}

func (r *Redis[V]) Set(ctx context.Context, key string, v V) {
	r.put(ctx, key, v, r.ttl)
}

func (r *Redis[V]) put(ctx context.Context, key string, v V, ttl time.Duration) {
	data, err := json.Marshal(envelope[V]{CreatedAt: r.now().UTC(), Value: v})
	if err != nil {
		r.log.Error("encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := r.client.Set(ctx, r.prefix+key, data, ttl).Err(); err != nil {
		r.log.Warn("redis set failed", zap.String("key", key), zap.Error(err))
	}
}

func (r *Redis[V]) Close() error { return r.client.Close() }
