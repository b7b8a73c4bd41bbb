package simcache

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "simcache:"

	// Similarity scores go stale as likes accumulate; a bounded TTL keeps
	// a shared Redis cache from pinning ancient pairs forever.
	defaultTTL = 24 * time.Hour
)

// Redis is a Redis-backed similarity cache for deployments running more
// than one recommender process against the same user base.
type Redis struct {
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(addr, password string, logger *slog.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &Redis{client: client, logger: logger, ttl: defaultTTL}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (float64, bool) {
	val, err := r.client.Get(ctx, keyPrefix+key).Result()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("Similarity cache read failed", slog.String("key", key), slog.Any("error", err))
		}
		return 0, false
	}

	score, err := strconv.ParseFloat(val, 64)
	if err != nil {
		r.logger.Warn("Similarity cache holds non-numeric value", slog.String("key", key), slog.String("value", val))
		return 0, false
	}
	return score, true
}

func (r *Redis) Set(ctx context.Context, key string, score float64) {
	val := strconv.FormatFloat(score, 'f', -1, 64)
	if err := r.client.Set(ctx, keyPrefix+key, val, r.ttl).Err(); err != nil {
		r.logger.Warn("Similarity cache write failed", slog.String("key", key), slog.Any("error", err))
	}
}

// Ping reports whether the Redis backend is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
