package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/scribe/pkg/models"
	"github.com/redis/go-redis/v9"
)

// Cache is the caching interface. All cache operations go through here.
// Implementations must be safe for concurrent use.
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
	SetJob(ctx context.Context, job *models.Job, ttl time.Duration) error
	GetJob(ctx context.Context, jobID uuid.UUID) (*models.Job, bool, error)
	IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error)
}

// RedisCache implements the Cache interface using go-redis/v9.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new RedisCache from a Redis URL.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisCache{client: redis.NewClient(opts)}, nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// SetJob stores a JSON snapshot of job under JobKey.
func (c *RedisCache) SetJob(ctx context.Context, job *models.Job, ttl time.Duration) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job snapshot: %w", err)
	}
	return c.client.Set(ctx, JobKey(job.ID), data, ttl).Err()
}

func (c *RedisCache) GetJob(ctx context.Context, jobID uuid.UUID) (*models.Job, bool, error) {
	data, ok, err := c.Get(ctx, JobKey(jobID))
	if err != nil || !ok {
		return nil, false, err
	}
	var job models.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, false, fmt.Errorf("decode job snapshot: %w", err)
	}
	return &job, true, nil
}

func (c *RedisCache) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, expiry)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// NopCache is used when no Redis URL is configured. Reads always miss and counters
// never advance, so rate limiting is effectively off.
type NopCache struct{}

func (NopCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NopCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (NopCache) Delete(context.Context, string) error                     { return nil }
func (NopCache) Ping(context.Context) error                               { return nil }
func (NopCache) Close() error                                             { return nil }
func (NopCache) SetJob(context.Context, *models.Job, time.Duration) error { return nil }
func (NopCache) GetJob(context.Context, uuid.UUID) (*models.Job, bool, error) {
	return nil, false, nil
}
func (NopCache) IncrWithExpiry(context.Context, string, time.Duration) (int64, error) { return 0, nil }

var (
	_ Cache = (*RedisCache)(nil)
	_ Cache = NopCache{}
)
