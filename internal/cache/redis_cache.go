package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache keeps a TTL'd record of recent publications so the reporting
// surface can answer "did this go out?" without hitting Postgres.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

type publishedValue struct {
	InstagramMediaID string    `json:"instagramMediaId"`
	PublishedAt      time.Time `json:"publishedAt"`
}

func (c *RedisCache) StorePublished(ctx context.Context, reelID, instagramMediaID string, publishedAt time.Time) error {
	key := fmt.Sprintf("reel:%s", reelID)
	val := publishedValue{
		InstagramMediaID: instagramMediaID,
		PublishedAt:      publishedAt.UTC(),
	}

	b, err := json.Marshal(val)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, key, b, c.ttl).Err()
}
