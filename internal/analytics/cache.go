package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/homefront-realty/admin-backoffice/internal/model"
)

const keyPrefix = "analytics:snapshot:"

// Cache stores snapshots in Redis keyed by date range.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCache creates a cache over rdb.
func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

// Dial connects to the Redis server at url (redis://...) and verifies the connection.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return rdb, nil
}

func cacheKey(from, to time.Time) string {
	return fmt.Sprintf("%s%d:%d", keyPrefix, from.UTC().Unix(), to.UTC().Unix())
}

// Get returns the cached snapshot for the range. ok is false on a miss.
func (c *Cache) Get(ctx context.Context, from, to time.Time) (model.AnalyticsSnapshot, bool, error) {
	data, err := c.rdb.Get(ctx, cacheKey(from, to)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.AnalyticsSnapshot{}, false, nil
	}
	if err != nil {
		return model.AnalyticsSnapshot{}, false, err
	}

	var s model.AnalyticsSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return model.AnalyticsSnapshot{}, false, fmt.Errorf("corrupt cached snapshot: %w", err)
	}
	return s, true, nil
}

// Set stores s for the range.
func (c *Cache) Set(ctx context.Context, s model.AnalyticsSnapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, cacheKey(s.From, s.To), data, c.ttl).Err()
}

// Invalidate drops every cached snapshot.
func (c *Cache) Invalidate(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}
