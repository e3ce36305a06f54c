package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a read-through JSON cache for catalog reads. A nil *Cache is a
// valid, always-missing cache. Redis errors are logged and treated as misses.
type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewCache(client *redis.Client, prefix string, ttl time.Duration) *Cache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{client: client, prefix: prefix, ttl: ttl}
}

// NewRedisClient returns nil when addr is empty so the catalog runs uncached.
func NewRedisClient(addr string) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr})
}

func (c *Cache) key(parts ...interface{}) string {
	if c == nil {
		return ""
	}
	key := c.prefix
	for _, p := range parts {
		key += fmt.Sprintf(":%v", p)
	}
	return key
}

func (c *Cache) get(ctx context.Context, key string, dst interface{}) bool {
	if c == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		log.Println("[CATALOG] [WARN] cache read failed:", err)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		log.Println("[CATALOG] [WARN] cache entry corrupt:", err)
		return false
	}
	return true
}

func (c *Cache) set(ctx context.Context, key string, value interface{}) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		log.Println("[CATALOG] [WARN] cache encode failed:", err)
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		log.Println("[CATALOG] [WARN] cache write failed:", err)
	}
}

// listGeneration is part of every list key; bumping it orphans all cached
// pages at once and lets them expire on their TTL.
func (c *Cache) listGeneration(ctx context.Context) int64 {
	if c == nil {
		return 0
	}
	gen, err := c.client.Get(ctx, c.key("kitchens", "gen")).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		log.Println("[CATALOG] [WARN] cache generation read failed:", err)
	}
	return gen
}

func (c *Cache) invalidate(ctx context.Context, kitchenKey string) {
	if c == nil {
		return
	}
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, c.key("kitchen", kitchenKey))
	pipe.Incr(ctx, c.key("kitchens", "gen"))
	if _, err := pipe.Exec(ctx); err != nil {
		log.Println("[CATALOG] [WARN] cache invalidation failed:", err)
	}
}
