package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a read-through Resolver that keeps resolved products in Redis.
// Cache failures fall back to the inner resolver; a missing Redis entry is
// never an error.
type Cache struct {
	Inner  Resolver
	Client *redis.Client
	TTL    time.Duration
	Prefix string
}

// NewCache wraps inner with a Redis cache.
func NewCache(inner Resolver, client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{Inner: inner, Client: client, TTL: ttl, Prefix: "catalog"}
}

// Resolve returns the cached product when present, otherwise resolves
// through the inner resolver and stores the result.
func (c *Cache) Resolve(ctx context.Context, ref Ref) (Product, error) {
	if c == nil || c.Inner == nil {
		return Product{}, ErrUnavailable
	}
	key := c.key(ref)
	if c.Client != nil {
		data, err := c.Client.Get(ctx, key).Bytes()
		if err == nil {
			var p Product
			if jerr := json.Unmarshal(data, &p); jerr == nil {
				return p, nil
			}
		} else if !errors.Is(err, redis.Nil) && ctx.Err() != nil {
			return Product{}, ctx.Err()
		}
	}
	p, err := c.Inner.Resolve(ctx, ref)
	if err != nil {
		return Product{}, err
	}
	if c.Client != nil {
		if data, jerr := json.Marshal(p); jerr == nil {
			_ = c.Client.Set(ctx, key, data, c.ttl()).Err()
		}
	}
	return p, nil
}

func (c *Cache) key(ref Ref) string {
	return fmt.Sprintf("%s:%s:%s", c.Prefix, ref.Kind, ref.ID)
}

func (c *Cache) ttl() time.Duration {
	if c.TTL <= 0 {
		return 10 * time.Minute
	}
	return c.TTL
}
