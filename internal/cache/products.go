package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/ahmadjon09/Shoemaster-sub000/internal/models"
)

const (
	productListKey = "products:all"
	productListTTL = 5 * time.Minute
)

// ProductCache is an optional Redis-backed cache for the product list. A nil
// *ProductCache is valid and disables caching, so callers never branch on
// configuration.
type ProductCache struct {
	client *redis.Client
}

// New connects to Redis at addr. Empty addr returns nil (cache disabled).
func New(addr string) (*ProductCache, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &ProductCache{client: client}, nil
}

func (c *ProductCache) Close() {
	if c != nil && c.client != nil {
		if err := c.client.Close(); err != nil {
			log.Printf("cache: close: %v", err)
		}
	}
}

// GetList returns the cached product list, or ok=false on miss, error, or
// disabled cache. Callers fall back to the DB.
func (c *ProductCache) GetList(ctx context.Context) ([]models.Product, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, productListKey).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("cache: get product list: %v", err)
		}
		return nil, false
	}
	var products []models.Product
	if err := json.Unmarshal([]byte(raw), &products); err != nil {
		log.Printf("cache: stale product list payload dropped: %v", err)
		c.Invalidate(ctx)
		return nil, false
	}
	return products, true
}

// SetList stores the product list. Errors are logged only; the cache is never
// allowed to fail a read path.
func (c *ProductCache) SetList(ctx context.Context, products []models.Product) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(products)
	if err != nil {
		log.Printf("cache: marshal product list: %v", err)
		return
	}
	if err := c.client.Set(ctx, productListKey, raw, productListTTL).Err(); err != nil {
		log.Printf("cache: set product list: %v", err)
	}
}

// SetListAsync repopulates the cache off the request path after a DB fetch.
func (c *ProductCache) SetListAsync(products []models.Product) {
	if c == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.SetList(ctx, products)
	}()
}

// Invalidate drops the cached list. Called on every product write, including
// order placement and cancellation.
func (c *ProductCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, productListKey).Err(); err != nil {
		log.Printf("cache: invalidate product list: %v", err)
	}
}
