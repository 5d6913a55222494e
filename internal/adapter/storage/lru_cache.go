package storage

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rl1809/order-service/internal/core/domain"
	"github.com/rl1809/order-service/internal/port"
)

type lruEntry struct {
	order     domain.Order
	deleted   bool
	expiresAt time.Time
}

// LRUCache is an in-process OrderCache for single-replica deployments.
type LRUCache struct {
	mu    sync.Mutex
	cache *lru.Cache[int64, lruEntry]
	ttl   time.Duration
	now   func() time.Time
}

func NewLRUCache(size int, ttl time.Duration) *LRUCache {
	if size <= 0 {
		size = 10000
	}
	cache, err := lru.New[int64, lruEntry](size)
	if err != nil {
		cache, _ = lru.New[int64, lruEntry](10000)
	}
	return &LRUCache{cache: cache, ttl: ttl, now: time.Now}
}

func (c *LRUCache) GetOrder(ctx context.Context, id int64) (*domain.Order, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.cache.Get(id)
	if !ok {
		return nil, false, nil
	}
	if c.expired(e) {
		c.cache.Remove(id)
		return nil, false, nil
	}
	if e.deleted {
		return nil, false, nil
	}

	o := e.order
	o.ProductList = append([]byte(nil), e.order.ProductList...)
	return &o, true, nil
}

func (c *LRUCache) SetOrder(ctx context.Context, order domain.Order) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	order.ProductList = append([]byte(nil), order.ProductList...)
	c.cache.Add(order.ID, lruEntry{order: order, expiresAt: c.now().Add(c.ttl)})
	return nil
}

func (c *LRUCache) AddOrder(ctx context.Context, order domain.Order) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.cache.Peek(order.ID); ok && !c.expired(e) {
		return false, nil
	}

	order.ProductList = append([]byte(nil), order.ProductList...)
	c.cache.Add(order.ID, lruEntry{order: order, expiresAt: c.now().Add(c.ttl)})
	return true, nil
}

func (c *LRUCache) DeleteOrder(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Add(id, lruEntry{order: domain.Order{ID: id}, deleted: true, expiresAt: c.now().Add(c.ttl)})
	return nil
}

func (c *LRUCache) expired(e lruEntry) bool {
	return c.ttl > 0 && c.now().After(e.expiresAt)
}

var _ port.OrderCache = (*LRUCache)(nil)
