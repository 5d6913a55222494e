package storage

import (
	"context"
	"log/slog"

	"github.com/rl1809/order-service/internal/core/domain"
	"github.com/rl1809/order-service/internal/port"
)

// CachedRepository reads through an OrderCache. Cache errors are logged and
// the store stays authoritative. Reads only populate absent entries, so a read
// that raced an update or delete cannot put back the older state.
type CachedRepository struct {
	port.OrderRepository
	cache  port.OrderCache
	logger *slog.Logger
}

func NewCachedRepository(repo port.OrderRepository, cache port.OrderCache, logger *slog.Logger) *CachedRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedRepository{OrderRepository: repo, cache: cache, logger: logger}
}

func (c *CachedRepository) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	order, hit, err := c.cache.GetOrder(ctx, id)
	if err != nil {
		c.logger.WarnContext(ctx, "order cache read failed", "order_id", id, "error", err)
	}
	if hit {
		return order, nil
	}

	order, err = c.OrderRepository.GetOrder(ctx, id)
	if err != nil || order == nil {
		return order, err
	}
	if _, err := c.cache.AddOrder(ctx, *order); err != nil {
		c.logger.WarnContext(ctx, "order cache write failed", "order_id", id, "error", err)
	}
	return order, nil
}

func (c *CachedRepository) UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	c.evict(ctx, id)

	order, err := c.OrderRepository.UpdateOrderStatus(ctx, id, status)
	if err != nil || order == nil {
		return order, err
	}
	if err := c.cache.SetOrder(ctx, *order); err != nil {
		c.logger.WarnContext(ctx, "order cache write failed", "order_id", id, "error", err)
	}
	return order, nil
}

func (c *CachedRepository) DeleteOrder(ctx context.Context, id int64) (bool, error) {
	deleted, err := c.OrderRepository.DeleteOrder(ctx, id)
	c.evict(ctx, id)
	return deleted, err
}

func (c *CachedRepository) evict(ctx context.Context, id int64) {
	if err := c.cache.DeleteOrder(ctx, id); err != nil {
		c.logger.WarnContext(ctx, "order cache evict failed", "order_id", id, "error", err)
	}
}

var _ port.OrderRepository = (*CachedRepository)(nil)
