package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/order-service/internal/core/domain"
	"github.com/rl1809/order-service/internal/port"
)

const (
	orderKeyPrefix       = "order:"
	idempotencyKeyPrefix = "idempotency:"
	rateLimitKeyPrefix   = "ratelimit:"
	idempotencyKeyTTL    = 24 * time.Hour

	// stored in place of a deleted order; never valid JSON for an order
	orderTombstone = "-"
)

// fixed window: first hit in a window sets the expiry
var rateLimitScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])

local current = redis.call('INCR', key)
if current == 1 then
	redis.call('PEXPIRE', key, window_ms)
end

if current > limit then
	return 0
end

return 1
`)

type RedisAdapter struct {
	client   *redis.Client
	orderTTL time.Duration
	limit    int
	window   time.Duration
}

type RedisOption func(*RedisAdapter)

func WithOrderTTL(d time.Duration) RedisOption { return func(r *RedisAdapter) { r.orderTTL = d } }

// WithRateLimit sets requests allowed per window for Allow.
func WithRateLimit(limit int, window time.Duration) RedisOption {
	return func(r *RedisAdapter) {
		r.limit = limit
		r.window = window
	}
}

func NewRedisAdapter(client *redis.Client, opts ...RedisOption) *RedisAdapter {
	r := &RedisAdapter{
		client:   client,
		orderTTL: 10 * time.Minute,
		limit:    60,
		window:   time.Minute,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// cachedOrder keeps the timestamps the API encoding drops.
type cachedOrder struct {
	domain.Order
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func encodeOrder(o domain.Order) ([]byte, error) {
	return json.Marshal(cachedOrder{Order: o, CreatedAt: o.CreatedAt, UpdatedAt: o.UpdatedAt})
}

func decodeOrder(b []byte) (*domain.Order, error) {
	var c cachedOrder
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	o := c.Order
	o.CreatedAt = c.CreatedAt
	o.UpdatedAt = c.UpdatedAt
	return &o, nil
}

func orderKey(id int64) string {
	return orderKeyPrefix + strconv.FormatInt(id, 10)
}

func (r *RedisAdapter) GetOrder(ctx context.Context, id int64) (*domain.Order, bool, error) {
	b, err := r.client.Get(ctx, orderKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached order: %w", err)
	}
	if string(b) == orderTombstone {
		return nil, false, nil
	}

	order, err := decodeOrder(b)
	if err != nil {
		return nil, false, fmt.Errorf("decode cached order: %w", err)
	}
	return order, true, nil
}

func (r *RedisAdapter) SetOrder(ctx context.Context, order domain.Order) error {
	b, err := encodeOrder(order)
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}
	return r.client.Set(ctx, orderKey(order.ID), b, r.orderTTL).Err()
}

func (r *RedisAdapter) AddOrder(ctx context.Context, order domain.Order) (bool, error) {
	b, err := encodeOrder(order)
	if err != nil {
		return false, fmt.Errorf("encode order: %w", err)
	}
	return r.client.SetNX(ctx, orderKey(order.ID), b, r.orderTTL).Result()
}

func (r *RedisAdapter) DeleteOrder(ctx context.Context, id int64) error {
	return r.client.Set(ctx, orderKey(id), orderTombstone, r.orderTTL).Err()
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ReleaseIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, idempotencyKeyPrefix+key).Err()
}

func (r *RedisAdapter) Allow(ctx context.Context, key string) (bool, error) {
	result, err := rateLimitScript.Run(ctx, r.client, []string{rateLimitKeyPrefix + key}, r.limit, r.window.Milliseconds()).Int()
	if err != nil {
		return false, err
	}

	return result == 1, nil
}

var (
	_ port.OrderCache       = (*RedisAdapter)(nil)
	_ port.IdempotencyStore = (*RedisAdapter)(nil)
	_ port.RateLimiter      = (*RedisAdapter)(nil)
)
