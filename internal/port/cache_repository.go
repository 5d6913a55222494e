package port

import (
	"context"

	"github.com/rl1809/order-service/internal/core/domain"
)

type OrderCache interface {
	// GetOrder returns false on a cache miss
	GetOrder(ctx context.Context, id int64) (*domain.Order, bool, error)

	// SetOrder overwrites the entry with a newer state of the order
	SetOrder(ctx context.Context, order domain.Order) error

	// AddOrder stores order only when neither an entry nor a tombstone exists for its id,
	// returns false when nothing was written
	AddOrder(ctx context.Context, order domain.Order) (bool, error)

	// DeleteOrder replaces the entry with a tombstone that blocks AddOrder until it expires
	DeleteOrder(ctx context.Context, id int64) error
}

type IdempotencyStore interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ReleaseIdempotency frees a key so a failed request can be retried with it
	ReleaseIdempotency(ctx context.Context, key string) error
}

type RateLimiter interface {
	// Allow counts one hit for key in the current window and reports whether it is within limit
	Allow(ctx context.Context, key string) (bool, error)
}
