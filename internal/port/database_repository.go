package port

import (
	"context"

	"github.com/rl1809/order-service/internal/core/domain"
)

type OrderRepository interface {
	// CreateOrder inserts a new order and returns it with its assigned ID
	CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error)

	// GetOrder returns nil without error when the order does not exist
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)

	// UpdateOrderStatus changes only the status column, returns nil when the order does not exist
	UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error)

	// DeleteOrder hard-deletes an order, reports whether a row was removed
	DeleteOrder(ctx context.Context, id int64) (bool, error)

	// ListOrdersByUser returns every order of a user in store order
	ListOrdersByUser(ctx context.Context, userID int64) ([]domain.Order, error)
}
