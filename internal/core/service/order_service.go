package service

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/rl1809/order-service/internal/clock"
	"github.com/rl1809/order-service/internal/core/domain"
	"github.com/rl1809/order-service/internal/port"
)

const resourceOrder = "order"

// CreateOrderInput carries fields as decoded from a request body. Types are
// checked here so every caller gets the same per-field errors.
type CreateOrderInput struct {
	UserID      any
	ProductList any
	TotalAmount any
}

type OrderService struct {
	repo       port.OrderRepository
	dispatcher port.EventDispatcher
	clock      clock.Clock
	validate   *validator.Validate
	logger     *slog.Logger
}

func NewOrderService(repo port.OrderRepository, dispatcher port.EventDispatcher, clk clock.Clock, logger *slog.Logger) *OrderService {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderService{
		repo:       repo,
		dispatcher: dispatcher,
		clock:      clk,
		validate:   newValidator(),
		logger:     logger,
	}
}

func (s *OrderService) Create(ctx context.Context, in CreateOrderInput) (domain.Order, error) {
	fields := newCreateOrderFields(in)
	if err := s.validate.Struct(fields); err != nil {
		return domain.Order{}, toValidationError(err)
	}
	userID, _ := strconv.ParseInt(fields.UserID, 10, 64)
	total, _ := decimal.NewFromString(fields.TotalAmount)

	now := s.clock.Now()
	created, err := s.repo.CreateOrder(ctx, domain.Order{
		UserID:      userID,
		OrderDate:   now,
		ProductList: fields.ProductList,
		Status:      domain.OrderStatusUnset,
		TotalAmount: total,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return domain.Order{}, &domain.PersistenceError{Op: "create order", Err: err}
	}

	s.logger.InfoContext(ctx, "order created", "order_id", created.ID, "user_id", created.UserID)
	s.dispatcher.Dispatch(ctx, domain.NewEvent(domain.EventProcessOrder, created, now))

	return created, nil
}

func (s *OrderService) Get(ctx context.Context, id int64) (domain.Order, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return domain.Order{}, &domain.PersistenceError{Op: "get order", Err: err}
	}
	if order == nil {
		return domain.Order{}, &domain.NotFoundError{Resource: resourceOrder, ID: id}
	}
	return *order, nil
}

// UpdateStatus sets a new status and emits the notification tied to it.
func (s *OrderService) UpdateStatus(ctx context.Context, id int64, status string) (domain.OrderStatus, error) {
	existing, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return domain.OrderStatusUnset, &domain.PersistenceError{Op: "get order", Err: err}
	}
	if existing == nil {
		return domain.OrderStatusUnset, &domain.NotFoundError{Resource: resourceOrder, ID: id}
	}

	if err := s.validate.Struct(updateStatusFields{Status: status}); err != nil {
		return domain.OrderStatusUnset, toValidationError(err)
	}
	next := domain.OrderStatus(status)

	updated, err := s.repo.UpdateOrderStatus(ctx, id, next)
	if err != nil {
		return domain.OrderStatusUnset, &domain.PersistenceError{Op: "update order status", Err: err}
	}
	if updated == nil {
		// removed between lookup and update
		return domain.OrderStatusUnset, &domain.NotFoundError{Resource: resourceOrder, ID: id}
	}

	s.logger.InfoContext(ctx, "order status updated", "order_id", id, "from", existing.Status, "to", updated.Status)

	if name, ok := domain.EventForStatus(updated.Status); ok {
		s.dispatcher.Dispatch(ctx, domain.NewEvent(name, *updated, s.clock.Now()))
	}

	return updated.Status, nil
}

func (s *OrderService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.repo.DeleteOrder(ctx, id)
	if err != nil {
		return &domain.PersistenceError{Op: "delete order", Err: err}
	}
	if !deleted {
		return &domain.NotFoundError{Resource: resourceOrder, ID: id}
	}

	s.logger.InfoContext(ctx, "order deleted", "order_id", id)
	return nil
}

// ListByUser never returns a nil slice.
func (s *OrderService) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	orders, err := s.repo.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list orders", Err: err}
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}
