package handler

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/rl1809/order-service/internal/core/domain"
	"github.com/rl1809/order-service/internal/core/service"
)

type fakeService struct {
	mu sync.Mutex

	createIn  service.CreateOrderInput
	created   domain.Order
	order     domain.Order
	orders    []domain.Order
	gotID     int64
	gotStatus string
	err       error
}

func (f *fakeService) Create(ctx context.Context, in service.CreateOrderInput) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createIn = in
	return f.created, f.err
}

func (f *fakeService) Get(ctx context.Context, id int64) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotID = id
	return f.order, f.err
}

func (f *fakeService) UpdateStatus(ctx context.Context, id int64, status string) (domain.OrderStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotID = id
	f.gotStatus = status
	if f.err != nil {
		return domain.OrderStatusUnset, f.err
	}
	return domain.OrderStatus(status), nil
}

func (f *fakeService) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotID = id
	return f.err
}

func (f *fakeService) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotID = userID
	return f.orders, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
