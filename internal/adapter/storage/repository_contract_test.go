package storage

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/order-service/internal/core/domain"
	"github.com/rl1809/order-service/internal/port"
)

func newTestOrder(userID int64, at time.Time) domain.Order {
	return domain.Order{
		UserID:      userID,
		OrderDate:   at,
		ProductList: json.RawMessage(`[{"product_id":1,"ean":"0123456789123","name":"Goleador","qty":150,"price":0.1}]`),
		TotalAmount: decimal.RequireFromString("15"),
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}

// testOrderRepository exercises the behaviour every OrderRepository must share.
func testOrderRepository(t *testing.T, repo port.OrderRepository) {
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Millisecond)
	userID := at.UnixNano() % 1_000_000_000

	t.Run("create and get", func(t *testing.T) {
		created, err := repo.CreateOrder(ctx, newTestOrder(userID, at))
		require.NoError(t, err)
		require.NotZero(t, created.ID)

		got, err := repo.GetOrder(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, got)

		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, userID, got.UserID)
		assert.True(t, at.Equal(got.OrderDate), "order_date %v != %v", got.OrderDate, at)
		assert.JSONEq(t, string(created.ProductList), string(got.ProductList))
		assert.Equal(t, domain.OrderStatusUnset, got.Status)
		assert.True(t, decimal.NewFromInt(15).Equal(got.TotalAmount), "total %s", got.TotalAmount)
	})

	t.Run("create returns the stored row", func(t *testing.T) {
		order := newTestOrder(userID, time.Now().UTC())
		order.TotalAmount = decimal.RequireFromString("0.125")

		created, err := repo.CreateOrder(ctx, order)
		require.NoError(t, err)

		got, err := repo.GetOrder(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, got)

		assert.True(t, created.TotalAmount.Equal(got.TotalAmount), "created %s, stored %s", created.TotalAmount, got.TotalAmount)
		assert.True(t, created.OrderDate.Equal(got.OrderDate), "created %v, stored %v", created.OrderDate, got.OrderDate)
		assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
		assert.JSONEq(t, string(got.ProductList), string(created.ProductList))
	})

	t.Run("get missing", func(t *testing.T) {
		got, err := repo.GetOrder(ctx, -1)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("update status changes only status", func(t *testing.T) {
		created, err := repo.CreateOrder(ctx, newTestOrder(userID, at))
		require.NoError(t, err)

		updated, err := repo.UpdateOrderStatus(ctx, created.ID, domain.OrderStatusShipped)
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.Equal(t, domain.OrderStatusShipped, updated.Status)
		assert.True(t, at.Equal(updated.OrderDate))
		assert.True(t, created.TotalAmount.Equal(updated.TotalAmount))

		// same value twice still finds the row
		again, err := repo.UpdateOrderStatus(ctx, created.ID, domain.OrderStatusShipped)
		require.NoError(t, err)
		require.NotNil(t, again)

		got, err := repo.GetOrder(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusShipped, got.Status)
	})

	t.Run("update missing", func(t *testing.T) {
		updated, err := repo.UpdateOrderStatus(ctx, -1, domain.OrderStatusCompleted)
		require.NoError(t, err)
		assert.Nil(t, updated)
	})

	t.Run("delete", func(t *testing.T) {
		created, err := repo.CreateOrder(ctx, newTestOrder(userID, at))
		require.NoError(t, err)

		deleted, err := repo.DeleteOrder(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		got, err := repo.GetOrder(ctx, created.ID)
		require.NoError(t, err)
		assert.Nil(t, got)

		deleted, err = repo.DeleteOrder(ctx, created.ID)
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("list by user", func(t *testing.T) {
		owner := userID + 1
		first, err := repo.CreateOrder(ctx, newTestOrder(owner, at))
		require.NoError(t, err)
		second, err := repo.CreateOrder(ctx, newTestOrder(owner, at))
		require.NoError(t, err)
		_, err = repo.CreateOrder(ctx, newTestOrder(owner+1, at))
		require.NoError(t, err)

		orders, err := repo.ListOrdersByUser(ctx, owner)
		require.NoError(t, err)
		require.Len(t, orders, 2)
		assert.Equal(t, first.ID, orders[0].ID)
		assert.Equal(t, second.ID, orders[1].ID)

		none, err := repo.ListOrdersByUser(ctx, -42)
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})
}
