package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rl1809/order-service/internal/core/domain"
	"github.com/rl1809/order-service/internal/port"
)

// numeric and jsonb travel as text so the adapter does not depend on pgx
// type registrations for decimal.
const pgOrderColumns = `id, user_id, order_date, product_list::text, status, total_amount::text, created_at, updated_at`

type PostgresAdapter struct {
	pool *pgxpool.Pool
}

func NewPostgresAdapter(pool *pgxpool.Pool) *PostgresAdapter {
	return &PostgresAdapter{pool: pool}
}

func OpenPostgres(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

func (p *PostgresAdapter) CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	const stmt = `
INSERT INTO orders (user_id, order_date, product_list, status, total_amount, created_at, updated_at)
VALUES ($1, $2, $3::jsonb, $4, $5::numeric, $6, $7)
RETURNING ` + pgOrderColumns

	stored, err := scanPgOrder(p.pool.QueryRow(ctx, stmt,
		order.UserID, order.OrderDate, string(order.ProductList), pgStatus(order.Status),
		order.TotalAmount.String(), order.CreatedAt, order.UpdatedAt,
	))
	if err != nil {
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}
	return *stored, nil
}

func (p *PostgresAdapter) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	order, err := scanPgOrder(p.pool.QueryRow(ctx, `SELECT `+pgOrderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	return order, nil
}

func (p *PostgresAdapter) UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	const stmt = `
UPDATE orders
SET status = $2, updated_at = $3
WHERE id = $1
RETURNING ` + pgOrderColumns

	order, err := scanPgOrder(p.pool.QueryRow(ctx, stmt, id, pgStatus(status), time.Now().UTC()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	return order, nil
}

func (p *PostgresAdapter) DeleteOrder(ctx context.Context, id int64) (bool, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete order: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (p *PostgresAdapter) ListOrdersByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+pgOrderColumns+` FROM orders WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		order, err := scanPgOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}

func (p *PostgresAdapter) Close() error {
	p.pool.Close()
	return nil
}

func scanPgOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o        domain.Order
		products string
		status   *string
		total    string
	)
	if err := row.Scan(&o.ID, &o.UserID, &o.OrderDate, &products, &status, &total, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("parse total_amount %q: %w", total, err)
	}

	o.ProductList = []byte(products)
	if status != nil {
		o.Status = domain.OrderStatus(*status)
	}
	o.TotalAmount = amount
	o.OrderDate = o.OrderDate.UTC()
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return &o, nil
}

func pgStatus(s domain.OrderStatus) *string {
	if s == domain.OrderStatusUnset {
		return nil
	}
	v := string(s)
	return &v
}

var _ port.OrderRepository = (*PostgresAdapter)(nil)
