package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/liuchongliu35-ctrl/hadoop-mall/internal/domain"
)

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const orderColumns = `id, order_no, user_id, activity_id, product_id, product_name, sale_price_cents, quantity, total_amount_cents, status, pay_time, deleted, created_at, updated_at`

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID,
		&o.OrderNo,
		&o.UserID,
		&o.ActivityID,
		&o.ProductID,
		&o.ProductName,
		&o.SalePriceCents,
		&o.Quantity,
		&o.TotalAmountCents,
		&o.Status,
		&o.PayTime,
		&o.Deleted,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	return o, err
}

func (r *OrderRepository) Get(ctx context.Context, id int64) (domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND NOT deleted`
	o, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Order{}, fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
		}
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (r *OrderRepository) Create(ctx context.Context, o domain.Order) error {
	const stmt = `
INSERT INTO orders (id, order_no, user_id, activity_id, product_id, product_name, sale_price_cents, quantity, total_amount_cents, status, pay_time, deleted, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.pool.Exec(ctx, stmt,
		o.ID,
		o.OrderNo,
		o.UserID,
		o.ActivityID,
		o.ProductID,
		o.ProductName,
		o.SalePriceCents,
		o.Quantity,
		o.TotalAmountCents,
		o.Status,
		o.PayTime,
		o.Deleted,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		// The partial unique index on (user_id, activity_id) for non-cancelled
		// orders backstops the idempotency check done under the activity lock.
		if isUniqueViolation(err) {
			return fmt.Errorf("user %d activity %d: %w", o.UserID, o.ActivityID, domain.ErrAlreadyParticipated)
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *OrderRepository) Update(ctx context.Context, o domain.Order) error {
	const stmt = `
UPDATE orders
SET status = $2, pay_time = $3, deleted = $4, updated_at = $5
WHERE id = $1`

	tag, err := r.pool.Exec(ctx, stmt, o.ID, o.Status, o.PayTime, o.Deleted, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %d: %w", o.ID, domain.ErrNotFound)
	}
	return nil
}

// FindActiveByUserAndActivity returns the user's non-cancelled order for an
// activity, or nil when none exists.
func (r *OrderRepository) FindActiveByUserAndActivity(ctx context.Context, userID, activityID int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + `
FROM orders
WHERE user_id = $1 AND activity_id = $2 AND status <> $3 AND NOT deleted`

	o, err := scanOrder(r.pool.QueryRow(ctx, query, userID, activityID, domain.OrderCancelled))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find order by user and activity: %w", err)
	}
	return &o, nil
}

// ListByUser returns the user's orders, newest first, optionally filtered by
// status.
func (r *OrderRepository) ListByUser(ctx context.Context, userID int64, status *domain.OrderStatus) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 AND NOT deleted`
	args := []any{userID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders by user: %w", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders by user: %w", err)
	}
	return out, nil
}
