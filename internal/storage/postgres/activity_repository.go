package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/liuchongliu35-ctrl/hadoop-mall/internal/domain"
)

type ActivityRepository struct {
	pool *pgxpool.Pool
}

func NewActivityRepository(pool *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{pool: pool}
}

const activityColumns = `id, product_id, name, sale_price_cents, sale_stock, start_time, end_time, status, deleted, created_at, updated_at`

func scanActivity(row pgx.Row) (domain.Activity, error) {
	var a domain.Activity
	err := row.Scan(
		&a.ID,
		&a.ProductID,
		&a.Name,
		&a.SalePriceCents,
		&a.SaleStock,
		&a.StartTime,
		&a.EndTime,
		&a.Status,
		&a.Deleted,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	return a, err
}

func (r *ActivityRepository) Get(ctx context.Context, id int64) (domain.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE id = $1 AND NOT deleted`
	a, err := scanActivity(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Activity{}, fmt.Errorf("activity %d: %w", id, domain.ErrNotFound)
		}
		return domain.Activity{}, fmt.Errorf("get activity: %w", err)
	}
	return a, nil
}

func (r *ActivityRepository) Create(ctx context.Context, a domain.Activity) error {
	const stmt = `
INSERT INTO activities (id, product_id, name, sale_price_cents, sale_stock, start_time, end_time, status, deleted, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, stmt,
		a.ID,
		a.ProductID,
		a.Name,
		a.SalePriceCents,
		a.SaleStock,
		a.StartTime,
		a.EndTime,
		a.Status,
		a.Deleted,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create activity: %w", err)
	}
	return nil
}

func (r *ActivityRepository) Update(ctx context.Context, a domain.Activity) error {
	const stmt = `
UPDATE activities
SET product_id = $2, name = $3, sale_price_cents = $4, sale_stock = $5,
    start_time = $6, end_time = $7, status = $8, deleted = $9, updated_at = $10
WHERE id = $1`

	tag, err := r.pool.Exec(ctx, stmt,
		a.ID,
		a.ProductID,
		a.Name,
		a.SalePriceCents,
		a.SaleStock,
		a.StartTime,
		a.EndTime,
		a.Status,
		a.Deleted,
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update activity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("activity %d: %w", a.ID, domain.ErrNotFound)
	}
	return nil
}

// List returns all non-deleted activities, oldest first. The scheduler sweep
// and the one-live-activity-per-product check both iterate this set.
func (r *ActivityRepository) List(ctx context.Context) ([]domain.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE NOT deleted ORDER BY id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var out []domain.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return out, nil
}
