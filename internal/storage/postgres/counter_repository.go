package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CounterRepository backs the ID generator with one durable row per entity
// type.
type CounterRepository struct {
	pool *pgxpool.Pool
}

func NewCounterRepository(pool *pgxpool.Pool) *CounterRepository {
	return &CounterRepository{pool: pool}
}

// Next atomically increments the counter for entity and returns the new value.
// The upsert makes concurrent first use safe: both racers contend on the same
// row and each still gets a distinct value.
func (r *CounterRepository) Next(ctx context.Context, entity string) (int64, error) {
	const stmt = `
INSERT INTO id_counters (entity, value)
VALUES ($1, 1)
ON CONFLICT (entity) DO UPDATE SET value = id_counters.value + 1
RETURNING value`

	var value int64
	if err := r.pool.QueryRow(ctx, stmt, entity).Scan(&value); err != nil {
		return 0, fmt.Errorf("next id for %s: %w", entity, err)
	}
	return value, nil
}
