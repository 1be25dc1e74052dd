// Package postgres holds the durable keyed-store adapters. Each repository
// wraps a pgxpool and maps driver errors onto domain sentinels. The per-user
// order lookup is backed by an explicit index instead of a table scan; the
// contract callers see is unchanged.
package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
