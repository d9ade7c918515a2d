// Package repository holds the Postgres persistence layer. Each
// repository exposes a small interface so services can be exercised
// against in-memory fakes in tests.
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"qr-dine/internal/domain"
)

// recomputeOccupancySQL re-derives a desk's occupancy from its orders.
// Running it inside every mutating transaction keeps the invariant
// "occupied iff an unpaid order in pending/preparing/ready exists"
// true after each commit.
const recomputeOccupancySQL = `
UPDATE desks SET occupancy = CASE WHEN EXISTS (
	SELECT 1 FROM orders
	WHERE desk_id = $1
	  AND paid = FALSE
	  AND status IN ('pending','preparing','ready')
) THEN 'occupied' ELSE 'available' END
WHERE id = $1`

// translateErr maps driver errors onto the domain taxonomy.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return domain.ErrConflict
		}
	}
	return err
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}
