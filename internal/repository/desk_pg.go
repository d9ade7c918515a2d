package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"qr-dine/internal/domain"
)

type DeskRepositoryInterface interface {
	Get(ctx context.Context, deskID string) (domain.Desk, error)
	List(ctx context.Context, shopID string) ([]domain.Desk, error)
	// Release is the administrative recovery path: cancels lingering
	// non-terminal orders, clears carts of sessions bound to the desk
	// and forces the desk available, all in one transaction.
	Release(ctx context.Context, deskID string) (cancelledOrders int, err error)
}

type DeskRepository struct {
	db *pgxpool.Pool
}

func NewDeskRepository(db *pgxpool.Pool) DeskRepositoryInterface {
	return &DeskRepository{db: db}
}

func (r *DeskRepository) Get(ctx context.Context, deskID string) (domain.Desk, error) {
	var d domain.Desk
	var occ string
	err := r.db.QueryRow(ctx, `
		SELECT id, shop_id, number, occupancy FROM desks WHERE id = $1
	`, deskID).Scan(&d.ID, &d.ShopID, &d.Number, &occ)
	if err != nil {
		return domain.Desk{}, translateErr(err)
	}
	d.Occupancy = domain.Occupancy(occ)
	return d, nil
}

func (r *DeskRepository) List(ctx context.Context, shopID string) ([]domain.Desk, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, shop_id, number, occupancy FROM desks
		WHERE shop_id = $1
		ORDER BY number
	`, shopID)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []domain.Desk
	for rows.Next() {
		var d domain.Desk
		var occ string
		if err := rows.Scan(&d.ID, &d.ShopID, &d.Number, &occ); err != nil {
			return nil, err
		}
		d.Occupancy = domain.Occupancy(occ)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *DeskRepository) Release(ctx context.Context, deskID string) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, translateErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var shopID, number string
	err = tx.QueryRow(ctx, `
		SELECT shop_id, number FROM desks WHERE id = $1 FOR UPDATE
	`, deskID).Scan(&shopID, &number)
	if err != nil {
		return 0, translateErr(err)
	}

	rows, err := tx.Query(ctx, `
		UPDATE orders SET status = 'cancelled', updated_at = now()
		WHERE desk_id = $1 AND status IN ('pending','preparing','ready')
		RETURNING id
	`, deskID)
	if err != nil {
		return 0, fmt.Errorf("cancel desk orders: %w", translateErr(err))
	}
	var cancelledIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		cancelledIDs = append(cancelledIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, translateErr(err)
	}
	cancelled := len(cancelledIDs)

	for _, id := range cancelledIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_status_log (order_id, status, changed_by, changed_at)
			VALUES ($1, 'cancelled', 'admin-release', now())
		`, id); err != nil {
			return 0, translateErr(err)
		}
	}

	// Sessions are bound to the desk through shop + table number.
	if _, err := tx.Exec(ctx, `
		DELETE FROM cart_items WHERE session_id IN (
			SELECT id FROM sessions WHERE shop_id = $1 AND table_number = $2
		)
	`, shopID, number); err != nil {
		return 0, fmt.Errorf("clear desk carts: %w", translateErr(err))
	}

	if _, err := tx.Exec(ctx, `
		UPDATE desks SET occupancy = 'available' WHERE id = $1
	`, deskID); err != nil {
		return 0, translateErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, translateErr(err)
	}
	return cancelled, nil
}
