package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"qr-dine/internal/domain"
)

// CartLineVersion is the compare-and-set token for one snapshotted
// cart line: the order is only created if the line still exists with
// the same quantity when the transaction locks the cart.
type CartLineVersion struct {
	ID       int64
	Quantity int
}

type OrderRepositoryInterface interface {
	// CreateOrderTx runs the whole order creation as one transaction:
	// desk upsert to occupied, order + items + status-log inserts and
	// deletion of the snapshotted cart lines. A cart changed since the
	// snapshot fails with ErrConflict and nothing is persisted.
	CreateOrderTx(ctx context.Context, o domain.Order, items []domain.OrderItem, desk domain.Desk, snapshot []CartLineVersion) (domain.Order, error)
	Get(ctx context.Context, orderID string) (domain.OrderWithItems, error)
	GetByIdempotencyKey(ctx context.Context, key string) (domain.OrderWithItems, error)
	ListBySession(ctx context.Context, sessionID string) ([]domain.OrderWithItems, error)
	// TransitionStatus validates and applies one state-machine edge,
	// re-deriving the desk's occupancy in the same transaction.
	TransitionStatus(ctx context.Context, orderID, shopID string, newStatus domain.OrderStatus) (old domain.OrderStatus, deskID string, err error)
	MarkPaid(ctx context.Context, orderID string) (domain.Order, error)
}

type OrderRepository struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) OrderRepositoryInterface {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) CreateOrderTx(ctx context.Context, o domain.Order, items []domain.OrderItem, desk domain.Desk, snapshot []CartLineVersion) (domain.Order, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.Order{}, translateErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Lock the session's cart and verify it still matches the snapshot
	// the order was priced from.
	rows, err := tx.Query(ctx, `
		SELECT id, quantity FROM cart_items WHERE session_id = $1 FOR UPDATE
	`, o.SessionID)
	if err != nil {
		return domain.Order{}, translateErr(err)
	}
	current := make(map[int64]int)
	for rows.Next() {
		var id int64
		var qty int
		if err := rows.Scan(&id, &qty); err != nil {
			rows.Close()
			return domain.Order{}, err
		}
		current[id] = qty
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return domain.Order{}, translateErr(err)
	}
	for _, line := range snapshot {
		if qty, ok := current[line.ID]; !ok || qty != line.Quantity {
			return domain.Order{}, fmt.Errorf("cart changed since snapshot: %w", domain.ErrConflict)
		}
	}

	// Desks are provisioned lazily on first order for the table.
	if err := tx.QueryRow(ctx, `
		INSERT INTO desks (id, shop_id, number, occupancy)
		VALUES ($1, $2, $3, 'occupied')
		ON CONFLICT (shop_id, number) DO UPDATE SET occupancy = 'occupied'
		RETURNING id
	`, desk.ID, desk.ShopID, desk.Number).Scan(&o.DeskID); err != nil {
		return domain.Order{}, fmt.Errorf("upsert desk: %w", translateErr(err))
	}

	var key any
	if o.IdempotencyKey != "" {
		key = o.IdempotencyKey
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO orders
			(id, session_id, desk_id, shop_id, status, subtotal_cents, service_fee_cents,
			 total_cents, paid, idempotency_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
	`, o.ID, o.SessionID, o.DeskID, o.ShopID, string(o.Status), o.SubtotalCents,
		o.ServiceFeeCents, o.TotalCents, o.Paid, key, o.CreatedAt); err != nil {
		if isUniqueViolation(err, "orders_idempotency_key_key") {
			return domain.Order{}, fmt.Errorf("idempotency key replay: %w", domain.ErrConflict)
		}
		return domain.Order{}, fmt.Errorf("insert order: %w", translateErr(err))
	}

	for _, it := range items {
		custom, err := json.Marshal(it.Customizations)
		if err != nil {
			return domain.Order{}, fmt.Errorf("encode customizations: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (order_id, menu_item_id, item_name, quantity, unit_price_cents, customizations)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, o.ID, it.MenuItemID, it.ItemName, it.Quantity, it.UnitPriceCents, custom); err != nil {
			return domain.Order{}, fmt.Errorf("insert order item %s: %w", it.ItemName, translateErr(err))
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO order_status_log (order_id, status, changed_by, changed_at)
		VALUES ($1, $2, 'order-service', $3)
	`, o.ID, string(o.Status), o.CreatedAt); err != nil {
		return domain.Order{}, fmt.Errorf("insert status log: %w", translateErr(err))
	}

	if len(snapshot) > 0 {
		ids := make([]int64, 0, len(snapshot))
		for _, line := range snapshot {
			ids = append(ids, line.ID)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE id = ANY($1)`, ids); err != nil {
			return domain.Order{}, fmt.Errorf("clear cart: %w", translateErr(err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, translateErr(err)
	}
	return o, nil
}

func (r *OrderRepository) Get(ctx context.Context, orderID string) (domain.OrderWithItems, error) {
	return r.getOne(ctx, `WHERE id = $1`, orderID)
}

func (r *OrderRepository) GetByIdempotencyKey(ctx context.Context, key string) (domain.OrderWithItems, error) {
	return r.getOne(ctx, `WHERE idempotency_key = $1`, key)
}

func (r *OrderRepository) getOne(ctx context.Context, where string, arg any) (domain.OrderWithItems, error) {
	var o domain.Order
	var status string
	var key *string
	err := r.db.QueryRow(ctx, `
		SELECT id, session_id, desk_id, shop_id, status, subtotal_cents, service_fee_cents,
		       total_cents, paid, idempotency_key, created_at, updated_at
		FROM orders `+where, arg).Scan(&o.ID, &o.SessionID, &o.DeskID, &o.ShopID, &status,
		&o.SubtotalCents, &o.ServiceFeeCents, &o.TotalCents, &o.Paid, &key, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return domain.OrderWithItems{}, translateErr(err)
	}
	o.Status = domain.OrderStatus(status)
	if key != nil {
		o.IdempotencyKey = *key
	}
	items, err := r.itemsFor(ctx, o.ID)
	if err != nil {
		return domain.OrderWithItems{}, err
	}
	return domain.OrderWithItems{Order: o, Items: items}, nil
}

func (r *OrderRepository) itemsFor(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT order_id, menu_item_id, item_name, quantity, unit_price_cents, customizations
		FROM order_items WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		var custom []byte
		if err := rows.Scan(&it.OrderID, &it.MenuItemID, &it.ItemName, &it.Quantity, &it.UnitPriceCents, &custom); err != nil {
			return nil, err
		}
		if len(custom) > 0 {
			if err := json.Unmarshal(custom, &it.Customizations); err != nil {
				return nil, fmt.Errorf("decode customizations for order %s: %w", orderID, err)
			}
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *OrderRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.OrderWithItems, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, session_id, desk_id, shop_id, status, subtotal_cents, service_fee_cents,
		       total_cents, paid, created_at, updated_at
		FROM orders WHERE session_id = $1
		ORDER BY created_at
	`, sessionID)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []domain.OrderWithItems
	for rows.Next() {
		var o domain.Order
		var status string
		if err := rows.Scan(&o.ID, &o.SessionID, &o.DeskID, &o.ShopID, &status,
			&o.SubtotalCents, &o.ServiceFeeCents, &o.TotalCents, &o.Paid, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		o.Status = domain.OrderStatus(status)
		out = append(out, domain.OrderWithItems{Order: o})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		items, err := r.itemsFor(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

func (r *OrderRepository) TransitionStatus(ctx context.Context, orderID, shopID string, newStatus domain.OrderStatus) (domain.OrderStatus, string, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return "", "", translateErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var oldRaw, deskID string
	err = tx.QueryRow(ctx, `
		SELECT status, desk_id FROM orders
		WHERE id = $1 AND shop_id = $2
		FOR UPDATE
	`, orderID, shopID).Scan(&oldRaw, &deskID)
	if err != nil {
		return "", "", translateErr(err)
	}
	old := domain.OrderStatus(oldRaw)
	if !domain.CanTransition(old, newStatus) {
		return old, deskID, fmt.Errorf("%s -> %s: %w", old, newStatus, domain.ErrInvalidTransition)
	}

	now := time.Now().UTC()
	if _, err := tx.Exec(ctx, `
		UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1
	`, orderID, string(newStatus), now); err != nil {
		return "", "", translateErr(err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO order_status_log (order_id, status, changed_by, changed_at)
		VALUES ($1, $2, 'admin', $3)
	`, orderID, string(newStatus), now); err != nil {
		return "", "", translateErr(err)
	}
	if _, err := tx.Exec(ctx, recomputeOccupancySQL, deskID); err != nil {
		return "", "", translateErr(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return "", "", translateErr(err)
	}
	return old, deskID, nil
}

func (r *OrderRepository) MarkPaid(ctx context.Context, orderID string) (domain.Order, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.Order{}, translateErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var o domain.Order
	var status string
	err = tx.QueryRow(ctx, `
		SELECT id, session_id, desk_id, shop_id, status, subtotal_cents, service_fee_cents,
		       total_cents, paid, created_at, updated_at
		FROM orders WHERE id = $1
		FOR UPDATE
	`, orderID).Scan(&o.ID, &o.SessionID, &o.DeskID, &o.ShopID, &status,
		&o.SubtotalCents, &o.ServiceFeeCents, &o.TotalCents, &o.Paid, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return domain.Order{}, translateErr(err)
	}
	o.Status = domain.OrderStatus(status)

	if !o.Paid {
		now := time.Now().UTC()
		if _, err := tx.Exec(ctx, `
			UPDATE orders SET paid = TRUE, updated_at = $2 WHERE id = $1
		`, orderID, now); err != nil {
			return domain.Order{}, translateErr(err)
		}
		o.Paid = true
		o.UpdatedAt = now
	}
	if _, err := tx.Exec(ctx, recomputeOccupancySQL, o.DeskID); err != nil {
		return domain.Order{}, translateErr(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, translateErr(err)
	}
	return o, nil
}
