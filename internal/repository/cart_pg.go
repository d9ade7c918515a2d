package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"qr-dine/internal/domain"
)

type CartRepositoryInterface interface {
	// Upsert inserts a new line or, when a line with the same
	// (session, menu item, signature) identity exists, adds the
	// quantity to it. A non-empty special_instructions on the new add
	// replaces the stored one. Single statement, so concurrent adds
	// for the same session cannot lose increments.
	Upsert(ctx context.Context, item domain.CartItem) error
	GetItems(ctx context.Context, sessionID string) ([]domain.CartItem, error)
	UpdateQuantity(ctx context.Context, sessionID, menuItemID string, quantity int) error
	Remove(ctx context.Context, sessionID, menuItemID string) error
	Clear(ctx context.Context, sessionID string) error
}

type CartRepository struct {
	db *pgxpool.Pool
}

func NewCartRepository(db *pgxpool.Pool) CartRepositoryInterface {
	return &CartRepository{db: db}
}

func (r *CartRepository) Upsert(ctx context.Context, item domain.CartItem) error {
	custom, err := json.Marshal(item.Customizations)
	if err != nil {
		return fmt.Errorf("encode customizations: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO cart_items
			(session_id, menu_item_id, item_name, quantity, customizations, signature,
			 special_instructions, customization_cost_cents, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (session_id, menu_item_id, signature) DO UPDATE
			SET quantity = cart_items.quantity + EXCLUDED.quantity,
			    special_instructions = CASE WHEN EXCLUDED.special_instructions <> ''
			        THEN EXCLUDED.special_instructions
			        ELSE cart_items.special_instructions END
	`, item.SessionID, item.MenuItemID, item.ItemName, item.Quantity, custom, item.Signature,
		item.SpecialInstructions, item.CustomizationCostCents, item.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert cart item: %w", translateErr(err))
	}
	return nil
}

func (r *CartRepository) GetItems(ctx context.Context, sessionID string) ([]domain.CartItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, session_id, menu_item_id, item_name, quantity, customizations,
		       signature, special_instructions, customization_cost_cents, created_at
		FROM cart_items WHERE session_id = $1
		ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []domain.CartItem
	for rows.Next() {
		var it domain.CartItem
		var custom []byte
		if err := rows.Scan(&it.ID, &it.SessionID, &it.MenuItemID, &it.ItemName, &it.Quantity,
			&custom, &it.Signature, &it.SpecialInstructions, &it.CustomizationCostCents, &it.CreatedAt); err != nil {
			return nil, err
		}
		if len(custom) > 0 {
			if err := json.Unmarshal(custom, &it.Customizations); err != nil {
				return nil, fmt.Errorf("decode customizations for cart line %d: %w", it.ID, err)
			}
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *CartRepository) UpdateQuantity(ctx context.Context, sessionID, menuItemID string, quantity int) error {
	if quantity <= 0 {
		return r.Remove(ctx, sessionID, menuItemID)
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE cart_items SET quantity = $3
		WHERE session_id = $1 AND menu_item_id = $2
	`, sessionID, menuItemID, quantity)
	if err != nil {
		return translateErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CartRepository) Remove(ctx context.Context, sessionID, menuItemID string) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM cart_items WHERE session_id = $1 AND menu_item_id = $2
	`, sessionID, menuItemID)
	if err != nil {
		return translateErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CartRepository) Clear(ctx context.Context, sessionID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE session_id = $1`, sessionID)
	return translateErr(err)
}
