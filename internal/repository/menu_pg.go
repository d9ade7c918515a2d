package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"qr-dine/internal/domain"
)

type MenuRepositoryInterface interface {
	GetMenuItem(ctx context.Context, shopID, itemID string) (domain.MenuItem, error)
}

type MenuRepository struct {
	db *pgxpool.Pool
}

func NewMenuRepository(db *pgxpool.Pool) MenuRepositoryInterface {
	return &MenuRepository{db: db}
}

func (r *MenuRepository) GetMenuItem(ctx context.Context, shopID, itemID string) (domain.MenuItem, error) {
	var m domain.MenuItem
	var optionsRaw []byte
	err := r.db.QueryRow(ctx, `
		SELECT id, shop_id, name, base_price_cents, options
		FROM menu_items WHERE id = $1 AND shop_id = $2
	`, itemID, shopID).Scan(&m.ID, &m.ShopID, &m.Name, &m.BasePriceCents, &optionsRaw)
	if err != nil {
		return domain.MenuItem{}, translateErr(err)
	}
	if len(optionsRaw) > 0 {
		if err := json.Unmarshal(optionsRaw, &m.Options); err != nil {
			return domain.MenuItem{}, fmt.Errorf("decode options for menu item %s: %w", itemID, err)
		}
	}
	return m, nil
}
