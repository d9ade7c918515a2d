package service

import (
	"context"
	"fmt"
	"time"

	"qr-dine/internal/common/logger"
	"qr-dine/internal/domain"
	"qr-dine/internal/pricing"
	"qr-dine/internal/repository"
)

type CartServiceInterface interface {
	AddItem(ctx context.Context, sessionID string, req domain.AddCartItemRequest) (domain.CartResponse, error)
	GetCart(ctx context.Context, sessionID string) (domain.CartResponse, error)
	UpdateQuantity(ctx context.Context, sessionID, menuItemID string, quantity int) (domain.CartResponse, error)
	RemoveItem(ctx context.Context, sessionID, menuItemID string) (domain.CartResponse, error)
	Clear(ctx context.Context, sessionID string) error
}

type CartService struct {
	sessions SessionServiceInterface
	menu     repository.MenuRepositoryInterface
	repo     repository.CartRepositoryInterface
	feeBps   int64
	lg       *logger.Logger
}

func NewCartService(sessions SessionServiceInterface, menu repository.MenuRepositoryInterface,
	repo repository.CartRepositoryInterface, feeBps int64, lg *logger.Logger) CartServiceInterface {
	if feeBps <= 0 {
		feeBps = pricing.DefaultServiceFeeBps
	}
	return &CartService{sessions: sessions, menu: menu, repo: repo, feeBps: feeBps, lg: lg}
}

func (s *CartService) AddItem(ctx context.Context, sessionID string, req domain.AddCartItemRequest) (domain.CartResponse, error) {
	sess, err := s.sessions.Validate(ctx, sessionID)
	if err != nil {
		return domain.CartResponse{}, err
	}
	if req.Quantity < 1 {
		return domain.CartResponse{}, fmt.Errorf("quantity must be at least 1: %w", domain.ErrValidation)
	}
	item, err := s.menu.GetMenuItem(ctx, sess.ShopID, req.MenuItemID)
	if err != nil {
		return domain.CartResponse{}, fmt.Errorf("menu item %s: %w", req.MenuItemID, err)
	}
	if err := validateSelections(item, req.Customizations); err != nil {
		return domain.CartResponse{}, err
	}

	line := domain.CartItem{
		SessionID:              sessionID,
		MenuItemID:             item.ID,
		ItemName:               item.Name,
		Quantity:               req.Quantity,
		Customizations:         req.Customizations,
		Signature:              req.Customizations.Signature(),
		SpecialInstructions:    req.SpecialInstructions,
		CustomizationCostCents: pricing.CustomizationCost(item, req.Customizations),
		CreatedAt:              time.Now().UTC(),
	}
	if err := s.repo.Upsert(ctx, line); err != nil {
		return domain.CartResponse{}, err
	}
	if err := s.sessions.Touch(ctx, sessionID); err != nil {
		s.lg.Error("session_touch_failed", err, map[string]any{"session_id": sessionID})
	}
	s.lg.Debug("cart_item_added", map[string]any{
		"session_id": sessionID, "menu_item_id": item.ID, "quantity": req.Quantity,
	})
	return s.buildCart(ctx, sessionID)
}

func (s *CartService) GetCart(ctx context.Context, sessionID string) (domain.CartResponse, error) {
	if _, err := s.sessions.Validate(ctx, sessionID); err != nil {
		return domain.CartResponse{}, err
	}
	return s.buildCart(ctx, sessionID)
}

func (s *CartService) UpdateQuantity(ctx context.Context, sessionID, menuItemID string, quantity int) (domain.CartResponse, error) {
	if _, err := s.sessions.Validate(ctx, sessionID); err != nil {
		return domain.CartResponse{}, err
	}
	if err := s.repo.UpdateQuantity(ctx, sessionID, menuItemID, quantity); err != nil {
		return domain.CartResponse{}, err
	}
	if err := s.sessions.Touch(ctx, sessionID); err != nil {
		s.lg.Error("session_touch_failed", err, map[string]any{"session_id": sessionID})
	}
	return s.buildCart(ctx, sessionID)
}

func (s *CartService) RemoveItem(ctx context.Context, sessionID, menuItemID string) (domain.CartResponse, error) {
	if _, err := s.sessions.Validate(ctx, sessionID); err != nil {
		return domain.CartResponse{}, err
	}
	if err := s.repo.Remove(ctx, sessionID, menuItemID); err != nil {
		return domain.CartResponse{}, err
	}
	return s.buildCart(ctx, sessionID)
}

func (s *CartService) Clear(ctx context.Context, sessionID string) error {
	if _, err := s.sessions.Validate(ctx, sessionID); err != nil {
		return err
	}
	return s.repo.Clear(ctx, sessionID)
}

// buildCart prices the live cart for presentation: current base price
// plus the customization cost cached at add time, mirroring how the
// order snapshot will be priced.
func (s *CartService) buildCart(ctx context.Context, sessionID string) (domain.CartResponse, error) {
	items, err := s.repo.GetItems(ctx, sessionID)
	if err != nil {
		return domain.CartResponse{}, err
	}
	resp := domain.CartResponse{SessionID: sessionID, Items: []domain.CartItemResponse{}}
	lines := make([]pricing.Line, 0, len(items))
	base := make(map[string]int64, len(items))
	shopID := ""
	for _, it := range items {
		if _, ok := base[it.MenuItemID]; !ok {
			if shopID == "" {
				sess, err := s.sessions.Get(ctx, sessionID)
				if err != nil {
					return domain.CartResponse{}, err
				}
				shopID = sess.ShopID
			}
			menuItem, err := s.menu.GetMenuItem(ctx, shopID, it.MenuItemID)
			if err != nil {
				return domain.CartResponse{}, fmt.Errorf("menu item %s: %w", it.MenuItemID, err)
			}
			base[it.MenuItemID] = menuItem.BasePriceCents
		}
		unit := base[it.MenuItemID] + it.CustomizationCostCents
		lines = append(lines, pricing.Line{Quantity: it.Quantity, UnitPriceCents: unit})
		resp.Items = append(resp.Items, domain.CartItemResponse{
			MenuItemID:          it.MenuItemID,
			ItemName:            it.ItemName,
			Quantity:            it.Quantity,
			Customizations:      it.Customizations,
			SpecialInstructions: it.SpecialInstructions,
			UnitPrice:           domain.Money(unit),
			LineTotal:           domain.Money(int64(it.Quantity) * unit),
		})
	}
	totals := pricing.CartTotals(lines, s.feeBps)
	resp.Subtotal = domain.Money(totals.SubtotalCents)
	resp.ServiceFee = domain.Money(totals.ServiceFeeCents)
	resp.Total = domain.Money(totals.TotalCents)
	return resp, nil
}

// validateSelections rejects unknown option ids, out-of-range radio
// choices and wrongly-shaped values before anything is stored.
func validateSelections(item domain.MenuItem, selections domain.Selections) error {
	declared := make(map[string]domain.Option, len(item.Options))
	for _, opt := range item.Options {
		declared[opt.Key()] = opt
	}
	for key, value := range selections {
		opt, ok := declared[key]
		if !ok {
			return fmt.Errorf("option %q not declared on %s: %w", key, item.ID, domain.ErrUnknownCustomization)
		}
		switch o := opt.(type) {
		case domain.RadioOption:
			choiceID, ok := value.(string)
			if !ok {
				return fmt.Errorf("option %q expects a choice id: %w", key, domain.ErrUnknownCustomization)
			}
			found := false
			for _, c := range o.Choices {
				if c.ID == choiceID {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("option %q has no choice %q: %w", key, choiceID, domain.ErrUnknownCustomization)
			}
		case domain.CheckboxOption:
			if _, ok := value.(bool); !ok {
				return fmt.Errorf("option %q expects a boolean: %w", key, domain.ErrUnknownCustomization)
			}
		}
	}
	return nil
}
