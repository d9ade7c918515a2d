package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"qr-dine/internal/common/logger"
	"qr-dine/internal/domain"
	"qr-dine/internal/events"
	"qr-dine/internal/pricing"
	"qr-dine/internal/repository"
)

type OrderServiceInterface interface {
	// CreateOrder converts the session's cart into an immutable order.
	// idempotencyKey is optional; a replay with the same key from the
	// same session returns the order created by the first attempt. A
	// key seen from a different session is a conflict.
	CreateOrder(ctx context.Context, req domain.CreateOrderRequest, idempotencyKey string) (domain.OrderResponse, error)
	ListOrders(ctx context.Context, sessionID string) ([]domain.OrderResponse, error)
	UpdateStatus(ctx context.Context, orderID, shopID string, status domain.OrderStatus) (domain.OrderResponse, error)
	MarkPaid(ctx context.Context, orderID string) (domain.OrderResponse, error)
}

type OrderService struct {
	sessions  SessionServiceInterface
	menu      repository.MenuRepositoryInterface
	cart      repository.CartRepositoryInterface
	repo      repository.OrderRepositoryInterface
	publisher events.PublisherInterface
	feeBps    int64
	lg        *logger.Logger
}

func NewOrderService(sessions SessionServiceInterface, menu repository.MenuRepositoryInterface,
	cart repository.CartRepositoryInterface, repo repository.OrderRepositoryInterface,
	publisher events.PublisherInterface, feeBps int64, lg *logger.Logger) OrderServiceInterface {
	if feeBps <= 0 {
		feeBps = pricing.DefaultServiceFeeBps
	}
	return &OrderService{
		sessions: sessions, menu: menu, cart: cart, repo: repo,
		publisher: publisher, feeBps: feeBps, lg: lg,
	}
}

func (s *OrderService) CreateOrder(ctx context.Context, req domain.CreateOrderRequest, idempotencyKey string) (domain.OrderResponse, error) {
	sess, err := s.sessions.Validate(ctx, req.SessionID)
	if err != nil {
		return domain.OrderResponse{}, err
	}

	if idempotencyKey != "" {
		existing, err := s.repo.GetByIdempotencyKey(ctx, idempotencyKey)
		if err == nil {
			// A replay only counts when the key was minted by this
			// session; orders never leak across session boundaries.
			if existing.SessionID != req.SessionID {
				return domain.OrderResponse{}, fmt.Errorf("idempotency key belongs to another session: %w", domain.ErrConflict)
			}
			return domain.NewOrderResponse(existing.Order, existing.Items), nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.OrderResponse{}, err
		}
	}

	created, items, err := s.tryCreate(ctx, sess, req, idempotencyKey)
	if errors.Is(err, domain.ErrConflict) {
		// The cart moved under us (or an idempotent replay raced the
		// first attempt). One internal retry, then surface.
		if idempotencyKey != "" {
			if existing, lookupErr := s.repo.GetByIdempotencyKey(ctx, idempotencyKey); lookupErr == nil {
				if existing.SessionID != req.SessionID {
					return domain.OrderResponse{}, fmt.Errorf("idempotency key belongs to another session: %w", domain.ErrConflict)
				}
				return domain.NewOrderResponse(existing.Order, existing.Items), nil
			}
		}
		s.lg.Debug("order_create_retry", map[string]any{"session_id": req.SessionID})
		created, items, err = s.tryCreate(ctx, sess, req, idempotencyKey)
	}
	if err != nil {
		return domain.OrderResponse{}, err
	}

	s.lg.Info("order_created", map[string]any{
		"order_id": created.ID, "session_id": created.SessionID,
		"desk_id": created.DeskID, "total_cents": created.TotalCents,
	})
	ev := domain.OrderCreatedEvent{
		OrderID:   created.ID,
		SessionID: created.SessionID,
		DeskID:    created.DeskID,
		ShopID:    created.ShopID,
		Total:     domain.Money(created.TotalCents),
		CreatedAt: created.CreatedAt,
	}
	for _, it := range items {
		ev.Items = append(ev.Items, domain.OrderEventItem{
			ItemName: it.ItemName, Quantity: it.Quantity, UnitPrice: domain.Money(it.UnitPriceCents),
		})
	}
	if err := s.publisher.OrderCreated(ctx, ev); err != nil {
		// The order is committed; event delivery is best effort.
		s.lg.Error("order_created_publish_failed", err, map[string]any{"order_id": created.ID})
	}
	return domain.NewOrderResponse(created, items), nil
}

func (s *OrderService) tryCreate(ctx context.Context, sess domain.Session, req domain.CreateOrderRequest, idempotencyKey string) (domain.Order, []domain.OrderItem, error) {
	if req.TableNumber != "" && req.TableNumber != sess.TableNumber {
		return domain.Order{}, nil, fmt.Errorf("table %q does not match session table %q: %w",
			req.TableNumber, sess.TableNumber, domain.ErrValidation)
	}

	cartItems, err := s.cart.GetItems(ctx, req.SessionID)
	if err != nil {
		return domain.Order{}, nil, err
	}
	if len(cartItems) == 0 {
		return domain.Order{}, nil, fmt.Errorf("session %s: %w", req.SessionID, domain.ErrEmptyCart)
	}

	// Snapshot: frozen unit price = current base price + the
	// customization cost cached when the line was added. Name and
	// selections are copied verbatim from the cart line.
	now := time.Now().UTC()
	snapshot := make([]repository.CartLineVersion, 0, len(cartItems))
	orderItems := make([]domain.OrderItem, 0, len(cartItems))
	lines := make([]pricing.Line, 0, len(cartItems))
	base := make(map[string]int64, len(cartItems))
	for _, ci := range cartItems {
		if _, ok := base[ci.MenuItemID]; !ok {
			menuItem, err := s.menu.GetMenuItem(ctx, sess.ShopID, ci.MenuItemID)
			if err != nil {
				return domain.Order{}, nil, fmt.Errorf("menu item %s: %w", ci.MenuItemID, err)
			}
			base[ci.MenuItemID] = menuItem.BasePriceCents
		}
		unit := base[ci.MenuItemID] + ci.CustomizationCostCents
		snapshot = append(snapshot, repository.CartLineVersion{ID: ci.ID, Quantity: ci.Quantity})
		orderItems = append(orderItems, domain.OrderItem{
			MenuItemID:     ci.MenuItemID,
			ItemName:       ci.ItemName,
			Quantity:       ci.Quantity,
			UnitPriceCents: unit,
			Customizations: ci.Customizations,
		})
		lines = append(lines, pricing.Line{Quantity: ci.Quantity, UnitPriceCents: unit})
	}
	totals := pricing.CartTotals(lines, s.feeBps)

	order := domain.Order{
		ID:              newOrderID(now),
		SessionID:       sess.ID,
		ShopID:          sess.ShopID,
		Status:          domain.OrderPending,
		SubtotalCents:   totals.SubtotalCents,
		ServiceFeeCents: totals.ServiceFeeCents,
		TotalCents:      totals.TotalCents,
		IdempotencyKey:  idempotencyKey,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	desk := domain.Desk{
		ID:     newDeskID(),
		ShopID: sess.ShopID,
		Number: sess.TableNumber,
	}
	created, err := s.repo.CreateOrderTx(ctx, order, orderItems, desk, snapshot)
	if err != nil {
		return domain.Order{}, nil, err
	}
	for i := range orderItems {
		orderItems[i].OrderID = created.ID
	}
	return created, orderItems, nil
}

func (s *OrderService) ListOrders(ctx context.Context, sessionID string) ([]domain.OrderResponse, error) {
	// Receipts stay visible after the session expires, so existence is
	// all that is checked here.
	if _, err := s.sessions.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	orders, err := s.repo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, domain.NewOrderResponse(o.Order, o.Items))
	}
	return out, nil
}

func (s *OrderService) UpdateStatus(ctx context.Context, orderID, shopID string, status domain.OrderStatus) (domain.OrderResponse, error) {
	if !status.Valid() {
		return domain.OrderResponse{}, fmt.Errorf("unknown status %q: %w", status, domain.ErrValidation)
	}
	old, deskID, err := s.repo.TransitionStatus(ctx, orderID, shopID, status)
	if err != nil {
		return domain.OrderResponse{}, err
	}
	s.lg.Info("order_status_changed", map[string]any{
		"order_id": orderID, "old_status": string(old), "new_status": string(status), "desk_id": deskID,
	})
	if err := s.publisher.OrderStatusChanged(ctx, domain.OrderStatusChangedEvent{
		OrderID:   orderID,
		ShopID:    shopID,
		OldStatus: string(old),
		NewStatus: string(status),
		ChangedAt: time.Now().UTC(),
	}); err != nil {
		s.lg.Error("status_changed_publish_failed", err, map[string]any{"order_id": orderID})
	}
	updated, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return domain.OrderResponse{}, err
	}
	return domain.NewOrderResponse(updated.Order, updated.Items), nil
}

func (s *OrderService) MarkPaid(ctx context.Context, orderID string) (domain.OrderResponse, error) {
	order, err := s.repo.MarkPaid(ctx, orderID)
	if err != nil {
		return domain.OrderResponse{}, err
	}
	s.lg.Info("order_paid", map[string]any{"order_id": orderID, "desk_id": order.DeskID})
	if err := s.publisher.OrderPaid(ctx, domain.OrderPaidEvent{
		OrderID: orderID,
		ShopID:  order.ShopID,
		PaidAt:  time.Now().UTC(),
	}); err != nil {
		s.lg.Error("order_paid_publish_failed", err, map[string]any{"order_id": orderID})
	}
	return domain.NewOrderResponse(order, nil), nil
}

func newOrderID(now time.Time) string {
	return fmt.Sprintf("ORD_%s_%s", now.Format("20060102"), uuid.NewString()[:8])
}

func newDeskID() string {
	return "DSK_" + uuid.NewString()[:8]
}
