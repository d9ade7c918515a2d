package service

import (
	"context"
	"errors"
	"testing"

	"qr-dine/internal/domain"
)

func TestReleaseDesk(t *testing.T) {
	e := newTestEnv(t)
	e.seedMenu()
	sess := e.mustSession(t, "T1")
	ctx := context.Background()

	e.mustAdd(t, sess.ID, largePizzaWithExtra())
	order, err := e.orders.CreateOrder(ctx, domain.CreateOrderRequest{SessionID: sess.ID}, "")
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	// A line left in the cart after ordering should be wiped too.
	e.mustAdd(t, sess.ID, domain.AddCartItemRequest{MenuItemID: "cola-1", Quantity: 1})

	desk := e.deskFor(t, "shop-1", "T1")
	released, err := e.desks.Release(ctx, desk.ID)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if released.Occupancy != string(domain.DeskAvailable) {
		t.Errorf("released occupancy = %s, want available", released.Occupancy)
	}

	after, err := e.orders.ListOrders(ctx, sess.ID)
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if len(after) != 1 || after[0].Status != string(domain.OrderCancelled) {
		t.Fatalf("order %s status = %v, want cancelled", order.ID, after)
	}

	e.store.mu.Lock()
	cartLines := len(e.store.cart[sess.ID])
	e.store.mu.Unlock()
	if cartLines != 0 {
		t.Errorf("cart holds %d lines after release, want 0", cartLines)
	}
	e.checkOccupancy(t)

	if len(e.publisher.released) != 1 {
		t.Fatalf("published %d released events, want 1", len(e.publisher.released))
	}
	if ev := e.publisher.released[0]; ev.DeskID != desk.ID || ev.CancelledOrders != 1 {
		t.Errorf("released event = %+v, want desk %s with 1 cancelled order", ev, desk.ID)
	}
}

func TestReleaseUnknownDesk(t *testing.T) {
	e := newTestEnv(t)
	if _, err := e.desks.Release(context.Background(), "DSK_missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Release error = %v, want ErrNotFound", err)
	}
}

func TestListDesks(t *testing.T) {
	e := newTestEnv(t)
	e.seedMenu()
	sess := e.mustSession(t, "T1")
	ctx := context.Background()

	if _, err := e.desks.ListDesks(ctx, ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("ListDesks without shop error = %v, want ErrValidation", err)
	}

	e.mustAdd(t, sess.ID, largePizzaWithExtra())
	if _, err := e.orders.CreateOrder(ctx, domain.CreateOrderRequest{SessionID: sess.ID}, ""); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	desks, err := e.desks.ListDesks(ctx, "shop-1")
	if err != nil {
		t.Fatalf("ListDesks: %v", err)
	}
	if len(desks) != 1 {
		t.Fatalf("ListDesks = %d desks, want 1", len(desks))
	}
	if desks[0].Number != "T1" || desks[0].Occupancy != string(domain.DeskOccupied) {
		t.Errorf("desk = %+v, want T1 occupied", desks[0])
	}
}
