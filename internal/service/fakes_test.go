package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"qr-dine/internal/common/logger"
	"qr-dine/internal/domain"
	"qr-dine/internal/repository"
)

// memStore backs the fake repositories with the same semantics the
// Postgres layer provides: atomic order creation, compare-and-set on
// the cart snapshot and occupancy re-derivation after every mutation.
type memStore struct {
	mu sync.Mutex

	sessions   map[string]domain.Session
	menu       map[string]domain.MenuItem // shopID + "/" + itemID
	cart       map[string][]domain.CartItem
	nextCartID int64
	orders     map[string]*domain.Order
	orderItems map[string][]domain.OrderItem
	desks      map[string]*domain.Desk
	deskByKey  map[string]string // shopID + "/" + number -> desk id
}

func newMemStore() *memStore {
	return &memStore{
		sessions:   make(map[string]domain.Session),
		menu:       make(map[string]domain.MenuItem),
		cart:       make(map[string][]domain.CartItem),
		orders:     make(map[string]*domain.Order),
		orderItems: make(map[string][]domain.OrderItem),
		desks:      make(map[string]*domain.Desk),
		deskByKey:  make(map[string]string),
	}
}

func (m *memStore) addMenuItem(item domain.MenuItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.menu[item.ShopID+"/"+item.ID] = item
}

// recomputeOccupancy mirrors the SQL that re-derives occupancy from
// the orders table.
func (m *memStore) recomputeOccupancy(deskID string) {
	desk, ok := m.desks[deskID]
	if !ok {
		return
	}
	occupied := false
	for _, o := range m.orders {
		if o.DeskID == deskID && o.Status.Active() && !o.Paid {
			occupied = true
			break
		}
	}
	if occupied {
		desk.Occupancy = domain.DeskOccupied
	} else {
		desk.Occupancy = domain.DeskAvailable
	}
}

type fakeSessionRepo struct{ s *memStore }

func (r *fakeSessionRepo) Create(_ context.Context, sess domain.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.sessions[sess.ID] = sess
	return nil
}

func (r *fakeSessionRepo) Get(_ context.Context, id string) (domain.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrNotFound
	}
	return sess, nil
}

func (r *fakeSessionRepo) SetStatus(_ context.Context, id string, status domain.SessionStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	sess.Status = status
	r.s.sessions[id] = sess
	return nil
}

func (r *fakeSessionRepo) Touch(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	sess.LastActivityAt = at
	r.s.sessions[id] = sess
	return nil
}

type fakeMenuRepo struct{ s *memStore }

func (r *fakeMenuRepo) GetMenuItem(_ context.Context, shopID, itemID string) (domain.MenuItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.menu[shopID+"/"+itemID]
	if !ok {
		return domain.MenuItem{}, domain.ErrNotFound
	}
	return item, nil
}

type fakeCartRepo struct{ s *memStore }

func (r *fakeCartRepo) Upsert(_ context.Context, item domain.CartItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	lines := r.s.cart[item.SessionID]
	for i := range lines {
		if lines[i].MenuItemID == item.MenuItemID && lines[i].Signature == item.Signature {
			lines[i].Quantity += item.Quantity
			if item.SpecialInstructions != "" {
				lines[i].SpecialInstructions = item.SpecialInstructions
			}
			return nil
		}
	}
	r.s.nextCartID++
	item.ID = r.s.nextCartID
	r.s.cart[item.SessionID] = append(lines, item)
	return nil
}

func (r *fakeCartRepo) GetItems(_ context.Context, sessionID string) ([]domain.CartItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	lines := r.s.cart[sessionID]
	out := make([]domain.CartItem, len(lines))
	copy(out, lines)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeCartRepo) UpdateQuantity(ctx context.Context, sessionID, menuItemID string, quantity int) error {
	if quantity <= 0 {
		return r.Remove(ctx, sessionID, menuItemID)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	lines := r.s.cart[sessionID]
	found := false
	for i := range lines {
		if lines[i].MenuItemID == menuItemID {
			lines[i].Quantity = quantity
			found = true
		}
	}
	if !found {
		return domain.ErrNotFound
	}
	return nil
}

func (r *fakeCartRepo) Remove(_ context.Context, sessionID, menuItemID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	lines := r.s.cart[sessionID]
	kept := lines[:0]
	removed := false
	for _, l := range lines {
		if l.MenuItemID == menuItemID {
			removed = true
			continue
		}
		kept = append(kept, l)
	}
	if !removed {
		return domain.ErrNotFound
	}
	r.s.cart[sessionID] = kept
	return nil
}

func (r *fakeCartRepo) Clear(_ context.Context, sessionID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.cart, sessionID)
	return nil
}

type fakeOrderRepo struct{ s *memStore }

func (r *fakeOrderRepo) CreateOrderTx(_ context.Context, o domain.Order, items []domain.OrderItem, desk domain.Desk, snapshot []repository.CartLineVersion) (domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current := make(map[int64]int)
	for _, l := range r.s.cart[o.SessionID] {
		current[l.ID] = l.Quantity
	}
	for _, line := range snapshot {
		if qty, ok := current[line.ID]; !ok || qty != line.Quantity {
			return domain.Order{}, fmt.Errorf("cart changed since snapshot: %w", domain.ErrConflict)
		}
	}

	key := desk.ShopID + "/" + desk.Number
	deskID, ok := r.s.deskByKey[key]
	if !ok {
		deskID = desk.ID
		r.s.deskByKey[key] = deskID
		r.s.desks[deskID] = &domain.Desk{ID: deskID, ShopID: desk.ShopID, Number: desk.Number}
	}
	o.DeskID = deskID

	if o.IdempotencyKey != "" {
		for _, existing := range r.s.orders {
			if existing.IdempotencyKey == o.IdempotencyKey {
				return domain.Order{}, fmt.Errorf("idempotency key replay: %w", domain.ErrConflict)
			}
		}
	}

	saved := o
	r.s.orders[o.ID] = &saved
	stored := make([]domain.OrderItem, len(items))
	copy(stored, items)
	for i := range stored {
		stored[i].OrderID = o.ID
	}
	r.s.orderItems[o.ID] = stored

	snapshotIDs := make(map[int64]bool, len(snapshot))
	for _, line := range snapshot {
		snapshotIDs[line.ID] = true
	}
	kept := r.s.cart[o.SessionID][:0]
	for _, l := range r.s.cart[o.SessionID] {
		if !snapshotIDs[l.ID] {
			kept = append(kept, l)
		}
	}
	r.s.cart[o.SessionID] = kept

	r.s.recomputeOccupancy(deskID)
	return o, nil
}

func (r *fakeOrderRepo) Get(_ context.Context, orderID string) (domain.OrderWithItems, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[orderID]
	if !ok {
		return domain.OrderWithItems{}, domain.ErrNotFound
	}
	return domain.OrderWithItems{Order: *o, Items: r.s.orderItems[orderID]}, nil
}

func (r *fakeOrderRepo) GetByIdempotencyKey(_ context.Context, key string) (domain.OrderWithItems, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, o := range r.s.orders {
		if o.IdempotencyKey == key {
			return domain.OrderWithItems{Order: *o, Items: r.s.orderItems[id]}, nil
		}
	}
	return domain.OrderWithItems{}, domain.ErrNotFound
}

func (r *fakeOrderRepo) ListBySession(_ context.Context, sessionID string) ([]domain.OrderWithItems, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.OrderWithItems
	for id, o := range r.s.orders {
		if o.SessionID == sessionID {
			out = append(out, domain.OrderWithItems{Order: *o, Items: r.s.orderItems[id]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeOrderRepo) TransitionStatus(_ context.Context, orderID, shopID string, newStatus domain.OrderStatus) (domain.OrderStatus, string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[orderID]
	if !ok || o.ShopID != shopID {
		return "", "", domain.ErrNotFound
	}
	old := o.Status
	if !domain.CanTransition(old, newStatus) {
		return old, o.DeskID, fmt.Errorf("%s -> %s: %w", old, newStatus, domain.ErrInvalidTransition)
	}
	o.Status = newStatus
	o.UpdatedAt = time.Now().UTC()
	r.s.recomputeOccupancy(o.DeskID)
	return old, o.DeskID, nil
}

func (r *fakeOrderRepo) MarkPaid(_ context.Context, orderID string) (domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	if !o.Paid {
		o.Paid = true
		o.UpdatedAt = time.Now().UTC()
	}
	r.s.recomputeOccupancy(o.DeskID)
	return *o, nil
}

type fakeDeskRepo struct{ s *memStore }

func (r *fakeDeskRepo) Get(_ context.Context, deskID string) (domain.Desk, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.desks[deskID]
	if !ok {
		return domain.Desk{}, domain.ErrNotFound
	}
	return *d, nil
}

func (r *fakeDeskRepo) List(_ context.Context, shopID string) ([]domain.Desk, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Desk
	for _, d := range r.s.desks {
		if d.ShopID == shopID {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r *fakeDeskRepo) Release(_ context.Context, deskID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	desk, ok := r.s.desks[deskID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	cancelled := 0
	for _, o := range r.s.orders {
		if o.DeskID == deskID && o.Status.Active() {
			o.Status = domain.OrderCancelled
			cancelled++
		}
	}
	for sessionID, sess := range r.s.sessions {
		if sess.ShopID == desk.ShopID && sess.TableNumber == desk.Number {
			delete(r.s.cart, sessionID)
		}
	}
	desk.Occupancy = domain.DeskAvailable
	return cancelled, nil
}

// recordingPublisher captures events instead of talking to a broker.
type recordingPublisher struct {
	mu       sync.Mutex
	created  []domain.OrderCreatedEvent
	statuses []domain.OrderStatusChangedEvent
	paid     []domain.OrderPaidEvent
	released []domain.DeskReleasedEvent
}

func (p *recordingPublisher) OrderCreated(_ context.Context, ev domain.OrderCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, ev)
	return nil
}

func (p *recordingPublisher) OrderStatusChanged(_ context.Context, ev domain.OrderStatusChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, ev)
	return nil
}

func (p *recordingPublisher) OrderPaid(_ context.Context, ev domain.OrderPaidEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paid = append(p.paid, ev)
	return nil
}

func (p *recordingPublisher) DeskReleased(_ context.Context, ev domain.DeskReleasedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released = append(p.released, ev)
	return nil
}

type testEnv struct {
	store     *memStore
	publisher *recordingPublisher
	sessions  SessionServiceInterface
	carts     CartServiceInterface
	orders    OrderServiceInterface
	desks     DeskServiceInterface
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newMemStore()
	pub := &recordingPublisher{}
	lg := logger.New("test")

	sessions := NewSessionService(&fakeSessionRepo{s: store}, 2, lg)
	carts := NewCartService(sessions, &fakeMenuRepo{s: store}, &fakeCartRepo{s: store}, 1000, lg)
	orders := NewOrderService(sessions, &fakeMenuRepo{s: store}, &fakeCartRepo{s: store},
		&fakeOrderRepo{s: store}, pub, 1000, lg)
	desks := NewDeskService(&fakeDeskRepo{s: store}, pub, lg)

	return &testEnv{
		store: store, publisher: pub,
		sessions: sessions, carts: carts, orders: orders, desks: desks,
	}
}

// seedMenu installs the standard fixture: a pizza with a size radio
// and an extra-cheese checkbox, plus a plain drink.
func (e *testEnv) seedMenu() {
	e.store.addMenuItem(domain.MenuItem{
		ID: "pizza-1", ShopID: "shop-1", Name: "Margherita", BasePriceCents: 10000,
		Options: domain.Options{
			domain.RadioOption{ID: "size", Choices: []domain.Choice{
				{ID: "medium", Name: "Medium", PriceCents: 0},
				{ID: "large", Name: "Large", PriceCents: 1500},
			}},
			domain.CheckboxOption{ID: "extra", Name: "Extra cheese", PriceCents: 1000},
		},
	})
	e.store.addMenuItem(domain.MenuItem{
		ID: "cola-1", ShopID: "shop-1", Name: "Cola", BasePriceCents: 450,
	})
}

// expireSession rewinds the stored expiry so the next Validate sees
// the session as past its TTL.
func (e *testEnv) expireSession(id string) {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	sess := e.store.sessions[id]
	sess.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	e.store.sessions[id] = sess
}

// checkOccupancy asserts the occupancy invariant for every desk:
// occupied iff an unpaid order in pending/preparing/ready exists.
func (e *testEnv) checkOccupancy(t *testing.T) {
	t.Helper()
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	for id, desk := range e.store.desks {
		hasActive := false
		for _, o := range e.store.orders {
			if o.DeskID == id && o.Status.Active() && !o.Paid {
				hasActive = true
				break
			}
		}
		want := domain.DeskAvailable
		if hasActive {
			want = domain.DeskOccupied
		}
		if desk.Occupancy != want {
			t.Fatalf("desk %s occupancy = %s, want %s", id, desk.Occupancy, want)
		}
	}
}
