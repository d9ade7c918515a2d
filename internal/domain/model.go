package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionExpired   SessionStatus = "expired"
	SessionCompleted SessionStatus = "completed"
)

// Session scopes cart and order visibility for one scanned table code.
// Several sessions may exist for the same table at once; isolation is
// per session id, never per table.
type Session struct {
	ID             string
	TableNumber    string
	ShopID         string
	Status         SessionStatus
	CreatedAt      time.Time
	ExpiresAt      time.Time
	LastActivityAt time.Time
}

type Occupancy string

const (
	DeskAvailable Occupancy = "available"
	DeskOccupied  Occupancy = "occupied"
)

// Desk is a tracked physical table. Occupancy is derived from orders:
// occupied iff the desk has at least one unpaid order in an active status.
type Desk struct {
	ID        string
	ShopID    string
	Number    string
	Occupancy Occupancy
}

type Choice struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
}

// Option is a per-item customization: a radio group (pick one choice)
// or a checkbox toggle. The set is closed; decoding an unknown kind is
// an error, not a fallthrough.
type Option interface {
	Key() string
	option()
}

type RadioOption struct {
	ID      string
	Choices []Choice
}

func (o RadioOption) Key() string { return o.ID }
func (RadioOption) option()       {}

type CheckboxOption struct {
	ID         string
	Name       string
	PriceCents int64
}

func (o CheckboxOption) Key() string { return o.ID }
func (CheckboxOption) option()       {}

type Options []Option

func (o *Options) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Options, 0, len(raw))
	for i, r := range raw {
		var head struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(r, &head); err != nil {
			return err
		}
		switch head.Type {
		case "radio":
			var v struct {
				ID      string   `json:"id"`
				Choices []Choice `json:"choices"`
			}
			if err := json.Unmarshal(r, &v); err != nil {
				return err
			}
			out = append(out, RadioOption{ID: v.ID, Choices: v.Choices})
		case "checkbox":
			var v struct {
				ID         string `json:"id"`
				Name       string `json:"name"`
				PriceCents int64  `json:"price_cents"`
			}
			if err := json.Unmarshal(r, &v); err != nil {
				return err
			}
			out = append(out, CheckboxOption{ID: v.ID, Name: v.Name, PriceCents: v.PriceCents})
		default:
			return fmt.Errorf("menu option %d: unknown type %q", i, head.Type)
		}
	}
	*o = out
	return nil
}

// MenuItem is immutable reference data as far as this service is
// concerned; menu management lives elsewhere.
type MenuItem struct {
	ID             string
	ShopID         string
	Name           string
	BasePriceCents int64
	Options        Options
}

// Selections maps option id to the raw selected value: a choice id for
// radio options, a bool for checkboxes.
type Selections map[string]any

// Signature is the canonical serialization of the selections, used as
// the cart line identity alongside the menu item id. Keys are sorted
// so equal selections always produce equal signatures.
func (s Selections) Signature() string {
	if len(s) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		b.Write(kb)
		b.WriteByte(':')
		vb, _ := json.Marshal(s[k])
		b.Write(vb)
	}
	b.WriteByte('}')
	return b.String()
}

// CartItem is one line of a session's cart. ItemName and the
// customization cost are cached at add time and never recomputed from
// a possibly-changed menu.
type CartItem struct {
	ID                     int64
	SessionID              string
	MenuItemID             string
	ItemName               string
	Quantity               int
	Customizations         Selections
	Signature              string
	SpecialInstructions    string
	CustomizationCostCents int64
	CreatedAt              time.Time
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderPreparing, OrderReady, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

// Active reports whether the status keeps its desk occupied while the
// order is unpaid.
func (s OrderStatus) Active() bool {
	return s == OrderPending || s == OrderPreparing || s == OrderReady
}

// CanTransition enforces the order state machine: forward edges
// pending -> preparing -> ready -> completed, with cancelled reachable
// from any non-terminal state.
func CanTransition(from, to OrderStatus) bool {
	if to == OrderCancelled {
		return !from.Terminal()
	}
	switch from {
	case OrderPending:
		return to == OrderPreparing
	case OrderPreparing:
		return to == OrderReady
	case OrderReady:
		return to == OrderCompleted
	}
	return false
}

// Order is created once and immutable afterwards except for the
// status and paid transitions.
type Order struct {
	ID              string
	SessionID       string
	DeskID          string
	ShopID          string
	Status          OrderStatus
	SubtotalCents   int64
	ServiceFeeCents int64
	TotalCents      int64
	Paid            bool
	IdempotencyKey  string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderWithItems pairs an order with its frozen receipt lines.
type OrderWithItems struct {
	Order
	Items []OrderItem
}

// OrderItem is the frozen receipt line: unit price and name are
// snapshots taken when the order was placed.
type OrderItem struct {
	OrderID        string
	MenuItemID     string
	ItemName       string
	Quantity       int
	UnitPriceCents int64
	Customizations Selections
}
