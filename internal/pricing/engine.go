// Package pricing computes customization costs and cart totals. All
// arithmetic is in integer minor units (cents); nothing here touches
// storage or clocks, so every function is deterministic.
package pricing

import (
	"fmt"

	"qr-dine/internal/domain"
)

// DefaultServiceFeeBps is the 10% service fee in basis points.
const DefaultServiceFeeBps = 1000

// Cost returns the price delta of one option for the given raw
// selection. A radio selection is the chosen choice id; anything that
// does not name a declared choice costs 0. A checkbox costs its price
// when the selection is true.
func Cost(opt domain.Option, selection any) int64 {
	switch o := opt.(type) {
	case domain.RadioOption:
		id, ok := selection.(string)
		if !ok {
			return 0
		}
		for _, c := range o.Choices {
			if c.ID == id {
				return c.PriceCents
			}
		}
		return 0
	case domain.CheckboxOption:
		if on, ok := selection.(bool); ok && on {
			return o.PriceCents
		}
		return 0
	default:
		// The option union is sealed; a new kind must be handled here.
		panic(fmt.Sprintf("pricing: unhandled option type %T", opt))
	}
}

// CustomizationCost sums Cost over every option the menu item
// declares. Selection keys that match no declared option are ignored.
func CustomizationCost(item domain.MenuItem, selections domain.Selections) int64 {
	var total int64
	for _, opt := range item.Options {
		total += Cost(opt, selections[opt.Key()])
	}
	return total
}

// ItemUnitPrice is the frozen per-unit price: base price plus the
// summed customization cost.
func ItemUnitPrice(item domain.MenuItem, selections domain.Selections) int64 {
	return item.BasePriceCents + CustomizationCost(item, selections)
}

// Line is a priced quantity, either a live cart line or a frozen
// order item snapshot.
type Line struct {
	Quantity       int
	UnitPriceCents int64
}

type Totals struct {
	SubtotalCents   int64
	ServiceFeeCents int64
	TotalCents      int64
}

// CartTotals computes subtotal, service fee and total. The fee is
// feeBps basis points of the subtotal, rounded half-up to a cent.
func CartTotals(lines []Line, feeBps int64) Totals {
	var subtotal int64
	for _, l := range lines {
		subtotal += int64(l.Quantity) * l.UnitPriceCents
	}
	fee := (subtotal*feeBps + 5000) / 10000
	return Totals{
		SubtotalCents:   subtotal,
		ServiceFeeCents: fee,
		TotalCents:      subtotal + fee,
	}
}
