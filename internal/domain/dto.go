package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Money renders integer cents as a fixed two-decimal string. Cents are
// the only representation used internally; decimal appears at the
// presentation edge only.
func Money(cents int64) string {
	return decimal.NewFromInt(cents).Shift(-2).StringFixed(2)
}

type CreateSessionRequest struct {
	TableNumber string `json:"table_number"`
	ShopID      string `json:"shop_id"`
	TTLHours    int    `json:"ttl_hours,omitempty"`
}

type SessionResponse struct {
	ID             string    `json:"id"`
	TableNumber    string    `json:"table_number"`
	ShopID         string    `json:"shop_id"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

func NewSessionResponse(s Session) SessionResponse {
	return SessionResponse{
		ID:             s.ID,
		TableNumber:    s.TableNumber,
		ShopID:         s.ShopID,
		Status:         string(s.Status),
		CreatedAt:      s.CreatedAt,
		ExpiresAt:      s.ExpiresAt,
		LastActivityAt: s.LastActivityAt,
	}
}

type AddCartItemRequest struct {
	MenuItemID          string     `json:"menu_item_id"`
	Quantity            int        `json:"quantity"`
	Customizations      Selections `json:"customizations,omitempty"`
	SpecialInstructions string     `json:"special_instructions,omitempty"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

type CartItemResponse struct {
	MenuItemID          string     `json:"menu_item_id"`
	ItemName            string     `json:"item_name"`
	Quantity            int        `json:"quantity"`
	Customizations      Selections `json:"customizations,omitempty"`
	SpecialInstructions string     `json:"special_instructions,omitempty"`
	UnitPrice           string     `json:"unit_price"`
	LineTotal           string     `json:"line_total"`
}

type CartResponse struct {
	SessionID  string             `json:"session_id"`
	Items      []CartItemResponse `json:"items"`
	Subtotal   string             `json:"subtotal"`
	ServiceFee string             `json:"service_fee"`
	Total      string             `json:"total"`
}

type CreateOrderRequest struct {
	SessionID   string `json:"session_id"`
	TableNumber string `json:"table_number"`
}

type OrderItemResponse struct {
	MenuItemID     string     `json:"menu_item_id"`
	ItemName       string     `json:"item_name"`
	Quantity       int        `json:"quantity"`
	UnitPrice      string     `json:"unit_price"`
	Customizations Selections `json:"customizations,omitempty"`
}

type OrderResponse struct {
	ID         string              `json:"id"`
	SessionID  string              `json:"session_id"`
	DeskID     string              `json:"desk_id"`
	Status     string              `json:"status"`
	Subtotal   string              `json:"subtotal"`
	ServiceFee string              `json:"service_fee"`
	Total      string              `json:"total"`
	Paid       bool                `json:"paid"`
	Items      []OrderItemResponse `json:"items,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}

func NewOrderResponse(o Order, items []OrderItem) OrderResponse {
	resp := OrderResponse{
		ID:         o.ID,
		SessionID:  o.SessionID,
		DeskID:     o.DeskID,
		Status:     string(o.Status),
		Subtotal:   Money(o.SubtotalCents),
		ServiceFee: Money(o.ServiceFeeCents),
		Total:      Money(o.TotalCents),
		Paid:       o.Paid,
		CreatedAt:  o.CreatedAt,
	}
	for _, it := range items {
		resp.Items = append(resp.Items, OrderItemResponse{
			MenuItemID:     it.MenuItemID,
			ItemName:       it.ItemName,
			Quantity:       it.Quantity,
			UnitPrice:      Money(it.UnitPriceCents),
			Customizations: it.Customizations,
		})
	}
	return resp
}

type UpdateOrderStatusRequest struct {
	ShopID string `json:"shop_id"`
	Status string `json:"status"`
}

type DeskResponse struct {
	ID        string `json:"id"`
	ShopID    string `json:"shop_id"`
	Number    string `json:"number"`
	Occupancy string `json:"occupancy"`
}
