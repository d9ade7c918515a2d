package domain

import "time"

// Events published to RabbitMQ after a committed state change. Routing
// keys follow "order.<event>.<shop_id>" on the orders_topic exchange;
// status changes additionally fan out on notifications_fanout.

type OrderEventItem struct {
	ItemName  string `json:"item_name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

type OrderCreatedEvent struct {
	OrderID   string           `json:"order_id"`
	SessionID string           `json:"session_id"`
	DeskID    string           `json:"desk_id"`
	ShopID    string           `json:"shop_id"`
	Total     string           `json:"total"`
	Items     []OrderEventItem `json:"items"`
	CreatedAt time.Time        `json:"created_at"`
}

type OrderStatusChangedEvent struct {
	OrderID   string    `json:"order_id"`
	ShopID    string    `json:"shop_id"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	ChangedAt time.Time `json:"changed_at"`
}

type OrderPaidEvent struct {
	OrderID string    `json:"order_id"`
	ShopID  string    `json:"shop_id"`
	PaidAt  time.Time `json:"paid_at"`
}

type DeskReleasedEvent struct {
	DeskID          string    `json:"desk_id"`
	ShopID          string    `json:"shop_id"`
	CancelledOrders int       `json:"cancelled_orders"`
	ReleasedAt      time.Time `json:"released_at"`
}
