package order

import (
	"encoding/json"
	"time"
)

// Event types published to the order topic.
const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventOrderCancelled     = "OrderCancelled"
)

// Event is the wire envelope for order lifecycle events.
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OrderID    string          `json:"order_id"`
	Data       json.RawMessage `json:"data"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type OrderPlaced struct {
	OrderID    string    `json:"order_id"`
	UserID     string    `json:"user_id"`
	Items      []Item    `json:"items"`
	TotalPrice float64   `json:"total_price"`
	PlacedAt   time.Time `json:"placed_at"`
}

type OrderStatusChanged struct {
	OrderID   string    `json:"order_id"`
	OldStatus Status    `json:"old_status"`
	NewStatus Status    `json:"new_status"`
	ChangedAt time.Time `json:"changed_at"`
}

type OrderCancelled struct {
	OrderID     string    `json:"order_id"`
	UserID      string    `json:"user_id"`
	Items       []Item    `json:"items"`
	CancelledAt time.Time `json:"cancelled_at"`
}
