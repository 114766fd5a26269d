package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderCreated    = "ORDER_CREATED"
	EventTypeReturnRequested = "RETURN_REQUESTED"
	EventTypeReturnResolved  = "RETURN_RESOLVED"
	EventTypeProductUpdated  = "PRODUCT_UPDATED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderLineData represents line item data in events
type OrderLineData struct {
	ProductID    int64           `json:"product_id"`
	Qty          int             `json:"qty"`
	PricePerItem decimal.Decimal `json:"price_per_item"`
}

// OrderCreatedEvent published after an order commits
type OrderCreatedEvent struct {
	BaseEvent
	OrderID     int64           `json:"order_id"`
	UserID      int64           `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Lines       []OrderLineData `json:"lines"`
}

// ReturnRequestedEvent published after a pending return commits
type ReturnRequestedEvent struct {
	BaseEvent
	ReturnID int64          `json:"return_id"`
	OrderID  int64          `json:"order_id"`
	UserID   int64          `json:"user_id"`
	Items    []ReturnedItem `json:"items"`
}

// ReturnResolvedEvent published after a return reaches a terminal status.
// RefundAmount is zero for rejected returns.
type ReturnResolvedEvent struct {
	BaseEvent
	ReturnID     int64           `json:"return_id"`
	OrderID      int64           `json:"order_id"`
	UserID       int64           `json:"user_id"`
	Status       string          `json:"status"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
	Items        []ReturnedItem  `json:"items"`
}

// ProductUpdatedEvent published after a catalog edit commits
type ProductUpdatedEvent struct {
	BaseEvent
	ProductID int64 `json:"product_id"`
}
