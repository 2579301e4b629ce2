package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order direction constants
const (
	DirectionBuy  = "BUY"
	DirectionSell = "SELL"
)

// Order status constants
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusDeclined = "DECLINED"
)

// Order is a ledger entry. Once IsDone is set it is never modified.
type Order struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	Asset        Asset           `json:"-"`
	Direction    string          `json:"direction"`
	Quantity     decimal.Decimal `json:"quantity"`
	PricePerUnit MonetaryAmount  `json:"price_per_unit"`
	Status       string          `json:"status"`
	IsDone       bool            `json:"is_done"`
	CreatedAt    time.Time       `json:"created_at"`
	LastModified time.Time       `json:"last_modified"`
}

// SignedQuantity is +Quantity for a BUY and -Quantity for a SELL
func (o *Order) SignedQuantity() decimal.Decimal {
	if o.Direction == DirectionSell {
		return o.Quantity.Neg()
	}
	return o.Quantity
}

// IsSettled reports whether the order counts toward positions
func (o *Order) IsSettled() bool {
	return o.Status == StatusApproved && o.IsDone
}

// OrderEvent is the message published by the order management service
// when an order changes state
type OrderEvent struct {
	EventType string         `json:"event_type"`
	Source    string         `json:"source"`
	Timestamp time.Time      `json:"timestamp"`
	Data      OrderEventData `json:"data"`
}

// OrderEventData carries the order fields as strings so that decimal
// values survive JSON untouched
type OrderEventData struct {
	OrderID      string  `json:"order_id"`
	UserID       string  `json:"user_id"`
	AssetID      string  `json:"asset_id"`
	Direction    string  `json:"direction"`
	Quantity     string  `json:"quantity"`
	PricePerUnit string  `json:"price_per_unit"`
	Currency     string  `json:"currency"`
	Status       string  `json:"status"`
	IsDone       bool    `json:"is_done"`
	CreatedAt    *string `json:"created_at,omitempty"`
}
