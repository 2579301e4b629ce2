package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Holding is a currently held position derived from the order ledger.
// It is computed per query and never stored.
type Holding struct {
	Asset            Asset           `json:"-"`
	NetQuantity      decimal.Decimal `json:"net_quantity"`
	CurrentPrice     MonetaryAmount  `json:"current_price"`
	UnrealizedProfit MonetaryAmount  `json:"unrealized_profit"`
	LastModified     time.Time       `json:"last_modified"`
}

// HoldingResponse is the wire form of a Holding
type HoldingResponse struct {
	AssetID      uuid.UUID       `json:"asset_id"`
	Type         string          `json:"type"`
	Ticker       string          `json:"ticker"`
	Amount       decimal.Decimal `json:"amount"`
	Price        decimal.Decimal `json:"price"`
	Profit       decimal.Decimal `json:"profit"`
	LastModified time.Time       `json:"lastModified"`
	Currency     CurrencyCode    `json:"currency"`
}

// ToResponse flattens a Holding for the API
func (h *Holding) ToResponse() HoldingResponse {
	return HoldingResponse{
		AssetID:      h.Asset.AssetID(),
		Type:         h.Asset.Kind().DisplayName(),
		Ticker:       h.Asset.Symbol(),
		Amount:       h.NetQuantity,
		Price:        h.CurrentPrice.Amount,
		Profit:       h.UnrealizedProfit.Amount,
		LastModified: h.LastModified,
		Currency:     h.CurrentPrice.Currency,
	}
}

// TotalProfitResponse is the aggregated unrealized profit of one asset class
type TotalProfitResponse struct {
	TotalProfit decimal.Decimal `json:"totalProfit"`
	Currency    CurrencyCode    `json:"currency"`
}

// TaxSummary is the capital gains tax estimate for a user
type TaxSummary struct {
	PaidTaxThisYear    decimal.Decimal `json:"paidTaxThisYear"`
	UnpaidTaxThisMonth decimal.Decimal `json:"unpaidTaxThisMonth"`
	Currency           CurrencyCode    `json:"currency"`
}

// TaxSnapshotEvent is published for each user during tax collection
type TaxSnapshotEvent struct {
	EventType string     `json:"event_type"`
	UserID    uuid.UUID  `json:"user_id"`
	Year      int        `json:"year"`
	Month     int        `json:"month"`
	Summary   TaxSummary `json:"summary"`
	Timestamp time.Time  `json:"timestamp"`
}
