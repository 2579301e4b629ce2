package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Listing is a point-in-time market quote for an asset
type Listing struct {
	ID          int             `json:"id"`
	AssetID     uuid.UUID       `json:"asset_id"`
	Ask         decimal.Decimal `json:"ask"`
	Bid         decimal.Decimal `json:"bid"`
	Currency    CurrencyCode    `json:"currency"`
	Exchange    string          `json:"exchange"`
	LastRefresh time.Time       `json:"last_refresh"`
}

// Price returns the quote used for valuation. The ask price is used throughout.
func (l *Listing) Price() MonetaryAmount {
	return MonetaryAmount{Amount: l.Ask, Currency: l.Currency}
}
