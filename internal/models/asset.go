package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AssetKind identifies one of the four tradeable asset variants
type AssetKind string

// Asset kind constants
const (
	AssetKindStock     AssetKind = "STOCK"
	AssetKindOption    AssetKind = "OPTION"
	AssetKindForexPair AssetKind = "FOREX_PAIR"
	AssetKindFuture    AssetKind = "FUTURE"
)

// ParseAssetKind validates an asset kind string
func ParseAssetKind(s string) (AssetKind, error) {
	switch k := AssetKind(s); k {
	case AssetKindStock, AssetKindOption, AssetKindForexPair, AssetKindFuture:
		return k, nil
	}
	return "", fmt.Errorf("unknown asset kind: %q", s)
}

// DisplayName is the label used in holdings responses
func (k AssetKind) DisplayName() string {
	switch k {
	case AssetKindStock:
		return "Stock"
	case AssetKindOption:
		return "Option"
	case AssetKindForexPair:
		return "Forex"
	case AssetKindFuture:
		return "Future"
	}
	return string(k)
}

// OptionType constants
const (
	OptionTypeCall = "CALL"
	OptionTypePut  = "PUT"
)

// Asset is a tradeable instrument. The set of implementations is closed:
// Stock, Option, ForexPair and Future.
type Asset interface {
	AssetID() uuid.UUID
	Symbol() string
	Kind() AssetKind
	isAsset()
}

// Stock is an equity share
type Stock struct {
	ID                uuid.UUID       `json:"id"`
	Name              string          `json:"name"`
	Ticker            string          `json:"ticker"`
	OutstandingShares int64           `json:"outstanding_shares"`
	MarketCap         decimal.Decimal `json:"market_cap"`
	DividendYield     decimal.Decimal `json:"dividend_yield"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Option is a contract on exactly one underlying stock
type Option struct {
	ID                uuid.UUID      `json:"id"`
	Name              string         `json:"name"`
	Ticker            string         `json:"ticker"`
	Underlying        *Stock         `json:"underlying"`
	StrikePrice       MonetaryAmount `json:"strike_price"`
	SettlementDate    time.Time      `json:"settlement_date"`
	OptionType        string         `json:"option_type"`
	ImpliedVolatility float64        `json:"implied_volatility"`
	OpenInterest      int            `json:"open_interest"`
	CreatedAt         time.Time      `json:"created_at"`
}

// ForexPair is a currency pair priced at its stored exchange rate
type ForexPair struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Ticker        string          `json:"ticker"`
	BaseCurrency  CurrencyCode    `json:"base_currency"`
	QuoteCurrency CurrencyCode    `json:"quote_currency"`
	ExchangeRate  decimal.Decimal `json:"exchange_rate"`
	LiquidityTier string          `json:"liquidity_tier"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Future is a futures contract
type Future struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Ticker         string    `json:"ticker"`
	ContractSize   int64     `json:"contract_size"`
	ContractUnit   string    `json:"contract_unit"`
	SettlementDate time.Time `json:"settlement_date"`
	CreatedAt      time.Time `json:"created_at"`
}

func (s *Stock) AssetID() uuid.UUID { return s.ID }
func (s *Stock) Symbol() string     { return s.Ticker }
func (s *Stock) Kind() AssetKind    { return AssetKindStock }
func (*Stock) isAsset()             {}

func (o *Option) AssetID() uuid.UUID { return o.ID }
func (o *Option) Symbol() string     { return o.Ticker }
func (o *Option) Kind() AssetKind    { return AssetKindOption }
func (*Option) isAsset()             {}

func (f *ForexPair) AssetID() uuid.UUID { return f.ID }
func (f *ForexPair) Symbol() string     { return f.Ticker }
func (f *ForexPair) Kind() AssetKind    { return AssetKindForexPair }
func (*ForexPair) isAsset()             {}

func (f *Future) AssetID() uuid.UUID { return f.ID }
func (f *Future) Symbol() string     { return f.Ticker }
func (f *Future) Kind() AssetKind    { return AssetKindFuture }
func (*Future) isAsset()             {}
