package pricing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-service/internal/metrics"
	"github.com/trogers1052/portfolio-service/internal/models"
	"go.uber.org/zap"
)

var (
	// ErrPriceUnavailable means no usable quote exists for a listed asset
	ErrPriceUnavailable = errors.New("price unavailable")
	// ErrInvalidAssetType means the asset could not be classified for pricing
	ErrInvalidAssetType = errors.New("invalid asset type")
)

const (
	DefaultRiskFreeRate = 0.02
	DefaultTimeout      = 5 * time.Second
)

// ListingStore returns the most recent quote for an asset.
// Implementations return models.ErrListingNotFound when there is none.
type ListingStore interface {
	LatestListing(ctx context.Context, assetID uuid.UUID) (*models.Listing, error)
}

// Oracle prices assets in their native currency
type Oracle struct {
	listings     ListingStore
	riskFreeRate float64
	timeout      time.Duration
	now          func() time.Time
	logger       *zap.Logger
}

// OracleOption configures the oracle
type OracleOption func(*Oracle)

// WithRiskFreeRate sets the annual rate used for option pricing
func WithRiskFreeRate(rate float64) OracleOption {
	return func(o *Oracle) {
		o.riskFreeRate = rate
	}
}

// WithTimeout bounds each listing lookup
func WithTimeout(timeout time.Duration) OracleOption {
	return func(o *Oracle) {
		o.timeout = timeout
	}
}

// WithClock overrides the time source used for option expiry
func WithClock(now func() time.Time) OracleOption {
	return func(o *Oracle) {
		o.now = now
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) OracleOption {
	return func(o *Oracle) {
		o.logger = logger
	}
}

// NewOracle creates a pricing oracle backed by a listing store
func NewOracle(listings ListingStore, opts ...OracleOption) *Oracle {
	o := &Oracle{
		listings:     listings,
		riskFreeRate: DefaultRiskFreeRate,
		timeout:      DefaultTimeout,
		now:          time.Now,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CurrentPrice returns the current market price of one unit of the asset
func (o *Oracle) CurrentPrice(ctx context.Context, asset models.Asset) (models.MonetaryAmount, error) {
	switch a := asset.(type) {
	case *models.Stock:
		return o.listingPrice(ctx, a)
	case *models.Future:
		return o.listingPrice(ctx, a)
	case *models.ForexPair:
		return models.NewMonetaryAmount(a.ExchangeRate, a.QuoteCurrency), nil
	case *models.Option:
		return o.optionPrice(ctx, a)
	}
	return models.MonetaryAmount{}, fmt.Errorf("%w: %T", ErrInvalidAssetType, asset)
}

func (o *Oracle) listingPrice(ctx context.Context, asset models.Asset) (models.MonetaryAmount, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	listing, err := o.listings.LatestListing(ctx, asset.AssetID())
	if err != nil {
		metrics.PriceLookupFailures.WithLabelValues(string(asset.Kind())).Inc()
		o.logger.Warn("listing lookup failed",
			zap.String("ticker", asset.Symbol()),
			zap.String("asset_id", asset.AssetID().String()),
			zap.Error(err))
		return models.MonetaryAmount{}, fmt.Errorf("%w: %s: %w", ErrPriceUnavailable, asset.Symbol(), err)
	}
	return listing.Price(), nil
}

func (o *Oracle) optionPrice(ctx context.Context, option *models.Option) (models.MonetaryAmount, error) {
	if option.Underlying == nil {
		return models.MonetaryAmount{}, fmt.Errorf("%w: option %s has no underlying stock", ErrInvalidAssetType, option.Ticker)
	}

	underlying, err := o.CurrentPrice(ctx, option.Underlying)
	if err != nil {
		return models.MonetaryAmount{}, err
	}
	if option.StrikePrice.Currency != underlying.Currency {
		return models.MonetaryAmount{}, fmt.Errorf("%w: option %s strike in %s, underlying in %s",
			models.ErrCurrencyMismatch, option.Ticker, option.StrikePrice.Currency, underlying.Currency)
	}

	price := OptionPrice(option, underlying.Amount.InexactFloat64(), o.riskFreeRate, o.now())
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return models.MonetaryAmount{}, fmt.Errorf("%w: option %s prices to %v (implied volatility %v)",
			ErrInvalidAssetType, option.Ticker, price, option.ImpliedVolatility)
	}
	return models.NewMonetaryAmount(decimal.NewFromFloat(price), underlying.Currency).Round(), nil
}
