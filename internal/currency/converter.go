// Package currency converts monetary amounts using stored forex pair rates.
package currency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-service/internal/models"
	"go.uber.org/zap"
)

// ErrConversionUnavailable means no rate path exists between two currencies
var ErrConversionUnavailable = errors.New("currency conversion unavailable")

const (
	DefaultTimeout   = 5 * time.Second
	inversePrecision = 16
)

// RateSource looks up a stored forex pair.
// Implementations return models.ErrAssetNotFound when the pair does not exist.
type RateSource interface {
	FindForexPair(ctx context.Context, base, quote models.CurrencyCode) (*models.ForexPair, error)
}

// RateCache stores resolved rates. Entries expire on a timer; nothing here ever
// writes rates so there is nothing to invalidate on write.
type RateCache interface {
	GetRate(ctx context.Context, from, to models.CurrencyCode) (decimal.Decimal, bool)
	SetRate(ctx context.Context, from, to models.CurrencyCode, rate decimal.Decimal)
}

// Converter converts amounts between currencies
type Converter struct {
	source  RateSource
	cache   RateCache
	timeout time.Duration
	logger  *zap.Logger
}

// NewConverter creates a converter. cache may be nil.
func NewConverter(source RateSource, cache RateCache, timeout time.Duration, logger *zap.Logger) *Converter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{
		source:  source,
		cache:   cache,
		timeout: timeout,
		logger:  logger,
	}
}

// Convert expresses amount in the target currency. The result is not rounded.
func (c *Converter) Convert(ctx context.Context, amount models.MonetaryAmount, to models.CurrencyCode) (models.MonetaryAmount, error) {
	if amount.Currency == to {
		return amount, nil
	}
	rate, err := c.Rate(ctx, amount.Currency, to)
	if err != nil {
		return models.MonetaryAmount{}, err
	}
	return models.NewMonetaryAmount(amount.Amount.Mul(rate), to), nil
}

// Rate returns how many units of `to` one unit of `from` buys
func (c *Converter) Rate(ctx context.Context, from, to models.CurrencyCode) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	if c.cache != nil {
		if rate, ok := c.cache.GetRate(ctx, from, to); ok {
			return rate, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rate, err := c.lookup(ctx, from, to)
	if err != nil {
		c.logger.Warn("exchange rate unavailable",
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.Error(err))
		return decimal.Zero, err
	}

	if c.cache != nil {
		c.cache.SetRate(ctx, from, to, rate)
	}
	return rate, nil
}

func (c *Converter) lookup(ctx context.Context, from, to models.CurrencyCode) (decimal.Decimal, error) {
	pair, err := c.source.FindForexPair(ctx, from, to)
	if err == nil && pair.ExchangeRate.IsPositive() {
		return pair.ExchangeRate, nil
	}
	if err != nil && !errors.Is(err, models.ErrAssetNotFound) {
		return decimal.Zero, fmt.Errorf("%w: %s/%s: %w", ErrConversionUnavailable, from, to, err)
	}

	inverse, err := c.source.FindForexPair(ctx, to, from)
	if err == nil && inverse.ExchangeRate.IsPositive() {
		return decimal.NewFromInt(1).DivRound(inverse.ExchangeRate, inversePrecision), nil
	}
	if err != nil && !errors.Is(err, models.ErrAssetNotFound) {
		return decimal.Zero, fmt.Errorf("%w: %s/%s: %w", ErrConversionUnavailable, to, from, err)
	}

	return decimal.Zero, fmt.Errorf("%w: no rate for %s/%s", ErrConversionUnavailable, from, to)
}
