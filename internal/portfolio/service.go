// Package portfolio derives holdings, unrealized profit and capital gains tax
// from a user's order ledger. Nothing here is cached or written back: every
// query replays the ledger as it stands.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/trogers1052/portfolio-service/internal/currency"
	"github.com/trogers1052/portfolio-service/internal/models"
	"go.uber.org/zap"
)

// ErrCurrencyConversionUnavailable aborts aggregate computations that need a missing rate
var ErrCurrencyConversionUnavailable = currency.ErrConversionUnavailable

// OrderLedger is the read side of the order store
type OrderLedger interface {
	FindOrders(ctx context.Context, userID uuid.UUID) ([]*models.Order, error)
	FindOrdersByAsset(ctx context.Context, userID, assetID uuid.UUID, direction string, isDone bool) ([]*models.Order, error)
	FindUsersWithSellOrdersSince(ctx context.Context, since time.Time) ([]uuid.UUID, error)
}

// PriceOracle prices one unit of an asset
type PriceOracle interface {
	CurrentPrice(ctx context.Context, asset models.Asset) (models.MonetaryAmount, error)
}

// CurrencyConverter converts an amount into another currency
type CurrencyConverter interface {
	Convert(ctx context.Context, amount models.MonetaryAmount, to models.CurrencyCode) (models.MonetaryAmount, error)
}

// Service computes holdings, profit and tax figures
type Service struct {
	ledger      OrderLedger
	oracle      PriceOracle
	converter   CurrencyConverter
	taxCurrency models.CurrencyCode
	now         func() time.Time
	logger      *zap.Logger
}

// Option configures the service
type Option func(*Service)

// WithClock overrides the time source used for tax bucketing and fallbacks
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTaxCurrency sets the reporting currency of tax summaries
func WithTaxCurrency(code models.CurrencyCode) Option {
	return func(s *Service) {
		s.taxCurrency = code
	}
}

// NewService creates a portfolio service
func NewService(ledger OrderLedger, oracle PriceOracle, converter CurrencyConverter, opts ...Option) *Service {
	s := &Service{
		ledger:      ledger,
		oracle:      oracle,
		converter:   converter,
		taxCurrency: models.CurrencyRSD,
		now:         time.Now,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// convert wraps every converter failure as ErrCurrencyConversionUnavailable
func (s *Service) convert(ctx context.Context, amount models.MonetaryAmount, to models.CurrencyCode) (models.MonetaryAmount, error) {
	if amount.Currency == to {
		return amount, nil
	}
	converted, err := s.converter.Convert(ctx, amount, to)
	if err != nil {
		if errors.Is(err, ErrCurrencyConversionUnavailable) {
			return models.MonetaryAmount{}, err
		}
		return models.MonetaryAmount{}, fmt.Errorf("%w: %s to %s: %w", ErrCurrencyConversionUnavailable, amount.Currency, to, err)
	}
	return converted, nil
}
