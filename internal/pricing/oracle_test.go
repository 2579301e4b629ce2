package pricing

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/portfolio-service/internal/models"
)

type mockListingStore struct {
	listings map[uuid.UUID]*models.Listing
	err      error
	delay    time.Duration
}

func (m *mockListingStore) LatestListing(ctx context.Context, assetID uuid.UUID) (*models.Listing, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	l, ok := m.listings[assetID]
	if !ok {
		return nil, models.ErrListingNotFound
	}
	return l, nil
}

func newListing(assetID uuid.UUID, ask string, cur models.CurrencyCode) *models.Listing {
	return &models.Listing{AssetID: assetID, Ask: decimal.RequireFromString(ask), Bid: decimal.RequireFromString(ask), Currency: cur}
}

func TestOracleCurrentPrice(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	stock := &models.Stock{ID: uuid.New(), Ticker: "AAPL"}
	future := &models.Future{ID: uuid.New(), Ticker: "CLZ6"}
	store := &mockListingStore{listings: map[uuid.UUID]*models.Listing{
		stock.ID:  newListing(stock.ID, "100", models.CurrencyUSD),
		future.ID: newListing(future.ID, "71.25", models.CurrencyUSD),
	}}
	oracle := NewOracle(store, WithClock(func() time.Time { return now }), WithRiskFreeRate(0.05))
	ctx := context.Background()

	t.Run("stock uses the listing ask", func(t *testing.T) {
		price, err := oracle.CurrentPrice(ctx, stock)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(100).Equal(price.Amount))
		assert.Equal(t, models.CurrencyUSD, price.Currency)
	})

	t.Run("future uses the listing ask", func(t *testing.T) {
		price, err := oracle.CurrentPrice(ctx, future)
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("71.25").Equal(price.Amount))
	})

	t.Run("forex pair is priced at its rate in the quote currency", func(t *testing.T) {
		pair := &models.ForexPair{ID: uuid.New(), BaseCurrency: models.CurrencyEUR, QuoteCurrency: models.CurrencyUSD, ExchangeRate: decimal.RequireFromString("1.085")}
		price, err := oracle.CurrentPrice(ctx, pair)
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("1.085").Equal(price.Amount))
		assert.Equal(t, models.CurrencyUSD, price.Currency)
	})

	t.Run("option is priced with Black-Scholes on the underlying", func(t *testing.T) {
		option := &models.Option{
			ID:                uuid.New(),
			Ticker:            "AAPL270101C00100000",
			Underlying:        stock,
			StrikePrice:       models.NewMonetaryAmount(decimal.NewFromInt(100), models.CurrencyUSD),
			SettlementDate:    now.Add(time.Duration(secondsPerYear) * time.Second),
			OptionType:        models.OptionTypeCall,
			ImpliedVolatility: 0.2,
		}
		price, err := oracle.CurrentPrice(ctx, option)
		require.NoError(t, err)
		assert.Equal(t, "10.45", price.Amount.StringFixed(2))
		assert.Equal(t, models.CurrencyUSD, price.Currency)
	})

	t.Run("expired option is worth zero", func(t *testing.T) {
		option := &models.Option{
			ID:             uuid.New(),
			Underlying:     stock,
			StrikePrice:    models.NewMonetaryAmount(decimal.NewFromInt(50), models.CurrencyUSD),
			SettlementDate: now.Add(-time.Hour),
			OptionType:     models.OptionTypeCall,
		}
		price, err := oracle.CurrentPrice(ctx, option)
		require.NoError(t, err)
		assert.True(t, price.Amount.IsZero())
	})

	t.Run("option strike currency must match underlying", func(t *testing.T) {
		option := &models.Option{
			ID:             uuid.New(),
			Underlying:     stock,
			StrikePrice:    models.NewMonetaryAmount(decimal.NewFromInt(100), models.CurrencyEUR),
			SettlementDate: now.AddDate(0, 1, 0),
			OptionType:     models.OptionTypePut,
		}
		_, err := oracle.CurrentPrice(ctx, option)
		assert.ErrorIs(t, err, models.ErrCurrencyMismatch)
	})

	t.Run("non-finite volatility is an invalid asset", func(t *testing.T) {
		for _, iv := range []float64{math.NaN(), math.Inf(1)} {
			option := &models.Option{
				ID:                uuid.New(),
				Ticker:            "AAPL270101C00100000",
				Underlying:        stock,
				StrikePrice:       models.NewMonetaryAmount(decimal.NewFromInt(100), models.CurrencyUSD),
				SettlementDate:    now.AddDate(0, 6, 0),
				OptionType:        models.OptionTypeCall,
				ImpliedVolatility: iv,
			}
			var err error
			assert.NotPanics(t, func() { _, err = oracle.CurrentPrice(ctx, option) })
			assert.ErrorIs(t, err, ErrInvalidAssetType, "implied volatility %v", iv)
		}
	})

	t.Run("missing listing is PriceUnavailable", func(t *testing.T) {
		_, err := oracle.CurrentPrice(ctx, &models.Stock{ID: uuid.New(), Ticker: "NOPE"})
		assert.ErrorIs(t, err, ErrPriceUnavailable)
		assert.ErrorIs(t, err, models.ErrListingNotFound)
	})

	t.Run("option without listed underlying is PriceUnavailable", func(t *testing.T) {
		option := &models.Option{
			ID:             uuid.New(),
			Underlying:     &models.Stock{ID: uuid.New(), Ticker: "GONE"},
			StrikePrice:    models.NewMonetaryAmount(decimal.NewFromInt(1), models.CurrencyUSD),
			SettlementDate: now.AddDate(0, 1, 0),
		}
		_, err := oracle.CurrentPrice(ctx, option)
		assert.ErrorIs(t, err, ErrPriceUnavailable)
	})

	t.Run("option without underlying is an invalid asset", func(t *testing.T) {
		_, err := oracle.CurrentPrice(ctx, &models.Option{ID: uuid.New()})
		assert.ErrorIs(t, err, ErrInvalidAssetType)
	})

	t.Run("store failure is PriceUnavailable", func(t *testing.T) {
		failing := NewOracle(&mockListingStore{err: errors.New("connection reset")})
		_, err := failing.CurrentPrice(ctx, stock)
		assert.ErrorIs(t, err, ErrPriceUnavailable)
	})

	t.Run("slow lookups time out", func(t *testing.T) {
		slow := NewOracle(&mockListingStore{delay: time.Second}, WithTimeout(10*time.Millisecond))
		_, err := slow.CurrentPrice(ctx, stock)
		assert.ErrorIs(t, err, ErrPriceUnavailable)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("nil asset is invalid", func(t *testing.T) {
		_, err := oracle.CurrentPrice(ctx, nil)
		assert.ErrorIs(t, err, ErrInvalidAssetType)
	})
}
