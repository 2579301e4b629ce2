package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/portfolio-service/internal/models"
)

func TestAssetsRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)
	ctx := context.Background()

	t.Run("GetAssetByID round-trips a stock", func(t *testing.T) {
		testDB.TruncateAll(t)
		stock := testDB.seedStock(t, "AAPL")

		got, err := testDB.GetAssetByID(ctx, stock.ID)
		require.NoError(t, err)

		s, ok := got.(*models.Stock)
		require.True(t, ok, "expected *models.Stock, got %T", got)
		assert.Equal(t, "AAPL", s.Ticker)
		assert.Equal(t, int64(1_000_000), s.OutstandingShares)
		assert.True(t, decimal.RequireFromString("0.012").Equal(s.DividendYield))
	})

	t.Run("GetAssetByID resolves option underlying", func(t *testing.T) {
		testDB.TruncateAll(t)
		stock := testDB.seedStock(t, "MSFT")
		settlement := time.Date(2026, 12, 18, 0, 0, 0, 0, time.UTC)

		option := &models.Option{
			ID:                uuid.New(),
			Name:              "MSFT call",
			Ticker:            "MSFT261218C00400000",
			Underlying:        stock,
			StrikePrice:       usd("400"),
			SettlementDate:    settlement,
			OptionType:        models.OptionTypeCall,
			ImpliedVolatility: 0.4,
			OpenInterest:      120,
		}
		require.NoError(t, testDB.CreateAsset(ctx, option))

		got, err := testDB.GetAssetByID(ctx, option.ID)
		require.NoError(t, err)

		o, ok := got.(*models.Option)
		require.True(t, ok, "expected *models.Option, got %T", got)
		require.NotNil(t, o.Underlying)
		assert.Equal(t, stock.ID, o.Underlying.ID)
		assert.Equal(t, "MSFT", o.Underlying.Ticker)
		assert.Equal(t, models.CurrencyUSD, o.StrikePrice.Currency)
		assert.True(t, decimal.NewFromInt(400).Equal(o.StrikePrice.Amount))
		assert.True(t, settlement.Equal(o.SettlementDate))
		assert.Equal(t, 120, o.OpenInterest)
	})

	t.Run("CreateAsset rejects duplicate ticker", func(t *testing.T) {
		testDB.TruncateAll(t)
		testDB.seedStock(t, "DUP")

		err := testDB.CreateAsset(ctx, &models.Stock{ID: uuid.New(), Name: "again", Ticker: "DUP"})
		assert.ErrorIs(t, err, models.ErrAssetExists)
	})

	t.Run("GetAssetByTicker returns not found", func(t *testing.T) {
		testDB.TruncateAll(t)

		_, err := testDB.GetAssetByTicker(ctx, "NOPE")
		assert.ErrorIs(t, err, models.ErrAssetNotFound)
	})

	t.Run("CreateAssetsBatch skips existing tickers", func(t *testing.T) {
		testDB.TruncateAll(t)
		testDB.seedStock(t, "AAA")

		n, err := testDB.CreateAssetsBatch(ctx, []models.Asset{
			&models.Stock{ID: uuid.New(), Name: "dup", Ticker: "AAA"},
			&models.Stock{ID: uuid.New(), Name: "new", Ticker: "BBB"},
			&models.Future{ID: uuid.New(), Name: "Crude", Ticker: "CLZ6", ContractSize: 1000, ContractUnit: "barrel"},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		stocks, err := testDB.ListStocks(ctx)
		require.NoError(t, err)
		require.Len(t, stocks, 2)
		assert.Equal(t, "AAA", stocks[0].Ticker)
		assert.Equal(t, "BBB", stocks[1].Ticker)
	})

	t.Run("FindForexPair matches base and quote", func(t *testing.T) {
		testDB.TruncateAll(t)
		pair := &models.ForexPair{
			ID:            uuid.New(),
			Name:          "Euro / US Dollar",
			Ticker:        "EUR/USD",
			BaseCurrency:  models.CurrencyEUR,
			QuoteCurrency: models.CurrencyUSD,
			ExchangeRate:  decimal.RequireFromString("1.0850"),
			LiquidityTier: "HIGH",
		}
		require.NoError(t, testDB.CreateAsset(ctx, pair))

		got, err := testDB.FindForexPair(ctx, models.CurrencyEUR, models.CurrencyUSD)
		require.NoError(t, err)
		assert.Equal(t, pair.ID, got.ID)
		assert.True(t, decimal.RequireFromString("1.085").Equal(got.ExchangeRate))

		_, err = testDB.FindForexPair(ctx, models.CurrencyUSD, models.CurrencyEUR)
		assert.ErrorIs(t, err, models.ErrAssetNotFound)
	})

	t.Run("UpdateExchangeRate changes the stored rate", func(t *testing.T) {
		testDB.TruncateAll(t)
		pair := &models.ForexPair{
			ID:            uuid.New(),
			Name:          "US Dollar / Serbian Dinar",
			Ticker:        "USD/RSD",
			BaseCurrency:  models.CurrencyUSD,
			QuoteCurrency: models.CurrencyRSD,
			ExchangeRate:  decimal.NewFromInt(100),
		}
		require.NoError(t, testDB.CreateAsset(ctx, pair))

		require.NoError(t, testDB.UpdateExchangeRate(ctx, pair.ID, decimal.RequireFromString("108.5")))

		got, err := testDB.FindForexPair(ctx, models.CurrencyUSD, models.CurrencyRSD)
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("108.5").Equal(got.ExchangeRate))

		err = testDB.UpdateExchangeRate(ctx, uuid.New(), decimal.NewFromInt(1))
		assert.ErrorIs(t, err, models.ErrAssetNotFound)
	})
}
