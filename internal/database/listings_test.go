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

func TestListingsRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)
	ctx := context.Background()

	t.Run("LatestListing returns most recent quote", func(t *testing.T) {
		testDB.TruncateAll(t)
		stock := testDB.seedStock(t, "AAPL")
		now := time.Now().UTC().Truncate(time.Second)

		older := &models.Listing{
			AssetID:     stock.ID,
			Ask:         decimal.RequireFromString("180.50"),
			Bid:         decimal.RequireFromString("180.40"),
			Currency:    models.CurrencyUSD,
			Exchange:    "NASDAQ",
			LastRefresh: now.Add(-time.Hour),
		}
		newer := &models.Listing{
			AssetID:     stock.ID,
			Ask:         decimal.RequireFromString("182.10"),
			Bid:         decimal.RequireFromString("182.00"),
			Currency:    models.CurrencyUSD,
			Exchange:    "NASDAQ",
			LastRefresh: now,
		}
		require.NoError(t, testDB.CreateListing(ctx, newer))
		require.NoError(t, testDB.CreateListing(ctx, older))
		assert.NotZero(t, newer.ID)

		got, err := testDB.LatestListing(ctx, stock.ID)
		require.NoError(t, err)
		assert.Equal(t, newer.ID, got.ID)
		assert.True(t, decimal.RequireFromString("182.10").Equal(got.Price().Amount))
		assert.Equal(t, models.CurrencyUSD, got.Price().Currency)
	})

	t.Run("LatestListing returns not found without quotes", func(t *testing.T) {
		testDB.TruncateAll(t)

		_, err := testDB.LatestListing(ctx, uuid.New())
		assert.ErrorIs(t, err, models.ErrListingNotFound)
	})
}
