package portfolio

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/portfolio-service/internal/models"
)

func TestComputeCostBasis(t *testing.T) {
	user := uuid.New()
	stock := newStock("AAPL")

	t.Run("weighted average over buys", func(t *testing.T) {
		basis, err := ComputeCostBasis([]*models.Order{
			buy(user, stock, "50", "140.00", fixedNow),
			buy(user, stock, "30", "160.00", fixedNow),
			sell(user, stock, "20", "170.00", fixedNow),
		})
		require.NoError(t, err)
		assert.True(t, basis.HasBasis)
		assert.True(t, decimal.NewFromInt(80).Equal(basis.TotalQuantity))
		assert.Equal(t, "147.50 USD", basis.AverageCost().String())
	})

	t.Run("invariant under reordering", func(t *testing.T) {
		a := buy(user, stock, "3", "10.00", fixedNow)
		b := buy(user, stock, "7", "12.35", fixedNow)
		c := buy(user, stock, "1.5", "9.99", fixedNow)

		first, err := ComputeCostBasis([]*models.Order{a, b, c})
		require.NoError(t, err)
		second, err := ComputeCostBasis([]*models.Order{c, a, b})
		require.NoError(t, err)

		assert.True(t, first.exactAverage().Equal(second.exactAverage()))
		assert.Equal(t, first.AverageCost(), second.AverageCost())
	})

	t.Run("single buy is its own price", func(t *testing.T) {
		basis, err := ComputeCostBasis([]*models.Order{buy(user, stock, "4", "99.99", fixedNow)})
		require.NoError(t, err)
		assert.Equal(t, "99.99 USD", basis.AverageCost().String())
	})

	t.Run("unsettled buys are ignored", func(t *testing.T) {
		pending := buy(user, stock, "10", "1.00", fixedNow)
		pending.IsDone = false
		declined := buy(user, stock, "10", "1.00", fixedNow)
		declined.Status = models.StatusDeclined

		basis, err := ComputeCostBasis([]*models.Order{pending, declined, buy(user, stock, "2", "50.00", fixedNow)})
		require.NoError(t, err)
		assert.Equal(t, "50.00 USD", basis.AverageCost().String())
	})

	t.Run("no buys means no basis", func(t *testing.T) {
		basis, err := ComputeCostBasis([]*models.Order{sell(user, stock, "5", "10", fixedNow)})
		require.NoError(t, err)
		assert.False(t, basis.HasBasis)
		assert.True(t, basis.AverageCost().IsZero())
	})

	t.Run("mixed buy currencies fail", func(t *testing.T) {
		eur := buy(user, stock, "1", "10", fixedNow)
		eur.PricePerUnit = money("10", models.CurrencyEUR)

		_, err := ComputeCostBasis([]*models.Order{buy(user, stock, "1", "10", fixedNow), eur})
		assert.ErrorIs(t, err, models.ErrCurrencyMismatch)
	})
}

func TestAverageCost(t *testing.T) {
	user := uuid.New()
	stock := newStock("AAPL")
	other := newStock("MSFT")

	ledger := newMockLedger()
	ledger.add(
		buy(user, stock, "1", "10.00", fixedNow),
		buy(user, stock, "2", "10.01", fixedNow),
		buy(user, other, "100", "1.00", fixedNow),
	)
	s := newTestService(ledger, &mockOracle{}, nil)

	basis, err := s.AverageCost(context.Background(), user, stock)
	require.NoError(t, err)
	assert.Equal(t, "10.01 USD", basis.AverageCost().String())
}
