package pricing

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/trogers1052/portfolio-service/internal/models"
)

func TestBlackScholes(t *testing.T) {
	t.Run("matches reference values", func(t *testing.T) {
		// S=100 K=100 T=1 r=5% sigma=20%
		assert.InDelta(t, 10.4506, BlackScholes(100, 100, 1, 0.05, 0.2, models.OptionTypeCall), 1e-4)
		assert.InDelta(t, 5.5735, BlackScholes(100, 100, 1, 0.05, 0.2, models.OptionTypePut), 1e-4)
	})

	t.Run("satisfies put-call parity", func(t *testing.T) {
		cases := []struct{ S, K, T, r, sigma float64 }{
			{100, 90, 0.5, 0.02, 0.4},
			{42, 40, 0.25, 0.1, 0.2},
			{180, 200, 2, 0.02, 0.35},
		}
		for _, c := range cases {
			call := BlackScholes(c.S, c.K, c.T, c.r, c.sigma, models.OptionTypeCall)
			put := BlackScholes(c.S, c.K, c.T, c.r, c.sigma, models.OptionTypePut)
			assert.InDelta(t, c.S-c.K*math.Exp(-c.r*c.T), call-put, 1e-9)
		}
	})

	t.Run("expired contracts are worthless", func(t *testing.T) {
		assert.Zero(t, BlackScholes(150, 100, 0, 0.02, 0.4, models.OptionTypeCall))
		assert.Zero(t, BlackScholes(50, 100, -0.1, 0.02, 0.4, models.OptionTypePut))
	})

	t.Run("zero volatility gives discounted intrinsic value", func(t *testing.T) {
		want := 110 - 100*math.Exp(-0.02)
		assert.InDelta(t, want, BlackScholes(110, 100, 1, 0.02, 0, models.OptionTypeCall), 1e-12)
		assert.Zero(t, BlackScholes(110, 100, 1, 0.02, 0, models.OptionTypePut))
	})

	t.Run("prices are never negative", func(t *testing.T) {
		for _, S := range []float64{1, 50, 100, 500} {
			assert.GreaterOrEqual(t, BlackScholes(S, 100, 0.1, 0.02, 0.3, models.OptionTypeCall), 0.0)
			assert.GreaterOrEqual(t, BlackScholes(S, 100, 0.1, 0.02, 0.3, models.OptionTypePut), 0.0)
		}
	})
}

func TestYearsUntil(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.InDelta(t, 1.0, YearsUntil(now, now.Add(time.Duration(secondsPerYear)*time.Second)), 1e-12)
	assert.Less(t, YearsUntil(now, now.Add(-time.Hour)), 0.0)
}

func TestOptionPrice(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	option := &models.Option{
		StrikePrice:       models.NewMonetaryAmount(decimal.NewFromInt(100), models.CurrencyUSD),
		SettlementDate:    now.Add(time.Duration(secondsPerYear) * time.Second),
		OptionType:        models.OptionTypeCall,
		ImpliedVolatility: 0.2,
	}

	assert.InDelta(t, 10.4506, OptionPrice(option, 100, 0.05, now), 1e-4)
	assert.Zero(t, OptionPrice(option, 100, 0.05, option.SettlementDate.Add(time.Second)))
}
