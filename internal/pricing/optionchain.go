package pricing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-service/internal/models"
)

// Option chain seeding parameters
const (
	chainStrikeSpread       = 5
	chainImpliedVolatility  = 0.4
	chainBaseOpenInterest   = 500
	chainOpenInterestPerDay = 5
)

// MakeOptionTicker builds an OCC-style symbol: TICKER + YYMMDD + C|P + strike*100 padded to 8 digits
func MakeOptionTicker(expiry time.Time, ticker string, optionType string, strike int) string {
	typeChar := "P"
	if optionType == models.OptionTypeCall {
		typeChar = "C"
	}
	return fmt.Sprintf("%s%s%s%08d", strings.ToUpper(ticker), expiry.Format("060102"), typeChar, strike*100)
}

// ChainExpiries returns the seeding schedule: every 6 days out to 30, then every 30 days out to 210
func ChainExpiries(now time.Time) []time.Time {
	var expiries []time.Time
	for days := 6; days <= 30; days += 6 {
		expiries = append(expiries, now.AddDate(0, 0, days))
	}
	for days := 60; days <= 210; days += 30 {
		expiries = append(expiries, now.AddDate(0, 0, days))
	}
	return expiries
}

// ChainStrikes returns whole-number strikes within 5 of the rounded spot price.
// Non-positive strikes are dropped.
func ChainStrikes(spot decimal.Decimal) []int {
	base := int(spot.Round(0).IntPart())
	strikes := make([]int, 0, 2*chainStrikeSpread+1)
	for i := -chainStrikeSpread; i <= chainStrikeSpread; i++ {
		if base+i > 0 {
			strikes = append(strikes, base+i)
		}
	}
	return strikes
}

// GenerateOptionChain synthesizes a CALL and a PUT for every strike/expiry pair.
// Used to seed demo and test data only.
func GenerateOptionChain(stock *models.Stock, spot models.MonetaryAmount, now time.Time) []*models.Option {
	now = now.UTC()
	expiries := ChainExpiries(now)
	strikes := ChainStrikes(spot.Amount)

	options := make([]*models.Option, 0, len(expiries)*len(strikes)*2)
	for _, expiry := range expiries {
		days := int(expiry.Sub(now).Hours() / 24)
		openInterest := chainBaseOpenInterest - days*chainOpenInterestPerDay
		if openInterest < 0 {
			openInterest = 0
		}

		for _, strike := range strikes {
			strikeAmount := models.NewMonetaryAmount(decimal.NewFromInt(int64(strike)), spot.Currency)
			for _, optionType := range []string{models.OptionTypeCall, models.OptionTypePut} {
				options = append(options, &models.Option{
					ID:                uuid.New(),
					Name:              fmt.Sprintf("%s-%s-%d-%s", stock.Ticker, optionType, strike, expiry.Format("2006-01-02")),
					Ticker:            MakeOptionTicker(expiry, stock.Ticker, optionType, strike),
					Underlying:        stock,
					StrikePrice:       strikeAmount,
					SettlementDate:    expiry,
					OptionType:        optionType,
					ImpliedVolatility: chainImpliedVolatility,
					OpenInterest:      openInterest,
				})
			}
		}
	}
	return options
}
