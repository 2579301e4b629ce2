package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-service/internal/metrics"
	"github.com/trogers1052/portfolio-service/internal/models"
	"go.uber.org/zap"
)

// CapitalGainsTaxRate applies to positive realized gains on stock sales
var CapitalGainsTaxRate = decimal.RequireFromString("0.15")

const taxPlaces = 2

// TaxSnapshot is one user's tax summary at collection time. Year and Month
// name the period the summary was bucketed against.
type TaxSnapshot struct {
	UserID     uuid.UUID
	Year       int
	Month      time.Month
	ComputedAt time.Time
	Summary    models.TaxSummary
}

// TaxSummary estimates capital gains tax on the user's completed stock sales of
// the current calendar year. Sales in the current month are still unpaid;
// earlier months count as paid.
//
// The cost basis is today's average over every buy, not the basis at the time
// of sale. It is converted into each sale's currency; the resulting tax amounts
// are reported without conversion.
func (s *Service) TaxSummary(ctx context.Context, userID uuid.UUID) (summary models.TaxSummary, err error) {
	start := time.Now()
	defer func() { metrics.ObserveQuery("tax_summary", start, err) }()

	return s.taxSummaryAt(ctx, userID, s.now())
}

// taxSummaryAt buckets the user's sales against the calendar month of now
func (s *Service) taxSummaryAt(ctx context.Context, userID uuid.UUID, now time.Time) (models.TaxSummary, error) {
	orders, err := s.ledger.FindOrders(ctx, userID)
	if err != nil {
		return models.TaxSummary{}, fmt.Errorf("failed to load orders for user %s: %w", userID, err)
	}

	paid := decimal.Zero
	unpaid := decimal.Zero
	bases := make(map[uuid.UUID]CostBasis)

	for _, o := range orders {
		stock, ok := o.Asset.(*models.Stock)
		if !ok || stock == nil || o.Direction != models.DirectionSell || !o.IsSettled() {
			continue
		}
		createdAt := o.CreatedAt.In(now.Location())
		if createdAt.Year() != now.Year() {
			continue
		}

		basis, ok := bases[stock.ID]
		if !ok {
			if basis, err = s.AverageCost(ctx, userID, stock); err != nil {
				return models.TaxSummary{}, err
			}
			bases[stock.ID] = basis
		}

		tax, err := s.sellOrderTax(ctx, o, basis)
		if err != nil {
			return models.TaxSummary{}, err
		}

		if createdAt.Month() == now.Month() {
			unpaid = unpaid.Add(tax)
		} else {
			paid = paid.Add(tax)
		}
	}

	return models.TaxSummary{
		PaidTaxThisYear:    paid,
		UnpaidTaxThisMonth: unpaid,
		Currency:           s.taxCurrency,
	}, nil
}

// sellOrderTax expresses the average cost in the sale's currency before
// taxing the gain. A missing rate fails with ErrCurrencyConversionUnavailable.
func (s *Service) sellOrderTax(ctx context.Context, sell *models.Order, basis CostBasis) (decimal.Decimal, error) {
	if !basis.HasBasis {
		return decimal.Zero, nil
	}
	avg, err := s.convert(ctx, basis.AverageCost(), sell.PricePerUnit.Currency)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to price cost basis of order %s: %w", sell.ID, err)
	}
	return taxOnGain(sell, avg.Round())
}

// SellOrderTax is 15% of the gain of a sale over the average cost, rounded
// half-up to 2 places. Losses, break-even sales and sales without any buy
// history are not taxed. The sale and the basis must share a currency.
func SellOrderTax(sell *models.Order, basis CostBasis) (decimal.Decimal, error) {
	if !basis.HasBasis {
		return decimal.Zero, nil
	}
	return taxOnGain(sell, basis.AverageCost())
}

func taxOnGain(sell *models.Order, avgCost models.MonetaryAmount) (decimal.Decimal, error) {
	gainPerUnit, err := sell.PricePerUnit.Sub(avgCost)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to compute gain of order %s: %w", sell.ID, err)
	}

	totalGain := gainPerUnit.Amount.Mul(sell.Quantity)
	if !totalGain.IsPositive() {
		return decimal.Zero, nil
	}
	return models.RoundHalfUp(totalGain.Mul(CapitalGainsTaxRate), taxPlaces), nil
}

// CollectTax computes the tax summary of every user with a completed sale this
// year. One failing user is logged and skipped so the batch still completes.
func (s *Service) CollectTax(ctx context.Context) ([]TaxSnapshot, error) {
	now := s.now()
	startOfYear := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())

	users, err := s.ledger.FindUsersWithSellOrdersSince(ctx, startOfYear)
	if err != nil {
		return nil, fmt.Errorf("failed to list taxpayers: %w", err)
	}

	snapshots := make([]TaxSnapshot, 0, len(users))
	for _, userID := range users {
		summary, err := s.taxSummaryAt(ctx, userID, now)
		if err != nil {
			s.logger.Error("tax summary failed during collection",
				zap.String("user_id", userID.String()),
				zap.Error(err))
			continue
		}
		snapshots = append(snapshots, TaxSnapshot{
			UserID:     userID,
			Year:       now.Year(),
			Month:      now.Month(),
			ComputedAt: now,
			Summary:    summary,
		})
	}
	return snapshots, nil
}
