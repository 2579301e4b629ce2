package portfolio

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-service/internal/models"
)

// divisionPrecision bounds the scale of the unrounded average
const divisionPrecision = 16

// CostBasis is the weighted-average acquisition cost over every completed BUY.
// Sells never reduce it; there is no lot tracking.
type CostBasis struct {
	TotalCost     models.MonetaryAmount
	TotalQuantity decimal.Decimal
	// HasBasis is false when the user never bought the asset
	HasBasis bool
}

// AverageCost is TotalCost / TotalQuantity rounded half-up to the currency's minor unit.
// Without a basis it is zero.
func (c CostBasis) AverageCost() models.MonetaryAmount {
	return models.NewMonetaryAmount(c.exactAverage(), c.TotalCost.Currency).Round()
}

func (c CostBasis) exactAverage() decimal.Decimal {
	if !c.HasBasis || c.TotalQuantity.IsZero() {
		return decimal.Zero
	}
	return c.TotalCost.Amount.DivRound(c.TotalQuantity, divisionPrecision)
}

// ComputeCostBasis folds the settled BUY orders among orders into a cost basis.
// Order is irrelevant. All BUY prices must share one currency.
func ComputeCostBasis(orders []*models.Order) (CostBasis, error) {
	var basis CostBasis
	for _, o := range orders {
		if o.Direction != models.DirectionBuy || !o.IsSettled() {
			continue
		}

		lineCost := o.PricePerUnit.Mul(o.Quantity)
		if !basis.HasBasis {
			basis.TotalCost = lineCost
			basis.TotalQuantity = o.Quantity
			basis.HasBasis = true
			continue
		}

		total, err := basis.TotalCost.Add(lineCost)
		if err != nil {
			return CostBasis{}, fmt.Errorf("failed to accumulate cost of order %s: %w", o.ID, err)
		}
		basis.TotalCost = total
		basis.TotalQuantity = basis.TotalQuantity.Add(o.Quantity)
	}

	if basis.HasBasis && !basis.TotalQuantity.IsPositive() {
		return CostBasis{TotalCost: models.Zero(basis.TotalCost.Currency)}, nil
	}
	return basis, nil
}

// AverageCost loads the user's completed BUY orders for the asset and computes their cost basis
func (s *Service) AverageCost(ctx context.Context, userID uuid.UUID, asset models.Asset) (CostBasis, error) {
	buys, err := s.ledger.FindOrdersByAsset(ctx, userID, asset.AssetID(), models.DirectionBuy, true)
	if err != nil {
		return CostBasis{}, fmt.Errorf("failed to load buy orders for %s: %w", asset.Symbol(), err)
	}
	return ComputeCostBasis(buys)
}
