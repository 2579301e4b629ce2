package portfolio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-service/internal/metrics"
	"github.com/trogers1052/portfolio-service/internal/models"
	"github.com/trogers1052/portfolio-service/internal/pricing"
	"go.uber.org/zap"
)

// position accumulates one asset's settled orders during a ledger replay
type position struct {
	asset        models.Asset
	net          decimal.Decimal
	buys         []*models.Order
	lastModified time.Time
}

// Holdings replays the user's settled orders and returns every asset with a
// positive net quantity, valued at its current price. Results are sorted by
// ticker then asset ID.
func (s *Service) Holdings(ctx context.Context, userID uuid.UUID) (holdings []models.Holding, err error) {
	start := time.Now()
	defer func() { metrics.ObserveQuery("holdings", start, err) }()

	orders, err := s.ledger.FindOrders(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders for user %s: %w", userID, err)
	}
	return s.buildHoldings(ctx, userID, orders)
}

func (s *Service) buildHoldings(ctx context.Context, userID uuid.UUID, orders []*models.Order) ([]models.Holding, error) {
	positions := s.replay(userID, orders)
	queryTime := s.now()

	holdings := make([]models.Holding, 0, len(positions))
	for _, p := range positions {
		if !p.net.IsPositive() {
			continue
		}

		price, err := s.oracle.CurrentPrice(ctx, p.asset)
		if errors.Is(err, pricing.ErrInvalidAssetType) {
			s.skipHolding(userID, p.asset, err)
			continue
		}
		if err != nil {
			return nil, err
		}

		basis, err := ComputeCostBasis(p.buys)
		if err != nil {
			return nil, err
		}
		profit, err := s.unrealizedProfit(ctx, price, basis, p.net)
		if err != nil {
			return nil, err
		}

		lastModified := p.lastModified
		if lastModified.IsZero() {
			lastModified = queryTime
		}

		holdings = append(holdings, models.Holding{
			Asset:            p.asset,
			NetQuantity:      p.net,
			CurrentPrice:     price,
			UnrealizedProfit: profit,
			LastModified:     lastModified,
		})
	}

	sort.Slice(holdings, func(i, j int) bool {
		a, b := holdings[i].Asset, holdings[j].Asset
		if a.Symbol() != b.Symbol() {
			return a.Symbol() < b.Symbol()
		}
		idA, idB := a.AssetID(), b.AssetID()
		return bytes.Compare(idA[:], idB[:]) < 0
	})
	return holdings, nil
}

// replay groups settled orders by asset and nets their quantities
func (s *Service) replay(userID uuid.UUID, orders []*models.Order) map[uuid.UUID]*position {
	positions := make(map[uuid.UUID]*position)
	for _, o := range orders {
		if !o.IsSettled() {
			continue
		}
		if err := classify(o.Asset); err != nil {
			s.skipHolding(userID, o.Asset, fmt.Errorf("order %s: %w", o.ID, err))
			continue
		}

		id := o.Asset.AssetID()
		p, ok := positions[id]
		if !ok {
			p = &position{asset: o.Asset}
			positions[id] = p
		}
		p.net = p.net.Add(o.SignedQuantity())

		if o.Direction == models.DirectionBuy {
			p.buys = append(p.buys, o)
			if o.LastModified.After(p.lastModified) {
				p.lastModified = o.LastModified
			}
		}
	}
	return positions
}

// unrealizedProfit is (price - average cost) * net, rounded once at the end.
// A position without buy history reports zero profit.
func (s *Service) unrealizedProfit(ctx context.Context, price models.MonetaryAmount, basis CostBasis, net decimal.Decimal) (models.MonetaryAmount, error) {
	if !basis.HasBasis {
		return models.Zero(price.Currency), nil
	}

	avg := models.NewMonetaryAmount(basis.exactAverage(), basis.TotalCost.Currency)
	avg, err := s.convert(ctx, avg, price.Currency)
	if err != nil {
		return models.MonetaryAmount{}, err
	}

	gainPerUnit, err := price.Sub(avg)
	if err != nil {
		return models.MonetaryAmount{}, err
	}
	return gainPerUnit.Mul(net).Round(), nil
}

// classify rejects anything outside the four known asset variants
func classify(asset models.Asset) error {
	known := false
	switch a := asset.(type) {
	case *models.Stock:
		known = a != nil
	case *models.Future:
		known = a != nil
	case *models.ForexPair:
		known = a != nil
	case *models.Option:
		known = a != nil && a.Underlying != nil
	}
	if !known {
		return fmt.Errorf("%w: %T", pricing.ErrInvalidAssetType, asset)
	}
	return nil
}

func (s *Service) skipHolding(userID uuid.UUID, asset models.Asset, err error) {
	metrics.SkippedHoldings.Inc()
	fields := []zap.Field{zap.String("user_id", userID.String()), zap.Error(err)}
	if asset != nil {
		fields = append(fields, zap.String("asset_type", fmt.Sprintf("%T", asset)))
	}
	s.logger.Warn("skipping unclassifiable holding", fields...)
}
