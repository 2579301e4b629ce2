package portfolio

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/trogers1052/portfolio-service/internal/metrics"
	"github.com/trogers1052/portfolio-service/internal/models"
)

// TotalProfit sums the unrealized profit of the user's holdings of one asset
// kind, converted into target. A single missing rate fails the whole sum.
func (s *Service) TotalProfit(ctx context.Context, userID uuid.UUID, kind models.AssetKind, target models.CurrencyCode) (total models.MonetaryAmount, err error) {
	start := time.Now()
	defer func() { metrics.ObserveQuery("total_profit", start, err) }()

	holdings, err := s.Holdings(ctx, userID)
	if err != nil {
		return models.MonetaryAmount{}, err
	}
	return s.sumProfit(ctx, holdings, kind, target)
}

func (s *Service) sumProfit(ctx context.Context, holdings []models.Holding, kind models.AssetKind, target models.CurrencyCode) (models.MonetaryAmount, error) {
	total := models.Zero(target)
	for _, h := range holdings {
		if h.Asset.Kind() != kind {
			continue
		}

		converted, err := s.convert(ctx, h.UnrealizedProfit, target)
		if err != nil {
			return models.MonetaryAmount{}, err
		}
		if total, err = total.Add(converted); err != nil {
			return models.MonetaryAmount{}, err
		}
	}
	return total.Round(), nil
}
