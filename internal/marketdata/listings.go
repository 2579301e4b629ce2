package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/trogers1052/portfolio-service/internal/models"
	"go.uber.org/zap"
)

// ListingStore is the stored-quote source consulted first
type ListingStore interface {
	LatestListing(ctx context.Context, assetID uuid.UUID) (*models.Listing, error)
}

// AssetLookup resolves an asset ID to its ticker
type AssetLookup interface {
	GetAssetByID(ctx context.Context, id uuid.UUID) (models.Asset, error)
}

// QuoteFeed fetches a live quote by ticker
type QuoteFeed interface {
	Quote(ctx context.Context, ticker string) (*models.Listing, error)
}

// FallbackListings serves stored listings and falls back to the live feed
// when the asset has no stored quote or the stored quote is older than maxAge.
// A zero maxAge never treats stored quotes as stale.
type FallbackListings struct {
	stored ListingStore
	assets AssetLookup
	feed   QuoteFeed
	maxAge time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// NewFallbackListings creates a listing source backed by stored quotes and a live feed
func NewFallbackListings(stored ListingStore, assets AssetLookup, feed QuoteFeed, maxAge time.Duration, logger *zap.Logger) *FallbackListings {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackListings{
		stored: stored,
		assets: assets,
		feed:   feed,
		maxAge: maxAge,
		now:    time.Now,
		logger: logger,
	}
}

// LatestListing returns the freshest available quote for the asset
func (f *FallbackListings) LatestListing(ctx context.Context, assetID uuid.UUID) (*models.Listing, error) {
	listing, err := f.stored.LatestListing(ctx, assetID)
	switch {
	case err == nil && !f.stale(listing):
		return listing, nil
	case err != nil && !errors.Is(err, models.ErrListingNotFound):
		return nil, err
	}

	asset, lookupErr := f.assets.GetAssetByID(ctx, assetID)
	if lookupErr != nil {
		return nil, fmt.Errorf("failed to resolve asset %s for live quote: %w", assetID, lookupErr)
	}

	live, feedErr := f.feed.Quote(ctx, asset.Symbol())
	if feedErr != nil {
		if listing != nil {
			f.logger.Warn("live quote failed, serving stale listing",
				zap.String("ticker", asset.Symbol()),
				zap.Time("last_refresh", listing.LastRefresh),
				zap.Error(feedErr))
			return listing, nil
		}
		return nil, feedErr
	}

	live.AssetID = assetID
	return live, nil
}

func (f *FallbackListings) stale(l *models.Listing) bool {
	return f.maxAge > 0 && f.now().Sub(l.LastRefresh) > f.maxAge
}
