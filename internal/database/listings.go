package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/trogers1052/portfolio-service/internal/models"
)

// CreateListing inserts a quote for an asset
func (db *DB) CreateListing(ctx context.Context, l *models.Listing) error {
	query := `
		INSERT INTO listings (asset_id, ask, bid, currency, exchange, last_refresh)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	if l.LastRefresh.IsZero() {
		l.LastRefresh = time.Now()
	}

	err := db.conn.QueryRowContext(ctx, query,
		l.AssetID, l.Ask, l.Bid, string(l.Currency), l.Exchange, l.LastRefresh,
	).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}
	return nil
}

// LatestListing returns the most recently refreshed quote for the asset
func (db *DB) LatestListing(ctx context.Context, assetID uuid.UUID) (*models.Listing, error) {
	query := `
		SELECT id, asset_id, ask, bid, currency, exchange, last_refresh
		FROM listings
		WHERE asset_id = $1
		ORDER BY last_refresh DESC, id DESC
		LIMIT 1
	`
	var l models.Listing
	var currency string
	err := db.conn.QueryRowContext(ctx, query, assetID).Scan(
		&l.ID, &l.AssetID, &l.Ask, &l.Bid, &currency, &l.Exchange, &l.LastRefresh,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("asset %s: %w", assetID, models.ErrListingNotFound)
		}
		return nil, fmt.Errorf("failed to get latest listing: %w", err)
	}
	l.Currency = models.CurrencyCode(currency)
	return &l, nil
}
