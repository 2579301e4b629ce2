package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-service/internal/models"
)

// assetColumns selects an asset row joined with its underlying stock, if any.
// Queries using it must alias assets as "a" and the underlying as "u".
const assetColumns = `
	a.id, a.name, a.ticker, a.asset_type,
	a.outstanding_shares, a.market_cap, a.dividend_yield,
	a.strike_price, a.strike_currency, a.option_type, a.implied_volatility, a.open_interest,
	a.base_currency, a.quote_currency, a.exchange_rate, a.liquidity_tier,
	a.contract_size, a.contract_unit, a.settlement_date, a.created_at,
	u.id, u.name, u.ticker, u.outstanding_shares, u.market_cap, u.dividend_yield, u.created_at`

const assetJoin = `assets a LEFT JOIN assets u ON u.id = a.underlying_id`

// assetRow holds the nullable columns of one variant row
type assetRow struct {
	id        uuid.UUID
	name      string
	ticker    string
	assetType string
	createdAt time.Time

	outstandingShares sql.NullInt64
	marketCap         decimal.NullDecimal
	dividendYield     decimal.NullDecimal

	strikePrice       decimal.NullDecimal
	strikeCurrency    sql.NullString
	optionType        sql.NullString
	impliedVolatility sql.NullFloat64
	openInterest      sql.NullInt64

	baseCurrency  sql.NullString
	quoteCurrency sql.NullString
	exchangeRate  decimal.NullDecimal
	liquidityTier sql.NullString

	contractSize   sql.NullInt64
	contractUnit   sql.NullString
	settlementDate sql.NullTime

	underlyingID          uuid.NullUUID
	underlyingName        sql.NullString
	underlyingTicker      sql.NullString
	underlyingOutstanding sql.NullInt64
	underlyingMarketCap   decimal.NullDecimal
	underlyingDividend    decimal.NullDecimal
	underlyingCreatedAt   sql.NullTime
}

// dest returns scan targets in assetColumns order
func (r *assetRow) dest() []any {
	return []any{
		&r.id, &r.name, &r.ticker, &r.assetType,
		&r.outstandingShares, &r.marketCap, &r.dividendYield,
		&r.strikePrice, &r.strikeCurrency, &r.optionType, &r.impliedVolatility, &r.openInterest,
		&r.baseCurrency, &r.quoteCurrency, &r.exchangeRate, &r.liquidityTier,
		&r.contractSize, &r.contractUnit, &r.settlementDate, &r.createdAt,
		&r.underlyingID, &r.underlyingName, &r.underlyingTicker, &r.underlyingOutstanding,
		&r.underlyingMarketCap, &r.underlyingDividend, &r.underlyingCreatedAt,
	}
}

// toAsset builds the concrete variant for the row's asset_type
func (r *assetRow) toAsset() (models.Asset, error) {
	switch models.AssetKind(r.assetType) {
	case models.AssetKindStock:
		return &models.Stock{
			ID:                r.id,
			Name:              r.name,
			Ticker:            r.ticker,
			OutstandingShares: r.outstandingShares.Int64,
			MarketCap:         r.marketCap.Decimal,
			DividendYield:     r.dividendYield.Decimal,
			CreatedAt:         r.createdAt,
		}, nil

	case models.AssetKindOption:
		if !r.underlyingID.Valid {
			return nil, fmt.Errorf("option %s has no underlying stock", r.ticker)
		}
		return &models.Option{
			ID:     r.id,
			Name:   r.name,
			Ticker: r.ticker,
			Underlying: &models.Stock{
				ID:                r.underlyingID.UUID,
				Name:              r.underlyingName.String,
				Ticker:            r.underlyingTicker.String,
				OutstandingShares: r.underlyingOutstanding.Int64,
				MarketCap:         r.underlyingMarketCap.Decimal,
				DividendYield:     r.underlyingDividend.Decimal,
				CreatedAt:         r.underlyingCreatedAt.Time,
			},
			StrikePrice:       models.NewMonetaryAmount(r.strikePrice.Decimal, models.CurrencyCode(r.strikeCurrency.String)),
			SettlementDate:    r.settlementDate.Time,
			OptionType:        r.optionType.String,
			ImpliedVolatility: r.impliedVolatility.Float64,
			OpenInterest:      int(r.openInterest.Int64),
			CreatedAt:         r.createdAt,
		}, nil

	case models.AssetKindForexPair:
		return &models.ForexPair{
			ID:            r.id,
			Name:          r.name,
			Ticker:        r.ticker,
			BaseCurrency:  models.CurrencyCode(r.baseCurrency.String),
			QuoteCurrency: models.CurrencyCode(r.quoteCurrency.String),
			ExchangeRate:  r.exchangeRate.Decimal,
			LiquidityTier: r.liquidityTier.String,
			CreatedAt:     r.createdAt,
		}, nil

	case models.AssetKindFuture:
		return &models.Future{
			ID:             r.id,
			Name:           r.name,
			Ticker:         r.ticker,
			ContractSize:   r.contractSize.Int64,
			ContractUnit:   r.contractUnit.String,
			SettlementDate: r.settlementDate.Time,
			CreatedAt:      r.createdAt,
		}, nil
	}
	return nil, fmt.Errorf("unknown asset type %q for asset %s", r.assetType, r.id)
}

// assetParams flattens a variant into the insert column values
func assetParams(asset models.Asset) ([]any, error) {
	var (
		outstandingShares, openInterest, contractSize   sql.NullInt64
		marketCap, dividendYield, strikePrice, exchange decimal.NullDecimal
		strikeCurrency, optionType, baseCurrency        sql.NullString
		quoteCurrency, liquidityTier, contractUnit      sql.NullString
		impliedVolatility                               sql.NullFloat64
		settlementDate                                  sql.NullTime
		underlyingID                                    uuid.NullUUID
		name                                            string
		createdAt                                       time.Time
	)

	switch a := asset.(type) {
	case *models.Stock:
		name, createdAt = a.Name, a.CreatedAt
		outstandingShares = sql.NullInt64{Int64: a.OutstandingShares, Valid: true}
		marketCap = decimal.NewNullDecimal(a.MarketCap)
		dividendYield = decimal.NewNullDecimal(a.DividendYield)
	case *models.Option:
		if a.Underlying == nil {
			return nil, fmt.Errorf("option %s has no underlying stock", a.Ticker)
		}
		name, createdAt = a.Name, a.CreatedAt
		underlyingID = uuid.NullUUID{UUID: a.Underlying.ID, Valid: true}
		strikePrice = decimal.NewNullDecimal(a.StrikePrice.Amount)
		strikeCurrency = sql.NullString{String: string(a.StrikePrice.Currency), Valid: true}
		optionType = sql.NullString{String: a.OptionType, Valid: true}
		impliedVolatility = sql.NullFloat64{Float64: a.ImpliedVolatility, Valid: true}
		openInterest = sql.NullInt64{Int64: int64(a.OpenInterest), Valid: true}
		settlementDate = sql.NullTime{Time: a.SettlementDate, Valid: true}
	case *models.ForexPair:
		name, createdAt = a.Name, a.CreatedAt
		baseCurrency = sql.NullString{String: string(a.BaseCurrency), Valid: true}
		quoteCurrency = sql.NullString{String: string(a.QuoteCurrency), Valid: true}
		exchange = decimal.NewNullDecimal(a.ExchangeRate)
		liquidityTier = sql.NullString{String: a.LiquidityTier, Valid: a.LiquidityTier != ""}
	case *models.Future:
		name, createdAt = a.Name, a.CreatedAt
		contractSize = sql.NullInt64{Int64: a.ContractSize, Valid: true}
		contractUnit = sql.NullString{String: a.ContractUnit, Valid: a.ContractUnit != ""}
		settlementDate = sql.NullTime{Time: a.SettlementDate, Valid: !a.SettlementDate.IsZero()}
	default:
		return nil, fmt.Errorf("unsupported asset type %T", asset)
	}

	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return []any{
		asset.AssetID(), name, asset.Symbol(), string(asset.Kind()),
		outstandingShares, marketCap, dividendYield,
		underlyingID, strikePrice, strikeCurrency, optionType, impliedVolatility, openInterest,
		baseCurrency, quoteCurrency, exchange, liquidityTier,
		contractSize, contractUnit, settlementDate, createdAt,
	}, nil
}

const insertAsset = `
	INSERT INTO assets (
		id, name, ticker, asset_type,
		outstanding_shares, market_cap, dividend_yield,
		underlying_id, strike_price, strike_currency, option_type, implied_volatility, open_interest,
		base_currency, quote_currency, exchange_rate, liquidity_tier,
		contract_size, contract_unit, settlement_date, created_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
		$12, $13, $14, $15, $16, $17, $18, $19, $20, $21
	)`

// CreateAsset inserts any asset variant
func (db *DB) CreateAsset(ctx context.Context, asset models.Asset) error {
	params, err := assetParams(asset)
	if err != nil {
		return err
	}
	if _, err := db.conn.ExecContext(ctx, insertAsset, params...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("asset %s: %w", asset.Symbol(), models.ErrAssetExists)
		}
		return fmt.Errorf("failed to create asset %s: %w", asset.Symbol(), err)
	}
	return nil
}

// CreateAssetsBatch inserts assets in one transaction. Assets whose ticker
// already exists are skipped. Returns the number inserted.
func (db *DB) CreateAssetsBatch(ctx context.Context, assets []models.Asset) (int, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertAsset+` ON CONFLICT (ticker) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare asset insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, asset := range assets {
		params, err := assetParams(asset)
		if err != nil {
			return 0, err
		}
		res, err := stmt.ExecContext(ctx, params...)
		if err != nil {
			return 0, fmt.Errorf("failed to insert asset %s: %w", asset.Symbol(), err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit assets: %w", err)
	}
	return inserted, nil
}

// GetAssetByID retrieves an asset with its underlying resolved
func (db *DB) GetAssetByID(ctx context.Context, id uuid.UUID) (models.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM ` + assetJoin + ` WHERE a.id = $1`
	return scanSingleAsset(db.conn.QueryRowContext(ctx, query, id), id.String())
}

// GetAssetByTicker retrieves an asset by its ticker
func (db *DB) GetAssetByTicker(ctx context.Context, ticker string) (models.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM ` + assetJoin + ` WHERE a.ticker = $1`
	return scanSingleAsset(db.conn.QueryRowContext(ctx, query, ticker), ticker)
}

// ListStocks returns every stock ordered by ticker
func (db *DB) ListStocks(ctx context.Context) ([]*models.Stock, error) {
	query := `SELECT ` + assetColumns + ` FROM ` + assetJoin + `
		WHERE a.asset_type = $1
		ORDER BY a.ticker`

	rows, err := db.conn.QueryContext(ctx, query, string(models.AssetKindStock))
	if err != nil {
		return nil, fmt.Errorf("failed to list stocks: %w", err)
	}
	defer rows.Close()

	var stocks []*models.Stock
	for rows.Next() {
		var r assetRow
		if err := rows.Scan(r.dest()...); err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		asset, err := r.toAsset()
		if err != nil {
			return nil, err
		}
		stocks = append(stocks, asset.(*models.Stock))
	}
	return stocks, rows.Err()
}

// FindForexPair returns the pair quoting base in quote, or
// models.ErrAssetNotFound when none is stored
func (db *DB) FindForexPair(ctx context.Context, base, quote models.CurrencyCode) (*models.ForexPair, error) {
	query := `SELECT ` + assetColumns + ` FROM ` + assetJoin + `
		WHERE a.asset_type = $1 AND a.base_currency = $2 AND a.quote_currency = $3`

	row := db.conn.QueryRowContext(ctx, query, string(models.AssetKindForexPair), string(base), string(quote))
	asset, err := scanSingleAsset(row, string(base)+"/"+string(quote))
	if err != nil {
		return nil, err
	}
	return asset.(*models.ForexPair), nil
}

// UpdateExchangeRate stores a new rate on a forex pair
func (db *DB) UpdateExchangeRate(ctx context.Context, id uuid.UUID, rate decimal.Decimal) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE assets SET exchange_rate = $1 WHERE id = $2 AND asset_type = $3`,
		rate, id, string(models.AssetKindForexPair))
	if err != nil {
		return fmt.Errorf("failed to update exchange rate: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("forex pair %s: %w", id, models.ErrAssetNotFound)
	}
	return nil
}

func scanSingleAsset(row *sql.Row, key string) (models.Asset, error) {
	var r assetRow
	if err := row.Scan(r.dest()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("asset %s: %w", key, models.ErrAssetNotFound)
		}
		return nil, fmt.Errorf("failed to get asset %s: %w", key, err)
	}
	return r.toAsset()
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
