package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-service/internal/currency"
	"github.com/trogers1052/portfolio-service/internal/models"
	"github.com/trogers1052/portfolio-service/internal/pricing"
)

// mockLedger is an in-memory order store keyed by user
type mockLedger struct {
	orders  map[uuid.UUID][]*models.Order
	sellers []uuid.UUID
	failFor map[uuid.UUID]error
}

func newMockLedger() *mockLedger {
	return &mockLedger{
		orders:  make(map[uuid.UUID][]*models.Order),
		failFor: make(map[uuid.UUID]error),
	}
}

func (m *mockLedger) add(orders ...*models.Order) {
	for _, o := range orders {
		m.orders[o.UserID] = append(m.orders[o.UserID], o)
	}
}

func (m *mockLedger) FindOrders(ctx context.Context, userID uuid.UUID) ([]*models.Order, error) {
	if err := m.failFor[userID]; err != nil {
		return nil, err
	}
	return m.orders[userID], nil
}

func (m *mockLedger) FindOrdersByAsset(ctx context.Context, userID, assetID uuid.UUID, direction string, isDone bool) ([]*models.Order, error) {
	if err := m.failFor[userID]; err != nil {
		return nil, err
	}
	var out []*models.Order
	for _, o := range m.orders[userID] {
		if o.Asset != nil && o.Asset.AssetID() == assetID && o.Direction == direction && o.IsDone == isDone {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockLedger) FindUsersWithSellOrdersSince(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	return m.sellers, nil
}

// mockOracle prices assets from a fixed table
type mockOracle struct {
	prices map[uuid.UUID]models.MonetaryAmount
	err    error
}

func (m *mockOracle) CurrentPrice(ctx context.Context, asset models.Asset) (models.MonetaryAmount, error) {
	if m.err != nil {
		return models.MonetaryAmount{}, m.err
	}
	price, ok := m.prices[asset.AssetID()]
	if !ok {
		return models.MonetaryAmount{}, fmt.Errorf("%w: %s", pricing.ErrPriceUnavailable, asset.Symbol())
	}
	return price, nil
}

// mockConverter converts with fixed rates keyed "FROM/TO"
type mockConverter struct {
	rates map[string]decimal.Decimal
}

func (m *mockConverter) Convert(ctx context.Context, amount models.MonetaryAmount, to models.CurrencyCode) (models.MonetaryAmount, error) {
	rate, ok := m.rates[string(amount.Currency)+"/"+string(to)]
	if !ok {
		return models.MonetaryAmount{}, fmt.Errorf("%w: %s/%s", currency.ErrConversionUnavailable, amount.Currency, to)
	}
	return models.NewMonetaryAmount(amount.Amount.Mul(rate), to), nil
}

var fixedNow = time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

func newTestService(ledger *mockLedger, oracle *mockOracle, converter *mockConverter) *Service {
	if converter == nil {
		converter = &mockConverter{}
	}
	return NewService(ledger, oracle, converter, WithClock(func() time.Time { return fixedNow }))
}

func money(s string, cur models.CurrencyCode) models.MonetaryAmount {
	return models.NewMonetaryAmount(decimal.RequireFromString(s), cur)
}

func newStock(ticker string) *models.Stock {
	return &models.Stock{ID: uuid.New(), Ticker: ticker, Name: ticker}
}

func order(userID uuid.UUID, asset models.Asset, direction, qty, price string, at time.Time) *models.Order {
	return &models.Order{
		ID:           uuid.New(),
		UserID:       userID,
		Asset:        asset,
		Direction:    direction,
		Quantity:     decimal.RequireFromString(qty),
		PricePerUnit: money(price, models.CurrencyUSD),
		Status:       models.StatusApproved,
		IsDone:       true,
		CreatedAt:    at,
		LastModified: at,
	}
}

func buy(userID uuid.UUID, asset models.Asset, qty, price string, at time.Time) *models.Order {
	return order(userID, asset, models.DirectionBuy, qty, price, at)
}

func sell(userID uuid.UUID, asset models.Asset, qty, price string, at time.Time) *models.Order {
	return order(userID, asset, models.DirectionSell, qty, price, at)
}
