package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/trogers1052/portfolio-service/internal/models"
)

const orderSelect = `
	SELECT o.id, o.user_id, o.direction, o.quantity, o.price_per_unit, o.currency,
	       o.status, o.is_done, o.created_at, o.last_modified,` + assetColumns + `
	FROM orders o
	JOIN assets a ON a.id = o.asset_id
	LEFT JOIN assets u ON u.id = a.underlying_id`

// CreateOrder inserts an order. A duplicate ID returns models.ErrOrderExists.
func (db *DB) CreateOrder(ctx context.Context, o *models.Order) error {
	if o.Asset == nil {
		return fmt.Errorf("order %s has no asset", o.ID)
	}

	query := `
		INSERT INTO orders (
			id, user_id, asset_id, direction, quantity, price_per_unit, currency,
			status, is_done, created_at, last_modified
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	now := time.Now()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	if o.LastModified.IsZero() {
		o.LastModified = o.CreatedAt
	}

	_, err := db.conn.ExecContext(ctx, query,
		o.ID, o.UserID, o.Asset.AssetID(), o.Direction, o.Quantity,
		o.PricePerUnit.Amount, string(o.PricePerUnit.Currency),
		o.Status, o.IsDone, o.CreatedAt, o.LastModified,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("order %s: %w", o.ID, models.ErrOrderExists)
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// OrderExists checks whether an order ID is already recorded
func (db *DB) OrderExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check order existence: %w", err)
	}
	return exists, nil
}

// GetOrderByID retrieves an order with its asset resolved
func (db *DB) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	rows, err := db.conn.QueryContext(ctx, orderSelect+` WHERE o.id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, fmt.Errorf("order %s: %w", id, models.ErrOrderNotFound)
	}
	return orders[0], nil
}

// UpdateOrderStatus moves a pending order forward. Done orders are immutable
// and return models.ErrOrderFinalized.
func (db *DB) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status string, isDone bool, lastModified time.Time) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, is_done = $2, last_modified = $3
		WHERE id = $4 AND is_done = FALSE
	`, status, isDone, lastModified, id)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	exists, err := db.OrderExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("order %s: %w", id, models.ErrOrderNotFound)
	}
	return fmt.Errorf("order %s: %w", id, models.ErrOrderFinalized)
}

// FindOrders returns every order of the user in creation order
func (db *DB) FindOrders(ctx context.Context, userID uuid.UUID) ([]*models.Order, error) {
	rows, err := db.conn.QueryContext(ctx,
		orderSelect+` WHERE o.user_id = $1 ORDER BY o.created_at, o.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find orders: %w", err)
	}
	return scanOrders(rows)
}

// FindOrdersByAsset returns the user's orders for one asset filtered by
// direction and completion
func (db *DB) FindOrdersByAsset(ctx context.Context, userID, assetID uuid.UUID, direction string, isDone bool) ([]*models.Order, error) {
	rows, err := db.conn.QueryContext(ctx, orderSelect+`
		WHERE o.user_id = $1 AND o.asset_id = $2 AND o.direction = $3 AND o.is_done = $4
		ORDER BY o.created_at, o.id
	`, userID, assetID, direction, isDone)
	if err != nil {
		return nil, fmt.Errorf("failed to find orders by asset: %w", err)
	}
	return scanOrders(rows)
}

// FindUsersWithSellOrdersSince lists users with an approved, done stock SELL
// created at or after since. Sales of other asset kinds are not taxed.
func (db *DB) FindUsersWithSellOrdersSince(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT DISTINCT o.user_id
		FROM orders o
		JOIN assets a ON a.id = o.asset_id
		WHERE a.asset_type = $1
		  AND o.direction = $2 AND o.status = $3 AND o.is_done AND o.created_at >= $4
		ORDER BY o.user_id
	`, string(models.AssetKindStock), models.DirectionSell, models.StatusApproved, since)
	if err != nil {
		return nil, fmt.Errorf("failed to find sellers: %w", err)
	}
	defer rows.Close()

	var users []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

func scanOrders(rows *sql.Rows) ([]*models.Order, error) {
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		var (
			o        models.Order
			currency string
			asset    assetRow
		)
		dest := append([]any{
			&o.ID, &o.UserID, &o.Direction, &o.Quantity, &o.PricePerUnit.Amount, &currency,
			&o.Status, &o.IsDone, &o.CreatedAt, &o.LastModified,
		}, asset.dest()...)

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}

		resolved, err := asset.toAsset()
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", o.ID, err)
		}
		o.Asset = resolved
		o.PricePerUnit.Currency = models.CurrencyCode(currency)
		orders = append(orders, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}
	return orders, nil
}
