package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-service/internal/metrics"
	"github.com/trogers1052/portfolio-service/internal/models"
	"go.uber.org/zap"
)

// EventOrderExecuted is the only order event type written to the ledger
const EventOrderExecuted = "ORDER_EXECUTED"

// OrderRepository defines the ledger operations the consumer needs
type OrderRepository interface {
	OrderExists(ctx context.Context, id uuid.UUID) (bool, error)
	CreateOrder(ctx context.Context, o *models.Order) error
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status string, isDone bool, lastModified time.Time) error
	GetAssetByID(ctx context.Context, id uuid.UUID) (models.Asset, error)
}

// Consumer appends executed orders from the order management service to the ledger.
// Redelivered events are harmless: known orders are only ever moved toward done.
type Consumer struct {
	reader *kafka.Reader
	repo   OrderRepository
	logger *zap.Logger
}

// NewConsumer creates a new Kafka consumer for order events
func NewConsumer(brokers []string, topic, groupID string, repo OrderRepository, logger *zap.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader: reader,
		repo:   repo,
		logger: logger,
	}
}

// Start consumes messages until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("starting order consumer", zap.String("topic", c.reader.Config().Topic))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("order consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				c.logger.Error("error reading message", zap.Error(err))
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				metrics.OrdersIngested.WithLabelValues("error").Inc()
				c.logger.Error("error processing message",
					zap.Int("partition", msg.Partition),
					zap.Int64("offset", msg.Offset),
					zap.Error(err))
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	c.logger.Debug("received message",
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
		zap.ByteString("key", msg.Key))

	var event models.OrderEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal order event: %w", err)
	}

	if event.EventType != EventOrderExecuted {
		c.logger.Debug("ignoring event type", zap.String("event_type", event.EventType))
		metrics.OrdersIngested.WithLabelValues("ignored").Inc()
		return nil
	}

	order, assetID, err := convertEventToOrder(event)
	if err != nil {
		return fmt.Errorf("failed to convert event to order: %w", err)
	}

	exists, err := c.repo.OrderExists(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("failed to check for duplicate order: %w", err)
	}
	if exists {
		return c.advanceOrder(ctx, order)
	}

	asset, err := c.repo.GetAssetByID(ctx, assetID)
	if err != nil {
		return fmt.Errorf("failed to resolve asset of order %s: %w", order.ID, err)
	}
	order.Asset = asset

	if err := c.repo.CreateOrder(ctx, order); err != nil {
		if errors.Is(err, models.ErrOrderExists) {
			return c.advanceOrder(ctx, order)
		}
		return fmt.Errorf("failed to save order: %w", err)
	}

	metrics.OrdersIngested.WithLabelValues("created").Inc()
	c.logger.Info("recorded order",
		zap.String("order_id", order.ID.String()),
		zap.String("direction", order.Direction),
		zap.String("quantity", order.Quantity.String()),
		zap.String("ticker", asset.Symbol()),
		zap.String("price", order.PricePerUnit.String()))
	return nil
}

// advanceOrder applies the event's status to an already recorded order.
// Done orders never change; redeliveries against them are skipped.
func (c *Consumer) advanceOrder(ctx context.Context, order *models.Order) error {
	err := c.repo.UpdateOrderStatus(ctx, order.ID, order.Status, order.IsDone, order.LastModified)
	if errors.Is(err, models.ErrOrderFinalized) {
		metrics.OrdersIngested.WithLabelValues("duplicate").Inc()
		c.logger.Debug("order already done, skipping", zap.String("order_id", order.ID.String()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to update order %s: %w", order.ID, err)
	}

	metrics.OrdersIngested.WithLabelValues("updated").Inc()
	return nil
}

// convertEventToOrder maps an OrderEvent to an Order without its asset
func convertEventToOrder(event models.OrderEvent) (*models.Order, uuid.UUID, error) {
	data := event.Data

	orderID, err := uuid.Parse(data.OrderID)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("invalid order_id %q: %w", data.OrderID, err)
	}
	userID, err := uuid.Parse(data.UserID)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("invalid user_id %q: %w", data.UserID, err)
	}
	assetID, err := uuid.Parse(data.AssetID)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("invalid asset_id %q: %w", data.AssetID, err)
	}

	direction := strings.ToUpper(data.Direction)
	if direction != models.DirectionBuy && direction != models.DirectionSell {
		return nil, uuid.Nil, fmt.Errorf("invalid direction: %s", data.Direction)
	}

	status := strings.ToUpper(data.Status)
	switch status {
	case models.StatusPending, models.StatusApproved, models.StatusDeclined:
	default:
		return nil, uuid.Nil, fmt.Errorf("invalid status: %s", data.Status)
	}

	quantity, err := decimal.NewFromString(data.Quantity)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("invalid quantity %s: %w", data.Quantity, err)
	}
	if !quantity.IsPositive() {
		return nil, uuid.Nil, fmt.Errorf("quantity must be positive, got %s", data.Quantity)
	}

	price, err := decimal.NewFromString(data.PricePerUnit)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("invalid price %s: %w", data.PricePerUnit, err)
	}
	if price.IsNegative() {
		return nil, uuid.Nil, fmt.Errorf("price must not be negative, got %s", data.PricePerUnit)
	}

	currency, err := models.ParseCurrencyCode(data.Currency)
	if err != nil {
		return nil, uuid.Nil, err
	}

	lastModified := event.Timestamp
	if lastModified.IsZero() {
		lastModified = time.Now()
	}

	createdAt := lastModified
	if data.CreatedAt != nil && *data.CreatedAt != "" {
		createdAt, err = time.Parse(time.RFC3339, *data.CreatedAt)
		if err != nil {
			createdAt, err = time.Parse("2006-01-02T15:04:05", *data.CreatedAt)
			if err != nil {
				return nil, uuid.Nil, fmt.Errorf("invalid created_at %q: %w", *data.CreatedAt, err)
			}
		}
	}

	return &models.Order{
		ID:           orderID,
		UserID:       userID,
		Direction:    direction,
		Quantity:     quantity,
		PricePerUnit: models.NewMonetaryAmount(price, currency),
		Status:       status,
		IsDone:       data.IsDone,
		CreatedAt:    createdAt,
		LastModified: lastModified,
	}, assetID, nil
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
