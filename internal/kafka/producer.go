package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/portfolio-service/internal/models"
	"github.com/trogers1052/portfolio-service/internal/portfolio"
)

// EventTaxSummarySnapshot is published once per user during tax collection
const EventTaxSummarySnapshot = "TAX_SUMMARY_SNAPSHOT"

// MessageWriter is the subset of kafka.Writer the producer uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer handles publishing events to Kafka
type Producer struct {
	writer MessageWriter
	now    func() time.Time
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return newProducer(writer)
}

func newProducer(writer MessageWriter) *Producer {
	return &Producer{writer: writer, now: time.Now}
}

// PublishTaxSnapshots publishes one snapshot event per user in a single batch,
// keyed by user ID so a user's snapshots stay ordered
func (p *Producer) PublishTaxSnapshots(ctx context.Context, snapshots []portfolio.TaxSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	now := p.now()
	msgs := make([]kafka.Message, 0, len(snapshots))
	for _, s := range snapshots {
		event := models.TaxSnapshotEvent{
			EventType: EventTaxSummarySnapshot,
			UserID:    s.UserID,
			Year:      s.Year,
			Month:     int(s.Month),
			Summary:   s.Summary,
			Timestamp: s.ComputedAt,
		}
		// the period belongs to the summary; fall back to publish time only when unset
		if s.Year == 0 {
			event.Year, event.Month = now.Year(), int(now.Month())
		}
		if s.ComputedAt.IsZero() {
			event.Timestamp = now
		}
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(s.UserID.String()),
			Value: data,
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
