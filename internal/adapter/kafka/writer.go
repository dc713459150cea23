// Package kafka publishes delivered notifications to a Kafka sink topic so
// downstream consumers (audit, analytics) can observe what the subscriber was
// told and when.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/muhafiz-app/alert-service/internal/config"
	"github.com/muhafiz-app/alert-service/internal/domain"
)

// Writer produces notification records to a Kafka topic.
// It implements notify.Exporter.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Export serializes and publishes one delivered notification.
func (w *Writer) Export(ctx context.Context, rec domain.NotificationRecord) error {
	msg, err := serializeToMessage(rec)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a NotificationRecord into a Kafka message.
func serializeToMessage(rec domain.NotificationRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize notification: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "notification_type", Value: []byte(rec.Type)},
			{Key: "priority", Value: []byte(rec.Priority)},
			{Key: "delivered_at", Value: []byte(rec.Timestamp.Format(time.RFC3339))},
		},
	}, nil
}
