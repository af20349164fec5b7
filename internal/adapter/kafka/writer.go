package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/flare-heat-flux/internal/config"
	"github.com/couchcryptid/flare-heat-flux/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes computed reports to a Kafka topic.
// It implements calculator.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured report topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaReportTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
		MaxAttempts:            3,
		WriteTimeout:           5 * time.Second,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishReport serializes a report and writes it keyed by report ID, so all
// calculations for the same input set land on the same partition.
func (w *Writer) PublishReport(ctx context.Context, report domain.Report) error {
	msg, err := serializeToMessage(report)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write report %s: %w", report.ID, err)
	}
	w.logger.Debug("report published", "id", report.ID, "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Report into a Kafka message.
func serializeToMessage(report domain.Report) (kafkago.Message, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(report.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "report_id", Value: []byte(report.ID)},
			{Key: "computed_at", Value: []byte(report.ComputedAt.Format(time.RFC3339))},
		},
	}, nil
}
