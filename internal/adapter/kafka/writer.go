package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/ecowitt-ingest/internal/config"
	"github.com/couchcryptid/ecowitt-ingest/internal/domain"
)

// messageWriter is the subset of *kafkago.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces normalized reports to a Kafka topic.
// It implements dispatch.Subscriber.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured report topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
	return &Writer{writer: w, logger: logger}
}

func (w *Writer) Name() string { return "kafka" }

// Deliver publishes one report. Reports are keyed by station so a station's
// reports stay ordered within a partition.
func (w *Writer) Deliver(ctx context.Context, r domain.Report) error {
	msg, err := serializeToMessage(r)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write report %s: %w", r.ID, err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Report into a Kafka message.
func serializeToMessage(r domain.Report) (kafkago.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize report: %w", err)
	}
	key := r.Station.ID()
	if key == "" {
		key = r.ID
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Time:  r.ReceivedAt,
		Headers: []kafkago.Header{
			{Key: "report_id", Value: []byte(r.ID)},
			{Key: "station_model", Value: []byte(r.Station.Model)},
			{Key: "received_at", Value: []byte(r.ReceivedAt.Format(time.RFC3339))},
		},
	}, nil
}
