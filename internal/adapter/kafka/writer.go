package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/stream-level-profiler/internal/config"
	"github.com/couchcryptid/stream-level-profiler/internal/domain"
)

// maxBatch caps the number of messages handed to a single WriteMessages call.
const maxBatch = 500

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// OutlierEvent is the JSON payload published for every outlier.
type OutlierEvent struct {
	RunID string `json:"run_id"`
	domain.OutlierRecord
}

// Writer publishes outlier alerts to a Kafka topic.
// It implements pipeline.Loader.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured outlier topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaOutlierTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

func (w *Writer) Name() string { return "kafka" }

// Load publishes one message per outlier of p. Messages are keyed by bucket
// so alerts for the same minute land on the same partition.
func (w *Writer) Load(ctx context.Context, p *domain.Profile) error {
	if len(p.Outliers) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(p.Outliers))
	for i := range p.Outliers {
		msg, err := serializeToMessage(p.RunID, p.GeneratedAt, p.Outliers[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}

	for start := 0; start < len(msgs); start += maxBatch {
		end := min(start+maxBatch, len(msgs))
		if err := w.writer.WriteMessages(ctx, msgs[start:end]...); err != nil {
			return fmt.Errorf("publish outliers: %w", err)
		}
	}
	w.logger.Info("outlier alerts published", "count", len(msgs), "run_id", p.RunID)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an OutlierRecord into a Kafka message.
func serializeToMessage(runID string, generatedAt time.Time, rec domain.OutlierRecord) (kafkago.Message, error) {
	data, err := json.Marshal(OutlierEvent{RunID: runID, OutlierRecord: rec})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize outlier: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.BucketKey),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(runID)},
			{Key: "severity", Value: []byte(rec.Severity)},
			{Key: "generated_at", Value: []byte(generatedAt.Format(time.RFC3339))},
		},
	}, nil
}
