// Package events publishes document lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/joseph-ayodele/meddocs/internal/metrics"
)

const DefaultTopic = "document.processed"

// DocumentProcessed is emitted after a document has been run and stored.
type DocumentProcessed struct {
	RecordID     string    `json:"record_id,omitempty"`
	PatientID    int64     `json:"patient_id"`
	CheckinID    *int64    `json:"checkin_id,omitempty"`
	Filename     string    `json:"filename"`
	DocumentType string    `json:"document_type"`
	Language     string    `json:"language,omitempty"`
	Strategy     string    `json:"summary_strategy,omitempty"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
	ProcessedAt  time.Time `json:"processed_at"`
}

// MessageWriter is the subset of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes JSON-encoded events keyed by patient id, so one
// patient's documents stay ordered within a partition.
type Producer struct {
	writer  MessageWriter
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewProducer creates a synchronous producer for topic.
func NewProducer(brokers []string, topic string, m *metrics.Metrics, logger *slog.Logger) *Producer {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = slog.Default()
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}
	return NewProducerWithWriter(w, m, logger.With("component", "kafka-producer", "topic", topic))
}

// NewProducerWithWriter wraps an existing writer.
func NewProducerWithWriter(w MessageWriter, m *metrics.Metrics, logger *slog.Logger) *Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{writer: w, metrics: m, logger: logger}
}

// PublishProcessed writes one event and waits for all replicas to acknowledge it.
func (p *Producer) PublishProcessed(ctx context.Context, ev DocumentProcessed) error {
	if ev.ProcessedAt.IsZero() {
		ev.ProcessedAt = time.Now().UTC()
	}
	value, err := json.Marshal(ev)
	if err != nil {
		p.metrics.IncEvent("error")
		return fmt.Errorf("marshaling event value: %w", err)
	}
	key := strconv.FormatInt(ev.PatientID, 10)
	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(DefaultTopic)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.metrics.IncEvent("error")
		p.logger.Error("failed to publish message", "key", key, "record_id", ev.RecordID, "error", err)
		return fmt.Errorf("publishing to kafka: %w", err)
	}
	p.metrics.IncEvent("ok")
	p.logger.Debug("message published", "key", key, "record_id", ev.RecordID, "value_size", len(value))
	return nil
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
