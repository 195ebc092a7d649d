// Package events publishes report lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/lender512/financial-restructuring-service/internal/domain"
)

// Config holds configuration for the event publisher.
type Config struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string
	// Topic is the Kafka topic for report events.
	Topic string
	// WriteTimeout bounds each publish call (default: 10s).
	WriteTimeout time.Duration
	// BatchSize is the maximum number of messages batched per broker write.
	BatchSize int
	// BatchTimeout is how long to wait for a batch to fill before flushing.
	BatchTimeout time.Duration
}

// messageWriter is the subset of kafka.Writer used by the publisher.
// It allows tests to capture messages without a broker.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes report lifecycle events to a Kafka topic. Events are
// keyed by report ID so all events for one report land on the same partition.
type Publisher struct {
	writer  messageWriter
	timeout time.Duration
	logger  zerolog.Logger
}

// NewPublisher creates a Publisher connected to the configured brokers.
func NewPublisher(cfg Config, logger zerolog.Logger) *Publisher {
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: timeout,
	}
	if cfg.BatchSize > 0 {
		writer.BatchSize = cfg.BatchSize
	}
	if cfg.BatchTimeout > 0 {
		writer.BatchTimeout = cfg.BatchTimeout
	}

	return &Publisher{
		writer:  writer,
		timeout: timeout,
		logger:  logger.With().Str("component", "event_publisher").Logger(),
	}
}

// Publish writes a single report event. A failed publish is logged and
// returned, but callers treat it as non-fatal: the report itself is already
// persisted.
func (p *Publisher) Publish(ctx context.Context, event *domain.ReportEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.ReportID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	}

	if err := p.writer.WriteMessages(writeCtx, msg); err != nil {
		p.logger.Error().Err(err).
			Str("event_type", event.EventType).
			Str("report_id", event.ReportID).
			Msg("failed to publish report event")
		return fmt.Errorf("publish event: %w", err)
	}

	p.logger.Debug().
		Str("event_type", event.EventType).
		Str("report_id", event.ReportID).
		Msg("published report event")
	return nil
}

// Close flushes pending messages and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
