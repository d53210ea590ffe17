package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/gateway-payment-bridge/internal/config"
	"github.com/gateway-payment-bridge/internal/domain/shared"
	"github.com/gateway-payment-bridge/internal/platform/metrics"
)

// PaymentEventProducer publishes applied payment status updates to the
// status topic, keyed by order number so one order's events stay ordered.
type PaymentEventProducer struct {
	logger  *slog.Logger
	writer  KafkaWriter // Interface for testability
	metrics *metrics.Metrics
	topic   string
}

// NewPaymentEventProducer creates the status event producer and ensures the
// topic exists
func NewPaymentEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig, m *metrics.Metrics) (*PaymentEventProducer, error) {
	if cfg.PaymentEventTopic == "" {
		return nil, fmt.Errorf("kafka payment event topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for payment event producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.PaymentEventTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure payment event topic %s exists: %w", cfg.PaymentEventTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.PaymentEventTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true, // Status events are advisory, favor throughput
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write messages asynchronously", "topic", cfg.PaymentEventTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Successfully wrote messages asynchronously", "topic", cfg.PaymentEventTopic, "count", len(messages))
			}
		},
	}

	return &PaymentEventProducer{
		logger:  logger,
		writer:  writer,
		metrics: m,
		topic:   cfg.PaymentEventTopic,
	}, nil
}

// PublishStatusEvent publishes one applied status update
func (p *PaymentEventProducer) PublishStatusEvent(ctx context.Context, event *shared.PaymentStatusEvent) error {
	jsonValue, err := json.Marshal(event)
	if err != nil {
		p.metrics.EventPublishErrors.Inc()
		return fmt.Errorf("failed to marshal payment status event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderNo),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.metrics.EventPublishErrors.Inc()
		p.logger.Error("Failed to publish payment status event",
			"topic", p.topic,
			"order_no", event.OrderNo,
			"error", err,
		)
		return fmt.Errorf("failed to publish payment status event to %s: %w", p.topic, err)
	}

	p.metrics.EventsPublished.Inc()
	p.logger.Debug("Published payment status event",
		"topic", p.topic,
		"order_no", event.OrderNo,
		"status", event.Status,
	)
	return nil
}

// Close flushes and closes the underlying writer
func (p *PaymentEventProducer) Close() error {
	p.logger.Info("Closing payment event Kafka producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
