package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/muhammadjehanzaib/sultan-store/pkg/logger"
)

const (
	// maxHandlerRetries bounds handler attempts before a message is parked
	// in the DLQ (or dropped) and committed.
	maxHandlerRetries = 3

	defaultRetryStep  = 100 * time.Millisecond
	fetchErrorBackoff = 500 * time.Millisecond
	tracerName        = "github.com/muhammadjehanzaib/sultan-store/pkg/kafka"
)

// Handler processes one decoded event.
type Handler func(ctx context.Context, event *Event) error

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers   []string
	GroupID   string
	Topic     string
	MinBytes  int
	MaxBytes  int
	EnableDLQ bool
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type deadLetterPublisher interface {
	Publish(ctx context.Context, original kafka.Message, lastErr error, consumerGroup string) error
	Close() error
}

// Consumer reads one topic in a consumer group with at-least-once delivery:
// offsets are committed only after the handler succeeds or the message has
// been dead-lettered.
type Consumer struct {
	reader    messageReader
	dlq       deadLetterPublisher
	topic     string
	group     string
	handler   Handler
	logger    *slog.Logger
	retryStep time.Duration
	closeOnce sync.Once
}

// NewConsumer creates a consumer for cfg.Topic in cfg.GroupID.
func NewConsumer(cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
	})

	c := &Consumer{
		reader:    r,
		topic:     cfg.Topic,
		group:     cfg.GroupID,
		handler:   handler,
		logger:    logger,
		retryStep: defaultRetryStep,
	}
	if cfg.EnableDLQ {
		c.dlq = NewDLQProducer(cfg.Brokers, logger)
	}
	return c
}

// Start consumes until ctx is canceled.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started",
		slog.String("topic", c.topic),
		slog.String("group", c.group),
		slog.Bool("dlq", c.dlq != nil),
	)

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", slog.String("topic", c.topic))
				return c.Close()
			}
			c.logger.Error("failed to fetch message", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return c.Close()
			case <-time.After(fetchErrorBackoff):
			}
			continue
		}

		if !c.process(ctx, msg) {
			return c.Close()
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit message",
				slog.Int64("offset", msg.Offset),
				slog.String("error", err.Error()),
			)
		}
	}
}

// process handles one message. It returns false when ctx was canceled while
// the handler was failing, in which case the message is neither committed nor
// dead-lettered so it is redelivered.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	ConsumerMessagesReceived.WithLabelValues(c.topic, c.group).Inc()

	event, err := UnmarshalEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to unmarshal event",
			slog.String("topic", msg.Topic),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
		c.deadLetter(ctx, msg, fmt.Errorf("unmarshal event: %w", err))
		return true
	}

	ctx = otel.GetTextMapPropagator().Extract(ctx, NewHeaderCarrier(&msg.Headers))
	if event.CorrelationID != "" {
		ctx = logger.WithCorrelationID(ctx, event.CorrelationID)
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, "kafka.consume "+c.topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", c.topic),
			attribute.String("messaging.kafka.consumer.group", c.group),
			attribute.String("event.type", event.EventType),
		),
	)
	defer span.End()

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= maxHandlerRetries; attempt++ {
		if lastErr = c.handler(ctx, event); lastErr == nil {
			break
		}
		if ctx.Err() != nil {
			return false
		}
		c.logger.WarnContext(ctx, "handler failed, will retry",
			slog.String("event_type", event.EventType),
			slog.String("aggregate_id", event.AggregateID),
			slog.Int("attempt", attempt),
			slog.Int("max_retries", maxHandlerRetries),
			slog.String("error", lastErr.Error()),
		)
		if attempt < maxHandlerRetries {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(time.Duration(attempt) * c.retryStep):
			}
		}
	}
	ConsumerProcessingDuration.WithLabelValues(c.topic, c.group).Observe(time.Since(start).Seconds())

	if lastErr != nil {
		span.RecordError(lastErr)
		span.SetStatus(codes.Error, lastErr.Error())
		ConsumerMessagesFailed.WithLabelValues(c.topic, c.group).Inc()
		c.logger.ErrorContext(ctx, "handler failed after all retries",
			slog.String("event_type", event.EventType),
			slog.String("aggregate_id", event.AggregateID),
			slog.Int64("offset", msg.Offset),
			slog.String("error", lastErr.Error()),
		)
		c.deadLetter(ctx, msg, lastErr)
		return true
	}

	ConsumerMessagesProcessed.WithLabelValues(c.topic, c.group).Inc()
	return true
}

func (c *Consumer) deadLetter(ctx context.Context, msg kafka.Message, cause error) {
	if c.dlq == nil {
		return
	}
	if err := c.dlq.Publish(ctx, msg, cause, c.group); err != nil {
		c.logger.ErrorContext(ctx, "dead-letter publish failed, dropping message",
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
	}
}

// Close closes the reader and the DLQ writer. Safe to call more than once.
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.reader.Close()
		if c.dlq != nil {
			if dlqErr := c.dlq.Close(); err == nil {
				err = dlqErr
			}
		}
	})
	return err
}
