package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/mhmdrz22/enginner/internal/core/port"
	"github.com/mhmdrz22/enginner/internal/infra/config"
	"github.com/mhmdrz22/enginner/internal/infra/logger"
)

// NotificationConsumer feeds jobs from the notifications topic into a JobHandler.
// An offset is marked only after the handler returns nil, so jobs interrupted by
// shutdown are redelivered.
type NotificationConsumer struct {
	group   sarama.ConsumerGroup
	topics  []string
	handler port.JobHandler
	logger  *zap.Logger
}

// NewNotificationConsumer joins the configured consumer group.
func NewNotificationConsumer(cfg config.KafkaSettings, handler port.JobHandler, logger *zap.Logger) (*NotificationConsumer, error) {
	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.ConsumerGroup, newSaramaConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}
	return NewNotificationConsumerFrom(group, []string{cfg.NotificationsTopic()}, handler, logger), nil
}

// NewNotificationConsumerFrom wraps an existing consumer group.
func NewNotificationConsumerFrom(group sarama.ConsumerGroup, topics []string, handler port.JobHandler, logger *zap.Logger) *NotificationConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationConsumer{group: group, topics: topics, handler: handler, logger: logger.Named("kafka_consumer")}
}

// Serve consumes until ctx is cancelled. Consume returns on every rebalance, so it is
// called in a loop.
func (c *NotificationConsumer) Serve(ctx context.Context) error {
	c.logger.Info("Consumer group started", zap.Strings("topics", c.topics))
	for {
		if err := c.group.Consume(ctx, c.topics, c); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			c.logger.Error("Error from consumer", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Close leaves the consumer group.
func (c *NotificationConsumer) Close() error {
	if err := c.group.Close(); err != nil {
		return fmt.Errorf("close consumer group: %w", err)
	}
	return nil
}

func (c *NotificationConsumer) Setup(session sarama.ConsumerGroupSession) error {
	c.logger.Info("Consumer group setup", zap.String("member_id", session.MemberID()))
	return nil
}

func (c *NotificationConsumer) Cleanup(session sarama.ConsumerGroupSession) error {
	c.logger.Info("Consumer group cleanup", zap.String("member_id", session.MemberID()))
	return nil
}

// ConsumeClaim must block until the claim is closed.
func (c *NotificationConsumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := c.HandleMessage(session.Context(), msg); err != nil {
				// Leave the offset unmarked; the job is redelivered to the next session.
				return err
			}
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

// HandleMessage runs one job. Undecodable payloads are logged and skipped.
func (c *NotificationConsumer) HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	if msg == nil {
		return nil
	}

	envelope, err := decodeEnvelope(msg.Value)
	if err != nil {
		c.logger.Error("skipping undecodable notification job",
			zap.String("topic", msg.Topic),
			zap.Int32("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		return nil
	}

	if traceID := headerValue(msg.Headers, headerTraceID); traceID != "" {
		ctx = logger.ContextWithRequestID(ctx, traceID)
	}
	return c.handler.Handle(ctx, envelope.Job)
}

func headerValue(headers []*sarama.RecordHeader, key string) string {
	for _, header := range headers {
		if header != nil && string(header.Key) == key {
			return string(header.Value)
		}
	}
	return ""
}

var _ sarama.ConsumerGroupHandler = (*NotificationConsumer)(nil)
