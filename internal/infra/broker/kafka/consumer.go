package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

// MessageHandler processes one message value. A nil error acknowledges it.
type MessageHandler interface {
	HandleMessage(ctx context.Context, value []byte) error
}

type Consumer struct {
	group   sarama.ConsumerGroup
	handler consumerGroupHandler
}

type ConsumerOptions struct {
	// Attempts bounds how often a failing message is retried before it is skipped.
	Attempts int
	Backoff  time.Duration
	Logger   *slog.Logger
}

func NewConsumer(brokers []string, groupID string, cfg *sarama.Config, handler MessageHandler, opts ConsumerOptions) (*Consumer, error) {
	if handler == nil {
		return nil, errors.New("kafka: message handler required")
	}
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	cfg.Version = sarama.V2_5_0_0
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	g, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}
	return &Consumer{group: g, handler: newConsumerGroupHandler(handler, opts)}, nil
}

func (c *Consumer) Run(ctx context.Context, topics []string) error {
	for {
		if err := c.group.Consume(ctx, topics, c.handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type consumerGroupHandler struct {
	handler  MessageHandler
	attempts int
	backoff  time.Duration
	logger   *slog.Logger
}

func newConsumerGroupHandler(handler MessageHandler, opts ConsumerOptions) consumerGroupHandler {
	h := consumerGroupHandler{handler: handler, attempts: opts.Attempts, backoff: opts.Backoff, logger: opts.Logger}
	if h.attempts <= 0 {
		h.attempts = 3
	}
	if h.backoff <= 0 {
		h.backoff = 500 * time.Millisecond
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

func (h consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h consumerGroupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.deliver(ctx, message); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				h.logger.ErrorContext(ctx, "message skipped after retries",
					"topic", message.Topic, "partition", message.Partition, "offset", message.Offset, "error", err)
			}
			sess.MarkMessage(message, "")
		}
	}
}

func (h consumerGroupHandler) deliver(ctx context.Context, message *sarama.ConsumerMessage) error {
	var err error
	for attempt := 1; attempt <= h.attempts; attempt++ {
		if err = h.handler.HandleMessage(ctx, message.Value); err == nil {
			return nil
		}
		if attempt == h.attempts {
			break
		}
		h.logger.WarnContext(ctx, "message handling failed, retrying",
			"topic", message.Topic, "offset", message.Offset, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(h.backoff):
		}
	}
	return err
}
