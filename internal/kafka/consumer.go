package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Handler processes one message. A returned error is retried before the
// consumer gives up on the partition.
type Handler func(ctx context.Context, msg kafka.Message) error

type Consumer struct {
	topic         string
	reader        *kafka.Reader
	handleRetries uint
	log           zerolog.Logger
}

func NewConsumer(brokers []string, groupID, topic string, log zerolog.Logger) *Consumer {
	return &Consumer{
		topic: topic,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			MinBytes:          1,
			MaxBytes:          10e6,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
		handleRetries: 3,
		log:           log.With().Str("component", "kafka_consumer").Str("topic", topic).Logger(),
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Consume reads until ctx is done or a message keeps failing. Offsets are
// committed only after the handler succeeds, so a crash redelivers the message.
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	c.log.Info().Msg("consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}

		err = retry.Do(
			func() error { return handler(ctx, msg) },
			retry.Context(ctx),
			retry.Attempts(c.handleRetries),
			retry.Delay(time.Second),
			retry.LastErrorOnly(true),
			retry.OnRetry(func(n uint, err error) {
				c.log.Warn().Err(err).Uint("attempt", n+1).Int64("offset", msg.Offset).Msg("handler failed, retrying")
			}),
		)
		if err != nil {
			return fmt.Errorf("handle %s offset %d: %w", c.topic, msg.Offset, err)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return fmt.Errorf("commit %s offset %d: %w", c.topic, msg.Offset, err)
		}
	}
}
