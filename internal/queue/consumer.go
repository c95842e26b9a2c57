package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Handler processes one side-effect message. A returned error rejects the
// delivery without requeue; the outbox relay publishes the event again on a
// later sweep.
type Handler func(ctx context.Context, msg SideEffectMessage) error

// Consumer reads a durable queue and dispatches deliveries to a Handler.
type Consumer struct {
	url      string
	queue    string
	prefetch int
	handle   Handler
	logger   logrus.FieldLogger

	maxBackoff time.Duration
}

// NewConsumer returns a Consumer for queue on the broker at url.
func NewConsumer(url, queue string, prefetch int, handle Handler, logger logrus.FieldLogger) *Consumer {
	if handle == nil {
		panic("queue: nil handler")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if prefetch < 1 {
		prefetch = 1
	}
	return &Consumer{
		url:        url,
		queue:      queue,
		prefetch:   prefetch,
		handle:     handle,
		logger:     logger.WithField("queue", queue),
		maxBackoff: 30 * time.Second,
	}
}

// Run connects to the broker and consumes until ctx is cancelled. Dial
// failures back off exponentially; a dropped connection is re-established.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.WithError(err).Warnf("consumer: failed to dial broker; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < c.maxBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.WithError(err).Warn("consumer: consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		c.logger.WithError(err).Warn("consumer: set QoS failed")
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.deliver(ctx, d)
		}
	}
}

func (c *Consumer) deliver(ctx context.Context, d amqp.Delivery) {
	if err := c.Process(ctx, d.Body); err != nil {
		c.logger.WithError(err).WithField("message_id", d.MessageId).Warn("consumer: handle message failed")
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

// Process decodes one message body and runs the handler on it.
func (c *Consumer) Process(ctx context.Context, body []byte) error {
	var msg SideEffectMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if msg.EventID == "" {
		return errors.New("message without eventId")
	}
	return c.handle(ctx, msg)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
