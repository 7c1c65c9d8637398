package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const defaultRedeliveryDelay = 2 * time.Second

// ErrDiscard tells the consumer a message can never be handled; it is
// rejected without requeue instead of being redelivered.
var ErrDiscard = errors.New("discard message")

// BatchCompletedHandler handles one decoded event. A nil error acks it, an
// error wrapping ErrDiscard drops it, and any other error requeues it.
type BatchCompletedHandler func(ctx context.Context, msg BatchCompletedMessage) error

type RabbitMQConsumer struct {
	client          *RabbitMQ
	prefetch        int
	redeliveryDelay time.Duration
	logger          *zap.Logger
}

func NewRabbitMQConsumer(client *RabbitMQ, prefetch int, logger *zap.Logger) *RabbitMQConsumer {
	if prefetch < 1 {
		prefetch = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RabbitMQConsumer{
		client:          client,
		prefetch:        prefetch,
		redeliveryDelay: defaultRedeliveryDelay,
		logger:          logger,
	}
}

// ConsumeBatchCompleted blocks until ctx ends, reconnecting with backoff
// whenever the channel or connection drops.
func (c *RabbitMQConsumer) ConsumeBatchCompleted(ctx context.Context, handler BatchCompletedHandler) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("consumer is not initialized")
	}
	if handler == nil {
		return fmt.Errorf("batch completed handler is required")
	}

	wait := reconnectBackoff
	for {
		err := c.consumeOnce(ctx, handler)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			wait = reconnectBackoff
			continue
		}

		c.logger.Warn("batch completed consumer interrupted, reconnecting",
			zap.Duration("backoff", wait),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}

		wait = min(wait*2, maxBackoff)
	}
}

func (c *RabbitMQConsumer) consumeOnce(ctx context.Context, handler BatchCompletedHandler) error {
	ch, err := c.client.channel(ctx)
	if err != nil {
		return err
	}
	defer ch.Close() //nolint:errcheck // best-effort channel close

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}

	deliveries, err := ch.Consume(BatchCompletedRoutingKey, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume queue %q: %w", BatchCompletedRoutingKey, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			if err := c.handleDelivery(ctx, d, handler); err != nil {
				return err
			}
		}
	}
}

// acknowledger is the part of amqp.Delivery the consumer settles with.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
	Reject(requeue bool) error
}

func (c *RabbitMQConsumer) handleDelivery(ctx context.Context, d amqp.Delivery, handler BatchCompletedHandler) error {
	return c.settle(ctx, d.Body, &d, handler)
}

func (c *RabbitMQConsumer) settle(ctx context.Context, body []byte, ack acknowledger, handler BatchCompletedHandler) error {
	var msg BatchCompletedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		c.logger.Warn("rejecting batch completed event: invalid JSON", zap.Error(err))
		if rejectErr := ack.Reject(false); rejectErr != nil {
			return fmt.Errorf("failed to reject invalid message: %w", rejectErr)
		}
		return nil
	}

	if err := msg.Validate(); err != nil {
		c.logger.Warn("rejecting batch completed event: validation failed",
			zap.String("batchId", msg.BatchID),
			zap.Error(err),
		)
		if rejectErr := ack.Reject(false); rejectErr != nil {
			return fmt.Errorf("failed to reject invalid payload: %w", rejectErr)
		}
		return nil
	}

	err := handler(ctx, msg)
	switch {
	case err == nil:
		if ackErr := ack.Ack(false); ackErr != nil {
			return fmt.Errorf("failed to ack delivery: %w", ackErr)
		}
	case errors.Is(err, ErrDiscard):
		c.logger.Warn("dropping batch completed event",
			zap.String("batchId", msg.BatchID),
			zap.Error(err),
		)
		if rejectErr := ack.Reject(false); rejectErr != nil {
			return fmt.Errorf("failed to reject delivery: %w", rejectErr)
		}
	default:
		// Pause so a failing endpoint is not hammered by immediate redelivery.
		select {
		case <-ctx.Done():
		case <-time.After(c.redeliveryDelay):
		}
		if nackErr := ack.Nack(false, true); nackErr != nil {
			return fmt.Errorf("handler failed and nack failed: %w", nackErr)
		}
	}

	return nil
}

func (c *RabbitMQConsumer) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
