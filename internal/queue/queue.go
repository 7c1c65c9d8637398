package queue

import "context"

const (
	// EventsExchange is the topic exchange for terminal registry events.
	EventsExchange = "terminal.events"

	// BatchCompletedRoutingKey routes batch-completed events. A durable queue
	// with the same name is bound to it so events survive without consumers.
	BatchCompletedRoutingKey = "terminal.batch.completed"
)

// Publisher publishes batch lifecycle events to the broker.
type Publisher interface {
	PublishBatchCompleted(ctx context.Context, msg BatchCompletedMessage) error
	Close() error
}
