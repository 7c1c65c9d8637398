package queue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	reconnectBackoff   = time.Second
	maxBackoff         = 30 * time.Second
	dialTimeout        = 15 * time.Second
	dialAttemptTimeout = 5 * time.Second
	heartbeatInterval  = 10 * time.Second
)

// Dialer opens a broker connection.
type Dialer func(url string) (*amqp.Connection, error)

// RabbitMQ owns the broker connection. Every channel it hands out has the
// events topology declared on it.
type RabbitMQ struct {
	url  string
	dial Dialer

	mu   sync.Mutex
	conn *amqp.Connection
}

func NewRabbitMQ(url string) (*RabbitMQ, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("rabbitmq url is required")
	}

	r := NewRabbitMQWithDialer(url, dialWithTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	if _, err := r.connection(ctx); err != nil {
		return nil, err
	}

	return r, nil
}

// NewRabbitMQWithDialer returns a client that connects lazily on first use.
func NewRabbitMQWithDialer(url string, dial Dialer) *RabbitMQ {
	return &RabbitMQ{url: url, dial: dial}
}

func dialWithTimeout(url string) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{
		Heartbeat: heartbeatInterval,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialAttemptTimeout),
	})
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()

	if conn == nil || conn.IsClosed() {
		return nil
	}
	return conn.Close()
}

func (r *RabbitMQ) channel(ctx context.Context) (*amqp.Channel, error) {
	conn, err := r.connection(ctx)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		// The connection may have died between the liveness check and Channel().
		r.drop(conn)
		if conn, err = r.connection(ctx); err != nil {
			return nil, err
		}
		if ch, err = conn.Channel(); err != nil {
			return nil, fmt.Errorf("failed to open rabbitmq channel after reconnect: %w", err)
		}
	}

	if err := declareTopology(ch); err != nil {
		_ = ch.Close()
		return nil, err
	}

	return ch, nil
}

// connection returns the live connection, dialing with exponential backoff
// until ctx ends when there is none. The lock is only held to read or
// install the connection, never across a dial or a backoff sleep.
func (r *RabbitMQ) connection(ctx context.Context) (*amqp.Connection, error) {
	wait := reconnectBackoff
	for {
		if conn := r.live(); conn != nil {
			return conn, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("rabbitmq connect canceled: %w", err)
		}

		conn, err := r.dial(r.url)
		if err == nil {
			return r.install(conn), nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("rabbitmq connect canceled: %w (last error: %v)", ctx.Err(), err)
		case <-time.After(wait):
		}

		wait = min(wait*2, maxBackoff)
	}
}

func (r *RabbitMQ) live() *amqp.Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn != nil && !r.conn.IsClosed() {
		return r.conn
	}
	return nil
}

// install keeps the first live connection when concurrent dials race.
func (r *RabbitMQ) install(conn *amqp.Connection) *amqp.Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn != nil && !r.conn.IsClosed() {
		_ = conn.Close()
		return r.conn
	}
	r.conn = conn
	return conn
}

func (r *RabbitMQ) drop(conn *amqp.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == conn {
		r.conn = nil
	}
	if conn != nil && !conn.IsClosed() {
		_ = conn.Close()
	}
}

func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(EventsExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %q: %w", EventsExchange, err)
	}

	if _, err := ch.QueueDeclare(BatchCompletedRoutingKey, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %q: %w", BatchCompletedRoutingKey, err)
	}

	if err := ch.QueueBind(BatchCompletedRoutingKey, BatchCompletedRoutingKey, EventsExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %q: %w", BatchCompletedRoutingKey, err)
	}

	return nil
}
