// Package broker wraps the AMQP connection lifecycle for the pipeline.
//
// Every worker owns exactly one Session: the connection, a channel with
// prefetch 1, and the shared durable direct exchange. The session is created
// and torn down on each reconnect cycle; there are no process-wide handles.
package broker

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const heartbeat = 60 * time.Second

// Session holds the broker handles owned by a single worker process.
type Session struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// Connect dials the broker, opens a channel with prefetch 1 and declares the
// shared durable direct exchange.
func Connect(url, exchange string) (*Session, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{Heartbeat: heartbeat})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	// One in-flight message per worker.
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Session{conn: conn, ch: ch, exchange: exchange}, nil
}

// DeclareAndBind declares a durable queue and binds it to the shared exchange
// with its own name as routing key.
func (s *Session) DeclareAndBind(queue string) error {
	if _, err := s.ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	if err := s.ch.QueueBind(queue, queue, s.exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", queue, err)
	}
	return nil
}

// Publish sends a persistent JSON message to the shared exchange.
func (s *Session) Publish(ctx context.Context, routingKey string, body []byte, headers amqp.Table) error {
	err := s.ch.PublishWithContext(
		ctx,
		s.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			Headers:      headers,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", routingKey, err)
	}
	return nil
}

// Consume registers a manual-ack consumer on the queue.
func (s *Session) Consume(queue string) (<-chan amqp.Delivery, error) {
	deliveries, err := s.ch.Consume(
		queue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming from %s: %w", queue, err)
	}
	return deliveries, nil
}

// NotifyClose registers a listener for connection-level failures.
func (s *Session) NotifyClose() chan *amqp.Error {
	return s.conn.NotifyClose(make(chan *amqp.Error, 1))
}

// IsClosed reports whether the underlying connection is gone.
func (s *Session) IsClosed() bool {
	return s.conn == nil || s.conn.IsClosed()
}

// Close tears the session down. Unacked deliveries are redelivered by the
// broker.
func (s *Session) Close() {
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
}
