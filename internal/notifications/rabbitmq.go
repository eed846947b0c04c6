package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"flightbook/pkg/logger"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the part of *amqp.Channel the dispatcher uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitDispatcher publishes emails as persistent JSON messages to a durable
// queue through the default exchange. A mail worker consumes the queue.
type RabbitDispatcher struct {
	mu      sync.Mutex
	channel Channel
	queue   string
	log     *logger.Logger
}

func NewRabbitDispatcher(conn *amqp.Connection, queue string, log *logger.Logger) (*RabbitDispatcher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	log.Info("Notification queue declared", "queue", queue)
	return newRabbitDispatcher(ch, queue, log), nil
}

func newRabbitDispatcher(ch Channel, queue string, log *logger.Logger) *RabbitDispatcher {
	return &RabbitDispatcher{channel: ch, queue: queue, log: log}
}

func (d *RabbitDispatcher) Send(ctx context.Context, email Email) error {
	body, err := json.Marshal(email)
	if err != nil {
		return fmt.Errorf("failed to marshal email: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Type:         email.Kind,
		Body:         body,
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.channel.PublishWithContext(ctx, "", d.queue, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish email: %w", err)
	}

	d.log.Debug("Email queued", "kind", email.Kind, "reference", email.Reference, "queue", d.queue)
	return nil
}

func (d *RabbitDispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.channel.Close()
}
