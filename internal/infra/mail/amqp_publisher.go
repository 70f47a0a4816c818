package mail

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"eventos/internal/errors"

	amqp "github.com/rabbitmq/amqp091-go"
)

const amqpPublishTimeout = 5 * time.Second

// amqpPublisher writes messages to a durable RabbitMQ queue. The connection
// is re-dialled lazily after a failure.
type amqpPublisher struct {
	url    string
	queue  string
	logger *slog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// newAMQPPublisher dials the broker and declares the queue.
func newAMQPPublisher(url, queue string, logger *slog.Logger) (*amqpPublisher, error) {
	p := &amqpPublisher{
		url:    url,
		queue:  queue,
		logger: logger,
	}

	if err := p.connect(); err != nil {
		return nil, err
	}

	return p, nil
}

// connect must be called with mu held, or before the publisher is shared.
func (p *amqpPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return errors.Wrap(err, "failed to dial rabbitmq")
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()

		return errors.Wrap(err, "failed to open rabbitmq channel")
	}

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()

		return errors.Wrapf(err, "failed to declare queue %s", p.queue)
	}

	p.conn = conn
	p.ch = ch

	return nil
}

// Publish sends msg as a persistent JSON message.
func (p *amqpPublisher) Publish(ctx context.Context, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return errors.WithStack(err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() {
		p.closeLocked()
		if err := p.connect(); err != nil {
			return err
		}
	}

	pubCtx, cancel := context.WithTimeout(ctx, amqpPublishTimeout)
	defer cancel()

	err = p.ch.PublishWithContext(pubCtx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    msg.CreatedAt,
		Type:         msg.Template,
		Body:         body,
	})
	if err != nil {
		// Force a re-dial on the next publish.
		p.closeLocked()

		return errors.Wrap(err, "failed to publish mail message")
	}

	return nil
}

func (p *amqpPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closeLocked()

	return nil
}

func (p *amqpPublisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
