package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPSender publishes invitation mails as JSON jobs on a durable queue for an
// external mailer to deliver.
type AMQPSender struct {
	template Template

	mu    sync.Mutex
	conn  *amqp.Connection
	queue amqp.Queue
}

// NewAMQPSender connects to the broker and declares the mail queue.
func NewAMQPSender(url, queueName string, template Template) (*AMQPSender, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	q, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	// publishes open their own channel
	ch.Close()
	return &AMQPSender{template: template, conn: conn, queue: q}, nil
}

func (s *AMQPSender) SendInvitation(ctx context.Context, to, claimLink string) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil || conn.IsClosed() {
		return errors.New("amqp connection closed")
	}

	payload, err := json.Marshal(s.template.Build(to, claimLink))
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	return ch.PublishWithContext(ctx,
		"", s.queue.Name, false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         payload,
		},
	)
}

func (s *AMQPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
