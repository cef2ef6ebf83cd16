package publisher

import (
	"context"
	"fmt"
	"sync"

	"farmstand/internal/repository/outbox"
	"github.com/streadway/amqp"
)

// AMQPSink publishes to a durable topic exchange using the event type as routing key.
type AMQPSink struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

func NewAMQPSink(url, exchange string) (*AMQPSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("amqp exchange declare: %w", err)
	}
	return &AMQPSink{conn: conn, channel: ch, exchange: exchange}, nil
}

func (s *AMQPSink) Publish(_ context.Context, ev outbox.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn.IsClosed() {
		return amqp.ErrClosed
	}
	return s.channel.Publish(s.exchange, ev.EventType, false, false, amqpPublishing(ev))
}

func (s *AMQPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.channel.Close(); err != nil {
		s.conn.Close()
		return err
	}
	return s.conn.Close()
}

func amqpPublishing(ev outbox.Event) amqp.Publishing {
	return amqp.Publishing{
		ContentType:  "application/json",
		Body:         ev.Payload,
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Timestamp:    ev.CreatedAt,
		Headers: amqp.Table{
			"aggregate_type": ev.AggregateType,
			"aggregate_id":   ev.AggregateID,
			"event_type":     ev.EventType,
		},
	}
}
