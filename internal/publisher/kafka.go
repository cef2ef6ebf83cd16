package publisher

import (
	"context"

	"farmstand/internal/repository/outbox"
	"github.com/segmentio/kafka-go"
)

type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(topic string, brokers ...string) *KafkaSink {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaSink{writer: w}
}

// Publish keys messages by aggregate id so events for one order stay on one partition.
func (s *KafkaSink) Publish(ctx context.Context, ev outbox.Event) error {
	return s.writer.WriteMessages(ctx, kafkaMessage(ev))
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

func kafkaMessage(ev outbox.Event) kafka.Message {
	return kafka.Message{
		Key:   []byte(ev.AggregateID),
		Value: ev.Payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(ev.ID)},
			{Key: "event_type", Value: []byte(ev.EventType)},
			{Key: "aggregate_type", Value: []byte(ev.AggregateType)},
		},
		Time: ev.CreatedAt,
	}
}
