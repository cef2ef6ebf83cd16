package publisher

import (
	"context"
	"io"
	"log"

	"farmstand/internal/repository/outbox"
)

// LogSink writes events to a logger. Used for local runs without a broker.
type LogSink struct {
	logger *log.Logger
}

func NewLogSink(logger *log.Logger) *LogSink {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(_ context.Context, ev outbox.Event) error {
	s.logger.Printf("event: type=%s aggregate=%s/%s payload=%s", ev.EventType, ev.AggregateType, ev.AggregateID, ev.Payload)
	return nil
}

func (s *LogSink) Close() error { return nil }
