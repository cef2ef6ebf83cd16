package publisher

import (
	"context"
	"io"
	"log"
	"time"

	"farmstand/internal/repository/outbox"
)

// Sink delivers one outbox event to a broker.
type Sink interface {
	Publish(ctx context.Context, event outbox.Event) error
	Close() error
}

type outboxRepo interface {
	ListUnpublished(ctx context.Context, limit int) ([]outbox.Event, error)
	MarkPublished(ctx context.Context, id string) error
}

// OutboxPoller relays unpublished outbox rows to a Sink on a fixed tick.
// Events are marked published only after the sink accepted them, so delivery is at-least-once.
type OutboxPoller struct {
	repo      outboxRepo
	sink      Sink
	interval  time.Duration
	batchSize int
	logger    *log.Logger
}

func NewOutboxPoller(repo outboxRepo, sink Sink, interval time.Duration, logger *log.Logger) *OutboxPoller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &OutboxPoller{repo: repo, sink: sink, interval: interval, batchSize: 100, logger: logger}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.Flush(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Flush publishes one batch and returns how many events were marked published.
func (p *OutboxPoller) Flush(ctx context.Context) int {
	events, err := p.repo.ListUnpublished(ctx, p.batchSize)
	if err != nil {
		p.logger.Printf("outbox: list unpublished error=%v", err)
		return 0
	}
	published := 0
	for _, ev := range events {
		if err := p.sink.Publish(ctx, ev); err != nil {
			p.logger.Printf("outbox: publish id=%s type=%s error=%v", ev.ID, ev.EventType, err)
			continue
		}
		if err := p.repo.MarkPublished(ctx, ev.ID); err != nil {
			p.logger.Printf("outbox: mark published id=%s error=%v", ev.ID, err)
			continue
		}
		published++
	}
	return published
}
