package publisher

import (
	"bytes"
	"context"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	"farmstand/internal/repository/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memOutbox struct {
	events    []outbox.Event
	published map[string]bool
	listErr   error
	markErr   map[string]error
}

func (m *memOutbox) ListUnpublished(_ context.Context, limit int) ([]outbox.Event, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []outbox.Event
	for _, ev := range m.events {
		if !m.published[ev.ID] && len(out) < limit {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *memOutbox) MarkPublished(_ context.Context, id string) error {
	if err := m.markErr[id]; err != nil {
		return err
	}
	m.published[id] = true
	return nil
}

type recordingSink struct {
	mu   sync.Mutex
	sent []string
	fail map[string]bool
}

func (s *recordingSink) Publish(_ context.Context, ev outbox.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[ev.ID] {
		return errors.New("broker down")
	}
	s.sent = append(s.sent, ev.ID)
	return nil
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func newOutbox(ids ...string) *memOutbox {
	m := &memOutbox{published: map[string]bool{}, markErr: map[string]error{}}
	for _, id := range ids {
		m.events = append(m.events, outbox.Event{ID: id, AggregateType: outbox.AggregateOrder, AggregateID: "o-" + id, EventType: outbox.EventOrderCreated})
	}
	return m
}

func TestFlushPublishesInOrderAndMarks(t *testing.T) {
	repo := newOutbox("e1", "e2", "e3")
	sink := &recordingSink{}
	p := NewOutboxPoller(repo, sink, time.Second, nil)

	n := p.Flush(context.Background())

	require.Equal(t, 3, n)
	assert.Equal(t, []string{"e1", "e2", "e3"}, sink.sent)
	assert.Equal(t, 0, p.Flush(context.Background()))
}

func TestFlushLeavesFailedEventsForNextTick(t *testing.T) {
	repo := newOutbox("e1", "e2")
	sink := &recordingSink{fail: map[string]bool{"e1": true}}
	var buf bytes.Buffer
	p := NewOutboxPoller(repo, sink, time.Second, log.New(&buf, "", 0))

	require.Equal(t, 1, p.Flush(context.Background()))
	assert.False(t, repo.published["e1"])
	assert.True(t, repo.published["e2"])
	assert.Contains(t, buf.String(), "id=e1")

	sink.fail = nil
	require.Equal(t, 1, p.Flush(context.Background()))
	assert.Equal(t, []string{"e2", "e1"}, sink.sent)
}

func TestFlushMarkFailureIsRetried(t *testing.T) {
	repo := newOutbox("e1")
	repo.markErr["e1"] = errors.New("db down")
	sink := &recordingSink{}
	p := NewOutboxPoller(repo, sink, time.Second, nil)

	assert.Equal(t, 0, p.Flush(context.Background()))
	delete(repo.markErr, "e1")
	assert.Equal(t, 1, p.Flush(context.Background()))
	assert.Equal(t, []string{"e1", "e1"}, sink.sent)
}

func TestFlushListError(t *testing.T) {
	repo := newOutbox("e1")
	repo.listErr = errors.New("db down")
	sink := &recordingSink{}
	p := NewOutboxPoller(repo, sink, time.Second, nil)

	assert.Equal(t, 0, p.Flush(context.Background()))
	assert.Empty(t, sink.sent)
}

func TestRunStopsOnCancel(t *testing.T) {
	repo := newOutbox("e1")
	sink := &recordingSink{}
	p := NewOutboxPoller(repo, sink, 5*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return sink.count() > 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestMessageMapping(t *testing.T) {
	ev := outbox.Event{ID: "e1", AggregateType: "order", AggregateID: "o1", EventType: outbox.EventOrderCancelled, Payload: []byte(`{"a":1}`)}

	km := kafkaMessage(ev)
	assert.Equal(t, []byte("o1"), km.Key)
	assert.Equal(t, ev.Payload, km.Value)
	assert.Len(t, km.Headers, 3)

	am := amqpPublishing(ev)
	assert.Equal(t, "e1", am.MessageId)
	assert.Equal(t, "order.cancelled", am.Headers["event_type"])
	assert.EqualValues(t, 2, am.DeliveryMode)
}
