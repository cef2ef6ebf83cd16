package outbox

import (
	"context"
	"time"
)

// Event is one row of outbox_events waiting to be relayed to the broker.
type Event struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}

const (
	AggregateOrder           = "order"
	AggregateCheckoutAttempt = "checkout_attempt"

	EventOrderCreated         = "order.created"
	EventOrderStatusChanged   = "order.status_changed"
	EventOrderCancelled       = "order.cancelled"
	EventReconciliationNeeded = "checkout.reconciliation_needed"
)

type Repository interface {
	ListUnpublished(ctx context.Context, limit int) ([]Event, error)
	MarkPublished(ctx context.Context, id string) error
}
