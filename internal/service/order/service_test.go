package order

import (
	"context"
	"errors"
	"testing"

	"farmstand/internal/domain"
)

type stubRepo struct {
	order      *domain.Order
	orders     []domain.Order
	getErr     error
	lastBuyer  string
	lastFrom   domain.OrderStatus
	lastTo     domain.OrderStatus
	updateErr  error
	updateHits int
}

func (s *stubRepo) GetByID(_ context.Context, _ string) (*domain.Order, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	o := *s.order
	return &o, nil
}

func (s *stubRepo) GetForBuyer(_ context.Context, buyerID, _ string) (*domain.Order, error) {
	s.lastBuyer = buyerID
	if s.getErr != nil {
		return nil, s.getErr
	}
	o := *s.order
	return &o, nil
}

func (s *stubRepo) ListByBuyer(_ context.Context, buyerID string) ([]domain.Order, error) {
	s.lastBuyer = buyerID
	return s.orders, nil
}

func (s *stubRepo) UpdateStatus(_ context.Context, _ string, from, to domain.OrderStatus) (*domain.Order, error) {
	s.updateHits++
	s.lastFrom, s.lastTo = from, to
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	o := *s.order
	o.Status = to
	return &o, nil
}

func TestAdvance_OneStepForward(t *testing.T) {
	repo := &stubRepo{order: &domain.Order{ID: "o1", Status: domain.OrderConfirmed}}
	svc := New(repo, nil)

	updated, err := svc.Advance(context.Background(), "o1", domain.OrderProcessing)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if updated.Status != domain.OrderProcessing || repo.lastFrom != domain.OrderConfirmed {
		t.Fatalf("expected compare-and-set from confirmed, got from=%s status=%s", repo.lastFrom, updated.Status)
	}
}

func TestAdvance_RejectsIllegalMoves(t *testing.T) {
	cases := []struct {
		from, to domain.OrderStatus
		want     error
	}{
		{domain.OrderPending, domain.OrderDelivered, domain.ErrInvalidTransition},
		{domain.OrderProcessing, domain.OrderConfirmed, domain.ErrInvalidTransition},
		{domain.OrderDelivered, domain.OrderProcessing, domain.ErrInvalidTransition},
		{domain.OrderPending, domain.OrderCancelled, domain.ErrInvalidTransition},
		{domain.OrderPending, domain.OrderStatus("lost"), domain.ErrInvalidInput},
	}
	for _, tc := range cases {
		repo := &stubRepo{order: &domain.Order{ID: "o1", Status: tc.from}}
		_, err := New(repo, nil).Advance(context.Background(), "o1", tc.to)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.want, err)
		}
		if repo.updateHits != 0 {
			t.Fatalf("%s -> %s: rejected move must not write", tc.from, tc.to)
		}
	}
}

func TestGet_IncludesProgress(t *testing.T) {
	repo := &stubRepo{order: &domain.Order{ID: "o1", Status: domain.OrderProcessing}}
	svc := New(repo, nil)

	v, err := svc.Get(context.Background(), domain.Session{BuyerID: "b1"}, "o1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if repo.lastBuyer != "b1" {
		t.Fatalf("expected buyer scoped lookup, got %q", repo.lastBuyer)
	}
	if len(v.Progress.Steps) != 4 || !v.Progress.Steps[2].Completed || v.Progress.Steps[3].Completed {
		t.Fatalf("unexpected progress %+v", v.Progress)
	}
	if !v.Cancellable {
		t.Fatalf("processing orders are cancellable")
	}
}

func TestList_CancelledHasNoTracker(t *testing.T) {
	repo := &stubRepo{orders: []domain.Order{{ID: "o1", Status: domain.OrderCancelled}, {ID: "o2", Status: domain.OrderDelivered}}}
	views, err := New(repo, nil).List(context.Background(), domain.Session{BuyerID: "b1"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 views, got %d", len(views))
	}
	if len(views[0].Progress.Steps) != 0 || views[0].Progress.Terminal != domain.OrderCancelled || views[0].Cancellable {
		t.Fatalf("unexpected cancelled view %+v", views[0])
	}
	if views[1].Cancellable {
		t.Fatalf("delivered orders are not cancellable")
	}
}
