package order

import (
	"context"
	"fmt"
	"io"
	"log"

	"farmstand/internal/domain"
)

type orderRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetForBuyer(ctx context.Context, buyerID, id string) (*domain.Order, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) (*domain.Order, error)
}

type Service struct {
	repo   orderRepo
	logger *log.Logger
}

func New(repo orderRepo, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, logger: logger}
}

// View is an order with its tracker.
type View struct {
	domain.Order
	Progress    domain.Progress `json:"progress"`
	Cancellable bool            `json:"cancellable"`
}

func viewOf(o domain.Order) View {
	return View{Order: o, Progress: domain.ProgressFor(o.Status), Cancellable: o.Status.Cancellable()}
}

func (s *Service) List(ctx context.Context, session domain.Session) ([]View, error) {
	orders, err := s.repo.ListByBuyer(ctx, session.BuyerID)
	if err != nil {
		return nil, err
	}
	views := make([]View, 0, len(orders))
	for _, o := range orders {
		views = append(views, viewOf(o))
	}
	return views, nil
}

func (s *Service) Get(ctx context.Context, session domain.Session, id string) (*View, error) {
	o, err := s.repo.GetForBuyer(ctx, session.BuyerID, id)
	if err != nil {
		return nil, err
	}
	v := viewOf(*o)
	return &v, nil
}

// Advance moves an order one step along pending, confirmed, processing, delivered.
// Cancellation has its own flow and is rejected here.
func (s *Service) Advance(ctx context.Context, id string, to domain.OrderStatus) (*domain.Order, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, to)
	}
	if to == domain.OrderCancelled {
		return nil, fmt.Errorf("%w: use the cancellation flow to cancel", domain.ErrInvalidTransition)
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateTransition(current.Status, to); err != nil {
		s.logger.Printf("order service: advance id=%s from=%s to=%s rejected", id, current.Status, to)
		return nil, err
	}
	updated, err := s.repo.UpdateStatus(ctx, id, current.Status, to)
	if err != nil {
		s.logger.Printf("order service: advance id=%s from=%s to=%s error=%v", id, current.Status, to, err)
		return nil, err
	}
	return updated, nil
}
