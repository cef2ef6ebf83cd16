package cart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"farmstand/internal/domain"
)

type Service struct {
	lines   lineRepo
	catalog catalogRepo
	pricing Pricing
	logger  *log.Logger
}

type lineRepo interface {
	ListByBuyer(ctx context.Context, buyerID string) ([]domain.CartLine, error)
	UpdateQuantity(ctx context.Context, buyerID, lineID string, quantity int) error
	DeleteLine(ctx context.Context, buyerID, lineID string) error
}

type catalogRepo interface {
	GetCatalogEntry(ctx context.Context, productID string) (*domain.CatalogEntry, error)
}

func New(lines lineRepo, catalog catalogRepo, pricing Pricing, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{lines: lines, catalog: catalog, pricing: pricing, logger: logger}
}

func (s *Service) Pricing() Pricing {
	return s.pricing
}

// Lines returns the buyer's cart joined with current catalog prices, in cart order.
func (s *Service) Lines(ctx context.Context, session domain.Session) ([]domain.PricedLine, error) {
	if session.BuyerID == "" {
		return nil, errors.New("buyer required")
	}
	lines, err := s.lines.ListByBuyer(ctx, session.BuyerID)
	if err != nil {
		return nil, fmt.Errorf("fetch cart lines: %w", err)
	}
	priced := make([]domain.PricedLine, 0, len(lines))
	for _, l := range lines {
		entry, err := s.catalog.GetCatalogEntry(ctx, l.ProductID)
		if err != nil {
			s.logger.Printf("cart service: price line buyer_id=%s product_id=%s error=%v", session.BuyerID, l.ProductID, err)
			return nil, fmt.Errorf("fetch catalog price %s: %w", l.ProductID, err)
		}
		priced = append(priced, domain.PricedLine{
			LineID:         l.ID,
			ProductID:      l.ProductID,
			ProductName:    entry.Name,
			Unit:           entry.Unit,
			VendorID:       entry.VendorID,
			VendorName:     entry.VendorName,
			UnitPriceMinor: entry.PriceMinor,
			Quantity:       l.Quantity,
		})
	}
	return priced, nil
}

func (s *Service) Quote(ctx context.Context, session domain.Session, promoCode string) (domain.CheckoutQuote, error) {
	lines, err := s.Lines(ctx, session)
	if err != nil {
		return domain.CheckoutQuote{}, err
	}
	q := ComputeQuote(lines, s.pricing, promoCode)
	if q.PromoStatus == domain.PromoInvalid {
		s.logger.Printf("cart service: quote buyer_id=%s invalid promo=%q", session.BuyerID, q.PromoCode)
	}
	return q, nil
}

// ChangeLineQuantity sets a line's quantity. Zero or less removes the line.
func (s *Service) ChangeLineQuantity(ctx context.Context, session domain.Session, lineID string, quantity int) error {
	if lineID == "" {
		return fmt.Errorf("%w: line id required", domain.ErrInvalidInput)
	}
	if quantity <= 0 {
		return s.lines.DeleteLine(ctx, session.BuyerID, lineID)
	}
	return s.lines.UpdateQuantity(ctx, session.BuyerID, lineID, quantity)
}

func (s *Service) RemoveLine(ctx context.Context, session domain.Session, lineID string) error {
	if lineID == "" {
		return fmt.Errorf("%w: line id required", domain.ErrInvalidInput)
	}
	return s.lines.DeleteLine(ctx, session.BuyerID, lineID)
}
