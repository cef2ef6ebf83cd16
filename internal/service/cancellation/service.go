package cancellation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"farmstand/internal/cache"
	"farmstand/internal/domain"
	refundrepo "farmstand/internal/repository/refund"
	"github.com/shopspring/decimal"
)

// BankSettlementWindow is quoted to buyers who pick a bank refund.
const BankSettlementWindow = "3-5 business days"

type orderReader interface {
	GetForBuyer(ctx context.Context, buyerID, id string) (*domain.Order, error)
}

type refunder interface {
	Cancel(ctx context.Context, in refundrepo.CancelInput) (*refundrepo.CancelResult, error)
}

type ticketStore interface {
	Issue(ctx context.Context, claims cache.TicketClaims) (string, time.Time, error)
	Consume(ctx context.Context, token string) (cache.TicketClaims, error)
}

type Service struct {
	orders  orderReader
	refunds refunder
	tickets ticketStore
	logger  *log.Logger
}

func New(orders orderReader, refunds refunder, tickets ticketStore, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{orders: orders, refunds: refunds, tickets: tickets, logger: logger}
}

// Ticket is the confirmation step shown before a cancellation is submitted.
type Ticket struct {
	Token          string                      `json:"token"`
	OrderID        string                      `json:"orderId"`
	Reasons        []domain.CancellationReason `json:"reasons"`
	Methods        []domain.RefundMethod       `json:"methods"`
	RefundEstimate int64                       `json:"refundEstimate"`
	ExpiresAt      time.Time                   `json:"expiresAt"`
}

type Request struct {
	OrderID      string `json:"orderId"`
	Token        string `json:"token"`
	Reason       string `json:"reason"`
	RefundMethod string `json:"refundMethod"`
}

type Outcome struct {
	Order           domain.Order        `json:"order"`
	Refund          domain.RefundRecord `json:"refund"`
	RefundProcessed bool                `json:"refundProcessed"`
	Message         string              `json:"message"`
}

// EstimateRefund mirrors the cancel_order policy for display. The database
// computes the authoritative amount.
func EstimateRefund(o domain.Order) int64 {
	paid := o.AmountPaid()
	if o.Status == domain.OrderProcessing {
		return paid - paid*10/100
	}
	return paid
}

// Prepare checks the order can still be cancelled and issues a single-use token
// that RequestCancellation must present.
func (s *Service) Prepare(ctx context.Context, session domain.Session, orderID string) (*Ticket, error) {
	o, err := s.orders.GetForBuyer(ctx, session.BuyerID, orderID)
	if err != nil {
		return nil, err
	}
	if !o.Status.Cancellable() {
		return nil, fmt.Errorf("%w: order is %s", domain.ErrNotCancellable, o.Status)
	}
	token, expires, err := s.tickets.Issue(ctx, cache.TicketClaims{OrderID: o.ID, BuyerID: session.BuyerID})
	if err != nil {
		s.logger.Printf("cancellation: prepare order_id=%s buyer_id=%s error=%v", orderID, session.BuyerID, err)
		return nil, err
	}
	return &Ticket{
		Token:          token,
		OrderID:        o.ID,
		Reasons:        domain.CancellationReasons,
		Methods:        []domain.RefundMethod{domain.RefundWallet, domain.RefundBank},
		RefundEstimate: EstimateRefund(*o),
		ExpiresAt:      expires,
	}, nil
}

// RequestCancellation cancels an order and refunds it in one transaction. The order
// is re-read right before acting so a status change since Prepare is honoured.
func (s *Service) RequestCancellation(ctx context.Context, session domain.Session, req Request) (*Outcome, error) {
	reason, ok := domain.ParseCancellationReason(req.Reason)
	if !ok {
		return nil, fmt.Errorf("%w: reason must be one of the listed options", domain.ErrInvalidInput)
	}
	method, ok := domain.ParseRefundMethod(req.RefundMethod)
	if !ok {
		return nil, fmt.Errorf("%w: refund method must be wallet or bank", domain.ErrInvalidInput)
	}

	claims, err := s.tickets.Consume(ctx, req.Token)
	if errors.Is(err, cache.ErrTicketMiss) {
		return nil, domain.ErrInvalidTicket
	}
	if err != nil {
		return nil, err
	}
	if claims.OrderID != req.OrderID || claims.BuyerID != session.BuyerID {
		return nil, domain.ErrInvalidTicket
	}

	current, err := s.orders.GetForBuyer(ctx, session.BuyerID, req.OrderID)
	if err != nil {
		return nil, err
	}
	if !current.Status.Cancellable() {
		return nil, fmt.Errorf("%w: order is %s", domain.ErrNotCancellable, current.Status)
	}

	res, err := s.refunds.Cancel(ctx, refundrepo.CancelInput{
		OrderID: req.OrderID,
		BuyerID: session.BuyerID,
		Reason:  reason,
		Method:  method,
	})
	if err != nil {
		s.logger.Printf("cancellation: cancel order_id=%s buyer_id=%s method=%s error=%v", req.OrderID, session.BuyerID, method, err)
		if errors.Is(err, domain.ErrNotCancellable) || errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrCancellationFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrCancellationFailed, err)
	}

	updated, err := s.orders.GetForBuyer(ctx, session.BuyerID, req.OrderID)
	if err != nil {
		s.logger.Printf("cancellation: reload order_id=%s error=%v", req.OrderID, err)
		o := *current
		o.Status = domain.OrderCancelled
		o.PaymentStatus = res.PaymentStatus
		o.CancelReason = string(reason)
		updated = &o
	}

	out := &Outcome{
		Order:           *updated,
		Refund:          res.Refund,
		RefundProcessed: res.Processed && method == domain.RefundWallet,
		Message:         refundMessage(res.Refund, updated.Currency),
	}
	if method == domain.RefundBank && out.Refund.Status == domain.RefundCompleted {
		// bank transfers settle outside our books
		out.Refund.Status = domain.RefundPending
	}
	s.logger.Printf("cancellation: cancelled order_id=%s buyer_id=%s refund_id=%s amount=%d method=%s", req.OrderID, session.BuyerID, res.Refund.ID, res.Refund.AmountMinor, method)
	return out, nil
}

func refundMessage(r domain.RefundRecord, currency string) string {
	amount := fmt.Sprintf("%s %s", currency, decimal.New(r.AmountMinor, -2).StringFixed(2))
	if r.Method == domain.RefundWallet {
		return fmt.Sprintf("Order cancelled. %s has been added to your wallet.", amount)
	}
	return fmt.Sprintf("Order cancelled. Your refund of %s is on its way to your bank and usually arrives in %s.", amount, BankSettlementWindow)
}
