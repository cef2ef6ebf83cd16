package domain

import (
	"fmt"
	"time"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderProcessing OrderStatus = "processing"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentUnpaid            PaymentStatus = "unpaid"
	PaymentPaid              PaymentStatus = "paid"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
)

// progressPath is the canonical success ordering shown in the order tracker.
var progressPath = []OrderStatus{OrderPending, OrderConfirmed, OrderProcessing, OrderDelivered}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderProcessing, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// Cancellable reports whether the buyer may still cancel an order in this status.
func (s OrderStatus) Cancellable() bool {
	return s == OrderPending || s == OrderConfirmed || s == OrderProcessing
}

func (s OrderStatus) index() int {
	for i, st := range progressPath {
		if st == s {
			return i
		}
	}
	return -1
}

// CanTransitionTo allows one step forward along the success path, or a move to
// cancelled from any non-terminal state.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.IsTerminal() || !next.Valid() {
		return false
	}
	if next == OrderCancelled {
		return s.Cancellable()
	}
	from, to := s.index(), next.index()
	return from >= 0 && to == from+1
}

// ValidateTransition fails loudly instead of silently ignoring an illegal move.
func ValidateTransition(from, to OrderStatus) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// LineItemSnapshot is frozen at order time and never follows later catalog edits.
type LineItemSnapshot struct {
	ProductID      string `json:"productId"`
	Name           string `json:"name"`
	Unit           string `json:"unit"`
	UnitPriceMinor int64  `json:"unitPriceMinor"`
	Quantity       int    `json:"quantity"`
	TotalMinor     int64  `json:"totalMinor"`
}

type Order struct {
	ID               string             `json:"id"`
	BuyerID          string             `json:"buyerId"`
	VendorID         string             `json:"vendorId"`
	VendorName       string             `json:"vendorName"`
	LineItems        []LineItemSnapshot `json:"lineItems"`
	TotalMinor       int64              `json:"total"`
	DeliveryFeeShare int64              `json:"deliveryFeeShare"`
	ServiceFeeShare  int64              `json:"serviceFeeShare"`
	DiscountShare    int64              `json:"discountShare"`
	Currency         string             `json:"currency"`
	PaymentReference string             `json:"paymentReference"`
	PaymentMethod    PaymentChannel     `json:"paymentMethod"`
	PaymentStatus    PaymentStatus      `json:"paymentStatus"`
	Status           OrderStatus        `json:"status"`
	CancelReason     string             `json:"cancelReason,omitempty"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`
}

// AmountPaid is what the buyer was charged for this order including its share of fees.
func (o Order) AmountPaid() int64 {
	return o.TotalMinor + o.DeliveryFeeShare + o.ServiceFeeShare - o.DiscountShare
}

type ProgressStep struct {
	Status    OrderStatus `json:"status"`
	Completed bool        `json:"completed"`
}

// Progress is display-only. Cancelled orders skip the tracker entirely.
type Progress struct {
	Steps    []ProgressStep `json:"steps,omitempty"`
	Terminal OrderStatus    `json:"terminal,omitempty"`
}

func ProgressFor(status OrderStatus) Progress {
	if status == OrderCancelled {
		return Progress{Terminal: OrderCancelled}
	}
	current := status.index()
	steps := make([]ProgressStep, 0, len(progressPath))
	for i, st := range progressPath {
		steps = append(steps, ProgressStep{Status: st, Completed: current >= 0 && i <= current})
	}
	p := Progress{Steps: steps}
	if status == OrderDelivered {
		p.Terminal = OrderDelivered
	}
	return p
}
