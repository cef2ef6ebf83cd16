package domain

import (
	"strings"
	"time"
)

type RefundMethod string

const (
	RefundWallet RefundMethod = "wallet"
	RefundBank   RefundMethod = "bank"
)

func ParseRefundMethod(raw string) (RefundMethod, bool) {
	switch m := RefundMethod(strings.ToLower(strings.TrimSpace(raw))); m {
	case RefundWallet, RefundBank:
		return m, true
	default:
		return "", false
	}
}

type RefundStatus string

const (
	RefundPending    RefundStatus = "pending"
	RefundProcessing RefundStatus = "processing"
	RefundCompleted  RefundStatus = "completed"
	RefundFailed     RefundStatus = "failed"
)

// CancellationReason is a closed set so reason analytics stay enumerable.
type CancellationReason string

const (
	ReasonChangedMind        CancellationReason = "changed_mind"
	ReasonOrderedByMistake   CancellationReason = "ordered_by_mistake"
	ReasonDeliveryTooSlow    CancellationReason = "delivery_too_slow"
	ReasonFoundBetterPrice   CancellationReason = "found_better_price"
	ReasonVendorUnresponsive CancellationReason = "vendor_unresponsive"
	ReasonOther              CancellationReason = "other"
)

var CancellationReasons = []CancellationReason{
	ReasonChangedMind,
	ReasonOrderedByMistake,
	ReasonDeliveryTooSlow,
	ReasonFoundBetterPrice,
	ReasonVendorUnresponsive,
	ReasonOther,
}

func ParseCancellationReason(raw string) (CancellationReason, bool) {
	r := CancellationReason(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range CancellationReasons {
		if r == known {
			return r, true
		}
	}
	return "", false
}

type RefundRecord struct {
	ID          string             `json:"id"`
	OrderID     string             `json:"orderId"`
	BuyerID     string             `json:"buyerId"`
	Reason      CancellationReason `json:"reason"`
	AmountMinor int64              `json:"amount"`
	Method      RefundMethod       `json:"method"`
	Status      RefundStatus       `json:"status"`
	CreatedAt   time.Time          `json:"createdAt"`
}
