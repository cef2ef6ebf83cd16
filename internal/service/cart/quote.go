package cart

import (
	"strings"

	"farmstand/internal/domain"
	"github.com/shopspring/decimal"
)

// Pricing is the injected fee and promo policy. Promos maps an exact code to a percentage.
type Pricing struct {
	Currency    string
	DeliveryFee int64
	ServiceFee  int64
	Promos      map[string]int64
}

// ComputeQuote is pure: the same lines, pricing and code always give the same quote.
func ComputeQuote(lines []domain.PricedLine, pricing Pricing, promoCode string) domain.CheckoutQuote {
	var subtotal int64
	for _, l := range lines {
		subtotal += l.LineTotal()
	}

	q := domain.CheckoutQuote{
		Currency:    pricing.Currency,
		Subtotal:    subtotal,
		DeliveryFee: pricing.DeliveryFee,
		ServiceFee:  pricing.ServiceFee,
		PromoStatus: domain.PromoNone,
		Lines:       append([]domain.PricedLine(nil), lines...),
	}

	code := strings.TrimSpace(promoCode)
	if code != "" {
		q.PromoCode = code
		pct, ok := pricing.Promos[code]
		if ok && pct > 0 {
			q.PromoStatus = domain.PromoApplied
			q.Discount = percentOf(subtotal, pct)
		} else {
			q.PromoStatus = domain.PromoInvalid
		}
	}

	q.Total = q.Subtotal + q.DeliveryFee + q.ServiceFee - q.Discount
	return q
}

// percentOf floors amount*pct/100 and never exceeds amount.
func percentOf(amount, pct int64) int64 {
	if amount <= 0 || pct <= 0 {
		return 0
	}
	d := decimal.NewFromInt(amount).Mul(decimal.NewFromInt(pct)).Div(decimal.NewFromInt(100)).Floor().IntPart()
	if d > amount {
		return amount
	}
	return d
}
