package checkout

import (
	"sort"

	"farmstand/internal/domain"
	"github.com/shopspring/decimal"
)

// VendorGroup is the slice of a checkout that becomes one vendor order.
type VendorGroup struct {
	VendorID   string
	VendorName string
	Lines      []domain.PricedLine
	Subtotal   int64
}

// PartitionByVendor groups lines by vendor. Groups keep the order in which each
// vendor first appears, and lines keep their cart order within a group.
func PartitionByVendor(lines []domain.PricedLine) []VendorGroup {
	index := make(map[string]int)
	var groups []VendorGroup
	for _, l := range lines {
		i, ok := index[l.VendorID]
		if !ok {
			i = len(groups)
			index[l.VendorID] = i
			groups = append(groups, VendorGroup{VendorID: l.VendorID, VendorName: l.VendorName})
		}
		groups[i].Lines = append(groups[i].Lines, l)
		groups[i].Subtotal += l.LineTotal()
	}
	return groups
}

// Apportion splits amount across weights pro rata using the largest remainder
// method. The parts always sum to amount; ties go to the earlier weight. If every
// weight is zero the amount is split evenly.
func Apportion(amount int64, weights []int64) []int64 {
	parts := make([]int64, len(weights))
	if len(weights) == 0 || amount == 0 {
		return parts
	}

	w := make([]int64, len(weights))
	var total int64
	for i, v := range weights {
		if v < 0 {
			v = 0
		}
		w[i] = v
		total += v
	}
	if total == 0 {
		for i := range w {
			w[i] = 1
		}
		total = int64(len(w))
	}

	type remainder struct {
		idx int
		rem decimal.Decimal
	}
	rems := make([]remainder, len(w))
	den := decimal.NewFromInt(total)
	var assigned int64
	for i, v := range w {
		q, r := decimal.NewFromInt(amount).Mul(decimal.NewFromInt(v)).QuoRem(den, 0)
		parts[i] = q.IntPart()
		assigned += parts[i]
		rems[i] = remainder{idx: i, rem: r}
	}

	sort.SliceStable(rems, func(a, b int) bool {
		return rems[a].rem.GreaterThan(rems[b].rem)
	})
	for left, k := amount-assigned, 0; left > 0; left, k = left-1, k+1 {
		parts[rems[k%len(rems)].idx]++
	}
	return parts
}

// planOrders builds one pending, paid order per vendor group with its share of
// fees and discount.
func planOrders(a domain.CheckoutAttempt) ([]VendorGroup, []domain.Order) {
	groups := PartitionByVendor(a.Quote.Lines)
	weights := make([]int64, len(groups))
	for i, g := range groups {
		weights[i] = g.Subtotal
	}
	delivery := Apportion(a.Quote.DeliveryFee, weights)
	service := Apportion(a.Quote.ServiceFee, weights)
	discount := Apportion(a.Quote.Discount, weights)

	orders := make([]domain.Order, len(groups))
	for i, g := range groups {
		items := make([]domain.LineItemSnapshot, 0, len(g.Lines))
		for _, l := range g.Lines {
			items = append(items, domain.LineItemSnapshot{
				ProductID:      l.ProductID,
				Name:           l.ProductName,
				Unit:           l.Unit,
				UnitPriceMinor: l.UnitPriceMinor,
				Quantity:       l.Quantity,
				TotalMinor:     l.LineTotal(),
			})
		}
		orders[i] = domain.Order{
			BuyerID:          a.BuyerID,
			VendorID:         g.VendorID,
			VendorName:       g.VendorName,
			LineItems:        items,
			TotalMinor:       g.Subtotal,
			DeliveryFeeShare: delivery[i],
			ServiceFeeShare:  service[i],
			DiscountShare:    discount[i],
			Currency:         a.Currency,
			PaymentReference: a.Reference,
			PaymentMethod:    a.Channel,
			PaymentStatus:    domain.PaymentPaid,
			Status:           domain.OrderPending,
		}
	}
	return groups, orders
}
