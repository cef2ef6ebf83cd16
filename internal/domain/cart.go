package domain

import "time"

// CartLine is one pending item in a buyer's cart.
type CartLine struct {
	ID        string    `json:"id"`
	BuyerID   string    `json:"buyerId"`
	ProductID string    `json:"productId"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
}

// PricedLine is a cart line joined with the catalog at read time.
type PricedLine struct {
	LineID         string `json:"lineId"`
	ProductID      string `json:"productId"`
	ProductName    string `json:"productName"`
	Unit           string `json:"unit"`
	VendorID       string `json:"vendorId"`
	VendorName     string `json:"vendorName"`
	UnitPriceMinor int64  `json:"unitPriceMinor"`
	Quantity       int    `json:"quantity"`
}

// LineTotal returns unit price times quantity.
func (l PricedLine) LineTotal() int64 {
	return l.UnitPriceMinor * int64(l.Quantity)
}
