package domain

import "time"

type Vendor struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CatalogEntry is the read-only catalog view the checkout needs for one product.
type CatalogEntry struct {
	ProductID  string    `json:"productId"`
	SKU        string    `json:"sku"`
	Name       string    `json:"name"`
	Unit       string    `json:"unit"`
	PriceMinor int64     `json:"priceMinor"`
	Currency   string    `json:"currency"`
	VendorID   string    `json:"vendorId"`
	VendorName string    `json:"vendorName"`
	CreatedAt  time.Time `json:"createdAt"`
}
