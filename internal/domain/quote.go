package domain

type PromoStatus string

const (
	PromoNone    PromoStatus = "none"
	PromoApplied PromoStatus = "applied"
	PromoInvalid PromoStatus = "invalid"
)

// CheckoutQuote is derived from the cart and never stored on its own.
type CheckoutQuote struct {
	Currency    string       `json:"currency"`
	Subtotal    int64        `json:"subtotal"`
	DeliveryFee int64        `json:"deliveryFee"`
	ServiceFee  int64        `json:"serviceFee"`
	Discount    int64        `json:"discount"`
	Total       int64        `json:"total"`
	PromoCode   string       `json:"promoCode,omitempty"`
	PromoStatus PromoStatus  `json:"promoStatus"`
	Lines       []PricedLine `json:"lines"`
}
