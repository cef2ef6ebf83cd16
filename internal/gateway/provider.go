package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"farmstand/internal/domain"
)

// ErrUnknownReference means the provider has never seen the reference.
var ErrUnknownReference = errors.New("gateway: unknown reference")

type InitializeRequest struct {
	Reference   string
	Email       string
	AmountMinor int64
	Currency    string
	Channel     domain.PaymentChannel
	CallbackURL string
	Metadata    map[string]string
}

type InitializeResponse struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

type VerifyResponse struct {
	Reference   string
	Status      string
	AmountMinor int64
	Currency    string
	Channel     string
	PaidAt      *time.Time
}

// Provider is a hosted-checkout payment processor.
type Provider interface {
	Initialize(ctx context.Context, req InitializeRequest) (InitializeResponse, error)
	Verify(ctx context.Context, reference string) (VerifyResponse, error)
}

// ProviderError is a non-2xx answer from the provider API.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("gateway: provider returned %d: %s", e.StatusCode, e.Message)
}

// ClientSide reports a 4xx other than 429. Those are not outages.
func (e *ProviderError) ClientSide() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != 429
}
