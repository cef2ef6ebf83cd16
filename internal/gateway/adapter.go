package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"farmstand/internal/domain"
	"farmstand/internal/retry"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"
)

// VerifyResult is the observed state of a payment. Verifying has no side effects
// on the provider, so it is safe to repeat.
type VerifyResult struct {
	Reference  string
	Succeeded  bool
	Status     string
	AmountPaid int64
	Currency   string
}

type Options struct {
	Policy      retry.Policy
	CallbackURL string
	// BreakerFailures is how many consecutive failed calls open the breaker.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
	Logger          *log.Logger
}

// Adapter is the checkout's only way to reach the payment provider.
type Adapter struct {
	provider    Provider
	policy      retry.Policy
	callbackURL string
	breaker     *gobreaker.CircuitBreaker[any]
	verifies    singleflight.Group
	logger      *log.Logger
}

func NewAdapter(provider Provider, opts Options) *Adapter {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	policy := opts.Policy
	if policy.Attempts == 0 {
		policy = retry.DefaultPolicy()
	}
	failures := opts.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	timeout := opts.BreakerTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	a := &Adapter{
		provider:    provider,
		policy:      policy,
		callbackURL: opts.CallbackURL,
		logger:      logger,
	}
	a.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Printf("gateway: breaker name=%s from=%s to=%s", name, from, to)
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, ErrUnknownReference) {
				return true
			}
			var pe *ProviderError
			return errors.As(err, &pe) && pe.ClientSide()
		},
	})
	return a
}

// call runs fn inside the breaker with retries. Client-side provider errors are
// not retried.
func (a *Adapter) call(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	return a.breaker.Execute(func() (any, error) {
		var out any
		err := retry.Do(ctx, a.policy, func(ctx context.Context) error {
			v, err := fn(ctx)
			if err != nil {
				var pe *ProviderError
				if errors.Is(err, ErrUnknownReference) || (errors.As(err, &pe) && pe.ClientSide()) {
					return retry.Permanent(err)
				}
				return err
			}
			out = v
			return nil
		})
		return out, err
	})
}

// Initialize opens a hosted payment session and returns the page the buyer must visit.
func (a *Adapter) Initialize(ctx context.Context, intent domain.PaymentIntent) (string, error) {
	req := InitializeRequest{
		Reference:   intent.Reference,
		Email:       intent.Email,
		AmountMinor: intent.AmountMinor,
		Currency:    intent.Currency,
		Channel:     intent.Channel,
		CallbackURL: a.callbackURL,
		Metadata:    intent.Metadata,
	}
	v, err := a.call(ctx, func(ctx context.Context) (any, error) {
		return a.provider.Initialize(ctx, req)
	})
	if err != nil {
		a.logger.Printf("gateway: initialize reference=%s amount=%d error=%v", intent.Reference, intent.AmountMinor, err)
		return "", unavailable(err)
	}
	resp := v.(InitializeResponse)
	if resp.AuthorizationURL == "" {
		a.logger.Printf("gateway: initialize reference=%s empty authorization url", intent.Reference)
		return "", fmt.Errorf("%w: empty authorization url", domain.ErrGatewayUnavailable)
	}
	a.logger.Printf("gateway: initialized reference=%s channel=%s", intent.Reference, intent.Channel)
	return resp.AuthorizationURL, nil
}

// Verify asks the provider for the payment's status. Concurrent calls for the
// same reference share one provider round trip.
func (a *Adapter) Verify(ctx context.Context, reference string) (VerifyResult, error) {
	v, err, shared := a.verifies.Do(reference, func() (any, error) {
		v, err := a.call(ctx, func(ctx context.Context) (any, error) {
			return a.provider.Verify(ctx, reference)
		})
		if errors.Is(err, ErrUnknownReference) {
			return VerifyResult{Reference: reference, Status: "unknown"}, nil
		}
		if err != nil {
			return nil, err
		}
		resp := v.(VerifyResponse)
		return VerifyResult{
			Reference:  reference,
			Succeeded:  resp.Status == "success",
			Status:     resp.Status,
			AmountPaid: resp.AmountMinor,
			Currency:   resp.Currency,
		}, nil
	})
	if err != nil {
		a.logger.Printf("gateway: verify reference=%s shared=%v error=%v", reference, shared, err)
		return VerifyResult{}, unavailable(err)
	}
	res := v.(VerifyResult)
	a.logger.Printf("gateway: verify reference=%s status=%s shared=%v", reference, res.Status, shared)
	return res, nil
}

func unavailable(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: circuit open", domain.ErrGatewayUnavailable)
	}
	return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
}

// HostedSession presents the provider's payment page and waits until the buyer
// leaves it. Completion only means the page closed; payment is confirmed by Verify.
type HostedSession interface {
	Open(ctx context.Context, authorizationURL string) (domain.SessionOutcome, error)
}

// ReportedOutcome is a HostedSession whose outcome was already reported by the
// buyer's device.
type ReportedOutcome domain.SessionOutcome

func (r ReportedOutcome) Open(ctx context.Context, _ string) (domain.SessionOutcome, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return domain.SessionOutcome(r), nil
}
