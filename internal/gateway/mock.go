package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// MockProvider is an in-memory Provider for local runs and tests.
// With AutoApprove every initialized reference verifies as paid in full.
type MockProvider struct {
	AutoApprove bool
	BaseURL     string

	mu              sync.Mutex
	payments        map[string]*mockPayment
	initFailures    int
	verifyFailures  int
	InitializeCalls int
	VerifyCalls     int
}

type mockPayment struct {
	amount   int64
	currency string
	status   string
	paidAt   *time.Time
}

var errMockUnavailable = errors.New("mock gateway: unavailable")

func NewMockProvider(autoApprove bool) *MockProvider {
	return &MockProvider{
		AutoApprove: autoApprove,
		BaseURL:     "https://checkout.mock.local/pay/",
		payments:    make(map[string]*mockPayment),
	}
}

// FailInitialize makes the next n Initialize calls fail as if the network were down.
func (m *MockProvider) FailInitialize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initFailures = n
}

// FailVerify makes the next n Verify calls fail as if the network were down.
func (m *MockProvider) FailVerify(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifyFailures = n
}

// Settle records the final provider status for a reference, e.g. "success" or "failed".
func (m *MockProvider) Settle(reference, status string, amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[reference]
	if !ok {
		p = &mockPayment{}
		m.payments[reference] = p
	}
	p.status = status
	p.amount = amount
	if status == "success" {
		now := time.Now().UTC()
		p.paidAt = &now
	}
}

func (m *MockProvider) Initialize(ctx context.Context, req InitializeRequest) (InitializeResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InitializeCalls++
	if m.initFailures > 0 {
		m.initFailures--
		return InitializeResponse{}, errMockUnavailable
	}
	if err := ctx.Err(); err != nil {
		return InitializeResponse{}, err
	}
	if _, ok := m.payments[req.Reference]; !ok {
		m.payments[req.Reference] = &mockPayment{amount: req.AmountMinor, currency: req.Currency, status: "pending"}
	}
	var authURL string
	if m.BaseURL != "" {
		authURL = m.BaseURL + req.Reference
	}
	return InitializeResponse{
		AuthorizationURL: authURL,
		AccessCode:       fmt.Sprintf("mock_%s", req.Reference),
		Reference:        req.Reference,
	}, nil
}

func (m *MockProvider) Verify(ctx context.Context, reference string) (VerifyResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.VerifyCalls++
	if m.verifyFailures > 0 {
		m.verifyFailures--
		return VerifyResponse{}, errMockUnavailable
	}
	if err := ctx.Err(); err != nil {
		return VerifyResponse{}, err
	}
	p, ok := m.payments[reference]
	if !ok {
		return VerifyResponse{}, fmt.Errorf("%w: %s", ErrUnknownReference, reference)
	}
	if m.AutoApprove && p.status == "pending" {
		now := time.Now().UTC()
		p.status = "success"
		p.paidAt = &now
	}
	return VerifyResponse{
		Reference:   reference,
		Status:      p.status,
		AmountMinor: p.amount,
		Currency:    p.currency,
		PaidAt:      p.paidAt,
	}, nil
}
