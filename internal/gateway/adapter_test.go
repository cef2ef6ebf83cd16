package gateway

import (
	"context"
	"sync"
	"testing"
	"time"

	"farmstand/internal/domain"
	"farmstand/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAdapter(p Provider) *Adapter {
	return NewAdapter(p, Options{
		Policy:          retry.Policy{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Timeout: time.Second},
		BreakerFailures: 2,
		BreakerTimeout:  time.Hour,
	})
}

func intent(ref string) domain.PaymentIntent {
	return domain.PaymentIntent{Reference: ref, AmountMinor: 2250, Currency: "NGN", Email: "ada@example.com", Channel: domain.ChannelCard}
}

func TestAdapter_InitializeRetriesTransientFailures(t *testing.T) {
	mock := NewMockProvider(false)
	mock.FailInitialize(2)
	a := testAdapter(mock)

	url, err := a.Initialize(context.Background(), intent("ref-1"))
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.mock.local/pay/ref-1", url)
	assert.Equal(t, 3, mock.InitializeCalls)
}

func TestAdapter_InitializeUnavailableAfterRetries(t *testing.T) {
	mock := NewMockProvider(false)
	mock.FailInitialize(10)
	a := testAdapter(mock)

	_, err := a.Initialize(context.Background(), intent("ref-1"))
	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
}

func TestAdapter_EmptyAuthorizationURLIsUnavailable(t *testing.T) {
	mock := NewMockProvider(false)
	mock.BaseURL = ""
	a := testAdapter(mock)

	_, err := a.Initialize(context.Background(), intent("ref-1"))
	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
}

func TestAdapter_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	mock := NewMockProvider(false)
	mock.FailInitialize(100)
	a := testAdapter(mock)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := a.Initialize(ctx, intent("ref-1"))
		require.ErrorIs(t, err, domain.ErrGatewayUnavailable)
	}
	calls := mock.InitializeCalls

	_, err := a.Initialize(ctx, intent("ref-1"))
	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
	assert.Contains(t, err.Error(), "circuit open")
	assert.Equal(t, calls, mock.InitializeCalls, "open breaker must not reach the provider")
}

func TestAdapter_VerifyMapsStatuses(t *testing.T) {
	mock := NewMockProvider(false)
	a := testAdapter(mock)
	ctx := context.Background()

	_, err := a.Initialize(ctx, intent("ref-1"))
	require.NoError(t, err)

	res, err := a.Verify(ctx, "ref-1")
	require.NoError(t, err)
	assert.False(t, res.Succeeded)
	assert.Equal(t, "pending", res.Status)

	mock.Settle("ref-1", "success", 2250)
	res, err = a.Verify(ctx, "ref-1")
	require.NoError(t, err)
	assert.True(t, res.Succeeded)
	assert.Equal(t, int64(2250), res.AmountPaid)

	mock.Settle("ref-2", "abandoned", 0)
	res, err = a.Verify(ctx, "ref-2")
	require.NoError(t, err)
	assert.False(t, res.Succeeded)

	res, err = a.Verify(ctx, "never-initialized")
	require.NoError(t, err)
	assert.False(t, res.Succeeded)
	assert.Equal(t, "unknown", res.Status)
}

func TestAdapter_VerifyIsRepeatable(t *testing.T) {
	mock := NewMockProvider(true)
	a := testAdapter(mock)
	ctx := context.Background()
	_, err := a.Initialize(ctx, intent("ref-1"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]VerifyResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := a.Verify(ctx, "ref-1")
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()
	for _, res := range results {
		assert.True(t, res.Succeeded)
		assert.Equal(t, int64(2250), res.AmountPaid)
	}
	assert.LessOrEqual(t, mock.VerifyCalls, len(results))
}

func TestReportedOutcome(t *testing.T) {
	out, err := ReportedOutcome(domain.SessionDismissed).Open(context.Background(), "https://x")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionDismissed, out)
}
