package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"farmstand/internal/cache"
	"farmstand/internal/domain"
	"farmstand/internal/gateway"
	"farmstand/internal/retry"
	cartsvc "farmstand/internal/service/cart"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type stubQuoter struct {
	lines []domain.PricedLine
	err   error
}

func (s *stubQuoter) Quote(_ context.Context, _ domain.Session, promo string) (domain.CheckoutQuote, error) {
	if s.err != nil {
		return domain.CheckoutQuote{}, s.err
	}
	pricing := cartsvc.Pricing{Currency: "NGN", DeliveryFee: 300, ServiceFee: 150, Promos: map[string]int64{"WELCOME10": 10}}
	return cartsvc.ComputeQuote(s.lines, pricing, promo), nil
}

type memAttempts struct {
	mu       sync.Mutex
	byRef    map[string]*domain.CheckoutAttempt
	flagged  []string
	statuses []domain.AttemptStatus
}

func newMemAttempts() *memAttempts {
	return &memAttempts{byRef: make(map[string]*domain.CheckoutAttempt)}
}

func (m *memAttempts) Create(_ context.Context, a domain.CheckoutAttempt) (*domain.CheckoutAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byRef[a.Reference]; ok {
		return nil, domain.ErrAlreadyExists
	}
	a.Status = domain.AttemptInitialized
	a.CreatedAt = time.Now()
	cp := a
	m.byRef[a.Reference] = &cp
	out := cp
	return &out, nil
}

func (m *memAttempts) Get(_ context.Context, reference string) (*domain.CheckoutAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byRef[reference]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *a
	return &out, nil
}

func (m *memAttempts) SetAuthorizationURL(_ context.Context, reference, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byRef[reference]
	if !ok {
		return domain.ErrNotFound
	}
	a.AuthorizationURL = url
	return nil
}

func (m *memAttempts) MarkVerified(_ context.Context, reference string, amountPaid int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byRef[reference]
	if !ok {
		return false, domain.ErrNotFound
	}
	if a.VerifiedAt != nil {
		return false, nil
	}
	now := time.Now()
	a.VerifiedAt = &now
	a.AmountPaidMinor = amountPaid
	if a.Status == domain.AttemptInitialized {
		a.Status = domain.AttemptVerified
	}
	return true, nil
}

func (m *memAttempts) UpdateStatus(_ context.Context, reference string, status domain.AttemptStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byRef[reference]
	if !ok {
		return domain.ErrNotFound
	}
	a.Status = status
	m.statuses = append(m.statuses, status)
	return nil
}

func (m *memAttempts) FlagReconciliation(_ context.Context, reference, detail string, _ []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byRef[reference]
	if !ok {
		return domain.ErrNotFound
	}
	a.Status = domain.AttemptReconciliationNeeded
	a.FailureDetail = detail
	m.flagged = append(m.flagged, reference)
	return nil
}

func (m *memAttempts) ListByStatus(_ context.Context, status domain.AttemptStatus, _ int) ([]domain.CheckoutAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.CheckoutAttempt
	for _, a := range m.byRef {
		if a.Status == status {
			out = append(out, *a)
		}
	}
	return out, nil
}

type memOrders struct {
	mu          sync.Mutex
	orders      []domain.Order
	failVendors map[string]error
	createCalls int
}

func (m *memOrders) Create(_ context.Context, o domain.Order) (*domain.Order, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if err := m.failVendors[o.VendorID]; err != nil {
		return nil, false, err
	}
	for _, existing := range m.orders {
		if existing.PaymentReference == o.PaymentReference && existing.VendorID == o.VendorID {
			out := existing
			return &out, false, nil
		}
	}
	o.ID = fmt.Sprintf("order-%d", len(m.orders)+1)
	o.CreatedAt = time.Now()
	m.orders = append(m.orders, o)
	out := o
	return &out, true, nil
}

func (m *memOrders) ListByPaymentReference(_ context.Context, reference string) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, o := range m.orders {
		if o.PaymentReference == reference {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memOrders) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// stubCart records how many orders existed when the cart was cleared.
type stubCart struct {
	orders         *memOrders
	clears         int
	ordersAtClear  int
	lastClearBuyer string
	clearErr       error
}

func (s *stubCart) ClearByBuyer(_ context.Context, buyerID string) error {
	if s.clearErr != nil {
		return s.clearErr
	}
	s.clears++
	s.lastClearBuyer = buyerID
	s.ordersAtClear = s.orders.count()
	return nil
}

type fixture struct {
	svc      *Service
	mock     *gateway.MockProvider
	attempts *memAttempts
	orders   *memOrders
	cart     *stubCart
	quoter   *stubQuoter
	locker   *cache.Locker
}

var buyer = domain.Session{BuyerID: "b1", Email: "ada@example.com", DisplayName: "Ada"}

// welcomeLines is the two-vendor cart: 2 x 500 from A, 1 x 1000 from B.
func welcomeLines() []domain.PricedLine {
	return []domain.PricedLine{
		{LineID: "l1", ProductID: "x", ProductName: "Item X", Unit: "kg", VendorID: "A", VendorName: "Vendor A", UnitPriceMinor: 500, Quantity: 2},
		{LineID: "l2", ProductID: "y", ProductName: "Item Y", Unit: "crate", VendorID: "B", VendorName: "Vendor B", UnitPriceMinor: 1000, Quantity: 1},
	}
}

func newFixture(t *testing.T, lines []domain.PricedLine, autoApprove bool) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	mock := gateway.NewMockProvider(autoApprove)
	adapter := gateway.NewAdapter(mock, gateway.Options{
		Policy: retry.Policy{Attempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Timeout: time.Second},
	})
	orders := &memOrders{failVendors: map[string]error{}}
	f := &fixture{
		mock:     mock,
		attempts: newMemAttempts(),
		orders:   orders,
		cart:     &stubCart{orders: orders},
		quoter:   &stubQuoter{lines: lines},
		locker:   cache.NewLocker(client, time.Minute),
	}
	f.svc = New(Deps{
		Quotes:   f.quoter,
		Attempts: f.attempts,
		Gateway:  adapter,
		Orders:   f.orders,
		Cart:     f.cart,
		Locker:   f.locker,
	})
	return f
}

var errInsert = errors.New("insert failed")
