package httpserver

import (
	"context"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"

	"farmstand/internal/domain"
	cancelsvc "farmstand/internal/service/cancellation"
	checkoutsvc "farmstand/internal/service/checkout"
	ordersvc "farmstand/internal/service/order"
	sessionsvc "farmstand/internal/service/session"
	"github.com/gin-gonic/gin"
)

func logDiscard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

type stubSessions struct {
	sessions map[string]domain.Session
}

func (s *stubSessions) LookupByToken(_ context.Context, token string) (domain.Session, error) {
	sess, ok := s.sessions[token]
	if !ok {
		return domain.Session{}, sessionsvc.ErrInvalidToken
	}
	return sess, nil
}

type stubCartService struct {
	lines        []domain.PricedLine
	quote        domain.CheckoutQuote
	err          error
	lastSession  domain.Session
	lastPromo    string
	lastLineID   string
	lastQuantity int
	removed      bool
}

func (s *stubCartService) Lines(_ context.Context, session domain.Session) ([]domain.PricedLine, error) {
	s.lastSession = session
	return s.lines, s.err
}

func (s *stubCartService) Quote(_ context.Context, session domain.Session, promoCode string) (domain.CheckoutQuote, error) {
	s.lastSession = session
	s.lastPromo = promoCode
	return s.quote, s.err
}

func (s *stubCartService) ChangeLineQuantity(_ context.Context, _ domain.Session, lineID string, quantity int) error {
	s.lastLineID = lineID
	s.lastQuantity = quantity
	return s.err
}

func (s *stubCartService) RemoveLine(_ context.Context, _ domain.Session, lineID string) error {
	s.lastLineID = lineID
	s.removed = true
	return s.err
}

type stubCheckoutService struct {
	initResult      *checkoutsvc.InitializeResult
	initErr         error
	outcome         *checkoutsvc.OutcomeResult
	verify          checkoutsvc.VerifyOutcome
	verifyErr       error
	orders          []domain.Order
	materializeErr  error
	attempts        []domain.CheckoutAttempt
	lastInit        checkoutsvc.InitializeInput
	lastOutcome     domain.SessionOutcome
	lastStatus      domain.AttemptStatus
	lastLimit       int
	materializeHits int
}

func (s *stubCheckoutService) Initialize(_ context.Context, _ domain.Session, in checkoutsvc.InitializeInput) (*checkoutsvc.InitializeResult, error) {
	s.lastInit = in
	return s.initResult, s.initErr
}

func (s *stubCheckoutService) HandleSessionOutcome(_ context.Context, _ domain.Session, _ string, outcome domain.SessionOutcome) (*checkoutsvc.OutcomeResult, error) {
	s.lastOutcome = outcome
	return s.outcome, nil
}

func (s *stubCheckoutService) Verify(_ context.Context, _ domain.Session, _ string) (checkoutsvc.VerifyOutcome, error) {
	return s.verify, s.verifyErr
}

func (s *stubCheckoutService) Materialize(_ context.Context, _ domain.Session, _ string) ([]domain.Order, error) {
	s.materializeHits++
	return s.orders, s.materializeErr
}

func (s *stubCheckoutService) Attempts(_ context.Context, status domain.AttemptStatus, limit int) ([]domain.CheckoutAttempt, error) {
	s.lastStatus = status
	s.lastLimit = limit
	return s.attempts, nil
}

type stubOrderService struct {
	views    []ordersvc.View
	view     *ordersvc.View
	advanced *domain.Order
	err      error
	lastTo   domain.OrderStatus
}

func (s *stubOrderService) List(_ context.Context, _ domain.Session) ([]ordersvc.View, error) {
	return s.views, s.err
}

func (s *stubOrderService) Get(_ context.Context, _ domain.Session, _ string) (*ordersvc.View, error) {
	return s.view, s.err
}

func (s *stubOrderService) Advance(_ context.Context, _ string, to domain.OrderStatus) (*domain.Order, error) {
	s.lastTo = to
	return s.advanced, s.err
}

type stubCancelService struct {
	ticket      *cancelsvc.Ticket
	outcome     *cancelsvc.Outcome
	err         error
	lastRequest cancelsvc.Request
}

func (s *stubCancelService) Prepare(_ context.Context, _ domain.Session, _ string) (*cancelsvc.Ticket, error) {
	return s.ticket, s.err
}

func (s *stubCancelService) RequestCancellation(_ context.Context, _ domain.Session, req cancelsvc.Request) (*cancelsvc.Outcome, error) {
	s.lastRequest = req
	return s.outcome, s.err
}

type fixture struct {
	router   *gin.Engine
	cart     *stubCartService
	checkout *stubCheckoutService
	orders   *stubOrderService
	cancel   *stubCancelService
}

const testToken = "tok-ada"

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &fixture{
		cart:     &stubCartService{},
		checkout: &stubCheckoutService{},
		orders:   &stubOrderService{},
		cancel:   &stubCancelService{},
	}
	router, err := buildRouter(logDiscard(), nil, Deps{
		Sessions:    &stubSessions{sessions: map[string]domain.Session{testToken: {BuyerID: "b1", Email: "ada@example.com"}}},
		CartSvc:     f.cart,
		CheckoutSvc: f.checkout,
		OrderSvc:    f.orders,
		CancelSvc:   f.cancel,
		OpsKey:      "ops-secret",
	})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	f.router = router
	return f
}

func (f *fixture) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) asBuyer(method, path, body string) *httptest.ResponseRecorder {
	return f.do(method, path, body, map[string]string{"Authorization": "Bearer " + testToken})
}
