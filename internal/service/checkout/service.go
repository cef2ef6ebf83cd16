package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"farmstand/internal/cache"
	"farmstand/internal/domain"
	"farmstand/internal/gateway"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type quoter interface {
	Quote(ctx context.Context, session domain.Session, promoCode string) (domain.CheckoutQuote, error)
}

type attemptStore interface {
	Create(ctx context.Context, a domain.CheckoutAttempt) (*domain.CheckoutAttempt, error)
	Get(ctx context.Context, reference string) (*domain.CheckoutAttempt, error)
	SetAuthorizationURL(ctx context.Context, reference, url string) error
	MarkVerified(ctx context.Context, reference string, amountPaid int64) (bool, error)
	UpdateStatus(ctx context.Context, reference string, status domain.AttemptStatus) error
	FlagReconciliation(ctx context.Context, reference, detail string, pendingVendors []string) error
	ListByStatus(ctx context.Context, status domain.AttemptStatus, limit int) ([]domain.CheckoutAttempt, error)
}

type paymentGateway interface {
	Initialize(ctx context.Context, intent domain.PaymentIntent) (string, error)
	Verify(ctx context.Context, reference string) (gateway.VerifyResult, error)
}

type orderStore interface {
	Create(ctx context.Context, o domain.Order) (*domain.Order, bool, error)
	ListByPaymentReference(ctx context.Context, reference string) ([]domain.Order, error)
}

type cartClearer interface {
	ClearByBuyer(ctx context.Context, buyerID string) error
}

type locker interface {
	Acquire(ctx context.Context, key string) (func(context.Context) error, error)
}

type Deps struct {
	Quotes   quoter
	Attempts attemptStore
	Gateway  paymentGateway
	Orders   orderStore
	Cart     cartClearer
	Locker   locker
	Logger   *log.Logger
}

type Service struct {
	quotes   quoter
	attempts attemptStore
	gateway  paymentGateway
	orders   orderStore
	cart     cartClearer
	locker   locker
	logger   *log.Logger
}

func New(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		quotes:   d.Quotes,
		attempts: d.Attempts,
		gateway:  d.Gateway,
		orders:   d.Orders,
		cart:     d.Cart,
		locker:   d.Locker,
		logger:   logger,
	}
}

// NextAction tells the buyer's app what to offer after a hosted session closes.
type NextAction string

const (
	ActionNone     NextAction = ""
	ActionReverify NextAction = "reverify"
)

type InitializeInput struct {
	Reference string            `json:"reference,omitempty"`
	PromoCode string            `json:"promoCode,omitempty"`
	Channel   string            `json:"channel,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type InitializeResult struct {
	Reference        string               `json:"reference"`
	AuthorizationURL string               `json:"authorizationUrl"`
	Quote            domain.CheckoutQuote `json:"quote"`
	PayLabel         string               `json:"payLabel"`
}

type VerifyOutcome struct {
	Reference         string `json:"reference"`
	Succeeded         bool   `json:"succeeded"`
	Status            string `json:"status"`
	AmountPaid        int64  `json:"amountPaid"`
	FirstConfirmation bool   `json:"firstConfirmation"`
}

type OutcomeResult struct {
	Reference  string         `json:"reference"`
	Outcome    string         `json:"outcome"`
	NextAction NextAction     `json:"nextAction,omitempty"`
	Message    string         `json:"message,omitempty"`
	Orders     []domain.Order `json:"orders,omitempty"`
}

// Initialize freezes the cart into a checkout attempt and opens a payment session for it.
// Passing the reference of an attempt that never reached the gateway retries it.
func (s *Service) Initialize(ctx context.Context, session domain.Session, in InitializeInput) (*InitializeResult, error) {
	if session.BuyerID == "" || session.Email == "" {
		return nil, fmt.Errorf("%w: buyer email required", domain.ErrInvalidInput)
	}
	channel, ok := domain.ParseChannel(in.Channel)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported channel %q", domain.ErrInvalidInput, in.Channel)
	}

	attempt, err := s.resumeAttempt(ctx, session, strings.TrimSpace(in.Reference))
	if err != nil {
		return nil, err
	}
	if attempt == nil {
		attempt, err = s.newAttempt(ctx, session, in, channel)
		if err != nil {
			return nil, err
		}
	}

	result := &InitializeResult{
		Reference:        attempt.Reference,
		AuthorizationURL: attempt.AuthorizationURL,
		Quote:            attempt.Quote,
		PayLabel:         PayLabel(attempt.AmountMinor, attempt.Currency, attempt.Channel),
	}
	if attempt.AuthorizationURL != "" {
		return result, nil
	}

	intent := domain.PaymentIntent{
		Reference:   attempt.Reference,
		AmountMinor: attempt.AmountMinor,
		Currency:    attempt.Currency,
		Email:       attempt.Email,
		Channel:     attempt.Channel,
		Metadata:    in.Metadata,
	}
	url, err := s.gateway.Initialize(ctx, intent)
	if err != nil {
		s.logger.Printf("checkout: initialize reference=%s buyer_id=%s step=gateway error=%v", attempt.Reference, session.BuyerID, err)
		return nil, err
	}
	if err := s.attempts.SetAuthorizationURL(ctx, attempt.Reference, url); err != nil {
		s.logger.Printf("checkout: initialize reference=%s buyer_id=%s step=store_url error=%v", attempt.Reference, session.BuyerID, err)
		return nil, err
	}
	result.AuthorizationURL = url
	s.logger.Printf("checkout: initialized reference=%s buyer_id=%s amount=%d channel=%s", attempt.Reference, session.BuyerID, attempt.AmountMinor, attempt.Channel)
	return result, nil
}

func (s *Service) resumeAttempt(ctx context.Context, session domain.Session, reference string) (*domain.CheckoutAttempt, error) {
	if reference == "" {
		return nil, nil
	}
	a, err := s.attempts.Get(ctx, reference)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if a.BuyerID != session.BuyerID {
		return nil, domain.ErrNotFound
	}
	if a.Status != domain.AttemptInitialized {
		return nil, fmt.Errorf("%w: reference %s is already %s", domain.ErrInvalidInput, reference, a.Status)
	}
	return a, nil
}

func (s *Service) newAttempt(ctx context.Context, session domain.Session, in InitializeInput, channel domain.PaymentChannel) (*domain.CheckoutAttempt, error) {
	quote, err := s.quotes.Quote(ctx, session, in.PromoCode)
	if err != nil {
		return nil, err
	}
	if len(quote.Lines) == 0 {
		return nil, domain.ErrEmptyCart
	}
	reference := strings.TrimSpace(in.Reference)
	if reference == "" {
		reference = uuid.NewString()
	}
	created, err := s.attempts.Create(ctx, domain.CheckoutAttempt{
		Reference:   reference,
		BuyerID:     session.BuyerID,
		Email:       session.Email,
		Channel:     channel,
		AmountMinor: quote.Total,
		Currency:    quote.Currency,
		Quote:       quote,
		Status:      domain.AttemptInitialized,
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		// a concurrent request with the same reference won the insert
		return s.resumeAttempt(ctx, session, reference)
	}
	return created, err
}

// HandleSessionOutcome reacts to how the buyer left the hosted payment page. Only
// completed proceeds to order creation. Cancelled or dismissed sessions change
// nothing and ask the buyer whether to check the payment again.
func (s *Service) HandleSessionOutcome(ctx context.Context, session domain.Session, reference string, outcome domain.SessionOutcome) (*OutcomeResult, error) {
	if _, err := s.ownedAttempt(ctx, session, reference); err != nil {
		return nil, err
	}
	res := &OutcomeResult{Reference: reference, Outcome: string(outcome)}
	switch outcome {
	case domain.SessionCompleted:
		orders, err := s.Materialize(ctx, session, reference)
		if errors.Is(err, domain.ErrPaymentNotConfirmed) {
			res.NextAction = ActionReverify
			res.Message = "We could not confirm your payment yet. Verify again once it completes."
			return res, nil
		}
		if err != nil {
			return nil, err
		}
		res.Orders = orders
		return res, nil
	case domain.SessionCancelled, domain.SessionDismissed:
		res.NextAction = ActionReverify
		res.Message = "Payment window closed. If you completed payment, verify it to finish your order."
		return res, nil
	default:
		return nil, fmt.Errorf("%w: unknown session outcome %q", domain.ErrInvalidInput, outcome)
	}
}

// Pay runs one full checkout: open a payment session, present it, then act on the outcome.
func (s *Service) Pay(ctx context.Context, session domain.Session, in InitializeInput, hosted gateway.HostedSession) (*OutcomeResult, error) {
	init, err := s.Initialize(ctx, session, in)
	if err != nil {
		return nil, err
	}
	outcome, err := hosted.Open(ctx, init.AuthorizationURL)
	if err != nil {
		s.logger.Printf("checkout: hosted session reference=%s buyer_id=%s error=%v", init.Reference, session.BuyerID, err)
		return &OutcomeResult{Reference: init.Reference, Outcome: string(domain.SessionDismissed), NextAction: ActionReverify}, nil
	}
	return s.HandleSessionOutcome(ctx, session, init.Reference, outcome)
}

// Verify observes the payment state. A success is reported as first confirmation
// only once per attempt.
func (s *Service) Verify(ctx context.Context, session domain.Session, reference string) (VerifyOutcome, error) {
	a, err := s.ownedAttempt(ctx, session, reference)
	if err != nil {
		return VerifyOutcome{}, err
	}
	return s.verifyAttempt(ctx, a)
}

func (s *Service) verifyAttempt(ctx context.Context, a *domain.CheckoutAttempt) (VerifyOutcome, error) {
	out := VerifyOutcome{Reference: a.Reference}
	if a.IsVerified() {
		out.Succeeded = true
		out.Status = "success"
		out.AmountPaid = a.AmountPaidMinor
		return out, nil
	}

	res, err := s.gateway.Verify(ctx, a.Reference)
	if err != nil {
		s.logger.Printf("checkout: verify reference=%s buyer_id=%s step=gateway error=%v", a.Reference, a.BuyerID, err)
		return out, err
	}
	out.Status = res.Status
	out.AmountPaid = res.AmountPaid
	if !res.Succeeded {
		return out, nil
	}
	if res.AmountPaid < a.AmountMinor {
		s.logger.Printf("checkout: verify reference=%s buyer_id=%s paid=%d expected=%d amount mismatch", a.Reference, a.BuyerID, res.AmountPaid, a.AmountMinor)
		detail := fmt.Sprintf("amount paid %d below expected %d", res.AmountPaid, a.AmountMinor)
		if err := s.attempts.FlagReconciliation(ctx, a.Reference, detail, nil); err != nil {
			s.logger.Printf("checkout: flag reconciliation reference=%s error=%v", a.Reference, err)
		}
		out.Status = "amount_mismatch"
		return out, nil
	}

	first, err := s.attempts.MarkVerified(ctx, a.Reference, res.AmountPaid)
	if err != nil {
		s.logger.Printf("checkout: verify reference=%s buyer_id=%s step=record error=%v", a.Reference, a.BuyerID, err)
		return out, err
	}
	out.Succeeded = true
	out.FirstConfirmation = first
	return out, nil
}

// Materialize turns a paid checkout into one order per vendor. It is safe to call
// again: existing vendor orders are reused and the cart is cleared only after all
// of them exist.
func (s *Service) Materialize(ctx context.Context, session domain.Session, reference string) ([]domain.Order, error) {
	a, err := s.ownedAttempt(ctx, session, reference)
	if err != nil {
		return nil, err
	}
	if a.Status == domain.AttemptMaterialized {
		return s.orders.ListByPaymentReference(ctx, reference)
	}

	release, err := s.locker.Acquire(ctx, "materialize:"+reference)
	if errors.Is(err, cache.ErrLockHeld) {
		return nil, domain.ErrCheckoutInProgress
	}
	if err != nil {
		s.logger.Printf("checkout: materialize reference=%s buyer_id=%s step=lock error=%v", reference, a.BuyerID, err)
		return nil, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Printf("checkout: materialize reference=%s step=unlock error=%v", reference, err)
		}
	}()

	// re-read under the lock; another holder may have finished
	a, err = s.attempts.Get(ctx, reference)
	if err != nil {
		return nil, err
	}
	if a.Status == domain.AttemptMaterialized {
		return s.orders.ListByPaymentReference(ctx, reference)
	}

	verified, err := s.verifyAttempt(ctx, a)
	if err != nil {
		return nil, err
	}
	if !verified.Succeeded {
		return nil, fmt.Errorf("%w: reference %s status %s", domain.ErrPaymentNotConfirmed, reference, verified.Status)
	}

	if err := s.attempts.UpdateStatus(ctx, reference, domain.AttemptMaterializing); err != nil {
		return nil, err
	}

	existing, err := s.orders.ListByPaymentReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	byVendor := make(map[string]domain.Order, len(existing))
	for _, o := range existing {
		byVendor[o.VendorID] = o
	}

	groups, planned := planOrders(*a)
	result := make([]domain.Order, 0, len(planned))
	var created []string
	for i, o := range planned {
		if prior, ok := byVendor[o.VendorID]; ok {
			result = append(result, prior)
			created = append(created, prior.ID)
			continue
		}
		order, _, err := s.orders.Create(ctx, o)
		if err != nil {
			pending := make([]string, 0, len(groups)-i)
			for _, g := range groups[i:] {
				if _, ok := byVendor[g.VendorID]; !ok {
					pending = append(pending, g.VendorID)
				}
			}
			s.logger.Printf("checkout: materialize reference=%s buyer_id=%s step=create_order vendor_id=%s error=%v", reference, a.BuyerID, o.VendorID, err)
			detail := fmt.Sprintf("create order for vendor %s: %v", o.VendorID, err)
			if flagErr := s.attempts.FlagReconciliation(ctx, reference, detail, pending); flagErr != nil {
				s.logger.Printf("checkout: materialize reference=%s step=flag_reconciliation error=%v", reference, flagErr)
			}
			return nil, &domain.PartialMaterializationError{
				Reference: reference,
				BuyerID:   a.BuyerID,
				Created:   created,
				Pending:   pending,
				Err:       err,
			}
		}
		result = append(result, *order)
		created = append(created, order.ID)
	}

	if err := s.cart.ClearByBuyer(ctx, a.BuyerID); err != nil {
		// orders exist; the attempt stays materializing so reconcile clears the cart later
		s.logger.Printf("checkout: materialize reference=%s buyer_id=%s step=clear_cart error=%v", reference, a.BuyerID, err)
		return nil, fmt.Errorf("clear cart: %w", err)
	}
	if err := s.attempts.UpdateStatus(ctx, reference, domain.AttemptMaterialized); err != nil {
		s.logger.Printf("checkout: materialize reference=%s step=mark_materialized error=%v", reference, err)
		return nil, err
	}
	s.logger.Printf("checkout: materialized reference=%s buyer_id=%s orders=%d", reference, a.BuyerID, len(result))
	return result, nil
}

// Reconcile re-runs verification and materialization for an attempt on behalf of
// its buyer. Operators use it for attempts left in reconciliation_needed.
func (s *Service) Reconcile(ctx context.Context, reference string) ([]domain.Order, error) {
	a, err := s.attempts.Get(ctx, reference)
	if err != nil {
		return nil, err
	}
	session := domain.Session{BuyerID: a.BuyerID, Email: a.Email}
	orders, err := s.Materialize(ctx, session, reference)
	if err != nil {
		s.logger.Printf("checkout: reconcile reference=%s buyer_id=%s error=%v", reference, a.BuyerID, err)
		return nil, err
	}
	return orders, nil
}

// ReverifyAttempt is the operator form of Verify that skips the buyer check.
func (s *Service) ReverifyAttempt(ctx context.Context, reference string) (VerifyOutcome, error) {
	a, err := s.attempts.Get(ctx, reference)
	if err != nil {
		return VerifyOutcome{}, err
	}
	return s.verifyAttempt(ctx, a)
}

func (s *Service) Attempts(ctx context.Context, status domain.AttemptStatus, limit int) ([]domain.CheckoutAttempt, error) {
	return s.attempts.ListByStatus(ctx, status, limit)
}

func (s *Service) ownedAttempt(ctx context.Context, session domain.Session, reference string) (*domain.CheckoutAttempt, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, fmt.Errorf("%w: reference required", domain.ErrInvalidInput)
	}
	a, err := s.attempts.Get(ctx, reference)
	if err != nil {
		return nil, err
	}
	if a.BuyerID != session.BuyerID {
		return nil, domain.ErrNotFound
	}
	return a, nil
}

// PayLabel renders the checkout button text, e.g. "Pay NGN 22.50 via card".
func PayLabel(amountMinor int64, currency string, channel domain.PaymentChannel) string {
	amount := decimal.New(amountMinor, -2).StringFixed(2)
	return fmt.Sprintf("Pay %s %s via %s", currency, amount, channel.Label())
}
