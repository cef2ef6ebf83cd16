package httpserver

import (
	"context"
	"errors"
	"io"
	"log"

	"farmstand/internal/domain"
	cancelsvc "farmstand/internal/service/cancellation"
	checkoutsvc "farmstand/internal/service/checkout"
	ordersvc "farmstand/internal/service/order"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

type cartService interface {
	Lines(ctx context.Context, session domain.Session) ([]domain.PricedLine, error)
	Quote(ctx context.Context, session domain.Session, promoCode string) (domain.CheckoutQuote, error)
	ChangeLineQuantity(ctx context.Context, session domain.Session, lineID string, quantity int) error
	RemoveLine(ctx context.Context, session domain.Session, lineID string) error
}

type checkoutService interface {
	Initialize(ctx context.Context, session domain.Session, in checkoutsvc.InitializeInput) (*checkoutsvc.InitializeResult, error)
	HandleSessionOutcome(ctx context.Context, session domain.Session, reference string, outcome domain.SessionOutcome) (*checkoutsvc.OutcomeResult, error)
	Verify(ctx context.Context, session domain.Session, reference string) (checkoutsvc.VerifyOutcome, error)
	Materialize(ctx context.Context, session domain.Session, reference string) ([]domain.Order, error)
	Attempts(ctx context.Context, status domain.AttemptStatus, limit int) ([]domain.CheckoutAttempt, error)
}

type orderService interface {
	List(ctx context.Context, session domain.Session) ([]ordersvc.View, error)
	Get(ctx context.Context, session domain.Session, id string) (*ordersvc.View, error)
	Advance(ctx context.Context, id string, to domain.OrderStatus) (*domain.Order, error)
}

type cancellationService interface {
	Prepare(ctx context.Context, session domain.Session, orderID string) (*cancelsvc.Ticket, error)
	RequestCancellation(ctx context.Context, session domain.Session, req cancelsvc.Request) (*cancelsvc.Outcome, error)
}

type walletReader interface {
	WalletBalance(ctx context.Context, buyerID string) (int64, error)
}

type sessionResolver interface {
	LookupByToken(ctx context.Context, token string) (domain.Session, error)
}

// Deps groups the services the router dispatches to.
type Deps struct {
	Sessions    sessionResolver
	CartSvc     cartService
	CheckoutSvc checkoutService
	OrderSvc    orderService
	CancelSvc   cancellationService
	Wallets     walletReader
	OpsKey      string
	CORSOrigins []string
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	if deps.Sessions == nil || deps.CartSvc == nil || deps.CheckoutSvc == nil || deps.OrderSvc == nil || deps.CancelSvc == nil {
		return nil, errors.New("httpserver: missing service dependency")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	router.Use(cors.New(corsConfig(deps.CORSOrigins)))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	h := &handlers{deps: deps, logger: logger}

	me := router.Group("/me", sessionMiddleware(deps.Sessions))
	me.GET("/cart", h.getCart)
	me.PATCH("/cart/lines/:lineId", h.changeCartLine)
	me.DELETE("/cart/lines/:lineId", h.removeCartLine)
	me.POST("/cart/quote", h.quote)

	me.POST("/checkout", h.initializeCheckout)
	me.POST("/checkout/:reference/outcome", h.sessionOutcome)
	me.POST("/checkout/:reference/verify", h.verifyCheckout)

	me.GET("/orders", h.listOrders)
	me.GET("/orders/:id", h.getOrder)
	me.POST("/orders/:id/cancellation", h.prepareCancellation)
	me.POST("/orders/:id/cancel", h.cancelOrder)
	if deps.Wallets != nil {
		me.GET("/wallet", h.getWallet)
	}

	ops := router.Group("/ops", opsKeyMiddleware(deps.OpsKey))
	ops.POST("/orders/:id/status", h.advanceOrder)
	ops.GET("/checkout-attempts", h.listAttempts)

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", opsKeyHeader)
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

type handlers struct {
	deps   Deps
	logger *log.Logger
}
