// Package app assembles repositories, gateway and services from Config.
package app

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"farmstand/internal/cache"
	"farmstand/internal/config"
	"farmstand/internal/gateway"
	"farmstand/internal/publisher"
	attemptrepo "farmstand/internal/repository/attempt"
	buyerrepo "farmstand/internal/repository/buyer"
	cartrepo "farmstand/internal/repository/cart"
	orderrepo "farmstand/internal/repository/order"
	outboxrepo "farmstand/internal/repository/outbox"
	productrepo "farmstand/internal/repository/product"
	refundrepo "farmstand/internal/repository/refund"
	tokenrepo "farmstand/internal/repository/token"
	"farmstand/internal/retry"
	cancelsvc "farmstand/internal/service/cancellation"
	cartsvc "farmstand/internal/service/cart"
	checkoutsvc "farmstand/internal/service/checkout"
	ordersvc "farmstand/internal/service/order"
	sessionsvc "farmstand/internal/service/session"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Services is everything the HTTP server and operator CLI dispatch to.
type Services struct {
	Config       config.Config
	Sessions     *sessionsvc.Service
	Cart         *cartsvc.Service
	Checkout     *checkoutsvc.Service
	Orders       *ordersvc.Service
	Cancellation *cancelsvc.Service
	Outbox       outboxrepo.Repository
	Tokens       tokenrepo.Repository
	Buyers       buyerrepo.Repository
}

func Build(cfg config.Config, pool *pgxpool.Pool, rdb *redis.Client, logger *log.Logger) (*Services, error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}

	productRepo := productrepo.NewPostgres(pool, logger)
	cartRepo := cartrepo.NewPostgres(pool, logger)
	buyerRepo := buyerrepo.NewPostgres(pool, logger)
	tokenRepo := tokenrepo.NewPostgres(pool)
	attemptRepo := attemptrepo.NewPostgres(pool, logger)
	orderRepo := orderrepo.NewPostgres(pool, logger)
	refundRepo := refundrepo.NewPostgres(pool, logger)

	cartService := cartsvc.New(cartRepo, productRepo, Pricing(cfg), logger)
	adapter := gateway.NewAdapter(provider, gateway.Options{
		Policy:      RetryPolicy(cfg),
		CallbackURL: cfg.GatewayCallbackURL,
		Logger:      logger,
	})

	return &Services{
		Config:   cfg,
		Sessions: sessionsvc.New(tokenRepo, buyerRepo, cfg.SessionTTL),
		Cart:     cartService,
		Checkout: checkoutsvc.New(checkoutsvc.Deps{
			Quotes:   cartService,
			Attempts: attemptRepo,
			Gateway:  adapter,
			Orders:   orderRepo,
			Cart:     cartRepo,
			Locker:   cache.NewLocker(rdb, cfg.MaterializeLock),
			Logger:   logger,
		}),
		Orders:       ordersvc.New(orderRepo, logger),
		Cancellation: cancelsvc.New(orderRepo, refundRepo, cache.NewTicketStore(rdb, cfg.CancelTicketTTL), logger),
		Outbox:       outboxrepo.NewPostgres(pool, logger),
		Tokens:       tokenRepo,
		Buyers:       buyerRepo,
	}, nil
}

func Pricing(cfg config.Config) cartsvc.Pricing {
	return cartsvc.Pricing{
		Currency:    cfg.Currency,
		DeliveryFee: cfg.DeliveryFeeMinor,
		ServiceFee:  cfg.ServiceFeeMinor,
		Promos:      cfg.PromoCodes,
	}
}

func RetryPolicy(cfg config.Config) retry.Policy {
	p := retry.DefaultPolicy()
	if cfg.RetryAttempts > 0 {
		p.Attempts = cfg.RetryAttempts
	}
	if cfg.RetryBaseDelay > 0 {
		p.BaseDelay = cfg.RetryBaseDelay
	}
	if cfg.RetryMaxDelay > 0 {
		p.MaxDelay = cfg.RetryMaxDelay
	}
	if cfg.CallTimeout > 0 {
		p.Timeout = cfg.CallTimeout
	}
	return p
}

// NewProvider picks the payment provider. The mock approves every payment on verify.
func NewProvider(cfg config.Config) (gateway.Provider, error) {
	switch strings.ToLower(cfg.GatewayProvider) {
	case "", "mock":
		return gateway.NewMockProvider(true), nil
	case "paystack":
		if cfg.GatewaySecretKey == "" {
			return nil, fmt.Errorf("GATEWAY_SECRET_KEY is required for paystack")
		}
		return gateway.NewPaystackClient(cfg.GatewayBaseURL, cfg.GatewaySecretKey, &http.Client{}), nil
	default:
		return nil, fmt.Errorf("unknown gateway provider %q", cfg.GatewayProvider)
	}
}

// NewSink picks where outbox events go: kafka, amqp or the log.
func NewSink(cfg config.Config, logger *log.Logger) (publisher.Sink, error) {
	switch strings.ToLower(cfg.EventSink) {
	case "", "log":
		return publisher.NewLogSink(logger), nil
	case "kafka":
		return publisher.NewKafkaSink(cfg.KafkaTopic, cfg.KafkaBrokers...), nil
	case "amqp", "rabbitmq":
		return publisher.NewAMQPSink(cfg.AMQPURL, cfg.AMQPExchange)
	default:
		return nil, fmt.Errorf("unknown event sink %q", cfg.EventSink)
	}
}
