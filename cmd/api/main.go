package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"farmstand/internal/app"
	"farmstand/internal/config"
	"farmstand/internal/db"
	"farmstand/internal/httpserver"
	"farmstand/internal/migrate"
	"farmstand/internal/publisher"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	if err := migrate.Apply(ctx, dbpool); err != nil {
		logger.Fatalf("apply migrations: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Fatalf("connect to redis: %v", err)
	}
	pingCancel()

	services, err := app.Build(cfg, dbpool, rdb, logger)
	if err != nil {
		logger.Fatalf("build services: %v", err)
	}

	sink, err := app.NewSink(cfg, logger)
	if err != nil {
		logger.Fatalf("init event sink: %v", err)
	}
	defer sink.Close()

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	poller := publisher.NewOutboxPoller(services.Outbox, sink, cfg.OutboxInterval, logger)
	go poller.Run(workerCtx)
	go sweepTokens(workerCtx, services, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Sessions:    services.Sessions,
		CartSvc:     services.Cart,
		CheckoutSvc: services.Checkout,
		OrderSvc:    services.Orders,
		CancelSvc:   services.Cancellation,
		Wallets:     services.Buyers,
		OpsKey:      cfg.OpsKey,
		CORSOrigins: cfg.CORSOrigins,
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
	stopWorkers()
}

// sweepTokens drops expired session tokens once an hour.
func sweepTokens(ctx context.Context, services *app.Services, logger *log.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n, err := services.Tokens.DeleteExpired(ctx, time.Now())
			if err != nil {
				logger.Printf("token sweep error=%v", err)
				continue
			}
			if n > 0 {
				logger.Printf("token sweep removed=%d", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
