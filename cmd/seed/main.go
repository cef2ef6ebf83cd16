package main

import (
	"context"
	"log"
	"os"

	"farmstand/internal/config"
	"farmstand/internal/db"
	"farmstand/internal/seed"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "[seed] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	res, err := seed.Apply(ctx, pool, cfg.Currency, cfg.SessionTTL, logger)
	if err != nil {
		logger.Fatalf("seed apply: %v", err)
	}

	logger.Printf("seed applied products=%d buyer=%s", res.Products, res.Email)
	logger.Printf("session token (expires %s): %s", res.ExpiresAt.Format("2006-01-02"), res.Token)
}
