package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"farmstand/internal/app"
	"farmstand/internal/config"
	"farmstand/internal/db"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "checkoutctl",
		Short: "Operator tooling for checkout attempts and the event outbox",
	}
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log repository and gateway calls to stderr")

	rootCmd.AddCommand(attemptsCmd())
	rootCmd.AddCommand(verifyCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(outboxCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withServices connects to Postgres and Redis, builds the services and runs fn.
func withServices(cmd *cobra.Command, fn func(ctx context.Context, s *app.Services) error) error {
	cfg := config.Load()
	logger := log.New(os.Stderr, "[checkoutctl] ", log.LstdFlags|log.LUTC)
	if verbose, _ := cmd.Flags().GetBool("verbose"); !verbose {
		logger.SetOutput(io.Discard)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	services, err := app.Build(cfg, pool, rdb, logger)
	if err != nil {
		return err
	}
	return fn(ctx, services)
}
