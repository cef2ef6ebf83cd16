package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"farmstand/internal/app"
	"farmstand/internal/domain"
	"farmstand/internal/publisher"
	checkoutsvc "farmstand/internal/service/checkout"
	"github.com/spf13/cobra"
)

func attemptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attempts",
		Short: "List checkout attempts by status",
		Long: `List checkout attempts. Defaults to attempts flagged for reconciliation,
where payment was captured but not every vendor order exists yet.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, _ := cmd.Flags().GetString("status")
			limit, _ := cmd.Flags().GetInt("limit")
			asJSON, _ := cmd.Flags().GetBool("json")
			st := domain.AttemptStatus(status)
			if !st.Valid() {
				return fmt.Errorf("unknown status %q", status)
			}
			return withServices(cmd, func(ctx context.Context, s *app.Services) error {
				attempts, err := s.Checkout.Attempts(ctx, st, limit)
				if err != nil {
					return err
				}
				return printAttempts(cmd.OutOrStdout(), attempts, asJSON)
			})
		},
	}

	cmd.Flags().StringP("status", "s", string(domain.AttemptReconciliationNeeded), "Attempt status")
	cmd.Flags().IntP("limit", "n", 50, "Maximum results")
	cmd.Flags().BoolP("json", "j", false, "Output as JSON")

	return cmd
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [reference]",
		Short: "Ask the payment provider for the current state of a reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(ctx context.Context, s *app.Services) error {
				v, err := s.Checkout.ReverifyAttempt(ctx, args[0])
				if err != nil {
					return err
				}
				printVerification(cmd.OutOrStdout(), v)
				return nil
			})
		},
	}
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile [reference]",
		Short: "Re-verify a paid attempt and create any missing vendor orders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(ctx context.Context, s *app.Services) error {
				orders, err := s.Checkout.Reconcile(ctx, args[0])
				if err != nil {
					return err
				}
				printOrders(cmd.OutOrStdout(), args[0], orders)
				return nil
			})
		},
	}
}

func outboxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "outbox-flush",
		Short: "Publish one batch of pending outbox events to the configured sink",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(ctx context.Context, s *app.Services) error {
				sink, err := app.NewSink(s.Config, nil)
				if err != nil {
					return err
				}
				defer sink.Close()
				n := publisher.NewOutboxPoller(s.Outbox, sink, 0, nil).Flush(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "published %d events\n", n)
				return nil
			})
		},
	}
}

func printAttempts(w io.Writer, attempts []domain.CheckoutAttempt, asJSON bool) error {
	if asJSON {
		if attempts == nil {
			attempts = []domain.CheckoutAttempt{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(attempts)
	}
	if len(attempts) == 0 {
		fmt.Fprintln(w, "no attempts")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REFERENCE\tBUYER\tSTATUS\tAMOUNT\tPAID\tUPDATED\tDETAIL")
	for _, a := range attempts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			a.Reference, a.BuyerID, a.Status, a.AmountMinor, a.AmountPaidMinor,
			a.UpdatedAt.UTC().Format("2006-01-02 15:04"), a.FailureDetail)
	}
	return tw.Flush()
}

func printVerification(w io.Writer, v checkoutsvc.VerifyOutcome) {
	fmt.Fprintf(w, "reference=%s status=%s succeeded=%t amount_paid=%d\n", v.Reference, v.Status, v.Succeeded, v.AmountPaid)
}

func printOrders(w io.Writer, reference string, orders []domain.Order) {
	fmt.Fprintf(w, "reference=%s orders=%d\n", reference, len(orders))
	for _, o := range orders {
		fmt.Fprintf(w, "  %s vendor=%s total=%d status=%s\n", o.ID, o.VendorName, o.TotalMinor, o.Status)
	}
}
