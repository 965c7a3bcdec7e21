package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/rental-management/internal/payment"
	paymentpg "github.com/frahmantamala/rental-management/internal/payment/postgres"
)

var paymentsCmd = &cobra.Command{
	Use:   "payments",
	Short: "Operator tools for payment attempts",
	Long:  `Inspect stale attempts, settle payments by hand and read the callback audit trail.`,
}

var staleCmd = &cobra.Command{
	Use:   "stale",
	Short: "List PENDING payments older than a threshold",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(func(ctx context.Context, deps *Dependencies) error {
			stale, err := deps.Services.Payment.ListStale(ctx, staleOlderThan)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTENANT\tAMOUNT\tCHECKOUT REQUEST\tCREATED")
			for _, p := range stale {
				checkout := "-"
				if p.CheckoutRequestID != nil {
					checkout = *p.CheckoutRequestID
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.TenantID, p.Amount.StringFixed(2), checkout, p.CreatedAt.Format(time.RFC3339))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Printf("%d stale payment(s) older than %s\n", len(stale), staleOlderThan)
			return nil
		})
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile [payment-id]",
	Short: "Settle a PENDING payment by hand",
	Args:  cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(func(ctx context.Context, deps *Dependencies) error {
			req := payment.ManualReconcileRequest{Status: reconcileStatus}
			if reconcileReceipt != "" {
				req.ReceiptNumber = &reconcileReceipt
			}
			if reconcileNotes != "" {
				req.Notes = &reconcileNotes
			}

			updated, err := deps.Services.Payment.ReconcileManually(ctx, args[0], reconcileOperator, req)
			if err != nil {
				return err
			}
			fmt.Printf("payment %s is now %s\n", updated.ID, updated.Status)
			return nil
		})
	},
}

var callbacksCmd = &cobra.Command{
	Use:   "callbacks [checkout-request-id]",
	Short: "Show every callback delivery for one push attempt",
	Args:  cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(func(ctx context.Context, deps *Dependencies) error {
			entries, err := paymentpg.NewCallbackLogRepository(deps.Gorm, deps.Config.Database.QueryTimeout).
				ListByCheckoutRequestID(ctx, args[0])
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RECEIVED\tRESULT CODE\tOUTCOME\tPAYLOAD")
			for _, e := range entries {
				code := "-"
				if e.ResultCode != nil {
					code = fmt.Sprint(*e.ResultCode)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ReceivedAt.Format(time.RFC3339), code, e.Outcome, string(e.Payload))
			}
			return tw.Flush()
		})
	},
}

var (
	staleOlderThan    time.Duration
	reconcileStatus   string
	reconcileOperator string
	reconcileReceipt  string
	reconcileNotes    string
)

// withServices runs fn against fully wired services, then waits for the event
// handlers it triggered so notifications are not lost on exit.
func withServices(fn func(ctx context.Context, deps *Dependencies) error) error {
	deps, err := initializeDependencies()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.DB.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	runErr := fn(ctx, deps)

	if err := deps.Services.Events.Wait(ctx); err != nil {
		deps.Logger.Warn("event handlers still running at exit", "error", err)
	}
	return runErr
}

func init() {
	staleCmd.Flags().DurationVar(&staleOlderThan, "older-than", 15*time.Minute, "Minimum age of a PENDING payment")

	reconcileCmd.Flags().StringVar(&reconcileStatus, "status", "", "Terminal status: COMPLETED or FAILED")
	reconcileCmd.Flags().StringVar(&reconcileOperator, "operator", "", "User id of the operator settling the payment")
	reconcileCmd.Flags().StringVar(&reconcileReceipt, "receipt", "", "M-Pesa receipt number (required for COMPLETED)")
	reconcileCmd.Flags().StringVar(&reconcileNotes, "notes", "", "Free-form notes")
	_ = reconcileCmd.MarkFlagRequired("status")
	_ = reconcileCmd.MarkFlagRequired("operator")

	paymentsCmd.AddCommand(staleCmd)
	paymentsCmd.AddCommand(reconcileCmd)
	paymentsCmd.AddCommand(callbacksCmd)
}
