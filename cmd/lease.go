package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var leaseCmd = &cobra.Command{
	Use:   "lease",
	Short: "Lease management commands",
}

var terminateLeaseCmd = &cobra.Command{
	Use:   "terminate [lease-id]",
	Short: "Terminate an active lease and free its unit",
	Args:  cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(func(ctx context.Context, deps *Dependencies) error {
			if err := deps.Services.Lease.Terminate(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("lease %s terminated\n", args[0])
			return nil
		})
	},
}

func init() {
	leaseCmd.AddCommand(terminateLeaseCmd)
}
