package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check daemon status",
	RunE:  runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	health, err := client.Healthcheck(ctx)
	if err != nil {
		return fmt.Errorf("daemon is not reachable: %w", err)
	}
	msg, err := client.Message(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "status:  %s\n", health.Status)
	fmt.Fprintf(out, "uptime:  %s\n", health.Uptime)
	fmt.Fprintf(out, "message: %s\n", msg)
	return nil
}
