package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the daemon's index from a fresh scan",
	Long:  "Starts a rebuild in the daemon. The previous index keeps serving until the new one is published.",
	RunE:  runRebuild,
}

func runRebuild(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	id, err := client.Rebuild(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "rebuild started: %s\n", id)
	return nil
}
