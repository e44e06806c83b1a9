package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/remiges-tech/phonecomplete"
)

var completeCmd = &cobra.Command{
	Use:   "complete <partial number>",
	Short: "Complete a partially typed phone number",
	Long: `Asks the running daemon for completions of a partially typed or loosely
formatted phone number. With --local the index is built in-process from the
configured source instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runComplete,
}

var (
	completeField string
	completeLocal bool
	completeJSON  bool
)

func init() {
	completeCmd.Flags().StringVar(&completeField, "field", "daytime_phone", "record field to complete (accepted for compatibility)")
	completeCmd.Flags().BoolVar(&completeLocal, "local", false, "build the index in-process instead of asking the daemon")
	completeCmd.Flags().BoolVar(&completeJSON, "json", false, "print matches as JSON")
}

func runComplete(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var matches []phonecomplete.Match
	var err error
	if completeLocal {
		matches, err = completeInProcess(ctx, query)
	} else {
		matches, err = completeRemote(ctx, query)
	}
	if err != nil {
		return err
	}
	return printMatches(cmd.OutOrStdout(), matches, completeJSON)
}

func completeRemote(ctx context.Context, query string) ([]phonecomplete.Match, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	result, err := client.Complete(ctx, completeField, query)
	if err != nil {
		return nil, err
	}
	return result.Matches, nil
}

func completeInProcess(ctx context.Context, query string) ([]phonecomplete.Match, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	pc, err := phonecomplete.New(cfg.Source, phonecomplete.NewConfigWithOptions(cfg.SourceConfig(), cfg.Options(log)))
	if err != nil {
		return nil, err
	}
	defer pc.Close()

	if err := pc.Initialize(ctx).Wait(ctx); err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	return pc.Search(ctx, query)
}
