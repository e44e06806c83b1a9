package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/remiges-tech/phonecomplete/sources/bolt"
)

var loadCmd = &cobra.Command{
	Use:   "load [file]",
	Short: "Import order documents into the local bbolt store",
	Long: `Reads a stream of JSON order documents (one object per line) from file, or
stdin when file is "-" or missing, and stores them in the bbolt database
configured under bolt.path.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLoad,
}

var (
	loadDB      string
	loadIDField string
)

func init() {
	loadCmd.Flags().StringVar(&loadDB, "db", "", "override bolt.path")
	loadCmd.Flags().StringVar(&loadIDField, "id-field", "", "override bolt.id_field")
}

func runLoad(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	boltConfig := cfg.BoltConfig()
	boltConfig.ReadOnly = false
	if loadDB != "" {
		boltConfig.Path = loadDB
	}
	if loadIDField != "" {
		boltConfig.IDField = loadIDField
	}

	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	store, err := bolt.New(boltConfig)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	n, err := store.Load(ctx, in)
	if err != nil {
		return fmt.Errorf("loaded %d documents before failing: %w", n, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "loaded %d documents into %s\n", n, boltConfig.Path)
	return nil
}
