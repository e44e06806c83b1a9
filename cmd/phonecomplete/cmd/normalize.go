package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/remiges-tech/phonecomplete/phone"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <number>...",
	Short: "Show the index key of raw phone strings",
	Long:  "Prints the canonical key each raw phone string is indexed under, or \"skip\" for strings the index ignores.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runNormalize,
}

var normalizePrefix string

func init() {
	normalizeCmd.Flags().StringVar(&normalizePrefix, "prefix", "", "override index.domestic_prefix")
}

func runNormalize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	n := phone.Normalizer{DomesticPrefix: cfg.Index.DomesticPrefix}
	if normalizePrefix != "" {
		n.DomesticPrefix = normalizePrefix
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, raw := range args {
		key, ok := n.Normalize(raw)
		if !ok {
			key = "skip"
		}
		fmt.Fprintf(tw, "%s\t%s\n", raw, key)
	}
	return tw.Flush()
}
