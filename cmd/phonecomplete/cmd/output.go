package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/remiges-tech/phonecomplete"
)

// printMatches writes matches as aligned "key  record" rows, or as a JSON
// array when asJSON is set.
func printMatches(w io.Writer, matches []phonecomplete.Match, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if matches == nil {
			matches = []phonecomplete.Match{}
		}
		return enc.Encode(matches)
	}

	if len(matches) == 0 {
		_, err := fmt.Fprintln(w, "no matches")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, m := range matches {
		fmt.Fprintf(tw, "%s\t%s\n", m.Key, m.RecordID)
	}
	return tw.Flush()
}
