// phonecomplete serves fuzzy phone number completion over order records.
package main

import (
	"os"

	"github.com/remiges-tech/phonecomplete/cmd/phonecomplete/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
