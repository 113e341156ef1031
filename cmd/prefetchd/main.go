// Command prefetchd runs the adaptive prefetch daemon and its management CLI.
package main

import (
	"fmt"
	"os"

	"github.com/mstellato/prefetchd/cmd/prefetchd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
