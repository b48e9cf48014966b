// Command voxi is the entry point for the Voxi customer service assistant.
// It provides a CLI interface (via Cobra) and an optional HTTP server that
// exposes the assistant over a REST/SSE API.
package main

import (
	"fmt"
	"os"

	"github.com/voxidesk/voxi-go/cmd/voxi/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
