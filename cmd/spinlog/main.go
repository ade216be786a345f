// Command spinlog records and inspects the spin wheel debug event log.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/spinlog/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
