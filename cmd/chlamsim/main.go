// Command chlamsim simulates the Chlamydia developmental cycle and inspects
// stored runs.
package main

import (
	"fmt"
	"os"

	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
