// Command golem is a narrative coding tutorial for the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/golem/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
