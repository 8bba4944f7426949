// Command mirror is a local mirror of remote entity records.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/mirror/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
