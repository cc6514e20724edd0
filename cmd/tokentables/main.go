// Command tokentables runs and inspects session and transition token tables.
//
// Usage:
//
//	tokentables [global flags] serve
//	tokentables token --prefix user+ -n 5
//	tokentables -c /etc/tokentables.yaml store stats
//
// See internal/cli/command for the full command set.
package main

import (
	"fmt"
	"os"

	"github.com/yndnr/tokentables/internal/cli/command"
)

func main() {
	if err := command.App().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(command.ExitCode(err))
	}
}
