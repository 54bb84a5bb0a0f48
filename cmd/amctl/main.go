// Command amctl is the operator CLI for an AiMediaOps orchestrator,
// grounded on the teacher's spf13/cobra + fatih/color CLI conventions
// (cmd/cobra_cli.go). It never touches the dispatcher or license stores
// directly — every subcommand drives the same control-plane HTTP API a
// desktop UI would use.
package main

import (
	"fmt"
	"os"

	"github.com/psdyuan2/AiMediaOps/internal/amctl"
)

func main() {
	if err := amctl.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
