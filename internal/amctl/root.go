package amctl

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

// NewRootCommand builds the amctl command tree. Every subcommand talks to
// the control-plane API at --server; none of them touch the dispatcher or
// license stores directly.
func NewRootCommand() *cobra.Command {
	var serverAddr string

	root := &cobra.Command{
		Use:   "amctl",
		Short: "Operate an AiMediaOps orchestrator over its control-plane API",
	}
	root.PersistentFlags().StringVar(&serverAddr, "server", "http://127.0.0.1:8787", "orchestrator-server base URL")

	client := func() *APIClient {
		return NewAPIClient(serverAddr)
	}

	root.AddCommand(newTaskCommand(client))
	root.AddCommand(newLicenseCommand(client))
	root.AddCommand(newDispatcherCommand(client))
	return root
}
