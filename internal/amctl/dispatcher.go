package amctl

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newDispatcherCommand(client func() *APIClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dispatcher",
		Short: "Control the scheduler loop",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Start the scheduler loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client().post(context.Background(), "/api/v1/dispatcher/start", nil, nil); err != nil {
				return err
			}
			fmt.Println(green("dispatcher started"))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "stop",
		Short: "Stop the scheduler loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client().post(context.Background(), "/api/v1/dispatcher/stop", nil, nil); err != nil {
				return err
			}
			fmt.Println(green("dispatcher stopped"))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show scheduler status and task counts by state",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				Running     bool           `json:"running"`
				Counts      map[string]int `json:"counts"`
				RunningTask map[string]any `json:"running_task"`
			}
			if err := client().get(context.Background(), "/api/v1/dispatcher/status", &out); err != nil {
				return err
			}
			state := red("stopped")
			if out.Running {
				state = green("running")
			}
			fmt.Printf("dispatcher: %s\n", state)
			if id, ok := out.RunningTask["task_id"].(string); ok && id != "" {
				fmt.Printf("  currently executing: %s\n", id)
			}
			for status, n := range out.Counts {
				fmt.Printf("  %-10s %d\n", status, n)
			}
			return nil
		},
	})

	return cmd
}
