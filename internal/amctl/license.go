package amctl

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newLicenseCommand(client func() *APIClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "license",
		Short: "View and activate the orchestrator's license",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show license activation state",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				Activated             bool `json:"activated"`
				Expired               bool `json:"expired"`
				MaxTasks              int  `json:"max_tasks"`
				IntervalLimitSeconds  int  `json:"interval_limit_seconds"`
				CanExecuteImmediately bool `json:"can_execute_immediately"`
			}
			if err := client().get(context.Background(), "/api/v1/license/status", &out); err != nil {
				return err
			}
			state := green("activated")
			if !out.Activated {
				state = yellow("not activated")
			} else if out.Expired {
				state = red("expired")
			}
			fmt.Printf("license: %s\n", state)
			fmt.Printf("  max tasks:              %d\n", out.MaxTasks)
			fmt.Printf("  interval floor:         %ds\n", out.IntervalLimitSeconds)
			fmt.Printf("  immediate execute:      %v\n", out.CanExecuteImmediately)
			return nil
		},
	})

	var productID string
	activate := &cobra.Command{
		Use:   "activate <license-code>",
		Short: "Activate a license code against the remote license service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{"license_code": args[0], "product_id": productID}
			if err := client().post(context.Background(), "/api/v1/license/activate", body, nil); err != nil {
				return err
			}
			fmt.Println(green("license activated"))
			return nil
		},
	}
	activate.Flags().StringVar(&productID, "product-id", "", "product id (default amediaops)")
	cmd.AddCommand(activate)

	return cmd
}
