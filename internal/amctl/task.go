package amctl

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newTaskCommand(client func() *APIClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage scheduled tasks",
	}

	cmd.AddCommand(newTaskCreateCommand(client))
	cmd.AddCommand(newTaskListCommand(client))
	cmd.AddCommand(newTaskPauseCommand(client))
	cmd.AddCommand(newTaskResumeCommand(client))
	cmd.AddCommand(newTaskReorderCommand(client))
	cmd.AddCommand(newTaskExecuteCommand(client))
	cmd.AddCommand(newTaskRemoveCommand(client))
	return cmd
}

func newTaskCreateCommand(client func() *APIClient) *cobra.Command {
	var accountID, accountName, sysType, taskType, mode string
	var interval, noteCount int

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a scheduled task",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{
				"xhs_account_id":         accountID,
				"xhs_account_name":       accountName,
				"sys_type":               sysType,
				"interaction_note_count": noteCount,
			}
			if taskType != "" {
				body["task_type"] = taskType
			}
			if mode != "" {
				body["mode"] = mode
			}
			if interval > 0 {
				body["interval"] = interval
			}

			var out struct {
				Success bool            `json:"success"`
				Task    json.RawMessage `json:"task"`
			}
			if err := client().post(context.Background(), "/api/v1/tasks", body, &out); err != nil {
				return err
			}
			return printTask(out.Task)
		},
	}
	cmd.Flags().StringVar(&accountID, "account-id", "", "XHS account id (required)")
	cmd.Flags().StringVar(&accountName, "account-name", "", "XHS account display name")
	cmd.Flags().StringVar(&sysType, "sys-type", "", "host OS the sidecar runs on")
	cmd.Flags().StringVar(&taskType, "type", "", "task type (default xhs_content)")
	cmd.Flags().StringVar(&mode, "mode", "", "execution mode (default standard)")
	cmd.Flags().IntVar(&interval, "interval", 0, "cadence in seconds (default 7200)")
	cmd.Flags().IntVar(&noteCount, "note-count", 0, "interaction note count")
	_ = cmd.MarkFlagRequired("account-id")
	return cmd
}

func newTaskListCommand(client func() *APIClient) *cobra.Command {
	var accountID, status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/tasks"
			if accountID != "" || status != "" {
				path += "?account_id=" + accountID + "&status=" + status
			}
			var out struct {
				Success bool              `json:"success"`
				Tasks   []json.RawMessage `json:"tasks"`
			}
			if err := client().get(context.Background(), path, &out); err != nil {
				return err
			}
			for _, t := range out.Tasks {
				if err := printTask(t); err != nil {
					return err
				}
			}
			fmt.Println(gray(fmt.Sprintf("%d task(s)", len(out.Tasks))))
			return nil
		},
	}
	cmd.Flags().StringVar(&accountID, "account-id", "", "filter by account id")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	return cmd
}

func newTaskPauseCommand(client func() *APIClient) *cobra.Command {
	return &cobra.Command{
		Use:   "pause <task-id>",
		Short: "Pause a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				Task json.RawMessage `json:"task"`
			}
			if err := client().post(context.Background(), "/api/v1/tasks/"+args[0]+"/pause", nil, &out); err != nil {
				return err
			}
			return printTask(out.Task)
		},
	}
}

func newTaskResumeCommand(client func() *APIClient) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <task-id>",
		Short: "Resume a paused task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				Task json.RawMessage `json:"task"`
			}
			if err := client().post(context.Background(), "/api/v1/tasks/"+args[0]+"/resume", nil, &out); err != nil {
				return err
			}
			return printTask(out.Task)
		},
	}
}

func newTaskReorderCommand(client func() *APIClient) *cobra.Command {
	var offsetSeconds int

	cmd := &cobra.Command{
		Use:   "reorder <task-id>",
		Short: "Shift a task's next execution time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{"priority_offset": offsetSeconds}
			var out struct {
				Task json.RawMessage `json:"task"`
			}
			if err := client().post(context.Background(), "/api/v1/tasks/"+args[0]+"/reorder", body, &out); err != nil {
				return err
			}
			return printTask(out.Task)
		},
	}
	cmd.Flags().IntVar(&offsetSeconds, "offset", 0, "seconds to shift next_execution_time by (negative moves it earlier)")
	return cmd
}

func newTaskExecuteCommand(client func() *APIClient) *cobra.Command {
	var updateSchedule bool

	cmd := &cobra.Command{
		Use:   "execute <task-id>",
		Short: "Run a task immediately (requires an activated license)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{"update_next_execution_time": updateSchedule}
			var out struct {
				Task json.RawMessage `json:"task"`
			}
			if err := client().post(context.Background(), "/api/v1/tasks/"+args[0]+"/execute", body, &out); err != nil {
				return err
			}
			return printTask(out.Task)
		},
	}
	cmd.Flags().BoolVar(&updateSchedule, "update-schedule", false, "advance the regular cadence instead of restoring it after this run")
	return cmd
}

func newTaskRemoveCommand(client func() *APIClient) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <task-id>",
		Aliases: []string{"remove", "delete"},
		Short:   "Remove a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client().delete(context.Background(), "/api/v1/tasks/"+args[0]); err != nil {
				return err
			}
			fmt.Println(green("removed " + args[0]))
			return nil
		},
	}
}

func printTask(raw json.RawMessage) error {
	var t struct {
		TaskID            string `json:"task_id"`
		AccountID         string `json:"account_id"`
		Status            string `json:"status"`
		Mode              string `json:"mode"`
		IntervalSeconds   int    `json:"interval_seconds"`
		NextExecutionTime *string `json:"next_execution_time"`
		LastError         string `json:"last_error"`
	}
	if err := json.Unmarshal(raw, &t); err != nil {
		return fmt.Errorf("amctl: decode task: %w", err)
	}
	next := "-"
	if t.NextExecutionTime != nil {
		next = *t.NextExecutionTime
	}
	line := fmt.Sprintf("%s  %-12s account=%s mode=%s interval=%ds next=%s",
		t.TaskID, t.Status, t.AccountID, t.Mode, t.IntervalSeconds, next)
	if t.Status == "error" {
		fmt.Println(red(line + " error=" + t.LastError))
	} else {
		fmt.Println(line)
	}
	return nil
}
