package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/openhusky/huskyd/internal/client"
	"github.com/openhusky/huskyd/internal/models"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage scheduled tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Schedule a new task",
	RunE:  runTaskAdd,
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE:  runTaskList,
}

var taskCancelCmd = &cobra.Command{
	Use:   "cancel [task-id]",
	Short: "Cancel a pending task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskCancel,
}

var (
	taskTrigger string
	taskTime    string
	taskExpires string
	taskHandler string
)

func init() {
	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskCancelCmd)

	taskAddCmd.Flags().StringVar(&taskTrigger, "trigger", "", "Label that fires the task (exact, case-sensitive)")
	taskAddCmd.Flags().StringVar(&taskTime, "time", "", "Fire time, RFC3339 or 'now'")
	taskAddCmd.Flags().StringVar(&taskExpires, "expires", "", "Optional expiry, RFC3339")
	taskAddCmd.Flags().StringVar(&taskHandler, "handler", "take_photo", "Action to run when the task fires")
}

// dialGateway connects to the configured gateway endpoint.
func dialGateway(ctx context.Context) (*client.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	endpoint := cfg.ServerURL
	if serverURL != "" {
		endpoint = serverURL
	}
	return client.Connect(ctx, endpoint)
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	if taskTrigger == "" && taskTime == "" {
		return fmt.Errorf("a task needs --trigger and/or --time")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c, err := dialGateway(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	results, err := c.CreateTasks(ctx, []models.TaskSpec{{
		Trigger:   taskTrigger,
		Time:      taskTime,
		ExpiresAt: taskExpires,
		Handler:   taskHandler,
	}})
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return fmt.Errorf("gateway returned no result")
	}
	if !results[0].Accepted {
		return fmt.Errorf("task rejected: %s", results[0].Error)
	}

	fmt.Printf("Created task: %s\n", results[0].ID)
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c, err := dialGateway(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	tasks, err := c.ListTasks(ctx)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTRIGGER\tTIME\tHANDLER\tSTATUS\tFIRED AT")
	for _, t := range tasks {
		firedAt := ""
		if t.FiredAt != nil {
			firedAt = t.FiredAt.Local().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(t.ID), t.Trigger, t.Time, t.Handler, t.Status, firedAt)
	}
	w.Flush()
	return nil
}

func runTaskCancel(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c, err := dialGateway(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.CancelTask(ctx, args[0]); err != nil {
		return err
	}
	fmt.Println("Task cancelled")
	return nil
}

func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
