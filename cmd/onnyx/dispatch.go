package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Icannotcodelol/onnyx/internal/types"
)

var dispatchCommand = &cobra.Command{
	Use:   "dispatch",
	Short: "Send pending tasks to the active models",
	Long: `Fans every task with status "generated" out to the active models in
parallel, storing one submission per model and rendering an artifact for each
submission whose code passes sanitization. With --task, dispatches only that
task regardless of its status.`,
	RunE: runDispatchCmd,
}

var dispatchTaskID string

func init() {
	dispatchCommand.Flags().StringVar(&dispatchTaskID, "task", "", "Dispatch only this task id")
	rootCmd.AddCommand(dispatchCommand)
}

func runDispatchCmd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	var tasks []types.TaskSpec
	if dispatchTaskID != "" {
		id, err := uuid.Parse(dispatchTaskID)
		if err != nil {
			return fmt.Errorf("--task must be a uuid: %w", err)
		}
		task, err := a.db.TaskByID(ctx, id)
		if err != nil {
			return err
		}
		if task == nil {
			return fmt.Errorf("task not found: %s", id)
		}
		tasks = append(tasks, *task)
	} else {
		tasks, err = a.db.TasksByStatus(ctx, types.TaskStatusGenerated)
		if err != nil {
			return err
		}
	}
	if len(tasks) == 0 {
		fmt.Println("no pending tasks")
		return nil
	}

	blobs, err := a.blobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to blob store: %w", err)
	}
	dispatcher := a.dispatcher(blobs, nil)

	for _, task := range tasks {
		report, err := dispatcher.DispatchTask(ctx, task)
		if err != nil {
			return fmt.Errorf("dispatch %s: %w", task.ID, err)
		}
		fmt.Printf("task %s: %d/%d models succeeded\n",
			task.Slug, report.Succeeded(), len(report.Outcomes))
		for _, outcome := range report.Outcomes {
			switch {
			case outcome.Err != nil:
				fmt.Printf("  %s/%s: %v\n", outcome.Model.ProviderName, outcome.Model.Label, outcome.Err)
			case outcome.RenderErr != nil:
				fmt.Printf("  %s/%s: submission stored, render failed: %v\n",
					outcome.Model.ProviderName, outcome.Model.Label, outcome.RenderErr)
			}
		}
	}
	return nil
}
