package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "status <task-id>",
		Short: "Fetch the current status of a task once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(envFile, args[0])
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	return cmd
}

func runStatus(envFile, taskID string) error {
	ctx := context.Background()

	client, _, err := buildClient(ctx, envFile)
	if err != nil {
		return err
	}
	defer client.Close()

	ev, err := client.Backend.TaskStatus(ctx, taskID)
	if err != nil {
		return err
	}

	fmt.Printf("task:       %s\n", taskID)
	fmt.Printf("status:     %s\n", ev.Status)
	fmt.Printf("percentage: %.1f\n", ev.Percentage)
	if ev.Stage != "" {
		fmt.Printf("stage:      %s\n", ev.Stage)
	}
	if ev.Message != "" {
		fmt.Printf("message:    %s\n", ev.Message)
	}
	if ev.Total > 0 {
		fmt.Printf("progress:   %d/%d\n", ev.Current, ev.Total)
	}
	return nil
}
