package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	assistant "github.com/Bilal-khan980/semantic-search-assistant"
	"github.com/Bilal-khan980/semantic-search-assistant/internal/database"
)

func historyCmd() *cobra.Command {
	var (
		envFile string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "history [task-id]",
		Short: "Show recent tasks, or the full event log of one task",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID := ""
			if len(args) == 1 {
				taskID = args[0]
			}
			return runHistory(envFile, taskID, limit)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of tasks to list")
	return cmd
}

func runHistory(envFile, taskID string, limit int) error {
	ctx := context.Background()

	client, _, err := buildClient(ctx, envFile)
	if err != nil {
		return err
	}
	defer client.Close()

	if client.Journal == nil {
		return errors.New("no journal database configured")
	}

	if taskID != "" {
		return printTaskEvents(ctx, client, taskID)
	}

	records, err := client.Journal.History(ctx, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no tasks recorded")
		return nil
	}

	for _, record := range records {
		fmt.Printf("%s  %-20s %-10s %5.1f%%  %s\n",
			record.UpdatedAt.Format("2006-01-02 15:04:05"),
			record.ID, record.Status, record.Percentage, record.Target)
	}
	return nil
}

func printTaskEvents(ctx context.Context, client *assistant.Client, taskID string) error {
	record, err := client.Journal.Record(ctx, taskID)
	if errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("task %s not found in journal", taskID)
	}
	if err != nil {
		return err
	}

	fmt.Printf("task %s (%s) %s\n", record.ID, record.Operation, record.Status)
	events, err := client.Journal.Events(ctx, taskID)
	if err != nil {
		return err
	}
	for _, event := range events {
		fmt.Printf("%s  %-10s %5.1f%%  %s %s\n",
			event.CreatedAt.Format("15:04:05"),
			event.Status, event.Percentage, event.Stage, event.Message)
	}
	return nil
}
