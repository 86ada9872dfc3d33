package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Bilal-khan980/semantic-search-assistant/infrastructure/tracking"
)

func watchCmd() *cobra.Command {
	var (
		envFile  string
		pollOnly bool
	)

	cmd := &cobra.Command{
		Use:   "watch <task-id>",
		Short: "Follow an already-submitted task until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(envFile, args[0], pollOnly)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().BoolVar(&pollOnly, "poll-only", false, "Skip the streaming transport and poll from the start")
	return cmd
}

func runWatch(envFile, taskID string, pollOnly bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, _, err := buildClient(ctx, envFile)
	if err != nil {
		return err
	}
	defer client.Close()

	done := make(chan error, 1)
	opts := terminalOptions(done)
	if pollOnly {
		opts = append(opts, tracking.WithPollingOnly())
	}

	if err := client.Tracker.Track(ctx, taskID, progressPrinter(), opts...); err != nil {
		return err
	}
	fmt.Printf("watching task %s\n", taskID)

	return waitForTerminal(ctx, client, done)
}
