package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func processCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "process <path>",
		Short: "Submit a document for ingestion and follow its progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(envFile, args[0])
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	return cmd
}

func runProcess(envFile, path string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, _, err := buildClient(ctx, envFile)
	if err != nil {
		return err
	}
	defer client.Close()

	done := make(chan error, 1)
	taskID, err := client.ProcessDocument(ctx, path, progressPrinter(), terminalOptions(done)...)
	if err != nil {
		return err
	}
	fmt.Printf("processing %s (task %s)\n", path, taskID)

	return waitForTerminal(ctx, client, done)
}
