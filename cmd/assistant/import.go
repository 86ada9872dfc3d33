package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func importCmd() *cobra.Command {
	var (
		envFile string
		source  string
	)

	cmd := &cobra.Command{
		Use:   "import <path>...",
		Short: "Import a batch of documents and follow the task progress",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(envFile, source, args)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().StringVar(&source, "source", "", "Source label for the imported documents (e.g. calibre)")
	return cmd
}

func runImport(envFile, source string, paths []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, _, err := buildClient(ctx, envFile)
	if err != nil {
		return err
	}
	defer client.Close()

	done := make(chan error, 1)
	taskID, err := client.ImportDocuments(ctx, paths, source, progressPrinter(), terminalOptions(done)...)
	if err != nil {
		return err
	}
	fmt.Printf("importing %d path(s) (task %s)\n", len(paths), taskID)

	return waitForTerminal(ctx, client, done)
}
