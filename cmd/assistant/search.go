package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func searchCmd() *cobra.Command {
	var (
		envFile string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a semantic search against the indexed documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(envFile, args[0], limit)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of results")
	return cmd
}

func runSearch(envFile, query string, limit int) error {
	ctx := context.Background()

	client, _, err := buildClient(ctx, envFile)
	if err != nil {
		return err
	}
	defer client.Close()

	resp, err := client.Search(ctx, query, limit)
	if err != nil {
		return err
	}

	if len(resp.Results) == 0 {
		fmt.Println("no results")
		return nil
	}

	for i, result := range resp.Results {
		fmt.Printf("%2d. [%.3f] %s", i+1, result.Score, result.Path)
		if result.Page > 0 {
			fmt.Printf(" (page %d)", result.Page)
		}
		fmt.Println()
		if result.Content != "" {
			fmt.Printf("    %s\n", result.Content)
		}
	}
	fmt.Printf("%d result(s) of %d total\n", len(resp.Results), resp.Total)
	return nil
}
