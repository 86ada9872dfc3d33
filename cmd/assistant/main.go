// Package main is the entry point for the assistant CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	assistant "github.com/Bilal-khan980/semantic-search-assistant"
	"github.com/Bilal-khan980/semantic-search-assistant/internal/config"
	"github.com/Bilal-khan980/semantic-search-assistant/internal/log"
)

// Version information set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assistant",
		Short: "Semantic search assistant client",
		Long:  `Client for a local semantic search backend: submit documents for ingestion, search the index, and follow task progress.`,
	}

	cmd.AddCommand(processCmd())
	cmd.AddCommand(importCmd())
	cmd.AddCommand(searchCmd())
	cmd.AddCommand(statusCmd())
	cmd.AddCommand(watchCmd())
	cmd.AddCommand(relayCmd())
	cmd.AddCommand(historyCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

// loadConfig loads configuration from .env file and environment variables.
func loadConfig(envFile string) (config.AppConfig, error) {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return config.AppConfig{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the CLI logger from config and installs it as default.
func newLogger(cfg config.AppConfig) *log.Logger {
	logger := log.New(log.ParseFormat(string(cfg.LogFormat())), cfg.LogLevel())
	logger.SetDefault()
	return logger
}

// buildClient loads config and constructs the assistant client shared by
// all commands. Extra options are appended after the config-derived ones.
func buildClient(ctx context.Context, envFile string, extra ...assistant.Option) (*assistant.Client, config.AppConfig, error) {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return nil, config.AppConfig{}, err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, config.AppConfig{}, err
	}

	logger := newLogger(cfg)
	opts := append(clientOptions(cfg, logger), extra...)

	client, err := assistant.New(ctx, opts...)
	if err != nil {
		return nil, config.AppConfig{}, err
	}
	return client, cfg, nil
}
