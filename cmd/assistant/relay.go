package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	assistant "github.com/Bilal-khan980/semantic-search-assistant"
	"github.com/Bilal-khan980/semantic-search-assistant/domain/task"
	"github.com/Bilal-khan980/semantic-search-assistant/internal/config"
)

func relayCmd() *cobra.Command {
	var (
		envFile string
		host    string
		port    int
		origins string
	)

	cmd := &cobra.Command{
		Use:   "relay [task-id]...",
		Short: "Serve tracked task progress to local UIs over SSE",
		Long: `Start the local progress relay server. Task IDs given as arguments are
tracked immediately; their progress is re-broadcast on /events.

Environment variables:
  RELAY_HOST     Host to bind to (default: 127.0.0.1)
  RELAY_PORT     Port to listen on (default: 8765)
  RELAY_ORIGINS  Comma-separated allowed CORS origins`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelay(envFile, host, port, origins, args)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().StringVar(&host, "host", "", "Host to bind to (default: 127.0.0.1)")
	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (default: 8765)")
	cmd.Flags().StringVar(&origins, "origins", "", "Comma-separated allowed CORS origins")
	return cmd
}

func runRelay(envFile, host string, port int, origins string, taskIDs []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return err
	}
	logger := newLogger(cfg)

	// Flags take precedence over env vars.
	relayCfg := cfg.Relay().WithHost(host).WithPort(port)
	if origins != "" {
		relayCfg = relayCfg.WithOrigins(config.ParseOrigins(origins))
	}

	opts := append(clientOptions(cfg, logger), assistant.WithRelay(relayCfg))
	client, err := assistant.New(ctx, opts...)
	if err != nil {
		return err
	}
	defer client.Close()

	for _, id := range taskIDs {
		if err := client.Tracker.Track(ctx, id, func(task.ProgressEvent) {}); err != nil {
			return err
		}
		logger.Info("tracking task", "task_id", id)
	}

	fmt.Printf("relay listening on %s\n", client.Relay.Addr())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(client.Relay.Start)
	g.Go(func() error {
		<-gctx.Done()
		client.Tracker.StopAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return client.Relay.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
