package main

import (
	"context"
	"errors"
	"fmt"

	assistant "github.com/Bilal-khan980/semantic-search-assistant"
	"github.com/Bilal-khan980/semantic-search-assistant/domain/task"
	"github.com/Bilal-khan980/semantic-search-assistant/infrastructure/tracking"
)

// progressPrinter writes each progress event to stdout.
func progressPrinter() tracking.ProgressFunc {
	return func(ev task.ProgressEvent) {
		switch {
		case ev.Message != "":
			fmt.Printf("%5.1f%%  %s\n", ev.Percentage, ev.Message)
		case ev.Stage != "":
			fmt.Printf("%5.1f%%  [%s]\n", ev.Percentage, ev.Stage)
		default:
			fmt.Printf("%5.1f%%\n", ev.Percentage)
		}
	}
}

// terminalOptions returns track options that resolve done when the task
// reaches a terminal state.
func terminalOptions(done chan error) []tracking.TrackOption {
	return []tracking.TrackOption{
		tracking.WithOnComplete(func(ev task.ProgressEvent) {
			fmt.Println("completed")
			done <- nil
		}),
		tracking.WithOnError(func(ev task.ProgressEvent) {
			done <- errors.New(ev.Message)
		}),
	}
}

// waitForTerminal blocks until the task finishes or the context is
// cancelled by a signal, in which case tracking is stopped cleanly.
func waitForTerminal(ctx context.Context, client *assistant.Client, done chan error) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		client.Tracker.StopAll()
		fmt.Println("interrupted, tracking stopped")
		return nil
	}
}
