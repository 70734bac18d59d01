package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"taskassign/taskboard/internal/app"
	"taskassign/taskboard/internal/config"
	"taskassign/taskboard/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		observability.NewLogger(observability.LoggerOptions{}).Error("taskboard stopped", "err", err)
		os.Exit(1)
	}
}

// run serves until ctx is cancelled or the server fails.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	return a.Run(ctx)
}
