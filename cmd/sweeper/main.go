package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/draftlane/draftlane-backend/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.Log.Info("starting session sweeper", "interval", a.Cfg.SweepInterval, "env", a.Cfg.Env)
	if err := a.RunSweeper(ctx); err != nil && !errors.Is(err, context.Canceled) {
		a.Log.Error("sweeper exited", "error", err)
		os.Exit(1)
	}
	a.Log.Info("sweeper stopped")
}
