package main

import (
	"context"
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

	w, err := a.NewJobWorker()
	if err != nil {
		a.Log.Error("worker init failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.Log.Info("starting fulfillment worker",
		"concurrency", a.Cfg.Worker.Concurrency, "env", a.Cfg.Env)
	if err := w.Run(ctx); err != nil {
		a.Log.Error("worker exited", "error", err)
		os.Exit(1)
	}
	a.Log.Info("worker stopped")
}
