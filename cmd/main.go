package main

import (
	"fmt"
	"os"

	"github.com/draftlane/draftlane-backend/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	a.Log.Info("starting API server", "addr", a.Cfg.HTTPAddr, "env", a.Cfg.Env)
	if err := a.Router.Run(a.Cfg.HTTPAddr); err != nil {
		a.Log.Error("server exited", "error", err)
		os.Exit(1)
	}
}
