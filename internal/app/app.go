package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/draftlane/draftlane-backend/internal/data/db"
	"github.com/draftlane/draftlane-backend/internal/jobs/handlers"
	"github.com/draftlane/draftlane-backend/internal/jobs/runtime"
	"github.com/draftlane/draftlane-backend/internal/jobs/worker"
	"github.com/draftlane/draftlane-backend/internal/observability"
	"github.com/draftlane/draftlane-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *gorm.DB
	Repos    Repos
	Clients  Clients
	Services Services
	Router   *gin.Engine

	otelShutdown func(context.Context) error
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "draftlane-backend",
		Environment: cfg.Env,
		Version:     cfg.Version,
	})

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	reposet := wireRepos(theDB, log)

	clients, err := wireClients(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	services, err := wireServices(theDB, log, cfg, reposet, clients)
	if err != nil {
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(theDB, log, reposet, services)
	middleware := wireMiddleware(log, services)
	router := wireRouter(log, handlerset, middleware)

	return &App{
		Log:          log,
		Cfg:          cfg,
		DB:           theDB,
		Repos:        reposet,
		Clients:      clients,
		Services:     services,
		Router:       router,
		otelShutdown: otelShutdown,
	}, nil
}

// NewJobWorker builds the fulfillment worker from the already-wired app.
// Worker processes need the generator and publisher configured; the API
// process does not.
func (a *App) NewJobWorker() (*worker.Worker, error) {
	if a.Clients.Generator == nil {
		return nil, fmt.Errorf("worker requires GENERATOR_BASE_URL")
	}
	if a.Services.Publisher == nil {
		return nil, fmt.Errorf("worker requires site store credentials")
	}
	registry := runtime.NewRegistry()
	if err := handlers.RegisterAll(registry, handlers.Deps{
		Log:         a.Log,
		Orders:      a.Repos.Order,
		Items:       a.Repos.ContentItem,
		Domains:     a.Repos.ContentDomain,
		Versions:    a.Repos.Version,
		Generator:   a.Clients.Generator,
		Publisher:   a.Services.Publisher,
		Refunds:     a.Services.Refunds,
		Mail:        a.Services.Notifier,
		MaxAttempts: a.Cfg.Worker.MaxAttempts,
	}); err != nil {
		return nil, err
	}
	return worker.New(a.DB, a.Log, worker.Config{
		Concurrency:  a.Cfg.Worker.Concurrency,
		PollInterval: a.Cfg.Worker.PollInterval,
		MaxAttempts:  a.Cfg.Worker.MaxAttempts,
		RetryDelay:   a.Cfg.Worker.RetryDelay,
		StaleRunning: a.Cfg.Worker.StaleRunning,
	}, a.Repos.JobRun, registry, a.Clients.Bus), nil
}

// RunSweeper blocks, reclaiming expired sessions on the configured interval.
func (a *App) RunSweeper(ctx context.Context) error {
	interval := a.Cfg.SweepInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := a.Services.Sessions.SweepExpired(ctx)
			if err != nil {
				a.Log.Warn("session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				a.Log.Info("expired sessions reclaimed", "count", n)
			}
		}
	}
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
	}
	if a.Clients.Bus != nil {
		_ = a.Clients.Bus.Close()
	}
	if a.Clients.SiteStore != nil {
		_ = a.Clients.SiteStore.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
