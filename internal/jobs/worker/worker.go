package worker

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/draftlane/draftlane-backend/internal/clients/redis"
	"github.com/draftlane/draftlane-backend/internal/data/repos"
	types "github.com/draftlane/draftlane-backend/internal/domain"
	"github.com/draftlane/draftlane-backend/internal/jobs/runtime"
	"github.com/draftlane/draftlane-backend/internal/platform/dbctx"
	"github.com/draftlane/draftlane-backend/internal/platform/logger"
)

type Config struct {
	Concurrency  int
	PollInterval time.Duration
	MaxAttempts  int
	RetryDelay   time.Duration
	StaleRunning time.Duration
}

func DefaultConfig() Config {
	return Config{
		Concurrency:  4,
		PollInterval: 1 * time.Second,
		MaxAttempts:  5,
		RetryDelay:   30 * time.Second,
		StaleRunning: 2 * time.Minute,
	}
}

// Worker runs claim loops against the job queue. Each loop claims one row at
// a time with SKIP LOCKED, so loops on any number of processes coexist.
type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	cfg      Config
	repo     repos.JobRunRepo
	registry *runtime.Registry
	bus      redis.EventBus
}

func New(db *gorm.DB, baseLog *logger.Logger, cfg Config, repo repos.JobRunRepo, registry *runtime.Registry, bus redis.EventBus) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Worker{
		db:       db,
		log:      baseLog.With("component", "JobWorker"),
		cfg:      cfg,
		repo:     repo,
		registry: registry,
		bus:      bus,
	}
}

// Run blocks until ctx is canceled, then waits for in-flight jobs to finish.
func (w *Worker) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < w.cfg.Concurrency; i++ {
		loopLog := w.log.With("loop", i)
		g.Go(func() error {
			w.claimLoop(gctx, loopLog)
			return nil
		})
	}
	return g.Wait()
}

func (w *Worker) claimLoop(ctx context.Context, log *logger.Logger) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Drain: keep claiming until the queue is empty, then go back
			// to sleeping on the ticker.
			for {
				if ctx.Err() != nil {
					return
				}
				job, err := w.repo.ClaimNextRunnable(dbctx.New(ctx), w.cfg.MaxAttempts, w.cfg.RetryDelay, w.cfg.StaleRunning)
				if err != nil {
					log.Warn("claim failed", "error", err)
					break
				}
				if job == nil {
					break
				}
				w.runOne(ctx, log, job)
			}
		}
	}
}

func (w *Worker) runOne(ctx context.Context, log *logger.Logger, job *types.JobRun) {
	jc := runtime.NewContext(ctx, w.db, job, w.repo, w.bus)
	h, ok := w.registry.Get(job.JobType)
	if !ok {
		log.Warn("no handler registered", "job_type", job.JobType, "job_id", job.ID)
		jc.Fail("dispatch", fmt.Errorf("no handler registered for job_type=%s", job.JobType))
		return
	}
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Error("job handler panic", "job_id", job.ID, "job_type", job.JobType, "panic", r)
			jc.Fail("panic", fmt.Errorf("handler panic: %v", r))
		}
	}()
	if err := h.Run(jc); err != nil {
		log.Warn("job failed", "job_id", job.ID, "job_type", job.JobType,
			"attempts", job.Attempts, "duration", time.Since(started), "error", err)
		return
	}
	log.Info("job finished", "job_id", job.ID, "job_type", job.JobType,
		"status", job.Status, "duration", time.Since(started))
}
