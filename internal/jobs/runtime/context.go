package runtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	redisbus "github.com/draftlane/draftlane-backend/internal/clients/redis"
	"github.com/draftlane/draftlane-backend/internal/data/repos"
	types "github.com/draftlane/draftlane-backend/internal/domain"
	"github.com/draftlane/draftlane-backend/internal/platform/dbctx"
)

// Context is the execution handle for one claimed job run. Handlers report
// progress and termination only through it; nothing else writes the job_run
// row while the job is running.
type Context struct {
	Ctx  context.Context
	DB   *gorm.DB
	Job  *types.JobRun
	Repo repos.JobRunRepo
	Bus  redisbus.EventBus
}

func NewContext(ctx context.Context, db *gorm.DB, job *types.JobRun, repo repos.JobRunRepo, bus redisbus.EventBus) *Context {
	return &Context{Ctx: ctx, DB: db, Job: job, Repo: repo, Bus: bus}
}

// Progress persists the current stage and refreshes the heartbeat so the
// stale-running sweep leaves this job alone.
func (c *Context) Progress(stage string) {
	if c == nil || c.Repo == nil || c.Job == nil || c.Job.ID == uuid.Nil {
		return
	}
	now := time.Now()
	if err := c.Repo.UpdateFields(dbctx.Context{Ctx: c.Ctx}, c.Job.ID, map[string]interface{}{
		"stage":        stage,
		"heartbeat_at": now,
	}); err != nil {
		return
	}
	c.Job.Stage = stage
	c.Job.HeartbeatAt = &now
}

// Fail marks the run terminally failed for this attempt. The claim query
// decides whether attempts remain; Fail itself never requeues.
func (c *Context) Fail(stage string, err error) {
	if c == nil || c.Repo == nil || c.Job == nil || c.Job.ID == uuid.Nil {
		return
	}
	now := time.Now()
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if uerr := c.Repo.UpdateFields(dbctx.Context{Ctx: c.Ctx}, c.Job.ID, map[string]interface{}{
		"status":        types.JobStatusFailed,
		"stage":         stage,
		"error":         msg,
		"last_error_at": now,
		"locked_at":     nil,
	}); uerr != nil {
		return
	}
	c.Job.Status = types.JobStatusFailed
	c.Job.Stage = stage
	c.Job.Error = msg
	c.Job.LastErrorAt = &now
	c.Job.LockedAt = nil
}

// Succeed marks the run done and stores the result payload.
func (c *Context) Succeed(finalStage string, result any) {
	if c == nil || c.Repo == nil || c.Job == nil || c.Job.ID == uuid.Nil {
		return
	}
	now := time.Now()
	var res datatypes.JSON
	if result != nil {
		b, _ := json.Marshal(result)
		res = datatypes.JSON(b)
	}
	if err := c.Repo.UpdateFields(dbctx.Context{Ctx: c.Ctx}, c.Job.ID, map[string]interface{}{
		"status":       types.JobStatusSucceeded,
		"stage":        finalStage,
		"error":        "",
		"result":       res,
		"locked_at":    nil,
		"heartbeat_at": now,
	}); err != nil {
		return
	}
	c.Job.Status = types.JobStatusSucceeded
	c.Job.Stage = finalStage
	c.Job.Error = ""
	c.Job.Result = res
	c.Job.LockedAt = nil
	c.Job.HeartbeatAt = &now
}

// PublishOrderEvent pushes an order lifecycle change onto the event bus.
// Best effort: a bus outage never fails the job.
func (c *Context) PublishOrderEvent(orderID uuid.UUID, sessionID *uuid.UUID, status, detail string) {
	if c == nil || c.Bus == nil {
		return
	}
	_ = c.Bus.Publish(c.Ctx, redisbus.OrderEvent{
		OrderID:   orderID,
		SessionID: sessionID,
		Status:    status,
		Detail:    detail,
		At:        time.Now(),
	})
}
