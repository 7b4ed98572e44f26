package handlers

import (
	"strings"

	"github.com/google/uuid"

	"github.com/draftlane/draftlane-backend/internal/data/repos"
	types "github.com/draftlane/draftlane-backend/internal/domain"
	"github.com/draftlane/draftlane-backend/internal/jobs/runtime"
	"github.com/draftlane/draftlane-backend/internal/platform/apierr"
	"github.com/draftlane/draftlane-backend/internal/platform/dbctx"
	"github.com/draftlane/draftlane-backend/internal/platform/logger"
	"github.com/draftlane/draftlane-backend/internal/services/generator"
	"github.com/draftlane/draftlane-backend/internal/services/notifier"
	"github.com/draftlane/draftlane-backend/internal/services/publisher"
	"github.com/draftlane/draftlane-backend/internal/services/refund"
)

// Deps is everything the fulfillment handlers share.
type Deps struct {
	Log       *logger.Logger
	Orders    repos.OrderRepo
	Items     repos.ContentItemRepo
	Domains   repos.ContentDomainRepo
	Versions  repos.VersionRepo
	Generator generator.ContentGenerator
	Publisher publisher.Service
	Refunds   refund.Service
	Mail      notifier.Notifier
	// MaxAttempts mirrors the worker claim policy so a handler can tell a
	// retryable failure from a final one.
	MaxAttempts int
}

// RegisterAll wires every fulfillment handler into the registry.
func RegisterAll(reg *runtime.Registry, deps Deps) error {
	if deps.MaxAttempts <= 0 {
		deps.MaxAttempts = 5
	}
	for _, h := range []runtime.Handler{
		&generateArticleHandler{deps: deps},
		&integrateBacklinkHandler{deps: deps},
		&publishArticleHandler{deps: deps},
	} {
		if err := reg.Register(h); err != nil {
			return err
		}
	}
	return nil
}

// loadOrder fetches the order and reports whether this run should proceed.
// A replayed or late-delivered job against an order that moved on is skipped
// as a success, never re-executed.
func loadOrder(jc *runtime.Context, deps Deps, orderID uuid.UUID, wantStatus string) (*types.Order, bool, error) {
	order, err := deps.Orders.GetByID(dbctx.Context{Ctx: jc.Ctx}, orderID)
	if err != nil {
		return nil, false, err
	}
	if order.Status != wantStatus {
		deps.Log.Info("skipping job for order past its stage",
			"order_id", order.ID, "order_status", order.Status, "job_type", jc.Job.JobType)
		jc.Succeed("skipped", map[string]any{"skipped": true, "order_status": order.Status})
		return order, false, nil
	}
	return order, true, nil
}

// finalAttempt reports whether the current run is the last one the claim
// policy will hand out.
func finalAttempt(jc *runtime.Context, deps Deps) bool {
	return jc.Job.Attempts >= deps.MaxAttempts
}

// handleFailure records the failed run. On the final attempt it also fails the
// order, frees its item, and refunds the buyer so money never stays captured
// for work that cannot complete.
func handleFailure(jc *runtime.Context, deps Deps, order *types.Order, stage string, cause error) error {
	jc.Fail(stage, cause)
	if !finalAttempt(jc, deps) {
		return cause
	}
	deps.Log.Error("fulfillment exhausted retries; failing order",
		"order_id", order.ID, "job_type", jc.Job.JobType, "stage", stage, "error", cause)

	dbc := dbctx.Context{Ctx: jc.Ctx}
	if _, terr := deps.Orders.Transition(dbc, order.ID, types.OrderStatusFailed, map[string]interface{}{
		"fail_reason": cause.Error(),
	}); terr != nil && !apierr.IsCode(terr, apierr.CodeConflict) {
		deps.Log.Error("failed to mark order failed", "order_id", order.ID, "error", terr)
	}
	if rerr := deps.Items.Release(dbc, []uuid.UUID{order.ContentItemID}); rerr != nil {
		deps.Log.Error("failed to release item", "content_item_id", order.ContentItemID, "error", rerr)
	}
	if _, rerr := deps.Refunds.Refund(jc.Ctx, order.ID, "fulfillment failed: "+stage); rerr != nil {
		deps.Log.Error("auto refund failed; needs manual retry", "order_id", order.ID, "error", rerr)
	}
	jc.PublishOrderEvent(order.ID, order.SessionID, types.OrderStatusFailed, stage)
	return cause
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
