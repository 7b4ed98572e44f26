package handlers

import (
	"time"

	"gorm.io/gorm"

	types "github.com/draftlane/draftlane-backend/internal/domain"
	"github.com/draftlane/draftlane-backend/internal/jobs/runtime"
	"github.com/draftlane/draftlane-backend/internal/platform/dbctx"
	"github.com/draftlane/draftlane-backend/internal/services/dispatch"
	"github.com/draftlane/draftlane-backend/internal/services/notifier"
)

type publishArticleHandler struct {
	deps Deps
}

func (h *publishArticleHandler) Type() string { return types.JobTypePublishArticle }

func (h *publishArticleHandler) Run(jc *runtime.Context) error {
	payload, err := dispatch.UnmarshalPayload[dispatch.PublishPayload](jc.Job)
	if err != nil {
		jc.Fail("decode", err)
		return err
	}
	order, proceed, err := loadOrder(jc, h.deps, payload.OrderID, types.OrderStatusAdminReview)
	if err != nil {
		jc.Fail("load", err)
		return err
	}
	if !proceed {
		return nil
	}

	jc.Progress("publishing")
	url, err := h.deps.Publisher.Publish(jc.Ctx, payload.VersionID)
	if err != nil {
		return handleFailure(jc, h.deps, order, "publishing", err)
	}

	now := time.Now()
	err = jc.DB.WithContext(jc.Ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.WithTx(jc.Ctx, tx)
		if _, terr := h.deps.Orders.Transition(txc, order.ID, types.OrderStatusCompleted, map[string]interface{}{
			"completed_at": now,
		}); terr != nil {
			return terr
		}
		// The slot is consumed; a completed placement never goes back on sale.
		return h.deps.Items.SetAvailability(txc, order.ContentItemID, types.AvailabilitySoldOut)
	})
	if err != nil {
		return handleFailure(jc, h.deps, order, "complete", err)
	}

	if h.deps.Mail != nil {
		if merr := h.deps.Mail.Send(jc.Ctx, notifier.KindArticlePublished, order.CustomerEmail, notifier.Context{
			"order_id": order.ID.String(),
			"url":      url,
		}); merr != nil {
			h.deps.Log.Warn("published email failed", "order_id", order.ID, "error", merr)
		}
	}

	jc.Succeed("published", map[string]any{"url": url})
	jc.PublishOrderEvent(order.ID, order.SessionID, types.OrderStatusCompleted, url)
	return nil
}
