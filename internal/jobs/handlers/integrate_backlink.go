package handlers

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/draftlane/draftlane-backend/internal/domain"
	"github.com/draftlane/draftlane-backend/internal/jobs/runtime"
	"github.com/draftlane/draftlane-backend/internal/platform/dbctx"
	"github.com/draftlane/draftlane-backend/internal/services/dispatch"
	"github.com/draftlane/draftlane-backend/internal/services/generator"
)

type integrateBacklinkHandler struct {
	deps Deps
}

func (h *integrateBacklinkHandler) Type() string { return types.JobTypeIntegrateBacklink }

func (h *integrateBacklinkHandler) Run(jc *runtime.Context) error {
	payload, err := dispatch.UnmarshalPayload[dispatch.BacklinkPayload](jc.Job)
	if err != nil {
		jc.Fail("decode", err)
		return err
	}
	order, proceed, err := loadOrder(jc, h.deps, payload.OrderID, types.OrderStatusProcessing)
	if err != nil {
		jc.Fail("load", err)
		return err
	}
	if !proceed {
		return nil
	}

	dbc := dbctx.Context{Ctx: jc.Ctx}
	latest, err := h.deps.Versions.LatestForItem(dbc, payload.ContentItemID)
	if err != nil {
		return handleFailure(jc, h.deps, order, "load", err)
	}
	if latest == nil {
		return handleFailure(jc, h.deps, order, "load",
			fmt.Errorf("content item %s has no article to place a link into", payload.ContentItemID))
	}

	jc.Progress("integrating")
	res, err := h.deps.Generator.IntegrateBacklink(jc.Ctx, generator.IntegrateRequest{
		Body:       latest.Body,
		TargetURL:  payload.TargetURL,
		AnchorText: payload.AnchorText,
	})
	if err != nil {
		return handleFailure(jc, h.deps, order, "integrating", err)
	}
	if !containsFold(res.Body, payload.TargetURL) {
		return handleFailure(jc, h.deps, order, "integrating",
			fmt.Errorf("rewritten article does not carry the target link"))
	}

	jc.Progress("quality_check")
	if _, err := h.deps.Orders.Transition(dbc, order.ID, types.OrderStatusQualityCheck, nil); err != nil {
		return handleFailure(jc, h.deps, order, "quality_check", err)
	}

	var version *types.ContentVersion
	err = jc.DB.WithContext(jc.Ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.WithTx(jc.Ctx, tx)
		v, verr := h.deps.Versions.AppendVersion(txc, &types.ContentVersion{
			ContentItemID: payload.ContentItemID,
			Body:          res.Body,
			QCStatus:      types.QCStatusPassed,
			ReviewStatus:  types.ReviewStatusPending,
		})
		if verr != nil {
			return verr
		}
		version = v
		_, terr := h.deps.Orders.Transition(txc, order.ID, types.OrderStatusAdminReview, map[string]interface{}{
			"version_id": v.ID,
		})
		return terr
	})
	if err != nil {
		return handleFailure(jc, h.deps, order, "record_version", err)
	}

	jc.Succeed("awaiting_review", map[string]any{"version_id": version.ID})
	jc.PublishOrderEvent(order.ID, order.SessionID, types.OrderStatusAdminReview, "backlink integrated")
	return nil
}
