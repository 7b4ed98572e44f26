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

type generateArticleHandler struct {
	deps Deps
}

func (h *generateArticleHandler) Type() string { return types.JobTypeGenerateArticle }

func (h *generateArticleHandler) Run(jc *runtime.Context) error {
	payload, err := dispatch.UnmarshalPayload[dispatch.GenerationPayload](jc.Job)
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
	item, err := h.deps.Items.GetByID(dbc, payload.ContentItemID)
	if err != nil {
		return handleFailure(jc, h.deps, order, "load", err)
	}
	domain, err := h.deps.Domains.GetByID(dbc, item.DomainID)
	if err != nil {
		return handleFailure(jc, h.deps, order, "load", err)
	}

	jc.Progress("generating")
	res, err := h.deps.Generator.GenerateArticle(jc.Ctx, generator.GenerateRequest{
		Topic: payload.Topic,
		Host:  domain.Host,
		Slug:  item.Slug,
	})
	if err != nil {
		return handleFailure(jc, h.deps, order, "generating", err)
	}

	jc.Progress("quality_check")
	if _, err := h.deps.Orders.Transition(dbc, order.ID, types.OrderStatusQualityCheck, nil); err != nil {
		return handleFailure(jc, h.deps, order, "quality_check", err)
	}
	qcStatus, qcNote := checkQuality(res.Body, payload.Topic)

	var version *types.ContentVersion
	err = jc.DB.WithContext(jc.Ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.WithTx(jc.Ctx, tx)
		v, verr := h.deps.Versions.AppendVersion(txc, &types.ContentVersion{
			ContentItemID: item.ID,
			Body:          res.Body,
			QCStatus:      qcStatus,
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
	if qcStatus == types.QCStatusFlagged {
		h.deps.Log.Warn("generated article flagged by quality check",
			"order_id", order.ID, "version_id", version.ID, "reason", qcNote)
	}

	jc.Succeed("awaiting_review", map[string]any{
		"version_id": version.ID,
		"qc_status":  qcStatus,
	})
	jc.PublishOrderEvent(order.ID, order.SessionID, types.OrderStatusAdminReview, "article generated")
	return nil
}

// checkQuality applies cheap structural checks before a human ever sees the
// draft. Flagged drafts still go to review, just marked.
func checkQuality(body, topic string) (status, note string) {
	const minBodyRunes = 600
	if len([]rune(body)) < minBodyRunes {
		return types.QCStatusFlagged, fmt.Sprintf("body shorter than %d characters", minBodyRunes)
	}
	for _, marker := range []string{"[TODO", "lorem ipsum", "PLACEHOLDER"} {
		if containsFold(body, marker) {
			return types.QCStatusFlagged, "placeholder text: " + marker
		}
	}
	if topic != "" && !containsFold(body, topic) {
		return types.QCStatusFlagged, "topic not mentioned in body"
	}
	return types.QCStatusPassed, ""
}
