package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/draftlane/draftlane-backend/internal/http/response"
	"github.com/draftlane/draftlane-backend/internal/platform/apierr"
	"github.com/draftlane/draftlane-backend/internal/platform/logger"
	"github.com/draftlane/draftlane-backend/internal/services/orchestrator"
)

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	log          *logger.Logger
	orchestrator orchestrator.Service
}

func NewWebhookHandler(baseLog *logger.Logger, orch orchestrator.Service) *WebhookHandler {
	return &WebhookHandler{
		log:          baseLog.With("handler", "WebhookHandler"),
		orchestrator: orch,
	}
}

// POST /api/webhooks/payment
//
// Only a bad signature or an unreadable body earns a non-2xx. Once the
// signature checks out the event is persisted, so every other failure is
// acked after logging; redelivery of an unfinished event reprocesses it,
// and hammering us with gateway retries adds nothing.
func (h *WebhookHandler) HandlePayment(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_body", err)
		return
	}
	sig := c.GetHeader("Stripe-Signature")

	result, err := h.orchestrator.HandleNotification(c.Request.Context(), body, sig)
	if err != nil {
		if apierr.CodeOf(err) == apierr.CodeSignature {
			response.RespondErr(c, err)
			return
		}
		h.log.Error("payment notification failed after signature check; acknowledged",
			"code", apierr.CodeOf(err), "error", err)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"received":  true,
		"duplicate": result.Duplicate,
		"orders":    result.Orders,
	})
}
