package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/draftlane/draftlane-backend/internal/http/response"
	"github.com/draftlane/draftlane-backend/internal/services/status"
)

type OrderHandler struct {
	status status.Service
}

func NewOrderHandler(st status.Service) *OrderHandler {
	return &OrderHandler{status: st}
}

// GET /api/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_order_id", err)
		return
	}
	view, err := h.status.Order(c.Request.Context(), orderID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"order": view})
}
