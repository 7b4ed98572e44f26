package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/draftlane/draftlane-backend/internal/data/repos"
	types "github.com/draftlane/draftlane-backend/internal/domain"
	"github.com/draftlane/draftlane-backend/internal/http/response"
	"github.com/draftlane/draftlane-backend/internal/platform/apierr"
	"github.com/draftlane/draftlane-backend/internal/platform/ctxutil"
	"github.com/draftlane/draftlane-backend/internal/platform/dbctx"
	"github.com/draftlane/draftlane-backend/internal/services/adminauth"
	"github.com/draftlane/draftlane-backend/internal/services/dispatch"
	"github.com/draftlane/draftlane-backend/internal/services/refund"
	"github.com/draftlane/draftlane-backend/internal/services/review"
)

type AdminHandler struct {
	auth     adminauth.Service
	reviews  review.Service
	refunds  refund.Service
	jobs     repos.JobRunRepo
	orders   repos.OrderRepo
	dispatch dispatch.Dispatcher
}

func NewAdminHandler(
	auth adminauth.Service,
	reviews review.Service,
	refunds refund.Service,
	jobs repos.JobRunRepo,
	orders repos.OrderRepo,
	dispatcher dispatch.Dispatcher,
) *AdminHandler {
	return &AdminHandler{
		auth:     auth,
		reviews:  reviews,
		refunds:  refunds,
		jobs:     jobs,
		orders:   orders,
		dispatch: dispatcher,
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// POST /api/admin/login
func (h *AdminHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	token, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "invalid_credentials", err)
		return
	}
	response.RespondOK(c, gin.H{"token": token})
}

// GET /api/admin/reviews?limit=
func (h *AdminHandler) ListPendingReviews(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	pending, err := h.reviews.ListPending(c.Request.Context(), limit)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"pending": pending})
}

type verdictRequest struct {
	Note string `json:"note"`
}

// POST /api/admin/orders/:id/approve
func (h *AdminHandler) ApproveOrder(c *gin.Context) {
	h.verdict(c, true)
}

// POST /api/admin/orders/:id/reject
func (h *AdminHandler) RejectOrder(c *gin.Context) {
	h.verdict(c, false)
}

func (h *AdminHandler) verdict(c *gin.Context, approve bool) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_order_id", err)
		return
	}
	var req verdictRequest
	_ = c.ShouldBindJSON(&req)
	adminID := requestAdminID(c)

	var order any
	if approve {
		order, err = h.reviews.Approve(c.Request.Context(), orderID, adminID, req.Note)
	} else {
		order, err = h.reviews.Reject(c.Request.Context(), orderID, adminID, req.Note)
	}
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"order": order})
}

type refundRequest struct {
	Reason string `json:"reason"`
}

// POST /api/admin/orders/:id/refund
func (h *AdminHandler) RefundOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_order_id", err)
		return
	}
	var req refundRequest
	_ = c.ShouldBindJSON(&req)
	if req.Reason == "" {
		req.Reason = "manual refund"
	}
	res, err := h.refunds.Refund(c.Request.Context(), orderID, req.Reason)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"order":     res.Order,
		"refund_id": res.RefundID,
		"already":   res.Already,
	})
}

// POST /api/admin/jobs/:id/requeue
func (h *AdminHandler) RequeueJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	if err := h.jobs.Requeue(dbctx.New(c.Request.Context()), jobID); err != nil {
		response.RespondErr(c, err)
		return
	}
	job, err := h.jobs.GetByID(dbctx.New(c.Request.Context()), jobID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

// POST /api/admin/orders/:id/dispatch
//
// Recovery for a paid order whose fulfillment job was never enqueued (the
// post-payment enqueue is best effort). An order that already has a job
// goes through /jobs/:id/requeue instead.
func (h *AdminHandler) DispatchOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_order_id", err)
		return
	}
	dbc := dbctx.New(c.Request.Context())

	order, err := h.orders.GetByID(dbc, orderID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if order.Status != types.OrderStatusProcessing {
		response.RespondErr(c, apierr.Conflict("admin.dispatch_order", "order is not awaiting fulfillment"))
		return
	}
	existing, err := h.jobs.GetLatestByEntity(dbc, "order", order.ID, "")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if existing != nil {
		response.RespondErr(c, apierr.Conflict("admin.dispatch_order", "order already has a fulfillment job"))
		return
	}

	job, err := h.dispatch.EnqueueForOrder(dbc, order)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

func requestAdminID(c *gin.Context) uuid.UUID {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.AdminID == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(rd.AdminID)
	if err != nil {
		return uuid.Nil
	}
	return id
}
