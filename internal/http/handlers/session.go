package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/draftlane/draftlane-backend/internal/domain"
	"github.com/draftlane/draftlane-backend/internal/http/response"
	"github.com/draftlane/draftlane-backend/internal/services/checkout"
	"github.com/draftlane/draftlane-backend/internal/services/session"
	"github.com/draftlane/draftlane-backend/internal/services/status"
	"github.com/draftlane/draftlane-backend/internal/services/token"
)

type SessionHandler struct {
	sessions session.Service
	tokens   token.Issuer
	checkout checkout.Service
	status   status.Service
}

func NewSessionHandler(sessions session.Service, tokens token.Issuer, co checkout.Service, st status.Service) *SessionHandler {
	return &SessionHandler{sessions: sessions, tokens: tokens, checkout: co, status: st}
}

type createSessionRequest struct {
	Email string            `json:"email" binding:"required"`
	Kind  string            `json:"kind" binding:"required"`
	Units []types.OrderUnit `json:"units" binding:"required"`
}

// POST /api/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	sess, err := h.sessions.Create(c.Request.Context(), req.Email, req.Kind, req.Units)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"session": sess})
}

type verifyRequest struct {
	Token string `json:"token" binding:"required"`
}

// POST /api/sessions/verify
func (h *SessionHandler) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	sess, err := h.tokens.Verify(c.Request.Context(), req.Token)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"session": sess})
}

// POST /api/sessions/:id/checkout
func (h *SessionHandler) Checkout(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_session_id", err)
		return
	}
	co, err := h.checkout.Start(c.Request.Context(), sessionID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"txn_id":       co.TxnID,
		"redirect_url": co.RedirectURL,
	})
}

// GET /api/sessions/:id/status
func (h *SessionHandler) Status(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_session_id", err)
		return
	}
	view, err := h.status.Session(c.Request.Context(), sessionID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}
