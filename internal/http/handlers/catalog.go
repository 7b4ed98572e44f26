package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/draftlane/draftlane-backend/internal/data/repos"
	"github.com/draftlane/draftlane-backend/internal/http/response"
	"github.com/draftlane/draftlane-backend/internal/platform/dbctx"
)

type CatalogHandler struct {
	domains repos.ContentDomainRepo
	items   repos.ContentItemRepo
}

func NewCatalogHandler(domains repos.ContentDomainRepo, items repos.ContentItemRepo) *CatalogHandler {
	return &CatalogHandler{domains: domains, items: items}
}

// GET /api/catalog/domains
func (h *CatalogHandler) ListDomains(c *gin.Context) {
	domains, err := h.domains.ListActive(dbctx.New(c.Request.Context()))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"domains": domains})
}

// GET /api/catalog/items?domain_id=&limit=
func (h *CatalogHandler) ListAvailableItems(c *gin.Context) {
	var domainID *uuid.UUID
	if raw := c.Query("domain_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_domain_id", err)
			return
		}
		domainID = &id
	}
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	items, err := h.items.ListAvailable(dbctx.New(c.Request.Context()), domainID, limit)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"items": items})
}
