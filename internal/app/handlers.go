package app

import (
	"gorm.io/gorm"

	httpH "github.com/draftlane/draftlane-backend/internal/http/handlers"
	httpMW "github.com/draftlane/draftlane-backend/internal/http/middleware"
	"github.com/draftlane/draftlane-backend/internal/platform/logger"
)

type Handlers struct {
	Health  *httpH.HealthHandler
	Session *httpH.SessionHandler
	Webhook *httpH.WebhookHandler
	Catalog *httpH.CatalogHandler
	Order   *httpH.OrderHandler
	Admin   *httpH.AdminHandler
}

type Middleware struct {
	AdminAuth *httpMW.AdminAuthMiddleware
}

func wireHandlers(db *gorm.DB, log *logger.Logger, reposet Repos, services Services) Handlers {
	log.Info("Wiring handlers...")
	h := Handlers{
		Health:  httpH.NewHealthHandler(db),
		Session: httpH.NewSessionHandler(services.Sessions, services.Tokens, services.Checkout, services.Status),
		Webhook: httpH.NewWebhookHandler(log, services.Orchestrator),
		Catalog: httpH.NewCatalogHandler(reposet.ContentDomain, reposet.ContentItem),
		Order:   httpH.NewOrderHandler(services.Status),
	}
	if services.AdminAuth != nil {
		h.Admin = httpH.NewAdminHandler(services.AdminAuth, services.Reviews, services.Refunds,
			reposet.JobRun, reposet.Order, services.Dispatch)
	}
	return h
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	var m Middleware
	if services.AdminAuth != nil {
		m.AdminAuth = httpMW.NewAdminAuthMiddleware(log, services.AdminAuth)
	}
	return m
}
