package app

import (
	"github.com/gin-gonic/gin"

	internalhttp "github.com/draftlane/draftlane-backend/internal/http"
	"github.com/draftlane/draftlane-backend/internal/observability"
	"github.com/draftlane/draftlane-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, handlers Handlers, middleware Middleware) *gin.Engine {
	return internalhttp.NewRouter(internalhttp.RouterConfig{
		Log:                 log,
		HealthHandler:       handlers.Health,
		SessionHandler:      handlers.Session,
		WebhookHandler:      handlers.Webhook,
		CatalogHandler:      handlers.Catalog,
		OrderHandler:        handlers.Order,
		AdminHandler:        handlers.Admin,
		AdminAuthMiddleware: middleware.AdminAuth,
		TracingEnabled:      observability.Enabled(),
	})
}
