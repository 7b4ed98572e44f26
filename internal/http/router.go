package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/draftlane/draftlane-backend/internal/http/handlers"
	httpMW "github.com/draftlane/draftlane-backend/internal/http/middleware"
	"github.com/draftlane/draftlane-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	HealthHandler  *httpH.HealthHandler
	SessionHandler *httpH.SessionHandler
	WebhookHandler *httpH.WebhookHandler
	CatalogHandler *httpH.CatalogHandler
	OrderHandler   *httpH.OrderHandler

	AdminHandler        *httpH.AdminHandler
	AdminAuthMiddleware *httpMW.AdminAuthMiddleware

	TracingEnabled bool
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.AttachRequestContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())
	if cfg.TracingEnabled {
		r.Use(otelgin.Middleware("draftlane-backend"))
	}

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Purchase flow (public; sessions authenticate via magic link)
		if cfg.SessionHandler != nil {
			api.POST("/sessions", cfg.SessionHandler.Create)
			api.POST("/sessions/verify", cfg.SessionHandler.Verify)
			api.POST("/sessions/:id/checkout", cfg.SessionHandler.Checkout)
			api.GET("/sessions/:id/status", cfg.SessionHandler.Status)
		}

		// Gateway notifications
		if cfg.WebhookHandler != nil {
			api.POST("/webhooks/payment", cfg.WebhookHandler.HandlePayment)
		}

		// Catalog browsing
		if cfg.CatalogHandler != nil {
			api.GET("/catalog/domains", cfg.CatalogHandler.ListDomains)
			api.GET("/catalog/items", cfg.CatalogHandler.ListAvailableItems)
		}

		// Order status
		if cfg.OrderHandler != nil {
			api.GET("/orders/:id", cfg.OrderHandler.GetOrder)
		}

		// Admin (public login, then bearer token)
		if cfg.AdminHandler != nil {
			api.POST("/admin/login", cfg.AdminHandler.Login)
		}
	}

	adminGroup := api.Group("/admin")
	{
		if cfg.AdminAuthMiddleware != nil {
			adminGroup.Use(cfg.AdminAuthMiddleware.RequireAdmin())
		}
		if cfg.AdminHandler != nil {
			adminGroup.GET("/reviews", cfg.AdminHandler.ListPendingReviews)
			adminGroup.POST("/orders/:id/approve", cfg.AdminHandler.ApproveOrder)
			adminGroup.POST("/orders/:id/reject", cfg.AdminHandler.RejectOrder)
			adminGroup.POST("/orders/:id/refund", cfg.AdminHandler.RefundOrder)
			adminGroup.POST("/orders/:id/dispatch", cfg.AdminHandler.DispatchOrder)
			adminGroup.POST("/jobs/:id/requeue", cfg.AdminHandler.RequeueJob)
		}
	}

	return r
}
