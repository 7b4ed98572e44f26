package app

import (
	"context"

	"gorm.io/gorm"

	"github.com/draftlane/draftlane-backend/internal/platform/envutil"
	"github.com/draftlane/draftlane-backend/internal/platform/logger"
	"github.com/draftlane/draftlane-backend/internal/services/adminauth"
	"github.com/draftlane/draftlane-backend/internal/services/checkout"
	"github.com/draftlane/draftlane-backend/internal/services/dispatch"
	"github.com/draftlane/draftlane-backend/internal/services/notifier"
	"github.com/draftlane/draftlane-backend/internal/services/orchestrator"
	"github.com/draftlane/draftlane-backend/internal/services/publisher"
	"github.com/draftlane/draftlane-backend/internal/services/refund"
	"github.com/draftlane/draftlane-backend/internal/services/review"
	"github.com/draftlane/draftlane-backend/internal/services/session"
	"github.com/draftlane/draftlane-backend/internal/services/status"
	"github.com/draftlane/draftlane-backend/internal/services/token"
)

type Services struct {
	Tokens       token.Issuer
	Notifier     notifier.Notifier
	Sessions     session.Service
	Checkout     checkout.Service
	Dispatch     dispatch.Dispatcher
	Orchestrator orchestrator.Service
	Refunds      refund.Service
	Reviews      review.Service
	Status       status.Service
	Publisher    publisher.Service
	AdminAuth    adminauth.Service
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")
	var s Services

	s.Tokens = token.NewIssuer(log, reposet.Session)
	s.Notifier = notifier.New(log, clients.Mailer)
	s.Sessions = session.NewService(db, log, reposet.Session, reposet.ContentItem, reposet.ContentDomain,
		s.Tokens, s.Notifier, cfg.MagicLinkTTL, cfg.MagicLinkBase)
	s.Checkout = checkout.NewService(log, clients.Stripe, reposet.Session, s.Sessions)
	s.Dispatch = dispatch.New(log, reposet.JobRun)
	s.Orchestrator = orchestrator.NewService(db, log, clients.Stripe, reposet,
		s.Dispatch, s.Notifier, clients.Bus)
	s.Refunds = refund.NewService(db, log, clients.Stripe, reposet.Order,
		reposet.ContentItem, s.Notifier)
	s.Reviews = review.NewService(db, log, reposet.Order, reposet.Version,
		s.Dispatch, s.Refunds)
	s.Status = status.NewService(log, reposet.Session, reposet.Order, reposet.JobRun)

	if clients.SiteStore != nil {
		s.Publisher = publisher.NewService(db, log, clients.SiteStore,
			reposet.ContentItem, reposet.ContentDomain, reposet.Version)
	}

	if authCfg, err := adminauth.ConfigFromEnv(); err != nil {
		log.Warn("admin auth not configured; admin endpoints disabled", "error", err)
	} else {
		s.AdminAuth = adminauth.NewService(log, reposet.AdminUser, authCfg)

		// First-boot seeding; a no-op once the account exists.
		email := envutil.String("ADMIN_BOOTSTRAP_EMAIL", "")
		password := envutil.String("ADMIN_BOOTSTRAP_PASSWORD", "")
		if email != "" && password != "" {
			if err := s.AdminAuth.EnsureAdmin(context.Background(), email, password); err != nil {
				return s, err
			}
		}
	}

	return s, nil
}
