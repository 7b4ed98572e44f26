package repos

import (
	"gorm.io/gorm"

	"github.com/draftlane/draftlane-backend/internal/data/repos/admin"
	"github.com/draftlane/draftlane-backend/internal/data/repos/catalog"
	"github.com/draftlane/draftlane-backend/internal/data/repos/commerce"
	"github.com/draftlane/draftlane-backend/internal/data/repos/content"
	"github.com/draftlane/draftlane-backend/internal/data/repos/jobs"
	"github.com/draftlane/draftlane-backend/internal/platform/logger"
)

type ContentDomainRepo = catalog.ContentDomainRepo
type ContentItemRepo = catalog.ContentItemRepo

type SessionRepo = commerce.SessionRepo
type OrderRepo = commerce.OrderRepo
type WebhookEventRepo = commerce.WebhookEventRepo

type VersionRepo = content.VersionRepo

type JobRunRepo = jobs.JobRunRepo

type AdminUserRepo = admin.AdminUserRepo

// Set bundles every repo for wiring.
type Set struct {
	ContentDomain ContentDomainRepo
	ContentItem   ContentItemRepo
	Session       SessionRepo
	Order         OrderRepo
	WebhookEvent  WebhookEventRepo
	Version       VersionRepo
	JobRun        JobRunRepo
	AdminUser     AdminUserRepo
}

func NewSet(db *gorm.DB, baseLog *logger.Logger) Set {
	return Set{
		ContentDomain: catalog.NewContentDomainRepo(db, baseLog),
		ContentItem:   catalog.NewContentItemRepo(db, baseLog),
		Session:       commerce.NewSessionRepo(db, baseLog),
		Order:         commerce.NewOrderRepo(db, baseLog),
		WebhookEvent:  commerce.NewWebhookEventRepo(db, baseLog),
		Version:       content.NewVersionRepo(db, baseLog),
		JobRun:        jobs.NewJobRunRepo(db, baseLog),
		AdminUser:     admin.NewAdminUserRepo(db, baseLog),
	}
}
