package db

import (
	types "github.com/draftlane/draftlane-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// Catalog
		&types.ContentDomain{},
		&types.ContentItem{},

		// Commerce
		&types.PurchaseSession{},
		&types.Order{},
		&types.WebhookEvent{},

		// Content
		&types.ContentVersion{},

		// Fulfillment queue
		&types.JobRun{},

		// Admin
		&types.AdminUser{},
	)
}
