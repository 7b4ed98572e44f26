package commerce

import (
	"errors"
	"time"

	"gorm.io/gorm"

	types "github.com/draftlane/draftlane-backend/internal/domain"
	"github.com/draftlane/draftlane-backend/internal/platform/apierr"
	"github.com/draftlane/draftlane-backend/internal/platform/dbctx"
	"github.com/draftlane/draftlane-backend/internal/platform/logger"
)

type WebhookEventRepo interface {
	// Insert records a received event. A second insert for the same
	// (provider, provider_event_id) returns a conflict.
	Insert(dbc dbctx.Context, event *types.WebhookEvent) (*types.WebhookEvent, error)
	GetByProviderEventID(dbc dbctx.Context, provider, providerEventID string) (*types.WebhookEvent, error)
	MarkProcessed(dbc dbctx.Context, event *types.WebhookEvent, processingErr string) error
}

type webhookEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWebhookEventRepo(db *gorm.DB, baseLog *logger.Logger) WebhookEventRepo {
	return &webhookEventRepo{db: db, log: baseLog.With("repo", "WebhookEventRepo")}
}

func (r *webhookEventRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *webhookEventRepo) Insert(dbc dbctx.Context, event *types.WebhookEvent) (*types.WebhookEvent, error) {
	if err := r.handle(dbc).WithContext(dbc.Ctx).Create(event).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apierr.Conflict("webhook_event.insert", "event already received")
		}
		return nil, err
	}
	return event, nil
}

func (r *webhookEventRepo) GetByProviderEventID(dbc dbctx.Context, provider, providerEventID string) (*types.WebhookEvent, error) {
	var e types.WebhookEvent
	err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("provider = ? AND provider_event_id = ?", provider, providerEventID).
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.NotFound("webhook_event.get", "event not found")
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *webhookEventRepo) MarkProcessed(dbc dbctx.Context, event *types.WebhookEvent, processingErr string) error {
	now := time.Now()
	return r.handle(dbc).WithContext(dbc.Ctx).
		Model(&types.WebhookEvent{}).
		Where("id = ?", event.ID).
		Updates(map[string]interface{}{
			"processed_at":     now,
			"processing_error": processingErr,
		}).Error
}
