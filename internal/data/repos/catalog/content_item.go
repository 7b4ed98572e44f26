package catalog

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/draftlane/draftlane-backend/internal/domain"
	"github.com/draftlane/draftlane-backend/internal/platform/apierr"
	"github.com/draftlane/draftlane-backend/internal/platform/dbctx"
	"github.com/draftlane/draftlane-backend/internal/platform/logger"
)

type ContentItemRepo interface {
	Create(dbc dbctx.Context, items []*types.ContentItem) ([]*types.ContentItem, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ContentItem, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.ContentItem, error)
	ListAvailable(dbc dbctx.Context, domainID *uuid.UUID, limit int) ([]*types.ContentItem, error)
	// Reserve flips available items to processing. It fails with a conflict
	// when any requested item is no longer available, leaving the caller's
	// transaction to roll the rest back.
	Reserve(dbc dbctx.Context, ids []uuid.UUID) error
	SetAvailability(dbc dbctx.Context, id uuid.UUID, status string) error
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// Release returns items to available unless they are already sold out.
	Release(dbc dbctx.Context, ids []uuid.UUID) error
}

type contentItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentItemRepo(db *gorm.DB, baseLog *logger.Logger) ContentItemRepo {
	return &contentItemRepo{db: db, log: baseLog.With("repo", "ContentItemRepo")}
}

func (r *contentItemRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *contentItemRepo) Create(dbc dbctx.Context, items []*types.ContentItem) ([]*types.ContentItem, error) {
	if len(items) == 0 {
		return []*types.ContentItem{}, nil
	}
	if err := r.handle(dbc).WithContext(dbc.Ctx).Create(&items).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apierr.Conflict("content_item.create", "slug already exists on domain")
		}
		return nil, err
	}
	return items, nil
}

func (r *contentItemRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ContentItem, error) {
	var item types.ContentItem
	err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.NotFound("content_item.get", "content item not found")
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *contentItemRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.ContentItem, error) {
	var out []*types.ContentItem
	if len(ids) == 0 {
		return out, nil
	}
	if err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *contentItemRepo) ListAvailable(dbc dbctx.Context, domainID *uuid.UUID, limit int) ([]*types.ContentItem, error) {
	q := r.handle(dbc).WithContext(dbc.Ctx).
		Where("availability_status = ?", types.AvailabilityAvailable)
	if domainID != nil {
		q = q.Where("domain_id = ?", *domainID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.ContentItem
	if err := q.Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *contentItemRepo) Reserve(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	res := r.handle(dbc).WithContext(dbc.Ctx).
		Model(&types.ContentItem{}).
		Where("id IN ? AND availability_status = ?", ids, types.AvailabilityAvailable).
		Update("availability_status", types.AvailabilityProcessing)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != int64(len(ids)) {
		return apierr.Conflict("content_item.reserve", "one or more items are no longer available")
	}
	return nil
}

func (r *contentItemRepo) SetAvailability(dbc dbctx.Context, id uuid.UUID, status string) error {
	return r.handle(dbc).WithContext(dbc.Ctx).
		Model(&types.ContentItem{}).
		Where("id = ?", id).
		Update("availability_status", status).Error
}

func (r *contentItemRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return r.handle(dbc).WithContext(dbc.Ctx).
		Model(&types.ContentItem{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *contentItemRepo) Release(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.handle(dbc).WithContext(dbc.Ctx).
		Model(&types.ContentItem{}).
		Where("id IN ? AND availability_status <> ?", ids, types.AvailabilitySoldOut).
		Update("availability_status", types.AvailabilityAvailable).Error
}
