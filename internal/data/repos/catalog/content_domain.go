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

type ContentDomainRepo interface {
	Create(dbc dbctx.Context, domains []*types.ContentDomain) ([]*types.ContentDomain, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ContentDomain, error)
	ListActive(dbc dbctx.Context) ([]*types.ContentDomain, error)
}

type contentDomainRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentDomainRepo(db *gorm.DB, baseLog *logger.Logger) ContentDomainRepo {
	return &contentDomainRepo{db: db, log: baseLog.With("repo", "ContentDomainRepo")}
}

func (r *contentDomainRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *contentDomainRepo) Create(dbc dbctx.Context, domains []*types.ContentDomain) ([]*types.ContentDomain, error) {
	if len(domains) == 0 {
		return []*types.ContentDomain{}, nil
	}
	if err := r.handle(dbc).WithContext(dbc.Ctx).Create(&domains).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apierr.Conflict("content_domain.create", "host already registered")
		}
		return nil, err
	}
	return domains, nil
}

func (r *contentDomainRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ContentDomain, error) {
	var d types.ContentDomain
	err := r.handle(dbc).WithContext(dbc.Ctx).Where("id = ?", id).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.NotFound("content_domain.get", "domain not found")
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *contentDomainRepo) ListActive(dbc dbctx.Context) ([]*types.ContentDomain, error) {
	var out []*types.ContentDomain
	if err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("active = ?", true).
		Order("host ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
