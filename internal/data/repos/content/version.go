package content

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/draftlane/draftlane-backend/internal/domain"
	"github.com/draftlane/draftlane-backend/internal/platform/apierr"
	"github.com/draftlane/draftlane-backend/internal/platform/dbctx"
	"github.com/draftlane/draftlane-backend/internal/platform/logger"
)

type VersionRepo interface {
	// AppendVersion creates the next version for an item, assigning the
	// monotonic version_num inside the caller's transaction. The unique
	// (content_item_id, version_num) index backstops concurrent appends.
	AppendVersion(dbc dbctx.Context, version *types.ContentVersion) (*types.ContentVersion, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ContentVersion, error)
	LatestForItem(dbc dbctx.Context, itemID uuid.UUID) (*types.ContentVersion, error)
	SetReviewStatus(dbc dbctx.Context, id uuid.UUID, status, note string) error
	SetQCStatus(dbc dbctx.Context, id uuid.UUID, status string) error
	ListPendingReview(dbc dbctx.Context, limit int) ([]*types.ContentVersion, error)
}

type versionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVersionRepo(db *gorm.DB, baseLog *logger.Logger) VersionRepo {
	return &versionRepo{db: db, log: baseLog.With("repo", "VersionRepo")}
}

func (r *versionRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *versionRepo) AppendVersion(dbc dbctx.Context, version *types.ContentVersion) (*types.ContentVersion, error) {
	if version.ContentItemID == uuid.Nil {
		return nil, apierr.Validation("content_version.append", "content_item_id required")
	}
	h := r.handle(dbc).WithContext(dbc.Ctx)
	var maxNum int
	row := h.Model(&types.ContentVersion{}).
		Where("content_item_id = ?", version.ContentItemID).
		Select("COALESCE(MAX(version_num), 0)").
		Row()
	if err := row.Scan(&maxNum); err != nil {
		return nil, err
	}
	version.VersionNum = maxNum + 1
	if err := h.Create(version).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apierr.Conflict("content_version.append", "concurrent version append")
		}
		return nil, err
	}
	return version, nil
}

func (r *versionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ContentVersion, error) {
	var v types.ContentVersion
	err := r.handle(dbc).WithContext(dbc.Ctx).Where("id = ?", id).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.NotFound("content_version.get", "version not found")
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *versionRepo) LatestForItem(dbc dbctx.Context, itemID uuid.UUID) (*types.ContentVersion, error) {
	var v types.ContentVersion
	err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("content_item_id = ?", itemID).
		Order("version_num DESC").
		Limit(1).
		Find(&v).Error
	if err != nil {
		return nil, err
	}
	if v.ID == uuid.Nil {
		return nil, nil
	}
	return &v, nil
}

func (r *versionRepo) SetReviewStatus(dbc dbctx.Context, id uuid.UUID, status, note string) error {
	return r.handle(dbc).WithContext(dbc.Ctx).
		Model(&types.ContentVersion{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"review_status": status,
			"review_note":   note,
		}).Error
}

func (r *versionRepo) SetQCStatus(dbc dbctx.Context, id uuid.UUID, status string) error {
	return r.handle(dbc).WithContext(dbc.Ctx).
		Model(&types.ContentVersion{}).
		Where("id = ?", id).
		Update("qc_status", status).Error
}

func (r *versionRepo) ListPendingReview(dbc dbctx.Context, limit int) ([]*types.ContentVersion, error) {
	q := r.handle(dbc).WithContext(dbc.Ctx).
		Where("review_status = ?", types.ReviewStatusPending).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.ContentVersion
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
