package commerce

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/draftlane/draftlane-backend/internal/domain"
	"github.com/draftlane/draftlane-backend/internal/platform/apierr"
	"github.com/draftlane/draftlane-backend/internal/platform/dbctx"
	"github.com/draftlane/draftlane-backend/internal/platform/logger"
)

type SessionRepo interface {
	Create(dbc dbctx.Context, session *types.PurchaseSession) (*types.PurchaseSession, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.PurchaseSession, error)
	GetByTokenDigest(dbc dbctx.Context, digest string) (*types.PurchaseSession, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// UpdateStatusIf transitions status only when the current status matches;
	// returns false without error when the guard does not hold.
	UpdateStatusIf(dbc dbctx.Context, id uuid.UUID, from []string, to string) (bool, error)
	// ListSweepable returns sessions the expiry sweep may reclaim: still in
	// pre-payment status with an expired token.
	ListSweepable(dbc dbctx.Context, now time.Time, limit int) ([]*types.PurchaseSession, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return &sessionRepo{db: db, log: baseLog.With("repo", "SessionRepo")}
}

func (r *sessionRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *sessionRepo) Create(dbc dbctx.Context, session *types.PurchaseSession) (*types.PurchaseSession, error) {
	if err := r.handle(dbc).WithContext(dbc.Ctx).Create(session).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apierr.Conflict("session.create", "token digest collision")
		}
		return nil, err
	}
	return session, nil
}

func (r *sessionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.PurchaseSession, error) {
	var s types.PurchaseSession
	err := r.handle(dbc).WithContext(dbc.Ctx).Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.NotFound("session.get", "session not found")
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) GetByTokenDigest(dbc dbctx.Context, digest string) (*types.PurchaseSession, error) {
	var s types.PurchaseSession
	err := r.handle(dbc).WithContext(dbc.Ctx).Where("token_digest = ?", digest).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.NotFound("session.get_by_token", "unknown token")
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now()
	return r.handle(dbc).WithContext(dbc.Ctx).
		Model(&types.PurchaseSession{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *sessionRepo) UpdateStatusIf(dbc dbctx.Context, id uuid.UUID, from []string, to string) (bool, error) {
	res := r.handle(dbc).WithContext(dbc.Ctx).
		Model(&types.PurchaseSession{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]interface{}{"status": to, "updated_at": time.Now()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *sessionRepo) ListSweepable(dbc dbctx.Context, now time.Time, limit int) ([]*types.PurchaseSession, error) {
	q := r.handle(dbc).WithContext(dbc.Ctx).
		Where("status IN ? AND token_expires_at < ?",
			[]string{types.SessionStatusPendingAuth, types.SessionStatusAuthenticated}, now).
		Order("token_expires_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.PurchaseSession
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sessionRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return r.handle(dbc).WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&types.PurchaseSession{}).Error
}
