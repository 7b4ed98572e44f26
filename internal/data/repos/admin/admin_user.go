package admin

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	types "github.com/draftlane/draftlane-backend/internal/domain"
	"github.com/draftlane/draftlane-backend/internal/platform/apierr"
	"github.com/draftlane/draftlane-backend/internal/platform/dbctx"
	"github.com/draftlane/draftlane-backend/internal/platform/logger"
)

type AdminUserRepo interface {
	Create(dbc dbctx.Context, user *types.AdminUser) (*types.AdminUser, error)
	GetByEmail(dbc dbctx.Context, email string) (*types.AdminUser, error)
}

type adminUserRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAdminUserRepo(db *gorm.DB, baseLog *logger.Logger) AdminUserRepo {
	return &adminUserRepo{db: db, log: baseLog.With("repo", "AdminUserRepo")}
}

func (r *adminUserRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *adminUserRepo) Create(dbc dbctx.Context, user *types.AdminUser) (*types.AdminUser, error) {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if err := r.handle(dbc).WithContext(dbc.Ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apierr.Conflict("admin_user.create", "email already registered")
		}
		return nil, err
	}
	return user, nil
}

func (r *adminUserRepo) GetByEmail(dbc dbctx.Context, email string) (*types.AdminUser, error) {
	var u types.AdminUser
	err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.NotFound("admin_user.get", "admin not found")
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
