package admin

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdminUser authorizes review/refund/publish operations. There is no cookie
// or session plumbing here: login exchanges credentials for a short-lived
// bearer token and that is the whole surface.
type AdminUser struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string         `gorm:"not null;uniqueIndex;column:email" json:"email"`
	PasswordHash string         `gorm:"not null;column:password_hash" json:"-"`
	Active       bool           `gorm:"not null;default:true;column:active" json:"active"`
	CreatedAt    time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (AdminUser) TableName() string { return "admin_user" }

func (u *AdminUser) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
