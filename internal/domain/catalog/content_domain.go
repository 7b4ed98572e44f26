package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContentDomain is a third-party site that placements are published onto.
type ContentDomain struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Host       string    `gorm:"not null;uniqueIndex;column:host" json:"host"`
	SiteBucket string    `gorm:"not null;column:site_bucket" json:"site_bucket"`
	// BasePriceCents is what a generated article on this domain sells for.
	// Unit prices for generation units always come from here, never from
	// the client payload.
	BasePriceCents int64          `gorm:"not null;default:0;column:base_price_cents" json:"base_price_cents"`
	Active         bool           `gorm:"not null;default:true;column:active" json:"active"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ContentDomain) TableName() string { return "content_domain" }

func (d *ContentDomain) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
