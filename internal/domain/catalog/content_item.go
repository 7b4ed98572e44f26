package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// AvailabilityAvailable: the slot can be reserved by a new session.
	AvailabilityAvailable = "available"
	// AvailabilityProcessing: reserved by a pending session or an in-flight
	// order. Released back to available on expiry, failure, or refund.
	AvailabilityProcessing = "processing"
	// AvailabilitySoldOut: terminal, for backlink-slot items whose placement
	// completed.
	AvailabilitySoldOut = "sold_out"
)

// ContentItem is an article slot on a domain that can hold generated content
// or a backlink placement.
type ContentItem struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DomainID           uuid.UUID      `gorm:"type:uuid;not null;index;uniqueIndex:idx_content_item_domain_slug,priority:1" json:"domain_id"`
	Domain             *ContentDomain `gorm:"foreignKey:DomainID;references:ID" json:"domain,omitempty"`
	Slug               string         `gorm:"not null;column:slug;uniqueIndex:idx_content_item_domain_slug,priority:2" json:"slug"`
	Topic              string         `gorm:"column:topic" json:"topic"`
	PriceCents         int64          `gorm:"not null;default:0;column:price_cents" json:"price_cents"`
	Currency           string         `gorm:"not null;default:'usd';column:currency" json:"currency"`
	AvailabilityStatus string         `gorm:"not null;default:'available';index;column:availability_status" json:"availability_status"`
	PublishedURL       string         `gorm:"column:published_url" json:"published_url,omitempty"`
	PublishedAt        *time.Time     `gorm:"column:published_at" json:"published_at,omitempty"`
	CreatedAt          time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ContentItem) TableName() string { return "content_item" }

func (i *ContentItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
