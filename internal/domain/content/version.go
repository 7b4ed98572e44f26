package content

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	QCStatusPending = "pending"
	QCStatusPassed  = "passed"
	QCStatusFlagged = "flagged"
)

const (
	ReviewStatusPending  = "pending_review"
	ReviewStatusApproved = "approved"
	ReviewStatusRejected = "rejected"
)

// ContentVersion is an immutable snapshot of an item's body. Edits append a
// new version with the next version_num; rows are never mutated after
// creation except for the qc/review verdict columns.
type ContentVersion struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ContentItemID uuid.UUID      `gorm:"type:uuid;not null;index;uniqueIndex:idx_content_version_item_num,priority:1" json:"content_item_id"`
	VersionNum    int            `gorm:"not null;uniqueIndex:idx_content_version_item_num,priority:2;column:version_num" json:"version_num"`
	Body          string         `gorm:"type:text;not null;column:body" json:"body"`
	QCStatus      string         `gorm:"not null;default:'pending';column:qc_status" json:"qc_status"`
	ReviewStatus  string         `gorm:"not null;default:'pending_review';index;column:review_status" json:"review_status"`
	ReviewNote    string         `gorm:"column:review_note" json:"review_note,omitempty"`
	Metadata      datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata,omitempty"`
	CreatedAt     time.Time      `gorm:"not null;index" json:"created_at"`
}

func (ContentVersion) TableName() string { return "content_version" }

func (v *ContentVersion) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
