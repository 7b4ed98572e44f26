package commerce

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WebhookEvent captures every signed gateway notification for audit and for
// fast dedup by provider event id before the order-level idempotency gate.
type WebhookEvent struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Provider        string         `gorm:"not null;uniqueIndex:idx_webhook_event_provider_event,priority:1" json:"provider"`
	ProviderEventID string         `gorm:"not null;uniqueIndex:idx_webhook_event_provider_event,priority:2" json:"provider_event_id"`
	EventType       string         `gorm:"not null;index;column:event_type" json:"event_type"`
	Payload         datatypes.JSON `gorm:"type:jsonb;column:payload" json:"payload"`
	ProcessedAt     *time.Time     `gorm:"column:processed_at" json:"processed_at,omitempty"`
	ProcessingError string         `gorm:"column:processing_error" json:"processing_error,omitempty"`
	CreatedAt       time.Time      `gorm:"not null;index" json:"created_at"`
}

func (WebhookEvent) TableName() string { return "webhook_event" }

func (e *WebhookEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
