package commerce

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	OrderStatusProcessing   = "processing"
	OrderStatusQualityCheck = "quality_check"
	OrderStatusAdminReview  = "admin_review"
	OrderStatusCompleted    = "completed"
	OrderStatusFailed       = "failed"
	OrderStatusRefunded     = "refunded"
)

const (
	PaymentStatusCaptured = "captured"
	PaymentStatusRefunded = "refunded"
)

// Order is one paid unit of fulfillment work. The unique index on
// (gateway_txn_id, content_item_id) is the idempotency backstop: a duplicate
// payment notification racing through the create path loses on this index,
// never by a check-then-act read.
type Order struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID     *uuid.UUID     `gorm:"type:uuid;index;column:session_id;uniqueIndex:idx_order_session_item,priority:1" json:"session_id,omitempty"`
	ContentItemID uuid.UUID      `gorm:"type:uuid;not null;index;column:content_item_id;uniqueIndex:idx_order_session_item,priority:2;uniqueIndex:idx_order_txn_item,priority:2" json:"content_item_id"`
	CustomerEmail string         `gorm:"not null;index;column:customer_email" json:"customer_email"`
	Unit          datatypes.JSON `gorm:"type:jsonb;not null;column:unit" json:"unit"`

	// Payment record: the externally verifiable source of truth for
	// "did money move".
	GatewayTxnID  string `gorm:"not null;column:gateway_txn_id;uniqueIndex:idx_order_txn_item,priority:1" json:"gateway_txn_id"`
	AmountCents   int64  `gorm:"not null;column:amount_cents" json:"amount_cents"`
	Currency      string `gorm:"not null;default:'usd';column:currency" json:"currency"`
	PaymentStatus string `gorm:"not null;default:'captured';column:payment_status" json:"payment_status"`

	Status     string     `gorm:"not null;default:'processing';index;column:status" json:"status"`
	VersionID  *uuid.UUID `gorm:"type:uuid;column:version_id" json:"version_id,omitempty"`
	FailReason string     `gorm:"column:fail_reason" json:"fail_reason,omitempty"`

	RefundID   string     `gorm:"column:refund_id" json:"refund_id,omitempty"`
	RefundedAt *time.Time `gorm:"column:refunded_at" json:"refunded_at,omitempty"`

	CreatedAt   time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
	CompletedAt *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// orderStatusRank orders the lifecycle for monotonic transition checks.
// Terminal states share the top rank; refunded may follow failed.
var orderStatusRank = map[string]int{
	OrderStatusProcessing:   0,
	OrderStatusQualityCheck: 1,
	OrderStatusAdminReview:  2,
	OrderStatusCompleted:    3,
	OrderStatusFailed:       3,
	OrderStatusRefunded:     4,
}

// CanTransition reports whether moving from -> to respects monotonic order
// lifecycle. A stale worker writing an earlier status is rejected.
func CanTransition(from, to string) bool {
	fr, ok := orderStatusRank[from]
	if !ok {
		return false
	}
	tr, ok := orderStatusRank[to]
	if !ok {
		return false
	}
	if from == OrderStatusCompleted && to == OrderStatusFailed {
		return false
	}
	if from == OrderStatusCompleted && to == OrderStatusRefunded {
		return true
	}
	return tr > fr
}
