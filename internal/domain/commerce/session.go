package commerce

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	SessionKindSingle     = "single"
	SessionKindBulk       = "bulk"
	SessionKindGeneration = "generation"
)

const (
	SessionStatusPendingAuth    = "pending_auth"
	SessionStatusAuthenticated  = "authenticated"
	SessionStatusPaymentPending = "payment_pending"
	SessionStatusPaid           = "paid"
	SessionStatusFailed         = "failed"
)

// PurchaseSession is a customer's cart from creation through payment.
// The magic-link token is stored as a sha256 digest; the plaintext is only
// ever held by the customer.
type PurchaseSession struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email           string         `gorm:"not null;index;column:email" json:"email"`
	Kind            string         `gorm:"not null;column:kind" json:"kind"`
	Units           datatypes.JSON `gorm:"type:jsonb;not null;column:units" json:"units"`
	TotalPriceCents int64          `gorm:"not null;default:0;column:total_price_cents" json:"total_price_cents"`
	Currency        string         `gorm:"not null;default:'usd';column:currency" json:"currency"`
	Status          string         `gorm:"not null;default:'pending_auth';index;column:status" json:"status"`
	TokenDigest     string         `gorm:"uniqueIndex;column:token_digest" json:"-"`
	TokenExpiresAt  time.Time      `gorm:"not null;index;column:token_expires_at" json:"token_expires_at"`
	PaymentRef      string         `gorm:"index;column:payment_ref" json:"payment_ref,omitempty"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (PurchaseSession) TableName() string { return "purchase_session" }

func (s *PurchaseSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Sweepable reports whether the expiry sweep may reclaim this session.
// Anything at or past payment_pending is left alone: the webhook path owns
// those and a late notification must still find its session.
func (s *PurchaseSession) Sweepable(now time.Time) bool {
	if s.Status != SessionStatusPendingAuth && s.Status != SessionStatusAuthenticated {
		return false
	}
	return now.After(s.TokenExpiresAt)
}
