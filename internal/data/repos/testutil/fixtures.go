package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/draftlane/draftlane-backend/internal/domain"
	"github.com/draftlane/draftlane-backend/internal/domain/commerce"
)

func SeedDomain(tb testing.TB, ctx context.Context, tx *gorm.DB, host string) *types.ContentDomain {
	tb.Helper()
	d := &types.ContentDomain{
		ID:             uuid.New(),
		Host:           host,
		SiteBucket:     host + "-site",
		BasePriceCents: 14900,
		Active:         true,
	}
	if err := tx.WithContext(ctx).Create(d).Error; err != nil {
		tb.Fatalf("seed domain: %v", err)
	}
	return d
}

func SeedItem(tb testing.TB, ctx context.Context, tx *gorm.DB, domainID uuid.UUID, slug string, priceCents int64) *types.ContentItem {
	tb.Helper()
	i := &types.ContentItem{
		ID:                 uuid.New(),
		DomainID:           domainID,
		Slug:               slug,
		Topic:              "topic-" + slug,
		PriceCents:         priceCents,
		Currency:           "usd",
		AvailabilityStatus: types.AvailabilityAvailable,
	}
	if err := tx.WithContext(ctx).Create(i).Error; err != nil {
		tb.Fatalf("seed item: %v", err)
	}
	return i
}

func SeedSession(tb testing.TB, ctx context.Context, tx *gorm.DB, email, kind, status string, units []types.OrderUnit) *types.PurchaseSession {
	tb.Helper()
	raw, err := marshalUnits(units)
	if err != nil {
		tb.Fatalf("marshal units: %v", err)
	}
	var total int64
	for _, u := range units {
		total += u.PriceCents
	}
	s := &types.PurchaseSession{
		ID:              uuid.New(),
		Email:           email,
		Kind:            kind,
		Units:           raw,
		TotalPriceCents: total,
		Currency:        "usd",
		Status:          status,
		TokenDigest:     uuid.NewString(),
		TokenExpiresAt:  time.Now().Add(time.Hour),
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed session: %v", err)
	}
	return s
}

func SeedOrder(tb testing.TB, ctx context.Context, tx *gorm.DB, sessionID *uuid.UUID, itemID uuid.UUID, txnID, status string) *types.Order {
	tb.Helper()
	o := &types.Order{
		ID:            uuid.New(),
		SessionID:     sessionID,
		ContentItemID: itemID,
		CustomerEmail: "buyer@example.com",
		Unit:          datatypes.JSON([]byte(`{"type":"generation","topic":"t","price_cents":1000}`)),
		GatewayTxnID:  txnID,
		AmountCents:   1000,
		Currency:      "usd",
		PaymentStatus: types.PaymentStatusCaptured,
		Status:        status,
	}
	if err := tx.WithContext(ctx).Create(o).Error; err != nil {
		tb.Fatalf("seed order: %v", err)
	}
	return o
}

func SeedVersion(tb testing.TB, ctx context.Context, tx *gorm.DB, itemID uuid.UUID, num int, reviewStatus string) *types.ContentVersion {
	tb.Helper()
	v := &types.ContentVersion{
		ID:            uuid.New(),
		ContentItemID: itemID,
		VersionNum:    num,
		Body:          "body",
		QCStatus:      types.QCStatusPassed,
		ReviewStatus:  reviewStatus,
	}
	if err := tx.WithContext(ctx).Create(v).Error; err != nil {
		tb.Fatalf("seed version: %v", err)
	}
	return v
}

func marshalUnits(units []types.OrderUnit) (datatypes.JSON, error) {
	if len(units) == 0 {
		return datatypes.JSON([]byte("[]")), nil
	}
	raw, err := commerce.MarshalUnits(units)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
