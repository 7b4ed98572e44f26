package session

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/draftlane/draftlane-backend/internal/data/repos"
	"github.com/draftlane/draftlane-backend/internal/data/repos/testutil"
	types "github.com/draftlane/draftlane-backend/internal/domain"
	"github.com/draftlane/draftlane-backend/internal/domain/commerce"
	"github.com/draftlane/draftlane-backend/internal/platform/apierr"
	"github.com/draftlane/draftlane-backend/internal/platform/dbctx"
	"github.com/draftlane/draftlane-backend/internal/services/notifier"
	"github.com/draftlane/draftlane-backend/internal/services/token"
)

type sessFixture struct {
	db  *gorm.DB
	set repos.Set
	svc Service
}

func newSessFixture(t *testing.T) *sessFixture {
	t.Helper()
	gdb := testutil.MemoryDB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(gdb, log)
	issuer := token.NewIssuer(log, set.Session)
	svc := NewService(gdb, log, set.Session, set.ContentItem, set.ContentDomain, issuer, notifier.New(log, nil),
		30*time.Minute, "http://localhost:3000/verify")
	return &sessFixture{db: gdb, set: set, svc: svc}
}

func TestCreate_BacklinkUnitPricedFromStoreAndReserved(t *testing.T) {
	f := newSessFixture(t)
	ctx := context.Background()

	d := testutil.SeedDomain(t, ctx, f.db, "blog.example.com")
	item := testutil.SeedItem(t, ctx, f.db, d.ID, "existing-post", 4900)

	sess, err := f.svc.Create(ctx, "Buyer@Example.com", types.SessionKindSingle, []types.OrderUnit{
		{Type: commerce.UnitTypeBacklink, ContentItemID: item.ID,
			TargetURL: "https://customer.example.com", AnchorText: "customer",
			// client-supplied price is ignored
			PriceCents: 1},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sess.Email != "buyer@example.com" {
		t.Fatalf("email = %q, want normalized lowercase", sess.Email)
	}
	if sess.TotalPriceCents != 4900 {
		t.Fatalf("total = %d, want store price 4900", sess.TotalPriceCents)
	}
	if sess.Status != types.SessionStatusPendingAuth {
		t.Fatalf("status = %q, want pending_auth", sess.Status)
	}

	got, err := f.set.ContentItem.GetByID(dbctx.New(ctx), item.ID)
	if err != nil {
		t.Fatalf("reload item: %v", err)
	}
	if got.AvailabilityStatus != types.AvailabilityProcessing {
		t.Fatalf("item availability = %q, want processing (reserved)", got.AvailabilityStatus)
	}
}

func TestCreate_GenerationUnitPricedFromDomain(t *testing.T) {
	f := newSessFixture(t)
	ctx := context.Background()

	d := testutil.SeedDomain(t, ctx, f.db, "blog.example.com")

	// The client-supplied price is noise; the domain's base price wins.
	sess, err := f.svc.Create(ctx, "buyer@example.com", types.SessionKindGeneration, []types.OrderUnit{
		{Type: commerce.UnitTypeGeneration, Topic: "zero trust networks", DomainID: d.ID, PriceCents: 0},
		{Type: commerce.UnitTypeGeneration, Topic: "edge caching", DomainID: d.ID, PriceCents: 1},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sess.TotalPriceCents != 2*d.BasePriceCents {
		t.Fatalf("total = %d, want %d", sess.TotalPriceCents, 2*d.BasePriceCents)
	}
	units, err := commerce.UnmarshalUnits(sess.Units)
	if err != nil {
		t.Fatalf("decode units: %v", err)
	}
	for _, u := range units {
		if u.PriceCents != d.BasePriceCents {
			t.Fatalf("unit price = %d, want %d", u.PriceCents, d.BasePriceCents)
		}
	}
}

func TestCreate_UnpricedDomainRejected(t *testing.T) {
	f := newSessFixture(t)
	ctx := context.Background()

	d := testutil.SeedDomain(t, ctx, f.db, "blog.example.com")
	if err := f.db.Model(d).Update("base_price_cents", 0).Error; err != nil {
		t.Fatalf("clear base price: %v", err)
	}

	_, err := f.svc.Create(ctx, "buyer@example.com", types.SessionKindGeneration, []types.OrderUnit{
		{Type: commerce.UnitTypeGeneration, Topic: "zero trust networks", DomainID: d.ID, PriceCents: 14900},
	})
	if !apierr.IsCode(err, apierr.CodeConflict) {
		t.Fatalf("error = %v, want conflict", err)
	}
}

func TestCreate_UnavailableItemConflicts(t *testing.T) {
	f := newSessFixture(t)
	ctx := context.Background()

	d := testutil.SeedDomain(t, ctx, f.db, "blog.example.com")
	item := testutil.SeedItem(t, ctx, f.db, d.ID, "sold-post", 4900)
	if err := f.db.Model(item).Update("availability_status", types.AvailabilitySoldOut).Error; err != nil {
		t.Fatalf("mark sold out: %v", err)
	}

	_, err := f.svc.Create(ctx, "buyer@example.com", types.SessionKindSingle, []types.OrderUnit{
		{Type: commerce.UnitTypeBacklink, ContentItemID: item.ID,
			TargetURL: "https://customer.example.com", AnchorText: "customer"},
	})
	if !apierr.IsCode(err, apierr.CodeConflict) {
		t.Fatalf("error = %v, want conflict", err)
	}
}

func TestCreate_ValidationFailures(t *testing.T) {
	f := newSessFixture(t)
	ctx := context.Background()
	d := testutil.SeedDomain(t, ctx, f.db, "blog.example.com")
	genUnit := types.OrderUnit{Type: commerce.UnitTypeGeneration, Topic: "go", DomainID: d.ID, PriceCents: 9900}

	cases := []struct {
		name  string
		email string
		kind  string
		units []types.OrderUnit
	}{
		{"bad email", "not-an-email", types.SessionKindSingle, []types.OrderUnit{genUnit}},
		{"unknown kind", "buyer@example.com", "trial", []types.OrderUnit{genUnit}},
		{"no units", "buyer@example.com", types.SessionKindBulk, nil},
		{"single with two units", "buyer@example.com", types.SessionKindSingle, []types.OrderUnit{genUnit, genUnit}},
		{"invalid unit", "buyer@example.com", types.SessionKindSingle, []types.OrderUnit{{Type: "subscription"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tc.email, tc.kind, tc.units)
			if !apierr.IsCode(err, apierr.CodeValidation) {
				t.Fatalf("error = %v, want validation", err)
			}
		})
	}
}

func TestMarkPaymentPending_RequiresAuthenticatedSession(t *testing.T) {
	f := newSessFixture(t)
	ctx := context.Background()

	sess := testutil.SeedSession(t, ctx, f.db, "buyer@example.com", types.SessionKindGeneration,
		types.SessionStatusPendingAuth, nil)
	err := f.svc.MarkPaymentPending(ctx, sess.ID, "txn_1")
	if !apierr.IsCode(err, apierr.CodeConflict) {
		t.Fatalf("error = %v, want conflict", err)
	}

	if err := f.db.Model(sess).Update("status", types.SessionStatusAuthenticated).Error; err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if err := f.svc.MarkPaymentPending(ctx, sess.ID, "txn_1"); err != nil {
		t.Fatalf("mark payment pending: %v", err)
	}
	got, err := f.set.Session.GetByID(dbctx.New(ctx), sess.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != types.SessionStatusPaymentPending || got.PaymentRef != "txn_1" {
		t.Fatalf("session = (%q, %q), want payment_pending with ref", got.Status, got.PaymentRef)
	}
}

func TestSweepExpired_ReclaimsOnlyExpiredUnpaidSessions(t *testing.T) {
	f := newSessFixture(t)
	ctx := context.Background()

	d := testutil.SeedDomain(t, ctx, f.db, "blog.example.com")
	item := testutil.SeedItem(t, ctx, f.db, d.ID, "reserved-post", 4900)
	if err := f.db.Model(item).Update("availability_status", types.AvailabilityProcessing).Error; err != nil {
		t.Fatalf("reserve item: %v", err)
	}

	expired := testutil.SeedSession(t, ctx, f.db, "gone@example.com", types.SessionKindSingle,
		types.SessionStatusPendingAuth, []types.OrderUnit{
			{Type: commerce.UnitTypeBacklink, ContentItemID: item.ID,
				TargetURL: "https://customer.example.com", AnchorText: "x", PriceCents: 4900},
		})
	if err := f.db.Model(expired).Update("token_expires_at", time.Now().Add(-time.Hour)).Error; err != nil {
		t.Fatalf("expire session: %v", err)
	}

	fresh := testutil.SeedSession(t, ctx, f.db, "fresh@example.com", types.SessionKindGeneration,
		types.SessionStatusPendingAuth, nil)
	paying := testutil.SeedSession(t, ctx, f.db, "paying@example.com", types.SessionKindGeneration,
		types.SessionStatusPaymentPending, nil)
	if err := f.db.Model(paying).Update("token_expires_at", time.Now().Add(-time.Hour)).Error; err != nil {
		t.Fatalf("expire paying session: %v", err)
	}

	swept, err := f.svc.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept != 1 {
		t.Fatalf("swept = %d, want 1", swept)
	}

	if _, err := f.set.Session.GetByID(dbctx.New(ctx), expired.ID); !apierr.IsCode(err, apierr.CodeNotFound) {
		t.Fatalf("expired session lookup = %v, want not found", err)
	}
	for _, keep := range []*types.PurchaseSession{fresh, paying} {
		if _, err := f.set.Session.GetByID(dbctx.New(ctx), keep.ID); err != nil {
			t.Fatalf("session %s should survive the sweep: %v", keep.Email, err)
		}
	}

	got, err := f.set.ContentItem.GetByID(dbctx.New(ctx), item.ID)
	if err != nil {
		t.Fatalf("reload item: %v", err)
	}
	if got.AvailabilityStatus != types.AvailabilityAvailable {
		t.Fatalf("item availability = %q, want released to available", got.AvailabilityStatus)
	}
}
