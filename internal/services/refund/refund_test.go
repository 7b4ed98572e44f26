package refund

import (
	"context"
	"fmt"
	"testing"

	"gorm.io/gorm"

	"github.com/draftlane/draftlane-backend/internal/clients/stripe"
	"github.com/draftlane/draftlane-backend/internal/data/repos"
	"github.com/draftlane/draftlane-backend/internal/data/repos/testutil"
	types "github.com/draftlane/draftlane-backend/internal/domain"
	"github.com/draftlane/draftlane-backend/internal/platform/apierr"
	"github.com/draftlane/draftlane-backend/internal/platform/dbctx"
	"github.com/draftlane/draftlane-backend/internal/services/notifier"
)

// refundGateway records refund calls so tests can assert how often money
// actually moved.
type refundGateway struct {
	calls     int
	refundErr error
}

func (g *refundGateway) Refund(ctx context.Context, paymentRef string, amountCents int64) (string, error) {
	g.calls++
	if g.refundErr != nil {
		return "", g.refundErr
	}
	return fmt.Sprintf("re_%d", g.calls), nil
}

func (g *refundGateway) CreateCheckout(ctx context.Context, session *types.PurchaseSession, units []types.OrderUnit) (*stripe.Checkout, error) {
	return nil, fmt.Errorf("not used")
}

func (g *refundGateway) VerifyNotification(payload []byte, sigHeader string) (*stripe.Notification, error) {
	return nil, fmt.Errorf("not used")
}

func (g *refundGateway) RetrieveTransaction(ctx context.Context, txnID string) (*stripe.Transaction, error) {
	return nil, fmt.Errorf("not used")
}

func TestRefund_MovesOrderToRefundedAndReleasesItem(t *testing.T) {
	f := newRefundFixture(t)
	ctx := context.Background()

	d := testutil.SeedDomain(t, ctx, f.db, "blog.example.com")
	item := testutil.SeedItem(t, ctx, f.db, d.ID, "post", 4900)
	if err := f.db.Model(item).Update("availability_status", types.AvailabilityProcessing).Error; err != nil {
		t.Fatalf("reserve item: %v", err)
	}
	order := testutil.SeedOrder(t, ctx, f.db, nil, item.ID, "txn_1", types.OrderStatusProcessing)

	res, err := f.svc.Refund(ctx, order.ID, "customer request")
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if res.Already {
		t.Fatal("fresh refund reported Already")
	}
	if res.RefundID == "" {
		t.Fatal("refund id empty")
	}
	if f.gateway.calls != 1 {
		t.Fatalf("gateway refund calls = %d, want 1", f.gateway.calls)
	}

	got, err := f.set.Order.GetByID(dbctx.New(ctx), order.ID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if got.Status != types.OrderStatusRefunded || got.PaymentStatus != types.PaymentStatusRefunded {
		t.Fatalf("order = (%q, %q), want refunded/refunded", got.Status, got.PaymentStatus)
	}
	if got.RefundedAt == nil {
		t.Fatal("refunded_at not set")
	}

	reloaded, err := f.set.ContentItem.GetByID(dbctx.New(ctx), item.ID)
	if err != nil {
		t.Fatalf("reload item: %v", err)
	}
	if reloaded.AvailabilityStatus != types.AvailabilityAvailable {
		t.Fatalf("item availability = %q, want available", reloaded.AvailabilityStatus)
	}
}

func TestRefund_SecondCallIsNoOp(t *testing.T) {
	f := newRefundFixture(t)
	ctx := context.Background()

	d := testutil.SeedDomain(t, ctx, f.db, "blog.example.com")
	item := testutil.SeedItem(t, ctx, f.db, d.ID, "post", 4900)
	order := testutil.SeedOrder(t, ctx, f.db, nil, item.ID, "txn_1", types.OrderStatusProcessing)

	first, err := f.svc.Refund(ctx, order.ID, "customer request")
	if err != nil {
		t.Fatalf("first refund: %v", err)
	}
	second, err := f.svc.Refund(ctx, order.ID, "retry")
	if err != nil {
		t.Fatalf("second refund: %v", err)
	}
	if !second.Already {
		t.Fatal("second refund did not report Already")
	}
	if second.RefundID != first.RefundID {
		t.Fatalf("second refund id = %q, want %q", second.RefundID, first.RefundID)
	}
	if f.gateway.calls != 1 {
		t.Fatalf("gateway refund calls = %d, want 1 (no double refund)", f.gateway.calls)
	}
}

func TestRefund_OrderWithoutPaymentRefRejected(t *testing.T) {
	f := newRefundFixture(t)
	ctx := context.Background()

	d := testutil.SeedDomain(t, ctx, f.db, "blog.example.com")
	item := testutil.SeedItem(t, ctx, f.db, d.ID, "post", 4900)
	order := testutil.SeedOrder(t, ctx, f.db, nil, item.ID, "txn_1", types.OrderStatusProcessing)
	if err := f.db.Model(order).Update("gateway_txn_id", "").Error; err != nil {
		t.Fatalf("clear txn: %v", err)
	}

	_, err := f.svc.Refund(ctx, order.ID, "customer request")
	if !apierr.IsCode(err, apierr.CodeValidation) {
		t.Fatalf("error = %v, want validation", err)
	}
	if f.gateway.calls != 0 {
		t.Fatalf("gateway refund calls = %d, want 0", f.gateway.calls)
	}
}

func TestRefund_GatewayFailureLeavesOrderUntouched(t *testing.T) {
	f := newRefundFixture(t)
	ctx := context.Background()
	f.gateway.refundErr = apierr.Transient("fake.refund", fmt.Errorf("gateway unavailable"))

	d := testutil.SeedDomain(t, ctx, f.db, "blog.example.com")
	item := testutil.SeedItem(t, ctx, f.db, d.ID, "post", 4900)
	order := testutil.SeedOrder(t, ctx, f.db, nil, item.ID, "txn_1", types.OrderStatusProcessing)

	_, err := f.svc.Refund(ctx, order.ID, "customer request")
	if err == nil {
		t.Fatal("expected gateway error")
	}
	got, err := f.set.Order.GetByID(dbctx.New(ctx), order.ID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if got.Status != types.OrderStatusProcessing || got.PaymentStatus != types.PaymentStatusCaptured {
		t.Fatalf("order = (%q, %q), want unchanged processing/captured", got.Status, got.PaymentStatus)
	}
}

type refundFixture struct {
	db      *gorm.DB
	set     repos.Set
	gateway *refundGateway
	svc     Service
}

func newRefundFixture(t *testing.T) *refundFixture {
	t.Helper()
	gdb := testutil.MemoryDB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(gdb, log)
	gw := &refundGateway{}
	svc := NewService(gdb, log, gw, set.Order, set.ContentItem, notifier.New(log, nil))
	return &refundFixture{db: gdb, set: set, gateway: gw, svc: svc}
}
