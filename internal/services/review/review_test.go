package review

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/draftlane/draftlane-backend/internal/clients/stripe"
	"github.com/draftlane/draftlane-backend/internal/data/repos"
	"github.com/draftlane/draftlane-backend/internal/data/repos/testutil"
	types "github.com/draftlane/draftlane-backend/internal/domain"
	"github.com/draftlane/draftlane-backend/internal/platform/apierr"
	"github.com/draftlane/draftlane-backend/internal/platform/dbctx"
	"github.com/draftlane/draftlane-backend/internal/services/dispatch"
	"github.com/draftlane/draftlane-backend/internal/services/notifier"
	"github.com/draftlane/draftlane-backend/internal/services/refund"
)

type reviewGateway struct {
	refunds int
}

func (g *reviewGateway) Refund(ctx context.Context, paymentRef string, amountCents int64) (string, error) {
	g.refunds++
	return "re_1", nil
}

func (g *reviewGateway) CreateCheckout(ctx context.Context, session *types.PurchaseSession, units []types.OrderUnit) (*stripe.Checkout, error) {
	return nil, fmt.Errorf("not used")
}

func (g *reviewGateway) VerifyNotification(payload []byte, sigHeader string) (*stripe.Notification, error) {
	return nil, fmt.Errorf("not used")
}

func (g *reviewGateway) RetrieveTransaction(ctx context.Context, txnID string) (*stripe.Transaction, error) {
	return nil, fmt.Errorf("not used")
}

type reviewFixture struct {
	db      *gorm.DB
	set     repos.Set
	gateway *reviewGateway
	svc     Service
}

func newReviewFixture(t *testing.T) *reviewFixture {
	t.Helper()
	gdb := testutil.MemoryDB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(gdb, log)
	gw := &reviewGateway{}
	refunds := refund.NewService(gdb, log, gw, set.Order, set.ContentItem, notifier.New(log, nil))
	svc := NewService(gdb, log, set.Order, set.Version, dispatch.New(log, set.JobRun), refunds)
	return &reviewFixture{db: gdb, set: set, gateway: gw, svc: svc}
}

// seedReviewable creates an order sitting in admin review with a pending
// version attached.
func (f *reviewFixture) seedReviewable(t *testing.T, ctx context.Context) *types.Order {
	t.Helper()
	d := testutil.SeedDomain(t, ctx, f.db, "blog.example.com")
	item := testutil.SeedItem(t, ctx, f.db, d.ID, "post", 14900)
	order := testutil.SeedOrder(t, ctx, f.db, nil, item.ID, "txn_1", types.OrderStatusAdminReview)
	version := testutil.SeedVersion(t, ctx, f.db, item.ID, 1, types.ReviewStatusPending)
	if err := f.db.Model(order).Update("version_id", version.ID).Error; err != nil {
		t.Fatalf("attach version: %v", err)
	}
	order.VersionID = &version.ID
	return order
}

func TestApprove_EnqueuesPublishJob(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	order := f.seedReviewable(t, ctx)
	adminID := uuid.New()

	got, err := f.svc.Approve(ctx, order.ID, adminID, "looks good")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	// the order stays in admin_review until the publish job completes it
	if got.Status != types.OrderStatusAdminReview {
		t.Fatalf("order status = %q, want admin_review", got.Status)
	}

	v, err := f.set.Version.GetByID(dbctx.New(ctx), *order.VersionID)
	if err != nil {
		t.Fatalf("reload version: %v", err)
	}
	if v.ReviewStatus != types.ReviewStatusApproved {
		t.Fatalf("version review status = %q, want approved", v.ReviewStatus)
	}

	job, err := f.set.JobRun.GetLatestByEntity(dbctx.New(ctx), "order", order.ID, types.JobTypePublishArticle)
	if err != nil {
		t.Fatalf("load publish job: %v", err)
	}
	if job == nil || job.Status != types.JobStatusQueued {
		t.Fatalf("publish job = %+v, want queued", job)
	}
}

func TestReject_FailsOrderAndRefunds(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	order := f.seedReviewable(t, ctx)

	got, err := f.svc.Reject(ctx, order.ID, uuid.New(), "thin content")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got.Status != types.OrderStatusRefunded {
		t.Fatalf("order status = %q, want refunded after rejection", got.Status)
	}
	if f.gateway.refunds != 1 {
		t.Fatalf("gateway refunds = %d, want 1", f.gateway.refunds)
	}

	v, err := f.set.Version.GetByID(dbctx.New(ctx), *order.VersionID)
	if err != nil {
		t.Fatalf("reload version: %v", err)
	}
	if v.ReviewStatus != types.ReviewStatusRejected {
		t.Fatalf("version review status = %q, want rejected", v.ReviewStatus)
	}
}

func TestVerdict_RequiresOrderAwaitingReview(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()

	d := testutil.SeedDomain(t, ctx, f.db, "blog.example.com")
	item := testutil.SeedItem(t, ctx, f.db, d.ID, "post", 14900)
	order := testutil.SeedOrder(t, ctx, f.db, nil, item.ID, "txn_1", types.OrderStatusProcessing)

	_, err := f.svc.Approve(ctx, order.ID, uuid.New(), "")
	if !apierr.IsCode(err, apierr.CodeConflict) {
		t.Fatalf("approve error = %v, want conflict", err)
	}
	_, err = f.svc.Reject(ctx, order.ID, uuid.New(), "")
	if !apierr.IsCode(err, apierr.CodeConflict) {
		t.Fatalf("reject error = %v, want conflict", err)
	}
}

func TestListPending_ReturnsOrdersWithVersions(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	order := f.seedReviewable(t, ctx)

	pending, err := f.svc.ListPending(ctx, 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	if pending[0].Order.ID != order.ID || pending[0].Version == nil {
		t.Fatalf("pending[0] = %+v, want the reviewable order with its version", pending[0])
	}
}
