package status

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/draftlane/draftlane-backend/internal/data/repos"
	"github.com/draftlane/draftlane-backend/internal/data/repos/testutil"
	types "github.com/draftlane/draftlane-backend/internal/domain"
	"github.com/draftlane/draftlane-backend/internal/platform/apierr"
)

func TestSession_AggregatesOrderCounts(t *testing.T) {
	gdb := testutil.MemoryDB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(gdb, log)
	svc := NewService(log, set.Session, set.Order, set.JobRun)
	ctx := context.Background()

	d := testutil.SeedDomain(t, ctx, gdb, "blog.example.com")
	sess := testutil.SeedSession(t, ctx, gdb, "buyer@example.com", types.SessionKindBulk,
		types.SessionStatusPaid, nil)

	seed := func(slug, txn, status string) *types.Order {
		item := testutil.SeedItem(t, ctx, gdb, d.ID, slug, 4900)
		return testutil.SeedOrder(t, ctx, gdb, &sess.ID, item.ID, txn, status)
	}
	seed("a", "txn_1", types.OrderStatusProcessing)
	seed("b", "txn_1", types.OrderStatusAdminReview)
	seed("c", "txn_1", types.OrderStatusCompleted)
	seed("d", "txn_1", types.OrderStatusFailed)
	refunded := seed("e", "txn_1", types.OrderStatusRefunded)
	if err := gdb.Model(refunded).Update("payment_status", types.PaymentStatusRefunded).Error; err != nil {
		t.Fatalf("mark refunded: %v", err)
	}

	view, err := svc.Session(ctx, sess.ID)
	if err != nil {
		t.Fatalf("session status: %v", err)
	}
	if view.SessionStatus != types.SessionStatusPaid || view.Kind != types.SessionKindBulk {
		t.Fatalf("view header = (%q, %q)", view.SessionStatus, view.Kind)
	}
	c := view.Counts
	if c.Total != 5 || c.InFlight != 2 || c.Completed != 1 || c.Failed != 1 || c.Refunded != 1 {
		t.Fatalf("counts = %+v, want total 5, in flight 2, completed 1, failed 1, refunded 1", c)
	}

	var refundedSeen bool
	for _, ov := range view.Orders {
		if ov.ID == refunded.ID {
			refundedSeen = true
			if !ov.Refunded {
				t.Fatal("refunded order not flagged Refunded in view")
			}
		}
	}
	if !refundedSeen {
		t.Fatal("refunded order missing from view")
	}
}

func TestOrder_IncludesLatestJobStage(t *testing.T) {
	gdb := testutil.MemoryDB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(gdb, log)
	svc := NewService(log, set.Session, set.Order, set.JobRun)
	ctx := context.Background()

	d := testutil.SeedDomain(t, ctx, gdb, "blog.example.com")
	item := testutil.SeedItem(t, ctx, gdb, d.ID, "post", 4900)
	order := testutil.SeedOrder(t, ctx, gdb, nil, item.ID, "txn_1", types.OrderStatusProcessing)

	job := &types.JobRun{
		JobType:    types.JobTypeGenerateArticle,
		EntityType: "order",
		EntityID:   &order.ID,
		Status:     types.JobStatusRunning,
		Stage:      "generating",
	}
	if err := gdb.Create(job).Error; err != nil {
		t.Fatalf("seed job: %v", err)
	}

	view, err := svc.Order(ctx, order.ID)
	if err != nil {
		t.Fatalf("order status: %v", err)
	}
	if view.Stage != "generating" {
		t.Fatalf("stage = %q, want generating", view.Stage)
	}
}

func TestOrder_UnknownOrderIsNotFound(t *testing.T) {
	gdb := testutil.MemoryDB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(gdb, log)
	svc := NewService(log, set.Session, set.Order, set.JobRun)

	_, err := svc.Order(context.Background(), uuid.New())
	if !apierr.IsCode(err, apierr.CodeNotFound) {
		t.Fatalf("error = %v, want not found", err)
	}
}
