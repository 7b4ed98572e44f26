package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/draftlane/draftlane-backend/internal/data/repos"
	"github.com/draftlane/draftlane-backend/internal/data/repos/testutil"
	types "github.com/draftlane/draftlane-backend/internal/domain"
	"github.com/draftlane/draftlane-backend/internal/platform/dbctx"
	"github.com/draftlane/draftlane-backend/internal/services/dispatch"
)

type adminFixture struct {
	db     *gorm.DB
	set    repos.Set
	router *gin.Engine
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	gdb := testutil.MemoryDB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(gdb, log)
	h := NewAdminHandler(nil, nil, nil, set.JobRun, set.Order, dispatch.New(log, set.JobRun))

	r := gin.New()
	r.POST("/api/admin/orders/:id/dispatch", h.DispatchOrder)
	return &adminFixture{db: gdb, set: set, router: r}
}

func (f *adminFixture) postDispatch(t *testing.T, orderID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/orders/"+orderID+"/dispatch", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestDispatchOrder_EnqueuesMissingFulfillmentJob(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	d := testutil.SeedDomain(t, ctx, f.db, "blog.example.com")
	item := testutil.SeedItem(t, ctx, f.db, d.ID, "post", 4900)
	order := testutil.SeedOrder(t, ctx, f.db, nil, item.ID, "txn_1", types.OrderStatusProcessing)

	w := f.postDispatch(t, order.ID.String())
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	job, err := f.set.JobRun.GetLatestByEntity(dbctx.New(ctx), "order", order.ID, "")
	if err != nil {
		t.Fatalf("load job: %v", err)
	}
	if job == nil || job.JobType != types.JobTypeGenerateArticle || job.Status != types.JobStatusQueued {
		t.Fatalf("job = %+v, want queued generate_article", job)
	}

	// A second dispatch must not stack a second job.
	if w := f.postDispatch(t, order.ID.String()); w.Code != http.StatusConflict {
		t.Fatalf("redispatch status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestDispatchOrder_RejectsOrdersPastFulfillment(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	d := testutil.SeedDomain(t, ctx, f.db, "blog.example.com")
	item := testutil.SeedItem(t, ctx, f.db, d.ID, "post", 4900)
	order := testutil.SeedOrder(t, ctx, f.db, nil, item.ID, "txn_1", types.OrderStatusCompleted)

	if w := f.postDispatch(t, order.ID.String()); w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestDispatchOrder_UnknownOrderIsNotFound(t *testing.T) {
	f := newAdminFixture(t)

	if w := f.postDispatch(t, uuid.NewString()); w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
