package commerce

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/draftlane/draftlane-backend/internal/data/repos/testutil"
	types "github.com/draftlane/draftlane-backend/internal/domain"
	"github.com/draftlane/draftlane-backend/internal/platform/apierr"
	"github.com/draftlane/draftlane-backend/internal/platform/dbctx"
)

func orderDeps(t *testing.T) (dbctx.Context, OrderRepo) {
	t.Helper()
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	repo := NewOrderRepo(tx, testutil.Logger(t))
	return dbctx.WithTx(context.Background(), tx), repo
}

func testOrder(itemID uuid.UUID, sessionID *uuid.UUID, txnID string) *types.Order {
	return &types.Order{
		SessionID:     sessionID,
		ContentItemID: itemID,
		CustomerEmail: "buyer@example.com",
		Unit:          datatypes.JSON([]byte(`{"type":"generation","topic":"t","price_cents":1000}`)),
		GatewayTxnID:  txnID,
		AmountCents:   1000,
		Currency:      "usd",
		PaymentStatus: types.PaymentStatusCaptured,
		Status:        types.OrderStatusProcessing,
	}
}

func TestCreateBatch_DuplicateTransactionItemPairConflicts(t *testing.T) {
	dbc, repo := orderDeps(t)
	itemID := uuid.New()

	if _, err := repo.CreateBatch(dbc, []*types.Order{testOrder(itemID, nil, "txn_dup")}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := repo.CreateBatch(dbc, []*types.Order{testOrder(itemID, nil, "txn_dup")})
	if !apierr.IsCode(err, apierr.CodeConflict) {
		t.Fatalf("duplicate create error = %v, want conflict", err)
	}
}

func TestCreateBatch_DuplicateSessionItemPairConflicts(t *testing.T) {
	dbc, repo := orderDeps(t)
	itemID := uuid.New()
	sessionID := uuid.New()

	if _, err := repo.CreateBatch(dbc, []*types.Order{testOrder(itemID, &sessionID, "txn_1")}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	// same session and item under a different transaction id still conflicts
	_, err := repo.CreateBatch(dbc, []*types.Order{testOrder(itemID, &sessionID, "txn_2")})
	if !apierr.IsCode(err, apierr.CodeConflict) {
		t.Fatalf("duplicate create error = %v, want conflict", err)
	}
}

func TestCreateBatch_SameTransactionDifferentItemsAllowed(t *testing.T) {
	dbc, repo := orderDeps(t)

	created, err := repo.CreateBatch(dbc, []*types.Order{
		testOrder(uuid.New(), nil, "txn_1"),
		testOrder(uuid.New(), nil, "txn_1"),
	})
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("created = %d, want 2", len(created))
	}
}

func TestTransition_RejectsBackwardsMove(t *testing.T) {
	dbc, repo := orderDeps(t)

	created, err := repo.CreateBatch(dbc, []*types.Order{testOrder(uuid.New(), nil, "txn_1")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	order := created[0]

	if _, err := repo.Transition(dbc, order.ID, types.OrderStatusAdminReview, nil); err != nil {
		t.Fatalf("forward transition: %v", err)
	}
	_, err = repo.Transition(dbc, order.ID, types.OrderStatusQualityCheck, nil)
	if !apierr.IsCode(err, apierr.CodeConflict) {
		t.Fatalf("backwards transition error = %v, want conflict", err)
	}
}

func TestTransition_SameStatusIsNoOp(t *testing.T) {
	dbc, repo := orderDeps(t)

	created, err := repo.CreateBatch(dbc, []*types.Order{testOrder(uuid.New(), nil, "txn_1")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := repo.Transition(dbc, created[0].ID, types.OrderStatusProcessing, nil)
	if err != nil {
		t.Fatalf("same-status transition: %v", err)
	}
	if got.Status != types.OrderStatusProcessing {
		t.Fatalf("status = %q", got.Status)
	}
}

func TestTransition_AppliesExtraUpdates(t *testing.T) {
	dbc, repo := orderDeps(t)

	created, err := repo.CreateBatch(dbc, []*types.Order{testOrder(uuid.New(), nil, "txn_1")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := repo.Transition(dbc, created[0].ID, types.OrderStatusFailed, map[string]interface{}{
		"fail_reason": "generation exhausted retries",
	})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if got.Status != types.OrderStatusFailed || got.FailReason != "generation exhausted retries" {
		t.Fatalf("order = (%q, %q), want failed with reason", got.Status, got.FailReason)
	}
}
