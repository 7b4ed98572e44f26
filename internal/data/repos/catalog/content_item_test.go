package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/draftlane/draftlane-backend/internal/data/repos/testutil"
	types "github.com/draftlane/draftlane-backend/internal/domain"
	"github.com/draftlane/draftlane-backend/internal/platform/apierr"
	"github.com/draftlane/draftlane-backend/internal/platform/dbctx"
)

func itemDeps(t *testing.T) (dbctx.Context, ContentItemRepo, *types.ContentDomain) {
	t.Helper()
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	dbc := dbctx.WithTx(context.Background(), tx)
	d := testutil.SeedDomain(t, dbc.Ctx, tx, uuid.NewString()+".example.com")
	return dbc, NewContentItemRepo(tx, testutil.Logger(t)), d
}

func TestReserve_AllOrNothing(t *testing.T) {
	dbc, repo, d := itemDeps(t)

	a := testutil.SeedItem(t, dbc.Ctx, dbc.Tx, d.ID, "a", 4900)
	b := testutil.SeedItem(t, dbc.Ctx, dbc.Tx, d.ID, "b", 4900)
	if err := dbc.Tx.Model(b).Update("availability_status", types.AvailabilitySoldOut).Error; err != nil {
		t.Fatalf("sell out b: %v", err)
	}

	err := repo.Reserve(dbc, []uuid.UUID{a.ID, b.ID})
	if !apierr.IsCode(err, apierr.CodeConflict) {
		t.Fatalf("reserve with one sold item error = %v, want conflict", err)
	}

	if err := repo.Reserve(dbc, []uuid.UUID{a.ID}); err != nil {
		t.Fatalf("reserve available item: %v", err)
	}
	got, err := repo.GetByID(dbc, a.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.AvailabilityStatus != types.AvailabilityProcessing {
		t.Fatalf("availability = %q, want processing", got.AvailabilityStatus)
	}
}

func TestReserve_AlreadyReservedConflicts(t *testing.T) {
	dbc, repo, d := itemDeps(t)

	a := testutil.SeedItem(t, dbc.Ctx, dbc.Tx, d.ID, "a", 4900)
	if err := repo.Reserve(dbc, []uuid.UUID{a.ID}); err != nil {
		t.Fatalf("first reserve: %v", err)
	}
	err := repo.Reserve(dbc, []uuid.UUID{a.ID})
	if !apierr.IsCode(err, apierr.CodeConflict) {
		t.Fatalf("second reserve error = %v, want conflict", err)
	}
}

func TestRelease_DoesNotResurrectSoldOutItems(t *testing.T) {
	dbc, repo, d := itemDeps(t)

	reserved := testutil.SeedItem(t, dbc.Ctx, dbc.Tx, d.ID, "reserved", 4900)
	if err := repo.Reserve(dbc, []uuid.UUID{reserved.ID}); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	sold := testutil.SeedItem(t, dbc.Ctx, dbc.Tx, d.ID, "sold", 4900)
	if err := dbc.Tx.Model(sold).Update("availability_status", types.AvailabilitySoldOut).Error; err != nil {
		t.Fatalf("sell out: %v", err)
	}

	if err := repo.Release(dbc, []uuid.UUID{reserved.ID, sold.ID}); err != nil {
		t.Fatalf("release: %v", err)
	}

	gotReserved, err := repo.GetByID(dbc, reserved.ID)
	if err != nil {
		t.Fatalf("reload reserved: %v", err)
	}
	if gotReserved.AvailabilityStatus != types.AvailabilityAvailable {
		t.Fatalf("released availability = %q, want available", gotReserved.AvailabilityStatus)
	}
	gotSold, err := repo.GetByID(dbc, sold.ID)
	if err != nil {
		t.Fatalf("reload sold: %v", err)
	}
	if gotSold.AvailabilityStatus != types.AvailabilitySoldOut {
		t.Fatalf("sold item availability = %q, must stay sold_out", gotSold.AvailabilityStatus)
	}
}

func TestListAvailable_FiltersByDomain(t *testing.T) {
	dbc, repo, d := itemDeps(t)

	other := testutil.SeedDomain(t, dbc.Ctx, dbc.Tx, uuid.NewString()+".example.com")
	testutil.SeedItem(t, dbc.Ctx, dbc.Tx, d.ID, "mine", 4900)
	testutil.SeedItem(t, dbc.Ctx, dbc.Tx, other.ID, "theirs", 4900)
	reserved := testutil.SeedItem(t, dbc.Ctx, dbc.Tx, d.ID, "taken", 4900)
	if err := repo.Reserve(dbc, []uuid.UUID{reserved.ID}); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	items, err := repo.ListAvailable(dbc, &d.ID, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].Slug != "mine" {
		t.Fatalf("items = %+v, want only the available item on the domain", items)
	}
}
