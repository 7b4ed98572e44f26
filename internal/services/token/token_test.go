package token

import (
	"context"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/draftlane/draftlane-backend/internal/data/repos"
	"github.com/draftlane/draftlane-backend/internal/data/repos/testutil"
	types "github.com/draftlane/draftlane-backend/internal/domain"
	"github.com/draftlane/draftlane-backend/internal/domain/commerce"
	"github.com/draftlane/draftlane-backend/internal/platform/apierr"
	"github.com/draftlane/draftlane-backend/internal/platform/dbctx"
)

func issueSession(t *testing.T, issuer Issuer, sessions repos.SessionRepo, ttl time.Duration) (string, *types.PurchaseSession) {
	t.Helper()
	ctx := context.Background()
	raw, err := commerce.MarshalUnits([]types.OrderUnit{
		{Type: commerce.UnitTypeGeneration, Topic: "go profiling", PriceCents: 9900},
	})
	if err != nil {
		t.Fatalf("marshal units: %v", err)
	}
	sess := &types.PurchaseSession{
		Email:           "buyer@example.com",
		Kind:            types.SessionKindGeneration,
		Units:           datatypes.JSON(raw),
		TotalPriceCents: 9900,
		Currency:        "usd",
		Status:          types.SessionStatusPendingAuth,
	}
	plaintext, err := issuer.Issue(dbctx.New(ctx), sess, ttl)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	created, err := sessions.Create(dbctx.New(ctx), sess)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return plaintext, created
}

func TestVerify_FirstClickAuthenticates(t *testing.T) {
	gdb := testutil.MemoryDB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(gdb, log)
	issuer := NewIssuer(log, set.Session)

	plaintext, created := issueSession(t, issuer, set.Session, time.Hour)
	if created.Status != types.SessionStatusPendingAuth {
		t.Fatalf("seed status = %q", created.Status)
	}
	if created.TokenDigest == plaintext {
		t.Fatal("plaintext token stored at rest")
	}

	got, err := issuer.Verify(context.Background(), plaintext)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("verify resolved session %s, want %s", got.ID, created.ID)
	}
	if got.Status != types.SessionStatusAuthenticated {
		t.Fatalf("status after verify = %q, want authenticated", got.Status)
	}
}

func TestVerify_RepeatClickIsIdempotent(t *testing.T) {
	gdb := testutil.MemoryDB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(gdb, log)
	issuer := NewIssuer(log, set.Session)

	plaintext, _ := issueSession(t, issuer, set.Session, time.Hour)

	first, err := issuer.Verify(context.Background(), plaintext)
	if err != nil {
		t.Fatalf("first verify: %v", err)
	}
	second, err := issuer.Verify(context.Background(), plaintext)
	if err != nil {
		t.Fatalf("second verify: %v", err)
	}
	if second.ID != first.ID || second.Status != types.SessionStatusAuthenticated {
		t.Fatalf("second verify = (%s, %q), want same authenticated session", second.ID, second.Status)
	}
}

func TestVerify_ExpiredTokenRejected(t *testing.T) {
	gdb := testutil.MemoryDB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(gdb, log)
	issuer := NewIssuer(log, set.Session)

	plaintext, created := issueSession(t, issuer, set.Session, time.Hour)
	err := set.Session.UpdateFields(dbctx.New(context.Background()), created.ID, map[string]interface{}{
		"token_expires_at": time.Now().Add(-time.Minute),
	})
	if err != nil {
		t.Fatalf("expire token: %v", err)
	}

	_, err = issuer.Verify(context.Background(), plaintext)
	if !apierr.IsCode(err, apierr.CodeValidation) {
		t.Fatalf("verify expired token error = %v, want validation", err)
	}
}

func TestVerify_ExpiryDoesNotLockOutPaidSession(t *testing.T) {
	gdb := testutil.MemoryDB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(gdb, log)
	issuer := NewIssuer(log, set.Session)

	plaintext, created := issueSession(t, issuer, set.Session, time.Hour)
	err := set.Session.UpdateFields(dbctx.New(context.Background()), created.ID, map[string]interface{}{
		"status":           types.SessionStatusPaid,
		"token_expires_at": time.Now().Add(-time.Minute),
	})
	if err != nil {
		t.Fatalf("update session: %v", err)
	}

	got, err := issuer.Verify(context.Background(), plaintext)
	if err != nil {
		t.Fatalf("verify paid session: %v", err)
	}
	if got.Status != types.SessionStatusPaid {
		t.Fatalf("status = %q, want paid", got.Status)
	}
}

func TestVerify_UnknownTokenIsNotFound(t *testing.T) {
	gdb := testutil.MemoryDB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(gdb, log)
	issuer := NewIssuer(log, set.Session)

	_, err := issuer.Verify(context.Background(), "not-a-token")
	if !apierr.IsCode(err, apierr.CodeNotFound) {
		t.Fatalf("verify unknown token error = %v, want not found", err)
	}
}

func TestDigest_IsStableAndOpaque(t *testing.T) {
	a := Digest("tok")
	b := Digest("tok")
	if a != b {
		t.Fatal("digest is not deterministic")
	}
	if a == "tok" || len(a) != 64 {
		t.Fatalf("digest %q does not look like sha256 hex", a)
	}
}
