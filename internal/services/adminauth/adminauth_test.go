package adminauth

import (
	"context"
	"testing"
	"time"

	"github.com/draftlane/draftlane-backend/internal/data/repos"
	"github.com/draftlane/draftlane-backend/internal/data/repos/testutil"
	"github.com/draftlane/draftlane-backend/internal/platform/apierr"
	"github.com/draftlane/draftlane-backend/internal/platform/ctxutil"
)

func newAuthService(t *testing.T, ttl time.Duration) Service {
	t.Helper()
	gdb := testutil.MemoryDB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(gdb, log)
	return NewService(log, set.AdminUser, Config{JWTSecret: "test-secret-please-rotate", TokenTTL: ttl})
}

func TestLoginAndVerify_RoundTrip(t *testing.T) {
	svc := newAuthService(t, time.Hour)
	ctx := context.Background()

	if err := svc.Register(ctx, "admin@example.com", "long-enough-password"); err != nil {
		t.Fatalf("register: %v", err)
	}

	token, err := svc.Login(ctx, "admin@example.com", "long-enough-password")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}

	authed, err := svc.SetContextFromToken(ctx, token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	rd := ctxutil.GetRequestData(authed)
	if rd == nil || rd.AdminID == "" {
		t.Fatalf("request data = %+v, want admin id set", rd)
	}
}

func TestLogin_BadCredentialsAreUniform(t *testing.T) {
	svc := newAuthService(t, time.Hour)
	ctx := context.Background()

	if err := svc.Register(ctx, "admin@example.com", "long-enough-password"); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, wrongPass := svc.Login(ctx, "admin@example.com", "wrong-password-here")
	if !apierr.IsCode(wrongPass, apierr.CodeValidation) {
		t.Fatalf("wrong password error = %v, want validation", wrongPass)
	}
	_, unknown := svc.Login(ctx, "nobody@example.com", "long-enough-password")
	if !apierr.IsCode(unknown, apierr.CodeValidation) {
		t.Fatalf("unknown email error = %v, want validation", unknown)
	}
	if wrongPass.Error() != unknown.Error() {
		t.Fatalf("credential errors differ (%q vs %q); they must not leak which field was wrong",
			wrongPass.Error(), unknown.Error())
	}
}

func TestEnsureAdmin_SeedsOnceAndKeepsPassword(t *testing.T) {
	svc := newAuthService(t, time.Hour)
	ctx := context.Background()

	if err := svc.EnsureAdmin(ctx, "admin@example.com", "first-boot-password"); err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	// Second boot with a rotated env value must not clobber the account.
	if err := svc.EnsureAdmin(ctx, "admin@example.com", "second-boot-password"); err != nil {
		t.Fatalf("second ensure: %v", err)
	}

	if _, err := svc.Login(ctx, "admin@example.com", "first-boot-password"); err != nil {
		t.Fatalf("login with original password: %v", err)
	}
	if _, err := svc.Login(ctx, "admin@example.com", "second-boot-password"); err == nil {
		t.Fatal("login with rewritten password succeeded; ensure overwrote the account")
	}
}

func TestRegister_RejectsShortPassword(t *testing.T) {
	svc := newAuthService(t, time.Hour)
	err := svc.Register(context.Background(), "admin@example.com", "short")
	if !apierr.IsCode(err, apierr.CodeValidation) {
		t.Fatalf("error = %v, want validation", err)
	}
}

func TestSetContextFromToken_RejectsExpiredAndGarbage(t *testing.T) {
	svc := newAuthService(t, -time.Minute)
	ctx := context.Background()

	if err := svc.Register(ctx, "admin@example.com", "long-enough-password"); err != nil {
		t.Fatalf("register: %v", err)
	}
	expired, err := svc.Login(ctx, "admin@example.com", "long-enough-password")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if _, err := svc.SetContextFromToken(ctx, expired); !apierr.IsCode(err, apierr.CodeValidation) {
		t.Fatalf("expired token error = %v, want validation", err)
	}
	if _, err := svc.SetContextFromToken(ctx, "not.a.jwt"); !apierr.IsCode(err, apierr.CodeValidation) {
		t.Fatalf("garbage token error = %v, want validation", err)
	}
}
