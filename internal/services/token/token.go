package token

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	types "github.com/draftlane/draftlane-backend/internal/domain"
	"github.com/draftlane/draftlane-backend/internal/data/repos"
	"github.com/draftlane/draftlane-backend/internal/platform/apierr"
	"github.com/draftlane/draftlane-backend/internal/platform/dbctx"
	"github.com/draftlane/draftlane-backend/internal/platform/logger"
)

// Issuer mints and verifies the single-purpose magic-link tokens that bind a
// customer email to a pending purchase session.
type Issuer interface {
	// Issue generates a fresh token for the session and returns the
	// plaintext exactly once. Only the digest is stored.
	Issue(dbc dbctx.Context, session *types.PurchaseSession, ttl time.Duration) (string, error)
	// Verify resolves a token to its session. The first successful verify
	// moves pending_auth to authenticated; verifying a session that already
	// advanced is not an error, so repeated clicks and page reloads keep
	// working. Callers branch on the returned session's status.
	Verify(ctx context.Context, token string) (*types.PurchaseSession, error)
}

type issuer struct {
	log         *logger.Logger
	sessionRepo repos.SessionRepo
}

func NewIssuer(baseLog *logger.Logger, sessionRepo repos.SessionRepo) Issuer {
	return &issuer{
		log:         baseLog.With("service", "TokenIssuer"),
		sessionRepo: sessionRepo,
	}
}

// Digest is the value at rest: a leaked sessions table cannot be replayed as
// working magic links.
func Digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generate() (string, error) {
	// 32 bytes = 256 bits of entropy.
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (i *issuer) Issue(dbc dbctx.Context, session *types.PurchaseSession, ttl time.Duration) (string, error) {
	if session == nil {
		return "", apierr.Validation("token.issue", "session required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	plaintext, err := generate()
	if err != nil {
		return "", err
	}
	session.TokenDigest = Digest(plaintext)
	session.TokenExpiresAt = time.Now().Add(ttl)
	return plaintext, nil
}

func (i *issuer) Verify(ctx context.Context, tok string) (*types.PurchaseSession, error) {
	if tok == "" {
		return nil, apierr.Validation("token.verify", "token required")
	}
	dbc := dbctx.New(ctx)
	session, err := i.sessionRepo.GetByTokenDigest(dbc, Digest(tok))
	if err != nil {
		if apierr.IsCode(err, apierr.CodeNotFound) {
			return nil, apierr.NotFound("token.verify", "invalid token")
		}
		return nil, err
	}

	switch session.Status {
	case types.SessionStatusPendingAuth:
		if time.Now().After(session.TokenExpiresAt) {
			return nil, apierr.Validation("token.verify", "token expired")
		}
		ok, err := i.sessionRepo.UpdateStatusIf(dbc, session.ID,
			[]string{types.SessionStatusPendingAuth}, types.SessionStatusAuthenticated)
		if err != nil {
			return nil, err
		}
		if ok {
			session.Status = types.SessionStatusAuthenticated
		} else {
			// Lost a race with another verify of the same link; re-read and
			// fall through to the idempotent path.
			session, err = i.sessionRepo.GetByID(dbc, session.ID)
			if err != nil {
				return nil, err
			}
		}
		return session, nil
	case types.SessionStatusAuthenticated, types.SessionStatusPaymentPending, types.SessionStatusPaid:
		// Re-verification after the first click is always a success; a paid
		// session just signals "already completed" via its status.
		return session, nil
	default:
		return nil, apierr.Conflict("token.verify", "session is "+session.Status)
	}
}
