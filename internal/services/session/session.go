package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/draftlane/draftlane-backend/internal/data/repos"
	types "github.com/draftlane/draftlane-backend/internal/domain"
	"github.com/draftlane/draftlane-backend/internal/domain/commerce"
	"github.com/draftlane/draftlane-backend/internal/platform/apierr"
	"github.com/draftlane/draftlane-backend/internal/platform/dbctx"
	"github.com/draftlane/draftlane-backend/internal/platform/logger"
	"github.com/draftlane/draftlane-backend/internal/services/notifier"
	"github.com/draftlane/draftlane-backend/internal/services/token"
)

type Service interface {
	// Create opens a purchase session: prices the units, reserves referenced
	// content items, and emails a magic link. Returns the session; the token
	// plaintext leaves the process only via email.
	Create(ctx context.Context, email, kind string, units []types.OrderUnit) (*types.PurchaseSession, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.PurchaseSession, error)
	// MarkPaymentPending records that a checkout was opened for the session.
	MarkPaymentPending(ctx context.Context, id uuid.UUID, paymentRef string) error
	// SweepExpired reclaims never-paid sessions past token expiry, releasing
	// their reserved items. Returns the number of sessions reclaimed.
	SweepExpired(ctx context.Context) (int, error)
}

type service struct {
	db       *gorm.DB
	log      *logger.Logger
	sessions repos.SessionRepo
	items    repos.ContentItemRepo
	domains  repos.ContentDomainRepo
	issuer   token.Issuer
	notify   notifier.Notifier
	tokenTTL time.Duration
	linkBase string
}

func NewService(
	db *gorm.DB,
	baseLog *logger.Logger,
	sessions repos.SessionRepo,
	items repos.ContentItemRepo,
	domains repos.ContentDomainRepo,
	issuer token.Issuer,
	notify notifier.Notifier,
	tokenTTL time.Duration,
	linkBase string,
) Service {
	return &service{
		db:       db,
		log:      baseLog.With("service", "SessionService"),
		sessions: sessions,
		items:    items,
		domains:  domains,
		issuer:   issuer,
		notify:   notify,
		tokenTTL: tokenTTL,
		linkBase: strings.TrimRight(linkBase, "/"),
	}
}

func (s *service) Create(ctx context.Context, email, kind string, units []types.OrderUnit) (*types.PurchaseSession, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apierr.Validation("session.create", "valid email required")
	}
	switch kind {
	case types.SessionKindSingle, types.SessionKindBulk, types.SessionKindGeneration:
	default:
		return nil, apierr.Validation("session.create", "unknown session kind "+kind)
	}
	if len(units) == 0 {
		return nil, apierr.Validation("session.create", "at least one unit required")
	}
	if kind == types.SessionKindSingle && len(units) != 1 {
		return nil, apierr.Validation("session.create", "single session takes exactly one unit")
	}
	for i := range units {
		if err := units[i].Validate(); err != nil {
			return nil, apierr.New(apierr.CodeValidation, "session.create", err.Error(), err)
		}
	}

	var created *types.PurchaseSession
	var plaintext string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)

		// All unit prices come from the store. Backlink units take the
		// item's price and reserve it so a second session cannot sell the
		// same slot while this one pends; generation units take the
		// domain's base price, whatever the client sent.
		var reserveIDs []uuid.UUID
		domainPrices := map[uuid.UUID]int64{}
		for i := range units {
			if units[i].IsGeneration() {
				price, ok := domainPrices[units[i].DomainID]
				if !ok {
					dom, err := s.domains.GetByID(dbc, units[i].DomainID)
					if err != nil {
						return err
					}
					if !dom.Active {
						return apierr.Conflict("session.create", "domain "+dom.Host+" is not accepting placements")
					}
					if dom.BasePriceCents <= 0 {
						return apierr.Conflict("session.create", "domain "+dom.Host+" has no generation price")
					}
					price = dom.BasePriceCents
					domainPrices[units[i].DomainID] = price
				}
				units[i].PriceCents = price
				continue
			}
			item, err := s.items.GetByID(dbc, units[i].ContentItemID)
			if err != nil {
				return err
			}
			if item.AvailabilityStatus != types.AvailabilityAvailable {
				return apierr.Conflict("session.create", "item "+item.Slug+" is not available")
			}
			units[i].PriceCents = item.PriceCents
			reserveIDs = append(reserveIDs, item.ID)
		}
		if err := s.items.Reserve(dbc, reserveIDs); err != nil {
			return err
		}

		raw, err := commerce.MarshalUnits(units)
		if err != nil {
			return err
		}
		sess := &types.PurchaseSession{
			Email:           email,
			Kind:            kind,
			Units:           datatypes.JSON(raw),
			TotalPriceCents: commerce.TotalPriceCents(units),
			Currency:        "usd",
			Status:          types.SessionStatusPendingAuth,
		}
		plaintext, err = s.issuer.Issue(dbc, sess, s.tokenTTL)
		if err != nil {
			return err
		}
		created, err = s.sessions.Create(dbc, sess)
		return err
	})
	if err != nil {
		return nil, err
	}

	// Post-commit, best effort. A lost email is recoverable by recreating
	// the session; a rolled-back session with a sent link is not.
	if nErr := s.notify.Send(ctx, notifier.KindMagicLink, email, notifier.Context{
		"link":       fmt.Sprintf("%s/auth/verify?token=%s", s.linkBase, plaintext),
		"expires_at": created.TokenExpiresAt.UTC().Format(time.RFC1123),
	}); nErr != nil {
		s.log.Warn("magic link email failed", "session_id", created.ID, "error", nErr)
	}
	return created, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*types.PurchaseSession, error) {
	return s.sessions.GetByID(dbctx.New(ctx), id)
}

func (s *service) MarkPaymentPending(ctx context.Context, id uuid.UUID, paymentRef string) error {
	dbc := dbctx.New(ctx)
	ok, err := s.sessions.UpdateStatusIf(dbc, id,
		[]string{types.SessionStatusAuthenticated, types.SessionStatusPaymentPending},
		types.SessionStatusPaymentPending)
	if err != nil {
		return err
	}
	if !ok {
		return apierr.Conflict("session.mark_payment_pending", "session is not authenticated")
	}
	return s.sessions.UpdateFields(dbc, id, map[string]interface{}{"payment_ref": paymentRef})
}

func (s *service) SweepExpired(ctx context.Context) (int, error) {
	const batchSize = 100
	swept := 0
	for {
		candidates, err := s.sessions.ListSweepable(dbctx.New(ctx), time.Now(), batchSize)
		if err != nil {
			return swept, err
		}
		if len(candidates) == 0 {
			return swept, nil
		}
		for _, sess := range candidates {
			if err := s.sweepOne(ctx, sess); err != nil {
				// A session paid between the list and the sweep loses its
				// sweepable status; skip it and let the webhook path win.
				s.log.Warn("sweep skipped session", "session_id", sess.ID, "error", err)
				continue
			}
			swept++
		}
		if len(candidates) < batchSize {
			return swept, nil
		}
	}
}

func (s *service) sweepOne(ctx context.Context, sess *types.PurchaseSession) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		// Re-check under the transaction: a late payment notification may
		// have advanced the session since the candidate list was read.
		current, err := s.sessions.GetByID(dbc, sess.ID)
		if err != nil {
			return err
		}
		if !current.Sweepable(time.Now()) {
			return apierr.Conflict("session.sweep", "session no longer sweepable")
		}

		units, err := commerce.UnmarshalUnits(current.Units)
		if err != nil {
			return err
		}
		var releaseIDs []uuid.UUID
		for _, u := range units {
			if u.IsBacklink() {
				releaseIDs = append(releaseIDs, u.ContentItemID)
			}
		}
		if err := s.items.Release(dbc, releaseIDs); err != nil {
			return err
		}
		return s.sessions.Delete(dbc, current.ID)
	})
}
