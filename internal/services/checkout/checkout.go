package checkout

import (
	"context"

	"github.com/google/uuid"

	"github.com/draftlane/draftlane-backend/internal/clients/stripe"
	"github.com/draftlane/draftlane-backend/internal/data/repos"
	types "github.com/draftlane/draftlane-backend/internal/domain"
	"github.com/draftlane/draftlane-backend/internal/domain/commerce"
	"github.com/draftlane/draftlane-backend/internal/platform/apierr"
	"github.com/draftlane/draftlane-backend/internal/platform/dbctx"
	"github.com/draftlane/draftlane-backend/internal/platform/logger"
	"github.com/draftlane/draftlane-backend/internal/services/session"
)

// Service opens hosted checkout pages for authenticated sessions.
type Service interface {
	Start(ctx context.Context, sessionID uuid.UUID) (*stripe.Checkout, error)
}

type service struct {
	log      *logger.Logger
	gateway  stripe.Gateway
	sessions repos.SessionRepo
	sessSvc  session.Service
}

func NewService(baseLog *logger.Logger, gateway stripe.Gateway, sessions repos.SessionRepo, sessSvc session.Service) Service {
	return &service{
		log:      baseLog.With("service", "CheckoutService"),
		gateway:  gateway,
		sessions: sessions,
		sessSvc:  sessSvc,
	}
}

func (s *service) Start(ctx context.Context, sessionID uuid.UUID) (*stripe.Checkout, error) {
	sess, err := s.sessions.GetByID(dbctx.New(ctx), sessionID)
	if err != nil {
		return nil, err
	}
	switch sess.Status {
	case types.SessionStatusAuthenticated, types.SessionStatusPaymentPending:
	case types.SessionStatusPaid:
		return nil, apierr.Conflict("checkout.start", "session already paid")
	default:
		return nil, apierr.Validation("checkout.start", "session must be authenticated before checkout")
	}

	units, err := commerce.UnmarshalUnits(sess.Units)
	if err != nil {
		return nil, err
	}
	co, err := s.gateway.CreateCheckout(ctx, sess, units)
	if err != nil {
		return nil, err
	}
	if err := s.sessSvc.MarkPaymentPending(ctx, sess.ID, co.TxnID); err != nil {
		s.log.Warn("failed to mark session payment pending", "session_id", sess.ID, "error", err)
	}
	return co, nil
}
