package refund

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/draftlane/draftlane-backend/internal/clients/stripe"
	"github.com/draftlane/draftlane-backend/internal/data/repos"
	types "github.com/draftlane/draftlane-backend/internal/domain"
	"github.com/draftlane/draftlane-backend/internal/platform/apierr"
	"github.com/draftlane/draftlane-backend/internal/platform/dbctx"
	"github.com/draftlane/draftlane-backend/internal/platform/logger"
	"github.com/draftlane/draftlane-backend/internal/services/notifier"
)

// Result reports the outcome of a refund request. Already is set when the
// order was refunded before this call; no money moved in that case.
type Result struct {
	Order    *types.Order
	RefundID string
	Already  bool
}

type Service interface {
	// Refund returns the order's captured amount through the gateway and moves
	// the order to refunded. Safe to retry: an already-refunded order is a
	// no-op that reports the prior refund.
	Refund(ctx context.Context, orderID uuid.UUID, reason string) (*Result, error)
}

type service struct {
	db      *gorm.DB
	log     *logger.Logger
	gateway stripe.Gateway
	orders  repos.OrderRepo
	items   repos.ContentItemRepo
	mail    notifier.Notifier
}

func NewService(db *gorm.DB, baseLog *logger.Logger, gateway stripe.Gateway, orders repos.OrderRepo, items repos.ContentItemRepo, mail notifier.Notifier) Service {
	return &service{
		db:      db,
		log:     baseLog.With("service", "RefundService"),
		gateway: gateway,
		orders:  orders,
		items:   items,
		mail:    mail,
	}
}

func (s *service) Refund(ctx context.Context, orderID uuid.UUID, reason string) (*Result, error) {
	order, err := s.orders.GetByID(dbctx.New(ctx), orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == types.PaymentStatusRefunded {
		return &Result{Order: order, RefundID: order.RefundID, Already: true}, nil
	}
	if order.GatewayTxnID == "" {
		return nil, apierr.Validation("refund.refund", "order has no payment reference")
	}

	// Money first. If the DB write below fails the order is still marked
	// captured and a retry hits the gateway's own idempotency on the
	// payment intent rather than double-refunding.
	refundID, err := s.gateway.Refund(ctx, order.GatewayTxnID, order.AmountCents)
	if err != nil {
		return nil, err
	}
	s.log.Info("gateway refund issued",
		"order_id", order.ID, "refund_id", refundID, "amount_cents", order.AmountCents)

	now := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		updated, terr := s.orders.Transition(dbc, order.ID, types.OrderStatusRefunded, map[string]interface{}{
			"payment_status": types.PaymentStatusRefunded,
			"refund_id":      refundID,
			"refunded_at":    now,
			"fail_reason":    reason,
		})
		if terr != nil {
			return terr
		}
		order = updated
		return s.items.Release(dbc, []uuid.UUID{order.ContentItemID})
	})
	if err != nil {
		// The gateway refund went through; only our record is behind.
		s.log.Error("refund recorded at gateway but order update failed",
			"order_id", order.ID, "refund_id", refundID, "error", err)
		return nil, err
	}

	if merr := s.mail.Send(ctx, notifier.KindOrderFailedRefunded, order.CustomerEmail, notifier.Context{
		"order_id": order.ID.String(),
		"reason":   reason,
	}); merr != nil {
		s.log.Warn("refund email failed", "order_id", order.ID, "error", merr)
	}
	return &Result{Order: order, RefundID: refundID}, nil
}
