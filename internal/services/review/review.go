package review

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/draftlane/draftlane-backend/internal/data/repos"
	types "github.com/draftlane/draftlane-backend/internal/domain"
	"github.com/draftlane/draftlane-backend/internal/platform/apierr"
	"github.com/draftlane/draftlane-backend/internal/platform/dbctx"
	"github.com/draftlane/draftlane-backend/internal/platform/logger"
	"github.com/draftlane/draftlane-backend/internal/services/dispatch"
	"github.com/draftlane/draftlane-backend/internal/services/refund"
)

// Pending pairs an order awaiting review with the version under judgment.
type Pending struct {
	Order   *types.Order          `json:"order"`
	Version *types.ContentVersion `json:"version"`
}

// Service is the admin review surface. Approval hands the order to the
// publish queue; rejection refunds the buyer.
type Service interface {
	ListPending(ctx context.Context, limit int) ([]*Pending, error)
	Approve(ctx context.Context, orderID uuid.UUID, adminID uuid.UUID, note string) (*types.Order, error)
	Reject(ctx context.Context, orderID uuid.UUID, adminID uuid.UUID, note string) (*types.Order, error)
}

type service struct {
	db       *gorm.DB
	log      *logger.Logger
	orders   repos.OrderRepo
	versions repos.VersionRepo
	dispatch dispatch.Dispatcher
	refunds  refund.Service
}

func NewService(db *gorm.DB, baseLog *logger.Logger, orders repos.OrderRepo, versions repos.VersionRepo, disp dispatch.Dispatcher, refunds refund.Service) Service {
	return &service{
		db:       db,
		log:      baseLog.With("service", "ReviewService"),
		orders:   orders,
		versions: versions,
		dispatch: disp,
		refunds:  refunds,
	}
}

func (s *service) ListPending(ctx context.Context, limit int) ([]*Pending, error) {
	dbc := dbctx.New(ctx)
	orders, err := s.orders.ListByStatus(dbc, types.OrderStatusAdminReview, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*Pending, 0, len(orders))
	for _, o := range orders {
		p := &Pending{Order: o}
		if o.VersionID != nil {
			v, verr := s.versions.GetByID(dbc, *o.VersionID)
			if verr != nil {
				s.log.Warn("pending order references missing version",
					"order_id", o.ID, "version_id", *o.VersionID, "error", verr)
			} else {
				p.Version = v
			}
		}
		out = append(out, p)
	}
	return out, nil
}

// pendingVersion loads the order and checks it is actually reviewable.
func (s *service) pendingVersion(dbc dbctx.Context, orderID uuid.UUID) (*types.Order, uuid.UUID, error) {
	order, err := s.orders.GetByID(dbc, orderID)
	if err != nil {
		return nil, uuid.Nil, err
	}
	if order.Status != types.OrderStatusAdminReview {
		return nil, uuid.Nil, apierr.Conflict("review.verdict", "order is not awaiting review")
	}
	if order.VersionID == nil {
		return nil, uuid.Nil, apierr.Validation("review.verdict", "order has no version to review")
	}
	return order, *order.VersionID, nil
}

func (s *service) Approve(ctx context.Context, orderID uuid.UUID, adminID uuid.UUID, note string) (*types.Order, error) {
	var out *types.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		order, versionID, err := s.pendingVersion(dbc, orderID)
		if err != nil {
			return err
		}
		if err := s.versions.SetReviewStatus(dbc, versionID, types.ReviewStatusApproved, note); err != nil {
			return err
		}
		if _, err := s.dispatch.EnqueuePublish(dbc, order, versionID); err != nil {
			return err
		}
		out = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("version approved", "order_id", orderID, "admin_id", adminID)
	return out, nil
}

func (s *service) Reject(ctx context.Context, orderID uuid.UUID, adminID uuid.UUID, note string) (*types.Order, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		order, versionID, err := s.pendingVersion(dbc, orderID)
		if err != nil {
			return err
		}
		if err := s.versions.SetReviewStatus(dbc, versionID, types.ReviewStatusRejected, note); err != nil {
			return err
		}
		if _, err := s.orders.Transition(dbc, order.ID, types.OrderStatusFailed, map[string]interface{}{
			"fail_reason": "rejected in review: " + note,
		}); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("version rejected", "order_id", orderID, "admin_id", adminID)

	// Refund outside the verdict transaction; the refund path is retry-safe
	// on its own and a gateway hiccup must not undo the rejection.
	res, rerr := s.refunds.Refund(ctx, orderID, "content rejected in review")
	if rerr != nil {
		s.log.Error("refund after rejection failed; needs retry",
			"order_id", orderID, "error", rerr)
		return s.orders.GetByID(dbctx.New(ctx), orderID)
	}
	return res.Order, nil
}
