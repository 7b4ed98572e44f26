package status

import (
	"context"

	"github.com/google/uuid"

	"github.com/draftlane/draftlane-backend/internal/data/repos"
	types "github.com/draftlane/draftlane-backend/internal/domain"
	"github.com/draftlane/draftlane-backend/internal/platform/dbctx"
	"github.com/draftlane/draftlane-backend/internal/platform/logger"
)

// OrderView is the customer-facing projection of one order. Internal payment
// plumbing stays out of it.
type OrderView struct {
	ID            uuid.UUID  `json:"id"`
	ContentItemID uuid.UUID  `json:"content_item_id"`
	Status        string     `json:"status"`
	AmountCents   int64      `json:"amount_cents"`
	Currency      string     `json:"currency"`
	FailReason    string     `json:"fail_reason,omitempty"`
	Refunded      bool       `json:"refunded"`
	VersionID     *uuid.UUID `json:"version_id,omitempty"`
	Stage         string     `json:"stage,omitempty"`
}

// SessionView rolls a session's orders into one progress report.
type SessionView struct {
	SessionID       uuid.UUID    `json:"session_id"`
	SessionStatus   string       `json:"session_status"`
	Kind            string       `json:"kind"`
	TotalPriceCents int64        `json:"total_price_cents"`
	Currency        string       `json:"currency"`
	Orders          []OrderView  `json:"orders"`
	Counts          StatusCounts `json:"counts"`
}

type StatusCounts struct {
	Total     int `json:"total"`
	InFlight  int `json:"in_flight"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Refunded  int `json:"refunded"`
}

type Service interface {
	Session(ctx context.Context, sessionID uuid.UUID) (*SessionView, error)
	Order(ctx context.Context, orderID uuid.UUID) (*OrderView, error)
}

type service struct {
	log      *logger.Logger
	sessions repos.SessionRepo
	orders   repos.OrderRepo
	jobRuns  repos.JobRunRepo
}

func NewService(baseLog *logger.Logger, sessions repos.SessionRepo, orders repos.OrderRepo, jobRuns repos.JobRunRepo) Service {
	return &service{
		log:      baseLog.With("service", "StatusService"),
		sessions: sessions,
		orders:   orders,
		jobRuns:  jobRuns,
	}
}

func (s *service) Session(ctx context.Context, sessionID uuid.UUID) (*SessionView, error) {
	dbc := dbctx.New(ctx)
	sess, err := s.sessions.GetByID(dbc, sessionID)
	if err != nil {
		return nil, err
	}
	orders, err := s.orders.ListBySessionID(dbc, sess.ID)
	if err != nil {
		return nil, err
	}
	view := &SessionView{
		SessionID:       sess.ID,
		SessionStatus:   sess.Status,
		Kind:            sess.Kind,
		TotalPriceCents: sess.TotalPriceCents,
		Currency:        sess.Currency,
		Orders:          make([]OrderView, 0, len(orders)),
	}
	for _, o := range orders {
		ov := s.project(dbc, o)
		view.Orders = append(view.Orders, ov)
		view.Counts.Total++
		switch o.Status {
		case types.OrderStatusCompleted:
			view.Counts.Completed++
		case types.OrderStatusFailed:
			view.Counts.Failed++
		case types.OrderStatusRefunded:
			view.Counts.Refunded++
		default:
			view.Counts.InFlight++
		}
	}
	return view, nil
}

func (s *service) Order(ctx context.Context, orderID uuid.UUID) (*OrderView, error) {
	dbc := dbctx.New(ctx)
	o, err := s.orders.GetByID(dbc, orderID)
	if err != nil {
		return nil, err
	}
	ov := s.project(dbc, o)
	return &ov, nil
}

func (s *service) project(dbc dbctx.Context, o *types.Order) OrderView {
	ov := OrderView{
		ID:            o.ID,
		ContentItemID: o.ContentItemID,
		Status:        o.Status,
		AmountCents:   o.AmountCents,
		Currency:      o.Currency,
		FailReason:    o.FailReason,
		Refunded:      o.PaymentStatus == types.PaymentStatusRefunded,
		VersionID:     o.VersionID,
	}
	// Stage is decorative progress detail; a lookup failure never fails the
	// status read.
	job, err := s.jobRuns.GetLatestByEntity(dbc, "order", o.ID, "")
	if err == nil && job != nil {
		ov.Stage = job.Stage
	}
	return ov
}
