package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	redisbus "github.com/draftlane/draftlane-backend/internal/clients/redis"
	"github.com/draftlane/draftlane-backend/internal/clients/stripe"
	"github.com/draftlane/draftlane-backend/internal/data/repos"
	types "github.com/draftlane/draftlane-backend/internal/domain"
	"github.com/draftlane/draftlane-backend/internal/domain/commerce"
	"github.com/draftlane/draftlane-backend/internal/platform/apierr"
	"github.com/draftlane/draftlane-backend/internal/platform/dbctx"
	"github.com/draftlane/draftlane-backend/internal/platform/logger"
	"github.com/draftlane/draftlane-backend/internal/services/dispatch"
	"github.com/draftlane/draftlane-backend/internal/services/notifier"
)

// Result reports what a notification resolved to. Duplicate deliveries
// resolve to the same orders as the first one.
type Result struct {
	Orders    []*types.Order
	Duplicate bool
}

// Service is the order-fulfillment state machine triggered by payment
// notifications. It owns the idempotency gate, the atomic session+orders
// transaction, and the post-commit dispatch.
type Service interface {
	HandleNotification(ctx context.Context, rawBody []byte, sigHeader string) (*Result, error)
}

type service struct {
	db       *gorm.DB
	log      *logger.Logger
	gateway  stripe.Gateway
	sessions repos.SessionRepo
	items    repos.ContentItemRepo
	orders   repos.OrderRepo
	events   repos.WebhookEventRepo
	dispatch dispatch.Dispatcher
	notify   notifier.Notifier
	bus      redisbus.EventBus
}

func NewService(
	db *gorm.DB,
	baseLog *logger.Logger,
	gateway stripe.Gateway,
	reposet repos.Set,
	dispatcher dispatch.Dispatcher,
	notify notifier.Notifier,
	bus redisbus.EventBus,
) Service {
	return &service{
		db:       db,
		log:      baseLog.With("service", "Orchestrator"),
		gateway:  gateway,
		sessions: reposet.Session,
		items:    reposet.ContentItem,
		orders:   reposet.Order,
		events:   reposet.WebhookEvent,
		dispatch: dispatcher,
		notify:   notify,
		bus:      bus,
	}
}

func (s *service) HandleNotification(ctx context.Context, rawBody []byte, sigHeader string) (*Result, error) {
	// Step 1: signature. Nothing is persisted for an unsigned payload.
	notification, err := s.gateway.VerifyNotification(rawBody, sigHeader)
	if err != nil {
		return nil, err
	}
	if notification.Type != stripe.EventTransactionCompleted {
		s.log.Debug("ignoring gateway event", "event_type", notification.Type)
		return &Result{}, nil
	}

	log := s.log.With("txn_id", notification.TxnID, "event_id", notification.EventID)

	// Step 2: record the event. A duplicate event id is the cheapest dedup;
	// the order-level gate below still covers distinct events for the same
	// transaction.
	dbc := dbctx.New(ctx)
	event := &types.WebhookEvent{
		Provider:        notification.Provider,
		ProviderEventID: notification.EventID,
		EventType:       notification.Type,
		Payload:         datatypes.JSON(notification.Raw),
	}
	if event, err = s.events.Insert(dbc, event); err != nil {
		if !apierr.IsCode(err, apierr.CodeConflict) {
			return nil, err
		}
		stored, lookupErr := s.events.GetByProviderEventID(dbc, notification.Provider, notification.EventID)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if stored.ProcessedAt != nil && stored.ProcessingError == "" {
			existing, ordersErr := s.orders.ListByGatewayTxnID(dbc, notification.TxnID)
			if ordersErr != nil {
				return nil, ordersErr
			}
			log.Info("duplicate webhook event acknowledged", "orders", len(existing))
			return &Result{Orders: existing, Duplicate: true}, nil
		}
		// The first delivery never finished cleanly. Run it again against
		// the stored event so the outcome is recorded on the same row.
		log.Warn("redelivery of unfinished webhook event; reprocessing",
			"processing_error", stored.ProcessingError)
		event = stored
	}

	result, procErr := s.process(ctx, log, notification)
	procMsg := ""
	if procErr != nil {
		procMsg = procErr.Error()
	}
	if mErr := s.events.MarkProcessed(dbc, event, procMsg); mErr != nil {
		log.Warn("failed to mark webhook event processed", "error", mErr)
	}
	return result, procErr
}

func (s *service) process(ctx context.Context, log *logger.Logger, n *stripe.Notification) (*Result, error) {
	// Step 3: the metadata is the only channel carrying business ids back
	// from the gateway. A missing session id is a misconfiguration, not a
	// retryable condition.
	rawSessionID := n.Metadata["session_id"]
	sessionID, err := uuid.Parse(rawSessionID)
	if rawSessionID == "" || err != nil {
		log.Error("payment notification without session_id metadata; gateway misconfigured",
			"metadata_keys", metadataKeys(n.Metadata))
		return nil, apierr.FatalConfig("orchestrator.handle", "notification metadata missing session_id")
	}
	log = log.With("session_id", sessionID)

	dbc := dbctx.New(ctx)

	// Step 4: idempotency gate. Gateway transaction id first (canonical),
	// session id as fallback for replays that predate the txn association.
	existing, err := s.orders.ListByGatewayTxnID(dbc, n.TxnID)
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		if existing, err = s.orders.ListBySessionID(dbc, sessionID); err != nil {
			return nil, err
		}
	}
	if len(existing) > 0 {
		log.Info("duplicate payment notification acknowledged", "orders", len(existing))
		return &Result{Orders: existing, Duplicate: true}, nil
	}

	sess, err := s.sessions.GetByID(dbc, sessionID)
	if err != nil {
		if apierr.IsCode(err, apierr.CodeNotFound) {
			// Money moved but the cart is gone (swept or never existed).
			// Needs a human; acknowledged upstream so the gateway stops
			// retrying.
			log.Error("paid notification for unknown session; manual remediation required")
		}
		return nil, err
	}

	orders, err := s.createOrders(ctx, sess, n)
	if err != nil {
		if apierr.IsCode(err, apierr.CodeConflict) {
			// Lost the unique-index race against a concurrent duplicate.
			// The winner's orders are the result.
			winners, lookupErr := s.orders.ListByGatewayTxnID(dbc, n.TxnID)
			if lookupErr != nil {
				return nil, lookupErr
			}
			if len(winners) > 0 {
				log.Info("concurrent duplicate lost create race; returning winner orders", "orders", len(winners))
				return &Result{Orders: winners, Duplicate: true}, nil
			}
		}
		return nil, err
	}

	// Step 5: post-commit dispatch. One job per order; an enqueue failure
	// is logged and skipped so one stuck item cannot strand the rest of a
	// paid batch. Stuck items are recovered via the admin retry endpoint.
	for _, order := range orders {
		if _, dErr := s.dispatch.EnqueueForOrder(dbc, order); dErr != nil {
			log.Error("fulfillment enqueue failed; order needs manual dispatch",
				"order_id", order.ID, "error", dErr)
			continue
		}
		s.publishEvent(ctx, order, "order created")
	}

	// Step 6: best-effort confirmation.
	if nErr := s.notify.Send(ctx, notifier.KindPaymentConfirmation, sess.Email, notifier.Context{
		"amount": formatAmount(n.AmountCents, n.Currency),
		"count":  strconv.Itoa(len(orders)),
	}); nErr != nil {
		log.Warn("payment confirmation email failed", "error", nErr)
	}

	log.Info("payment notification processed", "orders", len(orders))
	return &Result{Orders: orders}, nil
}

// createOrders runs the atomic step: session to paid plus one order per unit,
// creating content items for generation units. All or nothing.
func (s *service) createOrders(ctx context.Context, sess *types.PurchaseSession, n *stripe.Notification) ([]*types.Order, error) {
	units, err := commerce.UnmarshalUnits(sess.Units)
	if err != nil {
		return nil, fmt.Errorf("decode session units: %w", err)
	}
	if len(units) == 0 {
		return nil, apierr.Validation("orchestrator.create_orders", "session has no units")
	}

	var orders []*types.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)

		moved, err := s.sessions.UpdateStatusIf(dbc, sess.ID,
			[]string{types.SessionStatusPendingAuth, types.SessionStatusAuthenticated, types.SessionStatusPaymentPending},
			types.SessionStatusPaid)
		if err != nil {
			return err
		}
		if !moved {
			return apierr.Conflict("orchestrator.create_orders", "session status does not allow payment capture")
		}
		if err := s.sessions.UpdateFields(dbc, sess.ID, map[string]interface{}{
			"payment_ref": n.TxnID,
		}); err != nil {
			return err
		}

		orders = orders[:0]
		for _, unit := range units {
			itemID := unit.ContentItemID
			if unit.IsGeneration() {
				item := &types.ContentItem{
					DomainID:           unit.DomainID,
					Slug:               slugForUnit(unit),
					Topic:              unit.Topic,
					PriceCents:         unit.PriceCents,
					Currency:           sess.Currency,
					AvailabilityStatus: types.AvailabilityProcessing,
				}
				createdItems, err := s.items.Create(dbc, []*types.ContentItem{item})
				if err != nil {
					return err
				}
				itemID = createdItems[0].ID
			}

			rawUnit, err := json.Marshal(unit)
			if err != nil {
				return err
			}
			sessionID := sess.ID
			order := &types.Order{
				SessionID:     &sessionID,
				ContentItemID: itemID,
				CustomerEmail: sess.Email,
				Unit:          datatypes.JSON(rawUnit),
				GatewayTxnID:  n.TxnID,
				AmountCents:   unit.PriceCents,
				Currency:      currencyOr(n.Currency, sess.Currency),
				PaymentStatus: types.PaymentStatusCaptured,
				Status:        types.OrderStatusProcessing,
			}
			orders = append(orders, order)
		}
		created, err := s.orders.CreateBatch(dbc, orders)
		if err != nil {
			return err
		}
		orders = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *service) publishEvent(ctx context.Context, order *types.Order, detail string) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, redisbus.OrderEvent{
		OrderID:   order.ID,
		SessionID: order.SessionID,
		Status:    order.Status,
		Detail:    detail,
		At:        time.Now().UTC(),
	}); err != nil {
		s.log.Debug("order event publish failed", "order_id", order.ID, "error", err)
	}
}

func slugForUnit(u types.OrderUnit) string {
	if u.Slug != "" {
		return u.Slug
	}
	return "gen-" + uuid.NewString()
}

func currencyOr(c, fallback string) string {
	if c != "" {
		return c
	}
	return fallback
}

func formatAmount(cents int64, currency string) string {
	if currency == "" {
		currency = "usd"
	}
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, currency)
}

func metadataKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
