package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	stripego "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"

	types "github.com/draftlane/draftlane-backend/internal/domain"
	"github.com/draftlane/draftlane-backend/internal/platform/apierr"
	"github.com/draftlane/draftlane-backend/internal/platform/envutil"
	"github.com/draftlane/draftlane-backend/internal/platform/logger"
)

const Provider = "stripe"

// EventTransactionCompleted is the normalized event type business code
// branches on; gateway-specific event names stay inside this package.
const EventTransactionCompleted = "transaction.completed"

const webhookBodyLimit = 1 << 20

// Checkout is the hosted payment page handle returned to the client.
type Checkout struct {
	TxnID       string
	RedirectURL string
}

// Notification is a verified, normalized gateway event. Metadata is the only
// channel carrying business identifiers back from the gateway.
type Notification struct {
	Provider    string
	EventID     string
	Type        string
	TxnID       string
	AmountCents int64
	Currency    string
	Metadata    map[string]string
	Raw         []byte
}

// Transaction is the result of an idempotent transaction read.
type Transaction struct {
	TxnID       string
	AmountCents int64
	Currency    string
	Status      string
	Metadata    map[string]string
}

// Gateway abstracts the payment provider so the orchestrator and refund
// coordinator can be tested against a fake.
type Gateway interface {
	CreateCheckout(ctx context.Context, session *types.PurchaseSession, units []types.OrderUnit) (*Checkout, error)
	VerifyNotification(payload []byte, sigHeader string) (*Notification, error)
	RetrieveTransaction(ctx context.Context, txnID string) (*Transaction, error)
	Refund(ctx context.Context, paymentRef string, amountCents int64) (string, error)
}

type Config struct {
	APIKey        string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:        strings.TrimSpace(envutil.String("STRIPE_API_KEY", "")),
		WebhookSecret: strings.TrimSpace(envutil.String("STRIPE_WEBHOOK_SECRET", "")),
		SuccessURL:    envutil.String("CHECKOUT_SUCCESS_URL", "https://draftlane.io/checkout/success"),
		CancelURL:     envutil.String("CHECKOUT_CANCEL_URL", "https://draftlane.io/checkout/cancel"),
	}
}

type gateway struct {
	log *logger.Logger
	api *client.API
	cfg Config
}

func New(log *logger.Logger, cfg Config) (Gateway, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.APIKey == "" {
		return nil, apierr.FatalConfig("stripe.new", "missing STRIPE_API_KEY")
	}
	if cfg.WebhookSecret == "" {
		return nil, apierr.FatalConfig("stripe.new", "missing STRIPE_WEBHOOK_SECRET")
	}
	api := &client.API{}
	api.Init(cfg.APIKey, nil)
	return &gateway{
		log: log.With("client", "StripeGateway"),
		api: api,
		cfg: cfg,
	}, nil
}

func (g *gateway) CreateCheckout(ctx context.Context, session *types.PurchaseSession, units []types.OrderUnit) (*Checkout, error) {
	if len(units) == 0 {
		return nil, apierr.Validation("stripe.create_checkout", "session has no units")
	}
	lineItems := make([]*stripego.CheckoutSessionLineItemParams, 0, len(units))
	itemIDs := make([]string, 0, len(units))
	for _, u := range units {
		name := "Generated article: " + u.Topic
		if u.IsBacklink() {
			name = "Backlink placement: " + u.AnchorText
			itemIDs = append(itemIDs, u.ContentItemID.String())
		}
		lineItems = append(lineItems, &stripego.CheckoutSessionLineItemParams{
			Quantity: stripego.Int64(1),
			PriceData: &stripego.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripego.String(session.Currency),
				UnitAmount: stripego.Int64(u.PriceCents),
				ProductData: &stripego.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripego.String(name),
				},
			},
		})
	}

	params := &stripego.CheckoutSessionParams{
		Mode:          stripego.String(string(stripego.CheckoutSessionModePayment)),
		SuccessURL:    stripego.String(g.cfg.SuccessURL),
		CancelURL:     stripego.String(g.cfg.CancelURL),
		CustomerEmail: stripego.String(session.Email),
		LineItems:     lineItems,
	}
	params.Context = ctx
	// This metadata is the only channel carrying business identifiers back
	// through the payment notification.
	params.AddMetadata("session_id", session.ID.String())
	params.AddMetadata("kind", session.Kind)
	if len(itemIDs) > 0 {
		params.AddMetadata("item_ids", strings.Join(itemIDs, ","))
	}

	cs, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, wrapStripeErr("stripe.create_checkout", err)
	}
	return &Checkout{TxnID: cs.ID, RedirectURL: cs.URL}, nil
}

// checkoutSessionPayload is the subset of the event object this system reads.
type checkoutSessionPayload struct {
	ID          string            `json:"id"`
	AmountTotal int64             `json:"amount_total"`
	Currency    string            `json:"currency"`
	Metadata    map[string]string `json:"metadata"`
}

func (g *gateway) VerifyNotification(payload []byte, sigHeader string) (*Notification, error) {
	if len(payload) == 0 || len(payload) > webhookBodyLimit {
		return nil, apierr.Validation("stripe.verify_notification", "invalid payload size")
	}
	event, err := webhook.ConstructEvent(payload, sigHeader, g.cfg.WebhookSecret)
	if err != nil {
		return nil, apierr.Signature("stripe.verify_notification", err)
	}

	n := &Notification{
		Provider: Provider,
		EventID:  event.ID,
		Type:     string(event.Type),
		Raw:      payload,
	}
	if event.Type == stripego.EventTypeCheckoutSessionCompleted {
		var cs checkoutSessionPayload
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return nil, apierr.Validation("stripe.verify_notification", "malformed event object")
		}
		n.Type = EventTransactionCompleted
		n.TxnID = cs.ID
		n.AmountCents = cs.AmountTotal
		n.Currency = cs.Currency
		n.Metadata = cs.Metadata
	}
	return n, nil
}

func (g *gateway) RetrieveTransaction(ctx context.Context, txnID string) (*Transaction, error) {
	params := &stripego.CheckoutSessionParams{}
	params.Context = ctx
	cs, err := g.api.CheckoutSessions.Get(txnID, params)
	if err != nil {
		return nil, wrapStripeErr("stripe.retrieve_transaction", err)
	}
	return &Transaction{
		TxnID:       cs.ID,
		AmountCents: cs.AmountTotal,
		Currency:    string(cs.Currency),
		Status:      string(cs.PaymentStatus),
		Metadata:    cs.Metadata,
	}, nil
}

func (g *gateway) Refund(ctx context.Context, paymentRef string, amountCents int64) (string, error) {
	// The checkout session id is our payment ref; the refund is issued
	// against its payment intent.
	params := &stripego.CheckoutSessionParams{}
	params.Context = ctx
	cs, err := g.api.CheckoutSessions.Get(paymentRef, params)
	if err != nil {
		return "", wrapStripeErr("stripe.refund", err)
	}
	if cs.PaymentIntent == nil || cs.PaymentIntent.ID == "" {
		return "", apierr.Validation("stripe.refund", "transaction has no payment intent")
	}
	rp := &stripego.RefundParams{
		PaymentIntent: stripego.String(cs.PaymentIntent.ID),
		Amount:        stripego.Int64(amountCents),
	}
	rp.Context = ctx
	refund, err := g.api.Refunds.New(rp)
	if err != nil {
		return "", wrapStripeErr("stripe.refund", err)
	}
	return refund.ID, nil
}

func wrapStripeErr(op string, err error) error {
	var sErr *stripego.Error
	if errors.As(err, &sErr) {
		if sErr.HTTPStatusCode == 429 || sErr.HTTPStatusCode >= 500 {
			return apierr.Transient(op, err)
		}
		return apierr.New(apierr.CodeValidation, op, sErr.Msg, err)
	}
	return apierr.Transient(op, err)
}
