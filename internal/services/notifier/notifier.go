package notifier

import (
	"context"
	"fmt"

	"github.com/draftlane/draftlane-backend/internal/clients/sendgrid"
	"github.com/draftlane/draftlane-backend/internal/platform/logger"
)

// Kind selects an email template.
type Kind string

const (
	KindMagicLink           Kind = "magic_link"
	KindPaymentConfirmation Kind = "payment_confirmation"
	KindOrderFailedRefunded Kind = "order_failed_refunded"
	KindArticlePublished    Kind = "article_published"
)

// Context carries template fields; keys depend on the kind.
type Context map[string]string

// Notifier is best-effort from the caller's perspective: callers log the
// returned error and move on, never fail a transaction over mail delivery.
type Notifier interface {
	Send(ctx context.Context, kind Kind, recipient string, tctx Context) error
}

type notifier struct {
	log    *logger.Logger
	mailer sendgrid.Client
}

func New(baseLog *logger.Logger, mailer sendgrid.Client) Notifier {
	return &notifier{
		log:    baseLog.With("service", "Notifier"),
		mailer: mailer,
	}
}

func (n *notifier) Send(ctx context.Context, kind Kind, recipient string, tctx Context) error {
	if n.mailer == nil {
		n.log.Debug("mailer not configured, dropping notification", "kind", string(kind))
		return nil
	}
	subject, text := render(kind, tctx)
	_, err := n.mailer.Send(ctx, sendgrid.SendEmailRequest{
		To:      []sendgrid.EmailAddress{{Email: recipient}},
		Subject: subject,
		Text:    text,
	})
	if err != nil {
		return fmt.Errorf("send %s: %w", kind, err)
	}
	return nil
}

func render(kind Kind, tctx Context) (subject, text string) {
	get := func(k string) string { return tctx[k] }
	switch kind {
	case KindMagicLink:
		return "Confirm your draftlane order",
			"Follow this link to confirm your order and continue to payment:\n\n" +
				get("link") + "\n\nThe link expires at " + get("expires_at") + "."
	case KindPaymentConfirmation:
		return "Payment received",
			"We received your payment of " + get("amount") + ". " +
				get("count") + " item(s) are now in production. " +
				"Track progress: " + get("status_url")
	case KindOrderFailedRefunded:
		return "Order refunded",
			"We could not complete one of your items (" + get("reason") + "). " +
				"The charge of " + get("amount") + " has been refunded."
	case KindArticlePublished:
		return "Your article is live",
			"Your article has been published: " + get("url")
	default:
		return "draftlane update", "Your order status changed."
	}
}
