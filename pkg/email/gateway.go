package email

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/greenmiles/backend/pkg/dispatch"
	"github.com/greenmiles/backend/pkg/logger"
	"github.com/greenmiles/backend/pkg/prefs"
)

// PreferenceGateway answers whether an address may receive email for a
// category. Satisfied by *prefs.Service.
type PreferenceGateway interface {
	ShouldSendByEmail(ctx context.Context, email string, category prefs.Category) bool
}

// Gateway turns typed email jobs into outbound sends. It is the single
// dispatch.Gateway implementation used by the inline, spawned-worker, and
// synchronous-fallback paths alike.
//
// Per-category suppression happens here, at send time, against the
// recipient's address: a recipient without an account, or with the category
// enabled, gets the email; an opted-out one is skipped silently.
type Gateway struct {
	sender EmailSender
	prefs  PreferenceGateway
	log    *slog.Logger
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithGatewayLogger sets the logger for the Gateway.
func WithGatewayLogger(log *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if log != nil {
			g.log = log
		}
	}
}

// WithPreferenceGateway installs per-category suppression. Without it,
// every job is sent.
func WithPreferenceGateway(p PreferenceGateway) GatewayOption {
	return func(g *Gateway) { g.prefs = p }
}

// NewGateway creates a gateway delivering through the given sender.
func NewGateway(sender EmailSender, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		sender: sender,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Send executes one email job. Multi-recipient jobs isolate per-recipient
// failures: a bounce for one address is logged and the rest of the batch
// proceeds, so Send only errors on malformed jobs or single-recipient
// failures.
func (g *Gateway) Send(ctx context.Context, job dispatch.Job) error {
	switch p := job.Payload.(type) {
	case dispatch.MessageNotification:
		return g.deliver(ctx, job.Type, p.Category, p.Email, p.Subject, contentBody(p.Name, p.Content))

	case dispatch.MessageNotificationBulk:
		g.deliverBatch(ctx, job.Type, p.Category, p.Recipients, p.Subject, p.Content)
		return nil

	case dispatch.BroadcastAnnouncement:
		g.deliverBatch(ctx, job.Type, prefs.CategoryAnnouncement, p.Recipients, p.Subject, p.Content)
		return nil

	case dispatch.ExchangeConfirmation:
		subject := fmt.Sprintf("Order confirmed: %s", p.ProductName)
		body := contentBody(p.Name, fmt.Sprintf(
			"Your order of %d x %s is confirmed. %d points were deducted from your balance.",
			p.Quantity, p.ProductName, p.PointsSpent))
		return g.deliver(ctx, job.Type, prefs.CategoryExchange, p.Email, subject, body)

	case dispatch.ExchangeStatusUpdate:
		subject := fmt.Sprintf("Order %s: %s", p.Status, p.ProductName)
		body := contentBody(p.Name, fmt.Sprintf(
			"Your order of %s is now %s. %s", p.ProductName, p.Status, p.Notes))
		return g.deliver(ctx, job.Type, prefs.CategoryExchange, p.Email, subject, body)

	case dispatch.ActivityApproved:
		subject := fmt.Sprintf("Activity approved: %s", p.ActivityName)
		body := contentBody(p.Name, fmt.Sprintf(
			"Your activity %q was approved. You earned %d points.", p.ActivityName, p.Points))
		return g.deliver(ctx, job.Type, prefs.CategoryActivity, p.Email, subject, body)

	case dispatch.ActivityRejected:
		subject := fmt.Sprintf("Activity declined: %s", p.ActivityName)
		body := contentBody(p.Name, fmt.Sprintf(
			"Your activity %q was declined. Reason: %s", p.ActivityName, p.Reason))
		return g.deliver(ctx, job.Type, prefs.CategoryActivity, p.Email, subject, body)

	default:
		return fmt.Errorf("%w: %q", dispatch.ErrUnknownJobType, job.Type)
	}
}

// deliver sends one email unless the recipient opted the category out.
func (g *Gateway) deliver(ctx context.Context, jobType dispatch.JobType, category prefs.Category, to, subject, body string) error {
	if g.prefs != nil && !g.prefs.ShouldSendByEmail(ctx, to, category) {
		g.log.LogAttrs(ctx, slog.LevelDebug, "email suppressed by preference",
			logger.Component("email"),
			logger.JobType(jobType),
			logger.Recipient(to),
			logger.Category(category),
		)
		return nil
	}

	return g.sender.SendEmail(ctx, SendEmailParams{
		SendTo:   to,
		Subject:  subject,
		BodyHTML: body,
		Tag:      string(jobType),
	})
}

// deliverBatch fans one job out to its recipients. Failures are per
// recipient and never abort the batch.
func (g *Gateway) deliverBatch(ctx context.Context, jobType dispatch.JobType, category prefs.Category, recipients []dispatch.EmailRecipient, subject, content string) {
	for _, r := range recipients {
		if err := g.deliver(ctx, jobType, category, r.Email, subject, contentBody(r.Name, content)); err != nil {
			g.log.LogAttrs(ctx, slog.LevelError, "failed to send batch email",
				logger.Component("email"),
				logger.JobType(jobType),
				logger.Recipient(r.Email),
				logger.Error(err),
			)
		}
	}
}

// contentBody produces the minimal HTML body used for notification copies.
// Richer layouts belong to the template layer, not this pipeline.
func contentBody(name, content string) string {
	greeting := "Hello,"
	if name != "" {
		greeting = fmt.Sprintf("Hello %s,", html.EscapeString(name))
	}
	return fmt.Sprintf("<p>%s</p><p>%s</p>", greeting, html.EscapeString(content))
}
