package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/greenmiles/backend/pkg/logger"
	"github.com/greenmiles/backend/pkg/messages"
	"github.com/greenmiles/backend/pkg/prefs"
)

// Mode selects the execution context the Dispatcher runs in.
type Mode int

const (
	// ModeRequest buffers email jobs until Flush, protecting a live client
	// connection from email latency.
	ModeRequest Mode = iota

	// ModeImmediate runs each job at enqueue time. Used by batch and offline
	// contexts where there is no client response to protect.
	ModeImmediate
)

// UserInfo is a resolved recipient identity.
type UserInfo struct {
	Email string
	Name  string
}

// UserResolver resolves a user's email identity. Returning (nil, nil) means
// the user has no address on file; that is not an error.
type UserResolver func(ctx context.Context, userID int64) (*UserInfo, error)

// dedicatedEmailCategories already trigger a richer, dedicated email
// elsewhere in the flow. The generic Notify path must not double-send for
// them.
var dedicatedEmailCategories = map[prefs.Category]bool{
	prefs.CategoryExchange: true,
	prefs.CategoryActivity: true,
}

// Dispatcher persists in-app messages and schedules their email copies.
//
// A Dispatcher is request-scoped and not safe for concurrent use: one
// request (or one batch run) owns one instance, accumulates jobs in it, and
// flushes it exactly once at the end. There is deliberately no lock around
// the pending batch.
type Dispatcher struct {
	store    *messages.Store
	prefs    *prefs.Service
	gateway  Gateway
	resolver UserResolver
	// directory is the second-chance lookup consulted when the injected
	// resolver yields nothing (typically a direct user-table read).
	directory     UserResolver
	fallbackEmail string
	workerPath    string
	tempDir       string
	mode          Mode
	log           *slog.Logger

	pending         []Job
	state           flushState
	flushRegistered bool
	registrar       func(flush func())
	responseFlush   func()
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger for the Dispatcher.
func WithLogger(log *slog.Logger) Option {
	return func(d *Dispatcher) {
		if log != nil {
			d.log = log
		}
	}
}

// WithResolver sets the primary recipient resolver.
func WithResolver(r UserResolver) Option {
	return func(d *Dispatcher) { d.resolver = r }
}

// WithDirectoryLookup sets the fallback resolver consulted after the
// primary one.
func WithDirectoryLookup(r UserResolver) Option {
	return func(d *Dispatcher) { d.directory = r }
}

// WithConfig applies pipeline configuration (worker path, temp dir,
// fallback address).
func WithConfig(cfg Config) Option {
	return func(d *Dispatcher) {
		d.workerPath = cfg.WorkerPath
		d.tempDir = cfg.TempDir
		d.fallbackEmail = cfg.FallbackEmail
	}
}

// WithMode sets the execution mode. The decision is made once, when the
// dispatcher is created, not at flush time.
func WithMode(m Mode) Option {
	return func(d *Dispatcher) { d.mode = m }
}

// WithFlushRegistrar installs a hook invoked once, on the first enqueued
// job, with the flush callback. Adapters without an explicit end-of-request
// point (cron runners, CLI commands) use it to schedule the flush.
func WithFlushRegistrar(registrar func(flush func())) Option {
	return func(d *Dispatcher) { d.registrar = registrar }
}

// WithResponseFlusher provides the "push the response to the client now"
// primitive. When present, Flush uses the inline path: flush the response,
// then run jobs in-process after the client stopped waiting.
func WithResponseFlusher(fn func()) Option {
	return func(d *Dispatcher) { d.responseFlush = fn }
}

// NewDispatcher creates a dispatcher. A nil gateway disables all email
// paths; in-app messages are still written.
func NewDispatcher(store *messages.Store, prefsSvc *prefs.Service, gateway Gateway, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:   store,
		prefs:   prefsSvc,
		gateway: gateway,
		tempDir: "/tmp/emailjobs",
		state:   stateQueued,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NotifyParams describes one single-recipient notification event.
type NotifyParams struct {
	ReceiverID int64
	SenderID   *int64
	Title      string
	Content    string
	Category   prefs.Category
	Priority   messages.Priority

	// SkipEmail suppresses the email copy for this event only. The zero
	// value keeps email enabled.
	SkipEmail bool
}

// Notify persists the in-app message and, when allowed, enqueues its email
// copy. Nothing here fails the calling business action: persistence and
// delivery errors are logged and swallowed, and the returned message is nil
// only if persistence failed.
func (d *Dispatcher) Notify(ctx context.Context, p NotifyParams) *messages.Message {
	msg, err := d.store.Create(ctx, messages.Row{
		ReceiverID: p.ReceiverID,
		SenderID:   p.SenderID,
		Title:      p.Title,
		Content:    p.Content,
		Priority:   p.Priority,
	})
	if err != nil {
		d.log.LogAttrs(ctx, slog.LevelError, "failed to persist in-app message",
			logger.Component("dispatch"),
			logger.UserID(p.ReceiverID),
			logger.Error(err),
		)
	}

	if p.SkipEmail || d.gateway == nil {
		return msg
	}
	if dedicatedEmailCategories[p.Category] {
		return msg
	}
	if !d.prefs.ShouldSend(ctx, p.ReceiverID, p.Category) {
		return msg
	}

	info := d.resolveUser(ctx, p.ReceiverID)
	if info == nil {
		// No address on file is indistinguishable from an opt-out: both
		// skip silently.
		return msg
	}

	d.enqueue(ctx, NewJob(MessageNotification{
		Email:    info.Email,
		Name:     info.Name,
		Subject:  p.Priority.SubjectPrefix() + p.Title,
		Content:  p.Content,
		Category: p.Category,
		Priority: p.Priority,
		Type:     string(JobMessageNotification),
	}))

	return msg
}

// Recipient is one fan-out target. ID addresses the in-app copy, Email the
// outbound one; either may be missing.
type Recipient struct {
	ID    int64
	Email string
	Name  string
}

// BatchParams describes one fan-out notification event (e.g. "alert all
// admins").
type BatchParams struct {
	SenderID *int64
	Title    string
	Content  string
	Category prefs.Category
	Priority messages.Priority
}

// NotifyBatch persists one in-app message per valid recipient and enqueues a
// single bulk email job for the deduplicated address list, so N recipients
// never translate into N outbound sends blocking the request.
func (d *Dispatcher) NotifyBatch(ctx context.Context, recipients []Recipient, p BatchParams) {
	rows := make([]messages.Row, 0, len(recipients))
	for _, r := range recipients {
		if r.ID <= 0 {
			continue
		}
		rows = append(rows, messages.Row{
			ReceiverID: r.ID,
			SenderID:   p.SenderID,
			Title:      p.Title,
			Content:    p.Content,
			Priority:   p.Priority,
		})
	}
	d.store.CreateBulk(ctx, rows)

	if d.gateway == nil {
		return
	}

	emailRecipients := dedupeRecipients(recipients)
	if len(emailRecipients) == 0 {
		return
	}

	d.enqueue(ctx, NewJob(MessageNotificationBulk{
		Recipients: emailRecipients,
		Subject:    p.Priority.SubjectPrefix() + p.Title,
		Content:    p.Content,
		Category:   p.Category,
		Priority:   p.Priority,
		Type:       string(JobMessageNotificationBulk),
	}))
}

// Broadcast fans a platform announcement out to every recipient: in-app rows
// for valid ids plus one broadcast email job.
func (d *Dispatcher) Broadcast(ctx context.Context, recipients []Recipient, title, content string, priority messages.Priority, announcementContext string) {
	rows := make([]messages.Row, 0, len(recipients))
	for _, r := range recipients {
		if r.ID <= 0 {
			continue
		}
		rows = append(rows, messages.Row{
			ReceiverID: r.ID,
			Title:      title,
			Content:    content,
			Priority:   priority,
		})
	}
	d.store.CreateBulk(ctx, rows)

	if d.gateway == nil {
		return
	}

	emailRecipients := dedupeRecipients(recipients)
	if len(emailRecipients) == 0 {
		return
	}

	d.enqueue(ctx, NewJob(BroadcastAnnouncement{
		Recipients: emailRecipients,
		Title:      title,
		Content:    content,
		Priority:   priority,
		Subject:    priority.SubjectPrefix() + title,
		Context:    announcementContext,
	}))
}

// ExchangeConfirmed records the in-app confirmation of a reward exchange and
// enqueues its dedicated email. Events like this one are why the generic
// Notify path suppresses the exchange category.
func (d *Dispatcher) ExchangeConfirmed(ctx context.Context, p ExchangeConfirmation) *messages.Message {
	msg := d.Notify(ctx, NotifyParams{
		ReceiverID: p.UserID,
		Title:      fmt.Sprintf("Exchange confirmed: %s", p.ProductName),
		Content:    fmt.Sprintf("Your order of %d x %s is confirmed. %d points were spent.", p.Quantity, p.ProductName, p.PointsSpent),
		Category:   prefs.CategoryExchange,
		Priority:   messages.PriorityNormal,
	})

	d.enqueueDedicated(ctx, p.UserID, p.Email, p.Name, func(info UserInfo) Payload {
		p.Email, p.Name = info.Email, info.Name
		return p
	})
	return msg
}

// ExchangeStatusChanged reports an exchange order status change.
func (d *Dispatcher) ExchangeStatusChanged(ctx context.Context, p ExchangeStatusUpdate) *messages.Message {
	msg := d.Notify(ctx, NotifyParams{
		ReceiverID: p.UserID,
		Title:      fmt.Sprintf("Exchange %s: %s", p.Status, p.ProductName),
		Content:    p.Notes,
		Category:   prefs.CategoryExchange,
		Priority:   messages.PriorityNormal,
	})

	d.enqueueDedicated(ctx, p.UserID, p.Email, p.Name, func(info UserInfo) Payload {
		p.Email, p.Name = info.Email, info.Name
		return p
	})
	return msg
}

// ActivityApprovedNotice notifies a user their submitted activity earned points.
func (d *Dispatcher) ActivityApprovedNotice(ctx context.Context, p ActivityApproved) *messages.Message {
	msg := d.Notify(ctx, NotifyParams{
		ReceiverID: p.UserID,
		Title:      fmt.Sprintf("Activity approved: %s", p.ActivityName),
		Content:    fmt.Sprintf("You earned %d points for %s.", p.Points, p.ActivityName),
		Category:   prefs.CategoryActivity,
		Priority:   messages.PriorityNormal,
	})

	d.enqueueDedicated(ctx, p.UserID, p.Email, p.Name, func(info UserInfo) Payload {
		p.Email, p.Name = info.Email, info.Name
		return p
	})
	return msg
}

// ActivityRejectedNotice notifies a user their submitted activity was declined.
func (d *Dispatcher) ActivityRejectedNotice(ctx context.Context, p ActivityRejected) *messages.Message {
	msg := d.Notify(ctx, NotifyParams{
		ReceiverID: p.UserID,
		Title:      fmt.Sprintf("Activity declined: %s", p.ActivityName),
		Content:    p.Reason,
		Category:   prefs.CategoryActivity,
		Priority:   messages.PriorityNormal,
	})

	d.enqueueDedicated(ctx, p.UserID, p.Email, p.Name, func(info UserInfo) Payload {
		p.Email, p.Name = info.Email, info.Name
		return p
	})
	return msg
}

// enqueueDedicated resolves the recipient when the caller did not provide an
// address and enqueues the dedicated job built by fill. A caller-provided
// identity is used as-is; resolution only fills the gap. Missing addresses
// skip silently, like everywhere else in the pipeline.
func (d *Dispatcher) enqueueDedicated(ctx context.Context, userID int64, email, name string, fill func(UserInfo) Payload) {
	if d.gateway == nil {
		return
	}

	info := &UserInfo{Email: strings.TrimSpace(email), Name: name}
	if info.Email == "" {
		info = d.resolveUser(ctx, userID)
	}
	if info == nil {
		return
	}

	d.enqueue(ctx, NewJob(fill(*info)))
}

// resolveUser walks the resolver chain: injected resolver, then directory
// lookup, then the configured fallback address. Resolution failures are not
// errors; they end the chain for that resolver and move on.
func (d *Dispatcher) resolveUser(ctx context.Context, userID int64) *UserInfo {
	for _, resolve := range []UserResolver{d.resolver, d.directory} {
		if resolve == nil {
			continue
		}
		info, err := resolve(ctx, userID)
		if err != nil {
			d.log.LogAttrs(ctx, slog.LevelDebug, "recipient resolution failed",
				logger.Component("dispatch"),
				logger.UserID(userID),
				logger.Error(err),
			)
			continue
		}
		if info != nil && info.Email != "" {
			return info
		}
	}

	if d.fallbackEmail != "" {
		return &UserInfo{Email: d.fallbackEmail}
	}
	return nil
}

// dedupeRecipients drops entries without an address and collapses duplicate
// addresses case-insensitively, keeping the first occurrence.
func dedupeRecipients(recipients []Recipient) []EmailRecipient {
	seen := make(map[string]bool, len(recipients))
	out := make([]EmailRecipient, 0, len(recipients))
	for _, r := range recipients {
		email := strings.TrimSpace(r.Email)
		if email == "" {
			continue
		}
		key := strings.ToLower(email)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, EmailRecipient{Email: email, Name: r.Name, UserID: r.ID})
	}
	return out
}

// enqueue adds a job to the pending batch, or runs it right away in
// immediate mode. The first queued job triggers the one-time flush
// registration when a registrar is installed.
func (d *Dispatcher) enqueue(ctx context.Context, job Job) {
	if d.mode == ModeImmediate {
		// Batch/offline context: no client connection to protect.
		d.run(ctx, job)
		return
	}

	d.pending = append(d.pending, job)

	if !d.flushRegistered {
		d.flushRegistered = true
		if d.registrar != nil {
			flushCtx := context.WithoutCancel(ctx)
			d.registrar(func() { d.Flush(flushCtx) })
		}
	}
}

// Pending returns the number of jobs waiting for the flush.
func (d *Dispatcher) Pending() int {
	return len(d.pending)
}
