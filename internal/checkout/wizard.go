// Package checkout drives the rental checkout wizard from billing details
// through order submission to payment confirmation.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/khoakhoakhoa23/TMDT-sub000/internal/apperr"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/draft"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/models"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/payment"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/validation"
)

// DefaultRedirect is where a customer is sent after a successful payment.
const DefaultRedirect = "/dashboard"

// Wizard is one checkout session. All methods are safe for concurrent use.
type Wizard struct {
	submitter Submitter
	poller    Poller
	locations LocationSource
	drafts    draft.Store
	draftKey  string
	items     []models.OrderItem
	redirect  string
	observers []Observer
	now       func() time.Time
	logger    *slog.Logger

	// ctx bounds every poller started by this wizard; Close cancels it.
	ctx  context.Context
	stop context.CancelFunc

	// notifyMu orders deliveries to observers. Never acquired with mu held.
	notifyMu sync.Mutex

	mu         sync.Mutex
	step       models.Step
	billing    models.BillingInfo
	window     models.RentalWindow
	method     models.PaymentMethod
	terms      bool
	errs       map[models.Step]validation.Errors
	attemptID  string
	orderID    string
	intent     *models.PaymentIntent
	handle     PollHandle
	generation uint64
	submitting bool
	frozen     bool
	closed     bool
	submitErr  error
	pollErr    error
	outcome    Outcome
}

// Option configures a Wizard.
type Option func(*Wizard)

// WithItems sets the cars being rented.
func WithItems(items ...models.OrderItem) Option {
	return func(w *Wizard) { w.items = append([]models.OrderItem(nil), items...) }
}

// WithDraftStore restores and persists the rental window under key.
func WithDraftStore(store draft.Store, key string) Option {
	return func(w *Wizard) {
		w.drafts = store
		if key != "" {
			w.draftKey = key
		}
	}
}

// WithLocationSource sets where Locations comes from.
func WithLocationSource(src LocationSource) Option {
	return func(w *Wizard) { w.locations = src }
}

// WithRedirect sets the post-payment redirect target.
func WithRedirect(target string) Option {
	return func(w *Wizard) { w.redirect = target }
}

// WithObserver registers an observer.
func WithObserver(o Observer) Option {
	return func(w *Wizard) { w.observers = append(w.observers, o) }
}

// WithNow sets the clock used to seed the rental window.
func WithNow(now func() time.Time) Option {
	return func(w *Wizard) { w.now = now }
}

// WithLogger sets the wizard's logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Wizard) { w.logger = l }
}

// New starts a checkout session on the Billing step. The rental window is
// restored from the draft store when one is configured and holds a draft,
// and otherwise seeded with today and tomorrow.
func New(ctx context.Context, submitter Submitter, poller Poller, opts ...Option) *Wizard {
	w := &Wizard{
		submitter: submitter,
		poller:    poller,
		drafts:    draft.NewMemoryStore(),
		draftKey:  draft.DefaultKey,
		redirect:  DefaultRedirect,
		now:       time.Now,
		logger:    slog.Default(),
		step:      models.StepBilling,
		method:    models.DefaultPaymentMethod,
		errs:      make(map[models.Step]validation.Errors),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.ctx, w.stop = context.WithCancel(ctx)

	w.window = models.NewRentalWindow(w.now())
	saved, ok, err := w.drafts.Get(ctx, w.draftKey)
	switch {
	case err != nil:
		w.logger.Warn("Failed to restore rental draft", "key", w.draftKey, "error", err)
	case ok:
		w.window = saved
	}
	return w
}

// Locations returns the pickup and dropoff choices.
func (w *Wizard) Locations(ctx context.Context) []models.Location {
	if w.locations == nil {
		return append([]models.Location(nil), models.FallbackLocations...)
	}
	return w.locations.Locations(ctx)
}

// SetBilling replaces the billing details.
func (w *Wizard) SetBilling(b models.BillingInfo) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.editableLocked(); err != nil {
		return err
	}
	w.billing = b
	w.errs[models.StepBilling] = validation.Billing(b)
	return nil
}

// SetRental replaces the rental window and saves it as the draft.
func (w *Wizard) SetRental(win models.RentalWindow) error {
	w.mu.Lock()
	if err := w.editableLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	w.window = win
	w.errs[models.StepRental] = validation.Rental(win)
	w.mu.Unlock()

	if err := w.drafts.Set(w.ctx, w.draftKey, win); err != nil {
		w.logger.Warn("Failed to save rental draft", "key", w.draftKey, "error", err)
	}
	return nil
}

// SetMethod selects the payment method.
func (w *Wizard) SetMethod(m models.PaymentMethod) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.editableLocked(); err != nil {
		return err
	}
	w.method = m
	w.errs[models.StepMethod] = validation.Method(m)
	return nil
}

// AcceptTerms records the terms and policy agreement.
func (w *Wizard) AcceptTerms(accepted bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.editableLocked(); err != nil {
		return err
	}
	w.terms = accepted
	w.errs[models.StepConfirm] = validation.Validate(models.StepConfirm, w.inputLocked())
	return nil
}

func (w *Wizard) editableLocked() error {
	switch {
	case w.closed:
		return apperr.ErrClosed
	case w.frozen:
		return apperr.ErrFrozen
	}
	return nil
}

// Next validates the current step and advances. On Confirm it submits the
// order: gateway payments move to Pay and start polling, direct checkout
// finishes the session, and failures leave the wizard on Confirm.
func (w *Wizard) Next(ctx context.Context) error {
	w.mu.Lock()
	if err := w.transitionableLocked(); err != nil {
		w.mu.Unlock()
		return err
	}

	step := w.step
	if step == models.StepPay {
		w.mu.Unlock()
		return fmt.Errorf("next from %s: %w", step, apperr.ErrInvalidTransition)
	}

	errs := validation.Validate(step, w.inputLocked())
	w.errs[step] = errs
	if !errs.OK() {
		w.mu.Unlock()
		return &apperr.ValidationError{Step: step.String(), Fields: copyErrors(errs)}
	}

	if step != models.StepConfirm {
		w.step = step + 1
		w.mu.Unlock()
		w.notify(Event{Type: EventStepChanged, Step: step + 1})
		return nil
	}

	o := w.orderLocked()
	w.submitting = true
	w.submitErr = nil
	w.mu.Unlock()

	return w.submit(ctx, o)
}

func (w *Wizard) submit(ctx context.Context, o models.Order) error {
	res, err := w.submitter.Submit(ctx, o)

	w.mu.Lock()
	w.submitting = false

	if w.closed {
		w.mu.Unlock()
		if err == nil {
			w.logger.Warn("Checkout closed during submission, discarding result", "orderId", res.Order.ID)
		}
		return apperr.ErrClosed
	}

	if err != nil {
		w.submitErr = err
		w.mu.Unlock()
		w.logger.Warn("Order submission failed", "kind", apperr.Kind(err), "error", err)
		w.notify(Event{Type: EventSubmissionFailed, Step: models.StepConfirm, Err: err})
		return err
	}

	w.frozen = true
	w.attemptID = ""
	w.orderID = res.Order.ID

	if res.Completed {
		w.outcome = OutcomeSucceeded
		redirect := w.redirect
		w.mu.Unlock()

		w.logger.Info("Order paid by direct checkout", "orderId", res.Order.ID)
		w.clearDraft()
		w.notify(Event{Type: EventPaymentSucceeded, Step: models.StepConfirm, Status: models.PaymentStatusCompleted, Redirect: redirect})
		return nil
	}

	if res.Intent == nil || res.Intent.ID == "" {
		w.frozen = false
		w.orderID = ""
		err := fmt.Errorf("enter pay without payment intent: %w", apperr.ErrInvalidTransition)
		w.submitErr = err
		w.mu.Unlock()
		return err
	}

	intent := *res.Intent
	w.intent = &intent
	w.pollErr = nil
	w.step = models.StepPay
	w.generation++
	gen := w.generation
	h := w.poller.Start(w.ctx, intent.ID)
	w.handle = h
	w.mu.Unlock()

	w.logger.Info("Awaiting payment", "orderId", res.Order.ID, "intentId", intent.ID)
	w.notify(Event{Type: EventStepChanged, Step: models.StepPay})

	go w.forward(gen, h)
	return nil
}

// Back returns to the previous step. Leaving Pay cancels the poller and
// discards the order and payment intent before the step changes.
func (w *Wizard) Back() error {
	w.mu.Lock()
	if err := w.transitionableLocked(); err != nil {
		w.mu.Unlock()
		return err
	}

	var target models.Step
	switch w.step {
	case models.StepBilling:
		w.mu.Unlock()
		return fmt.Errorf("back from %s: %w", models.StepBilling, apperr.ErrInvalidTransition)
	case models.StepPay:
		w.abortPaymentLocked()
		target = models.StepMethod
	default:
		target = w.step - 1
	}
	w.step = target
	w.mu.Unlock()

	w.notify(Event{Type: EventStepChanged, Step: target})
	return nil
}

// abortPaymentLocked stops the poller and forgets the abandoned attempt so a
// retry creates a fresh order and intent.
func (w *Wizard) abortPaymentLocked() {
	h := w.handle
	w.handle = nil
	w.generation++
	if h != nil {
		h.Cancel()
	}

	w.logger.Info("Payment abandoned", "orderId", w.orderID)
	w.intent = nil
	w.orderID = ""
	w.pollErr = nil
	w.outcome = OutcomeNone
	w.frozen = false
}

func (w *Wizard) transitionableLocked() error {
	switch {
	case w.closed:
		return apperr.ErrClosed
	case w.submitting:
		return apperr.ErrSubmitInFlight
	case w.outcome == OutcomeSucceeded:
		return fmt.Errorf("checkout already paid: %w", apperr.ErrInvalidTransition)
	}
	return nil
}

// ForceComplete settles the current payment through the simulate endpoint.
// It only works with a simulated payment backend.
func (w *Wizard) ForceComplete(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return apperr.ErrClosed
	}
	h := w.handle
	w.mu.Unlock()

	if h == nil {
		return fmt.Errorf("force complete without active payment: %w", apperr.ErrInvalidTransition)
	}
	return h.ForceComplete(ctx)
}

// Close tears the session down. Any running poller is cancelled and results
// that arrive later are discarded. Close is idempotent.
func (w *Wizard) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	w.generation++
	if h := w.handle; h != nil {
		w.handle = nil
		h.Cancel()
	}
	w.stop()
	return nil
}

// forward applies poller updates for attempt gen until the poller stops.
func (w *Wizard) forward(gen uint64, h PollHandle) {
	for u := range h.Updates() {
		if w.apply(gen, u) {
			h.Cancel()
			return
		}
	}
}

// apply commits one poller update and reports whether polling is over.
// Updates from a superseded attempt are dropped; whoever superseded it has
// already cancelled its poller.
func (w *Wizard) apply(gen uint64, u payment.Update) bool {
	w.mu.Lock()
	if w.closed || gen != w.generation || w.intent == nil {
		w.mu.Unlock()
		w.logger.Debug("Dropping stale payment update", "intentId", u.IntentID)
		return false
	}

	var events []Event
	settled := false

	switch {
	case u.Err != nil:
		w.pollErr = u.Err
		events = append(events, Event{Type: EventPollError, Step: models.StepPay, Err: u.Err})
		if u.Terminal() {
			w.handle = nil
		}

	default:
		w.intent.Status = u.Status
		w.pollErr = nil
		events = append(events, Event{Type: EventPaymentStatus, Step: models.StepPay, Status: u.Status})

		switch u.Status {
		case models.PaymentStatusCompleted:
			w.outcome = OutcomeSucceeded
			w.handle = nil
			settled = true
			events = append(events, Event{Type: EventPaymentSucceeded, Step: models.StepPay, Status: u.Status, Redirect: w.redirect})
		case models.PaymentStatusFailed:
			w.outcome = OutcomeFailed
			w.handle = nil
			events = append(events, Event{Type: EventPaymentFailed, Step: models.StepPay, Status: u.Status})
		}
	}
	w.mu.Unlock()

	if settled {
		w.clearDraft()
	}
	w.notifyAttempt(gen, events...)
	return u.Terminal()
}

func (w *Wizard) inputLocked() validation.Input {
	return validation.Input{
		Billing:       w.billing,
		Window:        w.window,
		Method:        w.method,
		TermsAccepted: w.terms,
	}
}

func (w *Wizard) orderLocked() models.Order {
	if w.attemptID == "" {
		w.attemptID = uuid.NewString()
	}
	days, _ := w.window.Days()
	return models.Order{
		AttemptID: w.attemptID,
		Items:     append([]models.OrderItem(nil), w.items...),
		Billing:   w.billing.Trimmed(),
		Window:    w.window,
		Days:      days,
		Method:    w.method,
	}
}

func (w *Wizard) clearDraft() {
	if err := w.drafts.Delete(context.WithoutCancel(w.ctx), w.draftKey); err != nil {
		w.logger.Warn("Failed to clear rental draft", "key", w.draftKey, "error", err)
	}
}

func (w *Wizard) notify(events ...Event) {
	w.notifyMu.Lock()
	defer w.notifyMu.Unlock()
	w.deliverLocked(events)
}

// notifyAttempt delivers events that belong to payment attempt gen, unless a
// Back or Close has superseded the attempt since they were committed.
func (w *Wizard) notifyAttempt(gen uint64, events ...Event) {
	w.notifyMu.Lock()
	defer w.notifyMu.Unlock()

	w.mu.Lock()
	current := !w.closed && gen == w.generation
	w.mu.Unlock()
	if !current {
		w.logger.Debug("Dropping events of a superseded payment attempt", "count", len(events))
		return
	}
	w.deliverLocked(events)
}

func (w *Wizard) deliverLocked(events []Event) {
	for _, e := range events {
		for _, o := range w.observers {
			o(e)
		}
	}
}
