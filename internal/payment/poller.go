package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/khoakhoakhoa23/TMDT-sub000/internal/api"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/apperr"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/models"
)

// Update is one observation emitted by a poller. Exactly one of Status and
// Err is set.
type Update struct {
	IntentID string
	Status   models.PaymentStatus
	Err      error
	Interval time.Duration
}

// Terminal reports whether this is the last update the poller will emit.
func (u Update) Terminal() bool {
	return u.Status.IsTerminal() || errors.Is(u.Err, apperr.ErrPollingFatal)
}

// Poller watches payment intents until they settle.
type Poller struct {
	backend     Backend
	clock       Clock
	base        time.Duration
	rateLimited time.Duration
	logger      *slog.Logger
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithClock replaces the real clock.
func WithClock(c Clock) PollerOption {
	return func(p *Poller) { p.clock = c }
}

// WithIntervals sets the base and rate-limited polling intervals.
func WithIntervals(base, rateLimited time.Duration) PollerOption {
	return func(p *Poller) {
		p.base = base
		p.rateLimited = rateLimited
	}
}

// WithLogger sets the poller's logger.
func WithLogger(l *slog.Logger) PollerOption {
	return func(p *Poller) { p.logger = l }
}

// NewPoller creates a Poller over backend.
func NewPoller(backend Backend, opts ...PollerOption) *Poller {
	p := &Poller{
		backend:     backend,
		clock:       RealClock{},
		base:        DefaultPollInterval,
		rateLimited: DefaultRateLimitedInterval,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handle controls one running poll loop.
type Handle struct {
	intentID string
	backend  Backend
	updates  chan Update
	forced   chan models.PaymentStatus
	cancel   context.CancelFunc
	done     chan struct{}
	once     sync.Once
}

// Start checks intentID immediately and then on every tick until a terminal
// status, a fatal error, or cancellation. The Updates channel is closed when
// the loop exits.
func (p *Poller) Start(ctx context.Context, intentID string) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		intentID: intentID,
		backend:  p.backend,
		updates:  make(chan Update),
		forced:   make(chan models.PaymentStatus, 1),
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	l := &loop{
		p:      p,
		h:      h,
		policy: NewBackoffPolicy(p.base, p.rateLimited),
		logger: p.logger.With("intentId", intentID),
	}
	go l.run(ctx)
	return h
}

// IntentID returns the intent being polled.
func (h *Handle) IntentID() string { return h.intentID }

// Updates delivers status observations in order.
func (h *Handle) Updates() <-chan Update { return h.updates }

// Done is closed once the polling goroutine has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Cancel stops polling and waits for the goroutine to exit. It is safe to
// call more than once and from any goroutine; once it returns nothing more
// is sent on Updates.
func (h *Handle) Cancel() {
	h.once.Do(h.cancel)
	<-h.done
}

// ForceComplete asks the backend to settle the intent and feeds the
// completed status through the normal status path. Only simulated backends
// support it.
func (h *Handle) ForceComplete(ctx context.Context) error {
	sim, ok := h.backend.(Simulator)
	if !ok {
		return apperr.ErrSimulationDisabled
	}
	select {
	case <-h.done:
		return fmt.Errorf("payment %s: poller stopped: %w", h.intentID, apperr.ErrClosed)
	default:
	}
	if err := sim.Simulate(ctx, h.intentID); err != nil {
		return fmt.Errorf("simulate payment %s: %w", h.intentID, err)
	}

	// If the loop exits first it has already observed a terminal status.
	select {
	case h.forced <- models.PaymentStatusCompleted:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type loop struct {
	p      *Poller
	h      *Handle
	policy *BackoffPolicy
	ticker Ticker
	logger *slog.Logger
}

func (l *loop) run(ctx context.Context) {
	defer close(l.h.done)
	defer close(l.h.updates)

	l.ticker = l.p.clock.NewTicker(l.policy.Interval())
	defer func() { l.ticker.Stop() }()

	l.logger.Info("Polling payment status", "interval", l.policy.Interval())

	if l.check(ctx) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("Payment polling cancelled")
			return
		case status := <-l.h.forced:
			l.logger.Info("Payment forced to complete")
			if l.handleStatus(ctx, status) {
				return
			}
		case <-l.ticker.C():
			if l.check(ctx) {
				return
			}
		}
	}
}

// check performs one status request and reports whether polling should stop.
func (l *loop) check(ctx context.Context) bool {
	status, err := l.p.backend.Status(ctx, l.h.intentID)
	if ctx.Err() != nil {
		return true
	}
	if err != nil {
		return l.handleError(ctx, err)
	}
	return l.handleStatus(ctx, status)
}

func (l *loop) handleStatus(ctx context.Context, status models.PaymentStatus) bool {
	if !l.emit(ctx, Update{Status: status}) {
		return true
	}
	if status.IsTerminal() {
		l.logger.Info("Payment settled", "status", status)
		return true
	}
	return false
}

func (l *loop) handleError(ctx context.Context, err error) bool {
	code := api.StatusCode(err)
	switch code {
	case http.StatusBadRequest, http.StatusNotFound:
		l.logger.Error("Payment status check failed permanently", "status", code, "error", err)
		l.emit(ctx, Update{Err: &apperr.PollError{Kind: apperr.ErrPollingFatal, IntentID: l.h.intentID, StatusCode: code, Err: err}})
		return true

	case http.StatusTooManyRequests:
		if l.policy.OnRateLimited() {
			l.ticker.Stop()
			l.ticker = l.p.clock.NewTicker(l.policy.Interval())
			l.logger.Warn("Payment status rate limited, slowing down", "interval", l.policy.Interval())
		}
	default:
		l.logger.Warn("Payment status check failed, will retry", "status", code, "error", err)
	}

	pe := &apperr.PollError{Kind: apperr.ErrPollingTransient, IntentID: l.h.intentID, StatusCode: code, Err: err}
	return !l.emit(ctx, Update{Err: pe})
}

func (l *loop) emit(ctx context.Context, u Update) bool {
	u.IntentID = l.h.intentID
	u.Interval = l.policy.Interval()
	select {
	case l.h.updates <- u:
		return true
	case <-ctx.Done():
		return false
	}
}
