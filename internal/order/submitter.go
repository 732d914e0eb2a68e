// Package order turns a confirmed checkout into a backend order and, for
// gateway methods, a payment intent.
package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/khoakhoakhoa23/TMDT-sub000/internal/api"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/apperr"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/models"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/payment"
)

// Submission stages, reported in SubmissionError.Stage.
const (
	StageOrder    = "order"
	StagePayment  = "payment"
	StageCheckout = "checkout"
)

// Client is the part of the REST client the submitter calls.
type Client interface {
	CreateOrder(ctx context.Context, req api.OrderRequest, idempotencyKey string) (*api.OrderResponse, error)
	Checkout(ctx context.Context, req api.CheckoutRequest) error
}

// Result is the outcome of a successful submission. Gateway methods yield an
// Intent to poll; direct checkout yields Completed with no Intent.
type Result struct {
	Order     models.OrderReceipt
	Intent    *models.PaymentIntent
	Completed bool
}

// Submitter creates orders. At most one submission runs at a time.
type Submitter struct {
	client   Client
	payments payment.Backend
	gate     *semaphore.Weighted
	logger   *slog.Logger
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithLogger sets the submitter's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Submitter) { s.logger = l }
}

// NewSubmitter creates a Submitter.
func NewSubmitter(client Client, payments payment.Backend, opts ...Option) *Submitter {
	s := &Submitter{
		client:   client,
		payments: payments,
		gate:     semaphore.NewWeighted(1),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit creates the order and then either opens a payment intent or settles
// through direct checkout. A call made while another is running returns
// apperr.ErrSubmitInFlight without contacting the backend. Every other
// failure is an *apperr.SubmissionError.
func (s *Submitter) Submit(ctx context.Context, o models.Order) (*Result, error) {
	if !s.gate.TryAcquire(1) {
		return nil, apperr.ErrSubmitInFlight
	}
	defer s.gate.Release(1)

	if o.AttemptID == "" {
		o.AttemptID = uuid.NewString()
	}
	if o.Days == 0 {
		days, err := o.Window.Days()
		if err != nil {
			return nil, &apperr.ValidationError{Step: models.StepRental.String(), Fields: map[string]string{"dropoffDate": err.Error()}}
		}
		o.Days = days
	}

	logger := s.logger.With("attemptId", o.AttemptID, "paymentMethod", o.Method)
	logger.Info("Creating order", "days", o.Days, "items", len(o.Items))

	created, err := s.client.CreateOrder(ctx, api.NewOrderRequest(o), o.AttemptID)
	if err != nil {
		logger.Error("Failed to create order", "error", err)
		return nil, classify(StageOrder, err)
	}
	if created == nil || created.ID == "" {
		logger.Error("Order response has no id")
		return nil, &apperr.SubmissionError{Kind: apperr.ErrInvalidServerResponse, Stage: StageOrder, Err: errors.New("missing order id")}
	}

	res := &Result{Order: models.OrderReceipt{ID: string(created.ID), Status: created.Status}}
	logger = logger.With("orderId", res.Order.ID)

	if !o.Method.IsGateway() {
		err := s.client.Checkout(ctx, api.CheckoutRequest{OrderID: created.ID, PaymentMethod: string(o.Method)})
		if err != nil {
			logger.Error("Direct checkout failed", "error", err)
			return nil, classify(StageCheckout, err)
		}
		logger.Info("Order checked out directly")
		res.Completed = true
		return res, nil
	}

	intent, err := s.payments.CreateIntent(ctx, res.Order.ID, o.Method)
	if err != nil {
		logger.Error("Failed to create payment intent", "error", err)
		return nil, classify(StagePayment, err)
	}
	if intent == nil || intent.ID == "" {
		logger.Error("Payment response has no id")
		return nil, &apperr.SubmissionError{Kind: apperr.ErrInvalidServerResponse, Stage: StagePayment, Err: errors.New("missing payment id")}
	}

	logger.Info("Payment intent created", "intentId", intent.ID)
	res.Intent = intent
	return res, nil
}

func classify(stage string, err error) error {
	var apiErr *api.Error
	switch {
	case errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode == http.StatusRequestTimeout):
		return &apperr.SubmissionError{Kind: apperr.ErrNetwork, Stage: stage, Err: fmt.Errorf("server busy %d: %w", apiErr.StatusCode, err)}
	case apiErr != nil && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
		return &apperr.SubmissionError{Kind: apperr.ErrValidationRejectedByServer, Stage: stage, Fields: apiErr.Fields, Err: err}
	case errors.Is(err, apperr.ErrUnauthenticated):
		return &apperr.SubmissionError{Kind: apperr.ErrValidationRejectedByServer, Stage: stage, Err: err}
	case errors.Is(err, apperr.ErrInvalidServerResponse), errors.Is(err, apperr.ErrEncodeRequest):
		// Request payloads carry server-issued ids, so an encoding failure is
		// the response's fault and retrying will not help.
		return &apperr.SubmissionError{Kind: apperr.ErrInvalidServerResponse, Stage: stage, Err: err}
	case apiErr != nil:
		// 5xx: the backend failed, the request itself may be retried.
		return &apperr.SubmissionError{Kind: apperr.ErrNetwork, Stage: stage, Err: fmt.Errorf("server error %d: %w", apiErr.StatusCode, err)}
	default:
		return &apperr.SubmissionError{Kind: apperr.ErrNetwork, Stage: stage, Err: err}
	}
}
