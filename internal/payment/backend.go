package payment

import (
	"context"
	"fmt"

	"github.com/khoakhoakhoa23/TMDT-sub000/internal/api"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/apperr"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/models"
)

// EnvDevelopment selects the simulated backend.
const EnvDevelopment = "development"

// Backend creates payment intents and reports their status.
type Backend interface {
	CreateIntent(ctx context.Context, orderID string, method models.PaymentMethod) (*models.PaymentIntent, error)
	Status(ctx context.Context, intentID string) (models.PaymentStatus, error)
}

// Simulator is implemented by backends that can force a payment to complete.
type Simulator interface {
	Simulate(ctx context.Context, intentID string) error
}

// Client is the part of the REST client the backends call.
type Client interface {
	CreatePayment(ctx context.Context, req api.PaymentRequest) (*api.PaymentResponse, error)
	PaymentStatus(ctx context.Context, paymentID string) (string, error)
	SimulatePayment(ctx context.Context, paymentID string) error
}

// HTTPBackend talks to the real payment gateway endpoints.
type HTTPBackend struct {
	client    Client
	returnURL string
}

// NewHTTPBackend creates an HTTPBackend. returnURL is where the gateway sends
// the customer after paying.
func NewHTTPBackend(client Client, returnURL string) *HTTPBackend {
	return &HTTPBackend{client: client, returnURL: returnURL}
}

// CreateIntent opens a payment intent for orderID. The returned intent's ID
// may be empty if the server omitted it; callers must check.
func (b *HTTPBackend) CreateIntent(ctx context.Context, orderID string, method models.PaymentMethod) (*models.PaymentIntent, error) {
	resp, err := b.client.CreatePayment(ctx, api.PaymentRequest{
		OrderID:       api.ID(orderID),
		PaymentMethod: string(method),
		ReturnURL:     b.returnURL,
	})
	if err != nil {
		return nil, err
	}

	status, ok := models.ParsePaymentStatus(resp.Status)
	if !ok {
		status = models.PaymentStatusPending
	}
	return &models.PaymentIntent{
		ID:         string(resp.ID),
		OrderID:    orderID,
		Method:     method,
		Status:     status,
		QRCode:     resp.QRCode,
		PaymentURL: resp.PaymentURL,
	}, nil
}

// Status fetches and normalises the intent's status. Unrecognised values are
// reported as invalid server responses.
func (b *HTTPBackend) Status(ctx context.Context, intentID string) (models.PaymentStatus, error) {
	raw, err := b.client.PaymentStatus(ctx, intentID)
	if err != nil {
		return "", err
	}
	status, ok := models.ParsePaymentStatus(raw)
	if !ok {
		return "", fmt.Errorf("payment %s: %w: unknown status %q", intentID, apperr.ErrInvalidServerResponse, raw)
	}
	return status, nil
}

// SimulatedBackend is an HTTPBackend that may also call the development-only
// simulate endpoint.
type SimulatedBackend struct {
	*HTTPBackend
}

// NewSimulatedBackend creates a SimulatedBackend.
func NewSimulatedBackend(client Client, returnURL string) *SimulatedBackend {
	return &SimulatedBackend{HTTPBackend: NewHTTPBackend(client, returnURL)}
}

func (b *SimulatedBackend) Simulate(ctx context.Context, intentID string) error {
	return b.client.SimulatePayment(ctx, intentID)
}

// NewBackend picks the backend for env: simulated in development, real otherwise.
func NewBackend(env string, client Client, returnURL string) Backend {
	if env == EnvDevelopment {
		return NewSimulatedBackend(client, returnURL)
	}
	return NewHTTPBackend(client, returnURL)
}
