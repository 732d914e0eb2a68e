// Package mocks holds testify mocks for the checkout collaborators.
package mocks

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/khoakhoakhoa23/TMDT-sub000/internal/api"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/models"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/order"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/payment"
)

// MockAPIClient is a mock implementation of the backend REST client
type MockAPIClient struct {
	mock.Mock
}

func (m *MockAPIClient) Locations(ctx context.Context) []models.Location {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]models.Location)
}

func (m *MockAPIClient) CreateOrder(ctx context.Context, req api.OrderRequest, idempotencyKey string) (*api.OrderResponse, error) {
	args := m.Called(ctx, req, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.OrderResponse), args.Error(1)
}

func (m *MockAPIClient) CreatePayment(ctx context.Context, req api.PaymentRequest) (*api.PaymentResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.PaymentResponse), args.Error(1)
}

func (m *MockAPIClient) PaymentStatus(ctx context.Context, paymentID string) (string, error) {
	args := m.Called(ctx, paymentID)
	return args.String(0), args.Error(1)
}

func (m *MockAPIClient) SimulatePayment(ctx context.Context, paymentID string) error {
	args := m.Called(ctx, paymentID)
	return args.Error(0)
}

func (m *MockAPIClient) Checkout(ctx context.Context, req api.CheckoutRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

// MockPaymentBackend is a mock implementation of payment.Backend
type MockPaymentBackend struct {
	mock.Mock
}

func (m *MockPaymentBackend) CreateIntent(ctx context.Context, orderID string, method models.PaymentMethod) (*models.PaymentIntent, error) {
	args := m.Called(ctx, orderID, method)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentIntent), args.Error(1)
}

func (m *MockPaymentBackend) Status(ctx context.Context, intentID string) (models.PaymentStatus, error) {
	args := m.Called(ctx, intentID)
	return args.Get(0).(models.PaymentStatus), args.Error(1)
}

// MockSubmitter is a mock implementation of the order submitter
type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Submit(ctx context.Context, o models.Order) (*order.Result, error) {
	args := m.Called(ctx, o)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Result), args.Error(1)
}

// MockPollHandle is a mock poll handle. Tests send on Feed to simulate poller
// updates; Cancel closes Feed the way a real handle closes Updates.
type MockPollHandle struct {
	mock.Mock
	Feed chan payment.Update
	once sync.Once
}

// NewMockPollHandle creates a handle with an unbuffered feed.
func NewMockPollHandle() *MockPollHandle {
	return &MockPollHandle{Feed: make(chan payment.Update)}
}

func (m *MockPollHandle) Updates() <-chan payment.Update {
	return m.Feed
}

func (m *MockPollHandle) Cancel() {
	m.Called()
	m.once.Do(func() { close(m.Feed) })
}

func (m *MockPollHandle) ForceComplete(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockDraftStore is a mock implementation of draft.Store
type MockDraftStore struct {
	mock.Mock
}

func (m *MockDraftStore) Get(ctx context.Context, key string) (models.RentalWindow, bool, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(models.RentalWindow), args.Bool(1), args.Error(2)
}

func (m *MockDraftStore) Set(ctx context.Context, key string, w models.RentalWindow) error {
	args := m.Called(ctx, key, w)
	return args.Error(0)
}

func (m *MockDraftStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
