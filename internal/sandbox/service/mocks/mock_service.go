package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/khoakhoakhoa23/TMDT-sub000/internal/api"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/models"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/sandbox/service"
)

// MockRentalService is a mock implementation of RentalService
type MockRentalService struct {
	mock.Mock
}

func (m *MockRentalService) Locations(ctx context.Context) []models.Location {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]models.Location)
}

func (m *MockRentalService) CreateOrder(ctx context.Context, req api.OrderRequest, idempotencyKey string) (*service.Order, error) {
	args := m.Called(ctx, req, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Order), args.Error(1)
}

func (m *MockRentalService) CreatePayment(ctx context.Context, req api.PaymentRequest) (*service.Payment, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Payment), args.Error(1)
}

func (m *MockRentalService) PaymentStatus(ctx context.Context, paymentID string) (*service.Payment, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Payment), args.Error(1)
}

func (m *MockRentalService) SimulatePayment(ctx context.Context, paymentID string) (*service.Payment, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Payment), args.Error(1)
}

func (m *MockRentalService) Checkout(ctx context.Context, req api.CheckoutRequest) (*service.Order, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Order), args.Error(1)
}
