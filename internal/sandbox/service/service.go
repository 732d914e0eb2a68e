// Package service is the in-memory storefront backend behind the sandbox
// server. It mirrors the order, payment and checkout endpoints the
// orchestrator consumes closely enough to exercise every client path.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/khoakhoakhoa23/TMDT-sub000/internal/api"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/models"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrPendingPayment    = errors.New("order already has a pending payment")
	ErrUnsupportedMethod = errors.New("unsupported payment method")
	ErrRateLimited       = errors.New("request was throttled")
	ErrAlreadySettled    = errors.New("payment already settled")
)

// Payment statuses as the backend reports them.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Order is a created rental order
type Order struct {
	ID             int             `json:"id"`
	Status         string          `json:"status"`
	PaymentStatus  string          `json:"payment_status"`
	PaymentMethod  string          `json:"payment_method"`
	Items          []api.OrderItem `json:"items"`
	ShippingName   string          `json:"shipping_name"`
	StartDate      string          `json:"start_date"`
	EndDate        string          `json:"end_date"`
	PickupLocation string          `json:"pickup_location"`
	ReturnLocation string          `json:"return_location"`
	RentalDays     int             `json:"rental_days"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Payment is a gateway payment for an order
type Payment struct {
	ID            int        `json:"id"`
	OrderID       int        `json:"order_id"`
	PaymentMethod string     `json:"payment_method"`
	Status        string     `json:"status"`
	TransactionID string     `json:"transaction_id"`
	QRCode        string     `json:"qr_code,omitempty"`
	PaymentURL    string     `json:"payment_url,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

// RentalService defines the sandbox backend interface
type RentalService interface {
	Locations(ctx context.Context) []models.Location
	CreateOrder(ctx context.Context, req api.OrderRequest, idempotencyKey string) (*Order, error)
	CreatePayment(ctx context.Context, req api.PaymentRequest) (*Payment, error)
	PaymentStatus(ctx context.Context, paymentID string) (*Payment, error)
	SimulatePayment(ctx context.Context, paymentID string) (*Payment, error)
	Checkout(ctx context.Context, req api.CheckoutRequest) (*Order, error)
}

// Options script the sandbox's payment behaviour.
type Options struct {
	// Throttle makes the first Throttle status checks of every payment
	// answer 429.
	Throttle int
	// SettleAfter settles a pending payment on its own after that many
	// status checks. Zero leaves payments pending until simulated.
	SettleAfter int
	// SettleStatus is the status SettleAfter settles to; completed if empty.
	SettleStatus string
	// GatewayURL is the base of generated payment URLs.
	GatewayURL string
}

type paymentRecord struct {
	Payment
	checks int
}

// rentalServiceImpl implements RentalService
type rentalServiceImpl struct {
	opts Options
	now  func() time.Time

	mu          sync.Mutex
	nextOrder   int
	nextPayment int
	orders      map[int]*Order
	payments    map[int]*paymentRecord
	idempotency map[string]int
}

// NewRentalService creates a new RentalService
func NewRentalService(opts Options) RentalService {
	if opts.SettleStatus == "" {
		opts.SettleStatus = StatusCompleted
	}
	if opts.GatewayURL == "" {
		opts.GatewayURL = "https://sandbox.gateway.local/pay"
	}
	return &rentalServiceImpl{
		opts:        opts,
		now:         time.Now,
		orders:      make(map[int]*Order),
		payments:    make(map[int]*paymentRecord),
		idempotency: make(map[string]int),
	}
}

var sandboxLocations = []models.Location{
	{ID: "1", Name: "Semarang"},
	{ID: "2", Name: "Jakarta"},
	{ID: "3", Name: "Surabaya"},
	{ID: "4", Name: "Bandung"},
}

func (s *rentalServiceImpl) Locations(ctx context.Context) []models.Location {
	return append([]models.Location(nil), sandboxLocations...)
}

func (s *rentalServiceImpl) CreateOrder(ctx context.Context, req api.OrderRequest, idempotencyKey string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.idempotency[idempotencyKey]; ok && idempotencyKey != "" {
		o := *s.orders[id]
		return &o, nil
	}

	s.nextOrder++
	o := &Order{
		ID:             s.nextOrder,
		Status:         StatusPending,
		PaymentStatus:  "unpaid",
		PaymentMethod:  req.PaymentMethod,
		Items:          req.Items,
		ShippingName:   req.ShippingName,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		PickupLocation: req.PickupLocation,
		ReturnLocation: req.ReturnLocation,
		RentalDays:     req.RentalDays,
		CreatedAt:      s.now(),
	}
	s.orders[o.ID] = o
	if idempotencyKey != "" {
		s.idempotency[idempotencyKey] = o.ID
	}

	out := *o
	return &out, nil
}

func (s *rentalServiceImpl) CreatePayment(ctx context.Context, req api.PaymentRequest) (*Payment, error) {
	method := models.PaymentMethod(req.PaymentMethod)
	if !method.IsGateway() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, req.PaymentMethod)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.orderLocked(string(req.OrderID))
	if err != nil {
		return nil, err
	}
	for _, p := range s.payments {
		if p.OrderID == o.ID && (p.Status == StatusPending || p.Status == StatusProcessing) {
			return nil, ErrPendingPayment
		}
	}

	s.nextPayment++
	txID := uuid.NewString()
	p := &paymentRecord{Payment: Payment{
		ID:            s.nextPayment,
		OrderID:       o.ID,
		PaymentMethod: req.PaymentMethod,
		Status:        StatusPending,
		TransactionID: txID,
		QRCode:        fmt.Sprintf("%s://pay?tx=%s", req.PaymentMethod, txID),
		PaymentURL:    s.paymentURL(txID, req.ReturnURL),
		CreatedAt:     s.now(),
	}}
	s.payments[p.ID] = p

	out := p.Payment
	return &out, nil
}

func (s *rentalServiceImpl) paymentURL(txID, returnURL string) string {
	q := url.Values{"tx": {txID}}
	if returnURL != "" {
		q.Set("return_url", returnURL)
	}
	return s.opts.GatewayURL + "?" + q.Encode()
}

func (s *rentalServiceImpl) PaymentStatus(ctx context.Context, paymentID string) (*Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.paymentLocked(paymentID)
	if err != nil {
		return nil, err
	}

	p.checks++
	if p.checks <= s.opts.Throttle {
		return nil, ErrRateLimited
	}
	if s.opts.SettleAfter > 0 && p.Status == StatusPending && p.checks-s.opts.Throttle >= s.opts.SettleAfter {
		s.settleLocked(p, s.opts.SettleStatus)
	}

	out := p.Payment
	return &out, nil
}

func (s *rentalServiceImpl) SimulatePayment(ctx context.Context, paymentID string) (*Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.paymentLocked(paymentID)
	if err != nil {
		return nil, err
	}
	switch p.Status {
	case StatusCompleted:
	case StatusFailed:
		return nil, ErrAlreadySettled
	default:
		s.settleLocked(p, StatusCompleted)
	}

	out := p.Payment
	return &out, nil
}

func (s *rentalServiceImpl) Checkout(ctx context.Context, req api.CheckoutRequest) (*Order, error) {
	method := models.PaymentMethod(req.PaymentMethod)
	if !method.IsKnown() || method.IsGateway() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, req.PaymentMethod)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.orderLocked(string(req.OrderID))
	if err != nil {
		return nil, err
	}
	o.PaymentMethod = req.PaymentMethod
	o.Status = "paid"
	o.PaymentStatus = "paid"

	out := *o
	return &out, nil
}

func (s *rentalServiceImpl) settleLocked(p *paymentRecord, status string) {
	p.Status = status
	if status != StatusCompleted {
		return
	}
	now := s.now()
	p.PaidAt = &now
	if o, ok := s.orders[p.OrderID]; ok {
		o.Status = "paid"
		o.PaymentStatus = "paid"
	}
}

func (s *rentalServiceImpl) orderLocked(id string) (*Order, error) {
	n, err := strconv.Atoi(id)
	if err != nil {
		return nil, fmt.Errorf("order %q: %w", id, ErrNotFound)
	}
	o, ok := s.orders[n]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", n, ErrNotFound)
	}
	return o, nil
}

func (s *rentalServiceImpl) paymentLocked(id string) (*paymentRecord, error) {
	n, err := strconv.Atoi(id)
	if err != nil {
		return nil, fmt.Errorf("payment %q: %w", id, ErrNotFound)
	}
	p, ok := s.payments[n]
	if !ok {
		return nil, fmt.Errorf("payment %d: %w", n, ErrNotFound)
	}
	return p, nil
}
