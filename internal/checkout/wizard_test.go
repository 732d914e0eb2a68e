package checkout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/khoakhoakhoa23/TMDT-sub000/internal/api"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/apperr"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/draft"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/mocks"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/models"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/order"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/payment"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/validation"
)

type mockPoller struct {
	mock.Mock
}

func (m *mockPoller) Start(ctx context.Context, intentID string) PollHandle {
	args := m.Called(ctx, intentID)
	return args.Get(0).(PollHandle)
}

var (
	validBilling = models.BillingInfo{Name: "Lan", Phone: "0901", Address: "1 Le Loi", City: "Hue"}
	validWindow  = models.RentalWindow{
		Pickup:  models.Endpoint{Location: "Semarang", Date: "2025-06-10", Time: "07:00"},
		Dropoff: models.Endpoint{Location: "Jakarta", Date: "2025-06-12", Time: "01:00"},
	}
	fixedNow = func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) }
)

type harness struct {
	w         *Wizard
	submitter *mocks.MockSubmitter
	poller    *mockPoller
	drafts    *draft.MemoryStore
	events    chan Event
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		submitter: new(mocks.MockSubmitter),
		poller:    new(mockPoller),
		drafts:    draft.NewMemoryStore(),
		events:    make(chan Event, 64),
	}
	opts = append([]Option{
		WithItems(models.OrderItem{CarID: "3", Quantity: 1}),
		WithDraftStore(h.drafts, "test"),
		WithNow(fixedNow),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithObserver(func(e Event) { h.events <- e }),
	}, opts...)
	h.w = New(context.Background(), h.submitter, h.poller, opts...)
	t.Cleanup(func() { h.w.Close() })
	return h
}

// newHandle returns a mock poll handle that counts Cancel calls.
func newHandle() (*mocks.MockPollHandle, *atomic.Int32) {
	h := mocks.NewMockPollHandle()
	var cancels atomic.Int32
	h.On("Cancel").Run(func(mock.Arguments) { cancels.Add(1) }).Return()
	return h, &cancels
}

func (h *harness) waitFor(t *testing.T, typ EventType) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-h.events:
			if e.Type == typ {
				return e
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", typ)
			return Event{}
		}
	}
}

// drain returns the events already delivered without waiting for more.
func (h *harness) drain() []Event {
	var out []Event
	for {
		select {
		case e := <-h.events:
			out = append(out, e)
		default:
			return out
		}
	}
}

func (h *harness) toConfirm(t *testing.T, method models.PaymentMethod) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.w.SetBilling(validBilling))
	require.NoError(t, h.w.Next(ctx))
	require.NoError(t, h.w.SetRental(validWindow))
	require.NoError(t, h.w.Next(ctx))
	require.NoError(t, h.w.SetMethod(method))
	require.NoError(t, h.w.Next(ctx))
	require.NoError(t, h.w.AcceptTerms(true))
	require.Equal(t, models.StepConfirm, h.w.View().Step)
}

func (h *harness) toPay(t *testing.T) (*mocks.MockPollHandle, *atomic.Int32) {
	t.Helper()
	h.toConfirm(t, models.PaymentMethodMomo)

	intent := &models.PaymentIntent{ID: "55", OrderID: "17", Method: models.PaymentMethodMomo, Status: models.PaymentStatusPending, QRCode: "qr"}
	h.submitter.On("Submit", mock.Anything, mock.Anything).
		Return(&order.Result{Order: models.OrderReceipt{ID: "17"}, Intent: intent}, nil).Once()

	handle, cancels := newHandle()
	h.poller.On("Start", mock.Anything, "55").Return(handle).Once()

	require.NoError(t, h.w.Next(context.Background()))
	require.Equal(t, models.StepPay, h.w.View().Step)
	return handle, cancels
}

func TestWizard_StartsOnBillingWithSeededWindow(t *testing.T) {
	h := newHarness(t)
	v := h.w.View()

	assert.Equal(t, models.StepBilling, v.Step)
	assert.Equal(t, models.DefaultPaymentMethod, v.Method)
	assert.Equal(t, "2025-06-01", v.Window.Pickup.Date)
	assert.Equal(t, "2025-06-02", v.Window.Dropoff.Date)
	assert.Equal(t, models.DefaultPickupTime, v.Window.Pickup.Time)
	assert.Equal(t, models.DefaultDropoffTime, v.Window.Dropoff.Time)
	assert.Empty(t, v.Errors)
}

func TestWizard_BillingMissingNameBlocksNext(t *testing.T) {
	h := newHarness(t)

	b := validBilling
	b.Name = "   "
	require.NoError(t, h.w.SetBilling(b))

	err := h.w.Next(context.Background())
	assert.ErrorIs(t, err, apperr.ErrValidation)

	v := h.w.View()
	assert.Equal(t, models.StepBilling, v.Step)
	assert.Equal(t, validation.Errors{validation.FieldName: "name is required"}, v.Errors)
}

func TestWizard_DropoffBeforePickup(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.w.SetBilling(validBilling))
	require.NoError(t, h.w.Next(context.Background()))

	win := validWindow
	win.Pickup.Date = "2025-06-10"
	win.Dropoff.Date = "2025-06-09"
	require.NoError(t, h.w.SetRental(win))

	var verr *apperr.ValidationError
	require.True(t, errors.As(h.w.Next(context.Background()), &verr))
	assert.Equal(t, map[string]string{validation.FieldDropoffDate: validation.MsgDropoffBeforePickup}, verr.Fields)

	v := h.w.View()
	assert.Equal(t, models.StepRental, v.Step)
	assert.Equal(t, 0, v.Days)
	assert.Equal(t, validation.MsgDropoffBeforePickup, v.Errors[validation.FieldDropoffDate])
}

func TestWizard_RentalDraftPersistsAndRestores(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.w.SetRental(validWindow))

	saved, ok, err := h.drafts.Get(context.Background(), "test")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, validWindow, saved)

	restored := New(context.Background(), h.submitter, h.poller, WithDraftStore(h.drafts, "test"), WithNow(fixedNow))
	defer restored.Close()
	assert.Equal(t, validWindow, restored.View().Window)
	assert.Equal(t, 2, restored.View().Days)
}

func TestWizard_BackFromBillingRefused(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.w.Back(), apperr.ErrInvalidTransition)
}

func TestWizard_ConfirmRequiresTerms(t *testing.T) {
	h := newHarness(t)
	h.toConfirm(t, models.PaymentMethodMomo)
	require.NoError(t, h.w.AcceptTerms(false))

	err := h.w.Next(context.Background())
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, h.w.View().Errors, validation.FieldTerms)
	h.submitter.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestWizard_OrderWithoutIDStaysOnConfirm(t *testing.T) {
	client := new(mocks.MockAPIClient)
	backend := new(mocks.MockPaymentBackend)
	client.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).Return(&api.OrderResponse{}, nil)

	poller := new(mockPoller)
	events := make(chan Event, 16)
	w := New(context.Background(),
		order.NewSubmitter(client, backend, order.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))),
		poller,
		WithNow(fixedNow),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithObserver(func(e Event) { events <- e }),
	)
	defer w.Close()

	h := &harness{w: w, submitter: new(mocks.MockSubmitter), poller: poller, events: events}
	h.toConfirm(t, models.PaymentMethodMomo)

	err := w.Next(context.Background())
	assert.ErrorIs(t, err, apperr.ErrInvalidServerResponse)

	v := w.View()
	assert.Equal(t, models.StepConfirm, v.Step)
	assert.ErrorIs(t, v.SubmitError, apperr.ErrInvalidServerResponse)
	assert.False(t, v.Frozen)
	assert.Nil(t, v.Intent)

	e := h.waitFor(t, EventSubmissionFailed)
	assert.ErrorIs(t, e.Err, apperr.ErrInvalidServerResponse)
	poller.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
	backend.AssertNotCalled(t, "CreateIntent", mock.Anything, mock.Anything, mock.Anything)
}

func TestWizard_RetryReusesAttemptIDUntilOrderCreated(t *testing.T) {
	h := newHarness(t)
	h.toConfirm(t, models.PaymentMethodPayPal)

	var keys []string
	netErr := &apperr.SubmissionError{Kind: apperr.ErrNetwork, Stage: order.StageOrder}
	h.submitter.On("Submit", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { keys = append(keys, args.Get(1).(models.Order).AttemptID) }).
		Return(nil, netErr).Once()
	h.submitter.On("Submit", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { keys = append(keys, args.Get(1).(models.Order).AttemptID) }).
		Return(&order.Result{Order: models.OrderReceipt{ID: "17"}, Completed: true}, nil).Once()

	assert.ErrorIs(t, h.w.Next(context.Background()), apperr.ErrNetwork)
	require.NoError(t, h.w.Next(context.Background()))

	require.Len(t, keys, 2)
	assert.NotEmpty(t, keys[0])
	assert.Equal(t, keys[0], keys[1])
}

func TestWizard_SubmitsOrderFromState(t *testing.T) {
	h := newHarness(t)
	h.toConfirm(t, models.PaymentMethodCreditCard)

	h.submitter.On("Submit", mock.Anything, mock.MatchedBy(func(o models.Order) bool {
		return o.Days == 2 &&
			o.Method == models.PaymentMethodCreditCard &&
			o.Billing == validBilling &&
			o.Window == validWindow &&
			len(o.Items) == 1 && o.Items[0].CarID == "3"
	})).Return(&order.Result{Order: models.OrderReceipt{ID: "17"}, Completed: true}, nil)

	require.NoError(t, h.w.Next(context.Background()))
	h.submitter.AssertExpectations(t)
}

func TestWizard_DirectCheckoutSucceedsWithoutPoller(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.w.SetRental(validWindow))
	h.toConfirm(t, models.PaymentMethodBitcoin)

	h.submitter.On("Submit", mock.Anything, mock.Anything).
		Return(&order.Result{Order: models.OrderReceipt{ID: "17"}, Completed: true}, nil)

	require.NoError(t, h.w.Next(context.Background()))

	v := h.w.View()
	assert.Equal(t, models.StepConfirm, v.Step)
	assert.Equal(t, OutcomeSucceeded, v.Outcome)
	assert.Equal(t, DefaultRedirect, v.Redirect)
	assert.Equal(t, "17", v.OrderID)

	e := h.waitFor(t, EventPaymentSucceeded)
	assert.Equal(t, DefaultRedirect, e.Redirect)

	h.poller.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
	_, ok, _ := h.drafts.Get(context.Background(), "test")
	assert.False(t, ok, "draft cleared after payment")

	assert.ErrorIs(t, h.w.Next(context.Background()), apperr.ErrInvalidTransition)
	assert.ErrorIs(t, h.w.Back(), apperr.ErrInvalidTransition)
}

func TestWizard_GatewayEntersPayAndFreezes(t *testing.T) {
	h := newHarness(t)
	_, _ = h.toPay(t)

	v := h.w.View()
	require.NotNil(t, v.Intent)
	assert.Equal(t, "55", v.Intent.ID)
	assert.Equal(t, "qr", v.Intent.QRCode)
	assert.True(t, v.Frozen)

	assert.ErrorIs(t, h.w.SetBilling(validBilling), apperr.ErrFrozen)
	assert.ErrorIs(t, h.w.SetRental(validWindow), apperr.ErrFrozen)
	assert.ErrorIs(t, h.w.SetMethod(models.PaymentMethodVNPay), apperr.ErrFrozen)
	assert.ErrorIs(t, h.w.Next(context.Background()), apperr.ErrInvalidTransition)
}

func TestWizard_BackFromPayCancelsPollerOnce(t *testing.T) {
	h := newHarness(t)
	handle, cancels := h.toPay(t)

	handle.Feed <- payment.Update{IntentID: "55", Status: models.PaymentStatusPending}
	assert.Equal(t, models.PaymentStatusPending, h.waitFor(t, EventPaymentStatus).Status)

	require.NoError(t, h.w.Back())

	v := h.w.View()
	assert.Equal(t, models.StepMethod, v.Step)
	assert.Nil(t, v.Intent)
	assert.Empty(t, v.OrderID)
	assert.False(t, v.Frozen)
	assert.Equal(t, int32(1), cancels.Load())

	// A fresh attempt is allowed after thawing.
	require.NoError(t, h.w.SetBilling(validBilling))
	require.NoError(t, h.w.Close())
	assert.Equal(t, int32(1), cancels.Load(), "close must not cancel the discarded poller again")
}

func TestWizard_RetryAfterAbortStartsFreshPoller(t *testing.T) {
	h := newHarness(t)
	_, firstCancels := h.toPay(t)
	require.NoError(t, h.w.Back())
	require.NoError(t, h.w.Next(context.Background()))
	require.Equal(t, models.StepConfirm, h.w.View().Step)

	intent := &models.PaymentIntent{ID: "56", OrderID: "18", Method: models.PaymentMethodMomo, Status: models.PaymentStatusPending}
	h.submitter.On("Submit", mock.Anything, mock.Anything).
		Return(&order.Result{Order: models.OrderReceipt{ID: "18"}, Intent: intent}, nil).Once()
	second, _ := newHandle()
	h.poller.On("Start", mock.Anything, "56").Return(second).Once()

	require.NoError(t, h.w.Next(context.Background()))
	assert.Equal(t, "56", h.w.View().Intent.ID)
	assert.Equal(t, int32(1), firstCancels.Load())
	h.poller.AssertExpectations(t)
}

func TestWizard_CompletedStatusSucceeds(t *testing.T) {
	h := newHarness(t)
	handle, cancels := h.toPay(t)

	handle.Feed <- payment.Update{IntentID: "55", Status: models.PaymentStatusCompleted}

	e := h.waitFor(t, EventPaymentSucceeded)
	assert.Equal(t, DefaultRedirect, e.Redirect)
	require.Eventually(t, func() bool { return cancels.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	v := h.w.View()
	assert.Equal(t, OutcomeSucceeded, v.Outcome)
	assert.Equal(t, models.PaymentStatusCompleted, v.Intent.Status)
	assert.Equal(t, DefaultRedirect, v.Redirect)

	assert.ErrorIs(t, h.w.Back(), apperr.ErrInvalidTransition)
	require.NoError(t, h.w.Close())
	assert.Equal(t, int32(1), cancels.Load())
}

func TestWizard_FailedStatusAllowsRetry(t *testing.T) {
	h := newHarness(t)
	handle, cancels := h.toPay(t)

	handle.Feed <- payment.Update{IntentID: "55", Status: models.PaymentStatusFailed}
	h.waitFor(t, EventPaymentFailed)
	require.Eventually(t, func() bool { return cancels.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, OutcomeFailed, h.w.View().Outcome)

	require.NoError(t, h.w.Back())
	v := h.w.View()
	assert.Equal(t, models.StepMethod, v.Step)
	assert.Equal(t, OutcomeNone, v.Outcome)
	assert.Equal(t, int32(1), cancels.Load())
}

func TestWizard_PollErrors(t *testing.T) {
	h := newHarness(t)
	handle, cancels := h.toPay(t)

	transient := &apperr.PollError{Kind: apperr.ErrPollingTransient, IntentID: "55", StatusCode: 429}
	handle.Feed <- payment.Update{IntentID: "55", Err: transient}
	e := h.waitFor(t, EventPollError)
	assert.ErrorIs(t, e.Err, apperr.ErrPollingTransient)
	assert.Equal(t, int32(0), cancels.Load())

	fatal := &apperr.PollError{Kind: apperr.ErrPollingFatal, IntentID: "55", StatusCode: 404}
	handle.Feed <- payment.Update{IntentID: "55", Err: fatal}
	e = h.waitFor(t, EventPollError)
	assert.ErrorIs(t, e.Err, apperr.ErrPollingFatal)
	require.Eventually(t, func() bool { return cancels.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	v := h.w.View()
	assert.Equal(t, models.StepPay, v.Step)
	assert.ErrorIs(t, v.PollError, apperr.ErrPollingFatal)
	assert.ErrorIs(t, h.w.ForceComplete(context.Background()), apperr.ErrInvalidTransition)
}

func TestWizard_CloseCancelsPollerAndIsIdempotent(t *testing.T) {
	h := newHarness(t)
	_, cancels := h.toPay(t)

	require.NoError(t, h.w.Close())
	require.NoError(t, h.w.Close())
	assert.Equal(t, int32(1), cancels.Load())

	assert.ErrorIs(t, h.w.Next(context.Background()), apperr.ErrClosed)
	assert.ErrorIs(t, h.w.Back(), apperr.ErrClosed)
	assert.ErrorIs(t, h.w.SetBilling(validBilling), apperr.ErrClosed)
}

func TestWizard_StaleUpdateDropped(t *testing.T) {
	h := newHarness(t)
	_, _ = h.toPay(t)

	h.w.mu.Lock()
	stale := h.w.generation - 1
	h.w.mu.Unlock()

	assert.False(t, h.w.apply(stale, payment.Update{IntentID: "old", Status: models.PaymentStatusCompleted}))
	v := h.w.View()
	assert.Equal(t, OutcomeNone, v.Outcome)
	assert.Equal(t, models.PaymentStatusPending, v.Intent.Status)
}

func TestWizard_BackBeforeDeliveryDropsCommittedPaymentEvents(t *testing.T) {
	h := newHarness(t)
	handle, cancels := h.toPay(t)
	h.drain()

	// Hold deliveries so the update commits and Back runs before anything
	// reaches observers.
	h.w.notifyMu.Lock()
	handle.Feed <- payment.Update{IntentID: "55", Status: models.PaymentStatusFailed}
	require.Eventually(t, func() bool { return h.w.View().Outcome == OutcomeFailed }, 2*time.Second, time.Millisecond)

	backDone := make(chan error, 1)
	go func() { backDone <- h.w.Back() }()
	require.Eventually(t, func() bool { return h.w.View().Step == models.StepMethod }, 2*time.Second, time.Millisecond)
	h.w.notifyMu.Unlock()

	require.NoError(t, <-backDone)
	require.Eventually(t, func() bool { return cancels.Load() == 1 }, 2*time.Second, time.Millisecond)

	delivered := h.drain()
	require.NotEmpty(t, delivered)
	for _, e := range delivered {
		assert.NotContains(t, []EventType{EventPaymentStatus, EventPaymentFailed}, e.Type, "event of an abandoned attempt delivered")
	}
	assert.Equal(t, Event{Type: EventStepChanged, Step: models.StepMethod}, delivered[len(delivered)-1])
}

func TestWizard_PayStepAnnouncedBeforeFirstStatus(t *testing.T) {
	h := newHarness(t)
	handle, _ := h.toPay(t)
	handle.Feed <- payment.Update{IntentID: "55", Status: models.PaymentStatusPending}

	var seen []EventType
	for len(seen) < 2 {
		select {
		case e := <-h.events:
			if e.Type == EventStepChanged && e.Step != models.StepPay {
				continue
			}
			seen = append(seen, e.Type)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out, saw %v", seen)
		}
	}
	assert.Equal(t, []EventType{EventStepChanged, EventPaymentStatus}, seen)
}

func TestWizard_BackDuringSubmissionRefused(t *testing.T) {
	h := newHarness(t)
	h.toConfirm(t, models.PaymentMethodPayPal)

	entered := make(chan struct{})
	release := make(chan struct{})
	h.submitter.On("Submit", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(&order.Result{Order: models.OrderReceipt{ID: "17"}, Completed: true}, nil)

	done := make(chan error, 1)
	go func() { done <- h.w.Next(context.Background()) }()
	<-entered

	assert.True(t, h.w.View().Submitting)
	assert.ErrorIs(t, h.w.Back(), apperr.ErrSubmitInFlight)
	assert.ErrorIs(t, h.w.Next(context.Background()), apperr.ErrSubmitInFlight)

	close(release)
	require.NoError(t, <-done)
	h.submitter.AssertNumberOfCalls(t, "Submit", 1)
}

func TestWizard_ForceCompleteDelegates(t *testing.T) {
	h := newHarness(t)
	handle, _ := h.toPay(t)
	handle.On("ForceComplete", mock.Anything).Return(nil)

	require.NoError(t, h.w.ForceComplete(context.Background()))
	handle.AssertCalled(t, "ForceComplete", mock.Anything)
}

func TestWizard_Locations(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, models.FallbackLocations, h.w.Locations(context.Background()))

	client := new(mocks.MockAPIClient)
	client.On("Locations", mock.Anything).Return([]models.Location{{ID: "1", Name: "Bali"}})
	w := New(context.Background(), h.submitter, h.poller, WithLocationSource(client))
	defer w.Close()
	assert.Equal(t, []models.Location{{ID: "1", Name: "Bali"}}, w.Locations(context.Background()))
}
