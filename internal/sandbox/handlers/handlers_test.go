package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/khoakhoakhoa23/TMDT-sub000/internal/api"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/models"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/sandbox/service"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/sandbox/service/mocks"
)

func setupTestRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/locations/", h.Locations).Methods(http.MethodPost)
	api.HandleFunc("/order/", h.CreateOrder).Methods(http.MethodPost)
	api.HandleFunc("/checkout/", h.Checkout).Methods(http.MethodPost)
	api.HandleFunc("/payment/create/", h.CreatePayment).Methods(http.MethodPost)
	api.HandleFunc("/payment/{id}/status/", h.PaymentStatus).Methods(http.MethodGet)
	api.HandleFunc("/payment/{id}/simulate/", h.SimulatePayment).Methods(http.MethodPost)
	return r
}

func validOrderRequest() api.OrderRequest {
	return api.OrderRequest{
		Items:           []api.OrderItem{{CarID: "3", Quantity: 1}},
		ShippingName:    "Lan",
		ShippingPhone:   "0901",
		ShippingAddress: "1 Le Loi",
		ShippingCity:    "Hue",
		StartDate:       "2025-06-10",
		EndDate:         "2025-06-12",
		PickupTime:      "07:00",
		ReturnTime:      "01:00",
		PickupLocation:  "Semarang",
		ReturnLocation:  "Jakarta",
		RentalDays:      2,
		PaymentMethod:   "momo",
	}
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Locations(t *testing.T) {
	mockService := new(mocks.MockRentalService)
	router := setupTestRouter(NewHandler(mockService))

	mockService.On("Locations", mock.Anything).Return([]models.Location{{ID: "1", Name: "Semarang"}})

	rec := doJSON(t, router, http.MethodPost, "/api/locations/", struct{}{}, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id": "1", "name": "Semarang"}]`, rec.Body.String())
	mockService.AssertExpectations(t)
}

func TestHandler_CreateOrder(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		setupMock      func(*mocks.MockRentalService)
		expectedStatus int
		expectedFields []string
	}{
		{
			name: "created",
			body: validOrderRequest(),
			setupMock: func(m *mocks.MockRentalService) {
				m.On("CreateOrder", mock.Anything, mock.Anything, "key-1").
					Return(&service.Order{ID: 17, Status: service.StatusPending}, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "missing phone",
			body: func() api.OrderRequest {
				r := validOrderRequest()
				r.ShippingPhone = " "
				return r
			}(),
			expectedStatus: http.StatusBadRequest,
			expectedFields: []string{"shipping_phone"},
		},
		{
			name: "end before start",
			body: func() api.OrderRequest {
				r := validOrderRequest()
				r.EndDate = "2025-06-09"
				return r
			}(),
			expectedStatus: http.StatusBadRequest,
			expectedFields: []string{"end_date"},
		},
		{
			name:           "empty order",
			body:           struct{}{},
			expectedStatus: http.StatusBadRequest,
			expectedFields: []string{"items", "shipping_name", "start_date", "payment_method", "rental_days"},
		},
		{
			name:           "invalid body",
			body:           "not an object",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.MockRentalService)
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}
			router := setupTestRouter(NewHandler(mockService))

			rec := doJSON(t, router, http.MethodPost, "/api/order/", tt.body, map[string]string{"Idempotency-Key": "key-1"})

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if len(tt.expectedFields) > 0 {
				var fields map[string][]string
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&fields))
				for _, f := range tt.expectedFields {
					assert.Contains(t, fields, f)
				}
				mockService.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestHandler_CreatePayment(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		mockReturn     *service.Payment
		mockError      error
		expectedStatus int
	}{
		{
			name:           "created",
			body:           map[string]interface{}{"order_id": 17, "payment_method": "momo"},
			mockReturn:     &service.Payment{ID: 5, OrderID: 17, Status: service.StatusPending, QRCode: "momo://pay"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "pending payment exists",
			body:           map[string]interface{}{"order_id": 17, "payment_method": "momo"},
			mockError:      service.ErrPendingPayment,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "order not found",
			body:           map[string]interface{}{"order_id": 99, "payment_method": "momo"},
			mockError:      service.ErrNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "missing order id",
			body:           map[string]interface{}{"payment_method": "momo"},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.MockRentalService)
			if tt.mockReturn != nil || tt.mockError != nil {
				mockService.On("CreatePayment", mock.Anything, mock.Anything).Return(tt.mockReturn, tt.mockError)
			}
			router := setupTestRouter(NewHandler(mockService))

			rec := doJSON(t, router, http.MethodPost, "/api/payment/create/", tt.body, nil)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.mockReturn != nil {
				var resp api.PaymentResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, api.ID("5"), resp.ID)
				assert.Equal(t, "momo://pay", resp.QRCode)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestHandler_PaymentStatus(t *testing.T) {
	tests := []struct {
		name           string
		mockReturn     *service.Payment
		mockError      error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "pending",
			mockReturn:     &service.Payment{ID: 5, Status: service.StatusPending, TransactionID: "tx"},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status": "pending", "transaction_id": "tx"}`,
		},
		{
			name:           "throttled",
			mockError:      service.ErrRateLimited,
			expectedStatus: http.StatusTooManyRequests,
			expectedBody:   `{"detail": "Request was throttled."}`,
		},
		{
			name:           "not found",
			mockError:      service.ErrNotFound,
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"detail": "Not found."}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.MockRentalService)
			mockService.On("PaymentStatus", mock.Anything, "5").Return(tt.mockReturn, tt.mockError)
			router := setupTestRouter(NewHandler(mockService))

			rec := doJSON(t, router, http.MethodGet, "/api/payment/5/status/", nil, nil)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.JSONEq(t, tt.expectedBody, rec.Body.String())
			mockService.AssertExpectations(t)
		})
	}
}

func TestHandler_SimulatePayment(t *testing.T) {
	mockService := new(mocks.MockRentalService)
	mockService.On("SimulatePayment", mock.Anything, "5").Return(&service.Payment{ID: 5, Status: service.StatusCompleted}, nil)
	router := setupTestRouter(NewHandler(mockService))

	rec := doJSON(t, router, http.MethodPost, "/api/payment/5/simulate/", struct{}{}, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp service.Payment
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, service.StatusCompleted, resp.Status)
}

func TestHandler_Checkout(t *testing.T) {
	mockService := new(mocks.MockRentalService)
	mockService.On("Checkout", mock.Anything, api.CheckoutRequest{OrderID: "17", PaymentMethod: "paypal"}).
		Return(&service.Order{ID: 17, Status: "paid"}, nil)
	mockService.On("Checkout", mock.Anything, api.CheckoutRequest{OrderID: "17", PaymentMethod: "momo"}).
		Return(nil, service.ErrUnsupportedMethod)
	router := setupTestRouter(NewHandler(mockService))

	rec := doJSON(t, router, http.MethodPost, "/api/checkout/", map[string]interface{}{"order_id": 17, "payment_method": "paypal"}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/checkout/", map[string]interface{}{"order_id": 17, "payment_method": "momo"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "payment_method")

	mockService.AssertExpectations(t)
}
