package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/khoakhoakhoa23/TMDT-sub000/internal/api"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/sandbox/service"
)

const msgRequired = "This field is required."

// Handler contains HTTP handlers for the sandbox API
type Handler struct {
	rentalService service.RentalService
}

// NewHandler creates a new Handler instance
func NewHandler(rentalService service.RentalService) *Handler {
	return &Handler{
		rentalService: rentalService,
	}
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"detail": message})
}

// respondFieldErrors writes a field-keyed validation error body.
func respondFieldErrors(w http.ResponseWriter, fields map[string]string) {
	body := make(map[string][]string, len(fields))
	for k, v := range fields {
		body[k] = []string{v}
	}
	respondJSON(w, http.StatusBadRequest, body)
}

// respondServiceError maps service errors onto status codes.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		respondError(w, http.StatusNotFound, "Not found.")
	case errors.Is(err, service.ErrRateLimited):
		w.Header().Set("Retry-After", "10")
		respondError(w, http.StatusTooManyRequests, "Request was throttled.")
	case errors.Is(err, service.ErrUnsupportedMethod):
		respondFieldErrors(w, map[string]string{"payment_method": err.Error()})
	case errors.Is(err, service.ErrPendingPayment), errors.Is(err, service.ErrAlreadySettled):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// Locations handles POST /api/locations/
func (h *Handler) Locations(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.rentalService.Locations(r.Context()))
}

// CreateOrder handles POST /api/order/
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req api.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if fields := validateOrder(req); len(fields) > 0 {
		respondFieldErrors(w, fields)
		return
	}

	order, err := h.rentalService.CreateOrder(r.Context(), req, r.Header.Get("Idempotency-Key"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, order)
}

func validateOrder(req api.OrderRequest) map[string]string {
	fields := map[string]string{}
	required := map[string]string{
		"shipping_name":    req.ShippingName,
		"shipping_phone":   req.ShippingPhone,
		"shipping_address": req.ShippingAddress,
		"shipping_city":    req.ShippingCity,
		"start_date":       req.StartDate,
		"end_date":         req.EndDate,
		"pickup_location":  req.PickupLocation,
		"return_location":  req.ReturnLocation,
		"payment_method":   req.PaymentMethod,
	}
	for k, v := range required {
		if strings.TrimSpace(v) == "" {
			fields[k] = msgRequired
		}
	}
	if len(req.Items) == 0 {
		fields["items"] = "At least one car is required."
	}

	start, startErr := time.Parse("2006-01-02", req.StartDate)
	end, endErr := time.Parse("2006-01-02", req.EndDate)
	if req.StartDate != "" && startErr != nil {
		fields["start_date"] = "Date has wrong format. Use YYYY-MM-DD."
	}
	if req.EndDate != "" && endErr != nil {
		fields["end_date"] = "Date has wrong format. Use YYYY-MM-DD."
	}
	if startErr == nil && endErr == nil && end.Before(start) {
		fields["end_date"] = "End date must be after start date."
	}
	if req.RentalDays < 1 {
		fields["rental_days"] = "Ensure this value is greater than or equal to 1."
	}
	return fields
}

// CreatePayment handles POST /api/payment/create/
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req api.PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	fields := map[string]string{}
	if req.OrderID == "" {
		fields["order_id"] = msgRequired
	}
	if req.PaymentMethod == "" {
		fields["payment_method"] = msgRequired
	}
	if len(fields) > 0 {
		respondFieldErrors(w, fields)
		return
	}

	payment, err := h.rentalService.CreatePayment(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, payment)
}

// PaymentStatus handles GET /api/payment/{id}/status/
func (h *Handler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	paymentID := mux.Vars(r)["id"]

	payment, err := h.rentalService.PaymentStatus(r.Context(), paymentID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, api.StatusResponse{
		Status:        payment.Status,
		TransactionID: payment.TransactionID,
	})
}

// SimulatePayment handles POST /api/payment/{id}/simulate/
func (h *Handler) SimulatePayment(w http.ResponseWriter, r *http.Request) {
	paymentID := mux.Vars(r)["id"]

	payment, err := h.rentalService.SimulatePayment(r.Context(), paymentID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, payment)
}

// Checkout handles POST /api/checkout/
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req api.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.OrderID == "" {
		respondFieldErrors(w, map[string]string{"order_id": msgRequired})
		return
	}

	order, err := h.rentalService.Checkout(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
