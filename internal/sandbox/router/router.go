package router

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/khoakhoakhoa23/TMDT-sub000/internal/sandbox/handlers"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/sandbox/middleware"
)

// Options configures the sandbox router.
type Options struct {
	Logger *slog.Logger
	// Token, when set, is required as the bearer token on /api routes.
	Token string
	// Simulate enables the development-only simulate endpoint.
	Simulate bool
}

// SetupRouter creates and configures the HTTP router
func SetupRouter(h *handlers.Handler, opts Options) *mux.Router {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	r := mux.NewRouter()
	r.Use(middleware.Logging(opts.Logger))
	r.Use(middleware.CORS)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.BearerAuth(opts.Token))

	api.HandleFunc("/locations/", h.Locations).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/order/", h.CreateOrder).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/checkout/", h.Checkout).Methods(http.MethodPost, http.MethodOptions)

	// Payments
	api.HandleFunc("/payment/create/", h.CreatePayment).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/payment/{id}/status/", h.PaymentStatus).Methods(http.MethodGet, http.MethodOptions)
	if opts.Simulate {
		api.HandleFunc("/payment/{id}/simulate/", h.SimulatePayment).Methods(http.MethodPost, http.MethodOptions)
	}

	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	return r
}
