package models

import "strings"

// PaymentStatus is the gateway status of a payment intent
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// ParsePaymentStatus folds the gateway's raw status values onto the three
// states the orchestrator tracks. "processing" is still pending, "success" is
// the same terminal success as "completed" and "cancelled" is a failure.
// Unknown values are reported with ok=false.
func ParsePaymentStatus(raw string) (PaymentStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending", "processing":
		return PaymentStatusPending, true
	case "completed", "success", "succeeded":
		return PaymentStatusCompleted, true
	case "failed", "cancelled", "canceled":
		return PaymentStatusFailed, true
	}
	return "", false
}

// IsTerminal returns true once no further polling is needed.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed
}

// PaymentIntent is the server-side record of a pending gateway payment.
// ID is immutable once assigned; Status is updated only from poller updates.
type PaymentIntent struct {
	ID         string        `json:"id"`
	OrderID    string        `json:"orderId"`
	Method     PaymentMethod `json:"paymentMethod"`
	Status     PaymentStatus `json:"status"`
	QRCode     string        `json:"qrCode,omitempty"`
	PaymentURL string        `json:"paymentUrl,omitempty"`
}

// Location is a rental pickup/dropoff point
type Location struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// FallbackLocations is used when the location list cannot be fetched.
var FallbackLocations = []Location{
	{Name: "Semarang"},
	{Name: "Jakarta"},
	{Name: "Surabaya"},
}
