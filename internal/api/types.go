package api

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/khoakhoakhoa23/TMDT-sub000/internal/models"
)

// ID decodes a backend identifier sent either as a JSON number or a string.
// null, "", and 0 all decode to the empty ID.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil && i == 0 {
		*id = ""
		return nil
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON emits canonical integer ids as numbers so the backend's integer
// fields accept them. Anything else, "0042" or "+5" included, stays a string.
func (id ID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// OrderItem is one line of the order request.
type OrderItem struct {
	CarID    ID  `json:"xe_id"`
	Quantity int `json:"quantity"`
}

// OrderRequest is the body of POST /order/.
type OrderRequest struct {
	Items           []OrderItem `json:"items"`
	ShippingName    string      `json:"shipping_name"`
	ShippingPhone   string      `json:"shipping_phone"`
	ShippingAddress string      `json:"shipping_address"`
	ShippingCity    string      `json:"shipping_city"`
	StartDate       string      `json:"start_date"`
	EndDate         string      `json:"end_date"`
	PickupTime      string      `json:"pickup_time"`
	ReturnTime      string      `json:"return_time"`
	PickupLocation  string      `json:"pickup_location"`
	ReturnLocation  string      `json:"return_location"`
	RentalDays      int         `json:"rental_days"`
	PaymentMethod   string      `json:"payment_method"`
}

// NewOrderRequest flattens an order into the backend's wire shape.
func NewOrderRequest(o models.Order) OrderRequest {
	items := make([]OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItem{CarID: ID(it.CarID), Quantity: it.Quantity})
	}
	b := o.Billing.Trimmed()
	return OrderRequest{
		Items:           items,
		ShippingName:    b.Name,
		ShippingPhone:   b.Phone,
		ShippingAddress: b.Address,
		ShippingCity:    b.City,
		StartDate:       o.Window.Pickup.Date,
		EndDate:         o.Window.Dropoff.Date,
		PickupTime:      o.Window.Pickup.Time,
		ReturnTime:      o.Window.Dropoff.Time,
		PickupLocation:  o.Window.Pickup.Location,
		ReturnLocation:  o.Window.Dropoff.Location,
		RentalDays:      o.Days,
		PaymentMethod:   string(o.Method),
	}
}

// OrderResponse is the subset of the created order the orchestrator reads.
type OrderResponse struct {
	ID     ID     `json:"id"`
	Status string `json:"status,omitempty"`
}

// PaymentRequest is the body of POST /payment/create/.
type PaymentRequest struct {
	OrderID       ID     `json:"order_id"`
	PaymentMethod string `json:"payment_method"`
	ReturnURL     string `json:"return_url,omitempty"`
}

// PaymentResponse is the created payment intent.
type PaymentResponse struct {
	ID            ID     `json:"id"`
	Status        string `json:"status"`
	QRCode        string `json:"qr_code,omitempty"`
	PaymentURL    string `json:"payment_url,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// StatusResponse is the body of GET /payment/{id}/status/.
type StatusResponse struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// CheckoutRequest is the body of POST /checkout/.
type CheckoutRequest struct {
	OrderID       ID     `json:"order_id"`
	PaymentMethod string `json:"payment_method"`
}

type locationDTO struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}
