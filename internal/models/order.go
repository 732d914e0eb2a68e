package models

// PaymentMethod identifies how the customer pays
type PaymentMethod string

const (
	PaymentMethodMomo    PaymentMethod = "momo"
	PaymentMethodZaloPay PaymentMethod = "zalopay"
	PaymentMethodVNPay   PaymentMethod = "vnpay"

	// Non-gateway methods settle through the direct checkout endpoint.
	PaymentMethodCreditCard PaymentMethod = "credit_card"
	PaymentMethodPayPal     PaymentMethod = "paypal"
	PaymentMethodBitcoin    PaymentMethod = "bitcoin"
)

// DefaultPaymentMethod is pre-selected on the Method step.
const DefaultPaymentMethod = PaymentMethodMomo

// IsGateway reports whether the method opens a payment intent with a gateway.
func (m PaymentMethod) IsGateway() bool {
	switch m {
	case PaymentMethodMomo, PaymentMethodZaloPay, PaymentMethodVNPay:
		return true
	}
	return false
}

// IsKnown reports whether the method is one the storefront accepts.
func (m PaymentMethod) IsKnown() bool {
	switch m {
	case PaymentMethodMomo, PaymentMethodZaloPay, PaymentMethodVNPay,
		PaymentMethodCreditCard, PaymentMethodPayPal, PaymentMethodBitcoin:
		return true
	}
	return false
}

// OrderItem is a single rented car
type OrderItem struct {
	CarID    string `json:"carId"`
	Quantity int    `json:"quantity"`
}

// Order is the payload built from the wizard state on confirmation
type Order struct {
	AttemptID string        `json:"attemptId"`
	Items     []OrderItem   `json:"items"`
	Billing   BillingInfo   `json:"billing"`
	Window    RentalWindow  `json:"window"`
	Days      int           `json:"days"`
	Method    PaymentMethod `json:"paymentMethod"`
}

// OrderReceipt is what the backend returns for a created order
type OrderReceipt struct {
	ID     string `json:"id"`
	Status string `json:"status,omitempty"`
}
