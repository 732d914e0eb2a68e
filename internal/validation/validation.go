// Package validation checks wizard fields for completeness and ordering.
// Every function here is pure.
package validation

import (
	"strings"
	"time"

	"github.com/khoakhoakhoa23/TMDT-sub000/internal/models"
)

// Field names used as keys in Errors.
const (
	FieldName            = "name"
	FieldPhone           = "phone"
	FieldAddress         = "address"
	FieldCity            = "city"
	FieldPickupLocation  = "pickupLocation"
	FieldPickupDate      = "pickupDate"
	FieldPickupTime      = "pickupTime"
	FieldDropoffLocation = "dropoffLocation"
	FieldDropoffDate     = "dropoffDate"
	FieldDropoffTime     = "dropoffTime"
	FieldPaymentMethod   = "paymentMethod"
	FieldTerms           = "terms"
)

// MsgDropoffBeforePickup is reported on dropoffDate when the window is inverted.
const MsgDropoffBeforePickup = "must be after pickup date"

// Errors maps a field name to a user-facing message. Empty means valid.
type Errors map[string]string

// OK reports whether no field failed.
func (e Errors) OK() bool { return len(e) == 0 }

// Input is everything the wizard has collected so far.
type Input struct {
	Billing       models.BillingInfo
	Window        models.RentalWindow
	Method        models.PaymentMethod
	TermsAccepted bool
}

// Validate checks the fields owned by step. Confirm re-checks every earlier
// step as well, so a draft can never reach submission half-filled.
func Validate(step models.Step, in Input) Errors {
	switch step {
	case models.StepBilling:
		return Billing(in.Billing)
	case models.StepRental:
		return Rental(in.Window)
	case models.StepMethod:
		return Method(in.Method)
	case models.StepConfirm:
		errs := Errors{}
		merge(errs, Billing(in.Billing))
		merge(errs, Rental(in.Window))
		merge(errs, Method(in.Method))
		if !in.TermsAccepted {
			errs[FieldTerms] = "you must accept the terms and policy"
		}
		return errs
	}
	return Errors{}
}

// Billing requires every billing field to be non-empty after trimming.
func Billing(b models.BillingInfo) Errors {
	errs := Errors{}
	b = b.Trimmed()
	if b.Name == "" {
		errs[FieldName] = "name is required"
	}
	if b.Phone == "" {
		errs[FieldPhone] = "phone number is required"
	}
	if b.Address == "" {
		errs[FieldAddress] = "address is required"
	}
	if b.City == "" {
		errs[FieldCity] = "town or city is required"
	}
	return errs
}

// Rental requires both endpoints to be complete and dropoff not to precede pickup.
func Rental(w models.RentalWindow) Errors {
	errs := Errors{}
	pickup, pickupOK := endpoint(errs, w.Pickup, "pickup", FieldPickupLocation, FieldPickupDate, FieldPickupTime)
	dropoff, dropoffOK := endpoint(errs, w.Dropoff, "dropoff", FieldDropoffLocation, FieldDropoffDate, FieldDropoffTime)

	if pickupOK && dropoffOK && dropoff.Before(pickup) {
		errs[FieldDropoffDate] = MsgDropoffBeforePickup
	}
	return errs
}

// Method requires a known payment method to be selected.
func Method(m models.PaymentMethod) Errors {
	errs := Errors{}
	switch {
	case m == "":
		errs[FieldPaymentMethod] = "payment method is required"
	case !m.IsKnown():
		errs[FieldPaymentMethod] = "unsupported payment method"
	}
	return errs
}

func endpoint(errs Errors, e models.Endpoint, label, locField, dateField, timeField string) (time.Time, bool) {
	if strings.TrimSpace(e.Location) == "" {
		errs[locField] = label + " location is required"
	}

	switch {
	case strings.TrimSpace(e.Time) == "":
		errs[timeField] = label + " time is required"
	case !models.IsTimeSlot(e.Time):
		errs[timeField] = label + " time must be a full hour between 00:00 and 23:00"
	}

	if strings.TrimSpace(e.Date) == "" {
		errs[dateField] = label + " date is required"
		return time.Time{}, false
	}
	d, err := time.Parse(models.DateLayout, e.Date)
	if err != nil {
		errs[dateField] = label + " date must be YYYY-MM-DD"
		return time.Time{}, false
	}
	return d, true
}

func merge(dst, src Errors) {
	for k, v := range src {
		dst[k] = v
	}
}
