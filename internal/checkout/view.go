package checkout

import (
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/models"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/validation"
)

// Outcome is how a checkout ended.
type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// View is a snapshot of what the current step should display.
type View struct {
	Step          models.Step
	Errors        validation.Errors
	Billing       models.BillingInfo
	Window        models.RentalWindow
	Days          int // 0 while the window is invalid
	Method        models.PaymentMethod
	TermsAccepted bool

	OrderID string
	Intent  *models.PaymentIntent

	Submitting  bool
	Frozen      bool
	SubmitError error
	PollError   error

	Outcome  Outcome
	Redirect string
}

// View returns a snapshot of the wizard state.
func (w *Wizard) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()

	v := View{
		Step:          w.step,
		Errors:        copyErrors(w.errs[w.step]),
		Billing:       w.billing,
		Window:        w.window,
		Method:        w.method,
		TermsAccepted: w.terms,
		OrderID:       w.orderID,
		Submitting:    w.submitting,
		Frozen:        w.frozen,
		SubmitError:   w.submitErr,
		PollError:     w.pollErr,
		Outcome:       w.outcome,
	}
	if validation.Rental(w.window).OK() {
		v.Days, _ = w.window.Days()
	}
	if w.intent != nil {
		intent := *w.intent
		v.Intent = &intent
	}
	if w.outcome == OutcomeSucceeded {
		v.Redirect = w.redirect
	}
	return v
}

func copyErrors(errs validation.Errors) validation.Errors {
	out := make(validation.Errors, len(errs))
	for k, v := range errs {
		out[k] = v
	}
	return out
}
