// Package apperr defines the error taxonomy shared by the checkout orchestrator.
//
// Callers classify errors with errors.Is against the sentinels below, or with
// Kind for logging and display.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrValidation marks local, pre-submission field errors.
	ErrValidation = errors.New("validation failed")

	// Submission failures. The wizard stays on Confirm for all of them.
	ErrValidationRejectedByServer = errors.New("validation rejected by server")
	ErrNetwork                    = errors.New("network error")
	ErrInvalidServerResponse      = errors.New("invalid server response")

	// Polling failures.
	ErrPollingTransient = errors.New("transient polling error")
	ErrPollingFatal     = errors.New("fatal polling error")

	ErrSubmitInFlight     = errors.New("submission already in flight")
	ErrInvalidTransition  = errors.New("invalid wizard transition")
	ErrFrozen             = errors.New("checkout details are frozen")
	ErrSimulationDisabled = errors.New("payment simulation disabled")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrClosed             = errors.New("checkout closed")
	ErrEncodeRequest      = errors.New("failed to encode request")
)

// Kind returns a stable, machine-readable name for err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrValidationRejectedByServer):
		return "validation_rejected_by_server"
	case errors.Is(err, ErrInvalidServerResponse):
		return "invalid_server_response"
	case errors.Is(err, ErrPollingFatal):
		return "polling_fatal"
	case errors.Is(err, ErrPollingTransient):
		return "polling_transient"
	case errors.Is(err, ErrSubmitInFlight):
		return "submit_in_flight"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrFrozen):
		return "frozen"
	case errors.Is(err, ErrSimulationDisabled):
		return "simulation_disabled"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrClosed):
		return "closed"
	case errors.Is(err, ErrEncodeRequest):
		return "encode_request"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrNetwork):
		return "network"
	default:
		return "internal"
	}
}

// ValidationError carries per-field messages for one wizard step.
type ValidationError struct {
	Step   string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Step, joinFields(e.Fields))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// SubmissionError is returned when order or payment-intent creation fails.
// Kind is one of ErrValidationRejectedByServer, ErrNetwork or
// ErrInvalidServerResponse.
type SubmissionError struct {
	Kind   error
	Stage  string // "order", "payment" or "checkout"
	Fields map[string]string
	Err    error
}

func (e *SubmissionError) Error() string {
	msg := fmt.Sprintf("submit %s: %v", e.Stage, e.Kind)
	if len(e.Fields) > 0 {
		msg += " (" + joinFields(e.Fields) + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SubmissionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// PollError is emitted by the status poller. Kind is ErrPollingTransient or
// ErrPollingFatal.
type PollError struct {
	Kind       error
	IntentID   string
	StatusCode int
	Err        error
}

func (e *PollError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("poll payment %s: %v (http %d): %v", e.IntentID, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("poll payment %s: %v: %v", e.IntentID, e.Kind, e.Err)
}

func (e *PollError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func joinFields(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fields[k])
	}
	return strings.Join(parts, ", ")
}
