package checkout

import "github.com/khoakhoakhoa23/TMDT-sub000/internal/models"

// EventType names something observers are told about.
type EventType string

const (
	EventStepChanged      EventType = "step_changed"
	EventSubmissionFailed EventType = "submission_failed"
	EventPaymentStatus    EventType = "payment_status"
	EventPaymentSucceeded EventType = "payment_succeeded"
	EventPaymentFailed    EventType = "payment_failed"
	EventPollError        EventType = "poll_error"
)

// Event is delivered to observers after the state change it describes has
// been committed.
type Event struct {
	Type     EventType
	Step     models.Step
	Status   models.PaymentStatus
	Redirect string
	Err      error
}

// Observer receives wizard events in commit order. Observers run on the
// goroutine that caused the event and must not block. They may call View but
// must not call the wizard's transition methods.
type Observer func(Event)
