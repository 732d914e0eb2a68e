package checkout

import (
	"context"

	"github.com/khoakhoakhoa23/TMDT-sub000/internal/models"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/order"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/payment"
)

// Submitter creates the order for a confirmed checkout.
type Submitter interface {
	Submit(ctx context.Context, o models.Order) (*order.Result, error)
}

// PollHandle is a running status poller.
type PollHandle interface {
	Updates() <-chan payment.Update
	Cancel()
	ForceComplete(ctx context.Context) error
}

// Poller starts status pollers.
type Poller interface {
	Start(ctx context.Context, intentID string) PollHandle
}

// LocationSource lists pickup and dropoff locations.
type LocationSource interface {
	Locations(ctx context.Context) []models.Location
}

// PaymentPoller adapts a *payment.Poller to Poller.
func PaymentPoller(p *payment.Poller) Poller {
	return paymentPoller{p: p}
}

type paymentPoller struct {
	p *payment.Poller
}

func (a paymentPoller) Start(ctx context.Context, intentID string) PollHandle {
	return a.p.Start(ctx, intentID)
}
