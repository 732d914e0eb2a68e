package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/khoakhoakhoa23/TMDT-sub000/internal/apperr"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/checkout"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/config"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/models"
)

// runFlags holds the wizard input; fields set before register become the
// flag defaults.
type runFlags struct {
	billing  models.BillingInfo
	pickup   models.Endpoint
	dropoff  models.Endpoint
	method   string
	cars     []string
	simulate bool
	wait     time.Duration
}

func (f *runFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.billing.Name, "name", f.billing.Name, "billing name")
	fl.StringVar(&f.billing.Phone, "phone", f.billing.Phone, "billing phone")
	fl.StringVar(&f.billing.Address, "address", f.billing.Address, "billing address")
	fl.StringVar(&f.billing.City, "city", f.billing.City, "billing city")
	fl.StringVar(&f.pickup.Location, "pickup", f.pickup.Location, "pickup location")
	fl.StringVar(&f.pickup.Date, "pickup-date", "", "pickup date (YYYY-MM-DD)")
	fl.StringVar(&f.pickup.Time, "pickup-time", "", "pickup time slot")
	fl.StringVar(&f.dropoff.Location, "dropoff", f.dropoff.Location, "dropoff location")
	fl.StringVar(&f.dropoff.Date, "dropoff-date", "", "dropoff date (YYYY-MM-DD)")
	fl.StringVar(&f.dropoff.Time, "dropoff-time", "", "dropoff time slot")
	fl.StringVar(&f.method, "method", string(models.DefaultPaymentMethod), "payment method")
	fl.StringSliceVar(&f.cars, "car", f.cars, "car to rent as ID or ID:QTY (repeatable)")
	fl.BoolVar(&f.simulate, "simulate", false, "settle the payment through the simulate endpoint")
	fl.DurationVar(&f.wait, "wait", 10*time.Minute, "how long to wait for the payment to settle")
}

func runCmd(g *globals) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive one checkout headlessly",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckout(cmd.Context(), cmd.OutOrStdout(), g.cfg, g.logger, f)
		},
	}
	f.register(cmd)
	return cmd
}

func parseItems(cars []string) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, 0, len(cars))
	for _, c := range cars {
		id, qty, found := strings.Cut(c, ":")
		item := models.OrderItem{CarID: strings.TrimSpace(id), Quantity: 1}
		if found {
			n, err := strconv.Atoi(qty)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("invalid quantity in %q", c)
			}
			item.Quantity = n
		}
		if item.CarID == "" {
			return nil, fmt.Errorf("invalid car %q", c)
		}
		items = append(items, item)
	}
	return items, nil
}

// overlay replaces the fields of base that are set in e.
func overlay(base, e models.Endpoint) models.Endpoint {
	if e.Location != "" {
		base.Location = e.Location
	}
	if e.Date != "" {
		base.Date = e.Date
	}
	if e.Time != "" {
		base.Time = e.Time
	}
	return base
}

func runCheckout(ctx context.Context, out io.Writer, cfg *config.Config, logger *slog.Logger, f *runFlags) error {
	items, err := parseItems(f.cars)
	if err != nil {
		return err
	}

	events := make(chan checkout.Event, 16)
	observer := func(e checkout.Event) {
		switch e.Type {
		case checkout.EventPaymentSucceeded, checkout.EventPaymentFailed, checkout.EventPollError, checkout.EventPaymentStatus:
			select {
			case events <- e:
			default:
			}
		}
	}

	w, release, err := newWizard(ctx, cfg, logger, items, checkout.WithObserver(observer))
	if err != nil {
		return err
	}
	defer release()

	if err := w.SetBilling(f.billing); err != nil {
		return err
	}
	if err := w.Next(ctx); err != nil {
		return err
	}

	win := w.View().Window
	win.Pickup = overlay(win.Pickup, f.pickup)
	win.Dropoff = overlay(win.Dropoff, f.dropoff)
	if err := w.SetRental(win); err != nil {
		return err
	}
	if err := w.Next(ctx); err != nil {
		return err
	}

	if err := w.SetMethod(models.PaymentMethod(f.method)); err != nil {
		return err
	}
	if err := w.Next(ctx); err != nil {
		return err
	}

	if err := w.AcceptTerms(true); err != nil {
		return err
	}
	if err := w.Next(ctx); err != nil {
		return err
	}

	v := w.View()
	if v.Outcome == checkout.OutcomeSucceeded {
		fmt.Fprintf(out, "order %s paid, continue at %s\n", v.OrderID, v.Redirect)
		return nil
	}

	fmt.Fprintf(out, "order %s awaiting %s payment %s\n", v.OrderID, v.Method, v.Intent.ID)
	if v.Intent.PaymentURL != "" {
		fmt.Fprintf(out, "pay at %s\n", v.Intent.PaymentURL)
	}

	if f.simulate {
		if err := w.ForceComplete(ctx); err != nil {
			return err
		}
	}

	return awaitOutcome(ctx, out, events, f.wait)
}

func awaitOutcome(ctx context.Context, out io.Writer, events <-chan checkout.Event, wait time.Duration) error {
	timeout := time.NewTimer(wait)
	defer timeout.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout.C:
			return errors.New("timed out waiting for payment")
		case e := <-events:
			switch e.Type {
			case checkout.EventPaymentStatus:
				fmt.Fprintf(out, "payment %s\n", e.Status)
			case checkout.EventPaymentSucceeded:
				fmt.Fprintf(out, "payment completed, continue at %s\n", e.Redirect)
				return nil
			case checkout.EventPaymentFailed:
				return errors.New("payment failed")
			case checkout.EventPollError:
				fmt.Fprintf(out, "status check failed: %v\n", e.Err)
				if errors.Is(e.Err, apperr.ErrPollingFatal) {
					return e.Err
				}
			}
		}
	}
}
