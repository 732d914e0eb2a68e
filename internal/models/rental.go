package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DateLayout is the wire and input format for rental dates.
const DateLayout = "2006-01-02"

// Default hours used when seeding a fresh rental window.
const (
	DefaultPickupTime  = "07:00"
	DefaultDropoffTime = "01:00"
)

// BillingInfo holds the customer's billing details
type BillingInfo struct {
	Name    string `json:"name" yaml:"name"`
	Phone   string `json:"phone" yaml:"phone"`
	Address string `json:"address" yaml:"address"`
	City    string `json:"city" yaml:"city"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (b BillingInfo) Trimmed() BillingInfo {
	return BillingInfo{
		Name:    strings.TrimSpace(b.Name),
		Phone:   strings.TrimSpace(b.Phone),
		Address: strings.TrimSpace(b.Address),
		City:    strings.TrimSpace(b.City),
	}
}

// Endpoint is one side of a rental window
type Endpoint struct {
	Location string `json:"location" yaml:"location"`
	Date     string `json:"date" yaml:"date"` // YYYY-MM-DD
	Time     string `json:"time" yaml:"time"` // one of TimeSlots()
}

// RentalWindow is the paired pickup/dropoff definition of a rental period
type RentalWindow struct {
	Pickup  Endpoint `json:"pickup" yaml:"pickup"`
	Dropoff Endpoint `json:"dropoff" yaml:"dropoff"`
}

// NewRentalWindow returns a window seeded with today/tomorrow and the default hours.
func NewRentalWindow(now time.Time) RentalWindow {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return RentalWindow{
		Pickup: Endpoint{
			Date: today.Format(DateLayout),
			Time: DefaultPickupTime,
		},
		Dropoff: Endpoint{
			Date: today.AddDate(0, 0, 1).Format(DateLayout),
			Time: DefaultDropoffTime,
		},
	}
}

// Days returns the billable rental day count: ceil((dropoff - pickup) / 1 day),
// never less than 1. It fails if either date is malformed or dropoff precedes pickup.
func (w RentalWindow) Days() (int, error) {
	pickup, err := time.Parse(DateLayout, w.Pickup.Date)
	if err != nil {
		return 0, fmt.Errorf("pickup date: %w", err)
	}
	dropoff, err := time.Parse(DateLayout, w.Dropoff.Date)
	if err != nil {
		return 0, fmt.Errorf("dropoff date: %w", err)
	}
	if dropoff.Before(pickup) {
		return 0, fmt.Errorf("dropoff date %s is before pickup date %s", w.Dropoff.Date, w.Pickup.Date)
	}

	days := int(math.Ceil(dropoff.Sub(pickup).Hours() / 24))
	if days < 1 {
		days = 1
	}
	return days, nil
}

var timeSlots = func() []string {
	slots := make([]string, 24)
	for h := 0; h < 24; h++ {
		slots[h] = fmt.Sprintf("%02d:00", h)
	}
	return slots
}()

// TimeSlots returns the 24 hourly slots "00:00".."23:00".
func TimeSlots() []string {
	out := make([]string, len(timeSlots))
	copy(out, timeSlots)
	return out
}

// IsTimeSlot reports whether s is one of the hourly slots.
func IsTimeSlot(s string) bool {
	for _, slot := range timeSlots {
		if slot == s {
			return true
		}
	}
	return false
}
