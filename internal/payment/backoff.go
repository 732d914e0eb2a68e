package payment

import "time"

const (
	DefaultPollInterval        = 3 * time.Second
	DefaultRateLimitedInterval = 10 * time.Second
)

// BackoffPolicy decides the polling cadence. Once widened by a rate-limit
// response it stays widened for the life of the poller that owns it.
// A policy is owned by a single polling goroutine and is not safe for
// concurrent use.
type BackoffPolicy struct {
	Base        time.Duration
	RateLimited time.Duration

	widened bool
}

// NewBackoffPolicy returns a policy with the given intervals; zero values
// take the defaults.
func NewBackoffPolicy(base, rateLimited time.Duration) *BackoffPolicy {
	if base <= 0 {
		base = DefaultPollInterval
	}
	if rateLimited <= 0 {
		rateLimited = DefaultRateLimitedInterval
	}
	return &BackoffPolicy{Base: base, RateLimited: rateLimited}
}

// Interval returns the current polling interval.
func (p *BackoffPolicy) Interval() time.Duration {
	if p.widened {
		return p.RateLimited
	}
	return p.Base
}

// OnRateLimited widens the interval and reports whether it changed.
func (p *BackoffPolicy) OnRateLimited() bool {
	if p.widened {
		return false
	}
	p.widened = true
	return p.RateLimited != p.Base
}
