// Package clock abstracts the time source so expiry and lockout logic can be
// driven deterministically in tests.
package clock

import "time"

// Clocker is the minimal time source used across the application.
type Clocker interface {
	Now() time.Time
}

// System reads the real system time.
type System struct{}

// New returns the production clock.
func New() *System {
	return &System{}
}

// Now returns the current system time in UTC.
func (*System) Now() time.Time {
	return time.Now().UTC()
}

// Fixed is a Clocker pinned to a single instant, useful in tests.
type Fixed struct {
	At time.Time
}

// Now returns the pinned instant.
func (f Fixed) Now() time.Time {
	return f.At
}
