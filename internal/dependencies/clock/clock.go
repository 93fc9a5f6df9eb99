// Package clock abstracts wall time so record staleness, lockouts and
// session expiry can be driven from tests
package clock

import "time"

// Clock reports the current time
type Clock interface {
	Now() time.Time
	// Since is Now().Sub(t)
	Since(t time.Time) time.Duration
}

// RealClock reads the system clock in UTC
type RealClock struct{}

// New creates a new RealClock
func New() *RealClock {
	return &RealClock{}
}

// Now returns the current time in UTC
func (c *RealClock) Now() time.Time {
	return time.Now().UTC()
}

// Since returns the time elapsed since t
func (c *RealClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}
