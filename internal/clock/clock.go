// Package clock abstracts the current time so callers can be tested deterministically.
package clock

import "time"

// Clock reports the current instant.
type Clock interface {
	Now() time.Time
}

// Func adapts a function to Clock.
type Func func() time.Time

// Now calls f.
func (f Func) Now() time.Time { return f() }

// System is the wall clock in UTC.
var System Clock = Func(func() time.Time { return time.Now().UTC() })

// Fixed returns a clock frozen at t.
func Fixed(t time.Time) Clock { return Func(func() time.Time { return t }) }
