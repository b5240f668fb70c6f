package core

import "time"

// Clock supplies the current time. Scheduling and statistics take a Clock
// instead of calling time.Now so evaluation is deterministic under test.
type Clock func() time.Time

// SystemClock returns the wall-clock time.
func SystemClock() time.Time { return time.Now() }

// FixedClock returns a Clock that always reports t.
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// Now calls the clock, falling back to the wall clock when c is nil.
func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}
