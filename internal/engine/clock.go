package engine

import "time"

// Clock supplies the engine's notion of now, used for future-punch
// validation and last-seen stamps on device user links.
// Implemented by SystemClock (production) and testutil.FrozenClock (tests).
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
