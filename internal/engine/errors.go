package engine

import (
	"errors"
	"fmt"
	"time"
)

// UnresolvedIdentityError reports a device user that matched no employee
// after the full resolution ladder: stored device ID, exact name match,
// and (in bootstrap mode) roster creation.
//
// In strict mode this error aborts the run. In normal mode the punch is
// skipped instead and the run degrades to a partial result.
type UnresolvedIdentityError struct {
	// DeviceID identifies the device the punch came from.
	DeviceID string

	// DeviceUserID is the normalized on-device user ID.
	DeviceUserID string

	// ShownName is the display name the device reports for the user,
	// empty when the device has none enrolled.
	ShownName string
}

// Error implements the error interface.
func (e *UnresolvedIdentityError) Error() string {
	const hint = "link them with 'punchsync users' or enroll a two-word name on the device"
	if e.ShownName != "" {
		return fmt.Sprintf("device %s: user %s (%q) matches no employee; %s", e.DeviceID, e.DeviceUserID, e.ShownName, hint)
	}
	return fmt.Sprintf("device %s: user %s matches no employee; %s", e.DeviceID, e.DeviceUserID, hint)
}

// IsUnresolved returns true if the error is an unresolved identity error.
// Uses errors.As to handle wrapped errors.
func IsUnresolved(err error) bool {
	var ue *UnresolvedIdentityError
	return errors.As(err, &ue)
}

// ValidationError reports a punch rejected before it reached the audit
// trail, such as a timestamp in the future. The punch is dropped, the run
// continues, and the final status degrades to partial.
type ValidationError struct {
	// DeviceUserID is the normalized on-device user ID.
	DeviceUserID string

	// PunchingTime is the punch's UTC instant.
	PunchingTime time.Time

	// Reason is a human-readable description of the rejection.
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("punch by %s at %s rejected: %s",
		e.DeviceUserID, e.PunchingTime.UTC().Format("2006-01-02 15:04:05"), e.Reason)
}

// IsValidation returns true if the error is a punch validation error.
// Uses errors.As to handle wrapped errors.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
