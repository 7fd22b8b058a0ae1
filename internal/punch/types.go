package punch

import "time"

// RawPunch is a single attendance read pulled from a terminal.
//
// Timestamp is device-local naive time exactly as the terminal reported it.
// The sync run converts it to UTC (ToUTC, profile timezone) before anything
// compares, deduplicates, or persists it.
type RawPunch struct {
	DeviceUserID string    `json:"device_user_id"`
	Timestamp    time.Time `json:"timestamp"`
	Code         int       `json:"code"`
	Method       int       `json:"method"`
}

// DeviceUser is the terminal's own record of an enrolled user. Read-only
// reference data for one sync run; used for name-based linking and to make
// resolution errors actionable.
type DeviceUser struct {
	DeviceUserID string `json:"device_user_id"`
	Name         string `json:"name"`
	Privilege    int    `json:"privilege"`
	CardNo       string `json:"card_no"`
	Password     string `json:"password,omitempty"`
}

// Employee is a canonical identity in the HR store.
//
// DeviceUserID is empty until the employee is linked to a terminal user.
// The resolver may fill an empty DeviceUserID but never overwrites a
// non-empty one; uniqueness per company is enforced by the store.
type Employee struct {
	ID           int64  `json:"id"`
	FullName     string `json:"full_name"`
	DeviceUserID string `json:"device_user_id,omitempty"`
	Company      string `json:"company,omitempty"`
}

// DeviceUserLink records that a device user ID was observed on (or
// provisioned for) a specific device. One row per (DeviceID, DeviceUserID).
//
// LastSeenAt == nil means the link exists only on the HR side and still
// needs a push to the physical terminal; non-nil means the user was read
// back from the device at that instant.
type DeviceUserLink struct {
	DeviceID     string     `json:"device_id"`
	DeviceUserID string     `json:"device_user_id"`
	Name         string     `json:"name"`
	EmployeeID   *int64     `json:"employee_id,omitempty"`
	LastSeenAt   *time.Time `json:"last_seen_at,omitempty"`
}

// NeedsPush reports whether the link has never been confirmed on the device.
func (l DeviceUserLink) NeedsPush() bool {
	return l.LastSeenAt == nil
}

// AttendanceSpan is one contiguous presence interval for an employee.
// CheckOut == nil marks an open span (checked in, not yet out).
type AttendanceSpan struct {
	ID         int64      `json:"id"`
	EmployeeID int64      `json:"employee_id"`
	CheckIn    time.Time  `json:"check_in"`
	CheckOut   *time.Time `json:"check_out,omitempty"`
}

// Open reports whether the span has no checkout yet.
func (s AttendanceSpan) Open() bool {
	return s.CheckOut == nil
}

// Covers reports whether ts falls inside the span. Closed spans cover
// [CheckIn, CheckOut); an open span covers everything from CheckIn on.
func (s AttendanceSpan) Covers(ts time.Time) bool {
	if ts.Before(s.CheckIn) {
		return false
	}
	if s.CheckOut == nil {
		return true
	}
	return ts.Before(*s.CheckOut)
}

// Duration returns CheckOut − CheckIn, or 0 for an open span.
func (s AttendanceSpan) Duration() time.Duration {
	if s.CheckOut == nil {
		return 0
	}
	return s.CheckOut.Sub(s.CheckIn)
}

// RawLogEntry is one audited device read. The audit trail keeps every
// physical read, including the ones dedup or reconciliation later ignore.
// Unique on (DeviceUserID, PunchingTime); re-ingesting the same read
// upserts in place instead of duplicating.
type RawLogEntry struct {
	ID           int64     `json:"id"`
	EmployeeID   int64     `json:"employee_id"`
	DeviceUserID string    `json:"device_user_id"`
	PunchingTime time.Time `json:"punching_time"`
	Method       int       `json:"method"`
	Code         int       `json:"code"`
	DeviceID     string    `json:"device_id"`
}

// ToUTC reinterprets a device-local naive timestamp in loc and returns the
// UTC instant. The naive value's wall-clock fields are taken as-is; any
// location already attached to it is ignored.
func ToUTC(naive time.Time, loc *time.Location) time.Time {
	return time.Date(
		naive.Year(), naive.Month(), naive.Day(),
		naive.Hour(), naive.Minute(), naive.Second(), naive.Nanosecond(),
		loc,
	).UTC()
}

// DayWindow returns the UTC midnight-to-midnight window containing ts.
// Same-day span lookups use exactly this window.
func DayWindow(ts time.Time) (start, end time.Time) {
	u := ts.UTC()
	start = time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	end = start.Add(24 * time.Hour)
	return start, end
}
