package engine

import (
	"context"
	"time"

	"github.com/rida-louchachha/punchsync/internal/punch"
)

// RunState is the per-run reconciliation state: for each employee the
// tracked open span, the latest closed checkout, and the last punch seen
// per side for deduplication. Span state seeds lazily from the store on
// first access, so a run only reads state for employees that punched.
//
// RunState is run-scoped and not safe for concurrent use; one run owns it
// start to finish.
type RunState struct {
	employees map[int64]*employeeState
}

type employeeState struct {
	open       *punch.AttendanceSpan
	openSeeded bool

	lastOut       *time.Time
	lastOutSeeded bool

	lastSeen map[punch.Side]time.Time
}

// NewRunState returns empty state for a fresh run.
func NewRunState() *RunState {
	return &RunState{employees: make(map[int64]*employeeState)}
}

func (rs *RunState) employee(id int64) *employeeState {
	st, ok := rs.employees[id]
	if !ok {
		st = &employeeState{lastSeen: make(map[punch.Side]time.Time)}
		rs.employees[id] = st
	}
	return st
}

// OpenSpan returns the employee's tracked open span, seeding it from the
// store on first access. Returns nil when the employee has none.
func (rs *RunState) OpenSpan(ctx context.Context, spans SpanStore, employeeID int64) (*punch.AttendanceSpan, error) {
	st := rs.employee(employeeID)
	if !st.openSeeded {
		open, err := spans.FindOpenSpan(ctx, employeeID)
		if err != nil {
			return nil, err
		}
		st.open = open
		st.openSeeded = true
	}
	return st.open, nil
}

// SetOpenSpan replaces the tracked open span. Pass nil after closing or
// deleting it.
func (rs *RunState) SetOpenSpan(employeeID int64, span *punch.AttendanceSpan) {
	st := rs.employee(employeeID)
	st.open = span
	st.openSeeded = true
}

// LastCheckout returns the employee's most recent closed checkout time,
// seeding it from the store on first access. Returns nil when no span has
// closed yet.
func (rs *RunState) LastCheckout(ctx context.Context, spans SpanStore, employeeID int64) (*time.Time, error) {
	st := rs.employee(employeeID)
	if !st.lastOutSeeded {
		closed, err := spans.FindLatestClosedSpan(ctx, employeeID)
		if err != nil {
			return nil, err
		}
		if closed != nil {
			st.lastOut = closed.CheckOut
		}
		st.lastOutSeeded = true
	}
	return st.lastOut, nil
}

// SetLastCheckout records a checkout just written.
func (rs *RunState) SetLastCheckout(employeeID int64, ts time.Time) {
	st := rs.employee(employeeID)
	st.lastOut = &ts
	st.lastOutSeeded = true
}

// InvalidateLastCheckout drops the cached checkout so the next read goes
// back to the store. Called after deleting a closed span, which may have
// been the one the cache was built from.
func (rs *RunState) InvalidateLastCheckout(employeeID int64) {
	st := rs.employee(employeeID)
	st.lastOut = nil
	st.lastOutSeeded = false
}

// LastSeen returns the most recent punch recorded for the employee on the
// given side, and whether one exists.
func (rs *RunState) LastSeen(employeeID int64, side punch.Side) (time.Time, bool) {
	ts, ok := rs.employee(employeeID).lastSeen[side]
	return ts, ok
}

// NoteSeen records a punch as the side's most recent, kept or not.
// Updating on suppressed punches is what makes bursts collapse as a
// chain instead of re-qualifying every Grace seconds.
func (rs *RunState) NoteSeen(employeeID int64, side punch.Side, ts time.Time) {
	rs.employee(employeeID).lastSeen[side] = ts
}
