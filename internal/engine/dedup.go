package engine

import (
	"time"

	"github.com/rida-louchachha/punchsync/internal/punch"
)

// Deduplicator collapses bursts of same-side punches. Readers double-fire
// when a finger rests on the sensor, producing several records seconds
// apart for one human action; only the first of each burst should reach
// reconciliation.
//
// The filter is streaming: input must already be sorted ascending, and
// the only state kept is the last-seen timestamp per (employee, side) in
// the RunState.
type Deduplicator struct {
	// Grace is the suppression window. A punch within Grace of the
	// previous same-side punch is dropped.
	Grace time.Duration
}

// Keep reports whether the punch survives deduplication and records it as
// the side's most recent punch either way. A punch exactly Grace after
// its predecessor is still suppressed; the first strictly beyond the
// window survives.
func (d Deduplicator) Keep(state *RunState, employeeID int64, side punch.Side, ts time.Time) bool {
	prev, ok := state.LastSeen(employeeID, side)
	state.NoteSeen(employeeID, side, ts)
	if !ok {
		return true
	}
	delta := ts.Sub(prev)
	return delta < 0 || delta > d.Grace
}
