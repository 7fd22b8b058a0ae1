package engine

import (
	"context"
	"time"

	"github.com/rida-louchachha/punchsync/internal/punch"
)

// Action classifies what reconciliation did with one punch.
type Action int

const (
	// ActionNone means the punch was already represented or ignored.
	ActionNone Action = iota

	// ActionCreated means a new span opened at the punch.
	ActionCreated

	// ActionClosed means a span's checkout was written or moved later.
	ActionClosed

	// ActionDiscarded means the affected span was deleted for falling
	// under the minimum duration.
	ActionDiscarded

	// ActionStray means a checkout had nothing to close and was dropped.
	ActionStray
)

// Reconciler applies deduplicated, chronologically ordered punches to the
// span ledger one at a time. Per-employee tracking lives in the RunState;
// writes go through the SpanStore.
type Reconciler struct {
	spans SpanStore
	state *RunState
	cfg   Config
}

// NewReconciler builds a reconciler over the given span store and run
// state. Zero-valued config knobs fall back to the defaults.
func NewReconciler(spans SpanStore, state *RunState, cfg Config) *Reconciler {
	return &Reconciler{spans: spans, state: state, cfg: cfg.withDefaults()}
}

// Apply routes one punch by side. Punches with no side mapping are
// ignored.
func (r *Reconciler) Apply(ctx context.Context, employeeID int64, side punch.Side, ts time.Time) (Action, error) {
	switch side {
	case punch.SideIn:
		return r.applyIn(ctx, employeeID, ts)
	case punch.SideOut:
		return r.applyOut(ctx, employeeID, ts)
	default:
		return ActionNone, nil
	}
}

// applyIn handles a check-in, first match wins:
//
//  1. an open span is tracked: the check-in folds into it, whole
//  2. a persisted span already covers the instant: already represented
//  3. the instant falls inside the cooldown after the last checkout:
//     bounce, ignored
//  4. a span's check-in lies within the grace window of the instant:
//     clock jitter, adopt that span
//  5. otherwise a new open span starts at the instant
//
// A tracked open span is never split: a late or duplicate check-in while
// one is open is a no-op even when it predates the span's check-in.
func (r *Reconciler) applyIn(ctx context.Context, employeeID int64, ts time.Time) (Action, error) {
	open, err := r.state.OpenSpan(ctx, r.spans, employeeID)
	if err != nil {
		return ActionNone, err
	}
	if open != nil {
		return ActionNone, nil
	}

	covering, err := r.spans.FindCoveringSpan(ctx, employeeID, ts)
	if err != nil {
		return ActionNone, err
	}
	if covering != nil {
		if covering.Open() {
			r.state.SetOpenSpan(employeeID, covering)
		}
		return ActionNone, nil
	}

	lastOut, err := r.state.LastCheckout(ctx, r.spans, employeeID)
	if err != nil {
		return ActionNone, err
	}
	if lastOut != nil && !ts.Before(*lastOut) && ts.Sub(*lastOut) <= r.cfg.CloseCooldown {
		return ActionNone, nil
	}

	near, err := r.spans.FindSpanStartingNear(ctx, employeeID,
		ts.Add(-r.cfg.DedupGrace), ts.Add(r.cfg.DedupGrace))
	if err != nil {
		return ActionNone, err
	}
	if near != nil {
		if near.Open() {
			r.state.SetOpenSpan(employeeID, near)
		}
		return ActionNone, nil
	}

	id, err := r.spans.CreateSpan(ctx, employeeID, ts)
	if err != nil {
		return ActionNone, err
	}
	r.state.SetOpenSpan(employeeID, &punch.AttendanceSpan{ID: id, EmployeeID: employeeID, CheckIn: ts})
	return ActionCreated, nil
}

// applyOut handles a checkout.
//
// With no open span tracked, the candidate is the latest same-day span
// starting at or before ts. A candidate whose checkout is already at or
// past ts leaves everything untouched; replaying a checkout is therefore
// a no-op, and an extension can never stretch into a later span. A
// candidate checked out before ts gets its checkout moved to ts. With no
// candidate at all the checkout is stray and dropped rather than paired
// into a fabricated zero-length span.
//
// With an open span tracked, the checkout lands at max(ts, checkIn + 1s).
// Either way, a result shorter than MinSpanDuration deletes the span
// instead of persisting it.
func (r *Reconciler) applyOut(ctx context.Context, employeeID int64, ts time.Time) (Action, error) {
	open, err := r.state.OpenSpan(ctx, r.spans, employeeID)
	if err != nil {
		return ActionNone, err
	}

	if open == nil {
		dayStart, dayEnd := punch.DayWindow(ts)
		cand, err := r.spans.FindExtendableSpan(ctx, employeeID, ts, dayStart, dayEnd)
		if err != nil {
			return ActionNone, err
		}
		if cand == nil {
			return ActionStray, nil
		}
		if cand.CheckOut != nil && !cand.CheckOut.Before(ts) {
			return ActionNone, nil
		}
		return r.settle(ctx, employeeID, cand, clampOut(ts, cand.CheckIn))
	}

	action, err := r.settle(ctx, employeeID, open, clampOut(ts, open.CheckIn))
	if err != nil {
		return action, err
	}
	r.state.SetOpenSpan(employeeID, nil)
	return action, nil
}

// clampOut keeps a checkout at least one second after the check-in.
func clampOut(ts, checkIn time.Time) time.Time {
	if floor := checkIn.Add(time.Second); ts.Before(floor) {
		return floor
	}
	return ts
}

// settle writes or discards the span's checkout. Deleting a span also
// drops the cached last-checkout, which may have been read from it.
func (r *Reconciler) settle(ctx context.Context, employeeID int64, span *punch.AttendanceSpan, out time.Time) (Action, error) {
	if out.Sub(span.CheckIn) < r.cfg.MinSpanDuration {
		if err := r.spans.DeleteSpan(ctx, span.ID); err != nil {
			return ActionNone, err
		}
		r.state.InvalidateLastCheckout(employeeID)
		return ActionDiscarded, nil
	}
	if err := r.spans.CloseSpan(ctx, span.ID, out); err != nil {
		return ActionNone, err
	}
	r.state.SetLastCheckout(employeeID, out)
	return ActionClosed, nil
}
