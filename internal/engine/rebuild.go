package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rida-louchachha/punchsync/internal/punch"
)

// RebuildReport summarizes a span rebuild from the raw log.
type RebuildReport struct {
	DeviceID string `json:"device_id,omitempty"`

	SpansWiped int `json:"spans_wiped"`
	Replayed   int `json:"replayed"`

	SpansCreated   int `json:"spans_created"`
	SpansClosed    int `json:"spans_closed"`
	SpansDiscarded int `json:"spans_discarded"`
	Deduplicated   int `json:"deduplicated"`
	StraysDropped  int `json:"strays_dropped"`
}

// Rebuild reconstructs attendance spans from the raw audit log: wipe,
// then replay every logged punch through dedup and reconciliation in the
// order the devices produced them. The pipeline is deterministic, so the
// result matches what the original runs built.
//
// A device ID scopes the wipe to employees that punched on that device.
// The replay always streams the full log: an employee who punches on two
// devices gets both devices' punches back, and rows whose spans survived
// the wipe replay as no-ops.
func Rebuild(ctx context.Context, stores Stores, profile *punch.VendorProfile, cfg Config, deviceID string) (*RebuildReport, error) {
	if profile == nil {
		profile = punch.DefaultProfile()
	}
	cfg = cfg.withDefaults()
	report := &RebuildReport{DeviceID: deviceID}

	slog.Info("span rebuild starting", "device_id", deviceID)

	wiped, err := stores.Spans.WipeSpans(ctx, deviceID)
	if err != nil {
		return report, fmt.Errorf("wiping spans: %w", err)
	}
	report.SpansWiped = int(wiped)

	entries, err := stores.RawLog.ListRawLog(ctx, "")
	if err != nil {
		return report, fmt.Errorf("reading raw log: %w", err)
	}

	state := NewRunState()
	dedup := Deduplicator{Grace: cfg.DedupGrace}
	reconciler := NewReconciler(stores.Spans, state, cfg)

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Replayed++

		side := profile.Side(e.Code)
		if side == punch.SideNone {
			continue
		}
		if !dedup.Keep(state, e.EmployeeID, side, e.PunchingTime) {
			report.Deduplicated++
			continue
		}

		action, err := reconciler.Apply(ctx, e.EmployeeID, side, e.PunchingTime)
		if err != nil {
			return report, fmt.Errorf("replaying employee %d: %w", e.EmployeeID, err)
		}
		switch action {
		case ActionCreated:
			report.SpansCreated++
		case ActionClosed:
			report.SpansClosed++
		case ActionDiscarded:
			report.SpansDiscarded++
		case ActionStray:
			report.StraysDropped++
		}
	}

	slog.Info("span rebuild finished",
		"device_id", deviceID,
		"spans_wiped", report.SpansWiped,
		"replayed", report.Replayed,
		"spans_created", report.SpansCreated,
		"spans_closed", report.SpansClosed,
	)
	return report, nil
}
