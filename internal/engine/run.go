package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/rida-louchachha/punchsync/internal/device"
	"github.com/rida-louchachha/punchsync/internal/punch"
)

// Runner drives sync runs: one device, one run at a time, start to
// finish. Construct with New and reuse across runs; per-run state is
// created fresh inside Run.
type Runner struct {
	stores  Stores
	adapter device.Adapter
	profile *punch.VendorProfile
	cfg     Config
	clock   Clock
	runIDs  RunIDGenerator
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithConfig replaces the default tuning knobs.
func WithConfig(cfg Config) RunnerOption {
	return func(r *Runner) {
		r.cfg = cfg.withDefaults()
	}
}

// WithProfile sets the vendor profile used for side classification,
// method labels, and the device timezone.
func WithProfile(p *punch.VendorProfile) RunnerOption {
	return func(r *Runner) {
		if p != nil {
			r.profile = p
		}
	}
}

// WithClock substitutes the time source. Tests pass a frozen clock so
// future-punch validation and link stamps are reproducible.
func WithClock(c Clock) RunnerOption {
	return func(r *Runner) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithRunIDGenerator substitutes the run ID source. Tests pass a
// FixedGenerator so reports compare exactly.
func WithRunIDGenerator(g RunIDGenerator) RunnerOption {
	return func(r *Runner) {
		if g != nil {
			r.runIDs = g
		}
	}
}

// New creates a Runner over the given stores and device adapter. Without
// options it uses the built-in vendor profile, default tuning knobs, the
// system clock, and UUIDv7 run IDs.
func New(stores Stores, adapter device.Adapter, opts ...RunnerOption) *Runner {
	r := &Runner{
		stores:  stores,
		adapter: adapter,
		profile: punch.DefaultProfile(),
		cfg:     DefaultConfig(),
		clock:   SystemClock{},
		runIDs:  UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// syncPunch is a raw punch after timezone conversion, ready for the
// deterministic sort.
type syncPunch struct {
	deviceUserID string
	ts           time.Time
	code         int
	method       int
}

// Run executes one sync run: freeze the device, fetch roster and backlog,
// then resolve, audit, dedup, and reconcile each punch in deterministic
// order. The returned report is never nil; on error its status is
// failure and rows committed before the failure remain in place.
func (r *Runner) Run(ctx context.Context, devCfg device.Config) (report *Report, retErr error) {
	report = &Report{
		RunID:    r.runIDs.Generate(),
		DeviceID: devCfg.DeviceID,
	}
	defer func() {
		if retErr != nil {
			report.Status = StatusFailure
			slog.Error("sync run failed", "run_id", report.RunID, "device_id", report.DeviceID, "error", retErr)
		}
	}()

	slog.Info("sync run starting", "run_id", report.RunID, "device_id", devCfg.DeviceID)

	conn, err := r.adapter.Connect(ctx, devCfg)
	if err != nil {
		return report, fmt.Errorf("connect: %w", err)
	}
	defer func() {
		if err := conn.EnableWrites(); err != nil {
			slog.Warn("re-enabling device writes failed", "run_id", report.RunID, "error", err)
		}
		if err := conn.Close(); err != nil {
			slog.Warn("closing device connection failed", "run_id", report.RunID, "error", err)
		}
	}()

	// The device stays frozen for the whole read so punches arriving
	// mid-run cannot race the fetch.
	if err := conn.DisableWrites(); err != nil {
		return report, fmt.Errorf("freezing device: %w", err)
	}

	users, err := conn.FetchUsers()
	if err != nil {
		return report, fmt.Errorf("fetching device users: %w", err)
	}
	report.UsersSeen = len(users)

	raw, err := conn.FetchRawPunches()
	if err != nil {
		return report, fmt.Errorf("fetching punches: %w", err)
	}
	report.Fetched = len(raw)

	mode, err := DecideMode(ctx, r.stores.Identity, r.cfg)
	if err != nil {
		return report, err
	}
	report.Mode = mode.String()
	slog.Debug("run mode decided", "run_id", report.RunID, "mode", report.Mode)

	loc, err := r.location()
	if err != nil {
		return report, fmt.Errorf("resolving device timezone: %w", err)
	}

	if err := r.observeRoster(ctx, devCfg.DeviceID, users); err != nil {
		return report, err
	}

	batch := sortPunches(raw, loc)
	resolver := newResolver(r.stores.Identity, r.stores.Links, mode, r.cfg.Company, devCfg.DeviceID, users)
	state := NewRunState()
	dedup := Deduplicator{Grace: r.cfg.DedupGrace}
	reconciler := NewReconciler(r.stores.Spans, state, r.cfg)
	now := r.clock.Now()
	futureNoted := make(map[string]bool)

	for _, p := range batch {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if p.ts.After(now) {
			verr := &ValidationError{DeviceUserID: p.deviceUserID, PunchingTime: p.ts, Reason: "timestamp in the future"}
			slog.Warn("rejecting punch", "run_id", report.RunID,
				"device_user_id", p.deviceUserID, "punching_time", p.ts, "reason", verr.Reason)
			report.Skipped++
			if !futureNoted[p.deviceUserID] {
				report.note(verr.Error())
				futureNoted[p.deviceUserID] = true
			}
			continue
		}

		res, fresh, err := resolver.resolve(ctx, p.deviceUserID)
		if err != nil {
			return report, fmt.Errorf("resolving device user %s: %w", p.deviceUserID, err)
		}
		if res.skipped != "" {
			report.Skipped++
			if fresh {
				report.note(res.skipped)
			}
			continue
		}
		if fresh {
			if res.created {
				report.IdentitiesCreated++
			}
			if res.linked {
				report.IdentitiesLinked++
			}
		}

		// Audit before dedup: every resolved read reaches the raw log,
		// duplicates included.
		entry := punch.RawLogEntry{
			EmployeeID:   res.employee.ID,
			DeviceUserID: punch.NormalizeBioID(p.deviceUserID),
			PunchingTime: p.ts,
			Method:       p.method,
			Code:         p.code,
			DeviceID:     devCfg.DeviceID,
		}
		if err := r.stores.RawLog.UpsertRawLog(ctx, entry); err != nil {
			return report, fmt.Errorf("recording raw punch: %w", err)
		}
		report.Upserted++

		side := r.profile.Side(p.code)
		if side == punch.SideNone {
			continue
		}
		if !dedup.Keep(state, res.employee.ID, side, p.ts) {
			report.Deduplicated++
			continue
		}

		action, err := reconciler.Apply(ctx, res.employee.ID, side, p.ts)
		if err != nil {
			return report, fmt.Errorf("reconciling employee %d: %w", res.employee.ID, err)
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
			slog.Debug("dropping stray checkout", "run_id", report.RunID,
				"employee_id", res.employee.ID, "punching_time", p.ts)
		}
	}

	report.finish()
	slog.Info("sync run finished",
		"run_id", report.RunID,
		"status", string(report.Status),
		"mode", report.Mode,
		"fetched", report.Fetched,
		"upserted", report.Upserted,
		"spans_created", report.SpansCreated,
		"spans_closed", report.SpansClosed,
		"spans_discarded", report.SpansDiscarded,
		"deduplicated", report.Deduplicated,
		"strays_dropped", report.StraysDropped,
		"skipped", report.Skipped,
	)
	return report, nil
}

// location picks the timezone device-local timestamps are read in: the
// profile's zone when set, otherwise the configured fallback.
func (r *Runner) location() (*time.Location, error) {
	if r.profile.Timezone == "" && r.cfg.DefaultTimezone != "" {
		loc, err := time.LoadLocation(r.cfg.DefaultTimezone)
		if err != nil {
			return nil, fmt.Errorf("loading timezone %q: %w", r.cfg.DefaultTimezone, err)
		}
		return loc, nil
	}
	return r.profile.Location()
}

// observeRoster stamps a link row for every user the device reported.
// Names and employee bindings already on record are preserved; only the
// last-seen time always moves forward.
func (r *Runner) observeRoster(ctx context.Context, deviceID string, users []punch.DeviceUser) error {
	now := r.clock.Now()
	for _, u := range users {
		id := punch.NormalizeBioID(u.DeviceUserID)
		if id == "" {
			continue
		}
		link := punch.DeviceUserLink{
			DeviceID:     deviceID,
			DeviceUserID: id,
			Name:         strings.TrimSpace(u.Name),
			LastSeenAt:   &now,
		}
		if err := r.stores.Links.UpsertLink(ctx, link); err != nil {
			return fmt.Errorf("recording device user %s: %w", id, err)
		}
	}
	return nil
}

// sortPunches converts device-local timestamps to UTC and orders the
// batch by (timestamp, device user, code). Devices return punches in
// arbitrary order; the full key makes replays byte-for-byte stable even
// when two users punch in the same second.
func sortPunches(raw []punch.RawPunch, loc *time.Location) []syncPunch {
	batch := make([]syncPunch, 0, len(raw))
	for _, p := range raw {
		batch = append(batch, syncPunch{
			deviceUserID: p.DeviceUserID,
			ts:           punch.ToUTC(p.Timestamp, loc),
			code:         p.Code,
			method:       p.Method,
		})
	}
	sort.Slice(batch, func(i, j int) bool {
		a, b := batch[i], batch[j]
		if !a.ts.Equal(b.ts) {
			return a.ts.Before(b.ts)
		}
		if a.deviceUserID != b.deviceUserID {
			return a.deviceUserID < b.deviceUserID
		}
		return a.code < b.code
	})
	return batch
}
