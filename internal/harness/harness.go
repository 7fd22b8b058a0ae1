package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/rida-louchachha/punchsync/internal/device"
	"github.com/rida-louchachha/punchsync/internal/engine"
	"github.com/rida-louchachha/punchsync/internal/punch"
	"github.com/rida-louchachha/punchsync/internal/store"
	"github.com/rida-louchachha/punchsync/internal/testutil"
)

// Run executes a scenario and returns its result.
//
// Each scenario runs against a fresh in-memory database, a scripted
// device, a clock frozen at the scenario's now, and a fixed run ID
// sequence ("run-1", "run-2"), so two executions produce byte-identical
// results.
//
// The returned error covers harness-level trouble only: a malformed
// scenario or a broken store. A failing sync run is a scenario outcome,
// not an error; it lands in the result and is judged by the expect block.
func Run(scenario *Scenario) (*Result, error) {
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	// The engine logs through the default slog logger; keep scenario
	// runs quiet.
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer slog.SetDefault(prev)

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	now, _ := parseScenarioTime(scenario.Now)

	cfg := scenario.config()
	prof, err := scenario.profile()
	if err != nil {
		return nil, err
	}

	if err := seedLedger(ctx, st, scenario); err != nil {
		return nil, err
	}

	deviceID := scenario.Device
	if deviceID == "" {
		deviceID = "dev-1"
	}

	runner := engine.New(engine.Bundle(st), scriptDevice(scenario),
		engine.WithConfig(cfg),
		engine.WithProfile(prof),
		engine.WithClock(testutil.NewFrozenClock(now)),
		engine.WithRunIDGenerator(engine.NewFixedGenerator("run-1", "run-2")),
	)

	result := NewResult()
	rep, runErr := runner.Run(ctx, device.Config{DeviceID: deviceID})
	result.Reports = append(result.Reports, rep)
	if runErr == nil && scenario.Rerun {
		rep, runErr = runner.Run(ctx, device.Config{DeviceID: deviceID})
		result.Reports = append(result.Reports, rep)
	}
	if runErr != nil {
		result.RunErr = runErr.Error()
	}

	final, err := collectLedger(ctx, st, scenario.Company)
	if err != nil {
		return nil, err
	}
	final.fill(result)

	if scenario.Rebuild && runErr == nil {
		if _, err := engine.Rebuild(ctx, engine.Bundle(st), prof, cfg, ""); err != nil {
			result.AddError(fmt.Sprintf("rebuild failed: %v", err))
		} else {
			rebuilt, err := collectLedger(ctx, st, scenario.Company)
			if err != nil {
				return nil, err
			}
			compareRebuild(result, final, rebuilt)
		}
	}

	for _, msg := range checkInvariants(final, cfg) {
		result.AddError(msg)
	}
	for _, msg := range evaluateExpect(result, scenario) {
		result.AddError(msg)
	}

	return result, nil
}

// config builds the run configuration: the defaults, overridden by the
// scenario's knobs. Durations were validated at load.
func (s *Scenario) config() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.Company = s.Company
	cfg.Strict = s.Strict
	if s.Config == nil {
		return cfg
	}
	if s.Config.DedupGrace != "" {
		cfg.DedupGrace, _ = time.ParseDuration(s.Config.DedupGrace)
	}
	if s.Config.CloseCooldown != "" {
		cfg.CloseCooldown, _ = time.ParseDuration(s.Config.CloseCooldown)
	}
	if s.Config.MinSpanDuration != "" {
		cfg.MinSpanDuration, _ = time.ParseDuration(s.Config.MinSpanDuration)
	}
	return cfg
}

// profile builds the scenario's vendor profile. Scenarios default to UTC
// so expected timestamps read the same as punch timestamps.
func (s *Scenario) profile() (*punch.VendorProfile, error) {
	prof := &punch.VendorProfile{
		Name:     "scenario",
		Timezone: "UTC",
		In:       []int{0, 3, 4},
		Out:      []int{1, 2, 5},
	}
	if s.Profile != nil {
		if s.Profile.Timezone != "" {
			prof.Timezone = s.Profile.Timezone
		}
		if len(s.Profile.In) > 0 {
			prof.In = s.Profile.In
		}
		if len(s.Profile.Out) > 0 {
			prof.Out = s.Profile.Out
		}
	}
	if err := prof.Validate(); err != nil {
		return nil, fmt.Errorf("scenario profile: %w", err)
	}
	return prof, nil
}

// seedLedger creates the scenario's pre-existing employees and spans.
func seedLedger(ctx context.Context, st *store.Store, s *Scenario) error {
	ids := make(map[string]int64, len(s.Employees))
	for _, e := range s.Employees {
		id, err := st.CreateEmployee(ctx, punch.Employee{
			FullName:     e.Name,
			DeviceUserID: e.DeviceID,
			Company:      s.Company,
		})
		if err != nil {
			return fmt.Errorf("seeding employee %q: %w", e.Name, err)
		}
		ids[e.Name] = id
	}

	for _, sp := range s.Spans {
		in, _ := parseScenarioTime(sp.In)
		spanID, err := st.CreateSpan(ctx, ids[sp.Employee], in)
		if err != nil {
			return fmt.Errorf("seeding span for %q: %w", sp.Employee, err)
		}
		if sp.Out != "" {
			out, _ := parseScenarioTime(sp.Out)
			if err := st.CloseSpan(ctx, spanID, out); err != nil {
				return fmt.Errorf("seeding span for %q: %w", sp.Employee, err)
			}
		}
	}
	return nil
}

// scriptDevice builds the scripted device from the scenario's roster and
// backlog.
func scriptDevice(s *Scenario) *testutil.ScriptedDevice {
	dev := &testutil.ScriptedDevice{}
	for _, u := range s.Users {
		dev.Users = append(dev.Users, punch.DeviceUser{
			DeviceUserID: u.ID,
			Name:         u.Name,
		})
	}
	for _, p := range s.Punches {
		at, _ := parseScenarioTime(p.At)
		dev.Punches = append(dev.Punches, punch.RawPunch{
			DeviceUserID: p.User,
			Timestamp:    at,
			Code:         p.Code,
			Method:       p.Method,
		})
	}
	return dev
}

// ledger is the database state collected after the run, keyed for both
// expectation checks and invariant checks.
type ledger struct {
	employees []punch.Employee
	spans     map[int64][]punch.AttendanceSpan
	rawRows   int64
}

// collectLedger reads back everything a scenario can assert on.
func collectLedger(ctx context.Context, st *store.Store, company string) (*ledger, error) {
	employees, err := st.ListEmployees(ctx, company)
	if err != nil {
		return nil, err
	}
	l := &ledger{
		employees: employees,
		spans:     make(map[int64][]punch.AttendanceSpan, len(employees)),
	}
	for _, e := range employees {
		spans, err := st.ListSpans(ctx, e.ID)
		if err != nil {
			return nil, err
		}
		l.spans[e.ID] = spans
	}
	l.rawRows, err = st.CountRawLog(ctx, "")
	if err != nil {
		return nil, err
	}
	return l, nil
}

// fill renders the ledger into the result's flat rows.
func (l *ledger) fill(r *Result) {
	r.RawRows = l.rawRows
	for _, e := range l.employees {
		r.Employees = append(r.Employees, EmployeeRow{Name: e.FullName, DeviceID: e.DeviceUserID})
		for _, sp := range l.spans[e.ID] {
			r.Spans = append(r.Spans, spanRow(e.FullName, sp))
		}
	}
}

func spanRow(name string, sp punch.AttendanceSpan) SpanRow {
	row := SpanRow{Employee: name, CheckIn: sp.CheckIn.UTC().Format(scenarioTimeFormat)}
	if sp.CheckOut != nil {
		row.CheckOut = sp.CheckOut.UTC().Format(scenarioTimeFormat)
	}
	return row
}

// flatRows renders the ledger's spans alone, for rebuild comparison.
func (l *ledger) flatRows() []SpanRow {
	rows := []SpanRow{}
	for _, e := range l.employees {
		for _, sp := range l.spans[e.ID] {
			rows = append(rows, spanRow(e.FullName, sp))
		}
	}
	return rows
}

// compareRebuild fails the result when replaying the raw log produced a
// different span set than the original runs.
func compareRebuild(r *Result, synced, rebuilt *ledger) {
	a, b := synced.flatRows(), rebuilt.flatRows()
	if len(a) != len(b) {
		r.AddError(fmt.Sprintf("rebuild diverged: sync left %d spans, replay left %d", len(a), len(b)))
		return
	}
	for i := range a {
		if a[i] != b[i] {
			r.AddError(fmt.Sprintf("rebuild diverged at span %d: sync %v, replay %v", i, a[i], b[i]))
			return
		}
	}
}

// checkInvariants validates the ledger properties every scenario must
// hold regardless of its expect block: at most one open span per
// employee, no overlap, and no closed span under the minimum duration.
func checkInvariants(l *ledger, cfg engine.Config) []string {
	var msgs []string
	for _, e := range l.employees {
		spans := l.spans[e.ID]
		open := 0
		for i, sp := range spans {
			if sp.Open() {
				open++
				continue
			}
			if sp.Duration() < cfg.MinSpanDuration {
				msgs = append(msgs, fmt.Sprintf("invariant: %s holds a %s span at %s, under the %s minimum",
					e.FullName, sp.Duration(), sp.CheckIn.Format(scenarioTimeFormat), cfg.MinSpanDuration))
			}
			if i+1 < len(spans) {
				next := spans[i+1]
				if next.CheckIn.Before(*sp.CheckOut) {
					msgs = append(msgs, fmt.Sprintf("invariant: %s has overlapping spans at %s and %s",
						e.FullName, sp.CheckIn.Format(scenarioTimeFormat), next.CheckIn.Format(scenarioTimeFormat)))
				}
			}
		}
		if open > 1 {
			msgs = append(msgs, fmt.Sprintf("invariant: %s holds %d open spans", e.FullName, open))
		}
		if open == 1 && len(spans) > 0 && !spans[len(spans)-1].Open() {
			msgs = append(msgs, fmt.Sprintf("invariant: %s has a closed span after an open one", e.FullName))
		}
	}
	sort.Strings(msgs)
	return msgs
}
