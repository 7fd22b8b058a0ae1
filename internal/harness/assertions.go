package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rida-louchachha/punchsync/internal/engine"
)

// AssertionError is one failed expectation, with enough context to read
// the failure without re-running the scenario.
type AssertionError struct {
	Check    string // which expect field failed
	Expected string // human-readable expected outcome
	Actual   string // human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("Assertion failed: %s\n  Expected: %s\n  Actual: %s", e.Check, e.Expected, e.Actual)
}

func fail(check, expectedFormat string, args ...any) *AssertionError {
	return &AssertionError{Check: check, Expected: fmt.Sprintf(expectedFormat, args...)}
}

func (e *AssertionError) actual(format string, args ...any) *AssertionError {
	e.Actual = fmt.Sprintf(format, args...)
	return e
}

// counterValue maps a counter key, as used under expect.counters, to the
// report field it names. Keys are the report's JSON names.
func counterValue(rep *engine.Report, key string) (int, bool) {
	switch key {
	case "users_seen":
		return rep.UsersSeen, true
	case "fetched":
		return rep.Fetched, true
	case "upserted":
		return rep.Upserted, true
	case "spans_created":
		return rep.SpansCreated, true
	case "spans_closed":
		return rep.SpansClosed, true
	case "spans_discarded":
		return rep.SpansDiscarded, true
	case "identities_created":
		return rep.IdentitiesCreated, true
	case "identities_linked":
		return rep.IdentitiesLinked, true
	case "deduplicated":
		return rep.Deduplicated, true
	case "strays_dropped":
		return rep.StraysDropped, true
	case "skipped":
		return rep.Skipped, true
	}
	return 0, false
}

func knownCounter(key string) bool {
	_, ok := counterValue(&engine.Report{}, key)
	return ok
}

// evaluateExpect checks the scenario's expect block against the result
// and returns one message per failed expectation. Status, mode, counters,
// and notes refer to the last executed run.
func evaluateExpect(result *Result, scenario *Scenario) []string {
	var msgs []string
	add := func(err *AssertionError) {
		msgs = append(msgs, err.Error())
	}

	e := &scenario.Expect
	rep := result.LastReport()

	if e.Error != "" {
		switch {
		case result.RunErr == "":
			add(fail("error", "run fails with %q", e.Error).actual("run completed"))
		case !strings.Contains(result.RunErr, e.Error):
			add(fail("error", "run error containing %q", e.Error).actual("%s", result.RunErr))
		}
	} else if result.RunErr != "" {
		add(fail("error", "run completes").actual("run failed: %s", result.RunErr))
	}

	if e.Status != "" && string(rep.Status) != e.Status {
		add(fail("status", "%s", e.Status).actual("%s", rep.Status))
	}
	if e.Mode != "" && rep.Mode != e.Mode {
		add(fail("mode", "%s", e.Mode).actual("%s", rep.Mode))
	}

	for _, key := range sortedKeys(e.Counters) {
		want := e.Counters[key]
		got, _ := counterValue(rep, key)
		if got != want {
			add(fail("counters."+key, "%d", want).actual("%d", got))
		}
	}

	for _, note := range e.Notes {
		if !containsNote(rep.Errors, note) {
			add(fail("notes", "a note containing %q", note).actual("notes %q", rep.Errors))
		}
	}

	if e.RawRows != nil && result.RawRows != int64(*e.RawRows) {
		add(fail("raw_rows", "%d", *e.RawRows).actual("%d", result.RawRows))
	}

	byEmployee := groupSpans(result.Spans)

	for _, name := range expectedSpanEmployees(e.Spans) {
		want := expectedSpansFor(e.Spans, name)
		got := byEmployee[name]
		if len(got) != len(want) {
			add(fail("spans", "%s holds %d spans", name, len(want)).actual("%d spans: %v", len(got), got))
			continue
		}
		for i := range want {
			w := SpanRow{Employee: name, CheckIn: want[i].In, CheckOut: want[i].Out}
			if got[i] != w {
				add(fail("spans", "%s span %d is [%s, %s]", name, i, w.CheckIn, w.CheckOut).
					actual("[%s, %s]", got[i].CheckIn, got[i].CheckOut))
			}
		}
	}

	for _, name := range e.NoSpans {
		if countEmployees(result.Employees, name) == 0 {
			add(fail("no_spans", "employee %q exists", name).actual("not found"))
			continue
		}
		if got := byEmployee[name]; len(got) > 0 {
			add(fail("no_spans", "%s holds no spans", name).actual("%d spans: %v", len(got), got))
		}
	}

	for _, want := range e.Employees {
		n := countEmployees(result.Employees, want.Name)
		if n != 1 {
			add(fail("employees", "exactly one employee named %q", want.Name).actual("%d", n))
			continue
		}
		if want.DeviceID != "" {
			got := deviceIDFor(result.Employees, want.Name)
			if got != want.DeviceID {
				add(fail("employees", "%s bound to device user %s", want.Name, want.DeviceID).actual("%q", got))
			}
		}
	}

	for _, name := range e.Absent {
		if n := countEmployees(result.Employees, name); n != 0 {
			add(fail("absent", "no employee named %q", name).actual("%d", n))
		}
	}

	return msgs
}

// groupSpans buckets result rows by employee, preserving their order.
func groupSpans(rows []SpanRow) map[string][]SpanRow {
	m := make(map[string][]SpanRow)
	for _, r := range rows {
		m[r.Employee] = append(m[r.Employee], r)
	}
	return m
}

// expectedSpanEmployees returns the distinct employees named under
// expect.spans, in first-mention order.
func expectedSpanEmployees(spans []SpanExpect) []string {
	var names []string
	seen := make(map[string]bool)
	for _, sp := range spans {
		if !seen[sp.Employee] {
			seen[sp.Employee] = true
			names = append(names, sp.Employee)
		}
	}
	return names
}

func expectedSpansFor(spans []SpanExpect, name string) []SpanExpect {
	var out []SpanExpect
	for _, sp := range spans {
		if sp.Employee == name {
			out = append(out, sp)
		}
	}
	return out
}

func countEmployees(rows []EmployeeRow, name string) int {
	n := 0
	for _, r := range rows {
		if r.Name == name {
			n++
		}
	}
	return n
}

func deviceIDFor(rows []EmployeeRow, name string) string {
	for _, r := range rows {
		if r.Name == name {
			return r.DeviceID
		}
	}
	return ""
}

func containsNote(notes []string, substr string) bool {
	for _, n := range notes {
		if strings.Contains(n, substr) {
			return true
		}
	}
	return false
}

// sortedKeys keeps counter failures in a deterministic order.
func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
