package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// scenarioTimeFormat is the timestamp form used throughout scenario
// files, identical to the store's persisted form.
const scenarioTimeFormat = "2006-01-02 15:04:05"

// Scenario scripts one sync run: the device roster and punch backlog,
// the pre-existing ledger, and the expected outcome.
type Scenario struct {
	// Name uniquely identifies this scenario; golden files are keyed
	// by it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Device is the device ID the run is attributed to. Defaults to
	// "dev-1".
	Device string `yaml:"device,omitempty"`

	// Now freezes the clock for the run. Required; punches after this
	// instant are rejected as future reads.
	Now string `yaml:"now"`

	// Company scopes the employee registry. Empty means the single
	// unscoped registry.
	Company string `yaml:"company,omitempty"`

	// Strict aborts the run on the first unresolved device user.
	Strict bool `yaml:"strict,omitempty"`

	// Config overrides individual tuning knobs. Omitted knobs keep
	// their defaults.
	Config *ConfigSpec `yaml:"config,omitempty"`

	// Profile overrides the vendor profile. Omitted fields keep the
	// scenario defaults: UTC, in codes {0,3,4}, out codes {1,2,5}.
	Profile *ProfileSpec `yaml:"profile,omitempty"`

	// Employees seeds the registry before the run.
	Employees []EmployeeSeed `yaml:"employees,omitempty"`

	// Spans seeds the span ledger before the run, as left behind by
	// earlier syncs. Each entry names a seeded employee.
	Spans []SpanSeed `yaml:"spans,omitempty"`

	// Users is the device's enrolled roster.
	Users []UserSpec `yaml:"users,omitempty"`

	// Punches is the device's backlog, in any order; the run sorts it.
	Punches []PunchSpec `yaml:"punches,omitempty"`

	// Rerun executes the sync twice over the same backlog. The expect
	// block then describes the second run.
	Rerun bool `yaml:"rerun,omitempty"`

	// Rebuild replays the raw log from scratch after the run and fails
	// the scenario if the rebuilt spans differ from the synced ones.
	Rebuild bool `yaml:"rebuild,omitempty"`

	// Expect describes the required outcome.
	Expect Expect `yaml:"expect"`
}

// ConfigSpec overrides the reconciliation tuning knobs. Values are Go
// duration strings ("5s", "1m30s").
type ConfigSpec struct {
	DedupGrace      string `yaml:"dedup_grace,omitempty"`
	CloseCooldown   string `yaml:"close_cooldown,omitempty"`
	MinSpanDuration string `yaml:"min_span_duration,omitempty"`
}

// ProfileSpec overrides the vendor profile for the scenario.
type ProfileSpec struct {
	Timezone string `yaml:"timezone,omitempty"`
	In       []int  `yaml:"in,omitempty"`
	Out      []int  `yaml:"out,omitempty"`
}

// EmployeeSeed is one registry row created before the run.
type EmployeeSeed struct {
	Name     string `yaml:"name"`
	DeviceID string `yaml:"device_user_id,omitempty"`
}

// SpanSeed is one pre-existing attendance span. An empty out leaves the
// span open.
type SpanSeed struct {
	Employee string `yaml:"employee"`
	In       string `yaml:"in"`
	Out      string `yaml:"out,omitempty"`
}

// UserSpec is one enrolled device user.
type UserSpec struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name,omitempty"`
}

// PunchSpec is one raw device read. At is device-local time in the
// profile's timezone.
type PunchSpec struct {
	User   string `yaml:"user"`
	At     string `yaml:"at"`
	Code   int    `yaml:"code"`
	Method int    `yaml:"method,omitempty"`
}

// Expect describes the required outcome of the scenario. Every field is
// optional; omitted fields are not checked. Status, mode, counters, and
// notes refer to the last executed run.
type Expect struct {
	// Status is the run status: success, partial, or failure.
	Status string `yaml:"status,omitempty"`

	// Mode is the resolution mode the run decided on: normal,
	// bootstrap, or strict.
	Mode string `yaml:"mode,omitempty"`

	// Error is a substring the run error must contain. Set it for
	// scenarios where the run must fail; leave it empty to require the
	// run to complete.
	Error string `yaml:"error,omitempty"`

	// Counters is a subset match on the report counters, keyed by
	// their JSON names ("spans_created", "deduplicated", ...).
	Counters map[string]int `yaml:"counters,omitempty"`

	// Notes are substrings that must each appear in the report's
	// recovered-problem notes.
	Notes []string `yaml:"notes,omitempty"`

	// RawRows is the exact audit row count after the run.
	RawRows *int `yaml:"raw_rows,omitempty"`

	// Spans is the complete expected span set, per employee: an
	// employee named here must hold exactly these spans, in order.
	// Employees not named are left unchecked.
	Spans []SpanExpect `yaml:"spans,omitempty"`

	// NoSpans names employees that must exist but hold no spans.
	NoSpans []string `yaml:"no_spans,omitempty"`

	// Employees checks registry rows: the named employee must exist
	// exactly once and, when device_user_id is set, hold that binding.
	Employees []EmployeeExpect `yaml:"employees,omitempty"`

	// Absent names that must not match any employee after the run.
	Absent []string `yaml:"absent,omitempty"`
}

// SpanExpect is one expected attendance span, UTC. An empty out means
// the span must still be open.
type SpanExpect struct {
	Employee string `yaml:"employee"`
	In       string `yaml:"in"`
	Out      string `yaml:"out,omitempty"`
}

// EmployeeExpect is one expected registry row.
type EmployeeExpect struct {
	Name     string `yaml:"name"`
	DeviceID string `yaml:"device_user_id,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so a typo fails loudly instead of silently not asserting.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks required fields and every embedded timestamp
// and duration, so malformed scenarios fail at load instead of half-way
// through a run.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Now == "" {
		return fmt.Errorf("now is required")
	}
	if _, err := parseScenarioTime(s.Now); err != nil {
		return fmt.Errorf("now: %w", err)
	}
	if len(s.Users) == 0 && len(s.Employees) == 0 {
		return fmt.Errorf("at least one of users or employees is required")
	}

	if s.Config != nil {
		for _, knob := range []struct{ name, value string }{
			{"dedup_grace", s.Config.DedupGrace},
			{"close_cooldown", s.Config.CloseCooldown},
			{"min_span_duration", s.Config.MinSpanDuration},
		} {
			if knob.value == "" {
				continue
			}
			if _, err := time.ParseDuration(knob.value); err != nil {
				return fmt.Errorf("config.%s: %w", knob.name, err)
			}
		}
	}

	seeded := make(map[string]bool, len(s.Employees))
	for i, e := range s.Employees {
		if e.Name == "" {
			return fmt.Errorf("employees[%d]: name is required", i)
		}
		seeded[e.Name] = true
	}

	for i, sp := range s.Spans {
		if sp.Employee == "" {
			return fmt.Errorf("spans[%d]: employee is required", i)
		}
		if !seeded[sp.Employee] {
			return fmt.Errorf("spans[%d]: employee %q is not seeded", i, sp.Employee)
		}
		if _, err := parseScenarioTime(sp.In); err != nil {
			return fmt.Errorf("spans[%d].in: %w", i, err)
		}
		if sp.Out != "" {
			if _, err := parseScenarioTime(sp.Out); err != nil {
				return fmt.Errorf("spans[%d].out: %w", i, err)
			}
		}
	}

	for i, u := range s.Users {
		if u.ID == "" {
			return fmt.Errorf("users[%d]: id is required", i)
		}
	}

	for i, p := range s.Punches {
		if p.User == "" {
			return fmt.Errorf("punches[%d]: user is required", i)
		}
		if _, err := parseScenarioTime(p.At); err != nil {
			return fmt.Errorf("punches[%d].at: %w", i, err)
		}
		if p.Code < 0 {
			return fmt.Errorf("punches[%d]: code must be non-negative", i)
		}
	}

	return validateExpect(&s.Expect)
}

func validateExpect(e *Expect) error {
	switch e.Status {
	case "", "success", "partial", "failure":
	default:
		return fmt.Errorf("expect.status: unknown status %q", e.Status)
	}
	switch e.Mode {
	case "", "normal", "bootstrap", "strict":
	default:
		return fmt.Errorf("expect.mode: unknown mode %q", e.Mode)
	}

	for key := range e.Counters {
		if !knownCounter(key) {
			return fmt.Errorf("expect.counters: unknown counter %q", key)
		}
	}

	for i, sp := range e.Spans {
		if sp.Employee == "" {
			return fmt.Errorf("expect.spans[%d]: employee is required", i)
		}
		if _, err := parseScenarioTime(sp.In); err != nil {
			return fmt.Errorf("expect.spans[%d].in: %w", i, err)
		}
		if sp.Out != "" {
			if _, err := parseScenarioTime(sp.Out); err != nil {
				return fmt.Errorf("expect.spans[%d].out: %w", i, err)
			}
		}
	}

	for i, emp := range e.Employees {
		if emp.Name == "" {
			return fmt.Errorf("expect.employees[%d]: name is required", i)
		}
	}

	return nil
}

// parseScenarioTime reads a scenario timestamp as a UTC instant.
func parseScenarioTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(scenarioTimeFormat, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed time %q (want %q)", s, scenarioTimeFormat)
	}
	return t, nil
}
