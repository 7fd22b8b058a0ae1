package harness

import (
	"github.com/rida-louchachha/punchsync/internal/engine"
)

// SpanRow is one attendance span as collected after the run, with times
// rendered in the scenario format. CheckOut is empty for open spans.
type SpanRow struct {
	Employee string `json:"employee"`
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out,omitempty"`
}

// EmployeeRow is one registry row as collected after the run.
type EmployeeRow struct {
	Name     string `json:"name"`
	DeviceID string `json:"device_user_id,omitempty"`
}

// Result is the outcome of a scenario execution: everything the run
// produced, plus the verdict from checking it against the scenario's
// expectations and the ledger invariants.
type Result struct {
	// Pass indicates overall scenario success.
	Pass bool `json:"pass"`

	// Errors lists every failed expectation and invariant. Empty when
	// Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Reports holds one report per executed run, in order. A rerun
	// scenario has two.
	Reports []*engine.Report `json:"reports"`

	// RunErr is the last run's error message, empty when it completed.
	RunErr string `json:"run_err,omitempty"`

	// Spans is the final span ledger, ordered by employee name then
	// check-in.
	Spans []SpanRow `json:"spans"`

	// Employees is the final registry, ordered by name.
	Employees []EmployeeRow `json:"employees"`

	// RawRows is the audit trail row count.
	RawRows int64 `json:"raw_rows"`
}

// NewResult creates a passing result to accumulate into.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Spans:  []SpanRow{},
		Errors: []string{},
	}
}

// AddError records a failed check and marks the result failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// LastReport returns the report of the last executed run, or nil when no
// run was executed.
func (r *Result) LastReport() *engine.Report {
	if len(r.Reports) == 0 {
		return nil
	}
	return r.Reports[len(r.Reports)-1]
}
