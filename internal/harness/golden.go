package harness

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/rida-louchachha/punchsync/internal/engine"
)

// Snapshot is the golden form of a scenario outcome: the last run's
// report plus the resulting ledger. Serialized with stable field order
// and sorted rows, so byte comparison is meaningful.
type Snapshot struct {
	Scenario string         `json:"scenario"`
	Report   *engine.Report `json:"report"`
	Spans    []SpanRow      `json:"spans"`
	RawRows  int64          `json:"raw_rows"`
}

// snapshot renders a result for golden comparison.
func snapshot(name string, result *Result) *Snapshot {
	spans := result.Spans
	if spans == nil {
		spans = []SpanRow{}
	}
	return &Snapshot{
		Scenario: name,
		Report:   result.LastReport(),
		Spans:    spans,
		RawRows:  result.RawRows,
	}
}

// MarshalSnapshot serializes a snapshot as indented JSON with a trailing
// newline, the exact bytes golden files hold.
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// The scenario's own expectations and the ledger invariants are still
// enforced; a scenario that fails them fails the test before the golden
// comparison.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	if !result.Pass {
		return fmt.Errorf("scenario %s failed: %v", scenario.Name, result.Errors)
	}

	data, err := MarshalSnapshot(snapshot(scenario.Name, result))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return nil
}
