package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarios runs every scenario file under testdata/scenarios. Each
// scenario carries its own expectations; the ledger invariants are
// checked on top regardless.
func TestScenarios(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files, "no scenario files found")

	for _, file := range files {
		file := file
		t.Run(filepath.Base(file), func(t *testing.T) {
			scenario, err := LoadScenario(file)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "scenario failed:\n%v", result.Errors)
		})
	}
}

func TestRun_RerunIsDeterministic(t *testing.T) {
	scenario := &Scenario{
		Name:        "inline_determinism",
		Description: "Two executions of the same scenario produce identical ledgers",
		Now:         "2024-03-10 23:00:00",
		Employees:   []EmployeeSeed{{Name: "Said Bouzit", DeviceID: "7"}},
		Users:       []UserSpec{{ID: "7", Name: "Said Bouzit"}},
		Punches: []PunchSpec{
			{User: "7", At: "2024-03-10 08:00:00", Code: 0},
			{User: "7", At: "2024-03-10 17:00:00", Code: 1},
		},
	}

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, first.Pass)
	assert.Equal(t, first.Spans, second.Spans)
	assert.Equal(t, first.RawRows, second.RawRows)
	assert.Equal(t, first.LastReport(), second.LastReport())
}

func TestRun_InvalidScenarioRejected(t *testing.T) {
	scenario := &Scenario{
		Name:        "missing_now",
		Description: "no clock",
		Users:       []UserSpec{{ID: "7"}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "now is required")
}

func TestRun_FailedExpectationReported(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong_expectation",
		Description: "An expect block that contradicts the outcome fails the result",
		Now:         "2024-03-10 23:00:00",
		Employees:   []EmployeeSeed{{Name: "Said Bouzit", DeviceID: "7"}},
		Users:       []UserSpec{{ID: "7", Name: "Said Bouzit"}},
		Punches: []PunchSpec{
			{User: "7", At: "2024-03-10 08:00:00", Code: 0},
		},
		Expect: Expect{
			Counters: map[string]int{"spans_created": 5},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "spans_created")
}

func TestRun_InvariantViolationSurfaces(t *testing.T) {
	// A seeded ledger that already breaks the minimum-duration invariant
	// is flagged even though the run itself touches nothing.
	scenario := &Scenario{
		Name:        "seeded_short_span",
		Description: "Invariant checks cover seeded state, not only run output",
		Now:         "2024-03-10 23:00:00",
		Employees:   []EmployeeSeed{{Name: "Said Bouzit", DeviceID: "7"}},
		Spans: []SpanSeed{
			{Employee: "Said Bouzit", In: "2024-03-10 08:00:00", Out: "2024-03-10 08:00:05"},
		},
		Users: []UserSpec{{ID: "7", Name: "Said Bouzit"}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "minimum")
}
