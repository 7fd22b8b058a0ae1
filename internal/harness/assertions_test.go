package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rida-louchachha/punchsync/internal/engine"
)

func passingResult() *Result {
	r := NewResult()
	r.Reports = []*engine.Report{{
		RunID:        "run-1",
		DeviceID:     "dev-1",
		Mode:         "normal",
		Status:       engine.StatusSuccess,
		Fetched:      2,
		Upserted:     2,
		SpansCreated: 1,
		SpansClosed:  1,
	}}
	r.RawRows = 2
	r.Spans = []SpanRow{
		{Employee: "Said Bouzit", CheckIn: "2024-03-10 08:00:00", CheckOut: "2024-03-10 17:00:00"},
	}
	r.Employees = []EmployeeRow{{Name: "Said Bouzit", DeviceID: "7"}}
	return r
}

func scenarioWith(e Expect) *Scenario {
	return &Scenario{Name: "unit", Description: "unit", Now: "2024-03-10 23:00:00", Expect: e}
}

func TestEvaluateExpect_AllMatch(t *testing.T) {
	two := 2
	msgs := evaluateExpect(passingResult(), scenarioWith(Expect{
		Status:  "success",
		Mode:    "normal",
		RawRows: &two,
		Counters: map[string]int{
			"fetched":       2,
			"spans_created": 1,
			"spans_closed":  1,
		},
		Spans: []SpanExpect{
			{Employee: "Said Bouzit", In: "2024-03-10 08:00:00", Out: "2024-03-10 17:00:00"},
		},
		Employees: []EmployeeExpect{{Name: "Said Bouzit", DeviceID: "7"}},
		Absent:    []string{"Ali"},
	}))
	assert.Empty(t, msgs)
}

func TestEvaluateExpect_CounterMismatch(t *testing.T) {
	msgs := evaluateExpect(passingResult(), scenarioWith(Expect{
		Counters: map[string]int{"spans_created": 3},
	}))
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "counters.spans_created")
	assert.Contains(t, msgs[0], "Expected: 3")
	assert.Contains(t, msgs[0], "Actual: 1")
}

func TestEvaluateExpect_UnexpectedRunError(t *testing.T) {
	r := passingResult()
	r.RunErr = "connect: device unreachable"

	msgs := evaluateExpect(r, scenarioWith(Expect{}))
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "run failed")
}

func TestEvaluateExpect_ExpectedErrorSubstring(t *testing.T) {
	r := passingResult()
	r.RunErr = "resolving device user 9: matches no employee"

	msgs := evaluateExpect(r, scenarioWith(Expect{Error: "matches no employee"}))
	assert.Empty(t, msgs)

	msgs = evaluateExpect(r, scenarioWith(Expect{Error: "timezone"}))
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "timezone")
}

func TestEvaluateExpect_SpanMismatch(t *testing.T) {
	msgs := evaluateExpect(passingResult(), scenarioWith(Expect{
		Spans: []SpanExpect{
			{Employee: "Said Bouzit", In: "2024-03-10 08:00:00"},
		},
	}))
	require.Len(t, msgs, 1)
	// Same count, but the expected span is open and the actual is closed.
	assert.Contains(t, msgs[0], "span 0")
}

func TestEvaluateExpect_NoSpans(t *testing.T) {
	r := passingResult()
	r.Spans = nil

	msgs := evaluateExpect(r, scenarioWith(Expect{NoSpans: []string{"Said Bouzit"}}))
	assert.Empty(t, msgs)

	msgs = evaluateExpect(r, scenarioWith(Expect{NoSpans: []string{"Nobody Here"}}))
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "not found")
}

func TestEvaluateExpect_EmployeeChecks(t *testing.T) {
	msgs := evaluateExpect(passingResult(), scenarioWith(Expect{
		Employees: []EmployeeExpect{{Name: "Said Bouzit", DeviceID: "9"}},
	}))
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "bound to device user 9")

	msgs = evaluateExpect(passingResult(), scenarioWith(Expect{
		Absent: []string{"Said Bouzit"},
	}))
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "no employee named")
}

func TestCounterValue_KnownKeys(t *testing.T) {
	rep := &engine.Report{Deduplicated: 4}
	got, ok := counterValue(rep, "deduplicated")
	require.True(t, ok)
	assert.Equal(t, 4, got)

	_, ok = counterValue(rep, "nonsense")
	assert.False(t, ok)
}
