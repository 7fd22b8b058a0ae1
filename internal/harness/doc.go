// Package harness runs sync scenarios end to end against the real engine.
//
// A scenario scripts one device and its punch backlog, runs a full sync
// over a fresh in-memory database, and asserts on the report counters and
// the resulting ledger. Runs are fully deterministic: a frozen clock, a
// fixed run ID sequence, and the scripted device remove every source of
// nondeterminism, so outcomes and golden snapshots compare exactly.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: single_day
//	description: "One in/out pair builds one closed span"
//	now: "2024-03-10 23:00:00"
//	employees:
//	  - name: Said Bouzit
//	    device_user_id: "7"
//	users:
//	  - id: "7"
//	    name: Said Bouzit
//	punches:
//	  - user: "7"
//	    at: "2024-03-10 08:00:00"
//	    code: 0
//	  - user: "7"
//	    at: "2024-03-10 17:00:00"
//	    code: 1
//	expect:
//	  status: success
//	  counters:
//	    spans_created: 1
//	    spans_closed: 1
//	  spans:
//	    - employee: Said Bouzit
//	      in: "2024-03-10 08:00:00"
//	      out: "2024-03-10 17:00:00"
//
// All timestamps use "2006-01-02 15:04:05". Punch times are device-local
// in the scenario profile's timezone (UTC unless overridden); everything
// under expect is UTC, matching what the store holds.
//
// # Expectations
//
// The expect block checks, in order: run status and mode, the run error
// (substring, for scenarios that must fail), report counters (subset, by
// their JSON names), report notes (substring each), the audit row count,
// the full span set of every employee named under spans or no_spans, the
// device bindings under employees, and that names under absent were never
// created.
//
// Counters and status always refer to the last executed run, so a
// scenario with rerun: true asserts on the replay, which is exactly where
// idempotence shows.
//
// # Invariants
//
// Independent of the expect block, every run is checked against the
// ledger invariants: at most one open span per employee, no overlapping
// spans, and no persisted closed span shorter than the minimum duration.
// A scenario that violates one fails even if all its expectations pass.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/single_day.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
