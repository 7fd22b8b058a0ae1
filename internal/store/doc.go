// Package store is the SQLite-backed attendance ledger.
//
// One Store serves the four persistence roles the sync engine consumes:
// employees (identity), device user links, attendance spans, and the raw
// punch audit log. The database opens with WAL mode and a single
// connection; SQLite allows one writer at a time and the run loop is
// strictly sequential anyway, so the connection limit doubles as the
// single-writer discipline.
//
// All timestamps are stored as UTC text in "YYYY-MM-DD HH:MM:SS" form.
// Lexicographic comparison of that form is chronological comparison,
// which keeps every range query an index scan with no date functions.
//
// Writes that can race with re-runs are idempotent upserts
// (ON CONFLICT ... DO UPDATE); reads that feed the deterministic pipeline
// carry explicit ORDER BY clauses so a rebuild replays rows in the same
// order every time.
package store
