package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rida-louchachha/punchsync/internal/punch"
)

// FindOpenSpan returns the employee's open span, or nil. The schema allows
// at most one; the ORDER BY keeps the answer deterministic even against a
// database written before that index existed.
func (s *Store) FindOpenSpan(ctx context.Context, employeeID int64) (*punch.AttendanceSpan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, employee_id, check_in, check_out
		FROM attendance_spans
		WHERE employee_id = ? AND check_out IS NULL
		ORDER BY check_in DESC, id DESC
		LIMIT 1
	`, employeeID)
	return oneSpan(row, "find open span")
}

// FindCoveringSpan returns a span containing ts: check-in at or before ts,
// and either still open or checking out after ts.
func (s *Store) FindCoveringSpan(ctx context.Context, employeeID int64, ts time.Time) (*punch.AttendanceSpan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, employee_id, check_in, check_out
		FROM attendance_spans
		WHERE employee_id = ?
		  AND check_in <= ?
		  AND (check_out IS NULL OR check_out > ?)
		ORDER BY check_in DESC, id DESC
		LIMIT 1
	`, employeeID, fmtTime(ts), fmtTime(ts))
	return oneSpan(row, "find covering span")
}

// FindLatestClosedSpan returns the employee's most recently closed span,
// or nil when none has closed yet.
func (s *Store) FindLatestClosedSpan(ctx context.Context, employeeID int64) (*punch.AttendanceSpan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, employee_id, check_in, check_out
		FROM attendance_spans
		WHERE employee_id = ? AND check_out IS NOT NULL
		ORDER BY check_out DESC, id DESC
		LIMIT 1
	`, employeeID)
	return oneSpan(row, "find latest closed span")
}

// FindExtendableSpan returns the latest span in [dayStart, dayEnd) whose
// check-in is at or before ts. This is the sole candidate a checkout with
// no open span may extend; the caller compares ts against the candidate's
// checkout. Picking the latest span by check-in, not the latest whose
// checkout precedes ts, keeps an extension from ever reaching into a
// later span.
func (s *Store) FindExtendableSpan(ctx context.Context, employeeID int64, ts, dayStart, dayEnd time.Time) (*punch.AttendanceSpan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, employee_id, check_in, check_out
		FROM attendance_spans
		WHERE employee_id = ?
		  AND check_in >= ? AND check_in < ?
		  AND check_in <= ?
		ORDER BY check_in DESC, id DESC
		LIMIT 1
	`, employeeID, fmtTime(dayStart), fmtTime(dayEnd), fmtTime(ts))
	return oneSpan(row, "find extendable span")
}

// FindSpanStartingNear returns a span whose check-in falls inside
// [lo, hi], for folding a repeated check-in into the span it already
// started.
func (s *Store) FindSpanStartingNear(ctx context.Context, employeeID int64, lo, hi time.Time) (*punch.AttendanceSpan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, employee_id, check_in, check_out
		FROM attendance_spans
		WHERE employee_id = ?
		  AND check_in >= ? AND check_in <= ?
		ORDER BY check_in DESC, id DESC
		LIMIT 1
	`, employeeID, fmtTime(lo), fmtTime(hi))
	return oneSpan(row, "find span starting near")
}

// CreateSpan opens a new span at checkIn and returns its ID.
func (s *Store) CreateSpan(ctx context.Context, employeeID int64, checkIn time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance_spans (employee_id, check_in) VALUES (?, ?)
	`, employeeID, fmtTime(checkIn))
	if err != nil {
		return 0, fmt.Errorf("create span: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create span: last insert id: %w", err)
	}
	return id, nil
}

// CloseSpan sets a span's checkout. Also used to move an existing
// checkout later; the schema forbids moving it to or before check-in.
func (s *Store) CloseSpan(ctx context.Context, spanID int64, checkOut time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE attendance_spans SET check_out = ? WHERE id = ?
	`, fmtTime(checkOut), spanID)
	if err != nil {
		return fmt.Errorf("close span: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("close span: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("close span: no span %d", spanID)
	}
	return nil
}

// DeleteSpan removes a span outright. Only sub-minimum spans are deleted.
func (s *Store) DeleteSpan(ctx context.Context, spanID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM attendance_spans WHERE id = ?`, spanID)
	if err != nil {
		return fmt.Errorf("delete span: %w", err)
	}
	return nil
}

// WipeSpans deletes spans before a rebuild. With a device ID the wipe is
// scoped to employees that have raw-log rows from that device; empty
// wipes everything. Returns the number of deleted spans.
func (s *Store) WipeSpans(ctx context.Context, deviceID string) (int64, error) {
	var result sql.Result
	var err error
	if deviceID == "" {
		result, err = s.db.ExecContext(ctx, `DELETE FROM attendance_spans`)
	} else {
		result, err = s.db.ExecContext(ctx, `
			DELETE FROM attendance_spans
			WHERE employee_id IN (
				SELECT DISTINCT employee_id FROM raw_attendance_log WHERE device_id = ?
			)
		`, deviceID)
	}
	if err != nil {
		return 0, fmt.Errorf("wipe spans: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("wipe spans: rows affected: %w", err)
	}
	return n, nil
}

// ListSpans returns an employee's spans in chronological order.
func (s *Store) ListSpans(ctx context.Context, employeeID int64) ([]punch.AttendanceSpan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, check_in, check_out
		FROM attendance_spans
		WHERE employee_id = ?
		ORDER BY check_in ASC, id ASC
	`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("list spans: %w", err)
	}
	defer rows.Close()

	var spans []punch.AttendanceSpan
	for rows.Next() {
		span, err := scanSpan(rows)
		if err != nil {
			return nil, fmt.Errorf("list spans: %w", err)
		}
		spans = append(spans, *span)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate spans: %w", err)
	}
	return spans, nil
}

func oneSpan(row *sql.Row, op string) (*punch.AttendanceSpan, error) {
	span, err := scanSpan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return span, nil
}

func scanSpan(row rowScanner) (*punch.AttendanceSpan, error) {
	var span punch.AttendanceSpan
	var checkIn string
	var checkOut sql.NullString

	if err := row.Scan(&span.ID, &span.EmployeeID, &checkIn, &checkOut); err != nil {
		return nil, err
	}

	in, err := parseTime(checkIn)
	if err != nil {
		return nil, err
	}
	span.CheckIn = in

	out, err := parseNullTime(checkOut)
	if err != nil {
		return nil, err
	}
	span.CheckOut = out
	return &span, nil
}
