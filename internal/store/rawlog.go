package store

import (
	"context"
	"fmt"

	"github.com/rida-louchachha/punchsync/internal/punch"
)

// UpsertRawLog audits one resolved punch. The (device user, punching time)
// pair is the physical identity of a read; re-ingesting the same dump
// refreshes the row in place instead of duplicating it.
func (s *Store) UpsertRawLog(ctx context.Context, e punch.RawLogEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO raw_attendance_log
			(employee_id, device_user_id, punching_time, method, code, device_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(device_user_id, punching_time) DO UPDATE SET
			employee_id = excluded.employee_id,
			method = excluded.method,
			code = excluded.code,
			device_id = excluded.device_id
	`, e.EmployeeID, e.DeviceUserID, fmtTime(e.PunchingTime), e.Method, e.Code, e.DeviceID)
	if err != nil {
		return fmt.Errorf("upsert raw log: %w", err)
	}
	return nil
}

// ListRawLog streams the audit trail back in replay order: punching time,
// then device user ID, then row ID. Rebuilds depend on this order being
// identical on every call. An empty device ID returns the whole log.
func (s *Store) ListRawLog(ctx context.Context, deviceID string) ([]punch.RawLogEntry, error) {
	query := `
		SELECT id, employee_id, device_user_id, punching_time, method, code, device_id
		FROM raw_attendance_log
		ORDER BY punching_time ASC, device_user_id ASC, id ASC
	`
	args := []any{}
	if deviceID != "" {
		query = `
			SELECT id, employee_id, device_user_id, punching_time, method, code, device_id
			FROM raw_attendance_log
			WHERE device_id = ?
			ORDER BY punching_time ASC, device_user_id ASC, id ASC
		`
		args = append(args, deviceID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list raw log: %w", err)
	}
	defer rows.Close()

	var entries []punch.RawLogEntry
	for rows.Next() {
		var e punch.RawLogEntry
		var punchingTime string
		if err := rows.Scan(&e.ID, &e.EmployeeID, &e.DeviceUserID, &punchingTime, &e.Method, &e.Code, &e.DeviceID); err != nil {
			return nil, fmt.Errorf("list raw log: %w", err)
		}
		ts, err := parseTime(punchingTime)
		if err != nil {
			return nil, fmt.Errorf("list raw log: %w", err)
		}
		e.PunchingTime = ts
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate raw log: %w", err)
	}
	return entries, nil
}

// CountRawLog returns the number of audited reads, optionally scoped to
// one device.
func (s *Store) CountRawLog(ctx context.Context, deviceID string) (int64, error) {
	var n int64
	var err error
	if deviceID == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM raw_attendance_log`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM raw_attendance_log WHERE device_id = ?`, deviceID).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count raw log: %w", err)
	}
	return n, nil
}
