package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/rida-louchachha/punchsync/internal/punch"
)

// ReportRow is one employee's activity for one UTC day.
type ReportRow struct {
	EmployeeID int64         `json:"employee_id"`
	FullName   string        `json:"full_name"`
	Day        string        `json:"day"`
	FirstPunch time.Time     `json:"first_punch"`
	LastPunch  time.Time     `json:"last_punch"`
	PunchCount int           `json:"punch_count"`
	SpanCount  int           `json:"span_count"`
	TotalWork  time.Duration `json:"total_work"`
}

// DailyReport aggregates the raw log and span ledger for the UTC day
// containing day. A non-zero employeeID narrows to one employee. Rows are
// ordered by employee ID.
//
// PunchCount and first/last come from the audit trail, so strays and
// deduplicated reads still show up; SpanCount counts spans checked in that
// day and TotalWork sums the closed ones.
func (s *Store) DailyReport(ctx context.Context, day time.Time, employeeID int64) ([]ReportRow, error) {
	dayStart, dayEnd := punch.DayWindow(day)
	dayLabel := dayStart.Format("2006-01-02")

	byEmployee := make(map[int64]*ReportRow)

	if err := s.reportPunches(ctx, dayStart, dayEnd, employeeID, dayLabel, byEmployee); err != nil {
		return nil, err
	}
	if err := s.reportSpans(ctx, dayStart, dayEnd, employeeID, dayLabel, byEmployee); err != nil {
		return nil, err
	}

	rows := make([]ReportRow, 0, len(byEmployee))
	for _, r := range byEmployee {
		rows = append(rows, *r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].EmployeeID < rows[j].EmployeeID })
	return rows, nil
}

func (s *Store) reportPunches(ctx context.Context, dayStart, dayEnd time.Time, employeeID int64, dayLabel string, byEmployee map[int64]*ReportRow) error {
	query := `
		SELECT e.id, e.full_name, COUNT(r.id), MIN(r.punching_time), MAX(r.punching_time)
		FROM raw_attendance_log r
		JOIN employees e ON e.id = r.employee_id
		WHERE r.punching_time >= ? AND r.punching_time < ?
	`
	args := []any{fmtTime(dayStart), fmtTime(dayEnd)}
	if employeeID != 0 {
		query += ` AND e.id = ?`
		args = append(args, employeeID)
	}
	query += ` GROUP BY e.id, e.full_name ORDER BY e.id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("report punches: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r ReportRow
		var first, last string
		if err := rows.Scan(&r.EmployeeID, &r.FullName, &r.PunchCount, &first, &last); err != nil {
			return fmt.Errorf("report punches: %w", err)
		}
		if r.FirstPunch, err = parseTime(first); err != nil {
			return fmt.Errorf("report punches: %w", err)
		}
		if r.LastPunch, err = parseTime(last); err != nil {
			return fmt.Errorf("report punches: %w", err)
		}
		r.Day = dayLabel
		byEmployee[r.EmployeeID] = &r
	}
	return rows.Err()
}

func (s *Store) reportSpans(ctx context.Context, dayStart, dayEnd time.Time, employeeID int64, dayLabel string, byEmployee map[int64]*ReportRow) error {
	query := `
		SELECT s.employee_id, e.full_name, COUNT(s.id),
			COALESCE(SUM(
				CASE WHEN s.check_out IS NOT NULL
				THEN strftime('%s', s.check_out) - strftime('%s', s.check_in)
				ELSE 0 END
			), 0)
		FROM attendance_spans s
		JOIN employees e ON e.id = s.employee_id
		WHERE s.check_in >= ? AND s.check_in < ?
	`
	args := []any{fmtTime(dayStart), fmtTime(dayEnd)}
	if employeeID != 0 {
		query += ` AND s.employee_id = ?`
		args = append(args, employeeID)
	}
	query += ` GROUP BY s.employee_id, e.full_name ORDER BY s.employee_id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("report spans: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var name string
		var count int
		var seconds sql.NullInt64
		if err := rows.Scan(&id, &name, &count, &seconds); err != nil {
			return fmt.Errorf("report spans: %w", err)
		}

		r, ok := byEmployee[id]
		if !ok {
			r = &ReportRow{EmployeeID: id, FullName: name, Day: dayLabel}
			byEmployee[id] = r
		}
		r.SpanCount = count
		r.TotalWork = time.Duration(seconds.Int64) * time.Second
	}
	return rows.Err()
}
