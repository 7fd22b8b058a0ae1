package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rida-louchachha/punchsync/internal/punch"
)

// FindLink returns the link row for (device, device user), or nil.
func (s *Store) FindLink(ctx context.Context, deviceID, deviceUserID string) (*punch.DeviceUserLink, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT device_id, device_user_id, name, employee_id, last_seen_at
		FROM device_user_links
		WHERE device_id = ? AND device_user_id = ?
	`, deviceID, deviceUserID)

	l, err := scanLink(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find link: %w", err)
	}
	return l, nil
}

// UpsertLink inserts or refreshes a link. On conflict the row keeps any
// value the new link does not carry: a nil EmployeeID never unlinks, a nil
// LastSeenAt never forgets a sighting, an empty name never erases one.
func (s *Store) UpsertLink(ctx context.Context, l punch.DeviceUserLink) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO device_user_links (device_id, device_user_id, name, employee_id, last_seen_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(device_id, device_user_id) DO UPDATE SET
			name = CASE WHEN excluded.name = '' THEN device_user_links.name ELSE excluded.name END,
			employee_id = COALESCE(excluded.employee_id, device_user_links.employee_id),
			last_seen_at = COALESCE(excluded.last_seen_at, device_user_links.last_seen_at)
	`, l.DeviceID, l.DeviceUserID, l.Name, l.EmployeeID, nullTime(l.LastSeenAt))
	if err != nil {
		return fmt.Errorf("upsert link: %w", err)
	}
	return nil
}

// LinkForEmployee returns an employee's link on one device, or nil.
func (s *Store) LinkForEmployee(ctx context.Context, deviceID string, employeeID int64) (*punch.DeviceUserLink, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT device_id, device_user_id, name, employee_id, last_seen_at
		FROM device_user_links
		WHERE device_id = ? AND employee_id = ?
		ORDER BY device_user_id ASC
		LIMIT 1
	`, deviceID, employeeID)

	l, err := scanLink(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("link for employee: %w", err)
	}
	return l, nil
}

// LinksNeedingPush returns a device's links that were provisioned on the
// HR side and never read back from the terminal.
func (s *Store) LinksNeedingPush(ctx context.Context, deviceID string) ([]punch.DeviceUserLink, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT device_id, device_user_id, name, employee_id, last_seen_at
		FROM device_user_links
		WHERE device_id = ? AND last_seen_at IS NULL
		ORDER BY device_user_id ASC
	`, deviceID)
	if err != nil {
		return nil, fmt.Errorf("links needing push: %w", err)
	}
	defer rows.Close()

	var links []punch.DeviceUserLink
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("links needing push: %w", err)
		}
		links = append(links, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate links: %w", err)
	}
	return links, nil
}

// MarkLinkSeen stamps the readback time after a successful push.
func (s *Store) MarkLinkSeen(ctx context.Context, deviceID, deviceUserID string, ts time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE device_user_links
		SET last_seen_at = ?
		WHERE device_id = ? AND device_user_id = ?
	`, fmtTime(ts), deviceID, deviceUserID)
	if err != nil {
		return fmt.Errorf("mark link seen: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark link seen: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("mark link seen: no link for device %s user %s", deviceID, deviceUserID)
	}
	return nil
}

// UsedLinkIDs returns every device user ID already present on a device,
// whether observed or provisioned.
func (s *Store) UsedLinkIDs(ctx context.Context, deviceID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT device_user_id
		FROM device_user_links
		WHERE device_id = ?
		ORDER BY device_user_id ASC
	`, deviceID)
	if err != nil {
		return nil, fmt.Errorf("used link ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("used link ids: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate link ids: %w", err)
	}
	return ids, nil
}

func scanLink(row rowScanner) (*punch.DeviceUserLink, error) {
	var l punch.DeviceUserLink
	var employeeID sql.NullInt64
	var lastSeen sql.NullString

	if err := row.Scan(&l.DeviceID, &l.DeviceUserID, &l.Name, &employeeID, &lastSeen); err != nil {
		return nil, err
	}
	if employeeID.Valid {
		l.EmployeeID = &employeeID.Int64
	}
	ts, err := parseNullTime(lastSeen)
	if err != nil {
		return nil, err
	}
	l.LastSeenAt = ts
	return &l, nil
}
