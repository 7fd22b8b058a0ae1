package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rida-louchachha/punchsync/internal/punch"
)

// FindByDeviceID returns the employee holding the given device user ID
// within a company, or nil when nobody does. The ID must already be
// normalized by the caller.
func (s *Store) FindByDeviceID(ctx context.Context, company, deviceUserID string) (*punch.Employee, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, full_name, device_user_id, company
		FROM employees
		WHERE company = ? AND device_user_id = ?
	`, company, deviceUserID)

	e, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find employee by device id: %w", err)
	}
	return e, nil
}

// FindByNameKey returns every employee whose canonical name key matches.
// Callers treat anything other than exactly one match as no match; the
// deterministic ordering keeps error messages stable.
func (s *Store) FindByNameKey(ctx context.Context, company, nameKey string) ([]punch.Employee, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, full_name, device_user_id, company
		FROM employees
		WHERE company = ? AND name_key = ?
		ORDER BY id ASC
	`, company, nameKey)
	if err != nil {
		return nil, fmt.Errorf("find employees by name key: %w", err)
	}
	defer rows.Close()

	var employees []punch.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("find employees by name key: %w", err)
		}
		employees = append(employees, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate employees: %w", err)
	}
	return employees, nil
}

// CreateEmployee inserts a new employee and returns its ID. The name key
// is derived here so no caller can insert a row that name lookups miss.
func (s *Store) CreateEmployee(ctx context.Context, e punch.Employee) (int64, error) {
	if e.DeviceUserID != "" && !punch.ValidBioID(e.DeviceUserID) {
		return 0, fmt.Errorf("create employee: device user id %q is not 1-10 digits", e.DeviceUserID)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (full_name, name_key, device_user_id, company)
		VALUES (?, ?, ?, ?)
	`, e.FullName, punch.NameKey(e.FullName), nullString(e.DeviceUserID), e.Company)
	if err != nil {
		return 0, fmt.Errorf("create employee: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create employee: last insert id: %w", err)
	}
	return id, nil
}

// AdoptDeviceID sets an employee's device user ID only when none is set.
// A non-empty ID is never overwritten; that case returns an error so the
// caller can surface the conflict instead of silently relinking.
func (s *Store) AdoptDeviceID(ctx context.Context, employeeID int64, deviceUserID string) error {
	if !punch.ValidBioID(deviceUserID) {
		return fmt.Errorf("adopt device id: %q is not 1-10 digits", deviceUserID)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE employees
		SET device_user_id = ?
		WHERE id = ? AND (device_user_id IS NULL OR device_user_id = '')
	`, deviceUserID, employeeID)
	if err != nil {
		return fmt.Errorf("adopt device id: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("adopt device id: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("adopt device id: employee %d missing or already has one", employeeID)
	}
	return nil
}

// RenameEmployee updates an employee's display name and rebuilds the name
// key. Used when a placeholder name is replaced by the device's record.
func (s *Store) RenameEmployee(ctx context.Context, employeeID int64, fullName string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE employees SET full_name = ?, name_key = ? WHERE id = ?
	`, fullName, punch.NameKey(fullName), employeeID)
	if err != nil {
		return fmt.Errorf("rename employee: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rename employee: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("rename employee: no employee %d", employeeID)
	}
	return nil
}

// GetEmployee returns one employee by ID, or nil when absent.
func (s *Store) GetEmployee(ctx context.Context, id int64) (*punch.Employee, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, full_name, device_user_id, company
		FROM employees
		WHERE id = ?
	`, id)

	e, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get employee: %w", err)
	}
	return e, nil
}

// EmployeeStats counts a company's employees, split into admin-ish device
// accounts and everyone else. Mode detection runs on these numbers.
func (s *Store) EmployeeStats(ctx context.Context, company string) (total, adminish int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN name_key IN ('admin', 'administrator') THEN 1 ELSE 0 END), 0)
		FROM employees
		WHERE company = ?
	`, company).Scan(&total, &adminish)
	if err != nil {
		return 0, 0, fmt.Errorf("employee stats: %w", err)
	}
	return total, adminish, nil
}

// ListWithoutDeviceID returns employees that have no device user ID yet,
// in creation order. Roster provisioning walks this list.
func (s *Store) ListWithoutDeviceID(ctx context.Context, company string) ([]punch.Employee, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, full_name, device_user_id, company
		FROM employees
		WHERE company = ? AND (device_user_id IS NULL OR device_user_id = '')
		ORDER BY id ASC
	`, company)
	if err != nil {
		return nil, fmt.Errorf("list employees without device id: %w", err)
	}
	defer rows.Close()

	var employees []punch.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("list employees without device id: %w", err)
		}
		employees = append(employees, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate employees: %w", err)
	}
	return employees, nil
}

// ListEmployees returns a company's whole registry ordered by full name,
// ties broken by ID.
func (s *Store) ListEmployees(ctx context.Context, company string) ([]punch.Employee, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, full_name, device_user_id, company
		FROM employees
		WHERE company = ?
		ORDER BY full_name ASC, id ASC
	`, company)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var employees []punch.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("list employees: %w", err)
		}
		employees = append(employees, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate employees: %w", err)
	}
	return employees, nil
}

// UsedDeviceIDs returns every device user ID currently held by a
// company's employees. Feeds next-free-ID allocation.
func (s *Store) UsedDeviceIDs(ctx context.Context, company string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT device_user_id
		FROM employees
		WHERE company = ? AND device_user_id IS NOT NULL AND device_user_id != ''
		ORDER BY device_user_id ASC
	`, company)
	if err != nil {
		return nil, fmt.Errorf("used device ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("used device ids: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate device ids: %w", err)
	}
	return ids, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (*punch.Employee, error) {
	var e punch.Employee
	var deviceUserID sql.NullString
	if err := row.Scan(&e.ID, &e.FullName, &deviceUserID, &e.Company); err != nil {
		return nil, err
	}
	e.DeviceUserID = deviceUserID.String
	return &e, nil
}
