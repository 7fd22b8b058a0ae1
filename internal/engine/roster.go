package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rida-louchachha/punchsync/internal/device"
	"github.com/rida-louchachha/punchsync/internal/punch"
)

// RosterReport summarizes one roster sync.
type RosterReport struct {
	DeviceID string `json:"device_id"`
	Mode     string `json:"mode"`

	UsersSeen     int `json:"users_seen"`
	LinksUpserted int `json:"links_upserted"`

	EmployeesCreated int `json:"employees_created"`
	LinkedByID       int `json:"linked_by_id"`
	LinkedByName     int `json:"linked_by_name"`

	Provisioned int `json:"provisioned"`
	Pushed      int `json:"pushed"`

	Errors []string `json:"errors,omitempty"`
}

func (r *RosterReport) note(msg string) {
	r.Errors = append(r.Errors, msg)
}

// SyncUsers reconciles the device's user roster with the employee
// registry in three stages: record a link per enrolled user, bind links
// to employees through the resolution ladder, then provision device IDs
// for employees that have none. With push enabled, provisioned users are
// written to the device and verified by readback before the employee
// record and link are stamped.
//
// Unresolved device users are never fatal here; they stay as unlinked
// link rows and are listed in the report.
func (r *Runner) SyncUsers(ctx context.Context, devCfg device.Config, push bool) (*RosterReport, error) {
	report := &RosterReport{DeviceID: devCfg.DeviceID}
	slog.Info("roster sync starting", "device_id", devCfg.DeviceID, "push", push)

	conn, err := r.adapter.Connect(ctx, devCfg)
	if err != nil {
		return report, fmt.Errorf("connect: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			slog.Warn("closing device connection failed", "device_id", devCfg.DeviceID, "error", err)
		}
	}()

	users, err := conn.FetchUsers()
	if err != nil {
		return report, fmt.Errorf("fetching device users: %w", err)
	}
	report.UsersSeen = len(users)

	// Roster sync exists to surface unmatched users, so it never runs
	// strict; an unresolved user becomes an unlinked row, not an error.
	cfg := r.cfg
	cfg.Strict = false
	mode, err := DecideMode(ctx, r.stores.Identity, cfg)
	if err != nil {
		return report, err
	}
	report.Mode = mode.String()

	now := r.clock.Now()
	resolver := newResolver(r.stores.Identity, r.stores.Links, mode, r.cfg.Company, devCfg.DeviceID, users)

	for _, u := range sortUsers(users) {
		id := punch.NormalizeBioID(u.DeviceUserID)
		if id == "" {
			slog.Warn("skipping device user with blank id", "device_id", devCfg.DeviceID, "name", u.Name)
			continue
		}

		res, fresh, err := resolver.resolve(ctx, id)
		if err != nil {
			return report, fmt.Errorf("resolving device user %s: %w", id, err)
		}

		var employeeID *int64
		if res.employee != nil {
			employeeID = &res.employee.ID
			if fresh {
				switch {
				case res.created:
					report.EmployeesCreated++
				case res.linked:
					report.LinkedByName++
				default:
					report.LinkedByID++
				}
			}
		} else if fresh && res.skipped != "" {
			report.note(res.skipped)
		}

		link := punch.DeviceUserLink{
			DeviceID:     devCfg.DeviceID,
			DeviceUserID: id,
			Name:         strings.TrimSpace(u.Name),
			EmployeeID:   employeeID,
			LastSeenAt:   &now,
		}
		if err := r.stores.Links.UpsertLink(ctx, link); err != nil {
			return report, fmt.Errorf("recording device user %s: %w", id, err)
		}
		report.LinksUpserted++
	}

	if err := r.provision(ctx, devCfg.DeviceID, report); err != nil {
		return report, err
	}

	if push {
		if err := r.pushPending(ctx, conn, devCfg.DeviceID, now, report); err != nil {
			return report, err
		}
	}

	slog.Info("roster sync finished",
		"device_id", devCfg.DeviceID,
		"mode", report.Mode,
		"users_seen", report.UsersSeen,
		"employees_created", report.EmployeesCreated,
		"linked_by_id", report.LinkedByID,
		"linked_by_name", report.LinkedByName,
		"provisioned", report.Provisioned,
		"pushed", report.Pushed,
	)
	return report, nil
}

// provision reserves a device user ID for every employee that has none:
// full two-word names only, admin accounts excluded. An employee with an
// existing link on the device keeps it; everyone else gets the next free
// numeric ID. Provisioned links have no last-seen stamp until a push
// lands them on the device.
func (r *Runner) provision(ctx context.Context, deviceID string, report *RosterReport) error {
	employees, err := r.stores.Identity.ListWithoutDeviceID(ctx, r.cfg.Company)
	if err != nil {
		return fmt.Errorf("listing employees without device ids: %w", err)
	}
	if len(employees) == 0 {
		return nil
	}

	linkIDs, err := r.stores.Links.UsedLinkIDs(ctx, deviceID)
	if err != nil {
		return fmt.Errorf("listing used link ids: %w", err)
	}
	empIDs, err := r.stores.Identity.UsedDeviceIDs(ctx, r.cfg.Company)
	if err != nil {
		return fmt.Errorf("listing used device ids: %w", err)
	}
	used, next := usedNumericIDs(linkIDs, empIDs)

	for _, emp := range employees {
		if !punch.IsTwoWordName(emp.FullName) || punch.IsAdminish(emp.FullName) {
			continue
		}
		existing, err := r.stores.Links.LinkForEmployee(ctx, deviceID, emp.ID)
		if err != nil {
			return fmt.Errorf("checking links for employee %d: %w", emp.ID, err)
		}
		if existing != nil {
			continue
		}

		for used[strconv.FormatInt(next, 10)] {
			next++
		}
		id := strconv.FormatInt(next, 10)
		if !punch.ValidBioID(id) {
			report.note(fmt.Sprintf("device user id space exhausted at %s", id))
			return nil
		}
		used[id] = true
		next++

		link := punch.DeviceUserLink{
			DeviceID:     deviceID,
			DeviceUserID: id,
			Name:         emp.FullName,
			EmployeeID:   &emp.ID,
		}
		if err := r.stores.Links.UpsertLink(ctx, link); err != nil {
			return fmt.Errorf("provisioning device user %s: %w", id, err)
		}
		report.Provisioned++
		slog.Info("provisioned device user id",
			"device_id", deviceID, "employee_id", emp.ID, "device_user_id", id)
	}
	return nil
}

// pushPending writes every needs-push link to the device, then fetches
// the roster back. Only links visible in the readback are stamped; a
// push the device silently dropped stays pending for the next sync.
func (r *Runner) pushPending(ctx context.Context, conn device.Conn, deviceID string, now time.Time, report *RosterReport) error {
	pending, err := r.stores.Links.LinksNeedingPush(ctx, deviceID)
	if err != nil {
		return fmt.Errorf("listing links needing push: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	attempted := make([]punch.DeviceUserLink, 0, len(pending))
	for _, l := range pending {
		u := punch.DeviceUser{
			DeviceUserID: l.DeviceUserID,
			Name:         punch.SanitizeDeviceName(l.Name),
		}
		if err := conn.PushUser(u); err != nil {
			slog.Warn("pushing device user failed",
				"device_id", deviceID, "device_user_id", l.DeviceUserID, "error", err)
			report.note(fmt.Sprintf("push %s: %v", l.DeviceUserID, err))
			continue
		}
		attempted = append(attempted, l)
	}
	if len(attempted) == 0 {
		return nil
	}

	after, err := conn.FetchUsers()
	if err != nil {
		return fmt.Errorf("reading roster back after push: %w", err)
	}
	present := make(map[string]bool, len(after))
	for _, u := range after {
		present[punch.NormalizeBioID(u.DeviceUserID)] = true
	}

	for _, l := range attempted {
		if !present[l.DeviceUserID] {
			report.note(fmt.Sprintf("device user %s not visible after push", l.DeviceUserID))
			continue
		}
		if err := r.stores.Links.MarkLinkSeen(ctx, deviceID, l.DeviceUserID, now); err != nil {
			return fmt.Errorf("stamping link %s: %w", l.DeviceUserID, err)
		}
		if l.EmployeeID != nil {
			if err := r.adoptPushedID(ctx, *l.EmployeeID, l.DeviceUserID); err != nil {
				return err
			}
		}
		report.Pushed++
	}
	return nil
}

// adoptPushedID stamps the device ID onto the employee record unless the
// employee picked one up since provisioning.
func (r *Runner) adoptPushedID(ctx context.Context, employeeID int64, deviceUserID string) error {
	emp, err := r.stores.Identity.GetEmployee(ctx, employeeID)
	if err != nil {
		return fmt.Errorf("loading employee %d: %w", employeeID, err)
	}
	if emp == nil || emp.DeviceUserID != "" {
		return nil
	}
	if err := r.stores.Identity.AdoptDeviceID(ctx, employeeID, deviceUserID); err != nil {
		return fmt.Errorf("stamping employee %d: %w", employeeID, err)
	}
	return nil
}

// sortUsers orders the roster numerically by device user ID so link and
// provisioning writes happen in a stable order.
func sortUsers(users []punch.DeviceUser) []punch.DeviceUser {
	sorted := make([]punch.DeviceUser, len(users))
	copy(sorted, users)
	sort.Slice(sorted, func(i, j int) bool {
		return lessBioID(
			punch.NormalizeBioID(sorted[i].DeviceUserID),
			punch.NormalizeBioID(sorted[j].DeviceUserID),
		)
	})
	return sorted
}

// lessBioID orders numeric IDs by value and everything else after them
// lexicographically.
func lessBioID(a, b string) bool {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	switch {
	case aerr == nil && berr == nil:
		return ai < bi
	case aerr == nil:
		return true
	case berr == nil:
		return false
	default:
		return a < b
	}
}

// usedNumericIDs collects every device user ID in use and the next
// candidate above the numeric maximum.
func usedNumericIDs(groups ...[]string) (map[string]bool, int64) {
	used := make(map[string]bool)
	var top int64
	for _, ids := range groups {
		for _, id := range ids {
			id = punch.NormalizeBioID(id)
			if id == "" {
				continue
			}
			used[id] = true
			if n, err := strconv.ParseInt(id, 10, 64); err == nil && n > top {
				top = n
			}
		}
	}
	return used, top + 1
}
