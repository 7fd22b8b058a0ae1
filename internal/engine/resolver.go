package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rida-louchachha/punchsync/internal/punch"
)

// Mode selects how device users with no matching employee are handled.
type Mode int

const (
	// ModeNormal links by stored device ID or exact name match and
	// skips everything else.
	ModeNormal Mode = iota

	// ModeBootstrap additionally creates employees from the device
	// roster. Chosen automatically when the registry is empty, to seed
	// it from the device's enrolled users.
	ModeBootstrap

	// ModeStrict aborts the run on the first unresolved device user.
	ModeStrict
)

// String returns the mode name used in logs and reports.
func (m Mode) String() string {
	switch m {
	case ModeBootstrap:
		return "bootstrap"
	case ModeStrict:
		return "strict"
	default:
		return "normal"
	}
}

// DecideMode picks the run mode: strict when configured, bootstrap when
// the registry is empty or holds only built-in admin accounts, normal
// otherwise.
func DecideMode(ctx context.Context, ids IdentityStore, cfg Config) (Mode, error) {
	if cfg.Strict {
		return ModeStrict, nil
	}
	total, adminish, err := ids.EmployeeStats(ctx, cfg.Company)
	if err != nil {
		return ModeNormal, fmt.Errorf("deciding run mode: %w", err)
	}
	if total == 0 || total == adminish {
		return ModeBootstrap, nil
	}
	return ModeNormal, nil
}

// resolution is the outcome of mapping one device user to an employee.
// Exactly one of employee or skipped is set.
type resolution struct {
	employee *punch.Employee
	created  bool
	linked   bool
	skipped  string
}

// resolver maps device user IDs to employees for one run.
//
// The ladder, in order: stored device ID; exact display-name match
// against exactly one employee (both names must be at least two words);
// in bootstrap mode, creation from the roster entry. Outcomes are cached
// so each device user resolves at most once per run, and so a skipped
// user is reported once rather than once per punch.
type resolver struct {
	ids      IdentityStore
	links    LinkStore
	mode     Mode
	company  string
	deviceID string
	users    map[string]punch.DeviceUser
	cache    map[string]resolution
}

func newResolver(ids IdentityStore, links LinkStore, mode Mode, company, deviceID string, roster []punch.DeviceUser) *resolver {
	users := make(map[string]punch.DeviceUser, len(roster))
	for _, u := range roster {
		id := punch.NormalizeBioID(u.DeviceUserID)
		if id == "" {
			continue
		}
		users[id] = u
	}
	return &resolver{
		ids:      ids,
		links:    links,
		mode:     mode,
		company:  company,
		deviceID: deviceID,
		users:    users,
		cache:    make(map[string]resolution),
	}
}

// resolve maps a raw device user ID to an employee. The returned
// resolution carries a skip reason instead of an employee when the user
// stays unresolved in normal mode; strict mode returns
// *UnresolvedIdentityError instead. fresh is true the first time a user
// resolves, so callers count identity events once, not once per punch.
func (r *resolver) resolve(ctx context.Context, rawID string) (res resolution, fresh bool, err error) {
	id := punch.NormalizeBioID(rawID)
	if cached, ok := r.cache[id]; ok {
		return cached, false, nil
	}
	res, err = r.lookup(ctx, id)
	if err != nil {
		return resolution{}, false, err
	}
	r.cache[id] = res
	return res, true, nil
}

func (r *resolver) lookup(ctx context.Context, id string) (resolution, error) {
	if id == "" {
		return resolution{skipped: "blank device user id"}, nil
	}
	shown, err := r.shownName(ctx, id)
	if err != nil {
		return resolution{}, err
	}

	// A stored device ID wins over everything.
	emp, err := r.ids.FindByDeviceID(ctx, r.company, id)
	if err != nil {
		return resolution{}, err
	}
	if emp != nil {
		if err := r.adoptName(ctx, emp, shown); err != nil {
			return resolution{}, err
		}
		return resolution{employee: emp}, nil
	}

	// Exact display-name match, and only when it is unambiguous: one
	// candidate, both names full (two words or more), and the candidate
	// not already bound to a different device ID.
	if punch.IsTwoWordName(shown) {
		matches, err := r.ids.FindByNameKey(ctx, r.company, punch.NameKey(shown))
		if err != nil {
			return resolution{}, err
		}
		if len(matches) == 1 && punch.IsTwoWordName(matches[0].FullName) && matches[0].DeviceUserID == "" {
			m := matches[0]
			if err := r.ids.AdoptDeviceID(ctx, m.ID, id); err != nil {
				return resolution{}, err
			}
			m.DeviceUserID = id
			slog.Info("linked device user to employee by name",
				"device_user_id", id, "employee_id", m.ID, "name", shown)
			return resolution{employee: &m, linked: true}, nil
		}
	}

	// Bootstrap creates the missing employee from the roster entry,
	// but never from a one-word or admin-looking name.
	if r.mode == ModeBootstrap && punch.IsTwoWordName(shown) && !punch.IsAdminish(shown) {
		e := punch.Employee{
			FullName:     punch.CleanFullName(shown),
			DeviceUserID: id,
			Company:      r.company,
		}
		newID, err := r.ids.CreateEmployee(ctx, e)
		if err != nil {
			return resolution{}, err
		}
		e.ID = newID
		slog.Info("created employee from device user",
			"device_user_id", id, "employee_id", newID, "name", e.FullName)
		return resolution{employee: &e, created: true}, nil
	}

	if r.mode == ModeStrict {
		return resolution{}, &UnresolvedIdentityError{
			DeviceID:     r.deviceID,
			DeviceUserID: id,
			ShownName:    shown,
		}
	}
	slog.Warn("skipping unresolved device user", "device_user_id", id, "name", shown)
	if shown != "" {
		return resolution{skipped: fmt.Sprintf("device user %s (%q) matches no employee", id, shown)}, nil
	}
	return resolution{skipped: fmt.Sprintf("device user %s matches no employee", id)}, nil
}

// shownName is the display name on record for the user: the live roster
// first, then the link row stamped by an earlier run. A punch backlog can
// mention users the current roster read no longer carries; their enrolled
// name survives in the link table.
func (r *resolver) shownName(ctx context.Context, id string) (string, error) {
	if u, ok := r.users[id]; ok {
		if name := usableName(u.Name, id); name != "" {
			return name, nil
		}
	}
	link, err := r.links.FindLink(ctx, r.deviceID, id)
	if err != nil {
		return "", err
	}
	if link == nil {
		return "", nil
	}
	return usableName(link.Name, id), nil
}

// usableName trims the recorded display name. Devices echo the numeric
// ID when no name was enrolled; that counts as no name.
func usableName(name, id string) string {
	name = strings.TrimSpace(name)
	if name == id || punch.NormalizeBioID(name) == id {
		return ""
	}
	return name
}

// adoptName backfills an employee record that has no usable display name
// from the device roster. A record whose name is blank or just the device
// ID gains the enrolled name; anything else is left alone.
func (r *resolver) adoptName(ctx context.Context, emp *punch.Employee, shown string) error {
	if !punch.IsTwoWordName(shown) {
		return nil
	}
	cur := strings.TrimSpace(emp.FullName)
	if cur != "" && cur != emp.DeviceUserID {
		return nil
	}
	clean := punch.CleanFullName(shown)
	if err := r.ids.RenameEmployee(ctx, emp.ID, clean); err != nil {
		return err
	}
	emp.FullName = clean
	slog.Info("adopted device display name", "employee_id", emp.ID, "name", clean)
	return nil
}
