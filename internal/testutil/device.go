package testutil

import (
	"context"
	"sync"

	"github.com/rida-louchachha/punchsync/internal/device"
	"github.com/rida-louchachha/punchsync/internal/punch"
)

// ScriptedDevice is an in-memory device.Adapter and device.Conn. It
// serves a fixed roster and punch backlog, records every call, and can
// inject a failure at each step of the device lifecycle.
//
// The zero value is a reachable device with no users and no punches.
// Configure the script fields before handing it to a runner; inspect the
// recorded fields afterwards.
//
// Thread-safety: all methods are safe for concurrent use via internal
// mutex, though a run drives the device from a single goroutine.
type ScriptedDevice struct {
	mu sync.Mutex

	// Script.
	Users   []punch.DeviceUser
	Punches []punch.RawPunch

	// Failure injection. A non-nil error is returned by the matching
	// call; ConnectErr is wrapped in a *device.ConnectError.
	ConnectErr    error
	DisableErr    error
	EnableErr     error
	FetchUsersErr error
	FetchPunchErr error
	PushErr       error
	CloseErr      error

	// HidePushed keeps pushed users out of later FetchUsers results,
	// simulating a device that silently drops the write.
	HidePushed bool

	// Recorded calls.
	Connects     int
	DisableCalls int
	EnableCalls  int
	CloseCalls   int
	Pushed       []punch.DeviceUser
	WritesFrozen bool
}

var (
	_ device.Adapter = (*ScriptedDevice)(nil)
	_ device.Conn    = (*ScriptedDevice)(nil)
)

// Connect implements device.Adapter; the device is its own connection.
func (d *ScriptedDevice) Connect(ctx context.Context, cfg device.Config) (device.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.Connects++
	if d.ConnectErr != nil {
		return nil, &device.ConnectError{DeviceID: cfg.DeviceID, Addr: cfg.Addr, Err: d.ConnectErr}
	}
	return d, nil
}

// DisableWrites freezes the scripted device.
func (d *ScriptedDevice) DisableWrites() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.DisableCalls++
	if d.DisableErr != nil {
		return d.DisableErr
	}
	d.WritesFrozen = true
	return nil
}

// EnableWrites unfreezes the scripted device.
func (d *ScriptedDevice) EnableWrites() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.EnableCalls++
	if d.EnableErr != nil {
		return d.EnableErr
	}
	d.WritesFrozen = false
	return nil
}

// FetchRawPunches returns a copy of the scripted backlog.
func (d *ScriptedDevice) FetchRawPunches() ([]punch.RawPunch, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FetchPunchErr != nil {
		return nil, d.FetchPunchErr
	}
	return append([]punch.RawPunch(nil), d.Punches...), nil
}

// FetchUsers returns a copy of the scripted roster plus any users pushed
// so far, unless HidePushed is set.
func (d *ScriptedDevice) FetchUsers() ([]punch.DeviceUser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FetchUsersErr != nil {
		return nil, d.FetchUsersErr
	}
	users := append([]punch.DeviceUser(nil), d.Users...)
	if !d.HidePushed {
		users = append(users, d.Pushed...)
	}
	return users, nil
}

// PushUser records the pushed user.
func (d *ScriptedDevice) PushUser(u punch.DeviceUser) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.PushErr != nil {
		return d.PushErr
	}
	d.Pushed = append(d.Pushed, u)
	return nil
}

// Close records the disconnect.
func (d *ScriptedDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CloseCalls++
	return d.CloseErr
}
