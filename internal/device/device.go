package device

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rida-louchachha/punchsync/internal/punch"
)

// Config identifies one terminal and how to reach it.
type Config struct {
	// DeviceID names the terminal in links and raw-log rows.
	DeviceID string
	// Addr is the network endpoint for live adapters, unused by DumpAdapter.
	Addr string
	// DumpDir is the export directory for DumpAdapter.
	DumpDir string
	// Timeout bounds the connection attempt. Zero means no limit beyond ctx.
	Timeout time.Duration
}

// Conn is a connected terminal. One sync run owns the Conn start to
// finish; implementations are not safe for concurrent use.
type Conn interface {
	// DisableWrites suspends new enrollments on the terminal so the punch
	// set stays stable while the run reads it.
	DisableWrites() error

	// EnableWrites lifts the suspension. Called unconditionally during
	// cleanup, even after a failed run.
	EnableWrites() error

	// FetchRawPunches returns the terminal's punch backlog in whatever
	// order the hardware kept it. Timestamps are device-local naive.
	FetchRawPunches() ([]punch.RawPunch, error)

	// FetchUsers returns the terminal's enrolled users.
	FetchUsers() ([]punch.DeviceUser, error)

	// PushUser writes a user record to the terminal. The caller is
	// responsible for sanitizing the name first.
	PushUser(u punch.DeviceUser) error

	// Close releases the connection. Errors are advisory; callers log and
	// move on.
	Close() error
}

// Adapter connects to one kind of terminal.
type Adapter interface {
	Connect(ctx context.Context, cfg Config) (Conn, error)
}

// ConnectError means the terminal could not be reached at all. Nothing was
// read and nothing was written; the run aborts with a failure report.
type ConnectError struct {
	DeviceID string
	Addr     string
	Err      error
}

func (e *ConnectError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("device %s (%s): connect: %v", e.DeviceID, e.Addr, e.Err)
	}
	return fmt.Sprintf("device %s: connect: %v", e.DeviceID, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// IsConnect reports whether err is a connection failure.
func IsConnect(err error) bool {
	var ce *ConnectError
	return errors.As(err, &ce)
}
