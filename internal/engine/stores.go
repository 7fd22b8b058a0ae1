package engine

import (
	"context"
	"time"

	"github.com/rida-louchachha/punchsync/internal/punch"
)

// The engine consumes persistence through four narrow interfaces instead
// of a concrete handle. The sqlite store implements all of them on one
// type; the harness supplies in-memory implementations for scenarios.

// IdentityStore is the employee registry surface the engine reads and
// writes during identity resolution and roster sync.
type IdentityStore interface {
	FindByDeviceID(ctx context.Context, company, deviceUserID string) (*punch.Employee, error)
	FindByNameKey(ctx context.Context, company, nameKey string) ([]punch.Employee, error)
	CreateEmployee(ctx context.Context, e punch.Employee) (int64, error)
	GetEmployee(ctx context.Context, id int64) (*punch.Employee, error)
	AdoptDeviceID(ctx context.Context, employeeID int64, deviceUserID string) error
	RenameEmployee(ctx context.Context, employeeID int64, fullName string) error
	EmployeeStats(ctx context.Context, company string) (total, adminish int, err error)
	ListWithoutDeviceID(ctx context.Context, company string) ([]punch.Employee, error)
	UsedDeviceIDs(ctx context.Context, company string) ([]string, error)
}

// LinkStore tracks per-device user records and their employee bindings.
type LinkStore interface {
	FindLink(ctx context.Context, deviceID, deviceUserID string) (*punch.DeviceUserLink, error)
	UpsertLink(ctx context.Context, l punch.DeviceUserLink) error
	LinkForEmployee(ctx context.Context, deviceID string, employeeID int64) (*punch.DeviceUserLink, error)
	LinksNeedingPush(ctx context.Context, deviceID string) ([]punch.DeviceUserLink, error)
	MarkLinkSeen(ctx context.Context, deviceID, deviceUserID string, ts time.Time) error
	UsedLinkIDs(ctx context.Context, deviceID string) ([]string, error)
}

// SpanStore holds attendance spans. The lookup methods mirror the
// reconciler's transition rules one to one.
type SpanStore interface {
	FindOpenSpan(ctx context.Context, employeeID int64) (*punch.AttendanceSpan, error)
	FindCoveringSpan(ctx context.Context, employeeID int64, ts time.Time) (*punch.AttendanceSpan, error)
	FindLatestClosedSpan(ctx context.Context, employeeID int64) (*punch.AttendanceSpan, error)
	FindExtendableSpan(ctx context.Context, employeeID int64, ts, dayStart, dayEnd time.Time) (*punch.AttendanceSpan, error)
	FindSpanStartingNear(ctx context.Context, employeeID int64, lo, hi time.Time) (*punch.AttendanceSpan, error)
	CreateSpan(ctx context.Context, employeeID int64, checkIn time.Time) (int64, error)
	CloseSpan(ctx context.Context, spanID int64, checkOut time.Time) error
	DeleteSpan(ctx context.Context, spanID int64) error
	WipeSpans(ctx context.Context, deviceID string) (int64, error)
	ListSpans(ctx context.Context, employeeID int64) ([]punch.AttendanceSpan, error)
}

// RawLogStore is the audit trail: every resolved punch lands here exactly
// once, keyed by (device user, punching time).
type RawLogStore interface {
	UpsertRawLog(ctx context.Context, e punch.RawLogEntry) error
	ListRawLog(ctx context.Context, deviceID string) ([]punch.RawLogEntry, error)
	CountRawLog(ctx context.Context, deviceID string) (int64, error)
}

// Stores bundles the four persistence surfaces a run needs.
type Stores struct {
	Identity IdentityStore
	Links    LinkStore
	Spans    SpanStore
	RawLog   RawLogStore
}

// Bundle builds a Stores from one value implementing all four surfaces,
// such as *store.Store or the harness in-memory store.
func Bundle(s interface {
	IdentityStore
	LinkStore
	SpanStore
	RawLogStore
}) Stores {
	return Stores{Identity: s, Links: s, Spans: s, RawLog: s}
}
