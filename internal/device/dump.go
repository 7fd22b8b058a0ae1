package device

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rida-louchachha/punchsync/internal/punch"
)

// Export file names inside a dump directory.
const (
	PunchDumpFile = "punches.csv"
	UserDumpFile  = "users.csv"
)

// Timestamp layouts accepted in punch dumps. Values are device-local naive;
// no zone suffix is ever present.
var punchTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseWarning is a non-fatal problem in one dump row. The row is skipped
// and the run continues.
type ParseWarning struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// DumpAdapter serves sync runs from offline CSV exports instead of a live
// terminal connection.
type DumpAdapter struct{}

var _ Adapter = (*DumpAdapter)(nil)

// Connect verifies the dump directory exists. Individual files are checked
// when fetched, matching how a live adapter only discovers an empty backlog
// after connecting.
func (DumpAdapter) Connect(ctx context.Context, cfg Config) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ConnectError{DeviceID: cfg.DeviceID, Err: err}
	}
	if cfg.DumpDir == "" {
		return nil, &ConnectError{DeviceID: cfg.DeviceID, Err: errors.New("no dump directory configured")}
	}
	info, err := os.Stat(cfg.DumpDir)
	if err != nil {
		return nil, &ConnectError{DeviceID: cfg.DeviceID, Err: err}
	}
	if !info.IsDir() {
		return nil, &ConnectError{DeviceID: cfg.DeviceID, Err: fmt.Errorf("%s is not a directory", cfg.DumpDir)}
	}
	return &dumpConn{cfg: cfg}, nil
}

type dumpConn struct {
	cfg          Config
	writesFrozen bool
}

var _ Conn = (*dumpConn)(nil)

// DisableWrites is a no-op for a static export; the flag only documents
// that the run asked.
func (c *dumpConn) DisableWrites() error {
	c.writesFrozen = true
	return nil
}

func (c *dumpConn) EnableWrites() error {
	c.writesFrozen = false
	return nil
}

func (c *dumpConn) FetchRawPunches() ([]punch.RawPunch, error) {
	path := filepath.Join(c.cfg.DumpDir, PunchDumpFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading punch dump: %w", err)
	}

	punches, warnings, err := ParsePunchDump(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	for _, w := range warnings {
		slog.Warn("punch dump row skipped", "device", c.cfg.DeviceID, "file", path, "row", w.Row, "reason", w.Message)
	}
	return punches, nil
}

// FetchUsers treats a missing users file as an empty roster; punch-only
// exports are common.
func (c *dumpConn) FetchUsers() ([]punch.DeviceUser, error) {
	path := filepath.Join(c.cfg.DumpDir, UserDumpFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("no user dump present", "device", c.cfg.DeviceID, "file", path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading user dump: %w", err)
	}

	users, warnings, err := ParseUserDump(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	for _, w := range warnings {
		slog.Warn("user dump row skipped", "device", c.cfg.DeviceID, "file", path, "row", w.Row, "reason", w.Message)
	}
	return users, nil
}

// PushUser appends the user to the export's users file, creating it with a
// header when absent. The dump directory stands in for device memory.
func (c *dumpConn) PushUser(u punch.DeviceUser) error {
	path := filepath.Join(c.cfg.DumpDir, UserDumpFile)
	_, statErr := os.Stat(path)
	fresh := errors.Is(statErr, os.ErrNotExist)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening user dump for push: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write([]string{"device_user_id", "name", "privilege", "card_no", "password"}); err != nil {
			return fmt.Errorf("writing user dump header: %w", err)
		}
	}
	record := []string{u.DeviceUserID, u.Name, strconv.Itoa(u.Privilege), u.CardNo, u.Password}
	if err := w.Write(record); err != nil {
		return fmt.Errorf("writing user dump row: %w", err)
	}
	w.Flush()
	return w.Error()
}

func (c *dumpConn) Close() error {
	return nil
}

// ParsePunchDump parses punch export bytes. Required columns are the
// device user ID and timestamp; code and method columns may be absent
// (all values default to 0). Rows that cannot be parsed produce warnings
// and are skipped rather than failing the dump.
func ParsePunchDump(data []byte) ([]punch.RawPunch, []ParseWarning, error) {
	rows, headers, warnings, err := readDumpRows(data)
	if err != nil {
		return nil, nil, err
	}

	idCol := headerIndex(headers, "device_user_id", "user_id", "userid", "uid")
	tsCol := headerIndex(headers, "timestamp", "punching_time", "punch_time", "time")
	codeCol := headerIndex(headers, "code", "punch", "status")
	methodCol := headerIndex(headers, "method", "verify", "verify_type")

	if idCol < 0 {
		return nil, nil, errors.New("no device user ID column in header")
	}
	if tsCol < 0 {
		return nil, nil, errors.New("no timestamp column in header")
	}

	var punches []punch.RawPunch
	for _, row := range rows {
		id := strings.TrimSpace(row.fields[idCol])
		if id == "" {
			warnings = append(warnings, ParseWarning{Row: row.num, Message: "empty device user ID"})
			continue
		}

		ts, err := parsePunchTime(row.fields[tsCol])
		if err != nil {
			warnings = append(warnings, ParseWarning{Row: row.num, Message: err.Error()})
			continue
		}

		code, err := intField(row.fields, codeCol)
		if err != nil {
			warnings = append(warnings, ParseWarning{Row: row.num, Message: fmt.Sprintf("bad punch code: %v", err)})
			continue
		}
		method, err := intField(row.fields, methodCol)
		if err != nil {
			warnings = append(warnings, ParseWarning{Row: row.num, Message: fmt.Sprintf("bad method: %v", err)})
			continue
		}

		punches = append(punches, punch.RawPunch{
			DeviceUserID: id,
			Timestamp:    ts,
			Code:         code,
			Method:       method,
		})
	}
	return punches, warnings, nil
}

// ParseUserDump parses user export bytes. Required columns are the device
// user ID and name.
func ParseUserDump(data []byte) ([]punch.DeviceUser, []ParseWarning, error) {
	rows, headers, warnings, err := readDumpRows(data)
	if err != nil {
		return nil, nil, err
	}

	idCol := headerIndex(headers, "device_user_id", "user_id", "userid", "uid")
	nameCol := headerIndex(headers, "name", "user_name", "username")
	privCol := headerIndex(headers, "privilege", "role")
	cardCol := headerIndex(headers, "card_no", "cardno", "card")
	pwdCol := headerIndex(headers, "password", "pwd")

	if idCol < 0 {
		return nil, nil, errors.New("no device user ID column in header")
	}
	if nameCol < 0 {
		return nil, nil, errors.New("no name column in header")
	}

	var users []punch.DeviceUser
	for _, row := range rows {
		id := strings.TrimSpace(row.fields[idCol])
		if id == "" {
			warnings = append(warnings, ParseWarning{Row: row.num, Message: "empty device user ID"})
			continue
		}

		priv, err := intField(row.fields, privCol)
		if err != nil {
			warnings = append(warnings, ParseWarning{Row: row.num, Message: fmt.Sprintf("bad privilege: %v", err)})
			continue
		}

		u := punch.DeviceUser{
			DeviceUserID: id,
			Name:         strings.TrimSpace(row.fields[nameCol]),
			Privilege:    priv,
		}
		if cardCol >= 0 {
			u.CardNo = strings.TrimSpace(row.fields[cardCol])
		}
		if pwdCol >= 0 {
			u.Password = strings.TrimSpace(row.fields[pwdCol])
		}
		users = append(users, u)
	}
	return users, warnings, nil
}

type dumpRow struct {
	num    int
	fields []string
}

// readDumpRows decodes, reads the header, and returns data rows padded or
// truncated to the header width. Mismatched widths and per-row parse
// failures become warnings.
func readDumpRows(data []byte) ([]dumpRow, []string, []ParseWarning, error) {
	decoded, encoding := DetectAndDecode(data)
	if encoding != "utf-8" {
		slog.Debug("dump decoded", "encoding", encoding)
	}

	r := csv.NewReader(bytes.NewReader(decoded))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	headers, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, nil, errors.New("empty file: no header row")
		}
		return nil, nil, nil, fmt.Errorf("reading header row: %w", err)
	}
	for i, h := range headers {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
	}

	var rows []dumpRow
	var warnings []ParseWarning
	num := 1
	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		num++
		if err != nil {
			warnings = append(warnings, ParseWarning{Row: num, Message: fmt.Sprintf("parse error: %v", err)})
			continue
		}

		if len(fields) < len(headers) {
			padded := make([]string, len(headers))
			copy(padded, fields)
			fields = padded
		} else if len(fields) > len(headers) {
			fields = fields[:len(headers)]
		}
		rows = append(rows, dumpRow{num: num, fields: fields})
	}
	return rows, headers, warnings, nil
}

// headerIndex finds the first column whose header matches any of names.
func headerIndex(headers []string, names ...string) int {
	for _, n := range names {
		for i, h := range headers {
			if h == n {
				return i
			}
		}
	}
	return -1
}

func parsePunchTime(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	for _, layout := range punchTimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// intField parses an integer column; a missing column or blank cell is 0.
func intField(fields []string, col int) (int, error) {
	if col < 0 {
		return 0, nil
	}
	s := strings.TrimSpace(fields[col])
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
