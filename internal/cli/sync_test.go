package cli

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rida-louchachha/punchsync/internal/punch"
	"github.com/rida-louchachha/punchsync/internal/store"
)

const syncPunchesCSV = `device_user_id,timestamp,code,method
7,2024-03-10 08:00:00,0,1
7,2024-03-10 17:00:00,1,1
`

const syncUsersCSV = `device_user_id,name,privilege
7,Said Bouzit,0
`

func TestSyncCommand_FullDay(t *testing.T) {
	db := tempDB(t)
	dump := writeDump(t, syncPunchesCSV, syncUsersCSV)

	out, err := executeCommand(t, "sync", "--db", db, "--device", "gate-1", "--dump", dump)
	require.NoError(t, err)

	assert.Contains(t, out, "success")
	assert.Contains(t, out, "spans created:     1")
	assert.Contains(t, out, "spans closed:      1")

	// The registry was empty, so bootstrap mode created the employee and
	// both punches landed in the audit trail.
	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	emp, err := st.FindByDeviceID(ctx, "", "7")
	require.NoError(t, err)
	require.NotNil(t, emp)
	assert.Equal(t, "Said Bouzit", emp.FullName)

	rows, err := st.CountRawLog(ctx, "gate-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, rows)

	spans, err := st.ListSpans(ctx, emp.ID)
	require.NoError(t, err)
	require.Len(t, spans, 1)
	require.NotNil(t, spans[0].CheckOut)
	assert.Equal(t, "2024-03-10 08:00:00", spans[0].CheckIn.UTC().Format("2006-01-02 15:04:05"))
	assert.Equal(t, "2024-03-10 17:00:00", spans[0].CheckOut.UTC().Format("2006-01-02 15:04:05"))
}

func TestSyncCommand_TimezoneFlag(t *testing.T) {
	db := tempDB(t)
	dump := writeDump(t, syncPunchesCSV, syncUsersCSV)

	// Without --profiles the built-in profile applies, so --tz decides
	// how the dump's device-local clocks are read.
	_, err := executeCommand(t, "sync", "--db", db, "--device", "gate-1", "--dump", dump,
		"--tz", "Asia/Karachi")
	require.NoError(t, err)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	emp, err := st.FindByDeviceID(ctx, "", "7")
	require.NoError(t, err)
	require.NotNil(t, emp)

	spans, err := st.ListSpans(ctx, emp.ID)
	require.NoError(t, err)
	require.Len(t, spans, 1)
	require.NotNil(t, spans[0].CheckOut)

	// 08:00 and 17:00 on a Karachi device clock land five hours earlier
	// in the UTC ledger.
	assert.Equal(t, "2024-03-10 03:00:00", spans[0].CheckIn.UTC().Format("2006-01-02 15:04:05"))
	assert.Equal(t, "2024-03-10 12:00:00", spans[0].CheckOut.UTC().Format("2006-01-02 15:04:05"))
}

func TestSyncCommand_Idempotent(t *testing.T) {
	db := tempDB(t)
	dump := writeDump(t, syncPunchesCSV, syncUsersCSV)

	_, err := executeCommand(t, "sync", "--db", db, "--device", "gate-1", "--dump", dump)
	require.NoError(t, err)
	_, err = executeCommand(t, "sync", "--db", db, "--device", "gate-1", "--dump", dump)
	require.NoError(t, err)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	rows, err := st.CountRawLog(ctx, "gate-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, rows)

	emp, err := st.FindByDeviceID(ctx, "", "7")
	require.NoError(t, err)
	require.NotNil(t, emp)
	spans, err := st.ListSpans(ctx, emp.ID)
	require.NoError(t, err)
	assert.Len(t, spans, 1)
}

func TestSyncCommand_JSONOutput(t *testing.T) {
	db := tempDB(t)
	dump := writeDump(t, syncPunchesCSV, syncUsersCSV)

	out, err := executeCommand(t, "--format", "json", "sync", "--db", db, "--device", "gate-1", "--dump", dump)
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Status       string `json:"status"`
			DeviceID     string `json:"device_id"`
			Fetched      int    `json:"fetched"`
			SpansCreated int    `json:"spans_created"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "success", resp.Data.Status)
	assert.Equal(t, "gate-1", resp.Data.DeviceID)
	assert.Equal(t, 2, resp.Data.Fetched)
	assert.Equal(t, 1, resp.Data.SpansCreated)
}

func TestSyncCommand_MissingDump(t *testing.T) {
	db := tempDB(t)

	_, err := executeCommand(t, "sync", "--db", db, "--device", "gate-1", "--dump", "/does/not/exist")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "sync run failed")
}

func TestSyncCommand_UnknownProfileWithoutDir(t *testing.T) {
	db := tempDB(t)
	dump := writeDump(t, syncPunchesCSV, syncUsersCSV)

	_, err := executeCommand(t, "sync", "--db", db, "--device", "gate-1", "--dump", dump, "--profile", "hikvision")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSyncCommand_StrictUnknownUser(t *testing.T) {
	db := tempDB(t)
	dump := writeDump(t, syncPunchesCSV, syncUsersCSV)

	// Seed a populated registry without the device binding so the run is
	// in normal mode and user 7 cannot resolve.
	st, err := store.Open(db)
	require.NoError(t, err)
	ctx := context.Background()
	_, err = st.CreateEmployee(ctx, punch.Employee{FullName: "Mounir Alaoui", DeviceUserID: "42"})
	require.NoError(t, err)
	_, err = st.CreateEmployee(ctx, punch.Employee{FullName: "Hajar Senhaji", DeviceUserID: "43"})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	_, err = executeCommand(t, "sync", "--db", db, "--device", "gate-1", "--dump", dump, "--strict")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "matches no employee")
}
