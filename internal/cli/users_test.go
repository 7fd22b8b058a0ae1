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

const rosterUsersCSV = `device_user_id,name,privilege
7,Said Bouzit,0
8,Admin,14
`

func TestUsersCommand_Bootstrap(t *testing.T) {
	db := tempDB(t)
	dump := writeDump(t, "", rosterUsersCSV)

	out, err := executeCommand(t, "users", "--db", db, "--device", "gate-1", "--dump", dump)
	require.NoError(t, err)

	assert.Contains(t, out, "device users seen: 2")
	assert.Contains(t, out, "employees created: 1")

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()

	// The two-word name was created; the one-word admin account was not.
	emp, err := st.FindByDeviceID(ctx, "", "7")
	require.NoError(t, err)
	require.NotNil(t, emp)
	assert.Equal(t, "Said Bouzit", emp.FullName)

	employees, err := st.ListEmployees(ctx, "")
	require.NoError(t, err)
	assert.Len(t, employees, 1)

	// Both roster entries got link rows stamped as seen on the device.
	for _, id := range []string{"7", "8"} {
		link, err := st.FindLink(ctx, "gate-1", id)
		require.NoError(t, err)
		require.NotNil(t, link, "link for %s", id)
		assert.NotNil(t, link.LastSeenAt)
	}
}

func TestUsersCommand_LinkByName(t *testing.T) {
	db := tempDB(t)
	dump := writeDump(t, "", rosterUsersCSV)

	st, err := store.Open(db)
	require.NoError(t, err)
	ctx := context.Background()
	_, err = st.CreateEmployee(ctx, punch.Employee{FullName: "Said Bouzit"})
	require.NoError(t, err)
	_, err = st.CreateEmployee(ctx, punch.Employee{FullName: "Mounir Alaoui", DeviceUserID: "42"})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := executeCommand(t, "users", "--db", db, "--device", "gate-1", "--dump", dump)
	require.NoError(t, err)
	assert.Contains(t, out, "linked by name:    1")

	st, err = store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	emp, err := st.FindByDeviceID(ctx, "", "7")
	require.NoError(t, err)
	require.NotNil(t, emp)
	assert.Equal(t, "Said Bouzit", emp.FullName)
}

func TestUsersCommand_ProvisionAndPush(t *testing.T) {
	db := tempDB(t)
	dump := writeDump(t, "", rosterUsersCSV)

	// An HR-only employee with a full name and no device ID gets an ID
	// provisioned; with --push it lands in the dump's users file and the
	// readback stamps the employee record.
	st, err := store.Open(db)
	require.NoError(t, err)
	ctx := context.Background()
	_, err = st.CreateEmployee(ctx, punch.Employee{FullName: "Hajar Senhaji"})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := executeCommand(t, "users", "--db", db, "--device", "gate-1", "--dump", dump, "--push")
	require.NoError(t, err)
	assert.Contains(t, out, "provisioned:       1")
	assert.Contains(t, out, "pushed:            1")

	st, err = store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	// IDs 7 and 8 are taken, so the next free numeric ID is 9.
	emp, err := st.FindByDeviceID(ctx, "", "9")
	require.NoError(t, err)
	require.NotNil(t, emp)
	assert.Equal(t, "Hajar Senhaji", emp.FullName)

	link, err := st.FindLink(ctx, "gate-1", "9")
	require.NoError(t, err)
	require.NotNil(t, link)
	assert.NotNil(t, link.LastSeenAt)
	assert.False(t, link.NeedsPush())
}

func TestUsersCommand_JSONOutput(t *testing.T) {
	db := tempDB(t)
	dump := writeDump(t, "", rosterUsersCSV)

	out, err := executeCommand(t, "--format", "json", "users", "--db", db, "--device", "gate-1", "--dump", dump)
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			UsersSeen        int `json:"users_seen"`
			EmployeesCreated int `json:"employees_created"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.UsersSeen)
	assert.Equal(t, 1, resp.Data.EmployeesCreated)
}
