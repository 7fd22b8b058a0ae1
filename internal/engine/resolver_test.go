package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rida-louchachha/punchsync/internal/punch"
)

func TestDecideMode(t *testing.T) {
	ctx := context.Background()

	t.Run("strict wins over everything", func(t *testing.T) {
		s := setupTestStore(t)
		mode, err := DecideMode(ctx, s, Config{Strict: true})
		require.NoError(t, err)
		assert.Equal(t, ModeStrict, mode)
	})

	t.Run("empty registry bootstraps", func(t *testing.T) {
		s := setupTestStore(t)
		mode, err := DecideMode(ctx, s, Config{})
		require.NoError(t, err)
		assert.Equal(t, ModeBootstrap, mode)
	})

	t.Run("admin-only registry bootstraps", func(t *testing.T) {
		s := setupTestStore(t)
		seedEmployee(t, s, "Administrator", "")
		mode, err := DecideMode(ctx, s, Config{})
		require.NoError(t, err)
		assert.Equal(t, ModeBootstrap, mode)
	})

	t.Run("populated registry runs normal", func(t *testing.T) {
		s := setupTestStore(t)
		seedEmployee(t, s, "Said Bouzit", "7")
		mode, err := DecideMode(ctx, s, Config{})
		require.NoError(t, err)
		assert.Equal(t, ModeNormal, mode)
	})
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "normal", ModeNormal.String())
	assert.Equal(t, "bootstrap", ModeBootstrap.String())
	assert.Equal(t, "strict", ModeStrict.String())
}

func newTestResolver(s IdentityStore, links LinkStore, mode Mode, roster ...punch.DeviceUser) *resolver {
	return newResolver(s, links, mode, "", "dev-1", roster)
}

func TestResolver_ByStoredDeviceID(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	empID := seedEmployee(t, s, "Said Bouzit", "7")

	r := newTestResolver(s, s, ModeNormal, punch.DeviceUser{DeviceUserID: "7", Name: "Said Bouzit"})
	res, fresh, err := r.resolve(ctx, "7")
	require.NoError(t, err)
	require.NotNil(t, res.employee)
	assert.Equal(t, empID, res.employee.ID)
	assert.True(t, fresh)
	assert.False(t, res.created)
	assert.False(t, res.linked)
}

func TestResolver_NormalizesLeadingZeros(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	empID := seedEmployee(t, s, "Said Bouzit", "7")

	r := newTestResolver(s, s, ModeNormal)
	res, _, err := r.resolve(ctx, " 007 ")
	require.NoError(t, err)
	require.NotNil(t, res.employee)
	assert.Equal(t, empID, res.employee.ID)
}

func TestResolver_LinksByExactName(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	empID := seedEmployee(t, s, "Said Bouzit", "")

	r := newTestResolver(s, s, ModeNormal, punch.DeviceUser{DeviceUserID: "7", Name: "said bouzit"})
	res, _, err := r.resolve(ctx, "7")
	require.NoError(t, err)
	require.NotNil(t, res.employee)
	assert.Equal(t, empID, res.employee.ID)
	assert.True(t, res.linked)

	// The link is persisted on the employee record.
	emp, err := s.GetEmployee(ctx, empID)
	require.NoError(t, err)
	assert.Equal(t, "7", emp.DeviceUserID)
}

func TestResolver_AmbiguousNameStaysUnresolved(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	seedEmployee(t, s, "Said Bouzit", "")
	seedEmployee(t, s, "Said Bouzit", "")

	r := newTestResolver(s, s, ModeNormal, punch.DeviceUser{DeviceUserID: "7", Name: "Said Bouzit"})
	res, _, err := r.resolve(ctx, "7")
	require.NoError(t, err)
	assert.Nil(t, res.employee)
	assert.NotEmpty(t, res.skipped)
}

func TestResolver_OneWordNameNeverLinks(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	seedEmployee(t, s, "Said", "")

	r := newTestResolver(s, s, ModeNormal, punch.DeviceUser{DeviceUserID: "7", Name: "Said"})
	res, _, err := r.resolve(ctx, "7")
	require.NoError(t, err)
	assert.Nil(t, res.employee)
}

func TestResolver_NameMatchSkipsAlreadyBoundEmployee(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	seedEmployee(t, s, "Said Bouzit", "9")

	// Same name arriving under a different device ID must not steal
	// the binding.
	r := newTestResolver(s, s, ModeNormal, punch.DeviceUser{DeviceUserID: "7", Name: "Said Bouzit"})
	res, _, err := r.resolve(ctx, "7")
	require.NoError(t, err)
	assert.Nil(t, res.employee)
}

func TestResolver_BootstrapCreates(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	r := newTestResolver(s, s, ModeBootstrap, punch.DeviceUser{DeviceUserID: "7", Name: "said BOUZIT"})
	res, _, err := r.resolve(ctx, "7")
	require.NoError(t, err)
	require.NotNil(t, res.employee)
	assert.True(t, res.created)
	assert.Equal(t, "Said Bouzit", res.employee.FullName)
	assert.Equal(t, "7", res.employee.DeviceUserID)

	emp, err := s.FindByDeviceID(ctx, "", "7")
	require.NoError(t, err)
	require.NotNil(t, emp)
	assert.Equal(t, "Said Bouzit", emp.FullName)
}

func TestResolver_BootstrapSkipsAdminAndShortNames(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		user punch.DeviceUser
	}{
		{"admin account", punch.DeviceUser{DeviceUserID: "1", Name: "Admin"}},
		{"administrator account", punch.DeviceUser{DeviceUserID: "2", Name: "Administrator"}},
		{"one-word name", punch.DeviceUser{DeviceUserID: "3", Name: "Said"}},
		{"no name", punch.DeviceUser{DeviceUserID: "4", Name: ""}},
		{"name echoing the id", punch.DeviceUser{DeviceUserID: "5", Name: "5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(s, s, ModeBootstrap, tt.user)
			res, _, err := r.resolve(ctx, tt.user.DeviceUserID)
			require.NoError(t, err)
			assert.Nil(t, res.employee)
			assert.NotEmpty(t, res.skipped)
		})
	}

	total, _, err := s.EmployeeStats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestResolver_StrictUnresolvedFails(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	r := newTestResolver(s, s, ModeStrict, punch.DeviceUser{DeviceUserID: "7", Name: "Said Bouzit"})
	_, _, err := r.resolve(ctx, "7")
	require.Error(t, err)
	assert.True(t, IsUnresolved(err))

	var ue *UnresolvedIdentityError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "dev-1", ue.DeviceID)
	assert.Equal(t, "7", ue.DeviceUserID)
	assert.Equal(t, "Said Bouzit", ue.ShownName)

	// The message tells the operator how to get unstuck.
	assert.Contains(t, err.Error(), "matches no employee")
	assert.Contains(t, err.Error(), "punchsync users")
}

func TestResolver_StrictStillLinksByName(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	empID := seedEmployee(t, s, "Said Bouzit", "")

	r := newTestResolver(s, s, ModeStrict, punch.DeviceUser{DeviceUserID: "7", Name: "Said Bouzit"})
	res, _, err := r.resolve(ctx, "7")
	require.NoError(t, err)
	require.NotNil(t, res.employee)
	assert.Equal(t, empID, res.employee.ID)
	assert.True(t, res.linked)
}

func TestResolver_NameFromStoredLink(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	empID := seedEmployee(t, s, "Said Bouzit", "")

	// The backlog mentions a user the current roster read does not
	// carry; the name stamped on the link row by an earlier run still
	// resolves them.
	require.NoError(t, s.UpsertLink(ctx, punch.DeviceUserLink{
		DeviceID:     "dev-1",
		DeviceUserID: "7",
		Name:         "Said Bouzit",
	}))

	r := newTestResolver(s, s, ModeNormal)
	res, _, err := r.resolve(ctx, "7")
	require.NoError(t, err)
	require.NotNil(t, res.employee)
	assert.Equal(t, empID, res.employee.ID)
	assert.True(t, res.linked)
}

func TestResolver_LinkNameEchoingIDIgnored(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertLink(ctx, punch.DeviceUserLink{
		DeviceID:     "dev-1",
		DeviceUserID: "7",
		Name:         "007",
	}))

	r := newTestResolver(s, s, ModeNormal)
	res, _, err := r.resolve(ctx, "7")
	require.NoError(t, err)
	assert.Nil(t, res.employee)
	assert.Equal(t, "device user 7 matches no employee", res.skipped)
}

func TestResolver_CachesOutcome(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	seedEmployee(t, s, "Said Bouzit", "7")

	r := newTestResolver(s, s, ModeNormal)

	res1, fresh1, err := r.resolve(ctx, "7")
	require.NoError(t, err)
	assert.True(t, fresh1)

	res2, fresh2, err := r.resolve(ctx, "007")
	require.NoError(t, err)
	assert.False(t, fresh2)
	assert.Equal(t, res1.employee.ID, res2.employee.ID)
}

func TestResolver_BlankIDSkips(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	r := newTestResolver(s, s, ModeStrict)
	res, fresh, err := r.resolve(ctx, "  ")
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Nil(t, res.employee)
	assert.Equal(t, "blank device user id", res.skipped)
}

func TestResolver_AdoptsDisplayName(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	// Registry rows imported from the device sometimes carry the raw ID
	// where the name belongs.
	empID := seedEmployee(t, s, "7", "7")

	r := newTestResolver(s, s, ModeNormal, punch.DeviceUser{DeviceUserID: "7", Name: "said bouzit"})
	res, _, err := r.resolve(ctx, "7")
	require.NoError(t, err)
	require.NotNil(t, res.employee)
	assert.Equal(t, "Said Bouzit", res.employee.FullName)

	emp, err := s.GetEmployee(ctx, empID)
	require.NoError(t, err)
	assert.Equal(t, "Said Bouzit", emp.FullName)
}

func TestResolver_KeepsRealNameOverDeviceName(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	empID := seedEmployee(t, s, "Said Bouzit", "7")

	r := newTestResolver(s, s, ModeNormal, punch.DeviceUser{DeviceUserID: "7", Name: "S Bouzit Jr"})
	_, _, err := r.resolve(ctx, "7")
	require.NoError(t, err)

	emp, err := s.GetEmployee(ctx, empID)
	require.NoError(t, err)
	assert.Equal(t, "Said Bouzit", emp.FullName)
}
