package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rida-louchachha/punchsync/internal/punch"
	"github.com/rida-louchachha/punchsync/internal/store"
	"github.com/rida-louchachha/punchsync/internal/testutil"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(dir + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// ts builds an instant on the test day, 2024-03-10 UTC.
func ts(h, m, sec int) time.Time {
	return time.Date(2024, 3, 10, h, m, sec, 0, time.UTC)
}

func seedEmployee(t *testing.T, s *store.Store, fullName, deviceUserID string) int64 {
	t.Helper()
	id, err := s.CreateEmployee(context.Background(), punch.Employee{
		FullName:     fullName,
		DeviceUserID: deviceUserID,
	})
	require.NoError(t, err)
	return id
}

// testClock is frozen at the evening of the test day so daytime punches
// are never in the future.
func testClock() *testutil.FrozenClock {
	return testutil.NewFrozenClock(ts(23, 0, 0))
}

func TestNew_Defaults(t *testing.T) {
	s := setupTestStore(t)
	runner := New(Bundle(s), &testutil.ScriptedDevice{})

	assert.NotNil(t, runner.profile)
	assert.Equal(t, "zkteco", runner.profile.Name)
	assert.Equal(t, DefaultDedupGrace, runner.cfg.DedupGrace)
	assert.Equal(t, DefaultCloseCooldown, runner.cfg.CloseCooldown)
	assert.Equal(t, DefaultMinSpanDuration, runner.cfg.MinSpanDuration)
	assert.IsType(t, SystemClock{}, runner.clock)
	assert.IsType(t, UUIDv7Generator{}, runner.runIDs)
}

func TestNew_Options(t *testing.T) {
	s := setupTestStore(t)
	clock := testClock()
	gen := NewFixedGenerator("run-1")
	profile := &punch.VendorProfile{
		Name: "custom",
		In:   []int{0},
		Out:  []int{1},
	}

	runner := New(Bundle(s), &testutil.ScriptedDevice{},
		WithConfig(Config{Strict: true, DedupGrace: 2 * time.Second}),
		WithClock(clock),
		WithProfile(profile),
		WithRunIDGenerator(gen),
	)

	assert.True(t, runner.cfg.Strict)
	assert.Equal(t, 2*time.Second, runner.cfg.DedupGrace)
	// Unset knobs fall back to defaults.
	assert.Equal(t, DefaultCloseCooldown, runner.cfg.CloseCooldown)
	assert.Equal(t, "custom", runner.profile.Name)
	assert.Same(t, clock, runner.clock)
	assert.Same(t, gen, runner.runIDs)
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{Company: "acme", DedupGrace: time.Second}.withDefaults()

	assert.Equal(t, "acme", cfg.Company)
	assert.Equal(t, time.Second, cfg.DedupGrace)
	assert.Equal(t, DefaultCloseCooldown, cfg.CloseCooldown)
	assert.Equal(t, DefaultMinSpanDuration, cfg.MinSpanDuration)
	assert.Equal(t, DefaultTimezone, cfg.DefaultTimezone)
}

func TestBundle(t *testing.T) {
	s := setupTestStore(t)
	stores := Bundle(s)

	assert.NotNil(t, stores.Identity)
	assert.NotNil(t, stores.Links)
	assert.NotNil(t, stores.Spans)
	assert.NotNil(t, stores.RawLog)
}

func TestReport_Finish(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Report)
		want   Status
	}{
		{
			name:   "clean run succeeds",
			mutate: func(r *Report) {},
			want:   StatusSuccess,
		},
		{
			name:   "skips degrade to partial",
			mutate: func(r *Report) { r.Skipped = 2 },
			want:   StatusPartial,
		},
		{
			name:   "notes degrade to partial",
			mutate: func(r *Report) { r.note("push 9: device busy") },
			want:   StatusPartial,
		},
		{
			name:   "failure stays failure",
			mutate: func(r *Report) { r.Status = StatusFailure },
			want:   StatusFailure,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Report{}
			tt.mutate(r)
			r.finish()
			assert.Equal(t, tt.want, r.Status)
		})
	}
}
