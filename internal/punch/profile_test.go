package punch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProfileSides(t *testing.T) {
	p := DefaultProfile()

	tests := []struct {
		code int
		side Side
	}{
		{CodeCheckIn, SideIn},
		{CodeBreakIn, SideIn},
		{CodeOvertimeIn, SideIn},
		{CodeCheckOut, SideOut},
		{CodeBreakOut, SideOut},
		{CodeOvertimeOut, SideOut},
		{CodeDuplicate, SideNone},
		{99, SideNone},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.side, p.Side(tt.code), "code %d", tt.code)
	}
}

func TestDefaultProfileValid(t *testing.T) {
	require.NoError(t, DefaultProfile().Validate())
}

func TestDefaultProfileTimezoneUnset(t *testing.T) {
	// The built-in profile must not pin a zone, or a configured
	// fallback timezone could never take effect.
	p := DefaultProfile()
	assert.Empty(t, p.Timezone)

	loc, err := p.Location()
	require.NoError(t, err)
	assert.Equal(t, "GMT", loc.String())
}

func TestProfileValidate(t *testing.T) {
	tests := []struct {
		name    string
		profile VendorProfile
		wantErr string
	}{
		{
			name:    "empty in",
			profile: VendorProfile{Name: "x", Out: []int{1}},
			wantErr: "in codes",
		},
		{
			name:    "empty out",
			profile: VendorProfile{Name: "x", In: []int{0}},
			wantErr: "out codes",
		},
		{
			name:    "overlapping sides",
			profile: VendorProfile{Name: "x", In: []int{0, 1}, Out: []int{1, 2}},
			wantErr: "both in and out",
		},
		{
			name:    "bad timezone",
			profile: VendorProfile{Name: "x", In: []int{0}, Out: []int{1}, Timezone: "Mars/Olympus"},
			wantErr: "timezone",
		},
		{
			name:    "minimal valid",
			profile: VendorProfile{Name: "x", In: []int{0}, Out: []int{1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestProfileLocationDefaultsToGMT(t *testing.T) {
	p := VendorProfile{Name: "x", In: []int{0}, Out: []int{1}}
	loc, err := p.Location()
	require.NoError(t, err)
	assert.Equal(t, "GMT", loc.String())
}

func TestProfileMethodLabelFallback(t *testing.T) {
	p := VendorProfile{
		Name:   "x",
		In:     []int{0},
		Out:    []int{1},
		Method: map[int]string{1: "Fingerprint"},
	}

	assert.Equal(t, "Fingerprint", p.MethodLabel(1))
	// Methods the profile omits fall back to the built-in label table.
	assert.Equal(t, "Face", p.MethodLabel(15))
	assert.Equal(t, "Unknown", p.MethodLabel(77))
}

func TestMapPrivilege(t *testing.T) {
	tests := []struct {
		raw      int
		expected string
	}{
		{0, PrivilegeUser},
		{1, PrivilegeAdmin},
		{2, PrivilegeSupervisor},
		{14, PrivilegeAdmin},
		{15, PrivilegeAdmin},
		{3, PrivilegeUser},
		{255, PrivilegeUser},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, MapPrivilege(tt.raw), "raw %d", tt.raw)
	}
}

func TestCodeLabels(t *testing.T) {
	assert.Equal(t, "Check In", CodeLabel(CodeCheckIn))
	assert.Equal(t, "Check Out", CodeLabel(CodeCheckOut))
	assert.Equal(t, "Overtime Out", CodeLabel(CodeOvertimeOut))
	assert.Equal(t, "Duplicate", CodeLabel(CodeDuplicate))
	assert.Equal(t, "Unknown", CodeLabel(42))
}

func TestSideString(t *testing.T) {
	assert.Equal(t, "in", SideIn.String())
	assert.Equal(t, "out", SideOut.String())
	assert.Equal(t, "none", SideNone.String())
}
