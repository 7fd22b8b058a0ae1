package punch

import (
	"fmt"
	"time"
)

// VendorProfile describes how one terminal vendor's firmware encodes
// punches: which codes mean IN, which mean OUT, what the verification
// methods are called, and which timezone the device clock runs in.
//
// The code partition is configuration, not a constant. DefaultProfile is
// the only place the stock ZKTeco numbers appear.
type VendorProfile struct {
	Name     string
	Timezone string
	In       []int
	Out      []int
	Method   map[int]string
}

// Side resolves a punch code against the profile's partition. Codes in
// neither list return SideNone and the punch is ignored upstream.
func (p *VendorProfile) Side(code int) Side {
	for _, c := range p.In {
		if c == code {
			return SideIn
		}
	}
	for _, c := range p.Out {
		if c == code {
			return SideOut
		}
	}
	return SideNone
}

// MethodLabel returns the profile's name for a verification method,
// falling back to the built-in labels for methods the profile omits.
func (p *VendorProfile) MethodLabel(method int) string {
	if l, ok := p.Method[method]; ok {
		return l
	}
	return MethodLabel(method)
}

// Validate checks the profile is internally consistent: both sides
// non-empty, no code on both sides, and a loadable timezone.
func (p *VendorProfile) Validate() error {
	if len(p.In) == 0 {
		return fmt.Errorf("profile %q: in codes must not be empty", p.Name)
	}
	if len(p.Out) == 0 {
		return fmt.Errorf("profile %q: out codes must not be empty", p.Name)
	}
	seen := make(map[int]bool, len(p.In))
	for _, c := range p.In {
		seen[c] = true
	}
	for _, c := range p.Out {
		if seen[c] {
			return fmt.Errorf("profile %q: code %d is both in and out", p.Name, c)
		}
	}
	if _, err := p.Location(); err != nil {
		return fmt.Errorf("profile %q: timezone: %w", p.Name, err)
	}
	return nil
}

// Location loads the profile's timezone. An empty timezone means the
// device clock runs in GMT.
func (p *VendorProfile) Location() (*time.Location, error) {
	tz := p.Timezone
	if tz == "" {
		tz = "GMT"
	}
	return time.LoadLocation(tz)
}

// DefaultProfile is the stock ZKTeco code partition, used when no profile
// directory is configured. Its timezone stays unset so a configured
// fallback zone is not shadowed; Location still resolves to GMT.
func DefaultProfile() *VendorProfile {
	return &VendorProfile{
		Name: "zkteco",
		In:       []int{CodeCheckIn, CodeBreakIn, CodeOvertimeIn},
		Out:      []int{CodeCheckOut, CodeBreakOut, CodeOvertimeOut},
		Method: map[int]string{
			MethodFinger:   "Finger",
			MethodType2:    "Type_2",
			MethodPassword: "Password",
			MethodCard:     "Card",
			MethodFace:     "Face",
		},
	}
}
