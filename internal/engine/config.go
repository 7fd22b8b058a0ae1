package engine

import "time"

// Defaults for the reconciliation tuning knobs.
const (
	// DefaultDedupGrace is the window within which repeated punches on
	// the same side collapse into one read.
	DefaultDedupGrace = 5 * time.Second

	// DefaultCloseCooldown suppresses a fresh check-in landing right
	// after a checkout.
	DefaultCloseCooldown = 10 * time.Second

	// DefaultMinSpanDuration is the shortest span worth persisting.
	DefaultMinSpanDuration = 30 * time.Second

	// DefaultTimezone is the device timezone assumed when neither the
	// vendor profile nor the configuration names one.
	DefaultTimezone = "GMT"
)

// Config carries the tuning knobs for sync runs and rebuilds.
// The zero value is usable: zero-valued knobs fall back to the defaults.
type Config struct {
	// Company scopes employee lookups and creation. Empty means the
	// single unscoped registry.
	Company string

	// Strict aborts a run on the first punch whose device user cannot
	// be resolved to an employee, instead of skipping the punch.
	Strict bool

	// DedupGrace is the same-side suppression window. It also bounds
	// the check-in adoption window for clock jitter.
	DedupGrace time.Duration

	// CloseCooldown is how long after a checkout a new check-in is
	// treated as bounce and ignored.
	CloseCooldown time.Duration

	// MinSpanDuration is the floor below which a closing span is
	// deleted instead of persisted.
	MinSpanDuration time.Duration

	// DefaultTimezone overrides the fallback device timezone used when
	// the vendor profile does not carry one.
	DefaultTimezone string
}

// DefaultConfig returns the standard tuning knobs.
func DefaultConfig() Config {
	return Config{
		DedupGrace:      DefaultDedupGrace,
		CloseCooldown:   DefaultCloseCooldown,
		MinSpanDuration: DefaultMinSpanDuration,
		DefaultTimezone: DefaultTimezone,
	}
}

// withDefaults fills zero-valued knobs from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DedupGrace <= 0 {
		c.DedupGrace = d.DedupGrace
	}
	if c.CloseCooldown <= 0 {
		c.CloseCooldown = d.CloseCooldown
	}
	if c.MinSpanDuration <= 0 {
		c.MinSpanDuration = d.MinSpanDuration
	}
	if c.DefaultTimezone == "" {
		c.DefaultTimezone = d.DefaultTimezone
	}
	return c
}
