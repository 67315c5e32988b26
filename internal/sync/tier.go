package sync

import "time"

// Tier is the polling interval class the engine is in.
type Tier int

const (
	// TierSuspended makes no network calls; the engine only re-checks its inputs.
	TierSuspended Tier = iota
	// TierFast polls quickly while a joined chat is focused.
	TierFast
	// TierBackground polls slowly when no joined chat is focused.
	TierBackground
)

func (t Tier) String() string {
	switch t {
	case TierSuspended:
		return "suspended"
	case TierFast:
		return "fast"
	case TierBackground:
		return "background"
	default:
		return "unknown"
	}
}

// Intervals are the delays between ticks per tier.
type Intervals struct {
	Fast       time.Duration
	Background time.Duration
	Recheck    time.Duration // delay between checks while suspended
}

// DefaultIntervals returns the stock tier timings.
func DefaultIntervals() Intervals {
	return Intervals{
		Fast:       time.Second,
		Background: 3 * time.Second,
		Recheck:    time.Second,
	}
}

func (iv Intervals) withDefaults() Intervals {
	d := DefaultIntervals()
	if iv.Fast <= 0 {
		iv.Fast = d.Fast
	}
	if iv.Background <= 0 {
		iv.Background = d.Background
	}
	if iv.Recheck <= 0 {
		iv.Recheck = d.Recheck
	}
	return iv
}

// For returns the delay after a tick in tier t.
func (iv Intervals) For(t Tier) time.Duration {
	switch t {
	case TierFast:
		return iv.Fast
	case TierBackground:
		return iv.Background
	default:
		return iv.Recheck
	}
}

// SelectTier picks the tier for a membership snapshot. A hidden client is
// suspended; a focused chat counts only while it is joined.
func SelectTier(visible bool, s State) Tier {
	if !visible {
		return TierSuspended
	}
	if s.Focus != "" && s.Has(s.Focus) {
		return TierFast
	}
	return TierBackground
}
