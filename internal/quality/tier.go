package quality

import "fmt"

// Tier is one of the discrete quality presets, or the auto-tuning
// meta-tier which resolves to medium until live-tuned.
type Tier int

const (
	TierAuto Tier = iota
	TierLow
	TierMedium
	TierHigh
)

// String implements fmt.Stringer.
func (t Tier) String() string {
	switch t {
	case TierAuto:
		return "auto"
	case TierLow:
		return "low"
	case TierMedium:
		return "medium"
	case TierHigh:
		return "high"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// ParseTier converts the persisted preference string to a Tier.
func ParseTier(s string) (Tier, error) {
	switch s {
	case "auto":
		return TierAuto, nil
	case "low":
		return TierLow, nil
	case "medium":
		return TierMedium, nil
	case "high":
		return TierHigh, nil
	default:
		return TierAuto, fmt.Errorf("unknown quality tier %q", s)
	}
}

// lower returns the tier one step down; low stays low.
func (t Tier) lower() Tier {
	switch t {
	case TierHigh:
		return TierMedium
	case TierMedium:
		return TierLow
	default:
		return t
	}
}

// higher returns the tier one step up; high stays high.
func (t Tier) higher() Tier {
	switch t {
	case TierLow:
		return TierMedium
	case TierMedium:
		return TierHigh
	default:
		return t
	}
}
