package valueobject

import "errors"

// Tier is a discrete severity classification of a measured resource ratio.
// Tiers are ordered: Normal < Warning < Alert < Critical < Emergency.
type Tier int

const (
	TierNormal Tier = iota
	TierWarning
	TierAlert
	TierCritical
	TierEmergency
)

// Validate checks the tier is a known value.
func (t Tier) Validate() error {
	if t < TierNormal || t > TierEmergency {
		return errors.New("invalid tier")
	}
	return nil
}

// String returns the canonical lower-case name of the tier.
func (t Tier) String() string {
	switch t {
	case TierNormal:
		return "normal"
	case TierWarning:
		return "warning"
	case TierAlert:
		return "alert"
	case TierCritical:
		return "critical"
	case TierEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}

// AtLeast reports whether the tier is at least as severe as other.
func (t Tier) AtLeast(other Tier) bool {
	return t >= other
}

// AllTiers returns every tier in ascending severity order.
func AllTiers() []Tier {
	return []Tier{TierNormal, TierWarning, TierAlert, TierCritical, TierEmergency}
}

// ParseTier converts a string into a Tier.
func ParseTier(s string) (Tier, error) {
	switch s {
	case "normal":
		return TierNormal, nil
	case "warning":
		return TierWarning, nil
	case "alert":
		return TierAlert, nil
	case "critical":
		return TierCritical, nil
	case "emergency":
		return TierEmergency, nil
	default:
		return TierNormal, errors.New("unknown tier: " + s)
	}
}
