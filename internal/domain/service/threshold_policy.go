package service

import (
	"errors"
	"fmt"
	"sort"

	"github.com/avolkov/resource-sentinel/internal/domain/valueobject"
)

// TierBound binds a tier to the lower bound of the ratio interval it covers.
type TierBound struct {
	Tier       valueobject.Tier
	LowerBound float64
}

// ThresholdPolicy maps a measured ratio to a severity tier (Domain Service).
// Classification is a pure, total function over [0, +inf): the bounds
// partition the ratio axis into closed-open intervals [bound, next), so a
// ratio sitting exactly on a bound belongs to the more severe tier.
type ThresholdPolicy struct {
	bounds []TierBound // sorted by LowerBound ascending, TierNormal implicit at 0
}

// DefaultTierBounds returns the standard bounds table:
// Warning >= 0.80, Alert >= 0.90, Critical >= 0.95, Emergency >= 0.99.
func DefaultTierBounds() []TierBound {
	return []TierBound{
		{Tier: valueobject.TierWarning, LowerBound: 0.80},
		{Tier: valueobject.TierAlert, LowerBound: 0.90},
		{Tier: valueobject.TierCritical, LowerBound: 0.95},
		{Tier: valueobject.TierEmergency, LowerBound: 0.99},
	}
}

// NewThresholdPolicy creates a policy from a bounds table. Bounds must be
// strictly increasing in both ratio and tier severity; a non-monotonic table
// is a configuration defect and fails construction.
func NewThresholdPolicy(bounds []TierBound) (*ThresholdPolicy, error) {
	if len(bounds) == 0 {
		return nil, errors.New("bounds table cannot be empty")
	}

	sorted := make([]TierBound, len(bounds))
	copy(sorted, bounds)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LowerBound < sorted[j].LowerBound
	})

	prevBound := 0.0
	prevTier := valueobject.TierNormal
	for _, b := range sorted {
		if err := b.Tier.Validate(); err != nil {
			return nil, err
		}
		if b.Tier == valueobject.TierNormal {
			return nil, errors.New("normal tier must not appear in the bounds table")
		}
		if b.LowerBound <= prevBound {
			return nil, fmt.Errorf("tier bounds must be strictly increasing and positive: %.4f after %.4f", b.LowerBound, prevBound)
		}
		if b.Tier <= prevTier {
			return nil, fmt.Errorf("tier severity must increase with bounds: %s after %s", b.Tier, prevTier)
		}
		prevBound = b.LowerBound
		prevTier = b.Tier
	}

	return &ThresholdPolicy{bounds: sorted}, nil
}

// DefaultThresholdPolicy returns a policy with the default bounds table.
func DefaultThresholdPolicy() *ThresholdPolicy {
	policy, err := NewThresholdPolicy(DefaultTierBounds())
	if err != nil {
		panic("default tier bounds are invalid: " + err.Error())
	}
	return policy
}

// Classify returns the tier owning the interval the ratio falls into.
// Total over [0, +inf); negative ratios classify as Normal.
func (p *ThresholdPolicy) Classify(ratio float64) valueobject.Tier {
	tier := valueobject.TierNormal
	for _, b := range p.bounds {
		if ratio >= b.LowerBound {
			tier = b.Tier
			continue
		}
		break
	}
	return tier
}

// Bounds returns a copy of the bounds table.
func (p *ThresholdPolicy) Bounds() []TierBound {
	result := make([]TierBound, len(p.bounds))
	copy(result, p.bounds)
	return result
}
