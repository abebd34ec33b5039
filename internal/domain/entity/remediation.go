package entity

import (
	"errors"
	"fmt"

	"github.com/avolkov/resource-sentinel/internal/domain/valueobject"
)

// RemediationResult is the quantified outcome of one remediation pass.
type RemediationResult struct {
	tier              valueobject.Tier
	techniquesApplied []string
	beforeValue       float64
	afterValue        float64
	qualityScore      float64
	preservedKeys     []string
}

// NewRemediationResult creates a validated remediation result. A result
// whose after value exceeds its before value describes a remediation that
// grew the resource and is rejected as a defect.
func NewRemediationResult(
	tier valueobject.Tier,
	techniquesApplied []string,
	beforeValue float64,
	afterValue float64,
	qualityScore float64,
	preservedKeys []string,
) (*RemediationResult, error) {
	if err := tier.Validate(); err != nil {
		return nil, err
	}
	if afterValue > beforeValue {
		return nil, fmt.Errorf("remediation increased consumption: before=%.2f after=%.2f", beforeValue, afterValue)
	}
	if qualityScore < 0 || qualityScore > 100 {
		return nil, errors.New("quality score must be within [0, 100]")
	}

	techniques := make([]string, len(techniquesApplied))
	copy(techniques, techniquesApplied)
	keys := make([]string, len(preservedKeys))
	copy(keys, preservedKeys)

	return &RemediationResult{
		tier:              tier,
		techniquesApplied: techniques,
		beforeValue:       beforeValue,
		afterValue:        afterValue,
		qualityScore:      qualityScore,
		preservedKeys:     keys,
	}, nil
}

// Tier returns the tier this remediation was executed for.
func (r *RemediationResult) Tier() valueobject.Tier {
	return r.tier
}

// TechniquesApplied returns a copy of the applied technique names.
func (r *RemediationResult) TechniquesApplied() []string {
	result := make([]string, len(r.techniquesApplied))
	copy(result, r.techniquesApplied)
	return result
}

// BeforeValue returns resource consumption before the pass.
func (r *RemediationResult) BeforeValue() float64 {
	return r.beforeValue
}

// AfterValue returns resource consumption after the pass.
func (r *RemediationResult) AfterValue() float64 {
	return r.afterValue
}

// Saved returns the absolute consumption reduction achieved.
func (r *RemediationResult) Saved() float64 {
	return r.beforeValue - r.afterValue
}

// QualityScore returns the 0..100 estimate of how much context quality
// survived the pass. More aggressive tiers score lower.
func (r *RemediationResult) QualityScore() float64 {
	return r.qualityScore
}

// PreservedKeys returns a copy of the logical context keys that survived.
func (r *RemediationResult) PreservedKeys() []string {
	result := make([]string, len(r.preservedKeys))
	copy(result, r.preservedKeys)
	return result
}

// NoOp reports whether the pass applied no techniques.
func (r *RemediationResult) NoOp() bool {
	return len(r.techniquesApplied) == 0
}
