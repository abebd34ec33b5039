package monitor

import (
	"context"
	"fmt"
	"sort"

	"github.com/avolkov/resource-sentinel/internal/application/port"
	"github.com/avolkov/resource-sentinel/internal/domain/entity"
	"github.com/avolkov/resource-sentinel/internal/domain/valueobject"
	"github.com/avolkov/resource-sentinel/pkg/logger"
)

// ContextFootprintKey is the snapshot metadata key under which a probe
// attributes consumption to individual context keys, as a map of key to
// consumed units. The maximal pass uses it to compute what the allow-list
// actually retains.
const ContextFootprintKey = "context_footprint"

// Technique is one named remediation pass. Reduction is the fraction of
// consumption the pass removes on top of earlier passes in the same set.
type Technique struct {
	Name      string
	Reduction float64
}

// TierPlan binds a tier to its technique set and the quality score the
// remaining context is expected to keep after the set runs.
type TierPlan struct {
	Techniques   []Technique
	QualityScore float64
	// DropToAllowList retains only the preserved keys, discarding all
	// other context regardless of technique reductions.
	DropToAllowList bool
}

// RemediationEngine executes graduated remediation per tier. Technique sets
// are strictly additive as tiers grow more severe, and the quality score is
// monotonically non-increasing; both are enforced at construction.
type RemediationEngine struct {
	plans         map[valueobject.Tier]TierPlan
	preservedKeys []string
	logger        *logger.Logger
}

// DefaultTierPlans returns the standard remediation ladder:
// Normal no-op, Warning light, Alert moderate, Critical aggressive,
// Emergency maximal (allow-list only).
func DefaultTierPlans() map[valueobject.Tier]TierPlan {
	light := []Technique{
		{Name: "strip_redundancy", Reduction: 0.10},
	}
	moderate := append(append([]Technique{}, light...),
		Technique{Name: "summarize_noncritical", Reduction: 0.20})
	aggressive := append(append([]Technique{}, moderate...),
		Technique{Name: "semantic_compression", Reduction: 0.25})
	maximal := append(append([]Technique{}, aggressive...),
		Technique{Name: "retain_allowlist_only", Reduction: 0.20})

	return map[valueobject.Tier]TierPlan{
		valueobject.TierNormal:    {Techniques: nil, QualityScore: 100},
		valueobject.TierWarning:   {Techniques: light, QualityScore: 92},
		valueobject.TierAlert:     {Techniques: moderate, QualityScore: 78},
		valueobject.TierCritical:  {Techniques: aggressive, QualityScore: 58},
		valueobject.TierEmergency: {Techniques: maximal, QualityScore: 35, DropToAllowList: true},
	}
}

// NewRemediationEngine creates an engine from tier plans and the allow-list
// of context keys that must survive aggressive passes.
func NewRemediationEngine(plans map[valueobject.Tier]TierPlan, preservedKeys []string, log *logger.Logger) (*RemediationEngine, error) {
	if plans == nil {
		plans = DefaultTierPlans()
	}

	tiers := valueobject.AllTiers()
	prevQuality := 101.0
	prevReduction := -1.0
	for _, tier := range tiers {
		plan, ok := plans[tier]
		if !ok {
			return nil, fmt.Errorf("missing remediation plan for tier %s", tier)
		}
		if plan.QualityScore < 0 || plan.QualityScore > 100 {
			return nil, fmt.Errorf("tier %s: quality score out of range", tier)
		}
		if plan.QualityScore > prevQuality {
			return nil, fmt.Errorf("tier %s: quality score must not increase with severity", tier)
		}
		reduction := totalReduction(plan.Techniques)
		if reduction < prevReduction {
			return nil, fmt.Errorf("tier %s: reduction must not decrease with severity", tier)
		}
		prevQuality = plan.QualityScore
		prevReduction = reduction
	}

	keys := make([]string, len(preservedKeys))
	copy(keys, preservedKeys)
	sort.Strings(keys)

	return &RemediationEngine{
		plans:         plans,
		preservedKeys: keys,
		logger:        log,
	}, nil
}

// Remediate runs the technique set for tier against the consumption in
// snapshot and returns the quantified result. A result that would grow
// consumption violates the engine invariant; the engine refuses it and
// falls back to the previous tier's technique set.
func (e *RemediationEngine) Remediate(ctx context.Context, snapshot *entity.Snapshot, tier valueobject.Tier) (*entity.RemediationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := e.execute(snapshot, tier)
	if err == nil {
		return result, nil
	}

	// Broken plan output. Fall back one tier at a time rather than
	// applying a defective result.
	for fallback := tier - 1; fallback >= valueobject.TierNormal; fallback-- {
		e.logger.Warn("Remediation fell back to a less aggressive tier",
			"resource_id", snapshot.ResourceID(),
			"from", tier.String(),
			"to", fallback.String(),
		)
		if result, fbErr := e.execute(snapshot, fallback); fbErr == nil {
			return result, nil
		}
	}

	return nil, fmt.Errorf("%w: %v", port.ErrRemediationInvariant, err)
}

func (e *RemediationEngine) execute(snapshot *entity.Snapshot, tier valueobject.Tier) (*entity.RemediationResult, error) {
	plan := e.plans[tier]
	before := snapshot.MeasuredValue()

	after := before
	names := make([]string, 0, len(plan.Techniques))
	for _, t := range plan.Techniques {
		if t.Reduction < 0 || t.Reduction >= 1 {
			return nil, fmt.Errorf("technique %s has invalid reduction %.2f", t.Name, t.Reduction)
		}
		after *= 1 - t.Reduction
		names = append(names, t.Name)
	}

	if plan.DropToAllowList {
		// Retain only the allow-listed footprint; everything else goes
		// regardless of what the technique reductions left.
		if footprint, ok := e.allowListFootprint(snapshot); ok && footprint <= before {
			after = footprint
		}
	}

	return entity.NewRemediationResult(tier, names, before, after, plan.QualityScore, e.preservedKeys)
}

// allowListFootprint sums the reported consumption of the allow-listed
// context keys. Snapshots without footprint metadata report no footprint
// and the technique reductions stand.
func (e *RemediationEngine) allowListFootprint(snapshot *entity.Snapshot) (float64, bool) {
	raw, ok := snapshot.Metadata()[ContextFootprintKey]
	if !ok {
		return 0, false
	}

	preserved := make(map[string]struct{}, len(e.preservedKeys))
	for _, key := range e.preservedKeys {
		preserved[key] = struct{}{}
	}

	sum := 0.0
	switch footprints := raw.(type) {
	case map[string]float64:
		for key, units := range footprints {
			if _, keep := preserved[key]; keep && units > 0 {
				sum += units
			}
		}
	case map[string]interface{}:
		// Metadata that round-tripped through JSON carries numbers as
		// float64.
		for key, v := range footprints {
			if _, keep := preserved[key]; !keep {
				continue
			}
			switch units := v.(type) {
			case float64:
				if units > 0 {
					sum += units
				}
			case int:
				if units > 0 {
					sum += float64(units)
				}
			}
		}
	default:
		return 0, false
	}
	return sum, true
}

// QualityScore returns the score configured for the tier.
func (e *RemediationEngine) QualityScore(tier valueobject.Tier) float64 {
	return e.plans[tier].QualityScore
}

func totalReduction(techniques []Technique) float64 {
	remaining := 1.0
	for _, t := range techniques {
		remaining *= 1 - t.Reduction
	}
	return 1 - remaining
}
