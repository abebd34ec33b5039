package service

import (
	"errors"
	"sort"

	"github.com/avolkov/resource-sentinel/internal/domain/entity"
	"github.com/avolkov/resource-sentinel/internal/domain/valueobject"
)

// SnapshotAggregator computes statistics over snapshot sets (Domain Service).
// Holds behavior that does not belong to a single snapshot.
type SnapshotAggregator struct{}

// NewSnapshotAggregator creates a new SnapshotAggregator.
func NewSnapshotAggregator() *SnapshotAggregator {
	return &SnapshotAggregator{}
}

// AverageRatio computes the mean ratio across snapshots.
func (a *SnapshotAggregator) AverageRatio(snapshots []*entity.Snapshot) (float64, error) {
	if len(snapshots) == 0 {
		return 0, errors.New("no snapshots to aggregate")
	}

	var sum float64
	for _, s := range snapshots {
		sum += s.Ratio()
	}
	return sum / float64(len(snapshots)), nil
}

// MinRatio returns the smallest ratio in the set.
func (a *SnapshotAggregator) MinRatio(snapshots []*entity.Snapshot) (float64, error) {
	if len(snapshots) == 0 {
		return 0, errors.New("no snapshots to aggregate")
	}

	min := snapshots[0].Ratio()
	for _, s := range snapshots[1:] {
		if r := s.Ratio(); r < min {
			min = r
		}
	}
	return min, nil
}

// MaxRatio returns the largest ratio in the set.
func (a *SnapshotAggregator) MaxRatio(snapshots []*entity.Snapshot) (float64, error) {
	if len(snapshots) == 0 {
		return 0, errors.New("no snapshots to aggregate")
	}

	max := snapshots[0].Ratio()
	for _, s := range snapshots[1:] {
		if r := s.Ratio(); r > max {
			max = r
		}
	}
	return max, nil
}

// TierHistogram counts snapshots per tier under the given policy.
func (a *SnapshotAggregator) TierHistogram(snapshots []*entity.Snapshot, policy *ThresholdPolicy) map[valueobject.Tier]int {
	histogram := make(map[valueobject.Tier]int, len(valueobject.AllTiers()))
	for _, s := range snapshots {
		histogram[policy.Classify(s.Ratio())]++
	}
	return histogram
}

// SortByTime sorts snapshots by measurement time.
func (a *SnapshotAggregator) SortByTime(snapshots []*entity.Snapshot, descending bool) []*entity.Snapshot {
	sorted := make([]*entity.Snapshot, len(snapshots))
	copy(sorted, snapshots)

	sort.Slice(sorted, func(i, j int) bool {
		if descending {
			return sorted[i].MeasuredAt().After(sorted[j].MeasuredAt())
		}
		return sorted[i].MeasuredAt().Before(sorted[j].MeasuredAt())
	})

	return sorted
}

// RatioPercentile computes the given percentile of ratios in the set.
func (a *SnapshotAggregator) RatioPercentile(snapshots []*entity.Snapshot, percentile float64) (float64, error) {
	if len(snapshots) == 0 {
		return 0, errors.New("no snapshots to aggregate")
	}
	if percentile < 0 || percentile > 100 {
		return 0, errors.New("percentile must be between 0 and 100")
	}

	ratios := make([]float64, len(snapshots))
	for i, s := range snapshots {
		ratios[i] = s.Ratio()
	}
	sort.Float64s(ratios)

	index := int(float64(len(ratios)-1) * (percentile / 100.0))
	return ratios[index], nil
}
