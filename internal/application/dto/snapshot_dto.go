package dto

import (
	"time"

	"github.com/avolkov/resource-sentinel/internal/domain/entity"
)

// SnapshotDTO carries one measurement across layer boundaries.
type SnapshotDTO struct {
	ID            string                 `json:"id"`
	ResourceID    string                 `json:"resource_id"`
	Kind          string                 `json:"kind"`
	MeasuredValue float64                `json:"measured_value"`
	Limit         float64                `json:"limit"`
	Ratio         float64                `json:"ratio"`
	Stale         bool                   `json:"stale"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	MeasuredAt    time.Time              `json:"measured_at"`
}

// FromSnapshot converts a domain snapshot into a DTO.
func FromSnapshot(snapshot *entity.Snapshot) *SnapshotDTO {
	return &SnapshotDTO{
		ID:            snapshot.ID(),
		ResourceID:    snapshot.ResourceID(),
		Kind:          snapshot.Kind().String(),
		MeasuredValue: snapshot.MeasuredValue(),
		Limit:         snapshot.Limit(),
		Ratio:         snapshot.Ratio(),
		Stale:         snapshot.Stale(),
		Metadata:      snapshot.Metadata(),
		MeasuredAt:    snapshot.MeasuredAt(),
	}
}

// ToSnapshotDTOs converts a slice of snapshots.
func ToSnapshotDTOs(snapshots []*entity.Snapshot) []*SnapshotDTO {
	dtos := make([]*SnapshotDTO, len(snapshots))
	for i, s := range snapshots {
		dtos[i] = FromSnapshot(s)
	}
	return dtos
}

// SnapshotHistoryDTO carries a resource's snapshot history with
// aggregates, suitable for dashboard charts.
type SnapshotHistoryDTO struct {
	ResourceID    string         `json:"resource_id"`
	Snapshots     []*SnapshotDTO `json:"snapshots"`
	AverageRatio  float64        `json:"average_ratio"`
	MinRatio      float64        `json:"min_ratio"`
	MaxRatio      float64        `json:"max_ratio"`
	P95Ratio      float64        `json:"p95_ratio"`
	TierHistogram map[string]int `json:"tier_histogram"`
}

// RemediationDTO carries the outcome of a remediation pass.
type RemediationDTO struct {
	Tier              string   `json:"tier"`
	TechniquesApplied []string `json:"techniques_applied"`
	BeforeValue       float64  `json:"before_value"`
	AfterValue        float64  `json:"after_value"`
	Saved             float64  `json:"saved"`
	QualityScore      float64  `json:"quality_score"`
	PreservedKeys     []string `json:"preserved_keys"`
}

// FromRemediation converts a domain remediation result into a DTO.
func FromRemediation(result *entity.RemediationResult) *RemediationDTO {
	return &RemediationDTO{
		Tier:              result.Tier().String(),
		TechniquesApplied: result.TechniquesApplied(),
		BeforeValue:       result.BeforeValue(),
		AfterValue:        result.AfterValue(),
		Saved:             result.Saved(),
		QualityScore:      result.QualityScore(),
		PreservedKeys:     result.PreservedKeys(),
	}
}
