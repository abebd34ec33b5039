package dto

import "time"

// SessionMetricsDTO is the JSON-serializable metrics snapshot for one
// monitor session, suitable for a dashboard or a CLI status command.
type SessionMetricsDTO struct {
	ResourceID         string         `json:"resource_id"`
	State              string         `json:"state"`
	TotalProbes        int64          `json:"total_probes"`
	FailedProbes       int64          `json:"failed_probes"`
	StaleServes        int64          `json:"stale_serves"`
	Remediations       int64          `json:"remediations"`
	DiscardedSnapshots int64          `json:"discarded_snapshots"`
	AlertsDispatched   int64          `json:"alerts_dispatched"`
	AverageRatio       float64        `json:"average_ratio"`
	LastRatio          float64        `json:"last_ratio"`
	CurrentTier        string         `json:"current_tier"`
	TierHistogram      map[string]int `json:"tier_histogram"`
	LastMeasuredAt     time.Time      `json:"last_measured_at"`
	StartedAt          time.Time      `json:"started_at"`
}

// EngineReportDTO aggregates session reports for the status surface.
type EngineReportDTO struct {
	GeneratedAt   time.Time            `json:"generated_at"`
	UptimeSeconds float64              `json:"uptime_seconds"`
	Sessions      []*SessionMetricsDTO `json:"sessions"`
	Healthy       bool                 `json:"healthy"`
}
