package monitor

import (
	"sync"
	"time"

	"github.com/avolkov/resource-sentinel/internal/application/dto"
	"github.com/avolkov/resource-sentinel/internal/domain/valueobject"
)

const ratioWindowSize = 256

// sessionMetrics accumulates per-session counters and a rolling window of
// measured ratios. All methods are safe for concurrent use.
type sessionMetrics struct {
	mu                 sync.Mutex
	totalProbes        int64
	failedProbes       int64
	staleServes        int64
	remediations       int64
	discardedSnapshots int64
	alertsDispatched   int64
	tierHistogram      map[valueobject.Tier]int
	ratios             []float64 // ring, newest at ratioPos-1
	ratioPos           int
	ratioCount         int
	lastRatio          float64
	currentTier        valueobject.Tier
	lastMeasuredAt     time.Time
	startedAt          time.Time
}

func newSessionMetrics() *sessionMetrics {
	return &sessionMetrics{
		tierHistogram: make(map[valueobject.Tier]int),
		ratios:        make([]float64, ratioWindowSize),
	}
}

func (m *sessionMetrics) markStarted(at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startedAt.IsZero() {
		m.startedAt = at
	}
}

func (m *sessionMetrics) recordProbe(ratio float64, tier valueobject.Tier, measuredAt time.Time, stale bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalProbes++
	if stale {
		m.staleServes++
	}
	m.tierHistogram[tier]++
	m.currentTier = tier
	m.lastRatio = ratio
	m.lastMeasuredAt = measuredAt

	m.ratios[m.ratioPos] = ratio
	m.ratioPos = (m.ratioPos + 1) % len(m.ratios)
	if m.ratioCount < len(m.ratios) {
		m.ratioCount++
	}
}

func (m *sessionMetrics) recordFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalProbes++
	m.failedProbes++
}

func (m *sessionMetrics) recordRemediation() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remediations++
}

func (m *sessionMetrics) recordDiscarded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discardedSnapshots++
}

func (m *sessionMetrics) recordAlert() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alertsDispatched++
}

// report snapshots the counters into a DTO. Valid in any session state.
func (m *sessionMetrics) report(resourceID, state string) *dto.SessionMetricsDTO {
	m.mu.Lock()
	defer m.mu.Unlock()

	histogram := make(map[string]int, len(m.tierHistogram))
	for tier, count := range m.tierHistogram {
		histogram[tier.String()] = count
	}

	var avg float64
	if m.ratioCount > 0 {
		var sum float64
		for i := 0; i < m.ratioCount; i++ {
			sum += m.ratios[i]
		}
		avg = sum / float64(m.ratioCount)
	}

	return &dto.SessionMetricsDTO{
		ResourceID:         resourceID,
		State:              state,
		TotalProbes:        m.totalProbes,
		FailedProbes:       m.failedProbes,
		StaleServes:        m.staleServes,
		Remediations:       m.remediations,
		DiscardedSnapshots: m.discardedSnapshots,
		AlertsDispatched:   m.alertsDispatched,
		AverageRatio:       avg,
		LastRatio:          m.lastRatio,
		CurrentTier:        m.currentTier.String(),
		TierHistogram:      histogram,
		LastMeasuredAt:     m.lastMeasuredAt,
		StartedAt:          m.startedAt,
	}
}
