package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avolkov/resource-sentinel/internal/application/dto"
	"github.com/avolkov/resource-sentinel/internal/application/port"
	"github.com/avolkov/resource-sentinel/internal/domain/entity"
	"github.com/avolkov/resource-sentinel/internal/domain/valueobject"
	"github.com/avolkov/resource-sentinel/pkg/logger"
)

const defaultAlertHistory = 100

type subscription struct {
	sink        port.AlertSink
	minSeverity valueobject.Tier
}

type tierState struct {
	tier        valueobject.Tier
	lastAlertAt time.Time
}

// AlertDispatcher fans alerts out to registered sinks with severity
// filtering. Delivery is at-least-once per sink; a sink that fails or
// panics never blocks the others. Tier-transition-only alerting lives here
// because it needs per-resource history of the previously seen tier.
type AlertDispatcher struct {
	mu              sync.Mutex
	subs            []subscription
	lastTiers       map[string]*tierState
	recent          []*dto.AlertDTO
	maxRecent       int
	reAlertInterval time.Duration
	clock           port.Clock
	logger          *logger.Logger
}

// NewAlertDispatcher creates a dispatcher. reAlertInterval controls how
// long a resource may sit in the same tier before the alert repeats; zero
// disables re-alerting entirely.
func NewAlertDispatcher(reAlertInterval time.Duration, clock port.Clock, log *logger.Logger) *AlertDispatcher {
	if clock == nil {
		clock = port.RealClock{}
	}
	return &AlertDispatcher{
		lastTiers:       make(map[string]*tierState),
		maxRecent:       defaultAlertHistory,
		reAlertInterval: reAlertInterval,
		clock:           clock,
		logger:          log,
	}
}

// Subscribe registers a sink for alerts at or above minSeverity.
func (d *AlertDispatcher) Subscribe(sink port.AlertSink, minSeverity valueobject.Tier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs = append(d.subs, subscription{sink: sink, minSeverity: minSeverity})
}

// ObserveTier records the classified tier for a resource and dispatches an
// alert only on a tier transition, or when the re-alert interval elapsed
// with the resource stuck in an elevated tier. Returns the alert when one
// was dispatched.
func (d *AlertDispatcher) ObserveTier(ctx context.Context, snapshot *entity.Snapshot, tier valueobject.Tier) (*entity.Alert, error) {
	d.mu.Lock()
	state, seen := d.lastTiers[snapshot.ResourceID()]
	now := d.clock.Now()

	transition := !seen || state.tier != tier
	reAlert := false
	if !transition && tier > valueobject.TierNormal && d.reAlertInterval > 0 {
		reAlert = now.Sub(state.lastAlertAt) >= d.reAlertInterval
	}

	if !transition && !reAlert {
		d.mu.Unlock()
		return nil, nil
	}

	// A fresh resource settling into Normal is not an alert.
	if !seen && tier == valueobject.TierNormal {
		d.lastTiers[snapshot.ResourceID()] = &tierState{tier: tier, lastAlertAt: time.Time{}}
		d.mu.Unlock()
		return nil, nil
	}

	previous := valueobject.TierNormal
	if seen {
		previous = state.tier
	}
	d.lastTiers[snapshot.ResourceID()] = &tierState{tier: tier, lastAlertAt: now}
	d.mu.Unlock()

	alert, err := buildTransitionAlert(snapshot, previous, tier, reAlert)
	if err != nil {
		return nil, err
	}

	d.Dispatch(ctx, alert)
	return alert, nil
}

// Dispatch delivers an alert to every sink whose severity filter matches.
func (d *AlertDispatcher) Dispatch(ctx context.Context, alert *entity.Alert) {
	alertDTO := dto.FromAlert(alert)

	d.mu.Lock()
	subs := make([]subscription, len(d.subs))
	copy(subs, d.subs)
	d.recent = append(d.recent, alertDTO)
	if len(d.recent) > d.maxRecent {
		d.recent = d.recent[len(d.recent)-d.maxRecent:]
	}
	d.mu.Unlock()

	for _, sub := range subs {
		if !alert.Tier().AtLeast(sub.minSeverity) {
			continue
		}
		d.deliver(ctx, sub.sink, alertDTO)
	}
}

// deliver isolates sink failures: errors are logged, panics recovered.
func (d *AlertDispatcher) deliver(ctx context.Context, sink port.AlertSink, alert *dto.AlertDTO) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Alert sink panicked", fmt.Errorf("%v", r), "sink", sink.Name())
		}
	}()

	if err := sink.Notify(ctx, alert); err != nil {
		d.logger.Error("Alert sink delivery failed", err,
			"sink", sink.Name(),
			"alert_id", alert.ID,
		)
	}
}

// RecentAlerts returns the most recent dispatched alerts, newest last.
func (d *AlertDispatcher) RecentAlerts(limit int) []*dto.AlertDTO {
	d.mu.Lock()
	defer d.mu.Unlock()

	if limit <= 0 || limit > len(d.recent) {
		limit = len(d.recent)
	}
	result := make([]*dto.AlertDTO, limit)
	copy(result, d.recent[len(d.recent)-limit:])
	return result
}

// CurrentTier returns the last observed tier for a resource.
func (d *AlertDispatcher) CurrentTier(resourceID string) (valueobject.Tier, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	state, ok := d.lastTiers[resourceID]
	if !ok {
		return valueobject.TierNormal, false
	}
	return state.tier, true
}

func buildTransitionAlert(snapshot *entity.Snapshot, previous, current valueobject.Tier, reAlert bool) (*entity.Alert, error) {
	var message string
	switch {
	case reAlert:
		message = fmt.Sprintf("resource %s still at tier %s (ratio %.2f)",
			snapshot.ResourceID(), current, snapshot.Ratio())
	case current > previous:
		message = fmt.Sprintf("resource %s escalated %s -> %s (ratio %.2f)",
			snapshot.ResourceID(), previous, current, snapshot.Ratio())
	default:
		message = fmt.Sprintf("resource %s recovered %s -> %s (ratio %.2f)",
			snapshot.ResourceID(), previous, current, snapshot.Ratio())
	}

	return entity.NewAlert(
		snapshot.ResourceID(),
		current,
		message,
		current >= valueobject.TierCritical,
		recommendedActions(current),
	)
}

func recommendedActions(tier valueobject.Tier) []string {
	switch tier {
	case valueobject.TierWarning:
		return []string{"review recent consumption growth"}
	case valueobject.TierAlert:
		return []string{"enable or verify auto-remediation", "review consumption sources"}
	case valueobject.TierCritical:
		return []string{"run aggressive remediation", "prepare to shed non-critical load"}
	case valueobject.TierEmergency:
		return []string{"retain allow-listed context only", "manual intervention required"}
	default:
		return nil
	}
}
