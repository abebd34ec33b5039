package monitor

import (
	"errors"
	"fmt"
	"time"

	"github.com/avolkov/resource-sentinel/internal/domain/service"
	"github.com/avolkov/resource-sentinel/internal/domain/valueobject"
)

// ScheduleMode selects how a session's scheduler drives probes.
type ScheduleMode string

const (
	// ModePolling drives probes on a fixed interval with jitter.
	ModePolling ScheduleMode = "polling"
	// ModeEvent drives probes from debounced external change events.
	ModeEvent ScheduleMode = "event"
)

// Policy is the immutable configuration of one MonitorSession. Changing a
// policy requires a new session; in-flight probes never observe a partially
// updated policy.
type Policy struct {
	ProbeInterval       time.Duration
	ProbeTimeout        time.Duration
	TierBounds          []service.TierBound
	AutoRemediate       bool
	RemediateFrom       valueobject.Tier
	MaxConcurrentProbes int
	ReAlertInterval     time.Duration
	HealthCheckInterval time.Duration
	EscalationWindow    time.Duration
	Mode                ScheduleMode
	JitterPercent       float64
	FailureThreshold    int
	MaxInterval         time.Duration
	DebounceWindow      time.Duration
	StopGracePeriod     time.Duration
	PreservedKeys       []string
}

// DefaultPolicy returns a policy with production defaults.
func DefaultPolicy() Policy {
	return Policy{
		ProbeInterval:       30 * time.Second,
		ProbeTimeout:        10 * time.Second,
		TierBounds:          service.DefaultTierBounds(),
		AutoRemediate:       true,
		RemediateFrom:       valueobject.TierWarning,
		MaxConcurrentProbes: 4,
		ReAlertInterval:     5 * time.Minute,
		HealthCheckInterval: 150 * time.Second,
		EscalationWindow:    3 * time.Minute,
		Mode:                ModePolling,
		JitterPercent:       0.10,
		FailureThreshold:    3,
		MaxInterval:         480 * time.Second,
		DebounceWindow:      250 * time.Millisecond,
		StopGracePeriod:     5 * time.Second,
	}
}

// Validate checks the policy at session construction. Invalid policies are
// the only errors surfaced synchronously to the caller.
func (p Policy) Validate() error {
	if p.ProbeInterval <= 0 {
		return errors.New("probe interval must be positive")
	}
	if p.ProbeTimeout <= 0 {
		return errors.New("probe timeout must be positive")
	}
	if p.Mode != ModePolling && p.Mode != ModeEvent {
		return fmt.Errorf("unknown schedule mode: %q", p.Mode)
	}
	if p.JitterPercent < 0 || p.JitterPercent > 0.5 {
		return errors.New("jitter percent must be within [0, 0.5]")
	}
	if p.FailureThreshold <= 0 {
		return errors.New("failure threshold must be positive")
	}
	if p.MaxInterval < p.ProbeInterval {
		return errors.New("max interval must be at least the probe interval")
	}
	if p.MaxConcurrentProbes <= 0 {
		return errors.New("max concurrent probes must be positive")
	}
	if p.ReAlertInterval < 0 {
		return errors.New("re-alert interval cannot be negative")
	}
	if p.HealthCheckInterval > 0 && p.HealthCheckInterval < p.ProbeInterval {
		return errors.New("health check interval must be coarser than the probe interval")
	}
	if err := p.RemediateFrom.Validate(); err != nil {
		return err
	}

	// Bounds validation is delegated to the policy constructor; a broken
	// table must fail session construction, not the first classify call.
	if _, err := service.NewThresholdPolicy(p.TierBounds); err != nil {
		return fmt.Errorf("invalid tier bounds: %w", err)
	}

	return nil
}

// ThresholdPolicy builds the classifier from the configured bounds table.
// Call only after Validate.
func (p Policy) ThresholdPolicy() *service.ThresholdPolicy {
	policy, err := service.NewThresholdPolicy(p.TierBounds)
	if err != nil {
		panic("policy not validated: " + err.Error())
	}
	return policy
}
