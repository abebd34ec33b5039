package monitor

import (
	"testing"
	"time"

	"github.com/avolkov/resource-sentinel/internal/domain/service"
	"github.com/avolkov/resource-sentinel/internal/domain/valueobject"
)

func TestDefaultPolicyIsValid(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Fatalf("DefaultPolicy().Validate() error = %v", err)
	}
}

func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Policy)
	}{
		{"zero probe interval", func(p *Policy) { p.ProbeInterval = 0 }},
		{"zero probe timeout", func(p *Policy) { p.ProbeTimeout = 0 }},
		{"unknown mode", func(p *Policy) { p.Mode = "cron" }},
		{"negative jitter", func(p *Policy) { p.JitterPercent = -0.1 }},
		{"excessive jitter", func(p *Policy) { p.JitterPercent = 0.6 }},
		{"zero failure threshold", func(p *Policy) { p.FailureThreshold = 0 }},
		{"max interval below base", func(p *Policy) { p.MaxInterval = time.Second }},
		{"zero concurrency", func(p *Policy) { p.MaxConcurrentProbes = 0 }},
		{"negative re-alert interval", func(p *Policy) { p.ReAlertInterval = -time.Second }},
		{"health interval finer than probe", func(p *Policy) { p.HealthCheckInterval = time.Second }},
		{"invalid remediate-from tier", func(p *Policy) { p.RemediateFrom = valueobject.Tier(99) }},
		{"empty tier bounds", func(p *Policy) { p.TierBounds = nil }},
		{"broken tier bounds", func(p *Policy) {
			p.TierBounds = []service.TierBound{
				{Tier: valueobject.TierAlert, LowerBound: 0.8},
				{Tier: valueobject.TierWarning, LowerBound: 0.9},
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := DefaultPolicy()
			tt.mutate(&policy)
			if err := policy.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
