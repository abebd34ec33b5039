package probe

import (
	"context"
	"testing"
	"time"

	"github.com/avolkov/resource-sentinel/internal/domain/valueobject"
)

func TestSystemGaugeConstructorValidation(t *testing.T) {
	if _, err := NewSystemGaugeProbe("", GaugeMemory, "/"); err == nil {
		t.Error("expected error for empty resource id")
	}
	if _, err := NewSystemGaugeProbe("sys", GaugeKind("gpu"), "/"); err == nil {
		t.Error("expected error for unknown gauge kind")
	}
}

func TestSystemGaugeMemoryMeasure(t *testing.T) {
	p, err := NewSystemGaugeProbe("system-memory", GaugeMemory, "/")
	if err != nil {
		t.Fatalf("NewSystemGaugeProbe() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snapshot, err := p.Measure(ctx)
	if err != nil {
		t.Fatalf("Measure() error = %v", err)
	}

	if snapshot.Kind() != valueobject.System {
		t.Errorf("Kind() = %v, want system", snapshot.Kind())
	}
	if ratio := snapshot.Ratio(); ratio <= 0 || ratio > 1 {
		t.Errorf("memory ratio = %v, want within (0, 1]", ratio)
	}
	if snapshot.Metadata()["gauge"] != string(GaugeMemory) {
		t.Errorf("gauge metadata = %v, want memory", snapshot.Metadata()["gauge"])
	}
}

func TestSystemGaugeDiskMeasure(t *testing.T) {
	p, err := NewSystemGaugeProbe("system-disk", GaugeDisk, "/")
	if err != nil {
		t.Fatalf("NewSystemGaugeProbe() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snapshot, err := p.Measure(ctx)
	if err != nil {
		t.Fatalf("Measure() error = %v", err)
	}
	if ratio := snapshot.Ratio(); ratio < 0 || ratio > 1 {
		t.Errorf("disk ratio = %v, want within [0, 1]", ratio)
	}
}
