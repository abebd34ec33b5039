package probe

import (
	"context"
	"errors"
	"testing"

	"github.com/avolkov/resource-sentinel/internal/application/port"
	"github.com/avolkov/resource-sentinel/internal/domain/valueobject"
)

func TestTaskStatusMeasure(t *testing.T) {
	source := func(ctx context.Context) ([]TaskRecord, error) {
		return []TaskRecord{
			{ID: "t1", Completed: true, Quality: map[string]float64{"accuracy": 95}},
			{ID: "t2", Completed: false},
			{ID: "t3", Completed: true, Quality: map[string]float64{"accuracy": 40}},
			{ID: "t4", Completed: true, Quality: map[string]float64{"accuracy": 80}},
		}, nil
	}

	p, err := NewTaskStatusProbe("tasks", source, 70)
	if err != nil {
		t.Fatalf("NewTaskStatusProbe() error = %v", err)
	}

	snapshot, err := p.Measure(context.Background())
	if err != nil {
		t.Fatalf("Measure() error = %v", err)
	}

	if snapshot.Kind() != valueobject.Task {
		t.Errorf("Kind() = %v, want task", snapshot.Kind())
	}
	// t2 incomplete, t3 below the quality floor.
	if snapshot.Ratio() != 0.5 {
		t.Errorf("Ratio() = %v, want 0.5", snapshot.Ratio())
	}

	failing, ok := snapshot.Metadata()["failing_tasks"].([]string)
	if !ok || len(failing) != 2 {
		t.Fatalf("failing_tasks metadata = %v, want [t2 t3]", snapshot.Metadata()["failing_tasks"])
	}
}

func TestTaskStatusAllHealthy(t *testing.T) {
	source := func(ctx context.Context) ([]TaskRecord, error) {
		return []TaskRecord{
			{ID: "t1", Completed: true, Quality: map[string]float64{"accuracy": 90}},
		}, nil
	}

	p, _ := NewTaskStatusProbe("tasks", source, 70)
	snapshot, err := p.Measure(context.Background())
	if err != nil {
		t.Fatalf("Measure() error = %v", err)
	}
	if snapshot.Ratio() != 0 {
		t.Errorf("Ratio() = %v, want 0", snapshot.Ratio())
	}
}

func TestTaskStatusEmptySetIsFatal(t *testing.T) {
	source := func(ctx context.Context) ([]TaskRecord, error) {
		return nil, nil
	}

	p, _ := NewTaskStatusProbe("tasks", source, 70)
	_, err := p.Measure(context.Background())
	if !port.IsFatal(err) {
		t.Errorf("empty task set error must be fatal, got %v", err)
	}
}

func TestTaskStatusSourceErrorIsTransient(t *testing.T) {
	source := func(ctx context.Context) ([]TaskRecord, error) {
		return nil, errors.New("tracker unavailable")
	}

	p, _ := NewTaskStatusProbe("tasks", source, 70)
	_, err := p.Measure(context.Background())
	if !port.IsTransient(err) {
		t.Errorf("task source error must be transient, got %v", err)
	}
}

func TestTaskStatusConstructorValidation(t *testing.T) {
	source := func(ctx context.Context) ([]TaskRecord, error) { return nil, nil }

	if _, err := NewTaskStatusProbe("", source, 70); err == nil {
		t.Error("expected error for empty resource id")
	}
	if _, err := NewTaskStatusProbe("tasks", nil, 70); err == nil {
		t.Error("expected error for nil source")
	}
	if _, err := NewTaskStatusProbe("tasks", source, 101); err == nil {
		t.Error("expected error for quality floor above 100")
	}
	if _, err := NewTaskStatusProbe("tasks", source, -1); err == nil {
		t.Error("expected error for negative quality floor")
	}
}
