package postgres

import (
	"testing"
	"time"

	"github.com/avolkov/resource-sentinel/internal/domain/entity"
	"github.com/avolkov/resource-sentinel/internal/domain/valueobject"
)

func TestSnapshotRoundTrip(t *testing.T) {
	snap, err := entity.NewSnapshot("context-window", valueobject.TokenBudget, 850, 1000, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("NewSnapshot: %v", err)
	}
	snap.SetMetadata("model", "claude-3-5-sonnet")

	model, err := ToDBModel(snap)
	if err != nil {
		t.Fatalf("ToDBModel() error = %v", err)
	}
	if model.Kind != "token_budget" {
		t.Errorf("kind = %q, want token_budget", model.Kind)
	}
	if len(model.Metadata) == 0 {
		t.Error("metadata should be marshaled")
	}

	restored, err := ToEntity(model)
	if err != nil {
		t.Fatalf("ToEntity() error = %v", err)
	}
	if restored.ID() != snap.ID() {
		t.Errorf("id = %q, want %q", restored.ID(), snap.ID())
	}
	if restored.Ratio() != snap.Ratio() {
		t.Errorf("ratio = %v, want %v", restored.Ratio(), snap.Ratio())
	}
	if got := restored.Metadata()["model"]; got != "claude-3-5-sonnet" {
		t.Errorf("metadata model = %v", got)
	}
	if !restored.MeasuredAt().Equal(snap.MeasuredAt()) {
		t.Errorf("measured_at = %v, want %v", restored.MeasuredAt(), snap.MeasuredAt())
	}
}

func TestToDBModelEmptyMetadata(t *testing.T) {
	snap, err := entity.NewSnapshot("system-cpu", valueobject.System, 42, 100, time.Now())
	if err != nil {
		t.Fatalf("NewSnapshot: %v", err)
	}

	model, err := ToDBModel(snap)
	if err != nil {
		t.Fatalf("ToDBModel() error = %v", err)
	}
	if model.Metadata != nil {
		t.Errorf("metadata = %q, want nil for an empty map", model.Metadata)
	}

	restored, err := ToEntity(model)
	if err != nil {
		t.Fatalf("ToEntity() error = %v", err)
	}
	if len(restored.Metadata()) != 0 {
		t.Errorf("metadata = %v, want empty", restored.Metadata())
	}
}

func TestToEntityRejectsUnknownKind(t *testing.T) {
	model := &SnapshotDBModel{
		ID:            "id-1",
		ResourceID:    "r",
		Kind:          "thermal",
		MeasuredValue: 1,
		ResourceLimit: 2,
		MeasuredAt:    time.Now(),
	}
	if _, err := ToEntity(model); err == nil {
		t.Error("expected an error for an unknown resource kind")
	}
}
