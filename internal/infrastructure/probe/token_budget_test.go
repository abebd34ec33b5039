package probe

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/avolkov/resource-sentinel/internal/application/port"
	"github.com/avolkov/resource-sentinel/internal/domain/valueobject"
)

func wordCounter(content string) int {
	return len(strings.Fields(content))
}

func TestTokenBudgetMeasure(t *testing.T) {
	table := NewModelTable(ModelSpec{Name: "test-model", ContextWindow: 1000})
	source := func(ctx context.Context) (string, error) {
		return strings.Repeat("word ", 850), nil
	}

	p, err := NewTokenBudgetProbe("claude-session", "test-model", table, wordCounter, source)
	if err != nil {
		t.Fatalf("NewTokenBudgetProbe() error = %v", err)
	}

	snapshot, err := p.Measure(context.Background())
	if err != nil {
		t.Fatalf("Measure() error = %v", err)
	}

	if snapshot.Kind() != valueobject.TokenBudget {
		t.Errorf("Kind() = %v, want token budget", snapshot.Kind())
	}
	if snapshot.MeasuredValue() != 850 {
		t.Errorf("MeasuredValue() = %v, want 850", snapshot.MeasuredValue())
	}
	if snapshot.Limit() != 1000 {
		t.Errorf("Limit() = %v, want 1000", snapshot.Limit())
	}
	if snapshot.Ratio() != 0.85 {
		t.Errorf("Ratio() = %v, want 0.85", snapshot.Ratio())
	}
	if snapshot.Metadata()["model"] != "test-model" {
		t.Errorf("model metadata = %v, want test-model", snapshot.Metadata()["model"])
	}
}

func TestTokenBudgetUnknownModelIsFatal(t *testing.T) {
	source := func(ctx context.Context) (string, error) { return "", nil }
	p, err := NewTokenBudgetProbe("s", "no-such-model", DefaultModelTable(), wordCounter, source)
	if err != nil {
		t.Fatalf("NewTokenBudgetProbe() error = %v", err)
	}

	_, err = p.Measure(context.Background())
	if err == nil {
		t.Fatal("expected error for unknown model")
	}
	if !port.IsFatal(err) {
		t.Errorf("unknown model error must be fatal, got %v", err)
	}
}

func TestTokenBudgetSourceErrorIsTransient(t *testing.T) {
	source := func(ctx context.Context) (string, error) {
		return "", errors.New("transcript locked")
	}
	p, err := NewTokenBudgetProbe("s", "gpt-4o", DefaultModelTable(), wordCounter, source)
	if err != nil {
		t.Fatalf("NewTokenBudgetProbe() error = %v", err)
	}

	_, err = p.Measure(context.Background())
	if err == nil {
		t.Fatal("expected error from failing source")
	}
	if !port.IsTransient(err) {
		t.Errorf("source read error must be transient, got %v", err)
	}
}

func TestTokenBudgetConstructorValidation(t *testing.T) {
	source := func(ctx context.Context) (string, error) { return "", nil }

	if _, err := NewTokenBudgetProbe("", "gpt-4o", nil, wordCounter, source); err == nil {
		t.Error("expected error for empty resource id")
	}
	if _, err := NewTokenBudgetProbe("s", "gpt-4o", nil, nil, source); err == nil {
		t.Error("expected error for nil counter")
	}
	if _, err := NewTokenBudgetProbe("s", "gpt-4o", nil, wordCounter, nil); err == nil {
		t.Error("expected error for nil source")
	}
}

func TestModelTableUpdate(t *testing.T) {
	table := NewModelTable(ModelSpec{Name: "a", ContextWindow: 100})

	if _, ok := table.Lookup("b"); ok {
		t.Fatal("unexpected model b before update")
	}

	table.Update(ModelSpec{Name: "b", ContextWindow: 200}, ModelSpec{Name: "a", ContextWindow: 150})

	spec, ok := table.Lookup("a")
	if !ok || spec.ContextWindow != 150 {
		t.Errorf("Lookup(a) = (%v, %v), want updated window 150", spec, ok)
	}
	if table.Len() != 2 {
		t.Errorf("Len() = %d, want 2", table.Len())
	}
}
