package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/avolkov/resource-sentinel/internal/application/port"
	"github.com/avolkov/resource-sentinel/internal/domain/entity"
	"github.com/avolkov/resource-sentinel/internal/domain/valueobject"
)

// TokenCounter counts tokens in a piece of content. The exact counting
// rule is model specific and supplied by the caller.
type TokenCounter func(content string) int

// ContentSource yields the content whose token footprint is measured.
type ContentSource func(ctx context.Context) (string, error)

// TokenBudgetProbe measures token consumption against a model's context
// window.
type TokenBudgetProbe struct {
	resourceID string
	model      string
	table      *ModelTable
	counter    TokenCounter
	source     ContentSource
}

func NewTokenBudgetProbe(
	resourceID string,
	model string,
	table *ModelTable,
	counter TokenCounter,
	source ContentSource,
) (*TokenBudgetProbe, error) {
	if resourceID == "" {
		return nil, fmt.Errorf("resource id cannot be empty")
	}
	if table == nil {
		table = DefaultModelTable()
	}
	if counter == nil {
		return nil, fmt.Errorf("token counter is required")
	}
	if source == nil {
		return nil, fmt.Errorf("content source is required")
	}
	return &TokenBudgetProbe{
		resourceID: resourceID,
		model:      model,
		table:      table,
		counter:    counter,
		source:     source,
	}, nil
}

func (p *TokenBudgetProbe) ResourceID() string {
	return p.resourceID
}

// Measure counts tokens in the current content against the model's
// context window. An unknown model is a permanent failure; a source read
// error is transient.
func (p *TokenBudgetProbe) Measure(ctx context.Context) (*entity.Snapshot, error) {
	spec, ok := p.table.Lookup(p.model)
	if !ok {
		return nil, port.FatalError(fmt.Errorf("unknown model %q", p.model))
	}

	content, err := p.source(ctx)
	if err != nil {
		return nil, port.TransientError(fmt.Errorf("read content: %w", err))
	}

	consumed := p.counter(content)
	snapshot, err := entity.NewSnapshot(
		p.resourceID,
		valueobject.TokenBudget,
		float64(consumed),
		float64(spec.ContextWindow),
		time.Now(),
	)
	if err != nil {
		return nil, port.FatalError(err)
	}
	snapshot.SetMetadata("model", spec.Name)
	snapshot.SetMetadata("context_window", spec.ContextWindow)
	snapshot.SetMetadata("content_bytes", len(content))
	return snapshot, nil
}
