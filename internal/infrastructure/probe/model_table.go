package probe

import (
	"context"
	"fmt"
	"sync/atomic"
)

// ModelSpec describes one language model's context budget.
type ModelSpec struct {
	Name          string
	ContextWindow int
}

// ModelTable maps model names to specs. The table is read-mostly and
// shared across sessions; updates replace the whole map copy-on-write so
// concurrent readers never observe a partial update.
type ModelTable struct {
	specs atomic.Value // map[string]ModelSpec
}

// NewModelTable builds a table from the given specs.
func NewModelTable(specs ...ModelSpec) *ModelTable {
	t := &ModelTable{}
	m := make(map[string]ModelSpec, len(specs))
	for _, spec := range specs {
		m[spec.Name] = spec
	}
	t.specs.Store(m)
	return t
}

// DefaultModelTable returns a table seeded with commonly used models.
func DefaultModelTable() *ModelTable {
	return NewModelTable(
		ModelSpec{Name: "claude-3-5-sonnet", ContextWindow: 200000},
		ModelSpec{Name: "claude-3-opus", ContextWindow: 200000},
		ModelSpec{Name: "gpt-4o", ContextWindow: 128000},
		ModelSpec{Name: "gpt-4-turbo", ContextWindow: 128000},
		ModelSpec{Name: "gemini-1.5-pro", ContextWindow: 1000000},
		ModelSpec{Name: "llama-3-70b", ContextWindow: 8192},
	)
}

// Lookup returns the spec for a model name.
func (t *ModelTable) Lookup(name string) (ModelSpec, bool) {
	m := t.specs.Load().(map[string]ModelSpec)
	spec, ok := m[name]
	return spec, ok
}

// Update replaces or adds specs. The current map is copied, modified and
// swapped in atomically.
func (t *ModelTable) Update(specs ...ModelSpec) {
	old := t.specs.Load().(map[string]ModelSpec)
	next := make(map[string]ModelSpec, len(old)+len(specs))
	for name, spec := range old {
		next[name] = spec
	}
	for _, spec := range specs {
		next[spec.Name] = spec
	}
	t.specs.Store(next)
}

// WindowSource resolves the current context window for a model.
type WindowSource interface {
	ContextWindow(ctx context.Context, model string) (int, error)
}

// Refresh re-resolves the context window of each named model and swaps
// the results in. Models that fail to resolve keep their current spec;
// the first resolution error is returned after the pass completes.
func (t *ModelTable) Refresh(ctx context.Context, src WindowSource, models ...string) error {
	var updated []ModelSpec
	var firstErr error
	for _, name := range models {
		window, err := src.ContextWindow(ctx, name)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("refresh %s: %w", name, err)
			}
			continue
		}
		if window > 0 {
			updated = append(updated, ModelSpec{Name: name, ContextWindow: window})
		}
	}
	if len(updated) > 0 {
		t.Update(updated...)
	}
	return firstErr
}

// Len returns the number of known models.
func (t *ModelTable) Len() int {
	return len(t.specs.Load().(map[string]ModelSpec))
}

func (s ModelSpec) String() string {
	return fmt.Sprintf("%s(%d)", s.Name, s.ContextWindow)
}
