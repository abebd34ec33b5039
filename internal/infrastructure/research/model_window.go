package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/avolkov/resource-sentinel/internal/application/port"
)

// ModelWindowResolver resolves model context window sizes through the
// research backend. It satisfies the probe layer's WindowSource so model
// tables can be refreshed remotely.
type ModelWindowResolver struct {
	searcher Searcher
}

func NewModelWindowResolver(searcher Searcher) *ModelWindowResolver {
	return &ModelWindowResolver{searcher: searcher}
}

// ContextWindow resolves the current context window for a model.
func (r *ModelWindowResolver) ContextWindow(ctx context.Context, model string) (int, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return 0, port.FatalError(fmt.Errorf("model name cannot be empty"))
	}

	resp, err := r.searcher.Search(ctx, &Request{
		Query:   "context window size of " + model,
		Focus:   "model-spec",
		Sources: []string{"model-cards"},
	})
	if err != nil {
		return 0, err
	}

	if v, ok := resp.Data["context_window"].(float64); ok && v > 0 {
		return int(v), nil
	}
	return 0, port.TransientError(fmt.Errorf("research answer for %s carried no context window", model))
}
