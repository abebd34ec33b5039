package research

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/avolkov/resource-sentinel/internal/application/port"
	"github.com/avolkov/resource-sentinel/pkg/logger"
)

// Searcher runs research queries.
type Searcher interface {
	Search(ctx context.Context, req *Request) (*Response, error)
}

// CachedClient puts a TTL cache in front of a research backend. Repeated
// queries within the TTL are served from cache, and concurrent identical
// queries share a single backend call.
type CachedClient struct {
	backend Searcher
	cache   port.Cache
	ttl     time.Duration
	logger  *logger.Logger
}

func NewCachedClient(backend Searcher, cache port.Cache, ttl time.Duration, log *logger.Logger) *CachedClient {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedClient{
		backend: backend,
		cache:   cache,
		ttl:     ttl,
		logger:  log,
	}
}

// Search serves the query from cache when possible. Cached responses are
// stored as marshaled JSON so the in-memory and Redis caches behave the
// same; a corrupt entry is evicted and recomputed.
func (c *CachedClient) Search(ctx context.Context, req *Request) (*Response, error) {
	if req == nil || req.Query == "" {
		return nil, port.FatalError(fmt.Errorf("research query cannot be empty"))
	}
	key := cacheKey(req)

	value, hit, err := c.cache.GetOrCompute(ctx, key, c.ttl, func(ctx context.Context) (interface{}, error) {
		resp, err := c.backend.Search(ctx, req)
		if err != nil {
			return nil, err
		}
		return json.Marshal(resp)
	})
	if err != nil {
		return nil, err
	}

	raw, ok := value.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected cached research type %T", value)
	}
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.logger.Warn("Evicting corrupt cached research entry", "key", key)
		_ = c.cache.Delete(ctx, key)
		return c.Search(ctx, req)
	}
	if hit {
		c.logger.Debug("Research cache hit", "key", key)
	}
	return &resp, nil
}

// cacheKey normalizes a request so logically identical queries share one
// entry regardless of casing, whitespace or source ordering.
func cacheKey(req *Request) string {
	sources := make([]string, len(req.Sources))
	for i, s := range req.Sources {
		sources[i] = strings.ToLower(strings.TrimSpace(s))
	}
	sort.Strings(sources)

	return fmt.Sprintf("research:%s:%s:%s",
		strings.ToLower(strings.Join(strings.Fields(req.Query), " ")),
		strings.ToLower(strings.TrimSpace(req.Focus)),
		strings.Join(sources, ","),
	)
}
