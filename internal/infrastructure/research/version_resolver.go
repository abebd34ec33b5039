package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/avolkov/resource-sentinel/internal/application/port"
)

// VersionResolver answers latest-version lookups through the research
// backend. It satisfies the dependency freshness probe's RegistryClient;
// wrapping a CachedClient keeps repeated lookups off the wire.
type VersionResolver struct {
	searcher Searcher
}

func NewVersionResolver(searcher Searcher) *VersionResolver {
	return &VersionResolver{searcher: searcher}
}

// LatestVersion resolves the newest published version of a package.
func (r *VersionResolver) LatestVersion(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", port.FatalError(fmt.Errorf("package name cannot be empty"))
	}

	resp, err := r.searcher.Search(ctx, &Request{
		Query:   "latest release of " + name,
		Focus:   "dependency-version",
		Sources: []string{"registry"},
	})
	if err != nil {
		return "", err
	}

	if v, ok := resp.Data["latest_version"].(string); ok && v != "" {
		return v, nil
	}
	return "", port.TransientError(fmt.Errorf("research answer for %s carried no version", name))
}
