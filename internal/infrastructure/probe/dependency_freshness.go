package probe

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/avolkov/resource-sentinel/internal/application/port"
	"github.com/avolkov/resource-sentinel/internal/domain/entity"
	"github.com/avolkov/resource-sentinel/internal/domain/valueobject"
)

// RegistryClient resolves the latest published version of a package.
type RegistryClient interface {
	LatestVersion(ctx context.Context, name string) (string, error)
}

// ManifestReader yields the currently installed dependency set as
// name -> version.
type ManifestReader func(ctx context.Context) (map[string]string, error)

// DependencyFreshnessProbe measures how many installed dependencies lag
// behind their registry's latest release. The ratio is outdated over
// total, so a fully current manifest reads 0.0.
type DependencyFreshnessProbe struct {
	resourceID string
	registry   RegistryClient
	manifest   ManifestReader
}

func NewDependencyFreshnessProbe(
	resourceID string,
	registry RegistryClient,
	manifest ManifestReader,
) (*DependencyFreshnessProbe, error) {
	if resourceID == "" {
		return nil, fmt.Errorf("resource id cannot be empty")
	}
	if registry == nil {
		return nil, fmt.Errorf("registry client is required")
	}
	if manifest == nil {
		return nil, fmt.Errorf("manifest reader is required")
	}
	return &DependencyFreshnessProbe{
		resourceID: resourceID,
		registry:   registry,
		manifest:   manifest,
	}, nil
}

func (p *DependencyFreshnessProbe) ResourceID() string {
	return p.resourceID
}

// Measure compares every installed dependency against the registry.
// Manifest and registry failures are transient; an empty manifest is a
// permanent misconfiguration.
func (p *DependencyFreshnessProbe) Measure(ctx context.Context) (*entity.Snapshot, error) {
	installed, err := p.manifest(ctx)
	if err != nil {
		return nil, port.TransientError(fmt.Errorf("read manifest: %w", err))
	}
	if len(installed) == 0 {
		return nil, port.FatalError(fmt.Errorf("manifest for %s lists no dependencies", p.resourceID))
	}

	var outdated []string
	for name, version := range installed {
		latest, err := p.registry.LatestVersion(ctx, name)
		if err != nil {
			return nil, port.TransientError(fmt.Errorf("lookup %s: %w", name, err))
		}
		if versionLess(version, latest) {
			outdated = append(outdated, fmt.Sprintf("%s %s->%s", name, version, latest))
		}
	}
	sort.Strings(outdated)

	snapshot, err := entity.NewSnapshot(
		p.resourceID,
		valueobject.Dependency,
		float64(len(outdated)),
		float64(len(installed)),
		time.Now(),
	)
	if err != nil {
		return nil, port.FatalError(err)
	}
	snapshot.SetMetadata("total", len(installed))
	snapshot.SetMetadata("outdated", outdated)
	return snapshot, nil
}

// versionLess reports whether installed is older than latest, comparing
// dotted numeric segments. Non-numeric segments fall back to string
// comparison.
func versionLess(installed, latest string) bool {
	a := strings.Split(strings.TrimPrefix(installed, "v"), ".")
	b := strings.Split(strings.TrimPrefix(latest, "v"), ".")
	for i := 0; i < len(a) && i < len(b); i++ {
		an, aerr := strconv.Atoi(a[i])
		bn, berr := strconv.Atoi(b[i])
		if aerr != nil || berr != nil {
			if a[i] != b[i] {
				return a[i] < b[i]
			}
			continue
		}
		if an != bn {
			return an < bn
		}
	}
	return len(a) < len(b)
}
