package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/avolkov/resource-sentinel/internal/application/port"
	"github.com/avolkov/resource-sentinel/internal/domain/entity"
	"github.com/avolkov/resource-sentinel/internal/domain/valueobject"
)

// GaugeKind selects which host resource a SystemGaugeProbe measures.
type GaugeKind string

const (
	GaugeMemory GaugeKind = "memory"
	GaugeCPU    GaugeKind = "cpu"
	GaugeDisk   GaugeKind = "disk"
)

// SystemGaugeProbe measures host resource consumption via gopsutil.
type SystemGaugeProbe struct {
	resourceID string
	gauge      GaugeKind
	diskPath   string
}

func NewSystemGaugeProbe(resourceID string, gauge GaugeKind, diskPath string) (*SystemGaugeProbe, error) {
	if resourceID == "" {
		return nil, fmt.Errorf("resource id cannot be empty")
	}
	switch gauge {
	case GaugeMemory, GaugeCPU, GaugeDisk:
	default:
		return nil, fmt.Errorf("unknown gauge kind %q", gauge)
	}
	if diskPath == "" {
		diskPath = "/"
	}
	return &SystemGaugeProbe{
		resourceID: resourceID,
		gauge:      gauge,
		diskPath:   diskPath,
	}, nil
}

func (p *SystemGaugeProbe) ResourceID() string {
	return p.resourceID
}

// Measure reads the selected gauge. gopsutil failures are transient;
// the host does not become permanently unmeasurable.
func (p *SystemGaugeProbe) Measure(ctx context.Context) (*entity.Snapshot, error) {
	switch p.gauge {
	case GaugeMemory:
		return p.measureMemory(ctx)
	case GaugeCPU:
		return p.measureCPU(ctx)
	default:
		return p.measureDisk(ctx)
	}
}

func (p *SystemGaugeProbe) measureMemory(ctx context.Context) (*entity.Snapshot, error) {
	vmStat, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, port.TransientError(fmt.Errorf("read virtual memory: %w", err))
	}

	snapshot, err := entity.NewSnapshot(
		p.resourceID,
		valueobject.System,
		float64(vmStat.Used),
		float64(vmStat.Total),
		time.Now(),
	)
	if err != nil {
		return nil, port.FatalError(err)
	}
	snapshot.SetMetadata("gauge", string(GaugeMemory))
	snapshot.SetMetadata("total_mb", vmStat.Total/1024/1024)
	snapshot.SetMetadata("used_mb", vmStat.Used/1024/1024)
	snapshot.SetMetadata("free_mb", vmStat.Free/1024/1024)
	return snapshot, nil
}

func (p *SystemGaugeProbe) measureCPU(ctx context.Context) (*entity.Snapshot, error) {
	// Sampling over a full second is too slow inside a probe timeout;
	// interval 0 compares against the previous call instead.
	percentages, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return nil, port.TransientError(fmt.Errorf("read cpu usage: %w", err))
	}
	if len(percentages) == 0 {
		return nil, port.TransientError(fmt.Errorf("no cpu usage reported"))
	}
	cores, _ := cpu.Counts(true)

	snapshot, err := entity.NewSnapshot(
		p.resourceID,
		valueobject.System,
		percentages[0],
		100,
		time.Now(),
	)
	if err != nil {
		return nil, port.FatalError(err)
	}
	snapshot.SetMetadata("gauge", string(GaugeCPU))
	snapshot.SetMetadata("cores", cores)
	return snapshot, nil
}

func (p *SystemGaugeProbe) measureDisk(ctx context.Context) (*entity.Snapshot, error) {
	usage, err := disk.UsageWithContext(ctx, p.diskPath)
	if err != nil {
		return nil, port.TransientError(fmt.Errorf("read disk usage for %s: %w", p.diskPath, err))
	}

	snapshot, err := entity.NewSnapshot(
		p.resourceID,
		valueobject.System,
		float64(usage.Used),
		float64(usage.Total),
		time.Now(),
	)
	if err != nil {
		return nil, port.FatalError(err)
	}
	snapshot.SetMetadata("gauge", string(GaugeDisk))
	snapshot.SetMetadata("path", p.diskPath)
	snapshot.SetMetadata("total_gb", usage.Total/1024/1024/1024)
	snapshot.SetMetadata("used_gb", usage.Used/1024/1024/1024)
	return snapshot, nil
}
