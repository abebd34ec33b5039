package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/avolkov/resource-sentinel/internal/application/port"
	"github.com/avolkov/resource-sentinel/internal/domain/entity"
	"github.com/avolkov/resource-sentinel/internal/domain/valueobject"
)

// TaskRecord is one unit of tracked work with its quality dimensions.
type TaskRecord struct {
	ID        string
	Completed bool
	Quality   map[string]float64
}

// TaskSource yields the current set of tracked tasks.
type TaskSource func(ctx context.Context) ([]TaskRecord, error)

// TaskStatusProbe measures how much tracked work is unfinished or below
// the quality floor. The ratio is failing over total tasks.
type TaskStatusProbe struct {
	resourceID   string
	source       TaskSource
	qualityFloor float64
}

func NewTaskStatusProbe(resourceID string, source TaskSource, qualityFloor float64) (*TaskStatusProbe, error) {
	if resourceID == "" {
		return nil, fmt.Errorf("resource id cannot be empty")
	}
	if source == nil {
		return nil, fmt.Errorf("task source is required")
	}
	if qualityFloor < 0 || qualityFloor > 100 {
		return nil, fmt.Errorf("quality floor must be between 0 and 100")
	}
	return &TaskStatusProbe{
		resourceID:   resourceID,
		source:       source,
		qualityFloor: qualityFloor,
	}, nil
}

func (p *TaskStatusProbe) ResourceID() string {
	return p.resourceID
}

// Measure counts tasks that are incomplete or whose worst quality
// dimension falls below the floor.
func (p *TaskStatusProbe) Measure(ctx context.Context) (*entity.Snapshot, error) {
	tasks, err := p.source(ctx)
	if err != nil {
		return nil, port.TransientError(fmt.Errorf("read tasks: %w", err))
	}
	if len(tasks) == 0 {
		return nil, port.FatalError(fmt.Errorf("no tasks tracked for %s", p.resourceID))
	}

	failing := 0
	var failingIDs []string
	for _, task := range tasks {
		if !task.Completed || p.belowFloor(task) {
			failing++
			failingIDs = append(failingIDs, task.ID)
		}
	}

	snapshot, err := entity.NewSnapshot(
		p.resourceID,
		valueobject.Task,
		float64(failing),
		float64(len(tasks)),
		time.Now(),
	)
	if err != nil {
		return nil, port.FatalError(err)
	}
	snapshot.SetMetadata("total_tasks", len(tasks))
	snapshot.SetMetadata("failing_tasks", failingIDs)
	snapshot.SetMetadata("quality_floor", p.qualityFloor)
	return snapshot, nil
}

func (p *TaskStatusProbe) belowFloor(task TaskRecord) bool {
	for _, score := range task.Quality {
		if score < p.qualityFloor {
			return true
		}
	}
	return false
}
