package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avolkov/resource-sentinel/internal/application/dto"
	"github.com/avolkov/resource-sentinel/internal/application/port"
	"github.com/avolkov/resource-sentinel/internal/domain/repository"
	"github.com/avolkov/resource-sentinel/internal/domain/service"
	"github.com/avolkov/resource-sentinel/internal/domain/valueobject"
	"github.com/avolkov/resource-sentinel/pkg/logger"
)

const historyCacheTTL = 30 * time.Second

// GetSnapshotHistoryUseCase returns a resource's snapshot history with
// aggregates, cached in front of the repository.
type GetSnapshotHistoryUseCase struct {
	repository repository.SnapshotRepository
	aggregator *service.SnapshotAggregator
	policy     *service.ThresholdPolicy
	cache      port.Cache
	logger     *logger.Logger
}

func NewGetSnapshotHistoryUseCase(
	repository repository.SnapshotRepository,
	aggregator *service.SnapshotAggregator,
	policy *service.ThresholdPolicy,
	cache port.Cache,
	logger *logger.Logger,
) *GetSnapshotHistoryUseCase {
	return &GetSnapshotHistoryUseCase{
		repository: repository,
		aggregator: aggregator,
		policy:     policy,
		cache:      cache,
		logger:     logger,
	}
}

// Execute fetches the history for a resource in the given range. Results
// are cached as marshaled JSON so both the in-memory and the Redis cache
// round-trip them identically; concurrent callers for the same key share
// one repository query.
func (uc *GetSnapshotHistoryUseCase) Execute(
	ctx context.Context,
	resourceID string,
	timeRange valueobject.TimeRange,
) (*dto.SnapshotHistoryDTO, error) {
	if resourceID == "" {
		return nil, fmt.Errorf("resource id cannot be empty")
	}
	if uc.cache == nil {
		return uc.fetch(ctx, resourceID, timeRange)
	}

	key := fmt.Sprintf("history:%s:%s", resourceID, timeRange.Duration().String())
	value, hit, err := uc.cache.GetOrCompute(ctx, key, historyCacheTTL, func(ctx context.Context) (interface{}, error) {
		history, err := uc.fetch(ctx, resourceID, timeRange)
		if err != nil {
			return nil, err
		}
		return json.Marshal(history)
	})
	if err != nil {
		return nil, err
	}
	if hit {
		uc.logger.Debug("Cache hit for snapshot history", "resource_id", resourceID)
	}

	raw, ok := value.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected cached history type %T", value)
	}
	var history dto.SnapshotHistoryDTO
	if err := json.Unmarshal(raw, &history); err != nil {
		// Corrupt entry: evict so the next call recomputes.
		_ = uc.cache.Delete(ctx, key)
		return nil, fmt.Errorf("failed to decode cached history: %w", err)
	}
	return &history, nil
}

func (uc *GetSnapshotHistoryUseCase) fetch(
	ctx context.Context,
	resourceID string,
	timeRange valueobject.TimeRange,
) (*dto.SnapshotHistoryDTO, error) {
	snapshots, err := uc.repository.FindByTimeRange(ctx, resourceID, timeRange)
	if err != nil {
		uc.logger.Error("Failed to fetch snapshot history", err, "resource_id", resourceID)
		return nil, fmt.Errorf("failed to fetch snapshot history: %w", err)
	}

	history := &dto.SnapshotHistoryDTO{
		ResourceID:    resourceID,
		Snapshots:     []*dto.SnapshotDTO{},
		TierHistogram: map[string]int{},
	}
	if len(snapshots) == 0 {
		return history, nil
	}

	sorted := uc.aggregator.SortByTime(snapshots, false)
	history.Snapshots = dto.ToSnapshotDTOs(sorted)
	history.AverageRatio, _ = uc.aggregator.AverageRatio(snapshots)
	history.MinRatio, _ = uc.aggregator.MinRatio(snapshots)
	history.MaxRatio, _ = uc.aggregator.MaxRatio(snapshots)
	history.P95Ratio, _ = uc.aggregator.RatioPercentile(snapshots, 95)
	for tier, count := range uc.aggregator.TierHistogram(snapshots, uc.policy) {
		history.TierHistogram[tier.String()] = count
	}

	uc.logger.Debug("Fetched snapshot history",
		"resource_id", resourceID,
		"count", len(snapshots),
	)
	return history, nil
}
