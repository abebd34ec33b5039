package usecase

import (
	"github.com/avolkov/resource-sentinel/internal/application/dto"
	"github.com/avolkov/resource-sentinel/pkg/logger"
)

// StatusReporter aggregates per-session metrics into one report.
type StatusReporter interface {
	Report() *dto.EngineReportDTO
}

// GetEngineStatusUseCase exposes the engine-wide status report.
type GetEngineStatusUseCase struct {
	reporter StatusReporter
	logger   *logger.Logger
}

func NewGetEngineStatusUseCase(reporter StatusReporter, logger *logger.Logger) *GetEngineStatusUseCase {
	return &GetEngineStatusUseCase{
		reporter: reporter,
		logger:   logger,
	}
}

// Execute returns the current aggregated status of all sessions.
func (uc *GetEngineStatusUseCase) Execute() *dto.EngineReportDTO {
	report := uc.reporter.Report()
	uc.logger.Debug("Engine status report generated",
		"sessions", len(report.Sessions),
		"healthy", report.Healthy,
	)
	return report
}
