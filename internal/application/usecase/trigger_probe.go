package usecase

import (
	"fmt"

	"github.com/avolkov/resource-sentinel/pkg/logger"
)

// ProbeTrigger runs an immediate probe for one resource.
type ProbeTrigger interface {
	CheckNow(resourceID string) error
}

// TriggerProbeUseCase fires a one-shot probe outside the regular schedule.
type TriggerProbeUseCase struct {
	trigger ProbeTrigger
	logger  *logger.Logger
}

func NewTriggerProbeUseCase(trigger ProbeTrigger, logger *logger.Logger) *TriggerProbeUseCase {
	return &TriggerProbeUseCase{
		trigger: trigger,
		logger:  logger,
	}
}

// Execute triggers an immediate probe and waits for its outcome.
func (uc *TriggerProbeUseCase) Execute(resourceID string) error {
	if resourceID == "" {
		return fmt.Errorf("resource id cannot be empty")
	}
	uc.logger.Info("Manual probe triggered", "resource_id", resourceID)
	if err := uc.trigger.CheckNow(resourceID); err != nil {
		return fmt.Errorf("manual probe for %s failed: %w", resourceID, err)
	}
	return nil
}
