package dto

import (
	"time"

	"github.com/avolkov/resource-sentinel/internal/domain/entity"
	"github.com/avolkov/resource-sentinel/internal/domain/valueobject"
)

// AlertDTO is the stable alert shape delivered to every sink.
type AlertDTO struct {
	ID                 string    `json:"id"`
	ResourceID         string    `json:"resource_id"`
	Tier               string    `json:"tier"`
	Severity           int       `json:"severity"`
	Message            string    `json:"message"`
	ActionRequired     bool      `json:"action_required"`
	RecommendedActions []string  `json:"recommended_actions,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// FromAlert converts a domain alert into a DTO.
func FromAlert(alert *entity.Alert) *AlertDTO {
	return &AlertDTO{
		ID:                 alert.ID(),
		ResourceID:         alert.ResourceID(),
		Tier:               alert.Tier().String(),
		Severity:           int(alert.Tier()),
		Message:            alert.Message(),
		ActionRequired:     alert.ActionRequired(),
		RecommendedActions: alert.RecommendedActions(),
		CreatedAt:          alert.CreatedAt(),
	}
}

// TierValue restores the typed tier from the DTO severity field.
func (a *AlertDTO) TierValue() valueobject.Tier {
	return valueobject.Tier(a.Severity)
}
