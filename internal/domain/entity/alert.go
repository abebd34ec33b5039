package entity

import (
	"errors"
	"time"

	"github.com/avolkov/resource-sentinel/internal/domain/valueobject"
	"github.com/google/uuid"
)

// Alert is a notification produced on a tier transition. Alerts carry a
// unique id so at-least-once listeners can deduplicate.
type Alert struct {
	id                 string
	resourceID         string
	tier               valueobject.Tier
	message            string
	actionRequired     bool
	recommendedActions []string
	createdAt          time.Time
}

// NewAlert creates an alert for a resource at the given tier (Factory Method).
func NewAlert(
	resourceID string,
	tier valueobject.Tier,
	message string,
	actionRequired bool,
	recommendedActions []string,
) (*Alert, error) {
	if resourceID == "" {
		return nil, errors.New("resource id cannot be empty")
	}
	if err := tier.Validate(); err != nil {
		return nil, err
	}
	if message == "" {
		return nil, errors.New("alert message cannot be empty")
	}

	actions := make([]string, len(recommendedActions))
	copy(actions, recommendedActions)

	return &Alert{
		id:                 uuid.New().String(),
		resourceID:         resourceID,
		tier:               tier,
		message:            message,
		actionRequired:     actionRequired,
		recommendedActions: actions,
		createdAt:          time.Now(),
	}, nil
}

// ID returns the unique alert identifier.
func (a *Alert) ID() string {
	return a.id
}

// ResourceID returns the resource the alert concerns.
func (a *Alert) ResourceID() string {
	return a.resourceID
}

// Tier returns the severity tier of the alert.
func (a *Alert) Tier() valueobject.Tier {
	return a.tier
}

// Message returns the human-readable alert message.
func (a *Alert) Message() string {
	return a.message
}

// ActionRequired reports whether a human must intervene.
func (a *Alert) ActionRequired() bool {
	return a.actionRequired
}

// RecommendedActions returns a copy of the suggested follow-up actions.
func (a *Alert) RecommendedActions() []string {
	result := make([]string, len(a.recommendedActions))
	copy(result, a.recommendedActions)
	return result
}

// CreatedAt returns the alert creation time.
func (a *Alert) CreatedAt() time.Time {
	return a.createdAt
}
