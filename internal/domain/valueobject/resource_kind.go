package valueobject

import "errors"

// ResourceKind identifies the kind of bounded resource a probe measures (Value Object)
type ResourceKind string

const (
	TokenBudget ResourceKind = "token_budget"
	Dependency  ResourceKind = "dependency"
	Task        ResourceKind = "task"
	System      ResourceKind = "system"
)

// Validate checks the kind is one of the supported resource kinds.
func (rk ResourceKind) Validate() error {
	switch rk {
	case TokenBudget, Dependency, Task, System:
		return nil
	default:
		return errors.New("invalid resource kind")
	}
}

// String returns the string representation of the resource kind.
func (rk ResourceKind) String() string {
	return string(rk)
}

// AllResourceKinds returns the list of supported resource kinds.
func AllResourceKinds() []ResourceKind {
	return []ResourceKind{TokenBudget, Dependency, Task, System}
}
