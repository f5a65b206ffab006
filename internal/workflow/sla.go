package workflow

import "github.com/spec-kit/maintenance-service/internal/domain"

// EscalationThresholdDays is the SLA min-day value at which a corrective
// request needs DUSP approval before a vendor can be assigned.
const EscalationThresholdDays = 15

// RequiresApproval reports whether the category routes through the DUSP step.
func RequiresApproval(category *domain.SlaCategory) bool {
	return category != nil && category.MinDay >= EscalationThresholdDays
}
