package enums

import "fmt"

// AuditAction names an administrative action recorded in the audit log.
type AuditAction string

const (
	AuditActionStatusOverride AuditAction = "status_override"
	AuditActionPriceOverride  AuditAction = "price_override"
	AuditActionUserActivation AuditAction = "user_activation"
)

var validAuditActions = []AuditAction{
	AuditActionStatusOverride,
	AuditActionPriceOverride,
	AuditActionUserActivation,
}

// String implements fmt.Stringer.
func (a AuditAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AuditAction.
func (a AuditAction) IsValid() bool {
	for _, candidate := range validAuditActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditAction converts raw input into an AuditAction.
func ParseAuditAction(value string) (AuditAction, error) {
	for _, candidate := range validAuditActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit action %q", value)
}
