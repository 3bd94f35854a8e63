package enums

import "fmt"

// ServiceType identifies the kind of service an order requests.
type ServiceType string

const (
	ServiceTypeCleaning  ServiceType = "cleaning"
	ServiceTypeCooking   ServiceType = "cooking"
	ServiceTypeChildcare ServiceType = "childcare"
)

var validServiceTypes = []ServiceType{
	ServiceTypeCleaning,
	ServiceTypeCooking,
	ServiceTypeChildcare,
}

// String implements fmt.Stringer.
func (s ServiceType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ServiceType.
func (s ServiceType) IsValid() bool {
	for _, candidate := range validServiceTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseServiceType converts raw input into a ServiceType.
func ParseServiceType(value string) (ServiceType, error) {
	for _, candidate := range validServiceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid service type %q", value)
}
