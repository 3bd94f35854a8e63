package enums

import "fmt"

// CleanType distinguishes the depth of a cleaning service.
type CleanType string

const (
	CleanTypeStandard CleanType = "standard"
	CleanTypeDeep     CleanType = "deep"
)

var validCleanTypes = []CleanType{CleanTypeStandard, CleanTypeDeep}

// String implements fmt.Stringer.
func (c CleanType) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CleanType.
func (c CleanType) IsValid() bool {
	for _, candidate := range validCleanTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCleanType converts raw input into a CleanType.
func ParseCleanType(value string) (CleanType, error) {
	for _, candidate := range validCleanTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid clean type %q", value)
}
