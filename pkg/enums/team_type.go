package enums

import "fmt"

// TeamType distinguishes whether a cleaning order is served solo or by a crew.
type TeamType string

const (
	TeamTypeSolo TeamType = "solo"
	TeamTypeCrew TeamType = "crew"
)

var validTeamTypes = []TeamType{TeamTypeSolo, TeamTypeCrew}

// String implements fmt.Stringer.
func (t TeamType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TeamType.
func (t TeamType) IsValid() bool {
	for _, candidate := range validTeamTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTeamType converts raw input into a TeamType.
func ParseTeamType(value string) (TeamType, error) {
	for _, candidate := range validTeamTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid team type %q", value)
}
