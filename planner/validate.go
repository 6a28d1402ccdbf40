package planner

import (
	"fmt"
	"regexp"
)

var versionPattern = regexp.MustCompile(`^\d+\.\d+$`)

// ValidateAction checks that an action conforms to the v1.0 action schema.
func ValidateAction(a Action) (bool, string) {
	if a.Kind == "" {
		return false, "kind must be non-empty"
	}
	if !versionPattern.MatchString(a.Version) {
		return false, fmt.Sprintf("version must match pattern 'X.Y', got: %s", a.Version)
	}
	return true, "valid"
}

// ValidatePlan checks every action in a plan.
func ValidatePlan(p Plan) (bool, string) {
	for i, a := range p {
		if ok, reason := ValidateAction(a); !ok {
			return false, fmt.Sprintf("action %d: %s", i, reason)
		}
	}
	return true, "valid"
}
