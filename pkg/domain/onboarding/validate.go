package onboarding

import (
	"strconv"
	"strings"
)

// Experience levels accepted in profile data.
const (
	ExperienceBeginner     = "beginner"
	ExperienceIntermediate = "intermediate"
	ExperienceAdvanced     = "advanced"
)

// IsValidExperience checks whether the value is a known experience level.
func IsValidExperience(v string) bool {
	switch v {
	case ExperienceBeginner, ExperienceIntermediate, ExperienceAdvanced:
		return true
	}
	return false
}

// ValidationResult carries the outcome of a document validation. Errors
// accumulate; validation never stops at the first problem.
type ValidationResult struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

func resultFor(errs []string) ValidationResult {
	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

// ValidateProfile checks profile data collected during the profile step.
func ValidateProfile(p Profile) ValidationResult {
	var errs []string

	if strings.TrimSpace(p.Name.FirstName) == "" {
		errs = append(errs, "First name is required")
	}
	if strings.TrimSpace(p.Name.LastName) == "" {
		errs = append(errs, "Last name is required")
	}

	if p.Experience != "" && !IsValidExperience(p.Experience) {
		errs = append(errs, "Experience must be one of: beginner, intermediate, advanced")
	}

	if teamSize := strings.TrimSpace(p.TeamSize); teamSize != "" {
		if _, err := strconv.Atoi(teamSize); err != nil {
			errs = append(errs, "Team size must be a number")
		}
	}

	return resultFor(errs)
}

// ValidatePreferences checks an onboarding preferences update. Fields is the
// raw decoded JSON object, so a key present with the wrong type is caught
// here rather than silently coerced.
func ValidatePreferences(fields map[string]any) ValidationResult {
	var errs []string

	for _, key := range []string{"showTutorials", "showTips", "enableEmailUpdates"} {
		v, ok := fields[key]
		if !ok {
			continue
		}
		if _, isBool := v.(bool); !isBool {
			errs = append(errs, key+" must be a boolean")
		}
	}

	return resultFor(errs)
}
