// Package validator provides struct validation utilities with custom validators.
package validator

import (
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/planforge/api/pkg/domain/onboarding"
	"github.com/planforge/api/pkg/domain/project"
	"github.com/planforge/api/pkg/domain/role"
	"github.com/planforge/api/pkg/domain/user"
)

// slugRegex validates slugs: lowercase letters, numbers, hyphens
// Must start and end with alphanumeric, no consecutive hyphens
var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// roles backs the role tag; the registry is read-only after init.
var roles = role.Builtin()

// Validator wraps the go-playground validator with custom validations.
type Validator struct {
	validate *validator.Validate
}

// ValidationError represents a single field validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, e := range v {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return sb.String()
}

// New creates a new Validator with custom validators registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("role", validateRole)
	_ = v.RegisterValidation("user_status", validateUserStatus)
	_ = v.RegisterValidation("onboarding_step", validateOnboardingStep)
	_ = v.RegisterValidation("onboarding_feature", validateOnboardingFeature)
	_ = v.RegisterValidation("experience_level", validateExperienceLevel)
	_ = v.RegisterValidation("project_status", validateProjectStatus)
	_ = v.RegisterValidation("settings_section", validateSettingsSection)
	_ = v.RegisterValidation("slug", validateSlug)

	return &Validator{validate: v}
}

// Validate validates a struct and returns ValidationErrors if validation fails.
func (v *Validator) Validate(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !stderrors.As(err, &validationErrors) {
		return err
	}

	result := make(ValidationErrors, 0, len(validationErrors))
	for _, e := range validationErrors {
		result = append(result, ValidationError{
			Field:   toSnakeCase(e.Field()),
			Message: formatErrorMessage(e),
		})
	}

	return result
}

// validateRole validates that a string is a registered role name.
func validateRole(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let 'required' handle empty values
	}
	return roles.Exists(value)
}

// validateUserStatus validates that a string is a valid account Status.
func validateUserStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let 'required' handle empty values
	}
	return user.Status(value).IsValid()
}

// validateOnboardingStep validates that a string is a known onboarding step.
func validateOnboardingStep(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let 'required' handle empty values
	}
	return onboarding.Step(value).IsValid()
}

// validateOnboardingFeature validates that a string is a tracked feature name.
func validateOnboardingFeature(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let 'required' handle empty values
	}
	return onboarding.Feature(value).IsValid()
}

// validateExperienceLevel validates that a string is a known experience level.
func validateExperienceLevel(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let 'required' handle empty values
	}
	return onboarding.IsValidExperience(value)
}

// validateProjectStatus validates that a string is a valid project Status.
func validateProjectStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let 'required' handle empty values
	}
	return project.Status(value).IsValid()
}

// validateSettingsSection validates that a string names a settings section.
func validateSettingsSection(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let 'required' handle empty values
	}
	for _, section := range user.SettingsSections() {
		if value == section {
			return true
		}
	}
	return false
}

// validateSlug validates that a string is a valid URL slug.
// Valid: lowercase letters, numbers, hyphens. Must start/end with alphanumeric.
// Examples: "my-project", "acme-corp", "plan123"
func validateSlug(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let 'required' handle empty values
	}
	return slugRegex.MatchString(value)
}

// formatErrorMessage converts validation errors to human-readable messages.
func formatErrorMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", e.Param())
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "role":
		return fmt.Sprintf("must be one of: %s", strings.Join(roles.Names(), ", "))
	case "user_status":
		return "must be one of: active, inactive, suspended"
	case "onboarding_step":
		return fmt.Sprintf("must be one of: %s", formatSteps())
	case "onboarding_feature":
		return fmt.Sprintf("must be one of: %s", formatFeatures())
	case "experience_level":
		return "must be one of: beginner, intermediate, advanced"
	case "project_status":
		return "must be one of: draft, planning, active, archived"
	case "settings_section":
		return fmt.Sprintf("must be one of: %s", strings.Join(user.SettingsSections(), ", "))
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	case "uuid":
		return "must be a valid UUID"
	case "slug":
		return "must be a valid slug (lowercase letters, numbers, hyphens only)"
	default:
		return fmt.Sprintf("failed on '%s' validation", e.Tag())
	}
}

// toSnakeCase converts PascalCase/camelCase to snake_case.
func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteByte('_')
		}
		result.WriteRune(r)
	}
	return strings.ToLower(result.String())
}

// formatSteps returns a comma-separated list of valid onboarding steps.
func formatSteps() string {
	steps := onboarding.Steps()
	strs := make([]string, len(steps))
	for i, s := range steps {
		strs[i] = string(s)
	}
	return strings.Join(strs, ", ")
}

// formatFeatures returns a comma-separated list of tracked features.
func formatFeatures() string {
	features := onboarding.Features()
	strs := make([]string, len(features))
	for i, f := range features {
		strs[i] = string(f)
	}
	return strings.Join(strs, ", ")
}
