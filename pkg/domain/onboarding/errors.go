package onboarding

import (
	"fmt"

	"github.com/planforge/api/pkg/domain/shared"
)

// Domain errors for onboarding operations.
var (
	ErrInvalidStep    = fmt.Errorf("%w: invalid onboarding step", shared.ErrValidation)
	ErrInvalidFeature = fmt.Errorf("%w: invalid feature", shared.ErrValidation)
)

// InvalidStepError creates a validation error naming the rejected step.
func InvalidStepError(step Step) error {
	return fmt.Errorf("%w: %s", ErrInvalidStep, step)
}

// InvalidFeatureError creates a validation error naming the rejected feature.
func InvalidFeatureError(feature Feature) error {
	return fmt.Errorf("%w: %s", ErrInvalidFeature, feature)
}
