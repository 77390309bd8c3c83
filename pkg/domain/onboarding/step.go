// Package onboarding provides the onboarding progress document and its
// transition rules.
//
// The document is owned by, and embedded inside, a user's account record; it
// has no identity of its own. Every mutator is a pure function taking a state
// value and returning a new one, leaving conflict resolution between
// concurrent writers to the storage layer's conditional-write semantics.
package onboarding

// Step names one stage of the fixed new-user setup flow.
type Step string

// Onboarding steps in their fixed order.
const (
	StepProfile      Step = "profile"
	StepPreferences  Step = "preferences"
	StepProjectSetup Step = "projectSetup"
	StepFeatureIntro Step = "featureIntro"
	StepIntegrations Step = "integrations"
)

// Steps returns the fixed step order.
func Steps() []Step {
	return []Step{StepProfile, StepPreferences, StepProjectSetup, StepFeatureIntro, StepIntegrations}
}

// IsValid checks if the step is a known step name.
func (s Step) IsValid() bool {
	switch s {
	case StepProfile, StepPreferences, StepProjectSetup, StepFeatureIntro, StepIntegrations:
		return true
	}
	return false
}

// String returns the string representation of the step.
func (s Step) String() string {
	return string(s)
}

// Required reports whether the step must be completed for the onboarding to
// count as complete.
func (s Step) Required() bool {
	switch s {
	case StepProfile, StepPreferences, StepProjectSetup:
		return true
	}
	return false
}

// stepTransitions maps each step to the steps it may advance to.
var stepTransitions = map[Step][]Step{
	StepProfile:      {StepPreferences, StepProjectSetup},
	StepPreferences:  {StepProjectSetup, StepFeatureIntro},
	StepProjectSetup: {StepFeatureIntro, StepIntegrations},
	StepFeatureIntro: {StepIntegrations},
	StepIntegrations: {},
}

// IsValidTransition reports whether moving from one step to another follows
// the fixed transition graph. Unknown steps never transition.
func IsValidTransition(from, to Step) bool {
	for _, next := range stepTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
