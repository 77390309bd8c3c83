package onboarding

import (
	"math"
	"time"
)

// StepState tracks the completion of a single onboarding step.
type StepState struct {
	IsComplete  bool       `json:"isComplete"`
	CompletedAt *time.Time `json:"completedAt"`
	Required    bool       `json:"required"`
}

// Name holds a user's first and last name.
type Name struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Profile holds the profile information collected during onboarding.
type Profile struct {
	Name       Name     `json:"name"`
	JobTitle   string   `json:"jobTitle"`
	Company    string   `json:"company"`
	Industry   string   `json:"industry"`
	TeamSize   string   `json:"teamSize"`
	Experience string   `json:"experience"` // beginner, intermediate, advanced
	UseCases   []string `json:"useCases"`
}

// Preferences holds the user's onboarding display preferences.
type Preferences struct {
	ShowTutorials      bool `json:"showTutorials"`
	ShowTips           bool `json:"showTips"`
	EnableEmailUpdates bool `json:"enableEmailUpdates"`
}

// State is a user's onboarding progress document.
type State struct {
	IsComplete  bool       `json:"isComplete"`
	CompletedAt *time.Time `json:"completedAt"`
	CurrentStep Step       `json:"currentStep"`
	Progress    int        `json:"progress"`

	Steps       map[Step]StepState        `json:"steps"`
	Profile     Profile                   `json:"profile"`
	Features    map[Feature]FeatureStatus `json:"features"`
	Preferences Preferences               `json:"preferences"`
}

// UserData carries optional account information used to pre-populate a fresh
// onboarding state.
type UserData struct {
	FirstName string
	LastName  string
}

// NewState builds a fresh onboarding state: every step and feature flag
// false, progress zero, current step "profile". Each call constructs a new
// value, so there is no shared default to corrupt.
func NewState(userData UserData) State {
	steps := make(map[Step]StepState, len(Steps()))
	for _, s := range Steps() {
		steps[s] = StepState{Required: s.Required()}
	}

	features := make(map[Feature]FeatureStatus, len(Features()))
	for _, f := range Features() {
		features[f] = FeatureStatus{}
	}

	return State{
		CurrentStep: StepProfile,
		Steps:       steps,
		Profile: Profile{
			Name: Name{
				FirstName: userData.FirstName,
				LastName:  userData.LastName,
			},
			UseCases: []string{},
		},
		Features: features,
		Preferences: Preferences{
			ShowTutorials:      true,
			ShowTips:           true,
			EnableEmailUpdates: true,
		},
	}
}

// Clone returns a deep copy of the state. Mutators operate on clones so a
// caller's snapshot is never modified in place.
func (s State) Clone() State {
	out := s

	out.Steps = make(map[Step]StepState, len(s.Steps))
	for step, st := range s.Steps {
		out.Steps[step] = st
	}

	out.Features = make(map[Feature]FeatureStatus, len(s.Features))
	for f, fs := range s.Features {
		out.Features[f] = fs
	}

	if s.Profile.UseCases != nil {
		out.Profile.UseCases = make([]string, len(s.Profile.UseCases))
		copy(out.Profile.UseCases, s.Profile.UseCases)
	}

	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}

	return out
}

// CalculateProgress computes the completion percentage over required steps,
// rounded to the nearest integer. A state with no required steps counts as
// fully progressed; nothing required is trivially satisfied.
func CalculateProgress(s State) int {
	var total, completed int
	for _, st := range s.Steps {
		if !st.Required {
			continue
		}
		total++
		if st.IsComplete {
			completed++
		}
	}
	if total == 0 {
		return 100
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// IsComplete reports whether every required step has been completed.
func IsComplete(s State) bool {
	for _, st := range s.Steps {
		if st.Required && !st.IsComplete {
			return false
		}
	}
	return true
}

// NextRecommendedStep returns the step the user should work on next.
//
// If the current step is itself incomplete the user stays on it. Otherwise
// the first incomplete required step wins, then the first incomplete optional
// step, and when everything is done the last step in the fixed order.
func NextRecommendedStep(s State) Step {
	if st, ok := s.Steps[s.CurrentStep]; ok && !st.IsComplete {
		return s.CurrentStep
	}

	for _, step := range Steps() {
		if st := s.Steps[step]; st.Required && !st.IsComplete {
			return step
		}
	}

	for _, step := range Steps() {
		if st := s.Steps[step]; !st.Required && !st.IsComplete {
			return step
		}
	}

	order := Steps()
	return order[len(order)-1]
}
