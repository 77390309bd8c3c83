package onboarding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewState_Defaults(t *testing.T) {
	s := NewState(UserData{})

	assert.False(t, s.IsComplete)
	assert.Nil(t, s.CompletedAt)
	assert.Equal(t, StepProfile, s.CurrentStep)
	assert.Equal(t, 0, s.Progress)
	assert.Len(t, s.Steps, 5)
	assert.Len(t, s.Features, 5)

	for _, step := range Steps() {
		st, ok := s.Steps[step]
		require.True(t, ok, "missing step %s", step)
		assert.False(t, st.IsComplete)
		assert.Nil(t, st.CompletedAt)
		assert.Equal(t, step.Required(), st.Required)
	}

	for _, f := range Features() {
		fs, ok := s.Features[f]
		require.True(t, ok, "missing feature %s", f)
		assert.False(t, fs.Introduced)
		assert.False(t, fs.Interacted)
	}

	assert.True(t, s.Preferences.ShowTutorials)
	assert.True(t, s.Preferences.ShowTips)
	assert.True(t, s.Preferences.EnableEmailUpdates)
}

func TestNewState_PrepopulatesName(t *testing.T) {
	s := NewState(UserData{FirstName: "Ada", LastName: "Lovelace"})
	assert.Equal(t, "Ada", s.Profile.Name.FirstName)
	assert.Equal(t, "Lovelace", s.Profile.Name.LastName)
	assert.Empty(t, s.Profile.JobTitle)
}

func TestNewState_NoSharedDefault(t *testing.T) {
	a := NewState(UserData{})
	a.Steps[StepProfile] = StepState{IsComplete: true, Required: true}
	a.Features[FeaturePlanGeneration] = FeatureStatus{Introduced: true}

	b := NewState(UserData{})
	assert.False(t, b.Steps[StepProfile].IsComplete)
	assert.False(t, b.Features[FeaturePlanGeneration].Introduced)
}

func TestCalculateProgress(t *testing.T) {
	s := NewState(UserData{})
	assert.Equal(t, 0, CalculateProgress(s))

	s, err := UpdateStepCompletion(s, StepProfile, true)
	require.NoError(t, err)
	assert.Equal(t, 33, CalculateProgress(s))

	s, err = UpdateStepCompletion(s, StepPreferences, true)
	require.NoError(t, err)
	assert.Equal(t, 67, CalculateProgress(s))

	s, err = UpdateStepCompletion(s, StepProjectSetup, true)
	require.NoError(t, err)
	assert.Equal(t, 100, CalculateProgress(s))

	// Optional steps never count toward progress.
	s, err = UpdateStepCompletion(s, StepFeatureIntro, true)
	require.NoError(t, err)
	assert.Equal(t, 100, s.Progress)
}

func TestCalculateProgress_NoRequiredSteps(t *testing.T) {
	s := State{Steps: map[Step]StepState{
		StepFeatureIntro: {Required: false},
	}}
	assert.Equal(t, 100, CalculateProgress(s))
}

func TestIsComplete(t *testing.T) {
	s := NewState(UserData{})
	assert.False(t, IsComplete(s))

	var err error
	for _, step := range []Step{StepProfile, StepPreferences, StepProjectSetup} {
		s, err = UpdateStepCompletion(s, step, true)
		require.NoError(t, err)
	}
	assert.True(t, IsComplete(s), "optional steps must not block completion")
}

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		from, to Step
		want     bool
	}{
		{StepProfile, StepPreferences, true},
		{StepProfile, StepProjectSetup, true},
		{StepProfile, StepIntegrations, false},
		{StepPreferences, StepProjectSetup, true},
		{StepPreferences, StepFeatureIntro, true},
		{StepProjectSetup, StepFeatureIntro, true},
		{StepProjectSetup, StepIntegrations, true},
		{StepFeatureIntro, StepIntegrations, true},
		{StepIntegrations, StepProfile, false},
		{StepIntegrations, StepIntegrations, false},
		{Step("unknown"), StepProfile, false},
		{StepProfile, Step("unknown"), false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsValidTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestNextRecommendedStep(t *testing.T) {
	s := NewState(UserData{})

	// Current step incomplete: stay on it.
	assert.Equal(t, StepProfile, NextRecommendedStep(s))

	// Current complete: first incomplete required step.
	s, err := UpdateStepCompletion(s, StepProfile, true)
	require.NoError(t, err)
	assert.Equal(t, StepPreferences, NextRecommendedStep(s))

	// Required before optional, regardless of order jumps.
	s, err = UpdateStepCompletion(s, StepPreferences, true)
	require.NoError(t, err)
	s, err = UpdateStepCompletion(s, StepFeatureIntro, true)
	require.NoError(t, err)
	assert.Equal(t, StepProjectSetup, NextRecommendedStep(s))

	// All required done: first incomplete optional.
	s, err = UpdateStepCompletion(s, StepProjectSetup, true)
	require.NoError(t, err)
	assert.Equal(t, StepIntegrations, NextRecommendedStep(s))

	// Everything done: last step in the fixed order.
	s, err = UpdateStepCompletion(s, StepIntegrations, true)
	require.NoError(t, err)
	assert.Equal(t, StepIntegrations, NextRecommendedStep(s))
}
