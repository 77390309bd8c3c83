package onboarding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planforge/api/pkg/domain/shared"
)

func TestUpdateStepCompletion_CompleteAndUncomplete(t *testing.T) {
	s := NewState(UserData{})

	s1, err := UpdateStepCompletion(s, StepProfile, true)
	require.NoError(t, err)
	assert.True(t, s1.Steps[StepProfile].IsComplete)
	assert.NotNil(t, s1.Steps[StepProfile].CompletedAt)
	assert.Equal(t, 33, s1.Progress)

	// Original snapshot untouched.
	assert.False(t, s.Steps[StepProfile].IsComplete)
	assert.Equal(t, 0, s.Progress)

	s2, err := UpdateStepCompletion(s1, StepProfile, false)
	require.NoError(t, err)
	assert.False(t, s2.Steps[StepProfile].IsComplete)
	assert.Nil(t, s2.Steps[StepProfile].CompletedAt)
	assert.Equal(t, 0, s2.Progress)
}

func TestUpdateStepCompletion_AggregateFlip(t *testing.T) {
	s := NewState(UserData{})
	var err error

	s, err = UpdateStepCompletion(s, StepProfile, true)
	require.NoError(t, err)
	assert.False(t, s.IsComplete)
	assert.Nil(t, s.CompletedAt)

	s, err = UpdateStepCompletion(s, StepPreferences, true)
	require.NoError(t, err)
	assert.False(t, s.IsComplete)

	// Completing the last required step flips the aggregate exactly here.
	s, err = UpdateStepCompletion(s, StepProjectSetup, true)
	require.NoError(t, err)
	assert.True(t, s.IsComplete)
	require.NotNil(t, s.CompletedAt)
	assert.Equal(t, 100, s.Progress)

	firstCompletedAt := *s.CompletedAt

	// A no-op-shaped update (completing an optional step) must not clobber
	// the aggregate timestamp.
	s, err = UpdateStepCompletion(s, StepFeatureIntro, true)
	require.NoError(t, err)
	assert.True(t, s.IsComplete)
	require.NotNil(t, s.CompletedAt)
	assert.Equal(t, firstCompletedAt, *s.CompletedAt)

	// Un-completing a required step clears the aggregate.
	s, err = UpdateStepCompletion(s, StepPreferences, false)
	require.NoError(t, err)
	assert.False(t, s.IsComplete)
	assert.Nil(t, s.CompletedAt)
	assert.Equal(t, 67, s.Progress)
}

func TestUpdateStepCompletion_InvalidStep(t *testing.T) {
	s := NewState(UserData{})

	_, err := UpdateStepCompletion(s, Step("not-a-step"), true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidStep)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateFeatureStatus_PartialUpdate(t *testing.T) {
	s := NewState(UserData{})
	introduced := true

	s1, err := UpdateFeatureStatus(s, FeaturePlanGeneration, &introduced, nil)
	require.NoError(t, err)
	assert.True(t, s1.Features[FeaturePlanGeneration].Introduced)
	assert.False(t, s1.Features[FeaturePlanGeneration].Interacted)

	// Absent fields stay untouched, they are not reset to false.
	interacted := true
	s2, err := UpdateFeatureStatus(s1, FeaturePlanGeneration, nil, &interacted)
	require.NoError(t, err)
	assert.True(t, s2.Features[FeaturePlanGeneration].Introduced)
	assert.True(t, s2.Features[FeaturePlanGeneration].Interacted)

	// Explicit false is applied.
	off := false
	s3, err := UpdateFeatureStatus(s2, FeaturePlanGeneration, &off, nil)
	require.NoError(t, err)
	assert.False(t, s3.Features[FeaturePlanGeneration].Introduced)
	assert.True(t, s3.Features[FeaturePlanGeneration].Interacted)
}

func TestUpdateFeatureStatus_InvalidFeature(t *testing.T) {
	s := NewState(UserData{})
	v := true

	_, err := UpdateFeatureStatus(s, Feature("not-a-feature"), &v, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFeature)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestAdvanceStep(t *testing.T) {
	s := NewState(UserData{})

	// Valid edge to an incomplete target.
	s1 := AdvanceStep(s, StepPreferences)
	assert.Equal(t, StepPreferences, s1.CurrentStep)

	// Invalid edge: unchanged.
	s2 := AdvanceStep(s, StepIntegrations)
	assert.Equal(t, StepProfile, s2.CurrentStep)

	// Valid edge but target already complete: unchanged.
	s3, err := UpdateStepCompletion(s, StepPreferences, true)
	require.NoError(t, err)
	s4 := AdvanceStep(s3, StepPreferences)
	assert.Equal(t, StepProfile, s4.CurrentStep)
}

func TestCompleteAll_SkipPath(t *testing.T) {
	s := NewState(UserData{})

	done := CompleteAll(s)
	assert.Equal(t, 100, done.Progress)
	assert.True(t, done.IsComplete)
	assert.NotNil(t, done.CompletedAt)
	assert.Equal(t, StepIntegrations, done.CurrentStep)

	for step, st := range done.Steps {
		assert.True(t, st.IsComplete, "step %s", step)
		assert.NotNil(t, st.CompletedAt, "step %s", step)
	}

	// Snapshot untouched.
	assert.False(t, s.IsComplete)
}
