package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planforge/api/pkg/domain/onboarding"
	"github.com/planforge/api/pkg/domain/role"
	"github.com/planforge/api/pkg/domain/shared"
	"github.com/planforge/api/pkg/domain/user"
	"github.com/planforge/api/pkg/logger"
)

// fakeEmailEnqueuer records enqueued email jobs for assertions.
type fakeEmailEnqueuer struct {
	welcome      []WelcomeEmailJobPayload
	reminders    []OnboardingReminderJobPayload
	completes    []OnboardingCompleteJobPayload
	verification []VerificationEmailJobPayload
	resets       []PasswordResetJobPayload
}

func (f *fakeEmailEnqueuer) EnqueueWelcomeEmail(_ context.Context, p WelcomeEmailJobPayload) error {
	f.welcome = append(f.welcome, p)
	return nil
}

func (f *fakeEmailEnqueuer) EnqueueOnboardingReminder(_ context.Context, p OnboardingReminderJobPayload) error {
	f.reminders = append(f.reminders, p)
	return nil
}

func (f *fakeEmailEnqueuer) EnqueueOnboardingComplete(_ context.Context, p OnboardingCompleteJobPayload) error {
	f.completes = append(f.completes, p)
	return nil
}

func (f *fakeEmailEnqueuer) EnqueueVerificationEmail(_ context.Context, p VerificationEmailJobPayload) error {
	f.verification = append(f.verification, p)
	return nil
}

func (f *fakeEmailEnqueuer) EnqueuePasswordReset(_ context.Context, p PasswordResetJobPayload) error {
	f.resets = append(f.resets, p)
	return nil
}

func testOnboardingService(users ...*user.User) (*OnboardingService, *fakeUserRepo, *fakeEmailEnqueuer) {
	repo := newFakeUserRepo(users...)
	enqueuer := &fakeEmailEnqueuer{}
	svc := NewOnboardingService(repo, logger.NewNop(), WithOnboardingEmailEnqueuer(enqueuer))
	return svc, repo, enqueuer
}

func TestOnboardingService_GetState_InitializesOnFirstAccess(t *testing.T) {
	u := user.New("new@example.com", "Ada", "Lovelace")
	svc, repo, _ := testOnboardingService(u)
	ctx := context.Background()

	state, err := svc.GetState(ctx, u.ID.String())
	require.NoError(t, err)
	assert.Equal(t, onboarding.StepProfile, state.CurrentStep)
	assert.Equal(t, 0, state.Progress)
	assert.Equal(t, "Ada", state.Profile.Name.FirstName)

	stored, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Onboarding)

	// a second read returns the persisted document, not a new one
	state.Profile.JobTitle = "mutated by caller"
	again, err := svc.GetState(ctx, u.ID.String())
	require.NoError(t, err)
	assert.Empty(t, again.Profile.JobTitle)
}

func TestOnboardingService_GetState_InvalidID(t *testing.T) {
	svc, _, _ := testOnboardingService()

	_, err := svc.GetState(context.Background(), "nope")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestOnboardingService_UpdateStep_ProfilePayload(t *testing.T) {
	u := user.New("ada@example.com", "Ada", "Lovelace")
	svc, repo, _ := testOnboardingService(u)
	ctx := context.Background()

	t.Run("valid profile completes the step", func(t *testing.T) {
		state, err := svc.UpdateStep(ctx, UpdateStepInput{
			UserID:     u.ID.String(),
			Step:       "profile",
			IsComplete: true,
			Profile: &onboarding.Profile{
				Name:       onboarding.Name{FirstName: "Ada", LastName: "Lovelace"},
				Experience: onboarding.ExperienceAdvanced,
				TeamSize:   "12",
			},
		})
		require.NoError(t, err)
		assert.True(t, state.Steps[onboarding.StepProfile].IsComplete)
		assert.Equal(t, 33, state.Progress)
		assert.Equal(t, onboarding.StepPreferences, state.CurrentStep)

		stored, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, onboarding.ExperienceAdvanced, stored.Onboarding.Profile.Experience)
	})

	t.Run("invalid profile is rejected with all errors", func(t *testing.T) {
		_, err := svc.UpdateStep(ctx, UpdateStepInput{
			UserID:     u.ID.String(),
			Step:       "profile",
			IsComplete: true,
			Profile: &onboarding.Profile{
				Experience: "wizard",
			},
		})
		require.ErrorIs(t, err, shared.ErrValidation)
		assert.Contains(t, err.Error(), "First name is required")
		assert.Contains(t, err.Error(), "Experience must be one of")
	})

	t.Run("unknown step is rejected", func(t *testing.T) {
		_, err := svc.UpdateStep(ctx, UpdateStepInput{
			UserID:     u.ID.String(),
			Step:       "billing",
			IsComplete: true,
		})
		assert.ErrorIs(t, err, onboarding.ErrInvalidStep)
	})
}

func TestOnboardingService_UpdateStep_PreferencesPayload(t *testing.T) {
	u := user.New("ada@example.com", "Ada", "Lovelace")
	svc, _, _ := testOnboardingService(u)
	ctx := context.Background()

	t.Run("typed mismatch is rejected", func(t *testing.T) {
		_, err := svc.UpdateStep(ctx, UpdateStepInput{
			UserID:      u.ID.String(),
			Step:        "preferences",
			IsComplete:  true,
			Preferences: map[string]any{"showTips": "yes"},
		})
		require.ErrorIs(t, err, shared.ErrValidation)
		assert.Contains(t, err.Error(), "showTips must be a boolean")
	})

	t.Run("booleans are applied", func(t *testing.T) {
		state, err := svc.UpdateStep(ctx, UpdateStepInput{
			UserID:      u.ID.String(),
			Step:        "preferences",
			IsComplete:  true,
			Preferences: map[string]any{"showTips": false, "enableEmailUpdates": false},
		})
		require.NoError(t, err)
		assert.False(t, state.Preferences.ShowTips)
		assert.False(t, state.Preferences.EnableEmailUpdates)
		assert.True(t, state.Preferences.ShowTutorials)
	})
}

func TestOnboardingService_UpdateStep_CompletionFlipsOnce(t *testing.T) {
	u := user.New("ada@example.com", "Ada", "Lovelace")
	svc, _, enqueuer := testOnboardingService(u)
	ctx := context.Background()

	complete := func(step string) *onboarding.State {
		state, err := svc.UpdateStep(ctx, UpdateStepInput{
			UserID:     u.ID.String(),
			Step:       step,
			IsComplete: true,
			Profile: &onboarding.Profile{
				Name: onboarding.Name{FirstName: "Ada", LastName: "Lovelace"},
			},
		})
		require.NoError(t, err)
		return state
	}

	complete("profile")
	complete("preferences")
	assert.Empty(t, enqueuer.completes)

	state := complete("projectSetup")
	assert.True(t, state.IsComplete)
	assert.Equal(t, 100, state.Progress)
	require.Len(t, enqueuer.completes, 1)
	assert.Equal(t, "ada@example.com", enqueuer.completes[0].UserEmail)

	// completing an optional step afterwards must not re-notify
	complete("featureIntro")
	assert.Len(t, enqueuer.completes, 1)
}

func TestOnboardingService_Skip(t *testing.T) {
	u := user.New("ada@example.com", "Ada", "Lovelace")
	svc, repo, enqueuer := testOnboardingService(u)
	ctx := context.Background()

	state, err := svc.Skip(ctx, u.ID.String())
	require.NoError(t, err)
	assert.True(t, state.IsComplete)
	assert.Equal(t, 100, state.Progress)
	for _, step := range onboarding.Steps() {
		assert.True(t, state.Steps[step].IsComplete, step.String())
	}
	require.Len(t, enqueuer.completes, 1)

	stored, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, stored.Onboarding.IsComplete)

	// skipping again is idempotent and does not re-notify
	_, err = svc.Skip(ctx, u.ID.String())
	require.NoError(t, err)
	assert.Len(t, enqueuer.completes, 1)
}

func TestOnboardingService_UpdateFeature(t *testing.T) {
	u := user.New("ada@example.com", "Ada", "Lovelace")
	svc, _, _ := testOnboardingService(u)
	ctx := context.Background()

	introduced := true
	state, err := svc.UpdateFeature(ctx, UpdateFeatureInput{
		UserID:     u.ID.String(),
		Feature:    "planGeneration",
		Introduced: &introduced,
	})
	require.NoError(t, err)
	assert.True(t, state.Features[onboarding.FeaturePlanGeneration].Introduced)
	assert.False(t, state.Features[onboarding.FeaturePlanGeneration].Interacted)

	_, err = svc.UpdateFeature(ctx, UpdateFeatureInput{
		UserID:  u.ID.String(),
		Feature: "timeTravel",
	})
	assert.ErrorIs(t, err, onboarding.ErrInvalidFeature)
}

func TestOnboardingService_SendReminders(t *testing.T) {
	stale := user.New("stale@example.com", "Stale", "User")
	stale.CreatedAt = time.Now().UTC().Add(-72 * time.Hour)

	fresh := user.New("fresh@example.com", "Fresh", "User")

	optedOut := user.New("optout@example.com", "Opted", "Out")
	optedOut.CreatedAt = time.Now().UTC().Add(-72 * time.Hour)
	optedOutState := onboarding.NewState(onboarding.UserData{FirstName: "Opted"})
	optedOutState.Preferences.EnableEmailUpdates = false
	optedOut.Onboarding = &optedOutState

	done := user.New("done@example.com", "Done", "User")
	done.CreatedAt = time.Now().UTC().Add(-72 * time.Hour)
	done.RoleName = role.User
	doneState := onboarding.CompleteAll(onboarding.NewState(onboarding.UserData{}))
	done.Onboarding = &doneState

	svc, _, enqueuer := testOnboardingService(stale, fresh, optedOut, done)

	sent, err := svc.SendReminders(context.Background(), 48*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, enqueuer.reminders, 1)

	reminder := enqueuer.reminders[0]
	assert.Equal(t, "stale@example.com", reminder.UserEmail)
	assert.Equal(t, 0, reminder.Progress)
	assert.Contains(t, reminder.RemainingSteps, "profile")
}
