package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/planforge/api/internal/metrics"
	"github.com/planforge/api/pkg/domain/onboarding"
	"github.com/planforge/api/pkg/domain/shared"
	"github.com/planforge/api/pkg/domain/user"
	"github.com/planforge/api/pkg/logger"
)

// OnboardingService drives the new-user setup flow. The onboarding state is
// a document embedded in the user record; this service is the only writer of
// that document.
type OnboardingService struct {
	users         user.Repository
	emailEnqueuer EmailJobEnqueuer
	logger        *logger.Logger
}

// OnboardingServiceOption configures optional OnboardingService dependencies.
type OnboardingServiceOption func(*OnboardingService)

// WithOnboardingEmailEnqueuer enables reminder and completion emails.
func WithOnboardingEmailEnqueuer(enqueuer EmailJobEnqueuer) OnboardingServiceOption {
	return func(s *OnboardingService) {
		s.emailEnqueuer = enqueuer
	}
}

// NewOnboardingService creates a new OnboardingService.
func NewOnboardingService(users user.Repository, log *logger.Logger, opts ...OnboardingServiceOption) *OnboardingService {
	s := &OnboardingService{
		users:  users,
		logger: log.With("service", "onboarding"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ====== STATE ACCESS ======

// GetState returns the user's onboarding state, initializing and persisting
// a fresh one for users who have never touched onboarding.
func (s *OnboardingService) GetState(ctx context.Context, userID string) (*onboarding.State, error) {
	id, err := shared.IDFromString(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id format", shared.ErrValidation)
	}

	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if u.Onboarding != nil {
		state := u.Onboarding.Clone()
		return &state, nil
	}

	state := onboarding.NewState(onboarding.UserData{
		FirstName: u.FirstName,
		LastName:  u.LastName,
	})
	if err := s.users.UpdateOnboarding(ctx, id, &state); err != nil {
		return nil, fmt.Errorf("failed to initialize onboarding state: %w", err)
	}

	s.logger.Info("onboarding state initialized",
		"user_id", id.String(),
	)
	return &state, nil
}

// ====== STEP UPDATES ======

// UpdateStepInput describes a step completion change. Profile and
// Preferences carry step payloads; each is only consulted for its own step.
// Preferences arrives as the raw decoded JSON object so type mismatches are
// caught instead of coerced.
type UpdateStepInput struct {
	UserID      string              `json:"userId" validate:"required,uuid"`
	Step        string              `json:"step" validate:"required,onboarding_step"`
	IsComplete  bool                `json:"isComplete"`
	Profile     *onboarding.Profile `json:"profile,omitempty"`
	Preferences map[string]any      `json:"preferences,omitempty"`
}

// UpdateStep applies a step payload, flips the step's completion flag and
// advances the current step along the transition graph. When the last
// required step completes, the aggregate flag flips and a completion email
// is queued.
func (s *OnboardingService) UpdateStep(ctx context.Context, input UpdateStepInput) (*onboarding.State, error) {
	id, err := shared.IDFromString(input.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id format", shared.ErrValidation)
	}

	step := onboarding.Step(input.Step)
	if !step.IsValid() {
		return nil, onboarding.InvalidStepError(step)
	}

	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	state := s.stateOf(u)

	switch step {
	case onboarding.StepProfile:
		if input.Profile != nil {
			if res := onboarding.ValidateProfile(*input.Profile); !res.IsValid {
				return nil, fmt.Errorf("%w: %s", shared.ErrValidation, strings.Join(res.Errors, "; "))
			}
			state.Profile = *input.Profile
		}
	case onboarding.StepPreferences:
		if input.Preferences != nil {
			if res := onboarding.ValidatePreferences(input.Preferences); !res.IsValid {
				return nil, fmt.Errorf("%w: %s", shared.ErrValidation, strings.Join(res.Errors, "; "))
			}
			applyPreferences(&state, input.Preferences)
		}
	}

	wasComplete := state.IsComplete

	state, err = onboarding.UpdateStepCompletion(state, step, input.IsComplete)
	if err != nil {
		return nil, err
	}
	state = onboarding.AdvanceStep(state, onboarding.NextRecommendedStep(state))

	if err := s.users.UpdateOnboarding(ctx, id, &state); err != nil {
		return nil, fmt.Errorf("failed to save onboarding state: %w", err)
	}

	action := "uncompleted"
	if input.IsComplete {
		action = "completed"
	}
	metrics.OnboardingStepsTotal.WithLabelValues(step.String(), action).Inc()

	if state.IsComplete && !wasComplete {
		metrics.OnboardingCompletedTotal.WithLabelValues("steps").Inc()
		s.notifyComplete(ctx, u)
		s.logger.Info("onboarding completed",
			"user_id", id.String(),
		)
	}

	return &state, nil
}

// Skip marks every step complete in one move, the "skip setup" path.
func (s *OnboardingService) Skip(ctx context.Context, userID string) (*onboarding.State, error) {
	id, err := shared.IDFromString(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id format", shared.ErrValidation)
	}

	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	state := s.stateOf(u)
	wasComplete := state.IsComplete

	state = onboarding.CompleteAll(state)

	if err := s.users.UpdateOnboarding(ctx, id, &state); err != nil {
		return nil, fmt.Errorf("failed to save onboarding state: %w", err)
	}

	if !wasComplete {
		metrics.OnboardingCompletedTotal.WithLabelValues("skip").Inc()
		s.notifyComplete(ctx, u)
	}

	s.logger.Info("onboarding skipped",
		"user_id", id.String(),
	)
	return &state, nil
}

// ====== FEATURE TRACKING ======

// UpdateFeatureInput describes a feature flag change. Nil pointers leave the
// corresponding flag untouched.
type UpdateFeatureInput struct {
	UserID     string `json:"userId" validate:"required,uuid"`
	Feature    string `json:"feature" validate:"required,onboarding_feature"`
	Introduced *bool  `json:"introduced,omitempty"`
	Interacted *bool  `json:"interacted,omitempty"`
}

// UpdateFeature records that a feature was shown to the user or tried out.
func (s *OnboardingService) UpdateFeature(ctx context.Context, input UpdateFeatureInput) (*onboarding.State, error) {
	id, err := shared.IDFromString(input.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id format", shared.ErrValidation)
	}

	feature := onboarding.Feature(input.Feature)
	if !feature.IsValid() {
		return nil, onboarding.InvalidFeatureError(feature)
	}

	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	state := s.stateOf(u)

	state, err = onboarding.UpdateFeatureStatus(state, feature, input.Introduced, input.Interacted)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateOnboarding(ctx, id, &state); err != nil {
		return nil, fmt.Errorf("failed to save onboarding state: %w", err)
	}

	return &state, nil
}

// ====== REMINDERS ======

// SendReminders queues a reminder email for every user whose onboarding has
// been incomplete since before the cutoff. Users who opted out of email
// updates are skipped. Returns the number of reminders queued.
func (s *OnboardingService) SendReminders(ctx context.Context, olderThan time.Duration) (int, error) {
	if s.emailEnqueuer == nil {
		return 0, nil
	}

	cutoff := time.Now().UTC().Add(-olderThan)
	filter := user.Filter{}.WithIncompleteOnboarding().WithStatus(user.StatusActive)

	users, err := s.users.List(ctx, filter, 0, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	sent := 0
	for _, u := range users {
		if u.CreatedAt.After(cutoff) {
			continue
		}
		state := s.stateOf(u)
		if state.IsComplete || !state.Preferences.EnableEmailUpdates {
			continue
		}

		payload := OnboardingReminderJobPayload{
			UserEmail:      u.Email,
			UserName:       u.FullName(),
			Progress:       state.Progress,
			RemainingSteps: remainingSteps(state),
		}
		if err := s.emailEnqueuer.EnqueueOnboardingReminder(ctx, payload); err != nil {
			s.logger.Error("failed to enqueue onboarding reminder",
				"user_id", u.ID.String(),
				"error", err,
			)
			continue
		}
		metrics.OnboardingRemindersSent.Inc()
		sent++
	}

	s.logger.Info("onboarding reminder sweep finished",
		"candidates", len(users),
		"sent", sent,
	)
	return sent, nil
}

// ====== HELPERS ======

// stateOf returns the user's onboarding state, falling back to a fresh one.
func (s *OnboardingService) stateOf(u *user.User) onboarding.State {
	if u.Onboarding != nil {
		return u.Onboarding.Clone()
	}
	return onboarding.NewState(onboarding.UserData{
		FirstName: u.FirstName,
		LastName:  u.LastName,
	})
}

func (s *OnboardingService) notifyComplete(ctx context.Context, u *user.User) {
	if s.emailEnqueuer == nil {
		return
	}
	payload := OnboardingCompleteJobPayload{
		UserEmail: u.Email,
		UserName:  u.FullName(),
	}
	if err := s.emailEnqueuer.EnqueueOnboardingComplete(ctx, payload); err != nil {
		s.logger.Error("failed to enqueue onboarding completion email",
			"user_id", u.ID.String(),
			"error", err,
		)
	}
}

func applyPreferences(state *onboarding.State, fields map[string]any) {
	if v, ok := fields["showTutorials"].(bool); ok {
		state.Preferences.ShowTutorials = v
	}
	if v, ok := fields["showTips"].(bool); ok {
		state.Preferences.ShowTips = v
	}
	if v, ok := fields["enableEmailUpdates"].(bool); ok {
		state.Preferences.EnableEmailUpdates = v
	}
}

func remainingSteps(state onboarding.State) []string {
	var out []string
	for _, step := range onboarding.Steps() {
		if st, ok := state.Steps[step]; ok && !st.IsComplete {
			out = append(out, step.String())
		}
	}
	return out
}
