package handler

import (
	"encoding/json"
	"net/http"

	"github.com/planforge/api/internal/app"
	"github.com/planforge/api/internal/infra/http/middleware"
	"github.com/planforge/api/pkg/apierror"
	"github.com/planforge/api/pkg/domain/onboarding"
	"github.com/planforge/api/pkg/logger"
	"github.com/planforge/api/pkg/validator"
)

// OnboardingHandler handles onboarding state requests.
type OnboardingHandler struct {
	onboardingService *app.OnboardingService
	validator         *validator.Validator
	logger            *logger.Logger
}

// NewOnboardingHandler creates a new OnboardingHandler.
func NewOnboardingHandler(onboardingService *app.OnboardingService, log *logger.Logger) *OnboardingHandler {
	return &OnboardingHandler{
		onboardingService: onboardingService,
		validator:         validator.New(),
		logger:            log.With("handler", "onboarding"),
	}
}

// GetState returns the authenticated user's onboarding state.
// @Summary      Onboarding state
// @Description  Returns the authenticated user's onboarding state and progress
// @Tags         Onboarding
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  onboarding.State
// @Failure      401  {object}  map[string]string
// @Router       /onboarding [get]
func (h *OnboardingHandler) GetState(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		apierror.Unauthorized("User not authenticated").WriteJSON(w)
		return
	}

	state, err := h.onboardingService.GetState(r.Context(), userID)
	if err != nil {
		apierror.FromDomain(err).WriteJSON(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(state)
}

// UpdateStepRequest is the request body for updating an onboarding step.
type UpdateStepRequest struct {
	IsComplete  bool                `json:"isComplete"`
	Profile     *onboarding.Profile `json:"profile,omitempty"`
	Preferences map[string]any      `json:"preferences,omitempty"`
}

// UpdateStep records a step payload and completion flag.
// @Summary      Update onboarding step
// @Description  Updates a single onboarding step and recomputes progress
// @Tags         Onboarding
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        step     path      string             true  "Step name"
// @Param        request  body      UpdateStepRequest  true  "Step payload"
// @Success      200  {object}  onboarding.State
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /onboarding/steps/{step} [put]
func (h *OnboardingHandler) UpdateStep(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		apierror.Unauthorized("User not authenticated").WriteJSON(w)
		return
	}

	step := r.PathValue("step")
	if step == "" {
		apierror.BadRequest("Onboarding step is required").WriteJSON(w)
		return
	}

	var req UpdateStepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}

	input := app.UpdateStepInput{
		UserID:      userID,
		Step:        step,
		IsComplete:  req.IsComplete,
		Profile:     req.Profile,
		Preferences: req.Preferences,
	}
	if err := h.validator.Validate(input); err != nil {
		apierror.ValidationFailed("Validation failed", err).WriteJSON(w)
		return
	}

	state, err := h.onboardingService.UpdateStep(r.Context(), input)
	if err != nil {
		apierror.FromDomain(err).WriteJSON(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(state)
}

// Skip marks the whole flow as skipped.
// @Summary      Skip onboarding
// @Description  Marks onboarding as skipped for the authenticated user
// @Tags         Onboarding
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  onboarding.State
// @Failure      401  {object}  map[string]string
// @Router       /onboarding/skip [post]
func (h *OnboardingHandler) Skip(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		apierror.Unauthorized("User not authenticated").WriteJSON(w)
		return
	}

	state, err := h.onboardingService.Skip(r.Context(), userID)
	if err != nil {
		apierror.FromDomain(err).WriteJSON(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(state)
}

// UpdateFeatureRequest is the request body for feature introduction tracking.
type UpdateFeatureRequest struct {
	Introduced *bool `json:"introduced,omitempty"`
	Interacted *bool `json:"interacted,omitempty"`
}

// UpdateFeature records that a feature was shown or used.
// @Summary      Update feature introduction
// @Description  Records that a feature was introduced to or used by the user
// @Tags         Onboarding
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        feature  path      string                true  "Feature name"
// @Param        request  body      UpdateFeatureRequest  true  "Feature flags"
// @Success      200  {object}  onboarding.State
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /onboarding/features/{feature} [put]
func (h *OnboardingHandler) UpdateFeature(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		apierror.Unauthorized("User not authenticated").WriteJSON(w)
		return
	}

	feature := r.PathValue("feature")
	if feature == "" {
		apierror.BadRequest("Feature name is required").WriteJSON(w)
		return
	}

	var req UpdateFeatureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}

	input := app.UpdateFeatureInput{
		UserID:     userID,
		Feature:    feature,
		Introduced: req.Introduced,
		Interacted: req.Interacted,
	}
	if err := h.validator.Validate(input); err != nil {
		apierror.ValidationFailed("Validation failed", err).WriteJSON(w)
		return
	}

	state, err := h.onboardingService.UpdateFeature(r.Context(), input)
	if err != nil {
		apierror.FromDomain(err).WriteJSON(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(state)
}
