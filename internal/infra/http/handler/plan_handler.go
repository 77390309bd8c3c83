package handler

import (
	"encoding/json"
	"net/http"

	"github.com/planforge/api/internal/app"
	"github.com/planforge/api/internal/infra/http/middleware"
	"github.com/planforge/api/pkg/apierror"
	"github.com/planforge/api/pkg/domain/user"
	"github.com/planforge/api/pkg/logger"
	"github.com/planforge/api/pkg/validator"
)

// PlanHandler handles plan generation, refinement and export requests.
type PlanHandler struct {
	planService *app.PlanService
	userService *app.UserService
	validator   *validator.Validator
	logger      *logger.Logger
}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler(planService *app.PlanService, userService *app.UserService, log *logger.Logger) *PlanHandler {
	return &PlanHandler{
		planService: planService,
		userService: userService,
		validator:   validator.New(),
		logger:      log.With("handler", "plan"),
	}
}

func (h *PlanHandler) actor(r *http.Request) (*user.User, *apierror.Error) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		return nil, apierror.Unauthorized("User not authenticated")
	}
	u, err := h.userService.GetUser(r.Context(), userID)
	if err != nil {
		return nil, apierror.FromDomain(err)
	}
	return u, nil
}

// GeneratePlanRequest is the request body for plan generation.
type GeneratePlanRequest struct {
	Requirements string `json:"requirements" validate:"required,min=10,max=20000"`
}

// Generate asks the model for a plan document and stores it on the project.
// The request blocks until generation completes; progress events stream over
// the websocket channels in the meantime.
// @Summary      Generate plan
// @Description  Generates a structured project plan from requirements
// @Tags         Plans
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string               true  "Project ID"
// @Param        request  body      GeneratePlanRequest  true  "Plan requirements"
// @Success      200  {object}  project.Project
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /projects/{id}/plan [post]
func (h *PlanHandler) Generate(w http.ResponseWriter, r *http.Request) {
	actor, apiErr := h.actor(r)
	if apiErr != nil {
		apiErr.WriteJSON(w)
		return
	}

	projectID := r.PathValue("id")
	if projectID == "" {
		apierror.BadRequest("Project ID is required").WriteJSON(w)
		return
	}

	var req GeneratePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}

	input := app.GeneratePlanInput{
		ProjectID:    projectID,
		Requirements: req.Requirements,
	}
	if err := h.validator.Validate(input); err != nil {
		apierror.ValidationFailed("Validation failed", err).WriteJSON(w)
		return
	}

	p, err := h.planService.GeneratePlan(r.Context(), actor, input)
	if err != nil {
		apierror.FromDomain(err).WriteJSON(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(p)
}

// RefinePlanRequest is the request body for plan refinement.
type RefinePlanRequest struct {
	Instruction string `json:"instruction" validate:"required,min=3,max=5000"`
}

// Refine sends the stored plan back to the model with an instruction.
// @Summary      Refine plan
// @Description  Revises the stored plan according to an instruction
// @Tags         Plans
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string             true  "Project ID"
// @Param        request  body      RefinePlanRequest  true  "Refinement instruction"
// @Success      200  {object}  project.Project
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /projects/{id}/plan/refine [post]
func (h *PlanHandler) Refine(w http.ResponseWriter, r *http.Request) {
	actor, apiErr := h.actor(r)
	if apiErr != nil {
		apiErr.WriteJSON(w)
		return
	}

	projectID := r.PathValue("id")
	if projectID == "" {
		apierror.BadRequest("Project ID is required").WriteJSON(w)
		return
	}

	var req RefinePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}

	input := app.RefinePlanInput{
		ProjectID:   projectID,
		Instruction: req.Instruction,
	}
	if err := h.validator.Validate(input); err != nil {
		apierror.ValidationFailed("Validation failed", err).WriteJSON(w)
		return
	}

	p, err := h.planService.RefinePlan(r.Context(), actor, input)
	if err != nil {
		apierror.FromDomain(err).WriteJSON(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(p)
}

// Get returns the stored plan document.
// @Summary      Get plan
// @Description  Returns the project's generated plan document
// @Tags         Plans
// @Produce      json
// @Security     BearerAuth
// @Param        id  path      string  true  "Project ID"
// @Success      200  {object}  object
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /projects/{id}/plan [get]
func (h *PlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, apiErr := h.actor(r)
	if apiErr != nil {
		apiErr.WriteJSON(w)
		return
	}

	projectID := r.PathValue("id")
	if projectID == "" {
		apierror.BadRequest("Project ID is required").WriteJSON(w)
		return
	}

	plan, err := h.planService.GetPlan(r.Context(), actor, projectID)
	if err != nil {
		apierror.FromDomain(err).WriteJSON(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(plan)
}

// ExportResponse is the response body for a plan export.
type ExportResponse struct {
	URL    string `json:"url"`
	Format string `json:"format"`
}

// Export renders the plan in the requested format, uploads it to object
// storage and returns a presigned download URL.
// @Summary      Export plan
// @Description  Exports the plan and returns a time-limited download URL
// @Tags         Plans
// @Produce      json
// @Security     BearerAuth
// @Param        id      path      string  true   "Project ID"
// @Param        format  query     string  false  "Export format (json or markdown)"
// @Success      200  {object}  ExportResponse
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /projects/{id}/plan/export [get]
func (h *PlanHandler) Export(w http.ResponseWriter, r *http.Request) {
	actor, apiErr := h.actor(r)
	if apiErr != nil {
		apiErr.WriteJSON(w)
		return
	}

	projectID := r.PathValue("id")
	if projectID == "" {
		apierror.BadRequest("Project ID is required").WriteJSON(w)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}

	url, err := h.planService.ExportPlan(r.Context(), actor, projectID, format)
	if err != nil {
		apierror.FromDomain(err).WriteJSON(w)
		return
	}

	resp := ExportResponse{
		URL:    url,
		Format: format,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}
