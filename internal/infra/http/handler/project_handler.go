package handler

import (
	"encoding/json"
	"net/http"

	"github.com/planforge/api/internal/app"
	"github.com/planforge/api/internal/infra/http/middleware"
	"github.com/planforge/api/pkg/apierror"
	"github.com/planforge/api/pkg/domain/project"
	"github.com/planforge/api/pkg/domain/user"
	"github.com/planforge/api/pkg/logger"
	"github.com/planforge/api/pkg/pagination"
	"github.com/planforge/api/pkg/validator"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// ProjectHandler handles project CRUD requests.
type ProjectHandler struct {
	projectService *app.ProjectService
	userService    *app.UserService
	validator      *validator.Validator
	logger         *logger.Logger
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projectService *app.ProjectService, userService *app.UserService, log *logger.Logger) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		userService:    userService,
		validator:      validator.New(),
		logger:         log.With("handler", "project"),
	}
}

// actor loads the authenticated user's record. Authorization decisions need
// the stored role and resource lists, not just the token claims.
func (h *ProjectHandler) actor(r *http.Request) (*user.User, *apierror.Error) {
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

// CreateProjectRequest is the request body for creating a project.
type CreateProjectRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

// Create creates a new draft project.
// @Summary      Create project
// @Description  Creates a new project owned by the authenticated user
// @Tags         Projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      CreateProjectRequest  true  "Project data"
// @Success      201  {object}  project.Project
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /projects [post]
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		apierror.Unauthorized("User not authenticated").WriteJSON(w)
		return
	}

	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}

	if err := h.validator.Validate(req); err != nil {
		apierror.ValidationFailed("Validation failed", err).WriteJSON(w)
		return
	}

	p, err := h.projectService.CreateProject(r.Context(), app.CreateProjectInput{
		OwnerID:     userID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		apierror.FromDomain(err).WriteJSON(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(p)
}

// Get returns a single project.
// @Summary      Get project
// @Description  Returns a project the authenticated user may read
// @Tags         Projects
// @Produce      json
// @Security     BearerAuth
// @Param        id  path      string  true  "Project ID"
// @Success      200  {object}  project.Project
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /projects/{id} [get]
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, apiErr := h.actor(r)
	if apiErr != nil {
		apiErr.WriteJSON(w)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		apierror.BadRequest("Project ID is required").WriteJSON(w)
		return
	}

	p, err := h.projectService.GetProject(r.Context(), actor, id)
	if err != nil {
		apierror.FromDomain(err).WriteJSON(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(p)
}

// List returns the authenticated user's projects with pagination.
// @Summary      List projects
// @Description  Lists projects owned by the authenticated user
// @Tags         Projects
// @Produce      json
// @Security     BearerAuth
// @Param        page      query     int  false  "Page number"
// @Param        per_page  query     int  false  "Items per page"
// @Success      200  {object}  ListResponse[project.Project]
// @Failure      401  {object}  map[string]string
// @Router       /projects [get]
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, apiErr := h.actor(r)
	if apiErr != nil {
		apiErr.WriteJSON(w)
		return
	}

	pg := pagination.FromQuery(r.URL.Query(), defaultPerPage, maxPerPage)

	projects, total, err := h.projectService.ListProjects(r.Context(), actor, pg.Limit(), pg.Offset())
	if err != nil {
		apierror.FromDomain(err).WriteJSON(w)
		return
	}

	totalPages := pg.Pages(total)

	resp := ListResponse[*project.Project]{
		Data:       projects,
		Total:      total,
		Page:       pg.Page,
		PerPage:    pg.PerPage,
		TotalPages: totalPages,
		Links:      NewPaginationLinks(r, pg.Page, pg.PerPage, totalPages),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// UpdateProjectRequest is the request body for updating a project. Omitted
// fields keep their stored values.
type UpdateProjectRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	Status      *string `json:"status,omitempty" validate:"omitempty,project_status"`
}

// Update applies a partial update to a project.
// @Summary      Update project
// @Description  Updates a project the authenticated user may write
// @Tags         Projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                true  "Project ID"
// @Param        request  body      UpdateProjectRequest  true  "Fields to update"
// @Success      200  {object}  project.Project
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /projects/{id} [patch]
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, apiErr := h.actor(r)
	if apiErr != nil {
		apiErr.WriteJSON(w)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		apierror.BadRequest("Project ID is required").WriteJSON(w)
		return
	}

	var req UpdateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}

	if err := h.validator.Validate(req); err != nil {
		apierror.ValidationFailed("Validation failed", err).WriteJSON(w)
		return
	}

	p, err := h.projectService.UpdateProject(r.Context(), actor, app.UpdateProjectInput{
		ProjectID:   id,
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		apierror.FromDomain(err).WriteJSON(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(p)
}

// Delete removes a project.
// @Summary      Delete project
// @Description  Deletes a project the authenticated user may delete
// @Tags         Projects
// @Produce      json
// @Security     BearerAuth
// @Param        id  path      string  true  "Project ID"
// @Success      204  "No Content"
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /projects/{id} [delete]
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, apiErr := h.actor(r)
	if apiErr != nil {
		apiErr.WriteJSON(w)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		apierror.BadRequest("Project ID is required").WriteJSON(w)
		return
	}

	if err := h.projectService.DeleteProject(r.Context(), actor, id); err != nil {
		apierror.FromDomain(err).WriteJSON(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
