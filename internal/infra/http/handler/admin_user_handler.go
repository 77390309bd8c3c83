package handler

import (
	"encoding/json"
	"net/http"

	"github.com/planforge/api/internal/app"
	"github.com/planforge/api/pkg/apierror"
	"github.com/planforge/api/pkg/domain/user"
	"github.com/planforge/api/pkg/logger"
	"github.com/planforge/api/pkg/pagination"
	"github.com/planforge/api/pkg/validator"
)

// AdminUserHandler handles administrative account management requests. All
// routes are behind the admin role requirement.
type AdminUserHandler struct {
	userService *app.UserService
	validator   *validator.Validator
	logger      *logger.Logger
}

// NewAdminUserHandler creates a new AdminUserHandler.
func NewAdminUserHandler(userService *app.UserService, log *logger.Logger) *AdminUserHandler {
	return &AdminUserHandler{
		userService: userService,
		validator:   validator.New(),
		logger:      log.With("handler", "admin_user"),
	}
}

// List returns accounts matching the query filters.
// @Summary      List users
// @Description  Lists accounts with optional email, role, status and onboarding filters
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        email       query     string  false  "Filter by email"
// @Param        role        query     string  false  "Filter by role"
// @Param        status      query     string  false  "Filter by status"
// @Param        incomplete  query     bool    false  "Only users with incomplete onboarding"
// @Param        page        query     int     false  "Page number"
// @Param        per_page    query     int     false  "Items per page"
// @Success      200  {object}  ListResponse[user.User]
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /admin/users [get]
func (h *AdminUserHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	pg := pagination.FromQuery(q, defaultPerPage, maxPerPage)

	incomplete := false
	if v := parseQueryBool(q.Get("incomplete")); v != nil {
		incomplete = *v
	}

	users, total, err := h.userService.ListUsers(r.Context(), app.ListUsersInput{
		Email:      q.Get("email"),
		Role:       q.Get("role"),
		Status:     q.Get("status"),
		Incomplete: incomplete,
		Limit:      pg.Limit(),
		Offset:     pg.Offset(),
	})
	if err != nil {
		apierror.FromDomain(err).WriteJSON(w)
		return
	}

	totalPages := pg.Pages(total)

	resp := ListResponse[*user.User]{
		Data:       users,
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

// Get returns a single account.
// @Summary      Get user
// @Description  Returns one account by id
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        id  path      string  true  "User ID"
// @Success      200  {object}  user.User
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /admin/users/{id} [get]
func (h *AdminUserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		apierror.BadRequest("User ID is required").WriteJSON(w)
		return
	}

	u, err := h.userService.GetUser(r.Context(), id)
	if err != nil {
		apierror.FromDomain(err).WriteJSON(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(u)
}

// ChangeRoleRequest is the request body for a role assignment.
type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// ChangeRole assigns a different role to an account.
// @Summary      Change user role
// @Description  Assigns a different role to the account
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string             true  "User ID"
// @Param        request  body      ChangeRoleRequest  true  "New role"
// @Success      200  {object}  user.User
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /admin/users/{id}/role [put]
func (h *AdminUserHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		apierror.BadRequest("User ID is required").WriteJSON(w)
		return
	}

	var req ChangeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}

	if err := h.validator.Validate(req); err != nil {
		apierror.ValidationFailed("Validation failed", err).WriteJSON(w)
		return
	}

	u, err := h.userService.ChangeRole(r.Context(), id, req.Role)
	if err != nil {
		apierror.FromDomain(err).WriteJSON(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(u)
}

// ChangeStatusRequest is the request body for a status change.
type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive suspended"`
}

// ChangeStatus activates, deactivates or suspends an account.
// @Summary      Change user status
// @Description  Changes the account status
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string               true  "User ID"
// @Param        request  body      ChangeStatusRequest  true  "New status"
// @Success      200  {object}  user.User
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /admin/users/{id}/status [put]
func (h *AdminUserHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		apierror.BadRequest("User ID is required").WriteJSON(w)
		return
	}

	var req ChangeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}

	if err := h.validator.Validate(req); err != nil {
		apierror.ValidationFailed("Validation failed", err).WriteJSON(w)
		return
	}

	u, err := h.userService.ChangeStatus(r.Context(), id, user.Status(req.Status))
	if err != nil {
		apierror.FromDomain(err).WriteJSON(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(u)
}
