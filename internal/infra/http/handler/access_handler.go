package handler

import (
	"encoding/json"
	"net/http"

	"github.com/planforge/api/internal/app"
	"github.com/planforge/api/internal/infra/http/middleware"
	"github.com/planforge/api/pkg/apierror"
	"github.com/planforge/api/pkg/domain/role"
	"github.com/planforge/api/pkg/logger"
	"github.com/planforge/api/pkg/validator"
)

// AccessHandler handles permission check and resource sharing requests.
type AccessHandler struct {
	accessService *app.AccessService
	validator     *validator.Validator
	logger        *logger.Logger
}

// NewAccessHandler creates a new AccessHandler.
func NewAccessHandler(accessService *app.AccessService, log *logger.Logger) *AccessHandler {
	return &AccessHandler{
		accessService: accessService,
		validator:     validator.New(),
		logger:        log.With("handler", "access"),
	}
}

// CheckPermissionRequest is the request body for a permission check.
// userId is only honored for administrators; everyone else checks their own
// permissions.
type CheckPermissionRequest struct {
	UserID     string `json:"userId,omitempty" validate:"omitempty,uuid"`
	Permission string `json:"permission" validate:"required"`
	ResourceID string `json:"resourceId,omitempty"`
}

// CheckPermissionResponse is the response body for a permission check.
type CheckPermissionResponse struct {
	Allowed    bool   `json:"allowed"`
	Permission string `json:"permission"`
	ResourceID string `json:"resourceId,omitempty"`
}

// CheckPermission evaluates a permission against the user's resolved role.
// @Summary      Check permission
// @Description  Evaluates whether a user holds a permission, optionally for a specific resource
// @Tags         Access
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      CheckPermissionRequest  true  "Permission to evaluate"
// @Success      200  {object}  CheckPermissionResponse
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /access/check [post]
func (h *AccessHandler) CheckPermission(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())
	if callerID == "" {
		apierror.Unauthorized("User not authenticated").WriteJSON(w)
		return
	}

	var req CheckPermissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}

	if err := h.validator.Validate(req); err != nil {
		apierror.ValidationFailed("Validation failed", err).WriteJSON(w)
		return
	}

	targetID := req.UserID
	if targetID == "" {
		targetID = callerID
	}
	if targetID != callerID && middleware.GetRole(r.Context()) != role.Admin {
		apierror.Forbidden("Cannot check permissions of another user").WriteJSON(w)
		return
	}

	allowed, err := h.accessService.CheckPermission(r.Context(), app.CheckPermissionInput{
		UserID:     targetID,
		Permission: req.Permission,
		ResourceID: req.ResourceID,
	})
	if err != nil {
		apierror.FromDomain(err).WriteJSON(w)
		return
	}

	resp := CheckPermissionResponse{
		Allowed:    allowed,
		Permission: req.Permission,
		ResourceID: req.ResourceID,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// ShareResourceRequest is the request body for sharing a resource.
type ShareResourceRequest struct {
	TargetUserID string `json:"targetUserId" validate:"required,uuid"`
	ResourceType string `json:"resourceType" validate:"required"`
	ResourceID   string `json:"resourceId" validate:"required"`
}

// ShareResource grants another user shared access to an owned resource.
// @Summary      Share resource
// @Description  Grants a user shared access to a resource the caller owns
// @Tags         Access
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      ShareResourceRequest  true  "Resource to share"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /access/share [post]
func (h *AccessHandler) ShareResource(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())
	if callerID == "" {
		apierror.Unauthorized("User not authenticated").WriteJSON(w)
		return
	}

	var req ShareResourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}

	if err := h.validator.Validate(req); err != nil {
		apierror.ValidationFailed("Validation failed", err).WriteJSON(w)
		return
	}

	if err := h.accessService.ShareResource(r.Context(), app.ShareResourceInput{
		OwnerID:      callerID,
		TargetUserID: req.TargetUserID,
		ResourceType: req.ResourceType,
		ResourceID:   req.ResourceID,
	}); err != nil {
		apierror.FromDomain(err).WriteJSON(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Resource shared successfully",
	})
}
