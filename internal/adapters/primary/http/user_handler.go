package http

import (
	"cmp"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/lorrc/service-desk-sla/internal/adapters/primary/validation"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

// assignableRoles are the roles an administrator may grant inside a tenant.
var assignableRoles = []string{"admin", "agent", "customer"}

// UserHandler serves the caller's own profile, the assignee picker and
// tenant role administration.
type UserHandler struct {
	authzService ports.AuthorizationService
	userService  ports.UserService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

func NewUserHandler(
	authzService ports.AuthorizationService,
	userService ports.UserService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *UserHandler {
	return &UserHandler{
		authzService: authzService,
		userService:  userService,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "users"),
	}
}

// RegisterRoutes mounts the user routes on the API root.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Put("/me", h.HandleSyncProfile)
	r.Get("/me/permissions", h.HandlePermissions)
	r.Get("/assignees", h.HandleListAssignees)
	r.Put("/admin/users/{userID}/role", h.HandleUpdateUserRole)
}

// PermissionsResponse lists the caller's permissions, sorted.
type PermissionsResponse struct {
	Permissions []string `json:"permissions"`
}

// SyncProfileRequest optionally overrides the profile carried in the token.
type SyncProfileRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

func (r *SyncProfileRequest) Validate() error {
	v := validation.NewValidator()
	v.Required("fullName", r.FullName).
		MaxLength("fullName", r.FullName, domain.MaxFullNameLength)
	v.Required("email", r.Email).
		MaxLength("email", r.Email, domain.MaxEmailLength).
		Email("email", r.Email)
	return v.Err()
}

type UpdateUserRoleRequest struct {
	Role string `json:"role"`
}

func (r *UpdateUserRoleRequest) Validate() error {
	return validation.NewValidator().
		Required("role", r.Role).
		OneOf("role", r.Role, assignableRoles).
		Err()
}

// HandleSyncProfile handles PUT /me. The directory entry is taken from the
// token claims; a JSON body may fill in fields the identity provider omits.
func (h *UserHandler) HandleSyncProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	req := SyncProfileRequest{FullName: claims.Name, Email: claims.Email}
	if r.ContentLength > 0 {
		body, err := validation.DecodeAndValidate[SyncProfileRequest](r)
		if err != nil {
			h.errorHandler.Handle(w, r, err)
			return
		}
		req.FullName = cmp.Or(body.FullName, req.FullName)
		req.Email = cmp.Or(body.Email, req.Email)
	}
	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	user, err := h.userService.SyncProfile(r.Context(), ports.SyncProfileParams{
		UserID:   claims.UserID,
		TenantID: claims.TenantID,
		FullName: req.FullName,
		Email:    req.Email,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, toUserDTO(user))
}

// HandlePermissions handles GET /me/permissions.
func (h *UserHandler) HandlePermissions(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	permissions, err := h.authzService.GetPermissions(r.Context(), claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	// Sort a copy; the service may hand out a cached slice.
	sorted := slices.Clone(permissions)
	slices.Sort(sorted)
	WriteJSON(w, http.StatusOK, PermissionsResponse{Permissions: sorted})
}

// HandleListAssignees handles GET /assignees.
func (h *UserHandler) HandleListAssignees(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	users, err := h.userService.ListAssignableUsers(r.Context(), claims.UserID, claims.TenantID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	WriteList(w, toUserDTOs(users))
}

// HandleUpdateUserRole handles PUT /admin/users/{userID}/role. Granting the
// agent role is what makes a user eligible as a ticket assignee.
func (h *UserHandler) HandleUpdateUserRole(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	userID, err := parseUserID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	req, err := decodeBody[UpdateUserRoleRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	err = h.userService.UpdateUserRole(r.Context(), ports.UpdateUserRoleParams{
		ActorID:  claims.UserID,
		TenantID: claims.TenantID,
		UserID:   userID,
		Role:     req.Role,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "user role updated",
		"target_user_id", userID,
		"role", req.Role,
	)
	WriteNoContent(w)
}
