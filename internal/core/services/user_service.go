package services

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

// Roles that can be granted through the admin API.
var assignableRoles = []string{"customer", "agent", "admin"}

// UserService manages the user directory mirrored from the identity provider.
type UserService struct {
	userRepo ports.UserRepository
	authRepo ports.AuthorizationRepository
	authzSvc ports.AuthorizationService
}

var _ ports.UserService = (*UserService)(nil)

// NewUserService creates a new user service.
func NewUserService(
	userRepo ports.UserRepository,
	authRepo ports.AuthorizationRepository,
	authzSvc ports.AuthorizationService,
) *UserService {
	return &UserService{
		userRepo: userRepo,
		authRepo: authRepo,
		authzSvc: authzSvc,
	}
}

// SyncProfile stores the caller's identity provider profile so notifications
// and assignment lookups can resolve them.
func (s *UserService) SyncProfile(ctx context.Context, params ports.SyncProfileParams) (*domain.User, error) {
	user, err := domain.NewUser(domain.UserProfileParams{
		ID:       params.UserID,
		TenantID: params.TenantID,
		FullName: params.FullName,
		Email:    params.Email,
	})
	if err != nil {
		return nil, err
	}
	return s.userRepo.Upsert(ctx, user)
}

// ListAssignableUsers returns users of the tenant who may work tickets.
func (s *UserService) ListAssignableUsers(ctx context.Context, actorID, tenantID uuid.UUID) ([]*domain.User, error) {
	if err := requirePermission(ctx, s.authzSvc, actorID, "tickets:assign"); err != nil {
		return nil, err
	}
	return s.userRepo.ListByPermission(ctx, tenantID, "tickets:respond")
}

// UpdateUserRole replaces the role of a user in the actor's tenant.
func (s *UserService) UpdateUserRole(ctx context.Context, params ports.UpdateUserRoleParams) error {
	if err := requirePermission(ctx, s.authzSvc, params.ActorID, "users:manage"); err != nil {
		return err
	}
	if !slices.Contains(assignableRoles, params.Role) {
		errs := apperrors.NewValidationErrors()
		errs.Add("role", "Role must be one of: customer, agent, admin")
		return errs
	}
	if params.UserID == params.ActorID {
		return apperrors.ErrForbidden
	}

	user, err := s.userRepo.GetByID(ctx, params.UserID)
	if err != nil {
		return err
	}
	if !user.BelongsTo(params.TenantID) {
		return apperrors.ErrForbidden
	}

	return s.authRepo.SetUserRole(ctx, params.UserID, params.Role)
}
