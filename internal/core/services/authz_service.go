package services

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/google/uuid"
	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

// DefaultRole is granted to users that reach the desk without any role.
const DefaultRole = "customer"

// AuthorizationService implements the business logic for RBAC.
type AuthorizationService struct {
	authRepo ports.AuthorizationRepository
}

// Ensure implementation matches the interface.
var _ ports.AuthorizationService = (*AuthorizationService)(nil)

// NewAuthorizationService creates a new service for authorization logic.
func NewAuthorizationService(authRepo ports.AuthorizationRepository) *AuthorizationService {
	return &AuthorizationService{
		authRepo: authRepo,
	}
}

type permissionCacheKey struct{}

type permissionCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID][]string
}

// WithPermissionCache returns a context that memoizes permission lookups
// for its lifetime. A single request checks several permissions for the
// same user, so the HTTP layer installs one per request.
func WithPermissionCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, permissionCacheKey{}, &permissionCache{
		entries: make(map[uuid.UUID][]string),
	})
}

// Can checks if a user has a specific permission.
func (s *AuthorizationService) Can(ctx context.Context, userID uuid.UUID, permission string) (bool, error) {
	userPermissions, err := s.GetPermissions(ctx, userID)
	if err != nil {
		// If permissions cannot be loaded (e.g. db down), deny access.
		return false, err
	}
	return slices.Contains(userPermissions, permission), nil
}

// GetPermissions returns all permissions for a user.
func (s *AuthorizationService) GetPermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	cache, _ := ctx.Value(permissionCacheKey{}).(*permissionCache)
	if cache != nil {
		cache.mu.Lock()
		cached, ok := cache.entries[userID]
		cache.mu.Unlock()
		if ok {
			return cached, nil
		}
	}

	permissions, err := s.ensurePermissions(ctx, userID)
	if err != nil {
		return nil, err
	}

	if cache != nil {
		cache.mu.Lock()
		cache.entries[userID] = permissions
		cache.mu.Unlock()
	}
	return permissions, nil
}

// ensurePermissions grants the default role to users without any role.
func (s *AuthorizationService) ensurePermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	permissions, err := s.authRepo.GetUserPermissions(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(permissions) == 0 {
		if err := s.authRepo.AssignRole(ctx, userID, DefaultRole); err != nil && !errors.Is(err, apperrors.ErrRoleAlreadyAssigned) {
			return nil, err
		}

		permissions, err = s.authRepo.GetUserPermissions(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	if permissions == nil {
		return []string{}, nil
	}

	return permissions, nil
}
