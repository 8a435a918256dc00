package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizationRepository_Roles(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	repo := NewAuthorizationRepository(testPool)
	userID := uuid.New()

	perms, err := repo.GetUserPermissions(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, perms)

	require.NoError(t, repo.AssignRole(ctx, userID, "customer"))
	assert.ErrorIs(t, repo.AssignRole(ctx, userID, "customer"), apperrors.ErrRoleAlreadyAssigned)

	perms, err = repo.GetUserPermissions(ctx, userID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"tickets:create", "tickets:read", "comments:create", "comments:read"}, perms)

	require.NoError(t, repo.SetUserRole(ctx, userID, "agent"))

	perms, err = repo.GetUserPermissions(ctx, userID)
	require.NoError(t, err)
	assert.Contains(t, perms, "tickets:respond")
	assert.Contains(t, perms, "sla:read")
	assert.NotContains(t, perms, "sla:report")
}

func TestAuthorizationRepository_UnknownRole(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	repo := NewAuthorizationRepository(testPool)
	userID := uuid.New()

	require.NoError(t, repo.AssignRole(ctx, userID, "customer"))
	assert.Error(t, repo.SetUserRole(ctx, userID, "superuser"))

	// The failed switch rolled back, so the old role survives.
	perms, err := repo.GetUserPermissions(ctx, userID)
	require.NoError(t, err)
	assert.Contains(t, perms, "tickets:create")
}
