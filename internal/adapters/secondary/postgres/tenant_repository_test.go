package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTenantRepository_CreateGetUpdate(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	repo := NewTenantRepository(testPool)

	tenant := createTestTenant(t, ctx)

	found, err := repo.GetByID(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", found.Name)
	assert.Equal(t, domain.DefaultBusinessCalendar(), found.Calendar)
	assert.Equal(t, domain.DefaultSLAPolicy(), found.Policy)

	cal := domain.BusinessCalendar{Timezone: "America/Sao_Paulo", WorkDays: []int{1, 2, 3, 4, 5}, Start: "08:00", End: "17:00"}
	require.NoError(t, found.UpdateCalendar(cal, monday(12, 0)))

	updated, err := repo.Update(ctx, found)
	require.NoError(t, err)
	assert.Equal(t, cal, updated.Calendar)
	assert.True(t, monday(12, 0).Equal(updated.UpdatedAt))
}

func TestTenantRepository_CreateDuplicate(t *testing.T) {
	requireDB(t)
	ctx := context.Background()

	tenant := createTestTenant(t, ctx)

	_, err := NewTenantRepository(testPool).Create(ctx, tenant)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestTenantRepository_NotFound(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	repo := NewTenantRepository(testPool)

	_, err := repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrTenantNotFound)

	ghost, err := domain.NewTenant(uuid.New(), "Ghost", domain.DefaultBusinessCalendar(), domain.DefaultSLAPolicy(), time.Now())
	require.NoError(t, err)
	_, err = repo.Update(ctx, ghost)
	assert.ErrorIs(t, err, apperrors.ErrTenantNotFound)
}

func TestTenantRepository_ListIDs(t *testing.T) {
	requireDB(t)
	ctx := context.Background()

	a := createTestTenant(t, ctx)
	b := createTestTenant(t, ctx)

	ids, err := NewTenantRepository(testPool).ListIDs(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, a.ID)
	assert.Contains(t, ids, b.ID)
}
