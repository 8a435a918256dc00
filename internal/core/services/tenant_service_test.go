package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
	"github.com/lorrc/service-desk-sla/internal/core/mocks"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
	"github.com/lorrc/service-desk-sla/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func saoPauloDefaults() domain.TenantDefaults {
	return domain.TenantDefaults{
		Calendar: domain.BusinessCalendar{
			Timezone: "America/Sao_Paulo",
			WorkDays: []int{1, 2, 3, 4, 5},
			Start:    "08:00",
			End:      "17:00",
		},
		Policy: domain.DefaultSLAPolicy(),
	}
}

func newTenantService(repo *mocks.MockTenantRepository, authz *mocks.MockAuthorizationService) *services.TenantService {
	return services.NewTenantService(repo, authz, saoPauloDefaults(), fixedNow(monday(9, 0)))
}

func TestTenantService_Provision(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	adminID := uuid.New()

	t.Run("creates the tenant from the defaults", func(t *testing.T) {
		repo := mocks.NewMockTenantRepository()
		authz := mocks.NewMockAuthorizationService()
		svc := newTenantService(repo, authz)

		authz.On("Can", mock.Anything, adminID, "tenant:settings:manage").Return(true, nil)
		repo.On("GetByID", mock.Anything, tenantID).Return(nil, apperrors.ErrTenantNotFound)
		repo.On("Create", mock.Anything, mock.MatchedBy(func(tenant *domain.Tenant) bool {
			return tenant.ID == tenantID &&
				tenant.Name == "Acme" &&
				tenant.Calendar.Timezone == "America/Sao_Paulo" &&
				tenant.UpdatedAt.Equal(monday(9, 0))
		})).Return(&domain.Tenant{ID: tenantID, Name: "Acme", Calendar: saoPauloDefaults().Calendar}, nil)

		tenant, err := svc.Provision(ctx, tenantID, adminID, "Acme")

		require.NoError(t, err)
		assert.Equal(t, "America/Sao_Paulo", tenant.Calendar.Timezone)
		repo.AssertExpectations(t)
	})

	t.Run("existing tenant is returned unchanged", func(t *testing.T) {
		repo := mocks.NewMockTenantRepository()
		authz := mocks.NewMockAuthorizationService()
		svc := newTenantService(repo, authz)
		existing := &domain.Tenant{ID: tenantID, Name: "Acme", Calendar: domain.DefaultBusinessCalendar()}

		authz.On("Can", mock.Anything, adminID, "tenant:settings:manage").Return(true, nil)
		repo.On("GetByID", mock.Anything, tenantID).Return(existing, nil)

		tenant, err := svc.Provision(ctx, tenantID, adminID, "Other")

		require.NoError(t, err)
		assert.Same(t, existing, tenant)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("concurrent provision returns the winner", func(t *testing.T) {
		repo := mocks.NewMockTenantRepository()
		authz := mocks.NewMockAuthorizationService()
		svc := newTenantService(repo, authz)
		winner := &domain.Tenant{ID: tenantID, Name: "Winner"}

		authz.On("Can", mock.Anything, adminID, "tenant:settings:manage").Return(true, nil)
		repo.On("GetByID", mock.Anything, tenantID).Return(nil, apperrors.ErrTenantNotFound).Once()
		repo.On("Create", mock.Anything, mock.Anything).Return(nil, apperrors.ErrConflict)
		repo.On("GetByID", mock.Anything, tenantID).Return(winner, nil).Once()

		tenant, err := svc.Provision(ctx, tenantID, adminID, "Acme")

		require.NoError(t, err)
		assert.Same(t, winner, tenant)
	})

	t.Run("forbidden without settings permission", func(t *testing.T) {
		repo := mocks.NewMockTenantRepository()
		authz := mocks.NewMockAuthorizationService()
		svc := newTenantService(repo, authz)

		authz.On("Can", mock.Anything, adminID, "tenant:settings:manage").Return(false, nil)

		_, err := svc.Provision(ctx, tenantID, adminID, "Acme")

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})
}

func TestTenantService_UpdateCalendar(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	adminID := uuid.New()

	t.Run("invalid calendar is rejected", func(t *testing.T) {
		repo := mocks.NewMockTenantRepository()
		authz := mocks.NewMockAuthorizationService()
		svc := newTenantService(repo, authz)

		authz.On("Can", mock.Anything, adminID, "tenant:settings:manage").Return(true, nil)
		repo.On("GetByID", mock.Anything, tenantID).
			Return(&domain.Tenant{ID: tenantID, Calendar: domain.DefaultBusinessCalendar(), Policy: domain.DefaultSLAPolicy()}, nil)

		_, err := svc.UpdateCalendar(ctx, ports.UpdateCalendarParams{
			TenantID: tenantID,
			ActorID:  adminID,
			Calendar: domain.BusinessCalendar{Timezone: "Mars/Olympus", WorkDays: []int{1}, Start: "09:00", End: "17:00"},
		})

		assert.ErrorIs(t, err, apperrors.ErrInvalidCalendar)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("valid calendar is stored", func(t *testing.T) {
		repo := mocks.NewMockTenantRepository()
		authz := mocks.NewMockAuthorizationService()
		svc := newTenantService(repo, authz)
		tenant := &domain.Tenant{ID: tenantID, Calendar: domain.DefaultBusinessCalendar(), Policy: domain.DefaultSLAPolicy()}

		authz.On("Can", mock.Anything, adminID, "tenant:settings:manage").Return(true, nil)
		repo.On("GetByID", mock.Anything, tenantID).Return(tenant, nil)
		repo.On("Update", mock.Anything, tenant).Return(tenant, nil)

		updated, err := svc.UpdateCalendar(ctx, ports.UpdateCalendarParams{
			TenantID: tenantID,
			ActorID:  adminID,
			Calendar: saoPauloDefaults().Calendar,
		})

		require.NoError(t, err)
		assert.Equal(t, "America/Sao_Paulo", updated.Calendar.Timezone)
		assert.Equal(t, monday(9, 0), updated.UpdatedAt)
	})
}

func TestTenantService_UpdatePolicy(t *testing.T) {
	repo := mocks.NewMockTenantRepository()
	authz := mocks.NewMockAuthorizationService()
	svc := newTenantService(repo, authz)
	tenantID := uuid.New()
	adminID := uuid.New()

	authz.On("Can", mock.Anything, adminID, "tenant:settings:manage").Return(true, nil)
	repo.On("GetByID", mock.Anything, tenantID).
		Return(&domain.Tenant{ID: tenantID, Calendar: domain.DefaultBusinessCalendar(), Policy: domain.DefaultSLAPolicy()}, nil)

	_, err := svc.UpdatePolicy(context.Background(), ports.UpdatePolicyParams{
		TenantID: tenantID,
		ActorID:  adminID,
		Policy:   domain.SLAPolicy{domain.PriorityLow: {FirstResponse: time.Hour, Resolution: time.Hour, OwnResolution: time.Hour}},
	})

	assert.ErrorIs(t, err, apperrors.ErrInvalidSLAPolicy)
}

func TestTenantService_Previews(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	repo := mocks.NewMockTenantRepository()
	svc := newTenantService(repo, mocks.NewMockAuthorizationService())
	repo.On("GetByID", mock.Anything, tenantID).
		Return(&domain.Tenant{ID: tenantID, Calendar: domain.DefaultBusinessCalendar(), Policy: domain.DefaultSLAPolicy()}, nil)

	friday := time.Date(2024, time.May, 17, 17, 0, 0, 0, time.UTC)

	due, err := svc.PreviewDue(ctx, ports.PreviewDueParams{TenantID: tenantID, Start: friday, Budget: 2 * time.Hour})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.May, 20, 10, 0, 0, 0, time.UTC), due)

	elapsed, err := svc.PreviewElapsed(ctx, ports.PreviewElapsedParams{TenantID: tenantID, Start: monday(8, 0), End: monday(12, 0)})
	require.NoError(t, err)
	assert.Equal(t, 3*time.Hour, elapsed)

	_, err = svc.PreviewDue(ctx, ports.PreviewDueParams{TenantID: tenantID, Start: friday, Budget: -time.Minute})
	assert.ErrorIs(t, err, apperrors.ErrNegativeDuration)
}
