package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

const manageSettingsPermission = "tenant:settings:manage"

// TenantService manages tenant calendars and SLA policies.
type TenantService struct {
	tenantRepo ports.TenantRepository
	authzSvc   ports.AuthorizationService
	defaults   domain.TenantDefaults
	now        func() time.Time
	logger     *slog.Logger
}

var _ ports.TenantService = (*TenantService)(nil)

// NewTenantService creates a tenant service. defaults seed newly provisioned tenants.
func NewTenantService(
	tenantRepo ports.TenantRepository,
	authzSvc ports.AuthorizationService,
	defaults domain.TenantDefaults,
	opts ...Option,
) *TenantService {
	o := applyOptions(opts)
	return &TenantService{
		tenantRepo: tenantRepo,
		authzSvc:   authzSvc,
		defaults:   defaults,
		now:        o.now,
		logger:     o.logger.With("component", "tenant_service"),
	}
}

// GetSettings returns the tenant's calendar and policy.
func (s *TenantService) GetSettings(ctx context.Context, tenantID uuid.UUID) (*domain.Tenant, error) {
	return s.tenantRepo.GetByID(ctx, tenantID)
}

// Provision creates the tenant from the configured defaults. Provisioning an
// existing tenant returns it unchanged.
func (s *TenantService) Provision(ctx context.Context, tenantID, actorID uuid.UUID, name string) (*domain.Tenant, error) {
	if err := requirePermission(ctx, s.authzSvc, actorID, manageSettingsPermission); err != nil {
		return nil, err
	}

	existing, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperrors.ErrTenantNotFound) {
		return nil, err
	}

	tenant, err := domain.NewTenant(tenantID, name, s.defaults.Calendar, s.defaults.Policy, s.now())
	if err != nil {
		return nil, err
	}

	created, err := s.tenantRepo.Create(ctx, tenant)
	if errors.Is(err, apperrors.ErrConflict) {
		// Lost a race with a concurrent provision.
		return s.tenantRepo.GetByID(ctx, tenantID)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("tenant provisioned",
		"tenant_id", created.ID,
		"timezone", created.Calendar.Timezone,
	)
	return created, nil
}

// UpdateCalendar replaces the tenant calendar.
func (s *TenantService) UpdateCalendar(ctx context.Context, params ports.UpdateCalendarParams) (*domain.Tenant, error) {
	return s.update(ctx, params.TenantID, params.ActorID, func(tenant *domain.Tenant, at time.Time) error {
		return tenant.UpdateCalendar(params.Calendar, at)
	})
}

// UpdatePolicy replaces the tenant SLA policy.
func (s *TenantService) UpdatePolicy(ctx context.Context, params ports.UpdatePolicyParams) (*domain.Tenant, error) {
	return s.update(ctx, params.TenantID, params.ActorID, func(tenant *domain.Tenant, at time.Time) error {
		return tenant.UpdatePolicy(params.Policy, at)
	})
}

// PreviewDue computes when a budget starting at params.Start falls due under
// the tenant's calendar.
func (s *TenantService) PreviewDue(ctx context.Context, params ports.PreviewDueParams) (time.Time, error) {
	tenant, err := s.tenantRepo.GetByID(ctx, params.TenantID)
	if err != nil {
		return time.Time{}, err
	}
	return domain.AddBusinessTime(params.Start, params.Budget, tenant.Calendar)
}

// PreviewElapsed computes the business time between two instants under the
// tenant's calendar.
func (s *TenantService) PreviewElapsed(ctx context.Context, params ports.PreviewElapsedParams) (time.Duration, error) {
	tenant, err := s.tenantRepo.GetByID(ctx, params.TenantID)
	if err != nil {
		return 0, err
	}
	return domain.BusinessTimeBetween(params.Start, params.End, tenant.Calendar)
}

func (s *TenantService) update(
	ctx context.Context,
	tenantID, actorID uuid.UUID,
	apply func(tenant *domain.Tenant, at time.Time) error,
) (*domain.Tenant, error) {
	if err := requirePermission(ctx, s.authzSvc, actorID, manageSettingsPermission); err != nil {
		return nil, err
	}

	tenant, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := apply(tenant, s.now()); err != nil {
		return nil, err
	}
	return s.tenantRepo.Update(ctx, tenant)
}
