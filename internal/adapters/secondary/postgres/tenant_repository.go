package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

const tenantColumns = `id, name, calendar, sla_policy, created_at, updated_at`

// TenantRepository stores tenant calendars and SLA policies as JSONB.
type TenantRepository struct {
	pool *pgxpool.Pool
}

var _ ports.TenantRepository = (*TenantRepository)(nil)

func NewTenantRepository(pool *pgxpool.Pool) *TenantRepository {
	return &TenantRepository{pool: pool}
}

func scanTenant(row pgx.Row) (*domain.Tenant, error) {
	var (
		t           domain.Tenant
		calendarRaw []byte
		policyRaw   []byte
	)
	if err := row.Scan(&t.ID, &t.Name, &calendarRaw, &policyRaw, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}

	cal, err := decodeCalendar(calendarRaw)
	if err != nil {
		return nil, fmt.Errorf("tenant %s: %w", t.ID, err)
	}
	policy, err := decodePolicy(policyRaw)
	if err != nil {
		return nil, fmt.Errorf("tenant %s: %w", t.ID, err)
	}
	t.Calendar = cal
	t.Policy = policy
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return &t, nil
}

// Create inserts a tenant. A duplicate ID yields ErrConflict.
func (r *TenantRepository) Create(ctx context.Context, tenant *domain.Tenant) (*domain.Tenant, error) {
	calendarRaw, err := encodeCalendar(tenant.Calendar)
	if err != nil {
		return nil, err
	}
	policyRaw, err := encodePolicy(tenant.Policy)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO tenants (id, name, calendar, sla_policy, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + tenantColumns

	created, err := scanTenant(GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		tenant.ID, tenant.Name, calendarRaw, policyRaw, tenant.CreatedAt, tenant.UpdatedAt,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.ErrConflict
		}
		return nil, err
	}
	return created, nil
}

func (r *TenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`

	tenant, err := scanTenant(GetDBTX(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTenantNotFound
		}
		return nil, err
	}
	return tenant, nil
}

// Update replaces the tenant's name, calendar and policy.
func (r *TenantRepository) Update(ctx context.Context, tenant *domain.Tenant) (*domain.Tenant, error) {
	calendarRaw, err := encodeCalendar(tenant.Calendar)
	if err != nil {
		return nil, err
	}
	policyRaw, err := encodePolicy(tenant.Policy)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE tenants
		SET name = $2, calendar = $3, sla_policy = $4, updated_at = $5
		WHERE id = $1
		RETURNING ` + tenantColumns

	updated, err := scanTenant(GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		tenant.ID, tenant.Name, calendarRaw, policyRaw, tenant.UpdatedAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTenantNotFound
		}
		return nil, err
	}
	return updated, nil
}

// ListIDs returns every provisioned tenant.
func (r *TenantRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := GetDBTX(ctx, r.pool).Query(ctx, `SELECT id FROM tenants ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
