package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

const userColumns = `u.id, u.tenant_id, u.full_name, u.email, u.is_active, u.created_at, u.last_active_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

var _ ports.UserRepository = (*UserRepository)(nil)

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u            domain.User
		lastActiveAt pgtype.Timestamptz
	)
	if err := row.Scan(&u.ID, &u.TenantID, &u.FullName, &u.Email, &u.IsActive, &u.CreatedAt, &lastActiveAt); err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.LastActiveAt = fromNullTime(lastActiveAt)
	return &u, nil
}

// Upsert inserts the user or refreshes the profile carried by the identity
// provider. The original created_at is kept.
func (r *UserRepository) Upsert(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `
		INSERT INTO users AS u (id, tenant_id, full_name, email, is_active, created_at, last_active_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET tenant_id = EXCLUDED.tenant_id,
			full_name = EXCLUDED.full_name,
			email = EXCLUDED.email,
			is_active = EXCLUDED.is_active,
			last_active_at = COALESCE(EXCLUDED.last_active_at, u.last_active_at)
		RETURNING ` + userColumns

	return scanUser(GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		user.ID,
		user.TenantID,
		user.FullName,
		user.Email,
		user.IsActive,
		user.CreatedAt,
		toNullTime(user.LastActiveAt),
	))
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.id = $1`

	user, err := scanUser(GetDBTX(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// ListByPermission returns the tenant's active users holding a permission
// through any of their roles.
func (r *UserRepository) ListByPermission(ctx context.Context, tenantID uuid.UUID, permission string) ([]*domain.User, error) {
	query := `
		SELECT DISTINCT ` + userColumns + `
		FROM users u
		INNER JOIN user_roles ur ON ur.user_id = u.id
		INNER JOIN role_permissions rp ON rp.role_id = ur.role_id
		INNER JOIN permissions p ON p.id = rp.permission_id
		WHERE u.tenant_id = $1 AND u.is_active AND p.code = $2
		ORDER BY u.full_name, u.id`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, tenantID, permission)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}
