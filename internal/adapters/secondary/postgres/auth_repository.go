package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

// AuthorizationRepository handles database operations for RBAC.
type AuthorizationRepository struct {
	pool      *pgxpool.Pool
	txManager *TransactionManager
}

// Ensure implementation matches the interface.
var _ ports.AuthorizationRepository = (*AuthorizationRepository)(nil)

// NewAuthorizationRepository creates a new repository for authorization queries.
func NewAuthorizationRepository(pool *pgxpool.Pool) *AuthorizationRepository {
	return &AuthorizationRepository{pool: pool, txManager: NewTransactionManager(pool)}
}

// GetUserPermissions fetches all distinct permissions for a given user ID.
func (r *AuthorizationRepository) GetUserPermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	query := `
		SELECT DISTINCT p.code
		FROM permissions p
		INNER JOIN role_permissions rp ON p.id = rp.permission_id
		INNER JOIN user_roles ur ON rp.role_id = ur.role_id
		WHERE ur.user_id = $1
		ORDER BY p.code
	`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	permissions := make([]string, 0)
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		permissions = append(permissions, code)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return permissions, nil
}

// AssignRole grants a role. Granting a role the user already holds returns
// ErrRoleAlreadyAssigned.
func (r *AuthorizationRepository) AssignRole(ctx context.Context, userID uuid.UUID, roleName string) error {
	roleID, err := r.roleID(ctx, roleName)
	if err != nil {
		return err
	}

	tag, err := GetDBTX(ctx, r.pool).Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, userID, roleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrRoleAlreadyAssigned
	}
	return nil
}

// SetUserRole replaces every role of the user with roleName.
func (r *AuthorizationRepository) SetUserRole(ctx context.Context, userID uuid.UUID, roleName string) error {
	return r.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		roleID, err := r.roleID(ctx, roleName)
		if err != nil {
			return err
		}
		db := GetDBTX(ctx, r.pool)
		if _, err := db.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
			return err
		}
		_, err = db.Exec(ctx, `INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`, userID, roleID)
		return err
	})
}

func (r *AuthorizationRepository) roleID(ctx context.Context, roleName string) (int32, error) {
	var id int32
	err := GetDBTX(ctx, r.pool).QueryRow(ctx, `SELECT id FROM roles WHERE name = $1`, roleName).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("role %q: %w", roleName, err)
	}
	return id, nil
}
