package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/polishfinder/backend/models"
	"github.com/polishfinder/backend/repositories"
	"go.uber.org/zap"
)

// RoleRepository implements the repositories.RoleRepository interface
type RoleRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewRoleRepository creates a new role repository
func NewRoleRepository(db *DB, logger *zap.Logger) repositories.RoleRepository {
	return &RoleRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new role
func (r *RoleRepository) Create(ctx context.Context, role *models.Role) error {
	if role.ID == uuid.Nil {
		role.ID = uuid.New()
	}

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx,
		`INSERT INTO roles (id, name, description) VALUES ($1, $2, $3)`,
		role.ID, role.Name, role.Description,
	)
	if err != nil {
		return translateError(err, "failed to create role %s", role.Name)
	}

	r.logger.Debug("role created", zap.String("id", role.ID.String()), zap.String("name", role.Name))
	return nil
}

// GetByID retrieves a role by ID
func (r *RoleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByName retrieves a role by name
func (r *RoleRepository) GetByName(ctx context.Context, name string) (*models.Role, error) {
	return r.getOne(ctx, "name = $1", name)
}

func (r *RoleRepository) getOne(ctx context.Context, where string, arg interface{}) (*models.Role, error) {
	executor := GetExecutor(ctx, r.db)
	role := &models.Role{}

	err := executor.QueryRowContext(ctx,
		`SELECT id, name, description FROM roles WHERE `+where, arg,
	).Scan(&role.ID, &role.Name, &role.Description)
	if err != nil {
		return nil, translateError(err, "failed to get role by %s", where)
	}

	return role, nil
}

// GrantPermission links a permission to a role
func (r *RoleRepository) GrantPermission(ctx context.Context, roleID uuid.UUID, permissionName string) error {
	executor := GetExecutor(ctx, r.db)

	var permissionID uuid.UUID
	err := executor.QueryRowContext(ctx,
		`SELECT id FROM permissions WHERE name = $1`, permissionName,
	).Scan(&permissionID)
	if err != nil {
		return translateError(err, "failed to get permission %s", permissionName)
	}

	_, err = executor.ExecContext(ctx,
		`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		roleID, permissionID,
	)
	if err != nil {
		return translateError(err, "failed to grant %s", permissionName)
	}

	r.logger.Debug("permission granted",
		zap.String("role_id", roleID.String()),
		zap.String("permission", permissionName))
	return nil
}

// PermissionNames returns the permission names reachable from the given roles
func (r *RoleRepository) PermissionNames(ctx context.Context, roleIDs []uuid.UUID) ([]string, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}

	ids := make([]string, len(roleIDs))
	for i, id := range roleIDs {
		ids[i] = id.String()
	}

	query := `
		SELECT p.name
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = ANY($1::uuid[])
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, translateError(err, "failed to list role permissions")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, translateError(err, "failed to scan permission")
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err, "failed to iterate permissions")
	}

	return names, nil
}
