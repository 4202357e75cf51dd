package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/polishfinder/backend/models"
	"github.com/polishfinder/backend/repositories"
	"go.uber.org/zap"
)

// RoleAssignmentRepository implements the repositories.RoleAssignmentRepository interface
type RoleAssignmentRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewRoleAssignmentRepository creates a new role assignment repository
func NewRoleAssignmentRepository(db *DB, logger *zap.Logger) repositories.RoleAssignmentRepository {
	return &RoleAssignmentRepository{
		db:     db,
		logger: logger,
	}
}

// ListByUserID returns the assignments held by a principal
func (r *RoleAssignmentRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.RoleAssignment, error) {
	query := `
		SELECT id, user_id, role_id, created_at, updated_at
		FROM user_roles
		WHERE user_id = $1
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, translateError(err, "failed to list role assignments")
	}
	defer rows.Close()

	var assignments []*models.RoleAssignment
	for rows.Next() {
		a := &models.RoleAssignment{}
		if err := rows.Scan(&a.ID, &a.UserID, &a.RoleID, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, translateError(err, "failed to scan role assignment")
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err, "failed to iterate role assignments")
	}

	return assignments, nil
}

// Upsert inserts or overwrites the principal's assignment in one statement
func (r *RoleAssignmentRepository) Upsert(ctx context.Context, userID, roleID uuid.UUID) (*models.RoleAssignment, error) {
	query := `
		INSERT INTO user_roles (id, user_id, role_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET role_id = EXCLUDED.role_id, updated_at = EXCLUDED.updated_at
		RETURNING id, user_id, role_id, created_at, updated_at
	`

	executor := GetExecutor(ctx, r.db)
	a := &models.RoleAssignment{}

	err := executor.QueryRowContext(ctx, query, uuid.New(), userID, roleID, time.Now()).Scan(
		&a.ID,
		&a.UserID,
		&a.RoleID,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err, "failed to upsert role assignment")
	}

	r.logger.Debug("role assignment upserted",
		zap.String("user_id", userID.String()),
		zap.String("role_id", roleID.String()))
	return a, nil
}

// Delete removes the assignment matching both principal and role
func (r *RoleAssignmentRepository) Delete(ctx context.Context, userID, roleID uuid.UUID) error {
	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx,
		`DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`,
		userID, roleID,
	)
	if err != nil {
		return translateError(err, "failed to delete role assignment")
	}

	n, err := result.RowsAffected()
	if err != nil {
		return translateError(err, "failed to read affected rows")
	}
	if n == 0 {
		return repositories.ErrNotFound
	}

	r.logger.Debug("role assignment deleted",
		zap.String("user_id", userID.String()),
		zap.String("role_id", roleID.String()))
	return nil
}
