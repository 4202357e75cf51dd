package roles

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/polishfinder/backend/models"
	"github.com/polishfinder/backend/repositories"
	"github.com/polishfinder/backend/services"
	"go.uber.org/zap"
)

// PermissionInvalidator drops cached permission sets after a role change
type PermissionInvalidator interface {
	Invalidate(ctx context.Context, userID uuid.UUID)
}

// AuditLogger records role changes
type AuditLogger interface {
	LogRoleAssigned(ctx context.Context, actorID uuid.UUID, assignment *models.RoleAssignment, roleName string) error
	LogRoleRevoked(ctx context.Context, actorID, userID uuid.UUID, roleName string) error
}

// Manager creates, overwrites and removes the role held by a principal
type Manager struct {
	users       repositories.UserRepository
	roles       repositories.RoleRepository
	assignments repositories.RoleAssignmentRepository
	invalidator PermissionInvalidator
	audit       AuditLogger
	txMgr       repositories.TransactionManager
	logger      *zap.Logger
}

// NewManager creates a new Manager. invalidator and audit may be nil.
func NewManager(
	repos *repositories.Repositories,
	invalidator PermissionInvalidator,
	audit AuditLogger,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		users:       repos.Users,
		roles:       repos.Roles,
		assignments: repos.RoleAssignments,
		invalidator: invalidator,
		audit:       audit,
		logger:      logger,
	}
}

// WithTransactions makes each lookup and write pair run inside one transaction
func (m *Manager) WithTransactions(txMgr repositories.TransactionManager) *Manager {
	m.txMgr = txMgr
	return m
}

// AssignRole gives the named role to the user, replacing any role it held.
// Assigning the role a user already holds is a no-op that returns the
// existing assignment.
func (m *Manager) AssignRole(ctx context.Context, actorID uuid.UUID, username, roleName string) (*models.RoleAssignment, error) {
	var (
		assignment *models.RoleAssignment
		role       *models.Role
	)
	err := m.inTx(ctx, func(ctx context.Context) error {
		user, r, err := m.resolve(ctx, username, roleName)
		if err != nil {
			return err
		}
		role = r

		assignment, err = m.assignments.Upsert(ctx, user.ID, role.ID)
		if err != nil {
			m.logger.Error("failed to upsert role assignment",
				zap.String("user_id", user.ID.String()),
				zap.String("role", role.Name),
				zap.Error(err),
			)
			return services.WrapInternal("failed to assign role", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.invalidate(ctx, assignment.UserID)
	if m.audit != nil {
		if err := m.audit.LogRoleAssigned(ctx, actorID, assignment, role.Name); err != nil {
			m.logger.Warn("failed to queue audit event", zap.Error(err))
		}
	}

	m.logger.Info("role assigned",
		zap.String("user_id", assignment.UserID.String()),
		zap.String("role", role.Name),
	)
	return assignment, nil
}

// RevokeRole removes the assignment matching both user and role.
// ErrRoleNotAssigned is returned when the user does not hold the role.
func (m *Manager) RevokeRole(ctx context.Context, actorID uuid.UUID, username, roleName string) error {
	var (
		user *models.User
		role *models.Role
	)
	err := m.inTx(ctx, func(ctx context.Context) error {
		var err error
		user, role, err = m.resolve(ctx, username, roleName)
		if err != nil {
			return err
		}

		if err := m.assignments.Delete(ctx, user.ID, role.ID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				m.logger.Warn("revoke of unassigned role",
					zap.String("user_id", user.ID.String()),
					zap.String("role", role.Name),
				)
				return services.ErrRoleNotAssigned.
					WithDetail("username", user.Username).
					WithDetail("role", role.Name)
			}
			m.logger.Error("failed to delete role assignment", zap.Error(err))
			return services.WrapInternal("failed to revoke role", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.invalidate(ctx, user.ID)
	if m.audit != nil {
		if err := m.audit.LogRoleRevoked(ctx, actorID, user.ID, role.Name); err != nil {
			m.logger.Warn("failed to queue audit event", zap.Error(err))
		}
	}

	m.logger.Info("role revoked",
		zap.String("user_id", user.ID.String()),
		zap.String("role", role.Name),
	)
	return nil
}

func (m *Manager) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.txMgr == nil {
		return fn(ctx)
	}
	return services.WithTransaction(ctx, m.txMgr, func(ctx context.Context, _ repositories.Transaction) error {
		return fn(ctx)
	})
}

func (m *Manager) resolve(ctx context.Context, username, roleName string) (*models.User, *models.Role, error) {
	user, err := m.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, services.ErrUserNotFound.WithDetail("username", username)
		}
		return nil, nil, services.WrapInternal("failed to load user", err)
	}

	role, err := m.roles.GetByName(ctx, roleName)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, services.ErrRoleNotFound.WithDetail("role", roleName)
		}
		return nil, nil, services.WrapInternal("failed to load role", err)
	}

	return user, role, nil
}

func (m *Manager) invalidate(ctx context.Context, userID uuid.UUID) {
	if m.invalidator != nil {
		m.invalidator.Invalidate(ctx, userID)
	}
}
