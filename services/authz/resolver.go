package authz

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/polishfinder/backend/repositories"
	"github.com/polishfinder/backend/services"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Resolver answers whether a principal holds a permission through any of
// its roles
type Resolver struct {
	users       repositories.UserRepository
	roles       repositories.RoleRepository
	assignments repositories.RoleAssignmentRepository
	cache       Cache
	group       singleflight.Group
	logger      *zap.Logger

	// generations counts invalidations per principal. A load only
	// populates the cache when no invalidation happened while it ran.
	mu          sync.Mutex
	generations map[uuid.UUID]uint64
}

// NewResolver creates a new Resolver. A nil cache disables caching.
func NewResolver(repos *repositories.Repositories, cache Cache, logger *zap.Logger) *Resolver {
	if cache == nil {
		cache = NopCache{}
	}
	return &Resolver{
		users:       repos.Users,
		roles:       repos.Roles,
		assignments: repos.RoleAssignments,
		cache:       cache,
		logger:      logger,
		generations: make(map[uuid.UUID]uint64),
	}
}

// Authorize returns nil when the principal holds permission.
// Unknown principals yield ErrUserNotFound; principals without roles yield
// ErrNoRoles; otherwise ErrMissingPermission.
func (r *Resolver) Authorize(ctx context.Context, principalID uuid.UUID, permission string) error {
	perms, err := r.EffectivePermissions(ctx, principalID)
	if err != nil {
		return err
	}
	if !perms.Has(permission) {
		r.logger.Debug("permission denied",
			zap.String("user_id", principalID.String()),
			zap.String("permission", permission),
		)
		return services.ErrMissingPermission.WithDetail("permission", permission)
	}
	return nil
}

// Allowed is the boolean form of Authorize. Only lookup failures are
// returned as errors.
func (r *Resolver) Allowed(ctx context.Context, principalID uuid.UUID, permission string) (bool, error) {
	err := r.Authorize(ctx, principalID, permission)
	switch {
	case err == nil:
		return true, nil
	case services.IsForbiddenError(err):
		return false, nil
	default:
		return false, err
	}
}

// EffectivePermissions returns the union of permissions over every role the
// principal holds
func (r *Resolver) EffectivePermissions(ctx context.Context, principalID uuid.UUID) (PermissionSet, error) {
	if perms, ok := r.cache.Get(ctx, principalID); ok {
		return perms, nil
	}

	// Waiters share the load, so it must not die with the caller that started it
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := r.group.Do(principalID.String(), func() (interface{}, error) {
		return r.load(loadCtx, principalID)
	})
	if err != nil {
		return nil, err
	}
	return v.(PermissionSet), nil
}

// Invalidate drops any cached permission set for the principal. Loads already
// in flight still answer their callers but no longer populate the cache.
func (r *Resolver) Invalidate(ctx context.Context, principalID uuid.UUID) {
	r.mu.Lock()
	r.generations[principalID]++
	r.mu.Unlock()

	r.group.Forget(principalID.String())
	r.cache.Invalidate(ctx, principalID)
}

func (r *Resolver) generation(principalID uuid.UUID) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generations[principalID]
}

func (r *Resolver) load(ctx context.Context, principalID uuid.UUID) (PermissionSet, error) {
	gen := r.generation(principalID)

	if _, err := r.users.GetByID(ctx, principalID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrUserNotFound.WithDetail("user_id", principalID.String())
		}
		return nil, services.WrapInternal("failed to load principal", err)
	}

	assignments, err := r.assignments.ListByUserID(ctx, principalID)
	if err != nil {
		return nil, services.WrapInternal("failed to load role assignments", err)
	}
	if len(assignments) == 0 {
		return nil, services.ErrNoRoles.WithDetail("user_id", principalID.String())
	}

	roleIDs := make([]uuid.UUID, 0, len(assignments))
	for _, a := range assignments {
		roleIDs = append(roleIDs, a.RoleID)
	}

	names, err := r.roles.PermissionNames(ctx, roleIDs)
	if err != nil {
		return nil, services.WrapInternal("failed to load role permissions", err)
	}

	perms := UnionPermissions(names)
	if r.generation(principalID) != gen {
		r.logger.Debug("permission set invalidated during load, not caching",
			zap.String("user_id", principalID.String()),
		)
		return perms, nil
	}
	r.cache.Set(ctx, principalID, perms)
	if r.generation(principalID) != gen {
		r.cache.Invalidate(ctx, principalID)
	}
	return perms, nil
}
