package authz

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/polishfinder/backend/models"
	"github.com/polishfinder/backend/repositories"
	"github.com/polishfinder/backend/repositories/memory"
	"github.com/polishfinder/backend/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// countingRoles counts permission lookups that reach storage
type countingRoles struct {
	repositories.RoleRepository
	calls atomic.Int32
}

func (c *countingRoles) PermissionNames(ctx context.Context, roleIDs []uuid.UUID) ([]string, error) {
	c.calls.Add(1)
	return c.RoleRepository.PermissionNames(ctx, roleIDs)
}

// gatedRoles parks the first permission lookup until release is closed
type gatedRoles struct {
	repositories.RoleRepository
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedRoles(inner repositories.RoleRepository) *gatedRoles {
	return &gatedRoles{
		RoleRepository: inner,
		entered:        make(chan struct{}),
		release:        make(chan struct{}),
	}
}

func (g *gatedRoles) PermissionNames(ctx context.Context, roleIDs []uuid.UUID) ([]string, error) {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.RoleRepository.PermissionNames(ctx, roleIDs)
}

func newUser(t *testing.T, repos *repositories.Repositories, username string) *models.User {
	t.Helper()
	u := models.NewUser(username, username+"@example.com", "hash")
	require.NoError(t, repos.Users.Create(context.Background(), u))
	return u
}

func assign(t *testing.T, repos *repositories.Repositories, userID uuid.UUID, roleName string) {
	t.Helper()
	ctx := context.Background()
	role, err := repos.Roles.GetByName(ctx, roleName)
	require.NoError(t, err)
	_, err = repos.RoleAssignments.Upsert(ctx, userID, role.ID)
	require.NoError(t, err)
}

func TestUnionPermissions(t *testing.T) {
	a := []string{"A", "B"}
	b := []string{"B", "C"}

	assert.Equal(t, UnionPermissions(a, b), UnionPermissions(b, a))
	assert.Equal(t, []string{"A", "B", "C"}, UnionPermissions(a, b).Names())
	assert.False(t, UnionPermissions().Has("A"))
}

func TestResolver_Authorize(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repos := store.Repositories()
	resolver := NewResolver(repos, nil, zap.NewNop())

	t.Run("unknown principal", func(t *testing.T) {
		err := resolver.Authorize(ctx, uuid.New(), models.PermUploadBrand)
		assert.ErrorIs(t, err, services.ErrUserNotFound)
	})

	t.Run("principal without roles", func(t *testing.T) {
		u := newUser(t, repos, "noroles")
		err := resolver.Authorize(ctx, u.ID, models.PermUploadBrand)
		assert.ErrorIs(t, err, services.ErrNoRoles)
		assert.True(t, services.IsForbiddenError(err))
	})

	t.Run("permission held through role", func(t *testing.T) {
		u := newUser(t, repos, "member")
		assign(t, repos, u.ID, models.RoleNameUser)

		assert.NoError(t, resolver.Authorize(ctx, u.ID, models.PermUploadPolish))

		err := resolver.Authorize(ctx, u.ID, models.PermManageRoles)
		assert.ErrorIs(t, err, services.ErrMissingPermission)
		assert.Equal(t, models.PermManageRoles, services.GetErrorDetails(err)["permission"])
	})

	t.Run("admin holds everything", func(t *testing.T) {
		u := newUser(t, repos, "root")
		assign(t, repos, u.ID, models.RoleNameAdmin)
		for _, perm := range models.AllPermissions {
			assert.NoError(t, resolver.Authorize(ctx, u.ID, perm), perm)
		}
	})
}

func TestResolver_CustomReviewerRole(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewStore().Repositories()
	resolver := NewResolver(repos, nil, zap.NewNop())

	reviewer := &models.Role{Name: "Reviewer", Description: "brands only"}
	require.NoError(t, repos.Roles.Create(ctx, reviewer))
	require.NoError(t, repos.Roles.GrantPermission(ctx, reviewer.ID, models.PermManageBrandSubmissions))

	u := newUser(t, repos, "rita")
	assign(t, repos, u.ID, "Reviewer")

	ok, err := resolver.Allowed(ctx, u.ID, models.PermManageBrandSubmissions)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = resolver.Allowed(ctx, u.ID, models.PermManagePolishSubmissions)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolver_Allowed_PropagatesLookupErrors(t *testing.T) {
	resolver := NewResolver(memory.NewStore().Repositories(), nil, zap.NewNop())

	ok, err := resolver.Allowed(context.Background(), uuid.New(), models.PermUploadBrand)
	assert.False(t, ok)
	assert.ErrorIs(t, err, services.ErrUserNotFound)
}

func TestResolver_CachesAndInvalidates(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewStore().Repositories()
	roles := &countingRoles{RoleRepository: repos.Roles}
	repos.Roles = roles

	resolver := NewResolver(repos, NewMemoryCache(10, time.Minute), zap.NewNop())

	u := newUser(t, repos, "cached")
	assign(t, repos, u.ID, models.RoleNameUser)

	for i := 0; i < 3; i++ {
		require.NoError(t, resolver.Authorize(ctx, u.ID, models.PermUploadBrand))
	}
	assert.Equal(t, int32(1), roles.calls.Load())

	assign(t, repos, u.ID, models.RoleNameModerator)
	assert.Error(t, resolver.Authorize(ctx, u.ID, models.PermManageSubmissions), "stale entry still served")

	resolver.Invalidate(ctx, u.ID)
	assert.NoError(t, resolver.Authorize(ctx, u.ID, models.PermManageSubmissions))
	assert.Equal(t, int32(2), roles.calls.Load())
}

func TestResolver_ConcurrentCallers(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewStore().Repositories()
	resolver := NewResolver(repos, NewMemoryCache(10, time.Minute), zap.NewNop())

	u := newUser(t, repos, "busy")
	assign(t, repos, u.ID, models.RoleNameModerator)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- resolver.Authorize(ctx, u.ID, models.PermManageBrandSubmissions)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestResolver_RevocationDuringLoadIsNotCached(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewStore().Repositories()
	gated := newGatedRoles(repos.Roles)
	repos.Roles = gated

	resolver := NewResolver(repos, NewMemoryCache(10, time.Minute), zap.NewNop())

	alice := newUser(t, repos, "alice")
	assign(t, repos, alice.ID, models.RoleNameAdmin)
	admin, err := repos.Roles.GetByName(ctx, models.RoleNameAdmin)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- resolver.Authorize(ctx, alice.ID, models.PermManageRoles)
	}()
	<-gated.entered

	// revoke while the load holds the old assignment list
	require.NoError(t, repos.RoleAssignments.Delete(ctx, alice.ID, admin.ID))
	resolver.Invalidate(ctx, alice.ID)
	close(gated.release)
	require.NoError(t, <-done)

	err = resolver.Authorize(ctx, alice.ID, models.PermManageRoles)
	assert.ErrorIs(t, err, services.ErrNoRoles)
}

func TestResolver_LoadSurvivesCallerCancellation(t *testing.T) {
	repos := memory.NewStore().Repositories()
	gated := newGatedRoles(repos.Roles)
	counting := &countingRoles{RoleRepository: gated}
	repos.Roles = counting

	resolver := NewResolver(repos, NewMemoryCache(10, time.Minute), zap.NewNop())

	u := newUser(t, repos, "impatient")
	assign(t, repos, u.ID, models.RoleNameUser)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := resolver.EffectivePermissions(ctx, u.ID)
		done <- err
	}()
	<-gated.entered
	cancel()
	close(gated.release)
	require.NoError(t, <-done)

	// the shared load completed and populated the cache
	require.NoError(t, resolver.Authorize(context.Background(), u.ID, models.PermUploadBrand))
	assert.Equal(t, int32(1), counting.calls.Load())
}
