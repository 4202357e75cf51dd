package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/polishfinder/backend/config"
	"github.com/polishfinder/backend/handlers"
	"github.com/polishfinder/backend/middleware"
	"github.com/polishfinder/backend/models"
	"github.com/polishfinder/backend/repositories"
	"github.com/polishfinder/backend/repositories/memory"
	"github.com/polishfinder/backend/repositories/postgres"
	"github.com/polishfinder/backend/services"
	"github.com/polishfinder/backend/services/audit"
	"github.com/polishfinder/backend/services/authz"
	"github.com/polishfinder/backend/services/identity"
	"github.com/polishfinder/backend/services/moderation"
	"github.com/polishfinder/backend/services/roles"
	"github.com/polishfinder/backend/services/submission"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cacheCleanupInterval = time.Minute

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger
	DB     *postgres.DB  // nil with the memory driver
	Store  *memory.Store // nil with the postgres driver
	Redis  redis.UniversalClient

	// Repositories
	RepoFactory *postgres.RepositoryFactory
	Repos       *repositories.Repositories
	TxManager   repositories.TransactionManager

	// Services
	Audit       *audit.AuditService
	Permissions authz.Cache
	Resolver    *authz.Resolver
	Roles       *roles.Manager
	Submissions *submission.Service
	Moderation  *moderation.Controller
	Identity    *identity.Service

	// HTTP
	AuthMiddleware       *middleware.AuthMiddleware
	PermissionMiddleware *middleware.PermissionMiddleware
	HealthHandler        *handlers.HealthHandler
	AuthHandler          *handlers.AuthHandler
	RoleHandler          *handlers.RoleHandler
	SubmissionHandler    *handlers.SubmissionHandler
	ReviewHandler        *handlers.ReviewHandler

	cacheStop chan struct{}
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initStorage(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := deps.initPermissionCache(ctx, cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize permission cache: %w", err)
	}

	if err := deps.initServices(ctx, cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	deps.initHTTP()

	logger.Info("all dependencies initialized successfully",
		zap.String("storage", cfg.Storage.Driver),
		zap.String("permission_cache", cfg.Cache.Backend))
	return deps, nil
}

// initStorage opens the configured store and builds the repositories
func (d *Dependencies) initStorage(ctx context.Context, cfg *config.Config) error {
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		d.Store = memory.NewStore()
		d.Repos = d.Store.Repositories()
		d.TxManager = d.Store.TransactionManager()
		d.Logger.Warn("using in-memory storage; data is lost on restart")
		return nil

	case config.StorageDriverPostgres:
		factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
		if err != nil {
			return fmt.Errorf("failed to create repository factory: %w", err)
		}
		d.RepoFactory = factory
		d.DB = factory.GetDB()

		if cfg.Storage.InitSchema {
			if err := factory.InitSchema(ctx); err != nil {
				_ = factory.Close()
				return fmt.Errorf("failed to initialize schema: %w", err)
			}
		}

		d.Repos = factory.NewRepositories()
		d.TxManager = factory.GetTransactionManager()
		d.Logger.Info("repositories initialized")
		return nil
	}

	return fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

// initPermissionCache selects the permission-set cache backend
func (d *Dependencies) initPermissionCache(ctx context.Context, cfg *config.Config) error {
	switch cfg.Cache.Backend {
	case config.CacheBackendOff:
		d.Permissions = authz.NopCache{}

	case config.CacheBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return fmt.Errorf("redis ping failed: %w", err)
		}
		d.Redis = client
		d.Permissions = authz.NewRedisCache(client, cfg.Cache.TTL, d.Logger)
		d.Logger.Info("redis permission cache connected", zap.String("addr", cfg.Redis.Addr))

	default:
		cache := authz.NewMemoryCache(cfg.Cache.Size, cfg.Cache.TTL)
		d.cacheStop = make(chan struct{})
		go cache.StartCleanupWorker(cacheCleanupInterval, d.cacheStop)
		d.Permissions = cache
	}
	return nil
}

// initServices builds the domain services on top of the repositories
func (d *Dependencies) initServices(ctx context.Context, cfg *config.Config) error {
	d.Audit = audit.NewAuditService(d.Repos.AuditLogs, d.Logger, audit.Config{
		BufferSize:  cfg.Audit.BufferSize,
		WorkerCount: cfg.Audit.Workers,
	})
	if err := d.Audit.Start(); err != nil {
		return fmt.Errorf("failed to start audit service: %w", err)
	}

	d.Resolver = authz.NewResolver(d.Repos, d.Permissions, d.Logger)
	d.Roles = roles.NewManager(d.Repos, d.Resolver, d.Audit, d.Logger).WithTransactions(d.TxManager)
	d.Submissions = submission.NewService(d.Repos, d.Audit, d.Logger)
	d.Moderation = moderation.NewController(d.Repos, d.Audit, d.Logger)

	tokens := identity.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL)
	d.Identity = identity.NewService(d.Repos, d.TxManager, tokens, identity.Options{
		BcryptCost:      cfg.Auth.BcryptCost,
		RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
		BootstrapAdmin:  cfg.Auth.BootstrapAdmin,
	}, d.Audit, d.Logger)

	if err := d.bootstrapAdmin(ctx, cfg.Auth.BootstrapAdmin); err != nil {
		return err
	}

	d.Logger.Info("services initialized")
	return nil
}

// bootstrapAdmin grants Admin to an already registered bootstrap user.
// A user registering later under that name is granted Admin by the identity
// service instead.
func (d *Dependencies) bootstrapAdmin(ctx context.Context, username string) error {
	if username == "" {
		return nil
	}

	_, err := d.Roles.AssignRole(ctx, uuid.Nil, username, models.RoleNameAdmin)
	switch {
	case err == nil:
		d.Logger.Info("bootstrap admin granted", zap.String("username", username))
	case errors.Is(err, services.ErrUserNotFound):
		d.Logger.Info("bootstrap admin not registered yet", zap.String("username", username))
	default:
		return fmt.Errorf("failed to grant bootstrap admin: %w", err)
	}
	return nil
}

// initHTTP builds middlewares and handlers
func (d *Dependencies) initHTTP() {
	var db *sql.DB
	if d.DB != nil {
		db = d.DB.DB
	}

	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Identity, d.Logger)
	d.PermissionMiddleware = middleware.NewPermissionMiddleware(d.Resolver, d.Logger)
	d.HealthHandler = handlers.NewHealthHandler(db, d.Redis, d.Logger)
	d.AuthHandler = handlers.NewAuthHandler(d.Identity, d.Logger)
	d.RoleHandler = handlers.NewRoleHandler(d.Roles, d.Logger)
	d.SubmissionHandler = handlers.NewSubmissionHandler(d.Submissions, d.Logger)
	d.ReviewHandler = handlers.NewReviewHandler(d.Moderation, d.Logger)
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	// Drain queued audit events before the store goes away
	if d.Audit != nil {
		timeout := 5 * time.Second
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		if err := d.Audit.Stop(timeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
	}

	if d.cacheStop != nil {
		close(d.cacheStop)
		d.cacheStop = nil
	}

	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		} else {
			d.Logger.Info("redis connection closed")
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	_ = d.Logger.Sync()

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
