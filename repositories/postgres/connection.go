package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/polishfinder/backend/config"
	"github.com/polishfinder/backend/models"
	"github.com/polishfinder/backend/repositories"
	"go.uber.org/zap"
)

// DB wraps the sql.DB connection pool
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a new database connection pool
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("connection", cfg.LogString()))

	return &DB{
		DB:     db,
		logger: logger,
	}, nil
}

// WrapDB wraps an already opened pool
func WrapDB(db *sql.DB, logger *zap.Logger) *DB {
	return &DB{DB: db, logger: logger}
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}

const schema = `
	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username VARCHAR(100) NOT NULL UNIQUE,
		email VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		email_verified BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users (lower(email));

	-- Only a bcrypt hash of each token secret is kept
	CREATE TABLE IF NOT EXISTS refresh_tokens (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token_hash VARCHAR(255) NOT NULL,
		expires_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS roles (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name VARCHAR(100) NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS permissions (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name VARCHAR(100) NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS role_permissions (
		role_id UUID NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
		permission_id UUID NOT NULL REFERENCES permissions(id) ON DELETE CASCADE,
		PRIMARY KEY (role_id, permission_id)
	);

	-- One role per principal: user_id is the upsert key
	CREATE TABLE IF NOT EXISTS user_roles (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		role_id UUID NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS brands (
		id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_brands_name ON brands (lower(name));

	CREATE TABLE IF NOT EXISTS polish_types (
		id UUID PRIMARY KEY,
		name VARCHAR(100) NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_polish_types_name ON polish_types (lower(name));

	CREATE TABLE IF NOT EXISTS colors (
		id UUID PRIMARY KEY,
		name VARCHAR(100) NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_colors_name ON colors (lower(name));

	CREATE TABLE IF NOT EXISTS formulas (
		id UUID PRIMARY KEY,
		name VARCHAR(100) NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_formulas_name ON formulas (lower(name));

	CREATE TABLE IF NOT EXISTS polishes (
		id UUID PRIMARY KEY,
		brand_id UUID NOT NULL REFERENCES brands(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_polishes_brand_name ON polishes (brand_id, lower(name));

	-- Pairs are stored ordered so (a, b) and (b, a) collide
	CREATE TABLE IF NOT EXISTS dupes (
		polish_id UUID NOT NULL REFERENCES polishes(id) ON DELETE CASCADE,
		similar_to_polish_id UUID NOT NULL REFERENCES polishes(id) ON DELETE CASCADE,
		PRIMARY KEY (polish_id, similar_to_polish_id),
		CHECK (polish_id < similar_to_polish_id)
	);

	CREATE TABLE IF NOT EXISTS submissions (
		id UUID PRIMARY KEY,
		kind VARCHAR(20) NOT NULL CHECK (kind IN ('brand', 'polish', 'dupe')),
		submitter_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		natural_key VARCHAR(512) NOT NULL,
		payload JSONB NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
		reviewed_by UUID REFERENCES users(id) ON DELETE SET NULL,
		reviewed_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT submissions_kind_natural_key_key UNIQUE (kind, natural_key)
	);

	CREATE TABLE IF NOT EXISTS audit_logs (
		id UUID PRIMARY KEY,
		actor_id UUID,
		action VARCHAR(100) NOT NULL,
		resource_type VARCHAR(100) NOT NULL,
		resource_id UUID,
		details JSONB,
		request_id VARCHAR(255),
		timestamp TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user_id ON refresh_tokens(user_id);
	CREATE INDEX IF NOT EXISTS idx_submissions_kind_status ON submissions(kind, status, created_at);
	CREATE INDEX IF NOT EXISTS idx_submissions_submitter_id ON submissions(submitter_id);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource_type, resource_id);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_timestamp ON audit_logs(timestamp);
`

// InitSchema creates the tables and seeds the default permissions and roles.
// Safe to run on every start.
func (db *DB) InitSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := db.seedRoles(ctx); err != nil {
		return err
	}

	db.logger.Info("database schema initialized successfully")
	return nil
}

func (db *DB) seedRoles(ctx context.Context) error {
	tm := NewTransactionManager(db, db.logger)
	return tm.InTransaction(ctx, func(ctx context.Context, _ repositories.Transaction) error {
		executor := GetExecutor(ctx, db)

		if _, err := executor.ExecContext(ctx,
			`INSERT INTO permissions (name) SELECT unnest($1::text[]) ON CONFLICT (name) DO NOTHING`,
			pq.Array(models.AllPermissions),
		); err != nil {
			return fmt.Errorf("failed to seed permissions: %w", err)
		}

		for _, role := range models.DefaultRoles {
			if _, err := executor.ExecContext(ctx,
				`INSERT INTO roles (name, description) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
				role.Name, role.Description,
			); err != nil {
				return fmt.Errorf("failed to seed role %s: %w", role.Name, err)
			}

			if _, err := executor.ExecContext(ctx, `
				INSERT INTO role_permissions (role_id, permission_id)
				SELECT r.id, p.id FROM roles r JOIN permissions p ON p.name = ANY($1::text[])
				WHERE r.name = $2
				ON CONFLICT DO NOTHING`,
				pq.Array(models.DefaultRolePermissions[role.Name]), role.Name,
			); err != nil {
				return fmt.Errorf("failed to seed permissions for role %s: %w", role.Name, err)
			}
		}
		return nil
	})
}
