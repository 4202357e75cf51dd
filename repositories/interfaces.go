package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/polishfinder/backend/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("record not found")

	// ErrUniqueViolation is returned when a write collides with a uniqueness constraint
	ErrUniqueViolation = errors.New("unique constraint violation")

	// ErrStaleState is returned when a conditional update finds the row in a different state
	ErrStaleState = errors.New("record state changed")
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// UserRepository handles principal records held by the identity store
type UserRepository interface {
	// Create creates a new user; ErrUniqueViolation on duplicate username or email
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByUsername retrieves a user by username
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// RefreshTokenRepository handles stored refresh token hashes
type RefreshTokenRepository interface {
	// Create stores a new refresh token
	Create(ctx context.Context, token *models.RefreshToken) error

	// GetByID retrieves a refresh token by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.RefreshToken, error)

	// Delete removes a refresh token. Returns ErrNotFound when it is already gone,
	// which makes each token usable for at most one rotation.
	Delete(ctx context.Context, id uuid.UUID) error
}

// RoleRepository handles roles, permissions and the links between them
type RoleRepository interface {
	// Create creates a new role; ErrUniqueViolation if the name is taken
	Create(ctx context.Context, role *models.Role) error

	// GetByID retrieves a role by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Role, error)

	// GetByName retrieves a role by its exact name
	GetByName(ctx context.Context, name string) (*models.Role, error)

	// GrantPermission links a permission (by name) to a role. Granting twice is a no-op.
	GrantPermission(ctx context.Context, roleID uuid.UUID, permissionName string) error

	// PermissionNames returns every permission name linked to any of the given roles.
	// Names may repeat when roles overlap.
	PermissionNames(ctx context.Context, roleIDs []uuid.UUID) ([]string, error)
}

// RoleAssignmentRepository handles the principal to role relation
type RoleAssignmentRepository interface {
	// ListByUserID returns every assignment held by a principal
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.RoleAssignment, error)

	// Upsert inserts the assignment for the principal or overwrites its role,
	// as a single atomic operation keyed by principal
	Upsert(ctx context.Context, userID, roleID uuid.UUID) (*models.RoleAssignment, error)

	// Delete removes the assignment matching both principal and role.
	// Returns ErrNotFound when no such assignment exists.
	Delete(ctx context.Context, userID, roleID uuid.UUID) error
}

// SubmissionRepository handles the polymorphic submissions table
type SubmissionRepository interface {
	// Create inserts a pending submission; ErrUniqueViolation if (kind, natural key) is taken
	Create(ctx context.Context, sub *models.Submission) error

	// GetByID retrieves a submission of the given kind
	GetByID(ctx context.Context, kind models.SubmissionKind, id uuid.UUID) (*models.Submission, error)

	// FindByNaturalKey retrieves the submission holding a natural key, whatever its status
	FindByNaturalKey(ctx context.Context, kind models.SubmissionKind, naturalKey string) (*models.Submission, error)

	// UpdateStatus moves a submission from one status to another, recording the reviewer.
	// Returns ErrStaleState when the stored status is no longer `from`.
	UpdateStatus(ctx context.Context, kind models.SubmissionKind, id uuid.UUID, from, to models.SubmissionStatus, reviewerID uuid.UUID, at time.Time) (*models.Submission, error)

	// ListByStatus retrieves submissions of a kind in a status, oldest first
	ListByStatus(ctx context.Context, kind models.SubmissionKind, status models.SubmissionStatus, limit, offset int) ([]*models.Submission, error)
}

// CatalogRepository reads the canonical catalog tables
type CatalogRepository interface {
	// GetBrandByID retrieves a canonical brand
	GetBrandByID(ctx context.Context, id uuid.UUID) (*models.Brand, error)

	// GetBrandByName retrieves a canonical brand by case-insensitive name
	GetBrandByName(ctx context.Context, name string) (*models.Brand, error)

	// GetPolishByID retrieves a canonical polish
	GetPolishByID(ctx context.Context, id uuid.UUID) (*models.Polish, error)

	// GetPolishByName retrieves a polish of a brand by case-insensitive name
	GetPolishByName(ctx context.Context, brandID uuid.UUID, name string) (*models.Polish, error)

	// GetLookupByID retrieves a reference entry (type, color, formula)
	GetLookupByID(ctx context.Context, table models.LookupTable, id uuid.UUID) (*models.LookupEntry, error)

	// GetLookupByName retrieves a reference entry by case-insensitive name
	GetLookupByName(ctx context.Context, table models.LookupTable, name string) (*models.LookupEntry, error)

	// DupeLinkExists reports whether two polishes are already linked, in either order
	DupeLinkExists(ctx context.Context, a, b uuid.UUID) (bool, error)
}

// AuditRepository handles audit log data operations
type AuditRepository interface {
	// Insert inserts a new audit log entry
	Insert(ctx context.Context, log *models.AuditLog) error

	// ListByResource retrieves audit logs for one resource, newest first
	ListByResource(ctx context.Context, resourceType string, resourceID uuid.UUID, limit int) ([]*models.AuditLog, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Users           UserRepository
	RefreshTokens   RefreshTokenRepository
	Roles           RoleRepository
	RoleAssignments RoleAssignmentRepository
	Submissions     SubmissionRepository
	Catalog         CatalogRepository
	AuditLogs       AuditRepository
}
