package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/polishfinder/backend/models"
	"github.com/polishfinder/backend/repositories"
	"github.com/polishfinder/backend/services"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength      = 8
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// AuditLogger records registrations and the role granted with them
type AuditLogger interface {
	LogUserRegistered(ctx context.Context, user *models.User) error
	LogRoleAssigned(ctx context.Context, actorID uuid.UUID, assignment *models.RoleAssignment, roleName string) error
}

// Options tunes a Service
type Options struct {
	BcryptCost      int
	RefreshTokenTTL time.Duration
	// BootstrapAdmin registers as Admin instead of User
	BootstrapAdmin  string
}

// LoginResult is returned on successful login and refresh
type LoginResult struct {
	AccessToken      string    `json:"access_token"`
	TokenType        string    `json:"token_type"`
	ExpiresAt        time.Time `json:"expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
}

// Service registers principals and exchanges credentials for tokens
type Service struct {
	users       repositories.UserRepository
	refresh     repositories.RefreshTokenRepository
	roles       repositories.RoleRepository
	assignments repositories.RoleAssignmentRepository
	txMgr       repositories.TransactionManager
	tokens      *TokenIssuer
	opts        Options
	audit       AuditLogger
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates a new identity Service. txMgr and audit may be nil.
func NewService(
	repos *repositories.Repositories,
	txMgr repositories.TransactionManager,
	tokens *TokenIssuer,
	opts Options,
	audit AuditLogger,
	logger *zap.Logger,
) *Service {
	if opts.BcryptCost < bcrypt.MinCost || opts.BcryptCost > bcrypt.MaxCost {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.RefreshTokenTTL <= 0 {
		opts.RefreshTokenTTL = defaultRefreshTokenTTL
	}
	return &Service{
		users:       repos.Users,
		refresh:     repos.RefreshTokens,
		roles:       repos.Roles,
		assignments: repos.RoleAssignments,
		txMgr:       txMgr,
		tokens:      tokens,
		opts:        opts,
		audit:       audit,
		logger:      logger,
		now:         time.Now,
	}
}

// Register creates a principal with a bcrypt password hash and grants it the
// User role in the same transaction. The configured bootstrap admin is
// granted Admin instead.
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" {
		return nil, services.ErrInvalidInput.WithMessage("username and email are required")
	}
	if len(password) < minPasswordLength {
		return nil, services.ErrInvalidInput.WithMessage("password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return nil, services.WrapInternal("failed to hash password", err)
	}

	user := models.NewUser(username, email, string(hash))
	roleName := s.initialRole(username)

	var assignment *models.RoleAssignment
	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, user); err != nil {
			if errors.Is(err, repositories.ErrUniqueViolation) {
				s.logger.Warn("registration with taken username or email", zap.String("username", username))
				return services.ErrAlreadyExists.WithMessage("username or email already registered")
			}
			s.logger.Error("failed to create user", zap.Error(err))
			return services.WrapInternal("failed to register user", err)
		}

		role, err := s.roles.GetByName(ctx, roleName)
		if err != nil {
			s.logger.Error("default role missing", zap.String("role", roleName), zap.Error(err))
			return services.WrapInternal("failed to load default role", err)
		}

		assignment, err = s.assignments.Upsert(ctx, user.ID, role.ID)
		if err != nil {
			s.logger.Error("failed to assign default role", zap.Error(err))
			return services.WrapInternal("failed to assign default role", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		if err := s.audit.LogUserRegistered(ctx, user); err != nil {
			s.logger.Warn("failed to queue audit event", zap.Error(err))
		}
		if err := s.audit.LogRoleAssigned(ctx, user.ID, assignment, roleName); err != nil {
			s.logger.Warn("failed to queue audit event", zap.Error(err))
		}
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("role", roleName),
	)
	return user, nil
}

// Login authenticates by username or email and issues an access token and a
// refresh token
func (s *Service) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	identifier = strings.TrimSpace(identifier)

	user, err := s.findByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			s.logger.Warn("login for unknown user", zap.String("identifier", identifier))
			return nil, services.ErrUserNotFound
		}
		return nil, services.WrapInternal("failed to load user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn("invalid credentials", zap.String("user_id", user.ID.String()))
		return nil, services.ErrInvalidCredentials
	}

	return s.issueSession(ctx, user)
}

// Refresh consumes a refresh token and issues a new access token together
// with a replacement refresh token. A token can be exchanged only once.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	stored, err := s.lookupRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	if err := s.refresh.Delete(ctx, stored.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			s.logger.Warn("refresh token already used", zap.String("user_id", stored.UserID.String()))
			return nil, services.ErrInvalidToken
		}
		return nil, services.WrapInternal("failed to rotate refresh token", err)
	}
	if stored.Expired(s.now()) {
		return nil, services.ErrTokenExpired
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrInvalidToken
		}
		return nil, services.WrapInternal("failed to load user", err)
	}

	s.logger.Debug("refresh token rotated", zap.String("user_id", user.ID.String()))
	return s.issueSession(ctx, user)
}

// Logout revokes a refresh token. Access tokens already issued stay valid
// until they expire.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	stored, err := s.lookupRefreshToken(ctx, refreshToken)
	if err != nil {
		return err
	}

	if err := s.refresh.Delete(ctx, stored.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return services.ErrInvalidToken
		}
		return services.WrapInternal("failed to revoke refresh token", err)
	}

	s.logger.Info("user logged out", zap.String("user_id", stored.UserID.String()))
	return nil
}

// ValidateToken verifies an access token
func (s *Service) ValidateToken(_ context.Context, token string) (*ParsedClaims, error) {
	return s.tokens.ValidateToken(token)
}

func (s *Service) initialRole(username string) string {
	if s.opts.BootstrapAdmin != "" && username == s.opts.BootstrapAdmin {
		return models.RoleNameAdmin
	}
	return models.RoleNameUser
}

func (s *Service) issueSession(ctx context.Context, user *models.User) (*LoginResult, error) {
	access, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, services.WrapInternal("failed to issue token", err)
	}

	secret, err := newRefreshSecret()
	if err != nil {
		return nil, services.WrapInternal("failed to issue refresh token", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.opts.BcryptCost)
	if err != nil {
		return nil, services.WrapInternal("failed to hash refresh token", err)
	}

	now := s.now()
	stored := &models.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: string(hash),
		ExpiresAt: now.Add(s.opts.RefreshTokenTTL),
		CreatedAt: now,
	}
	if err := s.refresh.Create(ctx, stored); err != nil {
		s.logger.Error("failed to store refresh token", zap.Error(err))
		return nil, services.WrapInternal("failed to issue refresh token", err)
	}

	return &LoginResult{
		AccessToken:      access,
		TokenType:        "Bearer",
		ExpiresAt:        expiresAt,
		RefreshToken:     formatRefreshToken(stored.ID, secret),
		RefreshExpiresAt: stored.ExpiresAt,
		Username:         user.Username,
		Email:            user.Email,
	}, nil
}

func (s *Service) lookupRefreshToken(ctx context.Context, raw string) (*models.RefreshToken, error) {
	id, secret, err := parseRefreshToken(raw)
	if err != nil {
		return nil, err
	}

	stored, err := s.refresh.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrInvalidToken
		}
		return nil, services.WrapInternal("failed to load refresh token", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(stored.TokenHash), []byte(secret)); err != nil {
		s.logger.Warn("refresh token secret mismatch", zap.String("user_id", stored.UserID.String()))
		return nil, services.ErrInvalidToken
	}
	return stored, nil
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txMgr == nil {
		return fn(ctx)
	}
	return services.WithTransaction(ctx, s.txMgr, func(ctx context.Context, _ repositories.Transaction) error {
		return fn(ctx)
	})
}

func (s *Service) findByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	if strings.Contains(identifier, "@") {
		return s.users.GetByEmail(ctx, identifier)
	}
	return s.users.GetByUsername(ctx, identifier)
}
