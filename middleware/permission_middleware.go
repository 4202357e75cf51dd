package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/polishfinder/backend/models"
	"github.com/polishfinder/backend/services"
	"github.com/polishfinder/backend/utils"
	"go.uber.org/zap"
)

// Authorizer decides whether a principal holds a permission
type Authorizer interface {
	Authorize(ctx context.Context, principalID uuid.UUID, permission string) error
}

// PermissionMiddleware gates routes on the caller's permissions.
// It must run after RequireAuth.
type PermissionMiddleware struct {
	authorizer Authorizer
	logger     *zap.Logger
}

// NewPermissionMiddleware creates a new PermissionMiddleware
func NewPermissionMiddleware(authorizer Authorizer, logger *zap.Logger) *PermissionMiddleware {
	return &PermissionMiddleware{
		authorizer: authorizer,
		logger:     logger,
	}
}

// RequirePermission rejects callers that do not hold permission
func (m *PermissionMiddleware) RequirePermission(permission string) func(http.Handler) http.Handler {
	return m.require(func(*http.Request) (string, bool) {
		return permission, true
	})
}

// RequireKindPermission derives the permission from the submission kind in
// the named URL parameter. Unknown kinds get a 404.
func (m *PermissionMiddleware) RequireKindPermission(param string, permissionFor func(models.SubmissionKind) string) func(http.Handler) http.Handler {
	return m.require(func(r *http.Request) (string, bool) {
		kind, err := models.ParseSubmissionKind(chi.URLParam(r, param))
		if err != nil {
			return "", false
		}
		return permissionFor(kind), true
	})
}

func (m *PermissionMiddleware) require(resolve func(*http.Request) (string, bool)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestIDFromContext(ctx)

			userID, ok := GetUserIDFromContext(ctx)
			if !ok {
				m.logger.Error("principal not found in context",
					zap.String("request_id", requestID))
				_ = utils.WriteUnauthorized(w, "Authentication required")
				return
			}

			permission, ok := resolve(r)
			if !ok {
				_ = utils.WriteNotFound(w, "Unknown submission kind")
				return
			}

			err := m.authorizer.Authorize(ctx, userID, permission)
			switch {
			case err == nil:
			case services.IsNotFoundError(err):
				_ = utils.WriteNotFound(w, "User not found")
				return
			case services.IsForbiddenError(err):
				m.logger.Warn("insufficient permissions",
					zap.String("request_id", requestID),
					zap.String("user_id", userID.String()),
					zap.String("required_permission", permission),
					zap.String("code", string(services.GetErrorCode(err))))
				_ = utils.WriteForbidden(w, "Insufficient permissions")
				return
			default:
				m.logger.Error("failed to authorize request",
					zap.String("request_id", requestID),
					zap.Error(err))
				_ = utils.WriteInternalServerError(w, "Failed to authorize request")
				return
			}

			m.logger.Debug("permission check passed",
				zap.String("request_id", requestID),
				zap.String("required_permission", permission))

			next.ServeHTTP(w, r)
		})
	}
}
