package middleware

import (
	"context"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/polishfinder/backend/services/identity"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// ClaimsKey is the context key for validated token claims
	ClaimsKey contextKey = "claims"

	// UserIDKey is the context key for the authenticated principal
	UserIDKey contextKey = "user_id"
)

// Claims are the validated token claims of the caller
type Claims = identity.ParsedClaims

// GetRequestIDFromContext retrieves the request ID from context, falling
// back to the id assigned by chi's RequestID middleware
func GetRequestIDFromContext(ctx context.Context) string {
	if val := ctx.Value(RequestIDKey); val != nil {
		if requestID, ok := val.(string); ok {
			return requestID
		}
	}
	return chimiddleware.GetReqID(ctx)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetClaimsFromContext retrieves token claims from context
func GetClaimsFromContext(ctx context.Context) *Claims {
	if val := ctx.Value(ClaimsKey); val != nil {
		if claims, ok := val.(*Claims); ok {
			return claims
		}
	}
	return nil
}

// WithClaims adds token claims and the principal id to the context
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	ctx = context.WithValue(ctx, ClaimsKey, claims)
	return WithUserID(ctx, claims.UserID)
}

// GetUserIDFromContext retrieves the authenticated principal id
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	if val := ctx.Value(UserIDKey); val != nil {
		if userID, ok := val.(uuid.UUID); ok && userID != uuid.Nil {
			return userID, true
		}
	}
	return uuid.Nil, false
}

// WithUserID adds the principal id to the context
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}
