package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeInternal     ErrorType = "internal"
)

// ErrorCode names a specific failure within an ErrorType
type ErrorCode string

const (
	CodeUserNotFound            ErrorCode = "user_not_found"
	CodeRoleNotFound            ErrorCode = "role_not_found"
	CodeSubmissionNotFound      ErrorCode = "submission_not_found"
	CodeEntityNotFound          ErrorCode = "entity_not_found"
	CodeAlreadyExists           ErrorCode = "already_exists"
	CodeAlreadySubmittedBySelf  ErrorCode = "already_submitted_by_self"
	CodeAlreadySubmittedByOther ErrorCode = "already_submitted_by_other"
	CodeRoleNotAssigned         ErrorCode = "role_not_assigned"
	CodeNoRoles                 ErrorCode = "no_roles"
	CodeMissingPermission       ErrorCode = "missing_permission"
	CodeInvalidTransition       ErrorCode = "invalid_transition"
	CodeInvalidCredentials      ErrorCode = "invalid_credentials"
	CodeInvalidToken            ErrorCode = "invalid_token"
	CodeTokenExpired            ErrorCode = "token_expired"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Code    ErrorCode
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is. A target without a Code matches every error of its Type.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if e.Type != t.Type {
		return false
	}
	return t.Code == "" || e.Code == t.Code
}

func (e *DomainError) clone() *DomainError {
	cp := *e
	cp.Details = make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	return &cp
}

// WithDetail returns a copy of the error carrying an extra detail
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	cp := e.clone()
	cp.Details[key] = value
	return cp
}

// WithMessage returns a copy of the error with a more specific message
func (e *DomainError) WithMessage(format string, args ...interface{}) *DomainError {
	cp := e.clone()
	cp.Message = fmt.Sprintf(format, args...)
	return cp
}

// Wrap returns a copy of the error with err as its cause
func (e *DomainError) Wrap(err error) *DomainError {
	cp := e.clone()
	cp.Err = err
	return cp
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

func newCodedError(errType ErrorType, code ErrorCode, message string) *DomainError {
	e := NewDomainError(errType, message, nil)
	e.Code = code
	return e
}

// Domain error variables

var (
	// Not Found Errors
	ErrNotFound           = NewDomainError(ErrorTypeNotFound, "not found", nil)
	ErrUserNotFound       = newCodedError(ErrorTypeNotFound, CodeUserNotFound, "user not found")
	ErrRoleNotFound       = newCodedError(ErrorTypeNotFound, CodeRoleNotFound, "role not found")
	ErrSubmissionNotFound = newCodedError(ErrorTypeNotFound, CodeSubmissionNotFound, "submission not found")
	ErrEntityNotFound     = newCodedError(ErrorTypeNotFound, CodeEntityNotFound, "referenced entity not found")

	// Validation Errors
	ErrInvalidInput = NewDomainError(ErrorTypeValidation, "invalid input", nil)

	// Authentication Errors
	ErrUnauthorized       = NewDomainError(ErrorTypeUnauthorized, "unauthorized", nil)
	ErrInvalidCredentials = newCodedError(ErrorTypeUnauthorized, CodeInvalidCredentials, "invalid credentials")
	ErrInvalidToken       = newCodedError(ErrorTypeUnauthorized, CodeInvalidToken, "invalid authentication token")
	ErrTokenExpired       = newCodedError(ErrorTypeUnauthorized, CodeTokenExpired, "authentication token expired")

	// Permission Errors
	ErrForbidden         = NewDomainError(ErrorTypeForbidden, "access forbidden", nil)
	ErrNoRoles           = newCodedError(ErrorTypeForbidden, CodeNoRoles, "user has no roles assigned")
	ErrMissingPermission = newCodedError(ErrorTypeForbidden, CodeMissingPermission, "user does not have the required permission")

	// Conflict Errors
	ErrConflict                = NewDomainError(ErrorTypeConflict, "conflict", nil)
	ErrAlreadyExists           = newCodedError(ErrorTypeConflict, CodeAlreadyExists, "already exists")
	ErrAlreadySubmittedBySelf  = newCodedError(ErrorTypeConflict, CodeAlreadySubmittedBySelf, "already submitted by you")
	ErrAlreadySubmittedByOther = newCodedError(ErrorTypeConflict, CodeAlreadySubmittedByOther, "already submitted by someone else")
	ErrRoleNotAssigned         = newCodedError(ErrorTypeConflict, CodeRoleNotAssigned, "user does not have the role")
	ErrInvalidTransition       = newCodedError(ErrorTypeConflict, CodeInvalidTransition, "status transition not allowed")

	// Internal Errors
	ErrInternal      = NewDomainError(ErrorTypeInternal, "internal server error", nil)
	ErrDatabaseError = NewDomainError(ErrorTypeInternal, "database error", nil)
	ErrCacheFailed   = NewDomainError(ErrorTypeInternal, "cache operation failed", nil)
)

// Error type checking helper functions

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return GetErrorType(err) == ErrorTypeNotFound
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool {
	return GetErrorType(err) == ErrorTypeUnauthorized
}

// IsForbiddenError checks if an error is a forbidden error
func IsForbiddenError(err error) bool {
	return GetErrorType(err) == ErrorTypeForbidden
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	return GetErrorType(err) == ErrorTypeConflict
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeInternal
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorCode returns the ErrorCode of a domain error, or empty string
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}
