package handlers

import (
	"errors"
	"net/http"

	"github.com/polishfinder/backend/services"
	"github.com/polishfinder/backend/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses.
// Internal errors are logged and answered with a generic message.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	var domainErr *services.DomainError
	if !errors.As(err, &domainErr) {
		logger.Error("unhandled error type", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "", "An unexpected error occurred", nil, logger)
		return
	}

	code := string(domainErr.Code)
	details := domainErr.Details
	if len(details) == 0 {
		details = nil
	}

	switch domainErr.Type {
	case services.ErrorTypeNotFound:
		writeError(w, http.StatusNotFound, code, domainErr.Message, details, logger)
	case services.ErrorTypeValidation:
		writeError(w, http.StatusBadRequest, code, domainErr.Message, details, logger)
	case services.ErrorTypeUnauthorized:
		writeError(w, http.StatusUnauthorized, code, domainErr.Message, nil, logger)
	case services.ErrorTypeForbidden:
		writeError(w, http.StatusForbidden, code, domainErr.Message, details, logger)
	case services.ErrorTypeConflict:
		writeError(w, http.StatusConflict, code, domainErr.Message, details, logger)
	case services.ErrorTypeInternal:
		logger.Error("internal server error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "", "An internal error occurred", nil, logger)
	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(domainErr.Type)))
		writeError(w, http.StatusInternalServerError, "", "An unexpected error occurred", nil, logger)
	}

	logger.Debug("handled service error",
		zap.String("type", string(domainErr.Type)),
		zap.String("code", code),
		zap.String("message", domainErr.Message),
		zap.Any("details", domainErr.Details))
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var validationErr *utils.ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, http.StatusBadRequest, "", validationErr.Message, validationErr.Details(), logger)
		return
	}

	writeError(w, http.StatusBadRequest, "", err.Error(), nil, logger)
}

func writeError(w http.ResponseWriter, status int, code, message string, details map[string]interface{}, logger *zap.Logger) {
	if err := utils.WriteError(w, status, code, message, details); err != nil {
		logger.Error("failed to write error response", zap.Int("status", status), zap.Error(err))
	}
}
