package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/polishfinder/backend/middleware"
	"github.com/polishfinder/backend/models"
	"github.com/polishfinder/backend/utils"
	"go.uber.org/zap"
)

// RoleChangeRequest names a user and a role
type RoleChangeRequest struct {
	Username string `json:"username" validate:"required"`
	RoleName string `json:"role_name" validate:"required"`
}

// RoleManager defines the role assignment operations
type RoleManager interface {
	AssignRole(ctx context.Context, actorID uuid.UUID, username, roleName string) (*models.RoleAssignment, error)
	RevokeRole(ctx context.Context, actorID uuid.UUID, username, roleName string) error
}

// RoleHandler handles role assignment requests
type RoleHandler struct {
	manager RoleManager
	logger  *zap.Logger
}

// NewRoleHandler creates a new RoleHandler
func NewRoleHandler(manager RoleManager, logger *zap.Logger) *RoleHandler {
	return &RoleHandler{
		manager: manager,
		logger:  logger,
	}
}

// HandleAssign handles POST /api/v1/roles/assign
func (h *RoleHandler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, _ := middleware.GetUserIDFromContext(ctx)

	var req RoleChangeRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	assignment, err := h.manager.AssignRole(ctx, actorID, req.Username, req.RoleName)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, assignment)
}

// HandleRevoke handles POST /api/v1/roles/revoke
func (h *RoleHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, _ := middleware.GetUserIDFromContext(ctx)

	var req RoleChangeRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	if err := h.manager.RevokeRole(ctx, actorID, req.Username, req.RoleName); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	utils.WriteNoContent(w)
}
