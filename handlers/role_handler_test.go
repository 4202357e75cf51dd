package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/polishfinder/backend/middleware"
	"github.com/polishfinder/backend/models"
	"github.com/polishfinder/backend/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockRoleManager struct {
	mock.Mock
}

func (m *MockRoleManager) AssignRole(ctx context.Context, actorID uuid.UUID, username, roleName string) (*models.RoleAssignment, error) {
	args := m.Called(ctx, actorID, username, roleName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RoleAssignment), args.Error(1)
}

func (m *MockRoleManager) RevokeRole(ctx context.Context, actorID uuid.UUID, username, roleName string) error {
	args := m.Called(ctx, actorID, username, roleName)
	return args.Error(0)
}

func withActor(req *http.Request, actorID uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), actorID))
}

func TestRoleHandler_Assign(t *testing.T) {
	actorID := uuid.New()

	t.Run("assigns role", func(t *testing.T) {
		mgr := new(MockRoleManager)
		assignment := models.NewRoleAssignment(uuid.New(), uuid.New())
		mgr.On("AssignRole", mock.Anything, actorID, "nova", models.RoleNameModerator).Return(assignment, nil)

		h := NewRoleHandler(mgr, zap.NewNop())
		w := httptest.NewRecorder()
		h.HandleAssign(w, withActor(jsonRequest(t, http.MethodPost, "/api/v1/roles/assign", RoleChangeRequest{
			Username: "nova",
			RoleName: models.RoleNameModerator,
		}), actorID))

		assert.Equal(t, http.StatusOK, w.Code)
		mgr.AssertExpectations(t)
	})

	t.Run("unknown role", func(t *testing.T) {
		mgr := new(MockRoleManager)
		mgr.On("AssignRole", mock.Anything, actorID, "nova", "Wizard").
			Return(nil, services.ErrRoleNotFound.WithDetail("role", "Wizard"))

		h := NewRoleHandler(mgr, zap.NewNop())
		w := httptest.NewRecorder()
		h.HandleAssign(w, withActor(jsonRequest(t, http.MethodPost, "/api/v1/roles/assign", RoleChangeRequest{
			Username: "nova",
			RoleName: "Wizard",
		}), actorID))

		assert.Equal(t, http.StatusNotFound, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, "role_not_found", resp.Code)
		assert.Equal(t, "Wizard", resp.Details["role"])
	})

	t.Run("missing fields", func(t *testing.T) {
		mgr := new(MockRoleManager)
		h := NewRoleHandler(mgr, zap.NewNop())
		w := httptest.NewRecorder()
		h.HandleAssign(w, withActor(jsonRequest(t, http.MethodPost, "/api/v1/roles/assign", `{"username":"nova"}`), actorID))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mgr.AssertNotCalled(t, "AssignRole", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRoleHandler_Revoke(t *testing.T) {
	actorID := uuid.New()

	t.Run("revokes role", func(t *testing.T) {
		mgr := new(MockRoleManager)
		mgr.On("RevokeRole", mock.Anything, actorID, "nova", models.RoleNameUser).Return(nil)

		h := NewRoleHandler(mgr, zap.NewNop())
		w := httptest.NewRecorder()
		h.HandleRevoke(w, withActor(jsonRequest(t, http.MethodPost, "/api/v1/roles/revoke", RoleChangeRequest{
			Username: "nova",
			RoleName: models.RoleNameUser,
		}), actorID))

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("role not assigned", func(t *testing.T) {
		mgr := new(MockRoleManager)
		mgr.On("RevokeRole", mock.Anything, actorID, "nova", models.RoleNameAdmin).Return(services.ErrRoleNotAssigned)

		h := NewRoleHandler(mgr, zap.NewNop())
		w := httptest.NewRecorder()
		h.HandleRevoke(w, withActor(jsonRequest(t, http.MethodPost, "/api/v1/roles/revoke", RoleChangeRequest{
			Username: "nova",
			RoleName: models.RoleNameAdmin,
		}), actorID))

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "role_not_assigned", decodeError(t, w).Code)
	})
}
