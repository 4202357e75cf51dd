package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is a named bundle of permissions assignable to principals
type Role struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
}

// TableName returns the table name for the Role model
func (Role) TableName() string {
	return "roles"
}

// Permission is an atomic named capability
type Permission struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
}

// TableName returns the table name for the Permission model
func (Permission) TableName() string {
	return "permissions"
}

// RolePermission links a role to one of its permissions
type RolePermission struct {
	RoleID       uuid.UUID `json:"role_id" db:"role_id"`
	PermissionID uuid.UUID `json:"permission_id" db:"permission_id"`
}

// TableName returns the table name for the RolePermission model
func (RolePermission) TableName() string {
	return "role_permissions"
}

// RoleAssignment relates a principal to the role it currently holds.
// A principal holds at most one role; assigning again overwrites RoleID.
type RoleAssignment struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	RoleID    uuid.UUID `json:"role_id" db:"role_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the RoleAssignment model
func (RoleAssignment) TableName() string {
	return "user_roles"
}

// NewRoleAssignment creates a new RoleAssignment instance
func NewRoleAssignment(userID, roleID uuid.UUID) *RoleAssignment {
	now := time.Now()
	return &RoleAssignment{
		ID:        uuid.New(),
		UserID:    userID,
		RoleID:    roleID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
