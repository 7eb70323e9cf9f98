package types

import "time"

type Permission struct {
	ID          int64   `json:"id" example:"1"`
	Name        string  `json:"name" example:"orders_read"`
	Resource    string  `json:"resource" example:"orders"`
	Action      string  `json:"action" example:"read"`
	Description *string `json:"description,omitempty"`
	IsActive    bool    `json:"is_active"`
}

type Role struct {
	ID          int64        `json:"id" example:"2"`
	Name        string       `json:"name" example:"operador"`
	Description *string      `json:"description,omitempty"`
	IsActive    bool         `json:"is_active"`
	Permissions []Permission `json:"permissions"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type RoleSummary struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	Description      *string `json:"description,omitempty"`
	IsActive         bool    `json:"is_active"`
	PermissionsCount int     `json:"permissions_count"`
}

type CreateRoleRequest struct {
	Name          string  `json:"name" example:"operador"`
	Description   *string `json:"description,omitempty"`
	PermissionIDs []int64 `json:"permission_ids,omitempty"`
}

// UpdateRoleRequest is a partial update. A non-nil PermissionIDs replaces the
// whole permission set, an empty list included.
type UpdateRoleRequest struct {
	Name          *string  `json:"name,omitempty"`
	Description   *string  `json:"description,omitempty"`
	IsActive      *bool    `json:"is_active,omitempty"`
	PermissionIDs *[]int64 `json:"permission_ids,omitempty"`
}

type ReplacePermissionsRequest struct {
	PermissionIDs []int64 `json:"permission_ids"`
}

type NewPermissionParams struct {
	Name        string
	Resource    string
	Action      string
	Description string
}

type UserPermissions struct {
	UserID           int64        `json:"user_id"`
	Username         string       `json:"username"`
	RoleID           *int64       `json:"role_id"`
	RoleName         *string      `json:"role_name"`
	Permissions      []Permission `json:"permissions"`
	TotalPermissions int          `json:"total_permissions"`
}

type SeedResult struct {
	Message      string       `json:"message"`
	CreatedCount int          `json:"created_count"`
	Created      []Permission `json:"created"`
}
