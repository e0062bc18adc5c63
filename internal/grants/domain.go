package grants

import (
	"time"

	"github.com/scholaris-edu/scholaris/internal/authz"
)

// Permission is an atomic capability definition: a (resource, action) pair.
// Grants in every source reference a definition by id.
type Permission struct {
	ID          int64  `json:"id"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

// OverrideGrant is a per-staff, time-bounded exception. It outranks every
// other source and can both grant and deny.
type OverrideGrant struct {
	ID           int64      `json:"id"`
	StaffID      int64      `json:"staff_id"`
	PermissionID int64      `json:"permission_id"`
	Resource     string     `json:"resource"`
	Action       string     `json:"action"`
	IsGranted    bool       `json:"is_granted"`
	ValidUntil   *time.Time `json:"valid_until"`
	CreatedAt    time.Time  `json:"created_at"`
}

// DirectGrant is a permission assigned straight to a staff member.
type DirectGrant struct {
	StaffID      int64 `json:"staff_id"`
	PermissionID int64 `json:"permission_id"`
	IsGranted    bool  `json:"is_granted"`
	IsActive     bool  `json:"is_active"`
}

// RolePermission attaches a permission to a role at a scope.
type RolePermission struct {
	RoleID       int64       `json:"role_id"`
	PermissionID int64       `json:"permission_id"`
	Scope        authz.Scope `json:"scope"`
	IsGranted    bool        `json:"is_granted"`
	IsActive     bool        `json:"is_active"`
}
